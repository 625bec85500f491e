package models

import (
	"time"

	"gorm.io/gorm"
)

// HealthStatus mirrors what the external catalog last told us about a playlist.
type HealthStatus string

const (
	HealthActive  HealthStatus = "active"
	HealthPrivate HealthStatus = "private"
	HealthRemoved HealthStatus = "removed"
	HealthError   HealthStatus = "error"
	HealthUnknown HealthStatus = "unknown"
)

// Playlist represents one of our curated placement targets
type Playlist struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // Hiding DeletedAt from the API

	Name       string `json:"name" gorm:"not null"`
	Genre      string `json:"genre" gorm:"index"`
	AccountID  string `json:"account_id"`
	ExternalID string `json:"external_id" gorm:"index"` // Catalog-side key

	MaxSongs int `json:"max_songs" gorm:"not null;default:10"`

	// CachedSongCount is an eventually-consistent snapshot from the catalog.
	// Advisory only: it never blocks an assignment.
	CachedSongCount int          `json:"cached_song_count" gorm:"default:0"`
	IsActive        bool         `json:"is_active" gorm:"default:true"`
	HealthStatus    HealthStatus `json:"health_status" gorm:"default:'unknown'"`
}

// Occupancy returns the cached fill ratio (advisory, may exceed 1.0).
func (p *Playlist) Occupancy() float64 {
	if p.MaxSongs <= 0 {
		return 0
	}
	return float64(p.CachedSongCount) / float64(p.MaxSongs)
}

// HasCapacity reports whether the cached snapshot says the playlist can
// take another song. Over-capacity placements are still possible because
// the snapshot can be stale.
func (p *Playlist) HasCapacity() bool {
	return p.CachedSongCount < p.MaxSongs
}
