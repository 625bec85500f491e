package models

import "time"

// PlaylistDemand is the reference-counted demand aggregate for one playlist:
// how many confirmed campaigns currently rely on it for stream purchases.
// Rows only exist while SongsAdded > 0; the reconciler deletes at zero.
type PlaylistDemand struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PlaylistID    uint      `json:"playlist_id" gorm:"uniqueIndex;not null"`
	SongsAdded    int       `json:"songs_added" gorm:"not null;default:0"`
	LastSessionAt time.Time `json:"last_session_at"`

	// AckedAt is the display-layer "streams purchased" acknowledgement.
	// It never feeds back into the counts.
	AckedAt *time.Time `json:"acked_at"`
}

// SlotRecord is the campaign tracker: the binding last credited/debited for
// each slot of a campaign whose playlists-added confirmation was processed.
// The aggregate is always fully explained by these rows.
type SlotRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CampaignID uint        `gorm:"index:idx_slot_record,unique;not null" json:"campaign_id"`
	Index      int         `gorm:"index:idx_slot_record,unique;column:slot_index" json:"index"`
	Binding    SlotBinding `gorm:"not null;default:'empty'" json:"binding"`
}
