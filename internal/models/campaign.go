package models

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

// SlotBinding is what a campaign slot points at: a playlist id, or one of
// two sentinels. Only playlist-bound slots ever count toward demand.
type SlotBinding string

const (
	// SlotEmpty means no assignment was made (allocator ran out of playlists).
	SlotEmpty SlotBinding = "empty"
	// SlotRemoved means an operator intentionally marked the slot as not placed.
	SlotRemoved SlotBinding = "removed"
)

// PlaylistBinding encodes a playlist id as a slot binding.
func PlaylistBinding(playlistID uint) SlotBinding {
	return SlotBinding(strconv.FormatUint(uint64(playlistID), 10))
}

// IsSentinel reports whether the binding is empty/removed rather than a playlist.
func (b SlotBinding) IsSentinel() bool {
	return b == SlotEmpty || b == SlotRemoved || b == ""
}

// PlaylistID decodes the bound playlist id. ok is false for sentinels.
func (b SlotBinding) PlaylistID() (uint, bool) {
	if b.IsSentinel() {
		return 0, false
	}
	id, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// CampaignStatus is derived from campaign fields on every read, never stored.
type CampaignStatus string

const (
	StatusActionNeeded  CampaignStatus = "action_needed"
	StatusRunning       CampaignStatus = "running"
	StatusRemovalNeeded CampaignStatus = "removal_needed"
	StatusCompleted     CampaignStatus = "completed"
)

// Campaign is a purchased song placement moving through fulfillment.
type Campaign struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderRef    string `json:"order_ref" gorm:"index"`
	SongID      string `json:"song_id"`
	SongName    string `json:"song_name"`
	SongLink    string `json:"song_link"`
	PackageName string `json:"package_name"`
	Genre       string `json:"genre"`

	DirectStreamsTarget     int `json:"direct_streams_target"`
	DirectStreamsProgress   int `json:"direct_streams_progress"`
	PlaylistStreamsTarget   int `json:"playlist_streams_target"`
	PlaylistStreamsProgress int `json:"playlist_streams_progress"`

	DirectStreamsConfirmed  bool `json:"direct_streams_confirmed"`
	PlaylistsAddedConfirmed bool `json:"playlists_added_confirmed"`

	RemovalAt            *time.Time `json:"removal_at"`
	RemovedFromPlaylists bool       `json:"removed_from_playlists"`

	SlotCount int            `json:"slot_count"`
	Slots     []CampaignSlot `json:"slots" gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE"`
}

// CampaignSlot is one fixed position in a campaign's ordered placement list.
type CampaignSlot struct {
	ID         uint        `gorm:"primarykey" json:"id"`
	CampaignID uint        `gorm:"index:idx_campaign_slot,unique" json:"campaign_id"`
	Index      int         `gorm:"index:idx_campaign_slot,unique;column:slot_index" json:"index"`
	Binding    SlotBinding `gorm:"not null;default:'empty'" json:"binding"`
}

// Bindings returns the campaign's slot bindings in slot order.
func (c *Campaign) Bindings() []SlotBinding {
	out := make([]SlotBinding, len(c.Slots))
	for i := range out {
		out[i] = SlotEmpty
	}
	for _, s := range c.Slots {
		if s.Index >= 0 && s.Index < len(out) {
			out[s.Index] = s.Binding
		}
	}
	return out
}

// StatusAt derives the lifecycle status at a given instant.
// Pure function of the campaign's fields; the result is never persisted.
func (c *Campaign) StatusAt(now time.Time) CampaignStatus {
	switch {
	case c.RemovedFromPlaylists:
		return StatusCompleted
	case !c.DirectStreamsConfirmed || !c.PlaylistsAddedConfirmed:
		return StatusActionNeeded
	case c.RemovalAt == nil:
		return StatusRunning
	case !now.Before(*c.RemovalAt):
		return StatusRemovalNeeded
	default:
		return StatusRunning
	}
}
