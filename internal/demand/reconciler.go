package demand

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/itspokchop93/fasho-landing-sub004/internal/events"
	"github.com/itspokchop93/fasho-landing-sub004/internal/models"
)

// Clock lets tests pin the reconciler's notion of now.
type Clock interface {
	Now() time.Time
}

// Reconciler maintains the per-playlist demand aggregate: how many confirmed
// campaigns currently rely on each playlist for stream purchases. The
// aggregate is incrementally maintained, never recounted from scratch, and
// is always fully explained by the tracked slot records.
//
// All mutations run under one mutex plus a database transaction, so a debit
// and its matching credit can never be observed half-applied and concurrent
// reassignments cannot drift the counts.
type Reconciler struct {
	db    *gorm.DB
	bus   *events.Bus
	clock Clock

	mu sync.Mutex
}

func New(db *gorm.DB, bus *events.Bus, clock Clock) *Reconciler {
	return &Reconciler{db: db, bus: bus, clock: clock}
}

// OnPlaylistsAdded credits every playlist bound in the campaign's slots and
// records the slot list in the tracker. Duplicate events for a campaign
// already tracked are ignored, so replays never double-count.
func (r *Reconciler) OnPlaylistsAdded(campaignID uint, slots []models.SlotBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed []events.DemandChanged

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var tracked int64
		if err := tx.Model(&models.SlotRecord{}).
			Where("campaign_id = ?", campaignID).
			Count(&tracked).Error; err != nil {
			return err
		}
		if tracked > 0 {
			return nil
		}

		now := r.clock.Now().UTC()
		for i, binding := range slots {
			rec := models.SlotRecord{CampaignID: campaignID, Index: i, Binding: binding}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
			if playlistID, ok := binding.PlaylistID(); ok {
				count, err := r.credit(tx, playlistID, now)
				if err != nil {
					return err
				}
				changed = append(changed, events.DemandChanged{PlaylistID: playlistID, SongsAdded: count})
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("demand: playlists added for campaign %d: %w", campaignID, err)
	}

	r.publish(changed)
	return nil
}

// OnSlotReassigned atomically debits the slot's previous playlist and
// credits the new one. Campaigns that never had their playlists-added event
// processed are silently skipped: unconfirmed edits must not perturb the
// aggregate.
func (r *Reconciler) OnSlotReassigned(campaignID uint, slotIndex int, newBinding models.SlotBinding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed []events.DemandChanged

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var tracked int64
		if err := tx.Model(&models.SlotRecord{}).
			Where("campaign_id = ?", campaignID).
			Count(&tracked).Error; err != nil {
			return err
		}
		if tracked == 0 {
			return nil
		}

		var rec models.SlotRecord
		err := tx.Where("campaign_id = ? AND slot_index = ?", campaignID, slotIndex).
			First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Tracked campaign but a slot index the event never covered.
			rec = models.SlotRecord{CampaignID: campaignID, Index: slotIndex, Binding: models.SlotEmpty}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		now := r.clock.Now().UTC()

		if oldID, ok := rec.Binding.PlaylistID(); ok {
			count, err := r.debit(tx, oldID)
			if err != nil {
				return err
			}
			changed = append(changed, events.DemandChanged{PlaylistID: oldID, SongsAdded: count})
		}

		if newID, ok := newBinding.PlaylistID(); ok {
			count, err := r.credit(tx, newID, now)
			if err != nil {
				return err
			}
			changed = append(changed, events.DemandChanged{PlaylistID: newID, SongsAdded: count})
		}

		// The tracker records sentinels too, so the next reassignment
		// debits the right thing.
		return tx.Model(&models.SlotRecord{}).
			Where("id = ?", rec.ID).
			Update("binding", newBinding).Error
	})
	if err != nil {
		return fmt.Errorf("demand: reassign slot %d of campaign %d: %w", slotIndex, campaignID, err)
	}

	r.publish(changed)
	return nil
}

// credit bumps a playlist's count, creating the row if absent.
func (r *Reconciler) credit(tx *gorm.DB, playlistID uint, now time.Time) (int, error) {
	var entry models.PlaylistDemand
	err := tx.Where("playlist_id = ?", playlistID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = models.PlaylistDemand{PlaylistID: playlistID, SongsAdded: 1, LastSessionAt: now}
		if err := tx.Create(&entry).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}

	entry.SongsAdded++
	entry.LastSessionAt = now
	if err := tx.Save(&entry).Error; err != nil {
		return 0, err
	}
	return entry.SongsAdded, nil
}

// debit drops a playlist's count. Reaching zero deletes the row entirely:
// "no demand" renders the same as "never had demand".
func (r *Reconciler) debit(tx *gorm.DB, playlistID uint) (int, error) {
	var entry models.PlaylistDemand
	err := tx.Where("playlist_id = ?", playlistID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	entry.SongsAdded--
	if entry.SongsAdded <= 0 {
		if err := tx.Unscoped().Delete(&entry).Error; err != nil {
			return 0, err
		}
		return 0, nil
	}
	if err := tx.Save(&entry).Error; err != nil {
		return 0, err
	}
	return entry.SongsAdded, nil
}

func (r *Reconciler) publish(changed []events.DemandChanged) {
	if r.bus == nil {
		return
	}
	for _, e := range changed {
		r.bus.Publish(e)
	}
}

// SongsAdded reports the current count for one playlist (0 when untracked).
func (r *Reconciler) SongsAdded(playlistID uint) (int, error) {
	var entry models.PlaylistDemand
	err := r.db.Where("playlist_id = ?", playlistID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return entry.SongsAdded, nil
}

// Queue returns the playlists currently needing a stream purchase: every
// non-empty aggregate entry not yet acknowledged since its last session.
func (r *Reconciler) Queue() ([]models.PlaylistDemand, error) {
	var entries []models.PlaylistDemand
	err := r.db.
		Where("songs_added > 0").
		Where("acked_at IS NULL OR acked_at < last_session_at").
		Order("last_session_at DESC").
		Find(&entries).Error
	return entries, err
}

// Ack marks a queue entry as purchased. Display-level acknowledgement only;
// the counts are untouched and new demand re-surfaces the playlist.
func (r *Reconciler) Ack(playlistID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var entry models.PlaylistDemand
	err := r.db.Where("playlist_id = ?", playlistID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("demand entry for playlist %d: %w", playlistID, models.ErrNotFound)
	}
	if err != nil {
		return err
	}

	now := r.clock.Now().UTC()
	return r.db.Model(&entry).Update("acked_at", now).Error
}
