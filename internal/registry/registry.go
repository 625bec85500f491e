package registry

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/itspokchop93/fasho-landing-sub004/internal/catalog"
	"github.com/itspokchop93/fasho-landing-sub004/internal/models"
)

// Registry owns playlist capacity/genre metadata and the cached occupancy
// snapshot. Occupancy is refreshed from the external catalog in the
// background; reads never block on the catalog.
type Registry struct {
	db      *gorm.DB
	catalog catalog.Lookup
}

func New(db *gorm.DB, cat catalog.Lookup) *Registry {
	return &Registry{db: db, catalog: cat}
}

func (r *Registry) GetPlaylist(id uint) (*models.Playlist, error) {
	var p models.Playlist
	if err := r.db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("playlist %d: %w", id, models.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

// ListActive returns all active playlists. Order is left to the caller;
// the allocator applies its own deterministic sort.
func (r *Registry) ListActive() ([]models.Playlist, error) {
	var playlists []models.Playlist
	if err := r.db.Where("is_active = ?", true).Find(&playlists).Error; err != nil {
		return nil, err
	}
	return playlists, nil
}

// RefreshOccupancy rewrites the cached song count and health status from the
// catalog. A failed lookup keeps the prior cached values and flags the
// playlist as errored; it never returns the upstream failure to the caller.
func (r *Registry) RefreshOccupancy(ctx context.Context, id uint) error {
	p, err := r.GetPlaylist(id)
	if err != nil {
		return err
	}

	info, err := r.catalog.LookupPlaylist(ctx, p.ExternalID)
	if err != nil {
		log.Printf("⚠️ Occupancy refresh failed for playlist %d (%s): %v", p.ID, p.Name, err)
		return r.db.Model(p).Update("health_status", models.HealthError).Error
	}

	updates := map[string]interface{}{"health_status": info.Health}
	if info.Health == models.HealthActive {
		updates["cached_song_count"] = info.TrackCount
	}
	return r.db.Model(p).Updates(updates).Error
}

// RefreshAll walks every active playlist. Used by the background loop;
// individual failures degrade to stale cached capacity.
func (r *Registry) RefreshAll(ctx context.Context) {
	playlists, err := r.ListActive()
	if err != nil {
		log.Printf("⚠️ Occupancy sweep aborted: %v", err)
		return
	}
	for _, p := range playlists {
		if ctx.Err() != nil {
			return
		}
		if err := r.RefreshOccupancy(ctx, p.ID); err != nil {
			log.Printf("⚠️ Occupancy refresh error for playlist %d: %v", p.ID, err)
		}
	}
}

// Delete removes a playlist. Refused while any campaign that has not yet
// completed still holds a slot bound to it.
func (r *Registry) Delete(id uint) error {
	if _, err := r.GetPlaylist(id); err != nil {
		return err
	}

	binding := models.PlaylistBinding(id)
	var inUse int64
	err := r.db.Model(&models.CampaignSlot{}).
		Joins("JOIN campaigns ON campaigns.id = campaign_slots.campaign_id").
		Where("campaign_slots.binding = ?", binding).
		Where("campaigns.removed_from_playlists = ?", false).
		Where("campaigns.deleted_at IS NULL").
		Count(&inUse).Error
	if err != nil {
		return err
	}
	if inUse > 0 {
		return fmt.Errorf("playlist %d has %d live slot(s): %w", id, inUse, models.ErrConflictInUse)
	}

	return r.db.Delete(&models.Playlist{}, id).Error
}
