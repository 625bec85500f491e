package campaign

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/itspokchop93/fasho-landing-sub004/internal/allocator"
	"github.com/itspokchop93/fasho-landing-sub004/internal/events"
	"github.com/itspokchop93/fasho-landing-sub004/internal/models"
)

// Clock lets tests pin the service's notion of now.
type Clock interface {
	Now() time.Time
}

// DemandSink is the reconciler as the campaign lifecycle sees it.
type DemandSink interface {
	OnPlaylistsAdded(campaignID uint, slots []models.SlotBinding) error
	OnSlotReassigned(campaignID uint, slotIndex int, newBinding models.SlotBinding) error
}

// Service drives a campaign through its lifecycle. Status is never stored:
// it is derived from the underlying fields on every read.
type Service struct {
	db     *gorm.DB
	alloc  *allocator.Allocator
	demand DemandSink
	bus    *events.Bus
	clock  Clock

	removalWindow    time.Duration
	defaultSlotCount int
	excludedPrefixes []string
}

type Options struct {
	RemovalWindowDays int
	DefaultSlotCount  int
	ExcludedPrefixes  []string
}

func NewService(db *gorm.DB, alloc *allocator.Allocator, sink DemandSink, bus *events.Bus, clock Clock, opts Options) *Service {
	if opts.RemovalWindowDays <= 0 {
		opts.RemovalWindowDays = 30
	}
	if opts.DefaultSlotCount <= 0 {
		opts.DefaultSlotCount = 5
	}
	return &Service{
		db:               db,
		alloc:            alloc,
		demand:           sink,
		bus:              bus,
		clock:            clock,
		removalWindow:    time.Duration(opts.RemovalWindowDays) * 24 * time.Hour,
		defaultSlotCount: opts.DefaultSlotCount,
		excludedPrefixes: opts.ExcludedPrefixes,
	}
}

// Order is the input to campaign creation, whether placed or imported.
type Order struct {
	OrderRef              string `json:"order_ref"`
	SongID                string `json:"song_id"`
	SongName              string `json:"song_name"`
	SongLink              string `json:"song_link"`
	PackageName           string `json:"package_name"`
	Genre                 string `json:"genre"`
	DirectStreamsTarget   int    `json:"direct_streams_target"`
	PlaylistStreamsTarget int    `json:"playlist_streams_target"`
	SlotCount             int    `json:"slot_count"`
}

// Create builds a campaign and allocates its slots. Allocation is
// best-effort: a short or failed allocation leaves empty sentinels and the
// campaign is still created.
func (s *Service) Create(order Order) (*models.Campaign, error) {
	if order.OrderRef == "" || order.SongName == "" {
		return nil, fmt.Errorf("order ref and song name are required: %w", models.ErrValidation)
	}
	if order.DirectStreamsTarget < 0 || order.PlaylistStreamsTarget < 0 {
		return nil, fmt.Errorf("targets must be non-negative: %w", models.ErrValidation)
	}

	slotCount := order.SlotCount
	if slotCount <= 0 {
		slotCount = s.defaultSlotCount
	}

	bindings := s.alloc.Allocate(order.Genre, slotCount)

	c := models.Campaign{
		OrderRef:              order.OrderRef,
		SongID:                order.SongID,
		SongName:              order.SongName,
		SongLink:              order.SongLink,
		PackageName:           order.PackageName,
		Genre:                 order.Genre,
		DirectStreamsTarget:   order.DirectStreamsTarget,
		PlaylistStreamsTarget: order.PlaylistStreamsTarget,
		SlotCount:             slotCount,
	}
	for i, b := range bindings {
		c.Slots = append(c.Slots, models.CampaignSlot{Index: i, Binding: b})
	}

	if err := s.db.Create(&c).Error; err != nil {
		return nil, err
	}
	log.Printf("🎧 Campaign %d created for %q (%d slots)", c.ID, c.SongName, slotCount)
	return &c, nil
}

// Get loads a campaign with its slots in order.
func (s *Service) Get(id uint) (*models.Campaign, error) {
	var c models.Campaign
	err := s.db.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("slot_index ASC")
	}).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("campaign %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Filter narrows the campaign list.
type Filter struct {
	Search string
	Status models.CampaignStatus
}

// List returns campaigns matching the filter. Legacy/foreign order numbers
// (excluded prefixes) never show up; status is computed per read.
func (s *Service) List(f Filter) ([]models.Campaign, error) {
	query := s.db.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("slot_index ASC")
	}).Order("created_at DESC")

	if f.Search != "" {
		needle := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where(
			"LOWER(song_name) LIKE ? OR LOWER(order_ref) LIKE ? OR LOWER(package_name) LIKE ?",
			needle, needle, needle,
		)
	}

	var campaigns []models.Campaign
	if err := query.Find(&campaigns).Error; err != nil {
		return nil, err
	}

	now := s.clock.Now()
	out := make([]models.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if s.isExcluded(c.OrderRef) {
			continue
		}
		if f.Status != "" && c.StatusAt(now) != f.Status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Service) isExcluded(orderRef string) bool {
	for _, prefix := range s.excludedPrefixes {
		if strings.HasPrefix(orderRef, prefix) {
			return true
		}
	}
	return false
}

// ConfirmDirectStreams records the operator's direct-streams confirmation.
// Already-confirmed campaigns are a no-op.
func (s *Service) ConfirmDirectStreams(id uint) error {
	c, err := s.Get(id)
	if err != nil {
		return err
	}
	if c.DirectStreamsConfirmed {
		return nil
	}

	if err := s.db.Model(c).Update("direct_streams_confirmed", true).Error; err != nil {
		return err
	}
	c.DirectStreamsConfirmed = true
	s.publishStatus(c)
	return nil
}

// ConfirmPlaylistsAdded records that the song is physically live on its
// playlists. This is the moment demand becomes real: the reconciler is fed
// the campaign's current bindings and the removal date starts counting.
// Replays are safe end to end — the flag write is a no-op and the
// reconciler's tracker ignores campaigns it already processed.
func (s *Service) ConfirmPlaylistsAdded(id uint) error {
	c, err := s.Get(id)
	if err != nil {
		return err
	}

	if !c.PlaylistsAddedConfirmed {
		removalAt := s.clock.Now().UTC().Add(s.removalWindow)
		err := s.db.Model(c).Updates(map[string]interface{}{
			"playlists_added_confirmed": true,
			"removal_at":                removalAt,
		}).Error
		if err != nil {
			return err
		}
		c.PlaylistsAddedConfirmed = true
		c.RemovalAt = &removalAt
	}

	// Always forward to the reconciler: it is idempotent, and re-running a
	// confirm whose reconciliation previously failed heals the aggregate.
	bindings := c.Bindings()
	if err := s.demand.OnPlaylistsAdded(c.ID, bindings); err != nil {
		return err
	}

	if s.bus != nil {
		s.bus.Publish(events.PlaylistsAdded{CampaignID: c.ID, Slots: bindings})
	}
	s.publishStatus(c)
	return nil
}

// MarkRemoved forces the terminal state: the song has been taken off its
// playlists. Idempotent.
func (s *Service) MarkRemoved(id uint) error {
	c, err := s.Get(id)
	if err != nil {
		return err
	}
	if c.RemovedFromPlaylists {
		return nil
	}

	if err := s.db.Model(c).Update("removed_from_playlists", true).Error; err != nil {
		return err
	}
	c.RemovedFromPlaylists = true
	s.publishStatus(c)
	return nil
}

// UpdateGenre changes the campaign's genre tag. On an unconfirmed campaign
// this discards all slot bindings and re-runs allocation wholesale; once
// playlists are confirmed the existing bindings are retained until an
// operator edits a slot explicitly.
func (s *Service) UpdateGenre(id uint, genre string) (*models.Campaign, error) {
	if strings.TrimSpace(genre) == "" {
		return nil, fmt.Errorf("genre must not be empty: %w", models.ErrValidation)
	}

	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if c.PlaylistsAddedConfirmed {
		if err := s.db.Model(c).Update("genre", genre).Error; err != nil {
			return nil, err
		}
		return s.Get(id)
	}

	bindings := s.alloc.Allocate(genre, c.SlotCount)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(c).Update("genre", genre).Error; err != nil {
			return err
		}
		if err := tx.Where("campaign_id = ?", c.ID).Delete(&models.CampaignSlot{}).Error; err != nil {
			return err
		}
		for i, b := range bindings {
			slot := models.CampaignSlot{CampaignID: c.ID, Index: i, Binding: b}
			if err := tx.Create(&slot).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🔁 Campaign %d reallocated for genre %q", c.ID, genre)
	return s.Get(id)
}

// ReassignSlot points one slot at a new playlist or sentinel. The demand
// aggregate is settled first (atomically, debit and credit together); only
// then is the campaign row updated. Reconciler failures surface to the
// caller untouched — swallowing them would silently corrupt the aggregate.
func (s *Service) ReassignSlot(id uint, slotIndex int, binding models.SlotBinding) (*models.Campaign, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if slotIndex < 0 || slotIndex >= c.SlotCount {
		return nil, fmt.Errorf("slot index %d out of range [0,%d): %w", slotIndex, c.SlotCount, models.ErrValidation)
	}

	if playlistID, ok := binding.PlaylistID(); ok {
		var playlist models.Playlist
		if err := s.db.First(&playlist, playlistID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("playlist %d: %w", playlistID, models.ErrNotFound)
			}
			return nil, err
		}
	} else if binding != models.SlotEmpty && binding != models.SlotRemoved {
		return nil, fmt.Errorf("binding %q is neither a playlist id nor a sentinel: %w", binding, models.ErrValidation)
	}

	if err := s.demand.OnSlotReassigned(c.ID, slotIndex, binding); err != nil {
		return nil, err
	}

	err = s.db.Model(&models.CampaignSlot{}).
		Where("campaign_id = ? AND slot_index = ?", c.ID, slotIndex).
		Update("binding", binding).Error
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(events.SlotReassigned{CampaignID: c.ID, Index: slotIndex, Binding: binding})
	}
	return s.Get(id)
}

// RecordProgress bumps the campaign's delivery counters. Counters are
// monotonic and clamped to their targets; a lower value is ignored.
func (s *Service) RecordProgress(id uint, directStreams, playlistStreams int) (*models.Campaign, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if directStreams > c.DirectStreamsProgress {
		updates["direct_streams_progress"] = min(directStreams, c.DirectStreamsTarget)
	}
	if playlistStreams > c.PlaylistStreamsProgress {
		updates["playlist_streams_progress"] = min(playlistStreams, c.PlaylistStreamsTarget)
	}
	if len(updates) == 0 {
		return c, nil
	}

	if err := s.db.Model(c).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.Get(id)
}

func (s *Service) publishStatus(c *models.Campaign) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.StatusChanged{CampaignID: c.ID, Status: c.StatusAt(s.clock.Now())})
}
