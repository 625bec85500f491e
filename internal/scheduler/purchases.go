package scheduler

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/itspokchop93/fasho-landing-sub004/internal/models"
)

// Urgency buckets a purchase's next date for display. Boundaries are
// inclusive on the ≥ side: exactly 5 days out is still Relaxed, exactly
// 2 days out is still Soon.
type Urgency string

const (
	UrgencyRelaxed Urgency = "relaxed" // ≥5 days away
	UrgencySoon    Urgency = "soon"    // 2–4 days away
	UrgencyUrgent  Urgency = "urgent"  // <2 days away or overdue
)

// Service computes forward purchase schedules for recurring stream buys.
type Service struct {
	db    *gorm.DB
	clock Clock
}

func NewService(db *gorm.DB, clock Clock) *Service {
	return &Service{db: db, clock: clock}
}

// SchedulePurchase records a new drip plan for a playlist. The batch starts
// now; the whole plan completes after dripCount intervals.
func (s *Service) SchedulePurchase(playlistID uint, quantityPerDrip, dripCount, intervalMinutes int) (*models.StreamPurchase, error) {
	if quantityPerDrip <= 0 || dripCount <= 0 || intervalMinutes <= 0 {
		return nil, fmt.Errorf("quantity/drips/interval must be positive: %w", models.ErrValidation)
	}

	var playlist models.Playlist
	if err := s.db.First(&playlist, playlistID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("playlist %d: %w", playlistID, models.ErrNotFound)
		}
		return nil, err
	}

	purchaseDate := s.clock.Now().UTC()
	purchase := models.StreamPurchase{
		PlaylistID:       playlistID,
		QuantityPerDrip:  quantityPerDrip,
		DripCount:        dripCount,
		IntervalMinutes:  intervalMinutes,
		PurchaseDate:     purchaseDate,
		NextPurchaseDate: purchaseDate.Add(time.Duration(dripCount*intervalMinutes) * time.Minute),
	}

	if err := s.db.Create(&purchase).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

// Current returns the playlist's display schedule: the plan with the latest
// purchase date. Nil when the playlist has no plans yet.
func (s *Service) Current(playlistID uint) (*models.StreamPurchase, error) {
	var purchase models.StreamPurchase
	err := s.db.Where("playlist_id = ?", playlistID).
		Order("purchase_date DESC").
		First(&purchase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// List returns every plan for a playlist, newest first.
func (s *Service) List(playlistID uint) ([]models.StreamPurchase, error) {
	var purchases []models.StreamPurchase
	err := s.db.Where("playlist_id = ?", playlistID).
		Order("purchase_date DESC").
		Find(&purchases).Error
	return purchases, err
}

// UrgencyAt classifies how soon the next purchase is due relative to now.
func UrgencyAt(nextPurchase, now time.Time) Urgency {
	until := nextPurchase.Sub(now)
	switch {
	case until >= 5*24*time.Hour:
		return UrgencyRelaxed
	case until >= 2*24*time.Hour:
		return UrgencySoon
	default:
		return UrgencyUrgent
	}
}
