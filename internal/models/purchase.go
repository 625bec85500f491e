package models

import (
	"time"

	"gorm.io/gorm"
)

// StreamPurchase is one recurring "drip" stream-buy plan for a playlist.
// NextPurchaseDate is always PurchaseDate + DripCount * IntervalMinutes.
type StreamPurchase struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	PlaylistID uint `json:"playlist_id" gorm:"index;not null"`

	QuantityPerDrip int `json:"quantity_per_drip" gorm:"not null"`
	DripCount       int `json:"drip_count" gorm:"not null"`
	IntervalMinutes int `json:"interval_minutes" gorm:"not null"`

	PurchaseDate     time.Time `json:"purchase_date" gorm:"index"`
	NextPurchaseDate time.Time `json:"next_purchase_date"`
}
