package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/itspokchop93/fasho-landing-sub004/internal/campaign"
	"github.com/itspokchop93/fasho-landing-sub004/internal/demand"
	"github.com/itspokchop93/fasho-landing-sub004/internal/scheduler"
)

// PurchaseHandler serves the drip purchase scheduler and the demand queue
type PurchaseHandler struct {
	purchases *scheduler.Service
	demand    *demand.Reconciler
	clock     campaign.Clock
}

// NewPurchaseHandler creates a new PurchaseHandler instance
func NewPurchaseHandler(purchases *scheduler.Service, rec *demand.Reconciler, clock campaign.Clock) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases, demand: rec, clock: clock}
}

// RecordPurchase schedules a new drip plan for a playlist
func (h *PurchaseHandler) RecordPurchase(c *gin.Context) {
	var input struct {
		PlaylistID      uint `json:"playlist_id" binding:"required"`
		QuantityPerDrip int  `json:"quantity_per_drip" binding:"required"`
		DripCount       int  `json:"drip_count" binding:"required"`
		IntervalMinutes int  `json:"interval_minutes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	purchase, err := h.purchases.SchedulePurchase(
		input.PlaylistID, input.QuantityPerDrip, input.DripCount, input.IntervalMinutes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"purchase": purchase,
		"urgency":  scheduler.UrgencyAt(purchase.NextPurchaseDate, h.clock.Now()),
	})
}

// GetPurchases lists a playlist's drip plans, current first
func (h *PurchaseHandler) GetPurchases(c *gin.Context) {
	playlistID, err := parseID(c, "playlistId")
	if err != nil {
		return
	}

	purchases, err := h.purchases.List(playlistID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, purchases)
}

// GetQueue returns playlists currently needing a stream purchase
func (h *PurchaseHandler) GetQueue(c *gin.Context) {
	entries, err := h.demand.Queue()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// AckQueueEntry marks a queue entry as purchased (display-level only)
func (h *PurchaseHandler) AckQueueEntry(c *gin.Context) {
	playlistID, err := parseID(c, "playlistId")
	if err != nil {
		return
	}

	if err := h.demand.Ack(playlistID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Acknowledged", "playlist_id": playlistID})
}
