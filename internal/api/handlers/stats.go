package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/itspokchop93/fasho-landing-sub004/internal/campaign"
	"github.com/itspokchop93/fasho-landing-sub004/internal/models"
)

// StatsHandler handles dashboard statistics independently of the main server
type StatsHandler struct {
	db    *gorm.DB
	clock campaign.Clock
}

// NewStatsHandler creates a new StatsHandler instance
func NewStatsHandler(db *gorm.DB, clock campaign.Clock) *StatsHandler {
	return &StatsHandler{db: db, clock: clock}
}

// GetStats returns aggregated dashboard statistics
func (h *StatsHandler) GetStats(c *gin.Context) {
	var totalPlaylists int64
	var totalCampaigns int64
	var totalDemand int64

	// 1. Basic Aggregates
	h.db.Model(&models.Playlist{}).Where("is_active = ?", true).Count(&totalPlaylists)
	h.db.Model(&models.Campaign{}).Count(&totalCampaigns)
	h.db.Model(&models.PlaylistDemand{}).Select("COALESCE(SUM(songs_added), 0)").Scan(&totalDemand)

	// 2. Status breakdown (derived per read, so we walk the rows)
	var campaigns []models.Campaign
	h.db.Find(&campaigns)

	now := h.clock.Now()
	byStatus := map[models.CampaignStatus]int{}
	for _, cam := range campaigns {
		byStatus[cam.StatusAt(now)]++
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": gin.H{
			"total_playlists":    totalPlaylists,
			"total_campaigns":    totalCampaigns,
			"total_songs_needed": totalDemand,
		},
		"campaigns_by_status": gin.H{
			"action_needed":  byStatus[models.StatusActionNeeded],
			"running":        byStatus[models.StatusRunning],
			"removal_needed": byStatus[models.StatusRemovalNeeded],
			"completed":      byStatus[models.StatusCompleted],
		},
	})
}
