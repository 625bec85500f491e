package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/itspokchop93/fasho-landing-sub004/internal/campaign"
	"github.com/itspokchop93/fasho-landing-sub004/internal/models"
)

// CampaignHandler serves the campaign lifecycle endpoints
type CampaignHandler struct {
	campaigns *campaign.Service
	clock     campaign.Clock
}

// NewCampaignHandler creates a new CampaignHandler instance
func NewCampaignHandler(svc *campaign.Service, clock campaign.Clock) *CampaignHandler {
	return &CampaignHandler{campaigns: svc, clock: clock}
}

// campaignView decorates a campaign with its derived status for the UI.
type campaignView struct {
	models.Campaign
	Status models.CampaignStatus `json:"status"`
}

func (h *CampaignHandler) view(c models.Campaign, now time.Time) campaignView {
	return campaignView{Campaign: c, Status: c.StatusAt(now)}
}

// GetCampaigns lists campaigns filtered by search term and status
func (h *CampaignHandler) GetCampaigns(c *gin.Context) {
	filter := campaign.Filter{
		Search: c.Query("q"),
		Status: models.CampaignStatus(c.Query("status")),
	}

	campaigns, err := h.campaigns.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.clock.Now()
	views := make([]campaignView, 0, len(campaigns))
	for _, cam := range campaigns {
		views = append(views, h.view(cam, now))
	}
	c.JSON(http.StatusOK, views)
}

// GetCampaign fetches one campaign with its slots
func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	cam, err := h.campaigns.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(*cam, h.clock.Now()))
}

// CreateCampaign places a new order manually
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var order campaign.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cam, err := h.campaigns.Create(order)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.view(*cam, h.clock.Now()))
}

// ConfirmDirectStreams marks the direct-streams step done (idempotent)
func (h *CampaignHandler) ConfirmDirectStreams(c *gin.Context) {
	h.confirm(c, h.campaigns.ConfirmDirectStreams)
}

// ConfirmPlaylistsAdded marks the song live on its playlists (idempotent)
func (h *CampaignHandler) ConfirmPlaylistsAdded(c *gin.Context) {
	h.confirm(c, h.campaigns.ConfirmPlaylistsAdded)
}

// MarkRemoved marks the campaign's song as taken off all playlists
func (h *CampaignHandler) MarkRemoved(c *gin.Context) {
	h.confirm(c, h.campaigns.MarkRemoved)
}

func (h *CampaignHandler) confirm(c *gin.Context, op func(uint) error) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}
	if err := op(id); err != nil {
		respondError(c, err)
		return
	}

	cam, err := h.campaigns.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(*cam, h.clock.Now()))
}

// UpdateGenre changes the genre tag; unconfirmed campaigns get reallocated
func (h *CampaignHandler) UpdateGenre(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	var input struct {
		Genre string `json:"genre" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cam, err := h.campaigns.UpdateGenre(id, input.Genre)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(*cam, h.clock.Now()))
}

// ReassignSlot points one slot at a new playlist or sentinel
func (h *CampaignHandler) ReassignSlot(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	slotIndex, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slot index"})
		return
	}

	var input struct {
		Binding models.SlotBinding `json:"binding" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cam, err := h.campaigns.ReassignSlot(id, slotIndex, input.Binding)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(*cam, h.clock.Now()))
}

// RecordProgress bumps delivery counters (monotonic, clamped to targets)
func (h *CampaignHandler) RecordProgress(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	var input struct {
		DirectStreams   int `json:"direct_streams"`
		PlaylistStreams int `json:"playlist_streams"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cam, err := h.campaigns.RecordProgress(id, input.DirectStreams, input.PlaylistStreams)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(*cam, h.clock.Now()))
}
