package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/itspokchop93/fasho-landing-sub004/internal/registry"
)

// PlaylistHandler serves the playlist registry endpoints
type PlaylistHandler struct {
	registry *registry.Registry
}

// NewPlaylistHandler creates a new PlaylistHandler instance
func NewPlaylistHandler(reg *registry.Registry) *PlaylistHandler {
	return &PlaylistHandler{registry: reg}
}

// GetPlaylists returns every active playlist with its cached occupancy
func (h *PlaylistHandler) GetPlaylists(c *gin.Context) {
	playlists, err := h.registry.ListActive()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlists)
}

// GetPlaylist fetches a single playlist
func (h *PlaylistHandler) GetPlaylist(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	playlist, err := h.registry.GetPlaylist(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlist)
}

// DeletePlaylist removes a playlist unless a live campaign still points at it
func (h *PlaylistHandler) DeletePlaylist(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	if err := h.registry.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Playlist removed", "id": id})
}

// RefreshPlaylist forces an occupancy refresh from the catalog
func (h *PlaylistHandler) RefreshPlaylist(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		return
	}

	if err := h.registry.RefreshOccupancy(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	playlist, err := h.registry.GetPlaylist(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlist)
}

// parseID reads a uint path param, replying 400 itself on garbage.
func parseID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id: " + raw})
		return 0, err
	}
	return uint(id), nil
}
