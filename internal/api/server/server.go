package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/itspokchop93/fasho-landing-sub004/internal/api/handlers"
	"github.com/itspokchop93/fasho-landing-sub004/internal/campaign"
	"github.com/itspokchop93/fasho-landing-sub004/internal/config"
	database "github.com/itspokchop93/fasho-landing-sub004/internal/db"
	"github.com/itspokchop93/fasho-landing-sub004/internal/demand"
	"github.com/itspokchop93/fasho-landing-sub004/internal/registry"
	"github.com/itspokchop93/fasho-landing-sub004/internal/scheduler"
)

type Server struct {
	cfg    *config.Config
	router *gin.Engine
}

// Deps carries the wired services; main builds them once and hands them over.
type Deps struct {
	DB        *database.Client
	Registry  *registry.Registry
	Campaigns *campaign.Service
	Purchases *scheduler.Service
	Demand    *demand.Reconciler
	Clock     campaign.Clock
}

func New(cfg *config.Config, deps Deps) *Server {
	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode) // Set to Release for production
	}

	s := &Server{
		cfg:    cfg,
		router: gin.Default(),
	}

	s.setupMiddleware()
	s.setupRoutes(deps)

	return s
}

func (s *Server) setupMiddleware() {
	// CORS Configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}

	s.router.Use(cors.New(corsConfig))
}

func (s *Server) setupRoutes(deps Deps) {
	// 1. Initialize Modular Handlers
	playlistHandler := handlers.NewPlaylistHandler(deps.Registry)
	campaignHandler := handlers.NewCampaignHandler(deps.Campaigns, deps.Clock)
	purchaseHandler := handlers.NewPurchaseHandler(deps.Purchases, deps.Demand, deps.Clock)
	statsHandler := handlers.NewStatsHandler(deps.DB.DB, deps.Clock)

	// Health Check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "promo-fulfillment"})
	})

	// API Group
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/stats", statsHandler.GetStats)

		// --- PLAYLIST REGISTRY
		v1.GET("/playlists", playlistHandler.GetPlaylists)
		v1.GET("/playlists/:id", playlistHandler.GetPlaylist)
		v1.POST("/playlists/:id/refresh", playlistHandler.RefreshPlaylist)
		v1.DELETE("/playlists/:id", playlistHandler.DeletePlaylist)

		// --- CAMPAIGN LIFECYCLE
		v1.GET("/campaigns", campaignHandler.GetCampaigns)
		v1.GET("/campaigns/:id", campaignHandler.GetCampaign)
		v1.POST("/campaigns", campaignHandler.CreateCampaign)
		v1.POST("/campaigns/:id/confirm-direct", campaignHandler.ConfirmDirectStreams)
		v1.POST("/campaigns/:id/confirm-playlists", campaignHandler.ConfirmPlaylistsAdded)
		v1.POST("/campaigns/:id/mark-removed", campaignHandler.MarkRemoved)
		v1.PUT("/campaigns/:id/genre", campaignHandler.UpdateGenre)
		v1.PUT("/campaigns/:id/slots/:index", campaignHandler.ReassignSlot)
		v1.PUT("/campaigns/:id/progress", campaignHandler.RecordProgress)

		// --- STREAM PURCHASES & DEMAND QUEUE
		v1.POST("/purchases", purchaseHandler.RecordPurchase)
		v1.GET("/purchases/playlist/:playlistId", purchaseHandler.GetPurchases)
		v1.GET("/purchases/queue", purchaseHandler.GetQueue)
		v1.POST("/purchases/queue/:playlistId/ack", purchaseHandler.AckQueueEntry)
	}
}

// Start runs the server on the configured port
func (s *Server) Start(addr string) error {
	return s.router.Run(addr)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
