package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apiserver "github.com/itspokchop93/fasho-landing-sub004/internal/api/server"
	"github.com/itspokchop93/fasho-landing-sub004/internal/allocator"
	"github.com/itspokchop93/fasho-landing-sub004/internal/campaign"
	"github.com/itspokchop93/fasho-landing-sub004/internal/catalog"
	"github.com/itspokchop93/fasho-landing-sub004/internal/config"
	database "github.com/itspokchop93/fasho-landing-sub004/internal/db"
	"github.com/itspokchop93/fasho-landing-sub004/internal/demand"
	"github.com/itspokchop93/fasho-landing-sub004/internal/events"
	"github.com/itspokchop93/fasho-landing-sub004/internal/registry"
	"github.com/itspokchop93/fasho-landing-sub004/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Fulfillment API Server...")

	// 1. Setup Configuration
	cfg := config.Load()

	// 2. Initialize Infrastructure
	db := database.New(cfg)
	db.AutoMigrate()

	clock := scheduler.RealClock{}
	bus := events.NewBus()

	if cfg.Redis.Enabled {
		broadcaster := events.NewBroadcaster(cfg.Redis.Addr, cfg.Redis.Channel)
		broadcaster.Attach(bus)
		defer broadcaster.Close()
		log.Printf("📡 Broadcasting events to Redis channel %q", cfg.Redis.Channel)
	}

	// 3. Wire Services
	cat := catalog.New(cfg)
	reg := registry.New(db.DB, cat)
	alloc := allocator.New(reg)
	reconciler := demand.New(db.DB, bus, clock)
	campaigns := campaign.NewService(db.DB, alloc, reconciler, bus, clock, campaign.Options{
		RemovalWindowDays: cfg.Campaigns.RemovalWindowDays,
		DefaultSlotCount:  cfg.Campaigns.DefaultSlotCount,
		ExcludedPrefixes:  cfg.Campaigns.ExcludedPrefixes,
	})
	purchases := scheduler.NewService(db.DB, clock)

	// 4. Setup Metrics
	go func() {
		http.Handle("/_metrics", promhttp.Handler())
		log.Printf("📊 Metrics exposed at http://localhost%s/_metrics", cfg.Server.MetricsPort)
		if err := http.ListenAndServe(cfg.Server.MetricsPort, nil); err != nil {
			log.Printf("⚠️ Metrics server error: %v", err)
		}
	}()

	// 5. Background Occupancy Refresh (staleness stays under a minute)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		interval := time.Duration(cfg.Server.RefreshInterval) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		reg.RefreshAll(ctx)
		for {
			select {
			case <-ctx.Done():
				log.Println("🛑 Occupancy refresh stopped")
				return
			case <-ticker.C:
				reg.RefreshAll(ctx)
			}
		}
	}()

	// 6. Start Server
	srv := apiserver.New(cfg, apiserver.Deps{
		DB:        db,
		Registry:  reg,
		Campaigns: campaigns,
		Purchases: purchases,
		Demand:    reconciler,
		Clock:     clock,
	})

	log.Printf("🚀 API Server starting on %s", cfg.Server.Port)
	if err := srv.Start(cfg.Server.Port); err != nil {
		log.Fatalf("❌ Server failed to start: %v", err)
	}
}
