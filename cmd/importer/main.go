package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/itspokchop93/fasho-landing-sub004/internal/allocator"
	"github.com/itspokchop93/fasho-landing-sub004/internal/campaign"
	"github.com/itspokchop93/fasho-landing-sub004/internal/catalog"
	"github.com/itspokchop93/fasho-landing-sub004/internal/config"
	database "github.com/itspokchop93/fasho-landing-sub004/internal/db"
	"github.com/itspokchop93/fasho-landing-sub004/internal/demand"
	"github.com/itspokchop93/fasho-landing-sub004/internal/events"
	"github.com/itspokchop93/fasho-landing-sub004/internal/importer"
	"github.com/itspokchop93/fasho-landing-sub004/internal/registry"
	"github.com/itspokchop93/fasho-landing-sub004/internal/scheduler"
	"github.com/itspokchop93/fasho-landing-sub004/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Order Import Worker...")

	// 1. Setup Configuration
	cfg := config.Load()

	// 2. Initialize Infrastructure
	store := storage.New(cfg)
	db := database.New(cfg)
	db.AutoMigrate()

	clock := scheduler.RealClock{}
	bus := events.NewBus()

	cat := catalog.New(cfg)
	reg := registry.New(db.DB, cat)
	alloc := allocator.New(reg)
	reconciler := demand.New(db.DB, bus, clock)
	campaigns := campaign.NewService(db.DB, alloc, reconciler, bus, clock, campaign.Options{
		RemovalWindowDays: cfg.Campaigns.RemovalWindowDays,
		DefaultSlotCount:  cfg.Campaigns.DefaultSlotCount,
		ExcludedPrefixes:  cfg.Campaigns.ExcludedPrefixes,
	})

	// 3. Setup Metrics
	importer.RegisterMetrics()
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Printf("📊 Metrics exposed at http://localhost%s/metrics", cfg.Server.MetricsPort)
		log.Fatal(http.ListenAndServe(cfg.Server.MetricsPort, nil))
	}()

	// 4. Start Worker
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := importer.New(cfg, store, campaigns)
	worker.Run(ctx)
}
