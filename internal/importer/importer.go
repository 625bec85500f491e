package importer

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/itspokchop93/fasho-landing-sub004/internal/campaign"
	"github.com/itspokchop93/fasho-landing-sub004/internal/config"
	"github.com/itspokchop93/fasho-landing-sub004/internal/storage"
)

var (
	jobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_import_jobs_total",
			Help: "Total order files processed by the importer",
		},
		[]string{"status"},
	)
	orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_import_orders_total",
			Help: "Total orders turned into campaigns",
		},
		[]string{"status"},
	)
	duration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promo_import_duration_seconds",
			Help:    "Order file processing time",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(jobs, orders, duration)
}

// Worker polls the order-drop bucket and turns partner order exports into
// campaigns (allocation included). Files that fail stay in place for the
// next poll; processed files move under the processed prefix.
type Worker struct {
	cfg       *config.Config
	storage   *storage.Client
	campaigns *campaign.Service
}

func New(cfg *config.Config, store *storage.Client, campaigns *campaign.Service) *Worker {
	return &Worker{cfg: cfg, storage: store, campaigns: campaigns}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(w.cfg.Server.PollingInterval) * time.Second)
	defer ticker.Stop()

	log.Printf("Watcher started on '%s'...", w.cfg.Storage.BucketOrders)
	w.ProcessQueue()

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Importer stopped")
			return
		case <-ticker.C:
			w.ProcessQueue()
		}
	}
}

// ProcessQueue drains all pending order files once.
func (w *Worker) ProcessQueue() {
	keys, err := w.storage.ListOrderFiles()
	if err != nil {
		log.Printf("⚠️ Listing order files failed: %v", err)
		return
	}

	for _, key := range keys {
		start := time.Now()
		if err := w.processFile(key); err != nil {
			log.Printf("❌ Order file %s failed: %v", key, err)
			jobs.WithLabelValues("error").Inc()
			continue
		}
		jobs.WithLabelValues("success").Inc()
		duration.Observe(time.Since(start).Seconds())
	}
}

func (w *Worker) processFile(key string) error {
	data, err := w.storage.ReadOrderFile(key)
	if err != nil {
		return err
	}

	var batch []campaign.Order
	if err := json.Unmarshal(data, &batch); err != nil {
		return err
	}

	created := 0
	for _, order := range batch {
		if order.OrderRef == "" {
			// Partner exports occasionally omit the reference.
			order.OrderRef = "IMP-" + uuid.NewString()
		}
		if _, err := w.campaigns.Create(order); err != nil {
			log.Printf("⚠️ Skipping order %s: %v", order.OrderRef, err)
			orders.WithLabelValues("skipped").Inc()
			continue
		}
		orders.WithLabelValues("created").Inc()
		created++
	}

	log.Printf("📦 %s: %d/%d orders imported", key, created, len(batch))
	return w.storage.ArchiveOrderFile(key, data)
}
