package registry

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/itspokchop93/fasho-landing-sub004/internal/catalog"
	"github.com/itspokchop93/fasho-landing-sub004/internal/models"
)

// fakeCatalog stands in for the external lookup service
type fakeCatalog struct {
	info *catalog.PlaylistInfo
	err  error
}

func (f *fakeCatalog) LookupPlaylist(ctx context.Context, externalID string) (*catalog.PlaylistInfo, error) {
	return f.info, f.err
}

// Helper to create a disposable in-memory DB
func setupRegistryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Playlist{}, &models.Campaign{}, &models.CampaignSlot{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestGetPlaylistNotFound(t *testing.T) {
	reg := New(setupRegistryDB(t), &fakeCatalog{})

	_, err := reg.GetPlaylist(42)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListActiveSkipsInactive(t *testing.T) {
	db := setupRegistryDB(t)
	db.Create(&models.Playlist{Name: "Live", IsActive: true, MaxSongs: 10})
	db.Create(&models.Playlist{Name: "Paused", IsActive: false, MaxSongs: 10})

	reg := New(db, &fakeCatalog{})
	active, err := reg.ListActive()
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Live" {
		t.Errorf("ListActive = %v, want just the active playlist", active)
	}
}

func TestRefreshOccupancy(t *testing.T) {
	db := setupRegistryDB(t)
	db.Create(&models.Playlist{
		Name: "Pop Hits", ExternalID: "ext-1", MaxSongs: 20,
		CachedSongCount: 5, IsActive: true, HealthStatus: models.HealthUnknown,
	})

	cat := &fakeCatalog{info: &catalog.PlaylistInfo{TrackCount: 17, Health: models.HealthActive}}
	reg := New(db, cat)

	if err := reg.RefreshOccupancy(context.Background(), 1); err != nil {
		t.Fatalf("RefreshOccupancy: %v", err)
	}

	p, _ := reg.GetPlaylist(1)
	if p.CachedSongCount != 17 {
		t.Errorf("CachedSongCount = %d, want 17", p.CachedSongCount)
	}
	if p.HealthStatus != models.HealthActive {
		t.Errorf("HealthStatus = %s, want active", p.HealthStatus)
	}
}

func TestRefreshOccupancyDegradesOnFailure(t *testing.T) {
	db := setupRegistryDB(t)
	db.Create(&models.Playlist{
		Name: "Pop Hits", ExternalID: "ext-1", MaxSongs: 20,
		CachedSongCount: 5, IsActive: true, HealthStatus: models.HealthActive,
	})

	cat := &fakeCatalog{err: models.ErrUpstreamUnavailable}
	reg := New(db, cat)

	// Failure must not surface and must not wipe the cached count
	if err := reg.RefreshOccupancy(context.Background(), 1); err != nil {
		t.Fatalf("RefreshOccupancy returned error on catalog failure: %v", err)
	}

	p, _ := reg.GetPlaylist(1)
	if p.CachedSongCount != 5 {
		t.Errorf("CachedSongCount = %d, want prior value 5", p.CachedSongCount)
	}
	if p.HealthStatus != models.HealthError {
		t.Errorf("HealthStatus = %s, want error", p.HealthStatus)
	}
}

func TestDeleteRefusedWhileReferenced(t *testing.T) {
	db := setupRegistryDB(t)
	db.Create(&models.Playlist{Name: "Pop Hits", MaxSongs: 20, IsActive: true})

	// A live campaign holds a slot bound to the playlist
	c := models.Campaign{
		OrderRef: "ORD-1", SongName: "Test Song", SlotCount: 1,
		Slots: []models.CampaignSlot{{Index: 0, Binding: models.PlaylistBinding(1)}},
	}
	db.Create(&c)

	reg := New(db, &fakeCatalog{})

	err := reg.Delete(1)
	if !errors.Is(err, models.ErrConflictInUse) {
		t.Fatalf("Delete err = %v, want ErrConflictInUse", err)
	}

	// Complete the campaign; deletion now goes through
	db.Model(&models.Campaign{}).Where("id = ?", c.ID).Update("removed_from_playlists", true)

	if err := reg.Delete(1); err != nil {
		t.Fatalf("Delete after completion: %v", err)
	}
	if _, err := reg.GetPlaylist(1); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("playlist still loadable after delete: %v", err)
	}
}

func TestDeleteIgnoresSentinelSlots(t *testing.T) {
	db := setupRegistryDB(t)
	db.Create(&models.Playlist{Name: "Pop Hits", MaxSongs: 20, IsActive: true})

	// Active campaign, but its slots only hold sentinels
	db.Create(&models.Campaign{
		OrderRef: "ORD-2", SongName: "Other Song", SlotCount: 2,
		Slots: []models.CampaignSlot{
			{Index: 0, Binding: models.SlotEmpty},
			{Index: 1, Binding: models.SlotRemoved},
		},
	})

	reg := New(db, &fakeCatalog{})
	if err := reg.Delete(1); err != nil {
		t.Errorf("Delete = %v, want success (no playlist-bound slots)", err)
	}
}
