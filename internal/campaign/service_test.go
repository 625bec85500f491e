package campaign

import (
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/itspokchop93/fasho-landing-sub004/internal/allocator"
	"github.com/itspokchop93/fasho-landing-sub004/internal/demand"
	"github.com/itspokchop93/fasho-landing-sub004/internal/events"
	"github.com/itspokchop93/fasho-landing-sub004/internal/models"
	"github.com/itspokchop93/fasho-landing-sub004/internal/scheduler"
)

// playlistSource reads playlists straight from the test DB
type playlistSource struct {
	db *gorm.DB
}

func (s *playlistSource) ListActive() ([]models.Playlist, error) {
	var playlists []models.Playlist
	err := s.db.Where("is_active = ?", true).Find(&playlists).Error
	return playlists, err
}

// Helper to create a disposable in-memory DB with the full schema
func setupCampaignDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Playlist{}, &models.Campaign{}, &models.CampaignSlot{},
		&models.PlaylistDemand{}, &models.SlotRecord{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, now time.Time) (*Service, *demand.Reconciler, *gorm.DB) {
	db := setupCampaignDB(t)
	clock := scheduler.MockClock{MockTime: now}
	bus := events.NewBus()
	reconciler := demand.New(db, bus, clock)
	alloc := allocator.New(&playlistSource{db: db})
	svc := NewService(db, alloc, reconciler, bus, clock, Options{
		RemovalWindowDays: 30,
		DefaultSlotCount:  2,
		ExcludedPrefixes:  []string{"LEGACY-"},
	})
	return svc, reconciler, db
}

func seedPlaylists(db *gorm.DB) {
	db.Create(&models.Playlist{Name: "Pop One", Genre: "Pop", MaxSongs: 10, CachedSongCount: 2, IsActive: true})
	db.Create(&models.Playlist{Name: "Pop Two", Genre: "Pop", MaxSongs: 10, CachedSongCount: 5, IsActive: true})
	db.Create(&models.Playlist{Name: "Rock One", Genre: "Rock", MaxSongs: 10, CachedSongCount: 0, IsActive: true})
}

var testNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCreateAllocatesSlots(t *testing.T) {
	svc, _, db := newTestService(t, testNow)
	seedPlaylists(db)

	c, err := svc.Create(Order{OrderRef: "ORD-1", SongName: "Test Song", Genre: "Pop", SlotCount: 2})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	bindings := c.Bindings()
	// Least-full Pop playlist first, then the fuller one
	if got, _ := bindings[0].PlaylistID(); got != 1 {
		t.Errorf("slot 0 bound to playlist %d, want 1", got)
	}
	if got, _ := bindings[1].PlaylistID(); got != 2 {
		t.Errorf("slot 1 bound to playlist %d, want 2", got)
	}
	if c.StatusAt(testNow) != models.StatusActionNeeded {
		t.Errorf("fresh campaign status = %s, want action_needed", c.StatusAt(testNow))
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t, testNow)

	_, err := svc.Create(Order{SongName: "No Ref"})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("missing order ref: err = %v, want ErrValidation", err)
	}

	_, err = svc.Create(Order{OrderRef: "ORD-1", SongName: "Bad", DirectStreamsTarget: -1})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("negative target: err = %v, want ErrValidation", err)
	}
}

func TestConfirmPlaylistsAddedFeedsDemand(t *testing.T) {
	svc, rec, db := newTestService(t, testNow)
	seedPlaylists(db)

	c, _ := svc.Create(Order{OrderRef: "ORD-1", SongName: "Test Song", Genre: "Pop", SlotCount: 2})

	if err := svc.ConfirmPlaylistsAdded(c.ID); err != nil {
		t.Fatalf("ConfirmPlaylistsAdded: %v", err)
	}

	for _, id := range []uint{1, 2} {
		if got, _ := rec.SongsAdded(id); got != 1 {
			t.Errorf("playlist %d songs_added = %d, want 1", id, got)
		}
	}

	// Removal date derives from the confirmation instant
	c, _ = svc.Get(c.ID)
	wantRemoval := testNow.Add(30 * 24 * time.Hour)
	if c.RemovalAt == nil || !c.RemovalAt.Equal(wantRemoval) {
		t.Errorf("RemovalAt = %v, want %s", c.RemovalAt, wantRemoval)
	}

	// Double confirm never double-counts
	if err := svc.ConfirmPlaylistsAdded(c.ID); err != nil {
		t.Fatalf("second confirm: %v", err)
	}
	if got, _ := rec.SongsAdded(1); got != 1 {
		t.Errorf("after duplicate confirm songs_added = %d, want 1", got)
	}
}

func TestConfirmDirectStreamsIdempotent(t *testing.T) {
	svc, _, db := newTestService(t, testNow)
	seedPlaylists(db)

	c, _ := svc.Create(Order{OrderRef: "ORD-1", SongName: "Test Song", Genre: "Pop"})

	if err := svc.ConfirmDirectStreams(c.ID); err != nil {
		t.Fatalf("ConfirmDirectStreams: %v", err)
	}
	if err := svc.ConfirmDirectStreams(c.ID); err != nil {
		t.Fatalf("repeat confirm: %v", err)
	}

	c, _ = svc.Get(c.ID)
	if !c.DirectStreamsConfirmed {
		t.Errorf("DirectStreamsConfirmed = false, want true")
	}
}

func TestMarkRemovedCompletes(t *testing.T) {
	svc, _, db := newTestService(t, testNow)
	seedPlaylists(db)

	c, _ := svc.Create(Order{OrderRef: "ORD-1", SongName: "Test Song", Genre: "Pop"})

	if err := svc.MarkRemoved(c.ID); err != nil {
		t.Fatalf("MarkRemoved: %v", err)
	}

	c, _ = svc.Get(c.ID)
	if c.StatusAt(testNow) != models.StatusCompleted {
		t.Errorf("status = %s, want completed (terminal override)", c.StatusAt(testNow))
	}
}

func TestUpdateGenreUnconfirmedReallocates(t *testing.T) {
	svc, _, db := newTestService(t, testNow)
	seedPlaylists(db)

	c, _ := svc.Create(Order{OrderRef: "ORD-1", SongName: "Test Song", Genre: "Pop", SlotCount: 1})

	c, err := svc.UpdateGenre(c.ID, "Rock")
	if err != nil {
		t.Fatalf("UpdateGenre: %v", err)
	}

	if c.Genre != "Rock" {
		t.Errorf("Genre = %s, want Rock", c.Genre)
	}
	if got, _ := c.Bindings()[0].PlaylistID(); got != 3 {
		t.Errorf("slot 0 bound to playlist %d, want 3 (Rock One)", got)
	}
}

func TestUpdateGenreConfirmedKeepsBindings(t *testing.T) {
	svc, _, db := newTestService(t, testNow)
	seedPlaylists(db)

	c, _ := svc.Create(Order{OrderRef: "ORD-1", SongName: "Test Song", Genre: "Pop", SlotCount: 1})
	svc.ConfirmPlaylistsAdded(c.ID)

	c, err := svc.UpdateGenre(c.ID, "Rock")
	if err != nil {
		t.Fatalf("UpdateGenre: %v", err)
	}

	if c.Genre != "Rock" {
		t.Errorf("Genre = %s, want Rock", c.Genre)
	}
	// Confirmed campaigns keep their live bindings
	if got, _ := c.Bindings()[0].PlaylistID(); got != 1 {
		t.Errorf("slot 0 bound to playlist %d, want untouched binding 1", got)
	}
}

func TestReassignSlotSettlesDemand(t *testing.T) {
	svc, rec, db := newTestService(t, testNow)
	seedPlaylists(db)

	c, _ := svc.Create(Order{OrderRef: "ORD-1", SongName: "Test Song", Genre: "Pop", SlotCount: 2})
	svc.ConfirmPlaylistsAdded(c.ID)

	c, err := svc.ReassignSlot(c.ID, 0, models.SlotRemoved)
	if err != nil {
		t.Fatalf("ReassignSlot: %v", err)
	}

	if c.Bindings()[0] != models.SlotRemoved {
		t.Errorf("slot 0 = %q, want removed sentinel", c.Bindings()[0])
	}
	if got, _ := rec.SongsAdded(1); got != 0 {
		t.Errorf("old playlist songs_added = %d, want 0", got)
	}
	if got, _ := rec.SongsAdded(2); got != 1 {
		t.Errorf("untouched playlist songs_added = %d, want 1", got)
	}
}

func TestReassignSlotUnconfirmedLeavesAggregateAlone(t *testing.T) {
	svc, rec, db := newTestService(t, testNow)
	seedPlaylists(db)

	c, _ := svc.Create(Order{OrderRef: "ORD-1", SongName: "Test Song", Genre: "Pop", SlotCount: 2})

	// Not confirmed yet: the edit lands on the campaign but not the aggregate
	c, err := svc.ReassignSlot(c.ID, 0, models.PlaylistBinding(3))
	if err != nil {
		t.Fatalf("ReassignSlot: %v", err)
	}
	if got, _ := c.Bindings()[0].PlaylistID(); got != 3 {
		t.Errorf("slot 0 bound to %d, want 3", got)
	}
	if got, _ := rec.SongsAdded(3); got != 0 {
		t.Errorf("unconfirmed edit credited playlist 3: songs_added = %d, want 0", got)
	}
}

func TestReassignSlotValidation(t *testing.T) {
	svc, _, db := newTestService(t, testNow)
	seedPlaylists(db)

	c, _ := svc.Create(Order{OrderRef: "ORD-1", SongName: "Test Song", Genre: "Pop", SlotCount: 2})

	if _, err := svc.ReassignSlot(c.ID, 5, models.SlotRemoved); !errors.Is(err, models.ErrValidation) {
		t.Errorf("out-of-range index err = %v, want ErrValidation", err)
	}
	if _, err := svc.ReassignSlot(c.ID, 0, models.PlaylistBinding(99)); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown playlist err = %v, want ErrNotFound", err)
	}
}

func TestListFilters(t *testing.T) {
	svc, _, db := newTestService(t, testNow)
	seedPlaylists(db)

	svc.Create(Order{OrderRef: "ORD-1", SongName: "Summer Nights", Genre: "Pop"})
	svc.Create(Order{OrderRef: "ORD-2", SongName: "Winter Days", Genre: "Pop"})
	svc.Create(Order{OrderRef: "LEGACY-9", SongName: "Old Import", Genre: "Pop"})

	all, err := svc.List(Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List = %d campaigns, want 2 (legacy prefix excluded)", len(all))
	}

	found, _ := svc.List(Filter{Search: "summer"})
	if len(found) != 1 || found[0].SongName != "Summer Nights" {
		t.Errorf("search = %v, want just Summer Nights", found)
	}

	needsAction, _ := svc.List(Filter{Status: models.StatusActionNeeded})
	if len(needsAction) != 2 {
		t.Errorf("status filter = %d campaigns, want 2", len(needsAction))
	}
	running, _ := svc.List(Filter{Status: models.StatusRunning})
	if len(running) != 0 {
		t.Errorf("running = %d campaigns, want 0", len(running))
	}
}

func TestRecordProgressMonotonicClamped(t *testing.T) {
	svc, _, db := newTestService(t, testNow)
	seedPlaylists(db)

	c, _ := svc.Create(Order{
		OrderRef: "ORD-1", SongName: "Test Song", Genre: "Pop",
		DirectStreamsTarget: 1000, PlaylistStreamsTarget: 5000,
	})

	c, err := svc.RecordProgress(c.ID, 400, 0)
	if err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}
	if c.DirectStreamsProgress != 400 {
		t.Errorf("DirectStreamsProgress = %d, want 400", c.DirectStreamsProgress)
	}

	// Lower values are ignored, higher values clamp to target
	c, _ = svc.RecordProgress(c.ID, 100, 9999)
	if c.DirectStreamsProgress != 400 {
		t.Errorf("progress went backwards: %d, want 400", c.DirectStreamsProgress)
	}
	if c.PlaylistStreamsProgress != 5000 {
		t.Errorf("PlaylistStreamsProgress = %d, want clamped 5000", c.PlaylistStreamsProgress)
	}
}
