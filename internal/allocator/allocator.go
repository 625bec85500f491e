package allocator

import (
	"log"
	"sort"

	"github.com/itspokchop93/fasho-landing-sub004/internal/models"
)

// PlaylistSource is the slice of the registry the allocator needs.
type PlaylistSource interface {
	ListActive() ([]models.Playlist, error)
}

// Allocator picks playlist slots for a campaign. Greedy and best-effort:
// least-full playlists first, exact genre before backfill, advisory
// capacity checks only. Same snapshot in, same assignment out.
type Allocator struct {
	source PlaylistSource
}

func New(source PlaylistSource) *Allocator {
	return &Allocator{source: source}
}

// Allocate returns exactly slotsNeeded bindings. Slots that could not be
// filled stay at the empty sentinel. A failed playlist fetch degrades to an
// all-empty assignment rather than aborting campaign creation.
func (a *Allocator) Allocate(genre string, slotsNeeded int) []models.SlotBinding {
	slots := make([]models.SlotBinding, slotsNeeded)
	for i := range slots {
		slots[i] = models.SlotEmpty
	}
	if slotsNeeded <= 0 {
		return slots
	}

	playlists, err := a.source.ListActive()
	if err != nil {
		log.Printf("⚠️ Allocation degraded, playlist fetch failed: %v", err)
		return slots
	}

	// Least-full first; ties broken by id for determinism.
	sort.Slice(playlists, func(i, j int) bool {
		if playlists[i].CachedSongCount != playlists[j].CachedSongCount {
			return playlists[i].CachedSongCount < playlists[j].CachedSongCount
		}
		return playlists[i].ID < playlists[j].ID
	})

	taken := make(map[uint]bool)
	filled := 0

	place := func(p models.Playlist) {
		slots[filled] = models.PlaylistBinding(p.ID)
		taken[p.ID] = true
		filled++
		if p.CachedSongCount+1 >= p.MaxSongs {
			// Advisory only; the snapshot may already be stale.
			log.Printf("⚠️ Playlist %d (%s) placed at capacity boundary (%d/%d)",
				p.ID, p.Name, p.CachedSongCount+1, p.MaxSongs)
		}
	}

	// Pass 1: exact genre matches with remaining capacity.
	for _, p := range playlists {
		if filled == slotsNeeded {
			break
		}
		if p.Genre == genre && p.HasCapacity() {
			place(p)
		}
	}

	// Pass 2: backfill from any genre, same order, skipping picks.
	for _, p := range playlists {
		if filled == slotsNeeded {
			break
		}
		if !taken[p.ID] && p.HasCapacity() {
			place(p)
		}
	}

	if filled < slotsNeeded {
		log.Printf("⚠️ Allocation short: %d/%d slots filled for genre %q", filled, slotsNeeded, genre)
	}

	return slots
}
