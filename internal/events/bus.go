package events

import (
	"sync"

	"github.com/itspokchop93/fasho-landing-sub004/internal/models"
)

// Event is a state transition fanned out to passive observers.
// Key() identifies the entity the event belongs to; delivery is ordered
// per key because Publish dispatches synchronously under the bus lock.
type Event interface {
	Kind() string
	Key() uint
}

// PlaylistsAdded fires the instant a campaign's playlists-added confirmation
// flips true. Carries the slot bindings current at that moment. This is the
// sole trigger for demand reconciliation.
type PlaylistsAdded struct {
	CampaignID uint
	Slots      []models.SlotBinding
}

func (e PlaylistsAdded) Kind() string { return "playlists_added" }
func (e PlaylistsAdded) Key() uint    { return e.CampaignID }

// SlotReassigned fires after an operator edits a single slot binding.
type SlotReassigned struct {
	CampaignID uint
	Index      int
	Binding    models.SlotBinding
}

func (e SlotReassigned) Kind() string { return "slot_reassigned" }
func (e SlotReassigned) Key() uint    { return e.CampaignID }

// StatusChanged fires on confirmation and removal transitions.
type StatusChanged struct {
	CampaignID uint
	Status     models.CampaignStatus
}

func (e StatusChanged) Kind() string { return "status_changed" }
func (e StatusChanged) Key() uint    { return e.CampaignID }

// DemandChanged fires whenever a playlist's demand count moves.
type DemandChanged struct {
	PlaylistID uint
	SongsAdded int
}

func (e DemandChanged) Kind() string { return "demand_changed" }
func (e DemandChanged) Key() uint    { return e.PlaylistID }

// Handler consumes events. Handlers run inline on the publishing goroutine;
// a handler that must not block should hand off internally.
type Handler func(Event)

// Bus is a constructor-injected, in-process fan-out. Publish delivers to
// handlers in subscription order and returns only when all have run, so
// two publishes for the same key can never be observed out of order.
type Bus struct {
	mu       sync.Mutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish blocks until every handler has seen the event. Handlers must not
// call back into the bus.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, h := range b.handlers {
		h(e)
	}
}
