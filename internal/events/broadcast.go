package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Broadcaster relays every bus event onto a Redis channel so passive display
// surfaces (dashboards, queue counters) can refresh without polling.
// Failures are logged and dropped: the broadcast is best-effort by contract.
type Broadcaster struct {
	rdb     *redis.Client
	channel string
}

func NewBroadcaster(addr, channel string) *Broadcaster {
	return &Broadcaster{
		rdb:     redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
	}
}

// Attach subscribes the broadcaster to the bus.
func (br *Broadcaster) Attach(bus *Bus) {
	bus.Subscribe(br.relay)
}

func (br *Broadcaster) relay(e Event) {
	payload, err := json.Marshal(map[string]interface{}{
		"kind":  e.Kind(),
		"key":   e.Key(),
		"event": e,
	})
	if err != nil {
		log.Printf("⚠️ Broadcast marshal failed for %s: %v", e.Kind(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := br.rdb.Publish(ctx, br.channel, string(payload)).Err(); err != nil {
		log.Printf("⚠️ Broadcast publish failed for %s: %v", e.Kind(), err)
	}
}

// Close releases the Redis connection.
func (br *Broadcaster) Close() error {
	return br.rdb.Close()
}
