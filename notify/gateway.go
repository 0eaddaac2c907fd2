package notify

import (
	"context"
	"sync"
	"time"

	"github.com/asakura-games/guildserver/cache"
	"go.uber.org/zap"
)

// Channel is the pub/sub channel guild events are published on.
const Channel = "guild:events"

// Gateway delivers guild events to whoever is listening. Delivery is
// fire-and-forget: a failed publish is logged and never rolls back the
// guild mutation that produced the event.
type Gateway interface {
	Notify(ctx context.Context, ev Event)
}

// Dispatcher publishes events as JSON on a pub/sub channel and mirrors
// them into the persistent journal.
type Dispatcher struct {
	ps      cache.PubSub
	journal *Journal
	logger  *zap.Logger
}

// NewDispatcher creates a Dispatcher. journal may be nil to skip
// persistence.
func NewDispatcher(ps cache.PubSub, journal *Journal, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{ps: ps, journal: journal, logger: logger}
}

func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := ev.Encode()
	if err != nil {
		d.logger.Error("encode guild event", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}
	if err := d.ps.Publish(ctx, Channel, string(data)); err != nil {
		d.logger.Warn("publish guild event",
			zap.String("type", string(ev.Type)),
			zap.String("guild_id", ev.GuildID),
			zap.Error(err))
	}
	if d.journal != nil {
		d.journal.Record(ev)
	}
}

// Nop is a Gateway that drops every event. Used in tests and tooling.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// Recorder is a Gateway that captures events in memory for assertions.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a snapshot of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByType returns the recorded events of one type, in order.
func (r *Recorder) ByType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
