package events

import (
	"log/slog"
	"sync"

	"github.com/nugget/serial-keel/internal/broadcast"
)

// DefaultCapacity is the default bound on how many events the Log retains.
const DefaultCapacity = 1000

// timeNowFunc is overridable in tests.
var timeNowFunc = timeNow

// Log is a bounded, broadcastable event log. Newest entries are pushed to
// the front; once capacity is exceeded the oldest entries are dropped.
// Publication is lossy for slow subscribers — a full subscriber buffer
// drops that event for that subscriber rather than blocking the
// publisher, per spec.
type Log struct {
	mu       sync.Mutex
	capacity int
	entries  []TimestampedEvent // entries[0] is newest

	bus *broadcast.Broadcaster[TimestampedEvent]
	log *slog.Logger
}

// NewLog creates a Log with the given capacity (DefaultCapacity if <= 0).
func NewLog(capacity int, log *slog.Logger) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if log == nil {
		log = slog.Default()
	}
	return &Log{
		capacity: capacity,
		bus:      broadcast.New[TimestampedEvent](),
		log:      log,
	}
}

// Push records e at the current time, truncates the log to capacity, and
// broadcasts it to all subscribers.
func (l *Log) Push(e Event) TimestampedEvent {
	te := TimestampedEvent{Event: e, Timestamp: timeNowFunc()}

	l.mu.Lock()
	l.entries = append([]TimestampedEvent{te}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	l.mu.Unlock()

	l.log.Info("event emitted", "event", e.String())
	if _, dropped := l.bus.Publish(te); dropped > 0 {
		l.log.Warn("event bus dropped delivery for slow subscriber(s)", "dropped", dropped)
	}
	return te
}

// Subscribe returns a channel of events emitted after this call.
func (l *Log) Subscribe() <-chan TimestampedEvent {
	return l.bus.Subscribe(1024)
}

// Unsubscribe releases a channel obtained from Subscribe.
func (l *Log) Unsubscribe(ch <-chan TimestampedEvent) {
	l.bus.Unsubscribe(ch)
}

// Entries returns a snapshot of the retained log, newest first.
func (l *Log) Entries() []TimestampedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TimestampedEvent, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the current number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
