// Package eventbus implements the broadcast fan-out described in
// §4.I: a single logical channel of bounded capacity, a bounded
// history ring, and per-subscriber lag reporting for slow consumers.
// Go has no single built-in analogue of Rust's tokio::sync::broadcast
// channel, so this is realized as a small subscriber registry handing
// out one buffered channel per subscriber; a full channel is treated
// as a lag event rather than a blocking send, preserving the "producer
// never blocks" discipline from §5.
package eventbus

import (
	"sync"

	"github.com/picogrid/convoy-tracker/pkg/domain"
)

// DefaultCapacity is the default per-subscriber channel buffer size.
const DefaultCapacity = 1024

// DefaultHistoryLimit is the default number of events retained in the
// best-effort, process-local history ring.
const DefaultHistoryLimit = 1000

// Receiver is a subscriber's read handle onto the bus. It owns only
// this channel; the bus owns the corresponding send side, so no
// ownership cycle exists between publisher and subscriber (§9).
type Receiver struct {
	events chan domain.Event
	lagged chan uint64
	done   chan struct{}
}

// Events returns the channel of delivered events.
func (r *Receiver) Events() <-chan domain.Event { return r.events }

// Lagged returns a channel that receives the count of events dropped
// before the subscriber could keep up, each time that happens.
func (r *Receiver) Lagged() <-chan uint64 { return r.lagged }

// Closed returns a channel that closes when the bus drops this
// subscriber (on Unsubscribe).
func (r *Receiver) Closed() <-chan struct{} { return r.done }

type subscriber struct {
	id     uint64
	events chan domain.Event
	lagged chan uint64
	done   chan struct{}
	missed uint64
}

// Bus is the broadcast fan-out hub. Publish and Subscribe are safe
// for concurrent use by many goroutines.
type Bus struct {
	mu           sync.Mutex
	subscribers  map[uint64]*subscriber
	nextID       uint64
	capacity     int
	history      []domain.Event
	historyLimit int
	eventCount   uint64
}

// New constructs a Bus with the given per-subscriber channel capacity
// and history ring size.
func New(capacity, historyLimit int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Bus{
		subscribers:  make(map[uint64]*subscriber),
		capacity:     capacity,
		historyLimit: historyLimit,
	}
}

// Subscribe registers a new Receiver. The caller must eventually call
// Unsubscribe to release it.
func (b *Bus) Subscribe() (*Receiver, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	sub := &subscriber{
		id:     id,
		events: make(chan domain.Event, b.capacity),
		lagged: make(chan uint64, 1),
		done:   make(chan struct{}),
	}
	b.subscribers[id] = sub

	return &Receiver{events: sub.events, lagged: sub.lagged, done: sub.done}, id
}

// Unsubscribe removes subscriber id and closes its channels.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscribers[id]
	if !ok {
		return
	}
	delete(b.subscribers, id)
	close(sub.done)
}

// Publish appends event to the history ring and attempts to deliver it
// to every subscriber without blocking. A subscriber whose channel is
// full observes a Lagged(n) signal on its next opportunity instead of
// the event itself — the producer never waits.
func (b *Bus) Publish(event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history = append(b.history, event)
	if len(b.history) > b.historyLimit {
		b.history = b.history[len(b.history)-b.historyLimit:]
	}
	b.eventCount++

	for _, sub := range b.subscribers {
		select {
		case sub.events <- event:
		default:
			sub.missed++
			select {
			case sub.lagged <- sub.missed:
				sub.missed = 0
			default:
			}
		}
	}
}

// PublishBatch publishes each event in order.
func (b *Bus) PublishBatch(events []domain.Event) {
	for _, e := range events {
		b.Publish(e)
	}
}

// GetRecent returns up to count of the most recently published events.
func (b *Bus) GetRecent(count int) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if count > len(b.history) {
		count = len(b.history)
	}
	out := make([]domain.Event, count)
	copy(out, b.history[len(b.history)-count:])
	return out
}

// EventCount returns the total number of events ever published.
func (b *Bus) EventCount() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eventCount
}

// SubscriberCount returns the number of currently registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// ClearHistory empties the history ring.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = nil
}
