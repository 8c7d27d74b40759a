// Package events delivers IntentExecuted notifications to relayers and other
// observers. Emission never blocks the settlement path and never fails it.
package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/speedrun-hq/speedrun-settler/pkg/logger"
	"github.com/speedrun-hq/speedrun-settler/pkg/metrics"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
)

// DefaultBufferSize is the per-subscriber channel capacity
const DefaultBufferSize = 64

// Emitter publishes committed execution events
type Emitter interface {
	Emit(event models.IntentExecuted)
}

// Nop discards every event
type Nop struct{}

func (Nop) Emit(models.IntentExecuted) {}

type subscriber struct {
	name string
	ch   chan models.IntentExecuted
}

// Bus fans events out to subscribers. A subscriber whose buffer is full
// misses the event, which is counted in metrics.DroppedEvents.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	logger      logger.Logger
}

// NewBus creates an empty bus
func NewBus(log logger.Logger) *Bus {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Bus{
		subscribers: make(map[int]*subscriber),
		logger:      log,
	}
}

// Subscribe registers a named subscriber and returns its channel along with
// a function that unregisters it and closes the channel
func (b *Bus) Subscribe(name string, buffer int) (<-chan models.IntentExecuted, func()) {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscriber{name: name, ch: make(chan models.IntentExecuted, buffer)}
	b.subscribers[id] = sub

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subscribers, id)
			close(sub.ch)
		})
	}
	return sub.ch, unsubscribe
}

// Emit delivers event to every subscriber without blocking
func (b *Bus) Emit(event models.IntentExecuted) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		select {
		case sub.ch <- event:
		default:
			metrics.DroppedEvents.WithLabelValues(sub.name).Inc()
			b.logger.Error("Dropped IntentExecuted for intent %d: subscriber %s is full", event.IntentID, sub.name)
		}
	}
}

// SubscriberCount returns the number of registered subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// LogEmitter writes each event to the logger as JSON as soon as it is emitted
type LogEmitter struct {
	logger logger.Logger
}

// NewLogEmitter creates a synchronous emitter backed by log
func NewLogEmitter(log logger.Logger) *LogEmitter {
	return &LogEmitter{logger: log}
}

func (e *LogEmitter) Emit(event models.IntentExecuted) {
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.Error("Failed to encode IntentExecuted for intent %d: %v", event.IntentID, err)
		return
	}
	e.logger.Notice("IntentExecuted %s", payload)
}

// RunLogSubscriber forwards events from the bus to emitter until ctx is done
// or the subscription is closed
func RunLogSubscriber(ctx context.Context, events <-chan models.IntentExecuted, emitter Emitter) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			emitter.Emit(event)
		}
	}
}

// Recorder keeps every emitted event in memory
type Recorder struct {
	mu     sync.Mutex
	events []models.IntentExecuted
}

func (r *Recorder) Emit(event models.IntentExecuted) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []models.IntentExecuted {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]models.IntentExecuted, len(r.events))
	copy(events, r.events)
	return events
}
