package services

import (
	"log"
	"sync"

	"github.com/orbitapp/backend/internal/domain/events"
)

// EventHandler consumes one domain event. Handlers must be fast; slow work
// belongs in the handler's own goroutine.
type EventHandler func(eventType events.EventType, payload events.Payload)

// EventBus is the in-process pub/sub fabric between the outbox poller and the
// services that react to domain events.
type EventBus struct {
	handlers map[events.EventType][]EventHandler
	wildcard []EventHandler
	mu       sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[events.EventType][]EventHandler),
	}
}

// Subscribe registers a handler for one event type.
func (b *EventBus) Subscribe(eventType events.EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers a handler for every event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wildcard = append(b.wildcard, handler)
}

// Publish delivers an event to all matching handlers synchronously. A
// panicking handler is contained so one bad subscriber cannot take down the
// poller.
func (b *EventBus) Publish(eventType events.EventType, payload events.Payload) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.handlers[eventType])+len(b.wildcard))
	handlers = append(handlers, b.handlers[eventType]...)
	handlers = append(handlers, b.wildcard...)
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("⚠️ Event handler panicked on %s: %v", eventType, r)
				}
			}()
			h(eventType, payload)
		}()
	}
}
