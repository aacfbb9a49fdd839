package bus

import (
	"sync"
	"time"
)

// HubConfig holds configuration for the notification hub.
type HubConfig struct {
	// SubscriberBufferSize is the size of each subscriber's channel buffer.
	SubscriberBufferSize int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{SubscriberBufferSize: 16}
}

// Hub fans protocol notifications out to subscribers. Sends are
// non-blocking so a stalled presentation surface cannot back-pressure
// the core.
type Hub struct {
	config HubConfig
	mu     sync.RWMutex
	subs   []*Subscriber

	// Metrics
	published uint64
	dropped   uint64
}

// Subscriber is one notification consumer with metadata.
type Subscriber struct {
	Channel      chan Notification
	DroppedCount int
	CreatedAt    time.Time
}

// NewHub creates a new notification hub with default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates a new notification hub with custom configuration.
func NewHubWithConfig(config HubConfig) *Hub {
	return &Hub{config: config}
}

// Subscribe adds a subscriber and returns its channel.
func (h *Hub) Subscribe() <-chan Notification {
	sub := &Subscriber{
		Channel:   make(chan Notification, h.config.SubscriberBufferSize),
		CreatedAt: time.Now(),
	}
	h.mu.Lock()
	h.subs = append(h.subs, sub)
	h.mu.Unlock()
	return sub.Channel
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(ch <-chan Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, sub := range h.subs {
		if sub.Channel == ch {
			close(sub.Channel)
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			break
		}
	}
}

// Publish sends a notification to all subscribers. Slow consumers are
// skipped, not waited on.
func (h *Hub) Publish(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.published++
	for _, sub := range h.subs {
		select {
		case sub.Channel <- n:
		default:
			sub.DroppedCount++
			h.dropped++
		}
	}
}

// Close closes all subscriber channels.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		close(sub.Channel)
	}
	h.subs = nil
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Metrics returns published/dropped counters.
func (h *Hub) Metrics() (published, dropped uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.published, h.dropped
}
