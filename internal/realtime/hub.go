// Package realtime fans chat events out to live subscribers.
package realtime

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/observer"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

const defaultSubscriberBuffer = 64

// Delivery is one event addressed to one topic.
type Delivery struct {
	Topic string
	Event model.Event
}

// Subscriber is one live stream connection.
type Subscriber struct {
	ID       string
	topics   map[string]struct{}
	outbound chan Delivery
	done     chan struct{}
	once     sync.Once
}

// Deliveries yields events for the subscriber's topics.
func (s *Subscriber) Deliveries() <-chan Delivery {
	return s.outbound
}

// Done is closed when the hub drops the subscriber.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Hub keeps in-process topic subscriptions. Publishing never blocks: a subscriber whose
// buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	buffer int
	subs   map[string]map[*Subscriber]struct{}
	count  int
}

// NewHub creates a hub with the given per-subscriber buffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{buffer: buffer, subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe registers a subscriber on the given topics. Blank topics are ignored.
func (h *Hub) Subscribe(topics ...string) *Subscriber {
	s := &Subscriber{
		ID:       uuid.NewString(),
		topics:   make(map[string]struct{}, len(topics)),
		outbound: make(chan Delivery, h.buffer),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		s.topics[topic] = struct{}{}
		set, ok := h.subs[topic]
		if !ok {
			set = make(map[*Subscriber]struct{})
			h.subs[topic] = set
		}
		set[s] = struct{}{}
	}
	h.count++
	observer.SetStreamSubscribers(h.count)
	logger.Log.Debug("Stream subscriber added", zap.String("subscriber_id", s.ID), zap.Int("topics", len(s.topics)))
	return s
}

// Unsubscribe removes the subscriber from every topic. Safe to call more than once.
func (h *Hub) Unsubscribe(s *Subscriber) {
	s.once.Do(func() {
		h.mu.Lock()
		for topic := range s.topics {
			if set, ok := h.subs[topic]; ok {
				delete(set, s)
				if len(set) == 0 {
					delete(h.subs, topic)
				}
			}
		}
		h.count--
		observer.SetStreamSubscribers(h.count)
		h.mu.Unlock()
		close(s.done)
	})
}

// Name identifies the hub in broadcast metrics.
func (h *Hub) Name() string {
	return "hub"
}

// Publish queues the event for every subscriber of topic.
func (h *Hub) Publish(ctx context.Context, topic string, event model.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs[topic] {
		select {
		case s.outbound <- Delivery{Topic: topic, Event: event}:
		default:
			observer.IncStreamDropped()
			logger.FromContext(ctx).Warn("Dropping stream event; subscriber buffer full",
				zap.String("subscriber_id", s.ID), zap.String("topic", topic))
		}
	}
	return nil
}

// SubscriberCount returns the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
