// Package bus provides event bus implementations for Pulse.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// ChannelBus implements EventBus using Go channels.
// Used as the Community tier event bus.
type ChannelBus struct {
	mu            sync.RWMutex
	bufferSize    int
	subscriptions map[string][]*channelSubscription
	closed        bool
	dropped       atomic.Uint64
}

type channelSubscription struct {
	id            string
	bus           *ChannelBus
	key           string
	topic         string
	handler       domain.MessageHandler
	msgCh         chan *domain.Message
	ctx           context.Context
	cancel        context.CancelFunc
	unsubscribeOnce sync.Once
}

// NewChannelBus creates a new channel-based event bus.
func NewChannelBus(bufferSize int) *ChannelBus {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &ChannelBus{
		bufferSize:    bufferSize,
		subscriptions: make(map[string][]*channelSubscription),
	}
}

// Publish delivers a message to subscribers of the institution and to
// AnyInstitution subscribers. Delivery is non-blocking: a subscriber whose
// buffer is full misses the message.
func (b *ChannelBus) Publish(ctx context.Context, institutionID string, topic string, payload []byte) error {
	if institutionID == "" || institutionID == domain.AnyInstitution {
		return ErrInstitutionRequired
	}

	msg := &domain.Message{
		ID:            uuid.New().String(),
		InstitutionID: institutionID,
		Topic:         topic,
		Payload:       payload,
		Metadata:      make(map[string]string),
		Timestamp:     time.Now().UnixNano(),
	}

	// Sends happen under the read lock so Close cannot close a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	for _, key := range []string{makeKey(institutionID, topic), makeKey(domain.AnyInstitution, topic)} {
		for _, sub := range b.subscriptions[key] {
			select {
			case sub.msgCh <- msg:
			default:
				b.dropped.Add(1)
				slog.Warn("subscriber buffer full, message dropped",
					"topic", topic,
					"subscription_id", sub.id,
				)
			}
		}
	}

	return nil
}

// Subscribe registers a handler for a topic. Use domain.AnyInstitution to
// receive the topic for every institution.
func (b *ChannelBus) Subscribe(ctx context.Context, institutionID string, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	if institutionID == "" {
		return nil, ErrInstitutionRequired
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &channelSubscription{
		id:      uuid.New().String(),
		bus:     b,
		key:     makeKey(institutionID, topic),
		topic:   topic,
		handler: handler,
		msgCh:   make(chan *domain.Message, b.bufferSize),
		ctx:     subCtx,
		cancel:  cancel,
	}

	go sub.run()

	b.subscriptions[sub.key] = append(b.subscriptions[sub.key], sub)
	return sub, nil
}

func (s *channelSubscription) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg, ok := <-s.msgCh:
			if !ok {
				return
			}
			if err := s.handler(s.ctx, msg); err != nil {
				slog.Error("handler error",
					"topic", msg.Topic,
					"message_id", msg.ID,
					"error", err,
				)
			}
		}
	}
}

// Ping checks bus health.
func (b *ChannelBus) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Close cancels every subscription. Further calls fail with ErrClosed.
func (b *ChannelBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.subscriptions {
		for _, sub := range subs {
			sub.cancel()
			close(sub.msgCh)
		}
	}
	b.subscriptions = make(map[string][]*channelSubscription)
	return nil
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (b *ChannelBus) Dropped() uint64 {
	return b.dropped.Load()
}

func makeKey(institutionID, topic string) string {
	return institutionID + ":" + topic
}

// Unsubscribe stops receiving messages.
func (s *channelSubscription) Unsubscribe() error {
	s.unsubscribeOnce.Do(func() {
		s.cancel()

		b := s.bus
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscriptions[s.key]
		for i, other := range subs {
			if other == s {
				b.subscriptions[s.key] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	})
	return nil
}

// Topic returns the subscribed topic.
func (s *channelSubscription) Topic() string {
	return s.topic
}
