package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// NATSBus implements EventBus using NATS.
// Used as the Pro tier event bus.
type NATSBus struct {
	mu            sync.Mutex
	conn          *nats.Conn
	subscriptions map[string]*natsSubscription
}

type natsSubscription struct {
	id    string
	topic string
	sub   *nats.Subscription
	bus   *NATSBus
}

// NewNATSBus connects to NATS, retrying up to NATSMaxReconnects times.
func NewNATSBus(cfg domain.EventBusConfig) (*NATSBus, error) {
	if cfg.NATSUrl == "" {
		cfg.NATSUrl = nats.DefaultURL
	}
	if cfg.NATSMaxReconnects == 0 {
		cfg.NATSMaxReconnects = 10
	}
	if cfg.NATSReconnectWait == 0 {
		cfg.NATSReconnectWait = 5
	}
	wait := time.Duration(cfg.NATSReconnectWait) * time.Second

	opts := []nats.Option{
		nats.Name("pulse"),
		nats.MaxReconnects(cfg.NATSMaxReconnects),
		nats.ReconnectWait(wait),
		nats.ReconnectBufSize(8 * 1024 * 1024),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err, "will_reconnect", !nc.IsClosed())
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			slog.Info("NATS connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			slog.Error("NATS error", "error", err, "subject", subject)
		}),
	}
	if cfg.NATSToken != "" {
		opts = append(opts, nats.Token(cfg.NATSToken))
	}

	var conn *nats.Conn
	var err error
	for i := 0; i < cfg.NATSMaxReconnects; i++ {
		conn, err = nats.Connect(cfg.NATSUrl, opts...)
		if err == nil {
			break
		}
		slog.Warn("NATS connection attempt failed",
			"attempt", i+1,
			"max_attempts", cfg.NATSMaxReconnects,
			"error", err,
		)
		time.Sleep(wait)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS after %d attempts: %w", cfg.NATSMaxReconnects, err)
	}

	slog.Info("NATS connected", "url", conn.ConnectedUrl(), "server_id", conn.ConnectedServerId())

	return &NATSBus{
		conn:          conn,
		subscriptions: make(map[string]*natsSubscription),
	}, nil
}

// Publish sends a JSON message envelope to the institution's subject.
func (b *NATSBus) Publish(ctx context.Context, institutionID string, topic string, payload []byte) error {
	if institutionID == "" || institutionID == domain.AnyInstitution {
		return ErrInstitutionRequired
	}

	data, err := json.Marshal(&domain.Message{
		ID:            uuid.New().String(),
		InstitutionID: institutionID,
		Topic:         topic,
		Payload:       payload,
		Metadata:      make(map[string]string),
		Timestamp:     time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return b.conn.Publish(subject(institutionID, topic), data)
}

// Subscribe registers a handler for a topic. domain.AnyInstitution maps to
// a NATS single-token wildcard.
func (b *NATSBus) Subscribe(ctx context.Context, institutionID string, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	if institutionID == "" {
		return nil, ErrInstitutionRequired
	}

	natsSub, err := b.conn.Subscribe(subject(institutionID, topic), func(m *nats.Msg) {
		var msg domain.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			slog.Error("failed to unmarshal NATS message", "subject", m.Subject, "error", err)
			return
		}
		if err := handler(ctx, &msg); err != nil {
			slog.Error("handler error", "subject", m.Subject, "message_id", msg.ID, "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	sub := &natsSubscription{
		id:    uuid.New().String(),
		topic: topic,
		sub:   natsSub,
		bus:   b,
	}

	b.mu.Lock()
	b.subscriptions[sub.id] = sub
	b.mu.Unlock()

	return sub, nil
}

// Ping checks NATS connectivity.
func (b *NATSBus) Ping(ctx context.Context) error {
	if !b.conn.IsConnected() {
		return fmt.Errorf("NATS not connected")
	}
	return b.conn.FlushWithContext(ctx)
}

// Close drains subscriptions and closes the connection.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	for _, sub := range b.subscriptions {
		_ = sub.sub.Unsubscribe()
	}
	b.subscriptions = make(map[string]*natsSubscription)
	b.mu.Unlock()

	b.conn.Close()
	return nil
}

// Stats returns NATS connection statistics.
func (b *NATSBus) Stats() nats.Statistics {
	return b.conn.Stats()
}

// subject builds "pulse.<institution>.<topic>". Dots in the institution id
// would split the token, so they are replaced.
func subject(institutionID, topic string) string {
	token := institutionID
	if token != domain.AnyInstitution {
		token = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(token)
	}
	return fmt.Sprintf("pulse.%s.%s", token, topic)
}

// Unsubscribe removes the subscription.
func (s *natsSubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	delete(s.bus.subscriptions, s.id)
	s.bus.mu.Unlock()
	return s.sub.Unsubscribe()
}

// Topic returns the subscribed topic.
func (s *natsSubscription) Topic() string {
	return s.topic
}
