package realtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/metrics"
)

var (
	ErrPublishFailure = errors.New("publish failed")
	ErrInvalidTopic   = errors.New("invalid topic")
)

type PublishResult struct {
	Delivered int
	Dropped   int
}

// Broker tracks topic membership and fans events out to connections.
// Membership changes and publishes may run concurrently.
type Broker struct {
	mu          sync.RWMutex
	topics      map[string]map[string]Connection
	memberships map[string]map[string]struct{}

	logger  *logging.Logger
	metrics *metrics.Pipeline
	now     func() time.Time
}

type BrokerOption func(*Broker)

func WithLogger(logger *logging.Logger) BrokerOption {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Pipeline) BrokerOption {
	return func(b *Broker) {
		b.metrics = m
	}
}

func WithClock(now func() time.Time) BrokerOption {
	return func(b *Broker) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		topics:      make(map[string]map[string]Connection),
		memberships: make(map[string]map[string]struct{}),
		logger:      logging.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Join is idempotent.
func (b *Broker) Join(conn Connection, topic string) error {
	if conn == nil {
		return fmt.Errorf("%w: nil connection", ErrInvalidTopic)
	}
	if !ValidTopic(topic) {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.topics[topic]
	if !ok {
		members = make(map[string]Connection)
		b.topics[topic] = members
	}
	members[conn.ID()] = conn

	joined, ok := b.memberships[conn.ID()]
	if !ok {
		joined = make(map[string]struct{})
		b.memberships[conn.ID()] = joined
	}
	joined[topic] = struct{}{}
	return nil
}

// Leave is idempotent; leaving a topic never joined is a no-op.
func (b *Broker) Leave(conn Connection, topic string) {
	if conn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(conn.ID(), topic)
}

// Disconnect removes the connection from every topic it joined.
func (b *Broker) Disconnect(conn Connection) {
	if conn == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnectLocked(conn.ID())
}

// Publish delivers the event once to every current member of topic. Sends
// never block: a member whose buffer is full is removed from the topic and a
// closed member is disconnected entirely.
func (b *Broker) Publish(ctx context.Context, topic string, event Event) (PublishResult, error) {
	if !ValidTopic(topic) {
		return PublishResult{}, fmt.Errorf("%w: %w: %q", ErrPublishFailure, ErrInvalidTopic, topic)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now().UTC()
	}

	payload, err := sonic.Marshal(event)
	if err != nil {
		return PublishResult{}, fmt.Errorf("%w: encode %s event: %w", ErrPublishFailure, event.Kind, err)
	}

	b.mu.RLock()
	members := make([]Connection, 0, len(b.topics[topic]))
	for _, conn := range b.topics[topic] {
		members = append(members, conn)
	}
	b.mu.RUnlock()

	var (
		result PublishResult
		full   []string
		closed []string
	)
	for _, conn := range members {
		switch err := conn.Send(payload); {
		case err == nil:
			result.Delivered++
		case errors.Is(err, ErrConnectionClosed):
			result.Dropped++
			closed = append(closed, conn.ID())
		default:
			result.Dropped++
			full = append(full, conn.ID())
		}
	}

	if len(full) > 0 || len(closed) > 0 {
		b.mu.Lock()
		for _, id := range full {
			b.removeLocked(id, topic)
		}
		for _, id := range closed {
			b.disconnectLocked(id)
		}
		b.mu.Unlock()

		b.logger.WarnContext(ctx, "dropped subscribers during publish",
			"topic", topic,
			"event", string(event.Kind),
			"slow", len(full),
			"closed", len(closed),
		)
	}

	b.metrics.FanOut(result.Delivered, result.Dropped)
	return result, nil
}

// Members returns the number of connections currently in topic.
func (b *Broker) Members(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Topics lists the topics a connection belongs to, sorted.
func (b *Broker) Topics(conn Connection) []string {
	if conn == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	joined := b.memberships[conn.ID()]
	out := make([]string, 0, len(joined))
	for topic := range joined {
		out = append(out, topic)
	}
	sort.Strings(out)
	return out
}

func (b *Broker) removeLocked(connID, topic string) {
	if members, ok := b.topics[topic]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(b.topics, topic)
		}
	}
	if joined, ok := b.memberships[connID]; ok {
		delete(joined, topic)
		if len(joined) == 0 {
			delete(b.memberships, connID)
		}
	}
}

func (b *Broker) disconnectLocked(connID string) {
	for topic := range b.memberships[connID] {
		if members, ok := b.topics[topic]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(b.topics, topic)
			}
		}
	}
	delete(b.memberships, connID)
}
