package realtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
)

const defaultRelayChannel = "livebaz:realtime"

// relayEnvelope is the message format on the Redis channel.
type relayEnvelope struct {
	Topic string `json:"topic"`
	Event Event  `json:"event"`
}

type redisPubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisRelay lets several API replicas share one event stream. Publish sends
// the event to a Redis channel; Run receives from that channel and hands each
// event to the replica's local broker.
type RedisRelay struct {
	client  redisPubSub
	channel string
	local   *Broker
	logger  *logging.Logger
}

func NewRedisRelay(client redisPubSub, channel string, local *Broker, logger *logging.Logger) *RedisRelay {
	if logger == nil {
		logger = logging.Default()
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = defaultRelayChannel
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		local:   local,
		logger:  logger,
	}
}

// Publish stamps the event before relaying so every replica delivers the
// same timestamp. The returned result is always zero: delivery happens on
// the receiving side.
func (r *RedisRelay) Publish(ctx context.Context, topic string, event Event) (PublishResult, error) {
	if !ValidTopic(topic) {
		return PublishResult{}, fmt.Errorf("%w: %w: %q", ErrPublishFailure, ErrInvalidTopic, topic)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = r.local.now().UTC()
	}
	payload, err := sonic.Marshal(relayEnvelope{Topic: topic, Event: event})
	if err != nil {
		return PublishResult{}, fmt.Errorf("%w: encode relay envelope: %w", ErrPublishFailure, err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return PublishResult{}, fmt.Errorf("%w: redis publish: %w", ErrPublishFailure, err)
	}
	return PublishResult{}, nil
}

// Run blocks until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.InfoContext(ctx, "realtime relay subscribed", "channel", r.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.deliver(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) deliver(ctx context.Context, payload string) {
	var envelope relayEnvelope
	if err := sonic.UnmarshalString(payload, &envelope); err != nil {
		r.logger.WarnContext(ctx, "discard undecodable relay message", "error", err)
		return
	}
	if _, err := r.local.Publish(ctx, envelope.Topic, envelope.Event); err != nil {
		r.logger.WarnContext(ctx, "relay local publish failed", "topic", envelope.Topic, "error", err)
	}
}
