package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quizlive/internal/pubsub"
)

// Broker carries the per-session fan-out over Redis PUBLISH/SUBSCRIBE, which
// gives the ordered-per-publisher, no-replay delivery the channel contract
// assumes, and lets host and participants live in different processes.
type Broker struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewBroker(client *redis.Client, log zerolog.Logger) *Broker {
	return &Broker{client: client, log: log.With().Str("component", "redis-broker").Logger()}
}

func (b *Broker) Publish(ctx context.Context, topic string, event pubsub.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, topic, data).Err()
}

func (b *Broker) Subscribe(ctx context.Context, topic string, handler pubsub.Handler) (func(), error) {
	sub := b.client.Subscribe(ctx, topic)
	// Confirm the subscription before returning so the caller never misses
	// events published right after Subscribe.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	ch := sub.Channel()
	go func() {
		for msg := range ch {
			var event pubsub.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn().Err(err).Str("topic", topic).Msg("malformed event dropped")
				continue
			}
			handler(event)
		}
	}()

	cancel := func() {
		_ = sub.Close()
	}
	return cancel, nil
}
