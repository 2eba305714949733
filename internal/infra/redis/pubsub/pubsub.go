package infra_redis_pubsub

import (
	"fmt"

	"github.com/go-redis/redis"
)

// Driver is the ephemeral channel: fire-and-forget pub/sub scoped to
// (roomCode, gameType). Nothing here is persisted or retried; a client that
// is not subscribed at publish time simply never sees the message.
type Driver struct {
	client *redis.Client
}

func New(
	client *redis.Client,
) *Driver {
	return &Driver{client: client}
}

func channelFor(roomCode string, gameType string) string {
	return fmt.Sprintf("ephemeral:%s:%s", roomCode, gameType)
}

func (d *Driver) Publish(roomCode string, gameType string, payload []byte) error {
	return d.client.Publish(channelFor(roomCode, gameType), payload).Err()
}

type Subscription struct {
	pubsub *redis.PubSub
}

func (d *Driver) Subscribe(roomCode string, gameType string) *Subscription {
	return &Subscription{
		pubsub: d.client.Subscribe(channelFor(roomCode, gameType)),
	}
}

// Messages exposes the raw payload stream. The channel closes when the
// subscription does.
func (s *Subscription) Messages() <-chan []byte {
	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		for msg := range s.pubsub.Channel() {
			out <- []byte(msg.Payload)
		}
	}()
	return out
}

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
