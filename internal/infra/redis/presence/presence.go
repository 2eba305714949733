package infra_redis_presence

import (
	"time"

	"github.com/go-redis/redis"
)

// Driver tracks "who is currently on this screen" with per-player keys that
// expire on their own. This is UI presence on the ephemeral path, distinct
// from the authoritative last_seen_at heartbeat in the store.
type Driver struct {
	client *redis.Client
	key    string
}

func New(
	client *redis.Client,
	key string,
) *Driver {
	return &Driver{
		client: client,
		key:    key,
	}
}

func (d *Driver) MarkOnline(roomCode string, playerID string, ttl time.Duration) error {
	return d.client.Set(d.fullKey(roomCode, playerID), "1", ttl).Err()
}

func (d *Driver) MarkOffline(roomCode string, playerID string) error {
	return d.client.Del(d.fullKey(roomCode, playerID)).Err()
}

func (d *Driver) Online(roomCode string) ([]string, error) {
	pattern := d.fullKey(roomCode, "*")
	keys, err := d.client.Keys(pattern).Result()
	if err != nil {
		return nil, err
	}

	prefix := d.fullKey(roomCode, "")
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(prefix):])
	}
	return ids, nil
}

func (d *Driver) fullKey(roomCode string, playerID string) string {
	return d.key + ":" + roomCode + ":" + playerID
}
