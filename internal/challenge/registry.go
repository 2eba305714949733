package challenge

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/partyloop/guessparty/internal/model"
)

var (
	ErrUnknownGameType = errors.New("no adapter for game type")
	ErrEmptyDataset    = errors.New("adapter produced no challenges")
)

// Adapter builds the challenges for one game type. Live adapters hit a public
// data source; FallbackSet is the fixed local dataset substituted when the
// upstream is unavailable, so players see a degraded round instead of an
// error.
type Adapter interface {
	GameType() model.GameType
	FetchLive(ctx context.Context, count int) ([]model.Challenge, error)
	FallbackSet() []model.Challenge
}

// Registry owns the adapters and the TTL cache in front of them. It is the
// only ChallengeSource the session layer knows about. The cache is an
// explicit object passed in here, not ambient package state.
type Registry struct {
	adapters map[model.GameType]Adapter
	cache    *Cache
	logger   *slog.Logger
}

func NewRegistry(cache *Cache, adapters ...Adapter) *Registry {
	m := make(map[model.GameType]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.GameType()] = a
	}
	return &Registry{
		adapters: m,
		cache:    cache,
		logger:   slog.Default(),
	}
}

// DefaultRegistry wires every shipped adapter over one shared HTTP client.
func DefaultRegistry(client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return NewRegistry(
		NewCache(10*time.Minute),
		NewFlagsAdapter(client),
		NewPriceAdapter(client),
		NewWordAdapter(),
		NewLyricsAdapter(),
		NewSpeciesAdapter(),
	)
}

// Fetch returns count challenges for the game type. One live attempt per
// call, no retries; a failed upstream falls back to the fixed dataset.
func (r *Registry) Fetch(ctx context.Context, gameType model.GameType, count int) ([]model.Challenge, error) {
	adapter, ok := r.adapters[gameType]
	if !ok {
		return nil, ErrUnknownGameType
	}
	if count < 1 {
		count = 1
	}

	pool, ok := r.cache.Get(gameType)
	if !ok {
		live, err := adapter.FetchLive(ctx, count)
		if err != nil || len(live) == 0 {
			r.logger.Warn("upstream fetch failed, using fallback dataset",
				"game_type", gameType, "error", err)
			live = adapter.FallbackSet()
		}
		if len(live) == 0 {
			return nil, ErrEmptyDataset
		}
		r.cache.Put(gameType, live)
		pool = live
	}

	return sample(pool, count), nil
}

// sample draws count challenges without repeats until the pool is exhausted,
// then wraps around.
func sample(pool []model.Challenge, count int) []model.Challenge {
	picked := make([]model.Challenge, 0, count)
	order := rand.Perm(len(pool))
	for len(picked) < count {
		for _, i := range order {
			if len(picked) == count {
				break
			}
			picked = append(picked, pool[i])
		}
	}
	return picked
}
