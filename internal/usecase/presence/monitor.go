package usecase_presence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Monitor runs the periodic presence duties for one connected client: the
// heartbeat, the host's stale-player sweep and the non-host failover watch.
// The ws layer starts one per connection and stops it when the socket drops.
type Monitor struct {
	usecase  *Usecase
	logger   *slog.Logger
	code     string
	playerID uuid.UUID

	heartbeatEvery time.Duration
	checkEvery     time.Duration
}

func NewMonitor(usecase *Usecase, code string, playerID uuid.UUID) *Monitor {
	return &Monitor{
		usecase:        usecase,
		logger:         slog.Default(),
		code:           code,
		playerID:       playerID,
		heartbeatEvery: HeartbeatInterval,
		checkEvery:     PruneInterval,
	}
}

// Run blocks until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	heartbeat := time.NewTicker(m.heartbeatEvery)
	defer heartbeat.Stop()
	check := time.NewTicker(m.checkEvery)
	defer check.Stop()

	if err := m.usecase.Heartbeat(ctx, m.playerID); err != nil {
		m.logger.Error("initial heartbeat failed", "player_id", m.playerID, "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if err := m.usecase.Heartbeat(ctx, m.playerID); err != nil {
				m.logger.Error("heartbeat failed", "player_id", m.playerID, "error", err)
			}
		case <-check.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	// Host-ness is re-checked every tick through PruneStale itself; a
	// non-host gets ErrForbidden and falls through to the failover watch.
	pruned, err := m.usecase.PruneStale(ctx, m.code, m.playerID)
	switch {
	case err == nil:
		if pruned > 0 {
			m.logger.Info("pruned stale players", "room", m.code, "count", pruned)
		}
		return
	case errors.Is(err, ErrForbidden):
	default:
		m.logger.Error("prune failed", "room", m.code, "error", err)
		return
	}

	closed, err := m.usecase.CheckHostFailover(ctx, m.code)
	if err != nil {
		m.logger.Error("failover check failed", "room", m.code, "error", err)
		return
	}
	if closed {
		m.logger.Info("host silent past failover threshold, room closed", "room", m.code)
	}
}
