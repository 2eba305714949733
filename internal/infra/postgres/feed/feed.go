package infra_postgres_feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

const channelName = "room_changes"

// Change is one row-level event from the durable feed. Per-row ordering
// follows commit order; delivery is at-least-once, so consumers must
// tolerate replays.
type Change struct {
	Table    string          `json:"table"`
	Op       string          `json:"op"`
	RoomCode string          `json:"room_code"`
	Row      json.RawMessage `json:"row"`
}

// Listener consumes the Postgres NOTIFY stream the schema triggers produce.
type Listener struct {
	pql    *pq.Listener
	logger *slog.Logger
}

func New(dsn string) *Listener {
	logger := slog.Default()
	pql := pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Error("feed listener event", "event", int(ev), "error", err)
		}
	})
	return &Listener{
		pql:    pql,
		logger: logger,
	}
}

// Run delivers every change to handler until ctx is cancelled. A nil
// notification marks a connection re-establishment; subscribers may have
// missed events during the gap and should re-read current state.
func (l *Listener) Run(ctx context.Context, handler func(Change)) error {
	if err := l.pql.Listen(channelName); err != nil {
		return err
	}
	defer l.pql.Close()

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-l.pql.Notify:
			if n == nil {
				l.logger.Warn("feed connection re-established, events may have been missed")
				continue
			}
			var change Change
			if err := json.Unmarshal([]byte(n.Extra), &change); err != nil {
				l.logger.Error("malformed feed payload", "error", err)
				continue
			}
			handler(change)
		case <-ping.C:
			if err := l.pql.Ping(); err != nil {
				l.logger.Error("feed ping failed", "error", err)
			}
		}
	}
}
