package app

import (
	"context"
	"log/slog"

	"github.com/partyloop/guessparty/internal/challenge"
	"github.com/partyloop/guessparty/internal/config"
	http_challenge "github.com/partyloop/guessparty/internal/delivery/http/challenge"
	http_init "github.com/partyloop/guessparty/internal/delivery/http/init"
	http_room "github.com/partyloop/guessparty/internal/delivery/http/room"
	http_session "github.com/partyloop/guessparty/internal/delivery/http/session"
	ws_room "github.com/partyloop/guessparty/internal/delivery/ws/room"
	infra_postgres_feed "github.com/partyloop/guessparty/internal/infra/postgres/feed"
	infra_pg_init "github.com/partyloop/guessparty/internal/infra/postgres/init"
	infra_postgres_player "github.com/partyloop/guessparty/internal/infra/postgres/player"
	infra_postgres_room "github.com/partyloop/guessparty/internal/infra/postgres/room"
	infra_postgres_session "github.com/partyloop/guessparty/internal/infra/postgres/session"
	infra_redis_init "github.com/partyloop/guessparty/internal/infra/redis/init"
	infra_redis_presence "github.com/partyloop/guessparty/internal/infra/redis/presence"
	infra_redis_pubsub "github.com/partyloop/guessparty/internal/infra/redis/pubsub"
	usecase_presence "github.com/partyloop/guessparty/internal/usecase/presence"
	usecase_room "github.com/partyloop/guessparty/internal/usecase/room"
	usecase_session "github.com/partyloop/guessparty/internal/usecase/session"
)

func Go(cfg *config.Config) {
	redisConn := infra_redis_init.MustEstablishConn(cfg.Redis)
	pgConn := infra_pg_init.MustEstablishConn(cfg.Postgres)
	infra_pg_init.MustApplySchema(pgConn)

	roomRepository := infra_postgres_room.New(pgConn)
	playerRepository := infra_postgres_player.New(pgConn)
	sessionRepository := infra_postgres_session.New(pgConn)

	pubsub := infra_redis_pubsub.New(redisConn)
	screens := infra_redis_presence.New(redisConn, "screen_presence")

	challenges := challenge.DefaultRegistry(nil)

	roomUC := usecase_room.New(roomRepository, playerRepository)
	sessionUC := usecase_session.New(sessionRepository, roomRepository, playerRepository, challenges)
	presenceUC := usecase_presence.New(playerRepository, roomRepository)

	hub := ws_room.NewHub(pubsub, screens)
	go hub.Run()

	// The durable feed: every committed row change flows from Postgres
	// through here to the room's connected clients.
	feed := infra_postgres_feed.New(infra_pg_init.BuildDSN(cfg.Postgres))
	go func() {
		if err := feed.Run(context.Background(), hub.HandleChange); err != nil {
			slog.Error("change feed stopped", "error", err)
		}
	}()

	controllerPool := http_init.NewControllerPool()
	controllerPool.Add(http_room.New(roomUC, presenceUC))
	controllerPool.Add(http_session.New(sessionUC))
	controllerPool.Add(http_challenge.New(challenges))
	controllerPool.Add(ws_room.NewController(hub, roomUC, presenceUC))

	controllerPool.Register()
	controllerPool.RunAll(cfg.HTTP.Port)
}
