package infra_pg_init

import (
	_ "embed"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/partyloop/guessparty/internal/config"
)

//go:embed schema.sql
var schema string

func BuildDSN(cfg config.Postgres) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
	)
}

func MustEstablishConn(cfg config.Postgres) *sqlx.DB {
	db, err := sqlx.Connect("postgres", BuildDSN(cfg))
	if err != nil {
		log.Fatal(err)
	}

	return db
}

// MustApplySchema creates the tables and the change-feed triggers. Every
// statement is idempotent, so running it on every boot is safe.
func MustApplySchema(db *sqlx.DB) {
	db.MustExec(schema)
}
