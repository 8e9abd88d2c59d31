package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// openPostgres opens the pro-tier database.
func openPostgres(cfg domain.RepositoryConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	return db, nil
}

// postgresDSN builds a lib/pq key/value connection string with defaults
// for host, port, database and sslmode.
func postgresDSN(cfg domain.RepositoryConfig) string {
	host := cfg.PostgresHost
	if host == "" {
		host = "localhost"
	}
	port := cfg.PostgresPort
	if port == 0 {
		port = 5432
	}
	dbname := cfg.PostgresDB
	if dbname == "" {
		dbname = "pulse"
	}
	sslmode := cfg.PostgresSSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, dbname, sslmode)
	if cfg.PostgresUser != "" {
		dsn += " user=" + cfg.PostgresUser
	}
	if cfg.PostgresPassword != "" {
		dsn += " password=" + cfg.PostgresPassword
	}
	return dsn
}
