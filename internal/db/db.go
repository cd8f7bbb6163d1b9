package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"superrider-be/internal/config"
	"superrider-be/internal/logger"

	_ "github.com/lib/pq"
)

const pingTimeout = 5 * time.Second

func InitDB(cfg *config.Config) (*sql.DB, error) {
	return openWithDriver(cfg, "postgres")
}

func openWithDriver(cfg *config.Config, driverName string) (*sql.DB, error) {
	db, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	if err := Ping(db, pingTimeout); err != nil {
		db.Close()
		return nil, err
	}

	logger.L().Info("database connection established")
	return db, nil
}

func Ping(db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping DB: %w", err)
	}
	return nil
}
