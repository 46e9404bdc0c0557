package main

import (
	"context"
	"database/sql"
	"log/slog"

	"aqi-estimator/internal/config"
	"aqi-estimator/internal/db"
)

func withDB(ctx context.Context, cfg config.Config, fn func(ctx context.Context, conn *sql.DB) error) error {
	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()
	return fn(ctx, conn)
}
