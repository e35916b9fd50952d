package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
)

// Creates the fleettrack schema. Idempotent; safe to re-run.
func main() {
	_ = godotenv.Load()

	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		getEnv("DB_USER", "fleettrack"),
		getEnv("DB_PASSWORD", "fleettrack"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "fleettrack"),
	)

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, connStr)
	if err != nil {
		log.Fatalf("connection failed: %v", err)
	}
	defer conn.Close(ctx)

	statements := []struct {
		label string
		sql   string
	}{
		{"tracking_points table", `
			CREATE TABLE IF NOT EXISTS tracking_points (
				tenant_id   TEXT             NOT NULL,
				vehicle_id  TEXT             NOT NULL,
				lat         DOUBLE PRECISION NOT NULL,
				lon         DOUBLE PRECISION NOT NULL,
				speed_kmh   DOUBLE PRECISION NOT NULL DEFAULT 0,
				heading     DOUBLE PRECISION NOT NULL DEFAULT 0,
				altitude_m  DOUBLE PRECISION,
				accuracy_m  DOUBLE PRECISION,
				ts          TIMESTAMPTZ      NOT NULL,
				recorded_at TIMESTAMPTZ      NOT NULL DEFAULT NOW()
			);
		`},
		{"tracking_points vehicle/time index", `
			CREATE INDEX IF NOT EXISTS idx_points_vehicle_ts
			ON tracking_points (tenant_id, vehicle_id, ts DESC);
		`},
		{"geofences table", `
			CREATE TABLE IF NOT EXISTS geofences (
				id             UUID        PRIMARY KEY,
				tenant_id      TEXT        NOT NULL,
				name           TEXT        NOT NULL,
				shape          JSONB       NOT NULL,
				alert_on_entry BOOLEAN     NOT NULL DEFAULT FALSE,
				alert_on_exit  BOOLEAN     NOT NULL DEFAULT FALSE,
				is_active      BOOLEAN     NOT NULL DEFAULT TRUE,
				created_at     TIMESTAMPTZ NOT NULL,
				updated_at     TIMESTAMPTZ NOT NULL
			);
		`},
		{"geofences tenant index", `
			CREATE INDEX IF NOT EXISTS idx_geofences_tenant_active
			ON geofences (tenant_id, created_at)
			WHERE is_active;
		`},
		{"geofence_states table", `
			CREATE TABLE IF NOT EXISTS geofence_states (
				tenant_id   TEXT        NOT NULL,
				vehicle_id  TEXT        NOT NULL,
				geofence_id UUID        NOT NULL REFERENCES geofences (id),
				inside      BOOLEAN     NOT NULL,
				updated_at  TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (tenant_id, vehicle_id, geofence_id)
			);
		`},
	}

	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt.sql); err != nil {
			log.Fatalf("failed: %s: %v", stmt.label, err)
		}
		fmt.Printf("ok: %s\n", stmt.label)
	}

	fmt.Println("database initialised")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
