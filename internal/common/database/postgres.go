// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"organmatch/internal/common/config"

	_ "github.com/lib/pq"
)

// Schema creates the donor, receiver and training tables when absent.
const Schema = `
CREATE TABLE IF NOT EXISTS donors (
	id                      TEXT PRIMARY KEY,
	age                     INTEGER NOT NULL,
	location                TEXT NOT NULL,
	blood_group             TEXT NOT NULL,
	organ                   TEXT NOT NULL,
	organ_tissue_type       TEXT NOT NULL,
	organ_health_score      INTEGER NOT NULL DEFAULT 0,
	hospital_transportation BOOLEAN NOT NULL DEFAULT FALSE,
	hospital_name           TEXT NOT NULL DEFAULT '',
	email                   TEXT NOT NULL DEFAULT '',
	phone                   TEXT NOT NULL DEFAULT '',
	created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_donors_organ ON donors (organ);

CREATE TABLE IF NOT EXISTS receivers (
	id                TEXT PRIMARY KEY,
	age               INTEGER NOT NULL,
	location          TEXT NOT NULL,
	blood_group       TEXT NOT NULL,
	organ_needed      TEXT NOT NULL,
	organ_tissue_type TEXT NOT NULL,
	urgency           INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS training_pairs (
	batch_id                TEXT NOT NULL,
	donor_id                TEXT NOT NULL,
	receiver_id             TEXT NOT NULL,
	age_diff                INTEGER NOT NULL,
	bloodgroup_donor        TEXT NOT NULL,
	bloodgroup_recipient    TEXT NOT NULL,
	organ                   TEXT NOT NULL,
	organ_tissue_type_donor TEXT NOT NULL,
	distance_km             NUMERIC(10,2) NOT NULL,
	urgency                 INTEGER NOT NULL,
	hospital_transportation INTEGER NOT NULL,
	success                 INTEGER NOT NULL,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (batch_id, donor_id, receiver_id)
);
`

type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Migrate applies Schema. Statements are idempotent.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
