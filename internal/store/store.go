// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store provides a Postgres-backed ledger of migration runs, so
// scheduled jobs have a queryable history of what was extracted and
// written, and with how many errors.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run records one completed batch job.
type Run struct {
	ID          string
	Job         string // "extract" or "transform"
	Resource    string // resource type or mapping file
	Records     int    // records fetched / read
	RowsWritten int
	RowsSkipped int
	Status      string // "completed" or "failed"
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Ledger provides run-history operations backed by Postgres.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a run ledger backed by the given Postgres pool. It
// ensures the runs table exists on creation.
func NewLedger(ctx context.Context, pool *pgxpool.Pool) (*Ledger, error) {
	l := &Ledger{pool: pool}
	if err := l.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure run ledger schema: %w", err)
	}
	slog.Info("run ledger initialised")
	return l, nil
}

func (l *Ledger) ensureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS migration_runs (
			id           UUID PRIMARY KEY,
			job          TEXT NOT NULL,
			resource     TEXT NOT NULL,
			records      INTEGER NOT NULL DEFAULT 0,
			rows_written INTEGER NOT NULL DEFAULT 0,
			rows_skipped INTEGER NOT NULL DEFAULT 0,
			status       TEXT NOT NULL DEFAULT 'completed',
			started_at   TIMESTAMPTZ NOT NULL,
			finished_at  TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_job ON migration_runs(job, resource);
		CREATE INDEX IF NOT EXISTS idx_runs_finished ON migration_runs(finished_at);
	`)
	return err
}

// RecordRun inserts a completed run, assigning an ID if absent.
func (l *Ledger) RecordRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO migration_runs
			(id, job, resource, records, rows_written, rows_skipped, status, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.ID, r.Job, r.Resource, r.Records, r.RowsWritten, r.RowsSkipped, r.Status, r.StartedAt, r.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run for a job and resource, or nil if
// none has been recorded.
func (l *Ledger) LastRun(ctx context.Context, job, resource string) (*Run, error) {
	row := l.pool.QueryRow(ctx, `
		SELECT id, job, resource, records, rows_written, rows_skipped, status, started_at, finished_at
		FROM migration_runs
		WHERE job = $1 AND resource = $2
		ORDER BY finished_at DESC
		LIMIT 1
	`, job, resource)

	var r Run
	err := row.Scan(&r.ID, &r.Job, &r.Resource, &r.Records, &r.RowsWritten, &r.RowsSkipped, &r.Status, &r.StartedAt, &r.FinishedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
