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

// Help Scout Migration — Transform Command
//
// Batch job that reads the intermediate record set written by the extract
// command, applies a field-mapping configuration, and writes the resulting
// rows as a CSV file ready for CRM import.
//
// Usage:
//
//	go run ./cmd/transform/ --in conversations.json --mapping deals.json [--out deals.csv]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vgdata/migration/internal/config"
	"github.com/vgdata/migration/internal/export"
	"github.com/vgdata/migration/internal/mapping"
	"github.com/vgdata/migration/internal/models"
	"github.com/vgdata/migration/internal/store"
	"github.com/vgdata/migration/internal/transform"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	inFlag := flag.String("in", "", "Intermediate record set file (required)")
	mappingFlag := flag.String("mapping", "", "Field mapping configuration file (required)")
	outFlag := flag.String("out", "output.csv", "CSV output file")
	flag.Parse()

	if *inFlag == "" || *mappingFlag == "" {
		fmt.Fprintf(os.Stderr, "Error: --in and --mapping are required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger := openLedger(ctx, cfg.DatabaseURL)

	// --- Load Inputs ---
	m, err := mapping.Load(*mappingFlag)
	if err != nil {
		slog.Error("failed to load mapping", "error", err)
		os.Exit(1)
	}

	records, err := models.ReadRecords(*inFlag)
	if err != nil {
		slog.Error("failed to read record set", "error", err)
		os.Exit(1)
	}

	slog.Info("starting transform",
		"in", *inFlag,
		"mapping", *mappingFlag,
		"records", len(records),
	)
	start := time.Now()

	// --- Transform & Write ---
	engine := transform.New(m, mapping.Tables(cfg.Tables))
	rows := engine.Transform(records)

	res, err := export.WriteFile(*outFlag, rows, m)
	if err != nil {
		slog.Error("failed to write CSV", "error", err)
		os.Exit(1)
	}

	// --- Summary ---
	slog.Info("transform complete",
		"records", len(records),
		"rows_written", res.Written,
		"rows_skipped", res.Skipped,
		"out", *outFlag,
		"elapsed", time.Since(start),
	)

	if ledger != nil {
		run := store.Run{
			Job:         "transform",
			Resource:    *mappingFlag,
			Records:     len(records),
			RowsWritten: res.Written,
			RowsSkipped: res.Skipped,
			Status:      "completed",
			StartedAt:   start,
			FinishedAt:  time.Now(),
		}
		if err := ledger.RecordRun(ctx, run); err != nil {
			slog.Warn("failed to record run", "error", err)
		}
	}
}

// openLedger connects the run ledger when a database is configured.
// A configured but unreachable database is fatal.
func openLedger(ctx context.Context, databaseURL string) *store.Ledger {
	if databaseURL == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	ledger, err := store.NewLedger(ctx, pool)
	if err != nil {
		slog.Error("failed to initialise run ledger", "error", err)
		os.Exit(1)
	}
	return ledger
}
