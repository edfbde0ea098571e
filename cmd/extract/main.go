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

// Help Scout Migration — Extraction Command
//
// Batch job that fetches a resource collection from the Help Scout API,
// enriches each record with its linked sub-resources, and writes the
// cleaned record set to the intermediate JSON file consumed by the
// transform command.
//
// Usage:
//
//	go run ./cmd/extract/ --resource conversations [--params mailbox=123,status=active] [--out conversations.json]
//	go run ./cmd/extract/ --mailboxes
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/vgdata/migration/internal/cache"
	"github.com/vgdata/migration/internal/config"
	"github.com/vgdata/migration/internal/helpscout"
	"github.com/vgdata/migration/internal/models"
	"github.com/vgdata/migration/internal/store"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	resourceFlag := flag.String("resource", "conversations", "Resource type to extract (mailboxes, conversations, customers, users)")
	paramsFlag := flag.String("params", "", "Comma-separated query parameters, e.g. mailbox=123,status=active")
	outFlag := flag.String("out", "", "Output file (default: {resource}-{timestamp}.json)")
	mailboxesFlag := flag.Bool("mailboxes", false, "Print mailbox IDs and exit")
	flag.Parse()

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Response Cache ---
	var responseCache cache.ResponseCache = cache.NewMemory()
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable, using in-memory response cache", "error", err)
		} else {
			responseCache = cache.NewRedis(rdb, cfg.CacheTTL)
			slog.Info("connected to Redis response cache")
		}
	}

	// --- Run Ledger (optional) ---
	ledger := openLedger(ctx, cfg.DatabaseURL)

	// --- Client ---
	fetcher := helpscout.NewFetcher(http.DefaultClient, cfg.APIURL, cfg.ClientID, cfg.ClientSecret, responseCache)
	client := helpscout.NewClient(fetcher, cfg.APIURL, cfg.RequestsPerSecond, cfg.NestedRelations)

	if *mailboxesFlag {
		for _, id := range client.GetMailboxIDs(ctx) {
			fmt.Println(id)
		}
		return
	}

	resource := helpscout.ResourceType(*resourceFlag)
	params, err := parseParams(*paramsFlag)
	if err != nil {
		slog.Error("invalid --params", "error", err)
		os.Exit(1)
	}

	outPath := *outFlag
	if outPath == "" {
		timestamp := time.Now().UTC().Format("2006-01-02T15-04-05")
		outPath = fmt.Sprintf("%s-%s.json", resource, timestamp)
	}

	slog.Info("starting extraction", "resource", resource, "out", outPath)
	start := time.Now()

	// --- Extract ---
	records, err := client.GetAllRecords(ctx, resource, params)
	if err != nil {
		slog.Error("extraction failed", "resource", resource, "error", err)
		recordRun(ctx, ledger, store.Run{
			Job: "extract", Resource: string(resource), Status: "failed",
			StartedAt: start, FinishedAt: time.Now(),
		})
		os.Exit(1)
	}

	cleaned := models.CleanRecords(records)
	if err := models.WriteRecords(outPath, cleaned); err != nil {
		slog.Error("failed to write record set", "error", err)
		os.Exit(1)
	}

	// --- Summary ---
	slog.Info("extraction complete",
		"resource", resource,
		"records", len(cleaned),
		"out", outPath,
		"elapsed", time.Since(start),
	)

	recordRun(ctx, ledger, store.Run{
		Job: "extract", Resource: string(resource), Records: len(cleaned),
		Status: "completed", StartedAt: start, FinishedAt: time.Now(),
	})
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

func recordRun(ctx context.Context, ledger *store.Ledger, run store.Run) {
	if ledger == nil {
		return
	}
	if err := ledger.RecordRun(ctx, run); err != nil {
		slog.Warn("failed to record run", "error", err)
	}
}

// parseParams converts "k=v,k=v" flag input into query parameters.
func parseParams(s string) (url.Values, error) {
	if s == "" {
		return nil, nil
	}
	params := url.Values{}
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed parameter %q", pair)
		}
		params.Add(k, v)
	}
	return params, nil
}
