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

// Package config loads configuration from config.yaml and environment
// variables. API credentials are required; everything else has defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultNestedRelations are the linked sub-resources fetched during
// enrichment when the config does not override them.
var DefaultNestedRelations = []string{"address", "emails", "phones", "threads"}

// Config holds all configuration for the migration jobs.
type Config struct {
	// Help Scout API
	APIURL       string
	ClientID     string
	ClientSecret string

	// Extraction
	RequestsPerSecond int
	NestedRelations   []string

	// Optional infrastructure
	RedisURL    string // response cache; empty = in-memory cache
	DatabaseURL string // run ledger; empty = no ledger
	CacheTTL    time.Duration

	// Translation tables referenced by mapping entries, keyed by table
	// name then raw value.
	Tables map[string]map[string]string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	API struct {
		URL          string `yaml:"url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
	} `yaml:"api"`
	Extract struct {
		RequestsPerSecond int      `yaml:"requests_per_second"`
		NestedRelations   []string `yaml:"nested_relations"`
	} `yaml:"extract"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Tables map[string]map[string]string `yaml:"tables"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables. Environment variables win over YAML values. The
// YAML file is optional; missing API credentials are not.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "config.yaml")

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	if err == nil {
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	cfg := &Config{
		APIURL:            firstNonEmpty(os.Getenv("HELPSCOUT_API_URL"), raw.API.URL),
		ClientID:          firstNonEmpty(os.Getenv("HELPSCOUT_CLIENT_ID"), raw.API.ClientID),
		ClientSecret:      firstNonEmpty(os.Getenv("HELPSCOUT_CLIENT_SECRET"), raw.API.ClientSecret),
		RequestsPerSecond: raw.Extract.RequestsPerSecond,
		NestedRelations:   raw.Extract.NestedRelations,
		RedisURL:          firstNonEmpty(os.Getenv("REDIS_URL"), raw.Redis.URL),
		DatabaseURL:       firstNonEmpty(os.Getenv("DATABASE_URL"), raw.Postgres.URL),
		CacheTTL:          envOrDefaultDuration("CACHE_TTL", 24*time.Hour),
		Tables:            raw.Tables,
	}

	if v := os.Getenv("REQUESTS_PER_SECOND"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RequestsPerSecond = n
		}
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10 // Help Scout rate limit
	}
	if len(cfg.NestedRelations) == 0 {
		cfg.NestedRelations = DefaultNestedRelations
	}
	if cfg.Tables == nil {
		cfg.Tables = map[string]map[string]string{}
	}

	// Unknown credentials are a fatal startup condition — the jobs must
	// not run against the API with a guessed identity.
	if cfg.APIURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("missing API configuration — set HELPSCOUT_API_URL, HELPSCOUT_CLIENT_ID and HELPSCOUT_CLIENT_SECRET (or the api section of %s)", configPath)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
