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

// Package helpscout provides an authenticated client for the Help Scout
// Mailbox API: a fetcher handling OAuth2 token refresh, and a client that
// walks paginated collections and enriches records with their linked
// sub-resources.
package helpscout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/vgdata/migration/internal/cache"
	"github.com/vgdata/migration/internal/models"
)

const (
	// MaxRetries bounds token-refresh attempts on consecutive 401s.
	MaxRetries = 5

	// sentinelToken is used when a token refresh fails. Requests carrying
	// it will 401 and re-enter the bounded refresh loop rather than
	// failing here.
	sentinelToken = "unknown"

	tokenEndpoint = "/oauth2/token"
)

// RetryLimitError reports that a fetch kept receiving 401 responses after
// exhausting the token-refresh budget.
type RetryLimitError struct {
	URL string
}

func (e *RetryLimitError) Error() string {
	return fmt.Sprintf("token refresh retry limit (%d) exceeded fetching %s", MaxRetries, e.URL)
}

// Fetcher issues authenticated GETs against the API. It owns the access
// token, the 401 retry counter and the response cache — all scoped to the
// instance, so independent jobs and parallel tests don't share state.
// It is not safe for concurrent use.
type Fetcher struct {
	httpClient *http.Client
	creds      *clientcredentials.Config
	cache      cache.ResponseCache

	token    string
	attempts int
}

// NewFetcher creates a fetcher for the API at baseURL. The response cache
// may be nil to disable caching.
func NewFetcher(httpClient *http.Client, baseURL, clientID, clientSecret string, rc cache.ResponseCache) *Fetcher {
	creds := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     baseURL + tokenEndpoint,
		// Help Scout expects grant_type, client_id and client_secret as
		// form fields, not basic auth.
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return &Fetcher{
		httpClient: httpClient,
		creds:      creds,
		cache:      rc,
		token:      sentinelToken,
	}
}

// Fetch GETs a URL with the current bearer token and returns the JSON body
// as a record. A 401 refreshes the token and retries, bounded by
// MaxRetries; a 404 is normalised to an empty record, since absence of a
// linked sub-resource is not exceptional.
func (f *Fetcher) Fetch(ctx context.Context, url string) (models.Record, error) {
	if f.cache != nil {
		if body, ok := f.cache.Get(ctx, url); ok {
			slog.Debug("response cache hit", "url", url)
			return parseRecord(body)
		}
	}

	for {
		status, body, err := f.get(ctx, url)
		if err != nil {
			return nil, err
		}

		if status == http.StatusUnauthorized {
			if f.attempts >= MaxRetries {
				f.attempts = 0
				return nil, &RetryLimitError{URL: url}
			}
			f.attempts++
			slog.Info("access token expired, refreshing", "url", url, "attempt", f.attempts)
			f.refreshToken(ctx)
			continue
		}

		// Any non-401 response resets the retry budget.
		f.attempts = 0

		if status == http.StatusNotFound {
			return models.Record{}, nil
		}

		rec, err := parseRecord(body)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		if f.cache != nil && status == http.StatusOK {
			f.cache.Set(ctx, url, body)
		}
		return rec, nil
	}
}

// get performs a single GET round-trip.
func (f *Fetcher) get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response %s: %w", url, err)
	}
	return resp.StatusCode, body, nil
}

// refreshToken exchanges client credentials for a fresh access token. A
// failed exchange degrades to the sentinel token instead of an error: the
// next request will 401 and the retry cap bounds the loop.
func (f *Fetcher) refreshToken(ctx context.Context) {
	tok, err := f.creds.Token(ctx)
	if err != nil || tok.AccessToken == "" {
		slog.Warn("token refresh failed", "error", err)
		f.token = sentinelToken
		return
	}
	f.token = tok.AccessToken
	slog.Debug("access token refreshed")
}

func parseRecord(body []byte) (models.Record, error) {
	if len(body) == 0 {
		return models.Record{}, nil
	}
	var rec models.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("parse response body: %w", err)
	}
	return rec, nil
}
