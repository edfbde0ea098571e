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

package helpscout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vgdata/migration/internal/cache"
)

// TestFetch_RefreshesExpiredToken verifies that a 401 triggers a
// client-credentials token exchange with form fields and that the original
// URL is retried with the fresh token.
func TestFetch_RefreshesExpiredToken(t *testing.T) {
	tokenRequests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests++
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse token form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q, want client_credentials", r.Form.Get("grant_type"))
		}
		if r.Form.Get("client_id") != "id-1" || r.Form.Get("client_secret") != "secret-1" {
			t.Errorf("credentials not sent as form fields: %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "fresh-token", "token_type": "bearer"}`))
	})
	mux.HandleFunc("/conversations", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 7}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(server.Client(), server.URL, "id-1", "secret-1", nil)

	rec, err := f.Fetch(context.Background(), server.URL+"/conversations")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if rec["id"] != float64(7) {
		t.Errorf("id = %v, want 7", rec["id"])
	}
	if tokenRequests != 1 {
		t.Errorf("token requests = %d, want 1", tokenRequests)
	}
}

// TestFetch_RetryBound verifies that an endpoint that always returns 401
// is fetched at most MaxRetries+1 times before an error surfaces.
func TestFetch_RetryBound(t *testing.T) {
	resourceRequests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "still-rejected", "token_type": "bearer"}`))
	})
	mux.HandleFunc("/conversations", func(w http.ResponseWriter, r *http.Request) {
		resourceRequests++
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(server.Client(), server.URL, "id", "secret", nil)

	_, err := f.Fetch(context.Background(), server.URL+"/conversations")
	var limitErr *RetryLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected RetryLimitError, got %v", err)
	}
	if resourceRequests != MaxRetries+1 {
		t.Errorf("resource fetched %d times, want %d", resourceRequests, MaxRetries+1)
	}
}

// TestFetch_AttemptCounterResets verifies the retry budget resets after
// any non-401 response, so later fetches get a full budget again.
func TestFetch_AttemptCounterResets(t *testing.T) {
	firstRejections := 0
	secondRejections := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "tok", "token_type": "bearer"}`))
	})
	mux.HandleFunc("/first", func(w http.ResponseWriter, r *http.Request) {
		if firstRejections < 2 {
			firstRejections++
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	})
	mux.HandleFunc("/second", func(w http.ResponseWriter, r *http.Request) {
		if secondRejections < 4 {
			secondRejections++
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(server.Client(), server.URL, "id", "secret", nil)
	ctx := context.Background()

	if _, err := f.Fetch(ctx, server.URL+"/first"); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	// 2 + 4 rejections exceed the budget only if the counter never reset.
	if _, err := f.Fetch(ctx, server.URL+"/second"); err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}
}

// TestFetch_NotFound verifies a 404 is normalised to an empty record.
func TestFetch_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), server.URL, "id", "secret", nil)

	rec, err := f.Fetch(context.Background(), server.URL+"/customers/999/address")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(rec) != 0 {
		t.Errorf("expected empty record, got %v", rec)
	}
}

// TestFetch_TokenRefreshFailureDegrades verifies that a failed token
// exchange falls back to the sentinel token instead of erroring, so the
// retry cap bounds the loop.
func TestFetch_TokenRefreshFailureDegrades(t *testing.T) {
	lastAuth := ""
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/conversations", func(w http.ResponseWriter, r *http.Request) {
		lastAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(server.Client(), server.URL, "id", "secret", nil)

	_, err := f.Fetch(context.Background(), server.URL+"/conversations")
	var limitErr *RetryLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected RetryLimitError, got %v", err)
	}
	if lastAuth != "Bearer unknown" {
		t.Errorf("last Authorization = %q, want sentinel bearer", lastAuth)
	}
}

// TestFetch_CachesResponses verifies a repeated fetch of an identical URL
// is served from the cache without re-hitting the network.
func TestFetch_CachesResponses(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), server.URL, "id", "secret", cache.NewMemory())
	ctx := context.Background()

	if _, err := f.Fetch(ctx, server.URL+"/mailboxes"); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	rec, err := f.Fetch(ctx, server.URL+"/mailboxes")
	if err != nil {
		t.Fatalf("second fetch failed: %v", err)
	}

	if requests != 1 {
		t.Errorf("server hit %d times, want 1", requests)
	}
	if rec["id"] != float64(1) {
		t.Errorf("cached record id = %v, want 1", rec["id"])
	}
}
