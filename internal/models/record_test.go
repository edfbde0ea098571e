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

package models

import (
	"path/filepath"
	"testing"
)

// TestLinkHref verifies hypermedia link extraction tolerates absent and
// malformed link sets.
func TestLinkHref(t *testing.T) {
	rec := Record{
		"_links": map[string]any{
			"next":    map[string]any{"href": "https://api.example.com/page2"},
			"threads": "not a link object",
		},
	}

	if got := rec.LinkHref("next"); got != "https://api.example.com/page2" {
		t.Errorf("next href = %q", got)
	}
	if got := rec.LinkHref("threads"); got != "" {
		t.Errorf("malformed link href = %q, want empty", got)
	}
	if got := (Record{}).LinkHref("next"); got != "" {
		t.Errorf("missing links href = %q, want empty", got)
	}
}

// TestCleanRecords verifies link metadata and photo URLs are stripped
// while everything else survives.
func TestCleanRecords(t *testing.T) {
	records := []Record{
		{
			"id":       float64(1),
			"photoUrl": "https://img.example.com/1.png",
			"_links":   map[string]any{"self": map[string]any{"href": "x"}},
			"subject":  "keep me",
		},
	}

	cleaned := CleanRecords(records)

	if _, ok := cleaned[0]["_links"]; ok {
		t.Error("_links survived cleaning")
	}
	if _, ok := cleaned[0]["photoUrl"]; ok {
		t.Error("photoUrl survived cleaning")
	}
	if cleaned[0]["subject"] != "keep me" {
		t.Errorf("subject = %v", cleaned[0]["subject"])
	}
	// Original untouched
	if _, ok := records[0]["_links"]; !ok {
		t.Error("cleaning mutated the input")
	}
}

// TestRecordSetRoundTrip verifies the intermediate file written by the
// extract job reads back identically in the transform job.
func TestRecordSetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.json")
	in := []Record{
		{"id": float64(1), "threads": []any{map[string]any{"body": "hi"}}},
		{"id": float64(2)},
	}

	if err := WriteRecords(path, in); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	out, err := ReadRecords(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if len(out) != 2 || out[0]["id"] != float64(1) {
		t.Errorf("round trip = %v", out)
	}
	threads, ok := out[0]["threads"].([]any)
	if !ok || len(threads) != 1 {
		t.Errorf("threads = %v", out[0]["threads"])
	}
}

// TestHasError verifies logical API error detection.
func TestHasError(t *testing.T) {
	errRec := Record{"error": "invalid_scope", "error_description": "nope"}
	if !errRec.HasError() || errRec.ErrorDescription() != "nope" {
		t.Errorf("error record misread: %v", errRec)
	}
	if (Record{"id": 1}).HasError() {
		t.Error("clean record reported error")
	}
}
