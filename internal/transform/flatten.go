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

// Package transform flattens extracted records and interprets a field
// mapping against them, producing flat output rows for the tabular writer.
package transform

import (
	"strconv"

	"github.com/vgdata/migration/internal/models"
)

// Flatten converts a record into a form where every value is reachable by
// map-key lookup alone: nested sequences become index-keyed mappings
// ("0", "1", ...) and nested mappings are flattened recursively. The
// result contains no sequence values. Flatten is pure and idempotent on
// its own output.
func Flatten(rec models.Record) models.Record {
	out := make(models.Record, len(rec))
	for k, v := range rec {
		out[k] = flattenValue(v)
	}
	return out
}

// flattenValue flattens a single value. Scalars pass through unchanged.
func flattenValue(v any) any {
	switch val := v.(type) {
	case []any:
		m := make(map[string]any, len(val))
		for i, item := range val {
			m[strconv.Itoa(i)] = flattenValue(item)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = flattenValue(item)
		}
		return m
	case models.Record:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = flattenValue(item)
		}
		return m
	default:
		return v
	}
}
