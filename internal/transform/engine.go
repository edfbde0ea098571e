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

package transform

import (
	"log/slog"
	"strings"

	"github.com/vgdata/migration/internal/mapping"
	"github.com/vgdata/migration/internal/models"
)

// Engine interprets a mapping configuration against extracted records.
type Engine struct {
	mapping mapping.Mapping
	tables  mapping.Tables
}

// New creates a transform engine for a mapping and its translation tables.
func New(m mapping.Mapping, tables mapping.Tables) *Engine {
	if tables == nil {
		tables = mapping.Tables{}
	}
	return &Engine{mapping: m, tables: tables}
}

// Transform maps each record to zero or more output rows, preserving
// record order and within-record expansion order. Excluded records
// produce no rows; field-resolution failures produce null values, never
// aborted records.
func (e *Engine) Transform(records []models.Record) []map[string]any {
	var rows []map[string]any
	for _, rec := range records {
		flattened := Flatten(rec)
		if e.excluded(flattened) {
			slog.Debug("record excluded by mapping rule")
			continue
		}
		rows = append(rows, e.transformRecord(flattened, rec)...)
	}
	return rows
}

// transformRecord builds the output rows for one record. Scalar entries
// resolve against the flattened record; nested entries expand against the
// original record, one sub-row per element of the named collection, with
// the original record reachable through the parent marker. When any
// nested entry produced rows, those replace the scalar row entirely.
func (e *Engine) transformRecord(flattened, ctx models.Record) []map[string]any {
	scalar := make(map[string]any)
	var expanded []map[string]any

	for _, f := range e.mapping {
		if f.IsNested() {
			items, _ := ctx[f.Source].([]any)
			for _, item := range items {
				sub := make(map[string]any, len(f.Sub))
				for _, sf := range f.Sub {
					sub[sf.Dest] = e.resolve(sf, item, ctx)
				}
				expanded = append(expanded, sub)
			}
		} else {
			scalar[f.Dest] = e.resolve(f, flattened, nil)
		}
	}

	if len(expanded) > 0 {
		return expanded
	}
	return []map[string]any{scalar}
}

// resolve looks up an entry's source path and applies its translation
// table, if any. A table miss is flagged and yields null so that raw
// identifiers never leak into the output.
func (e *Engine) resolve(f mapping.Field, obj any, ctx any) any {
	raw := DotVal(obj, f.Source, ctx)
	if f.Translate == "" {
		return raw
	}
	translated, ok := e.tables.Lookup(f.Translate, Stringify(raw))
	if !ok {
		slog.Warn("translation table miss",
			"table", f.Translate,
			"source", f.Source,
			"value", Stringify(raw),
		)
		return nil
	}
	return translated
}

// excluded reports whether any mapping entry's exclusion list matches the
// record. A record is dropped when the stringified value at an entry's
// source path contains any listed substring.
func (e *Engine) excluded(flattened models.Record) bool {
	for _, f := range e.mapping {
		if len(f.Excludes) == 0 {
			continue
		}
		val := Stringify(e.resolve(f, flattened, nil))
		for _, substr := range f.Excludes {
			if substr != "" && strings.Contains(val, substr) {
				return true
			}
		}
	}
	return false
}
