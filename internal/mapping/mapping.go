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

// Package mapping loads the declarative field-mapping configuration that
// drives the transform job. A mapping is an ordered list of entries; entry
// order defines output column order.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"
)

// ParentMarker is the reserved dot-path segment that switches resolution
// to the enclosing record's context.
const ParentMarker = "_parent"

const (
	// FieldMailbox is the mailbox-identifier field. Legacy mapping files
	// rely on it being translated without declaring a table.
	FieldMailbox = "mailboxId"

	// TableMailboxes is the translation table applied to FieldMailbox by
	// default.
	TableMailboxes = "mailboxes"
)

// Field is one mapping entry. Whether it is a scalar column or a nested
// (row-expanding) mapping is decided once at load time: Sub is non-nil
// for nested entries and Dest is set for scalar ones.
type Field struct {
	Title     string
	Source    string
	Dest      string
	Excludes  []string
	Translate string // translation table name, "" = none
	Sub       []Field
}

// IsNested reports whether the entry expands one record into one output
// row per element of the collection named by Source.
func (f Field) IsNested() bool { return f.Sub != nil }

// Column returns the output column name for a scalar entry: the declared
// title, falling back to the destination key.
func (f Field) Column() string {
	if f.Title != "" {
		return f.Title
	}
	return f.Dest
}

// Mapping is an ordered field-mapping configuration.
type Mapping []Field

// Columns returns the entries that define the output header. When the
// first entry is nested, the expanded rows are the output and the header
// comes from its sub-entries.
func (m Mapping) Columns() []Field {
	if len(m) > 0 && m[0].IsNested() {
		return m[0].Sub
	}
	return m
}

// rawEntry mirrors one entry of the JSON mapping file. Dest is either a
// column name or an array of sub-entries.
type rawEntry struct {
	Title     string          `json:"title"`
	Source    string          `json:"source"`
	Dest      json.RawMessage `json:"dest"`
	Excludes  []string        `json:"excludes"`
	Translate string          `json:"translate"`
}

// Load reads a mapping configuration from a JSON file.
func Load(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("mapping file %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a mapping configuration, deciding scalar vs nested shape
// per entry up front so the transform engine never re-inspects it.
func Parse(data []byte) (Mapping, error) {
	var raw []rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse mapping JSON: %w", err)
	}
	return convertEntries(raw)
}

func convertEntries(raw []rawEntry) (Mapping, error) {
	m := make(Mapping, 0, len(raw))
	for i, e := range raw {
		f, err := convertEntry(e)
		if err != nil {
			return nil, fmt.Errorf("entry %d (source %q): %w", i, e.Source, err)
		}
		m = append(m, f)
	}
	return m, nil
}

func convertEntry(e rawEntry) (Field, error) {
	f := Field{
		Title:     e.Title,
		Source:    e.Source,
		Excludes:  e.Excludes,
		Translate: e.Translate,
	}
	if e.Source == "" {
		return Field{}, fmt.Errorf("missing source")
	}

	// Legacy mapping files expect the mailbox identifier to be translated
	// without declaring a table.
	if f.Translate == "" && e.Source == FieldMailbox {
		f.Translate = TableMailboxes
	}

	var dest string
	if err := json.Unmarshal(e.Dest, &dest); err == nil {
		if dest == "" {
			return Field{}, fmt.Errorf("empty dest")
		}
		f.Dest = dest
		return f, nil
	}

	var subRaw []rawEntry
	if err := json.Unmarshal(e.Dest, &subRaw); err == nil {
		sub, err := convertEntries(subRaw)
		if err != nil {
			return Field{}, err
		}
		if len(sub) == 0 {
			return Field{}, fmt.Errorf("nested dest has no sub-entries")
		}
		f.Sub = sub
		return f, nil
	}

	return Field{}, fmt.Errorf("dest must be a column name or an array of sub-entries")
}
