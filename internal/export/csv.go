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

// Package export writes transformed rows as delimited tabular output.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vgdata/migration/internal/mapping"
	"github.com/vgdata/migration/internal/transform"
)

// Result summarises a completed write.
type Result struct {
	Written int
	Skipped int
}

// Write emits a header row derived from the mapping followed by one line
// per row. A row missing a field referenced by the header is skipped and
// counted, never fatal.
func Write(w io.Writer, rows []map[string]any, m mapping.Mapping) (Result, error) {
	columns := m.Columns()

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Column()
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return Result{}, fmt.Errorf("write header: %w", err)
	}

	var res Result
	for _, row := range rows {
		line := make([]string, len(columns))
		complete := true
		for i, c := range columns {
			v, ok := row[c.Dest]
			if !ok {
				complete = false
				break
			}
			line[i] = transform.Stringify(v)
		}
		if !complete {
			slog.Info("skipped row missing mapped field")
			res.Skipped++
			continue
		}
		if err := cw.Write(line); err != nil {
			return res, fmt.Errorf("write row: %w", err)
		}
		res.Written++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return res, fmt.Errorf("flush output: %w", err)
	}
	return res, nil
}

// WriteFile writes rows to a CSV file and logs the run summary.
func WriteFile(path string, rows []map[string]any, m mapping.Mapping) (Result, error) {
	f, err := os.Create(path)
	if err != nil {
		return Result{}, fmt.Errorf("create output file %s: %w", path, err)
	}
	defer f.Close()

	res, err := Write(f, rows, m)
	if err != nil {
		return res, err
	}

	slog.Info("generated CSV file",
		"file", path,
		"rows_written", res.Written,
		"rows_skipped", res.Skipped,
	)
	return res, f.Close()
}
