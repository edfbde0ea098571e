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
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vgdata/migration/internal/mapping"
	"github.com/vgdata/migration/internal/models"
)

const dotDelimiter = "."

// DotVal resolves a dot-path against a record. Each segment is a map-key
// lookup, except the reserved parent marker, which switches resolution to
// the enclosing context record — even when the local record has a
// same-named key. Any failure (missing key, non-map value mid-path)
// yields nil rather than an error.
func DotVal(obj any, path string, ctx any) any {
	parts := strings.Split(path, dotDelimiter)
	for _, part := range parts[:len(parts)-1] {
		if part == mapping.ParentMarker {
			obj = ctx
			continue
		}
		obj = lookup(obj, part)
	}
	return lookup(obj, parts[len(parts)-1])
}

func lookup(v any, key string) any {
	switch m := v.(type) {
	case map[string]any:
		return m[key]
	case models.Record:
		return m[key]
	default:
		return nil
	}
}

// Stringify renders a field value for substring checks and CSV cells.
// Nulls become empty strings; integral JSON numbers print without a
// decimal point.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
