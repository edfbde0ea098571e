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

package mapping

// Tables is the registry of value-translation tables declared in config,
// keyed by table name then raw field value.
type Tables map[string]map[string]string

// Lookup translates a raw value through a named table. The second result
// is false when the table does not exist or the value is not mapped.
func (t Tables) Lookup(table, raw string) (string, bool) {
	entries, ok := t[table]
	if !ok {
		return "", false
	}
	v, ok := entries[raw]
	return v, ok
}
