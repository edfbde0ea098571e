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

// Package models defines the record types shared between the extraction
// and transform jobs.
package models

// Wire field names used by the Help Scout API. Kept in one place so an API
// rename touches exactly one file.
const (
	KeyLinks    = "_links"
	KeyEmbedded = "_embedded"
	KeyLines    = "lines"
	KeyHref     = "href"
	KeyNext     = "next"
	KeyError    = "error"
	KeyErrorDsc = "error_description"
	KeyPhotoURL = "photoUrl"
	KeyType     = "type"
	KeyValue    = "value"
	KeyBody     = "body"
	KeySource   = "source"
	KeyAuthor   = "author"
	KeyAssignee = "assignee"
	KeyCreated  = "createdBy"
	KeyAssigned = "assignedTo"
)

// Record is a single API resource (mailbox, conversation, customer, ...)
// as decoded from JSON: values are strings, numbers, bools, nil, nested
// maps, or slices of nested values.
type Record map[string]any

// HasError reports whether the API signalled a logical error in the body,
// which Help Scout does with 200 responses too.
func (r Record) HasError() bool {
	_, ok := r[KeyError]
	return ok
}

// ErrorDescription returns the API's error description, if any.
func (r Record) ErrorDescription() string {
	if s, ok := r[KeyErrorDsc].(string); ok {
		return s
	}
	return ""
}

// LinkHref returns the href of a named hypermedia link, or "" if the
// record has no such link.
func (r Record) LinkHref(relation string) string {
	links, ok := r[KeyLinks].(map[string]any)
	if !ok {
		return ""
	}
	link, ok := links[relation].(map[string]any)
	if !ok {
		return ""
	}
	href, _ := link[KeyHref].(string)
	return href
}

// Embedded returns the embedded collection for a relation, or nil if the
// response carries no such collection.
func (r Record) Embedded(relation string) []any {
	embedded, ok := r[KeyEmbedded].(map[string]any)
	if !ok {
		return nil
	}
	items, _ := embedded[relation].([]any)
	return items
}

// WithoutKeys returns a copy of the record with the given top-level keys
// removed.
func (r Record) WithoutKeys(keys ...string) Record {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	out := make(Record, len(r))
	for k, v := range r {
		if !drop[k] {
			out[k] = v
		}
	}
	return out
}

// CleanRecords strips link metadata and photo URLs from every record.
// Run before the record set is written to the intermediate file: links are
// only meaningful during enrichment and photo URLs never migrate.
func CleanRecords(records []Record) []Record {
	cleaned := make([]Record, len(records))
	for i, rec := range records {
		cleaned[i] = rec.WithoutKeys(KeyLinks, KeyPhotoURL)
	}
	return cleaned
}
