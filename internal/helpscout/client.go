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
	"log/slog"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/vgdata/migration/internal/config"
	"github.com/vgdata/migration/internal/models"
)

// ResourceType identifies an API collection. The string value is the wire
// name: it appears both in listing URLs and as the _embedded key.
type ResourceType string

const (
	ResourceUsers         ResourceType = "users"
	ResourceCustomers     ResourceType = "customers"
	ResourceConversations ResourceType = "conversations"
	ResourceMailboxes     ResourceType = "mailboxes"
)

// relationThreads gets a different enrichment projection than the other
// nested relations.
const relationThreads = "threads"

// threadTypesToKeep filters message threads during enrichment.
var threadTypesToKeep = map[string]bool{"message": true, "customer": true}

// Client walks paginated resource collections and enriches each record
// with its linked sub-resources.
type Client struct {
	fetcher         *Fetcher
	baseURL         string
	limiter         *rate.Limiter
	nestedRelations []string
}

// NewClient creates a client over the given fetcher. requestsPerSecond
// throttles page and sub-resource fetches (Help Scout allows 10/s).
func NewClient(fetcher *Fetcher, baseURL string, requestsPerSecond int, nestedRelations []string) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	if nestedRelations == nil {
		nestedRelations = config.DefaultNestedRelations
	}
	return &Client{
		fetcher:         fetcher,
		baseURL:         baseURL,
		limiter:         rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		nestedRelations: nestedRelations,
	}
}

// GetRecords fetches the first page of a resource collection, without
// pagination or enrichment.
func (c *Client) GetRecords(ctx context.Context, resource ResourceType, params url.Values) (models.Record, error) {
	u := c.baseURL + "/" + string(resource)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.fetcher.Fetch(ctx, u)
}

// GetAllRecords fetches every page of a resource collection and enriches
// each record with its linked sub-resources. A logical API error is logged
// and yields an empty result, not an error — callers must check for empty
// output explicitly. A fetch failure (retry cap exceeded) is an error.
func (c *Client) GetAllRecords(ctx context.Context, resource ResourceType, params url.Values) ([]models.Record, error) {
	page, err := c.GetRecords(ctx, resource, params)
	if err != nil {
		return nil, err
	}
	if page.HasError() {
		slog.Error("API returned error", "resource", resource, "description", page.ErrorDescription())
		return nil, nil
	}

	var records []models.Record
	pageCount := 0
	for {
		records = append(records, embeddedRecords(page, string(resource))...)
		pageCount++

		next := page.LinkHref(models.KeyNext)
		if next == "" {
			break
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err = c.fetcher.Fetch(ctx, next)
		if err != nil {
			return nil, err
		}
		if page.HasError() {
			slog.Error("API returned error on page", "resource", resource, "page", pageCount+1, "description", page.ErrorDescription())
			break
		}
	}

	enriched := make([]models.Record, len(records))
	for i, rec := range records {
		enriched[i] = c.addNestedData(ctx, rec)
	}

	slog.Info("fetched records",
		"resource", resource,
		"count", len(enriched),
		"pages", pageCount,
	)
	return enriched, nil
}

// GetMailboxIDs returns the id of every mailbox, or nil if the mailbox
// fetch failed.
func (c *Client) GetMailboxIDs(ctx context.Context) []int64 {
	page, err := c.GetRecords(ctx, ResourceMailboxes, nil)
	if err != nil {
		slog.Error("mailbox fetch failed", "error", err)
		return nil
	}
	if page.HasError() {
		slog.Error("API returned error", "resource", ResourceMailboxes, "description", page.ErrorDescription())
		return nil
	}

	var ids []int64
	for _, rec := range embeddedRecords(page, string(ResourceMailboxes)) {
		if id, ok := rec["id"].(float64); ok {
			ids = append(ids, int64(id))
		}
	}
	return ids
}

// addNestedData fetches each linked sub-resource the record advertises and
// attaches the projected collection under the relation name. Enrichment is
// best-effort: a failed or unrecognised sub-resource leaves the relation
// unset.
func (c *Client) addNestedData(ctx context.Context, rec models.Record) models.Record {
	enriched := make(models.Record, len(rec)+len(c.nestedRelations))
	for k, v := range rec {
		enriched[k] = v
	}

	for _, relation := range c.nestedRelations {
		href := rec.LinkHref(relation)
		if href == "" {
			continue
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return enriched
		}
		resp, err := c.fetcher.Fetch(ctx, href)
		if err != nil {
			slog.Warn("sub-resource fetch failed", "relation", relation, "url", href, "error", err)
			continue
		}

		if items := resp.Embedded(relation); items != nil {
			enriched[relation] = projectNested(relation, items)
		} else if lines, ok := resp[models.KeyLines].([]any); ok {
			// Address responses carry a flat lines collection instead of
			// an embedded one; used verbatim.
			enriched[relation] = lines
		}
	}
	return enriched
}

// projectNested keeps only the fields that migrate. Threads keep author,
// assignee, body and source for message/customer entries; every other
// relation keeps type and value pairs.
func projectNested(relation string, items []any) []any {
	projected := make([]any, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if relation == relationThreads {
			entryType, _ := entry[models.KeyType].(string)
			if !threadTypesToKeep[entryType] {
				continue
			}
			projected = append(projected, map[string]any{
				models.KeyAuthor:   entry[models.KeyCreated],
				models.KeyAssignee: entry[models.KeyAssigned],
				models.KeyBody:     entry[models.KeyBody],
				models.KeySource:   entry[models.KeySource],
			})
		} else {
			projected = append(projected, map[string]any{
				models.KeyType:  entry[models.KeyType],
				models.KeyValue: entry[models.KeyValue],
			})
		}
	}
	return projected
}

// embeddedRecords extracts the embedded collection for a resource from a
// page response.
func embeddedRecords(page models.Record, resource string) []models.Record {
	items := page.Embedded(resource)
	records := make([]models.Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			records = append(records, models.Record(m))
		}
	}
	return records
}
