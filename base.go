package deta

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
)

// Item is a single Base document: a JSON object addressed by its "key"
// field. Callers that prefer typed documents can pass their own structs
// to Put/Insert and decode Get results into them.
type Item map[string]any

// Key returns the item's "key" field, or "" if absent or not a string.
func (it Item) Key() string {
	key, _ := it["key"].(string)
	return key
}

// ErrEmptyKey is returned by key-addressed Base operations when the key
// is the empty string.
var ErrEmptyKey = errors.New("deta: key must not be empty")

// Base is a handle for one Deta Base (hosted NoSQL document store).
// It holds no state beyond the endpoint and credentials, and is safe
// for concurrent use.
type Base struct {
	name string
	rest *restClient
}

// Name returns the Base name this handle is bound to.
func (b *Base) Name() string {
	return b.name
}

// itemsEnvelope mirrors the {"items": [...]} wrapper used in several
// Base API request and response bodies.
type itemsEnvelope struct {
	Items []Item `json:"items"`
}

type putItemsRequest struct {
	Items []any `json:"items"`
}

type putItemsResponse struct {
	Processed itemsEnvelope  `json:"processed"`
	Failed    *itemsEnvelope `json:"failed"`
}

// PutOutput reports the result of a batch Put: the items the service
// stored and the ones it rejected.
type PutOutput struct {
	Processed []Item
	Failed    []Item
}

// Put creates or overwrites items, depending on whether an item with
// the same key already exists. Items without a "key" field get a
// server-generated key. Up to 25 items per call (vendor limit).
func (b *Base) Put(ctx context.Context, items ...any) (*PutOutput, error) {
	b.rest.logger.Debug("putting items",
		slog.String("base", b.name),
		slog.Int("count", len(items)),
	)

	var resp putItemsResponse
	if err := b.rest.doJSON(ctx, http.MethodPut, "/items", putItemsRequest{Items: items}, &resp, true); err != nil {
		return nil, err
	}

	out := &PutOutput{Processed: resp.Processed.Items}
	if resp.Failed != nil {
		out.Failed = resp.Failed.Items
	}

	return out, nil
}

type insertItemRequest struct {
	Item any `json:"item"`
}

// Insert adds a new item. If an item with the same key already exists,
// Insert fails with ErrConflict. Unlike Put, Insert is never retried
// automatically: a duplicate send of a keyless item would create a
// second item.
func (b *Base) Insert(ctx context.Context, item any) (Item, error) {
	b.rest.logger.Debug("inserting item", slog.String("base", b.name))

	var stored Item
	if err := b.rest.doJSON(ctx, http.MethodPost, "/items", insertItemRequest{Item: item}, &stored, false); err != nil {
		return nil, err
	}

	return stored, nil
}

// Get fetches the item with the given key and decodes it into dest.
// Returns ErrNotFound if no such item exists.
func (b *Base) Get(ctx context.Context, key string, dest any) error {
	if key == "" {
		return ErrEmptyKey
	}

	b.rest.logger.Debug("getting item",
		slog.String("base", b.name),
		slog.String("key", key),
	)

	return b.rest.doJSON(ctx, http.MethodGet, "/items/"+url.PathEscape(key), nil, dest, true)
}

type deleteItemResponse struct {
	Key string `json:"key"`
}

// Delete removes the item with the given key. Deleting an absent key
// is not an error; the operation is idempotent.
func (b *Base) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	b.rest.logger.Debug("deleting item",
		slog.String("base", b.name),
		slog.String("key", key),
	)

	var resp deleteItemResponse

	return b.rest.doJSON(ctx, http.MethodDelete, "/items/"+url.PathEscape(key), nil, &resp, true)
}

// UpdateOutput echoes the update the service applied to an item.
type UpdateOutput struct {
	Key       string         `json:"key"`
	Set       map[string]any `json:"set"`
	Increment map[string]int `json:"increment"`
	Append    map[string]any `json:"append"`
	Prepend   map[string]any `json:"prepend"`
	Delete    []string       `json:"delete"`
}

// Update applies the given update actions to the item with the given
// key. Returns ErrNotFound if no such item exists. Updates are not
// retried automatically: resending an increment would apply it twice.
func (b *Base) Update(ctx context.Context, key string, updates *Updates) (*UpdateOutput, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	b.rest.logger.Debug("updating item",
		slog.String("base", b.name),
		slog.String("key", key),
	)

	var out UpdateOutput
	if err := b.rest.doJSON(ctx, http.MethodPatch, "/items/"+url.PathEscape(key), updates.render(), &out, false); err != nil {
		return nil, err
	}

	return &out, nil
}

// FetchInput holds the parameters of a single Fetch page request.
type FetchInput struct {
	// Query filters the returned items. A nil Query matches everything.
	Query *Query
	// Limit caps the number of items per page. 0 means the server default.
	Limit int
	// Last is the pagination cursor from the previous page's Paging.Last.
	Last string
}

// Paging carries the pagination state returned with a fetch page.
type Paging struct {
	Size int    `json:"size"`
	Last string `json:"last"`
}

// FetchOutput is one page of fetch results. A non-empty Paging.Last
// means more pages exist.
type FetchOutput struct {
	Items  []Item `json:"items"`
	Paging Paging `json:"paging"`
}

type queryRequest struct {
	Query []map[string]any `json:"query,omitempty"`
	Limit int              `json:"limit,omitempty"`
	Last  string           `json:"last,omitempty"`
}

// Fetch returns a single page of items matching the query. Callers
// that want the whole result set should use List, which follows
// pagination cursors transparently.
func (b *Base) Fetch(ctx context.Context, input *FetchInput) (*FetchOutput, error) {
	if input == nil {
		input = &FetchInput{}
	}

	b.rest.logger.Debug("fetching items",
		slog.String("base", b.name),
		slog.Int("limit", input.Limit),
		slog.Bool("has_cursor", input.Last != ""),
	)

	req := queryRequest{Limit: input.Limit, Last: input.Last}
	if input.Query != nil {
		req.Query = input.Query.render()
	}

	var out FetchOutput
	if err := b.rest.doJSON(ctx, http.MethodPost, "/query", req, &out, true); err != nil {
		return nil, err
	}

	return &out, nil
}

// List returns an iterator over all items matching the query, fetching
// pages on demand and following pagination cursors transparently.
// Each call to List starts over from the first page.
func (b *Base) List(input *FetchInput) *Iterator {
	if input == nil {
		input = &FetchInput{}
	}

	return &Iterator{base: b, input: *input}
}
