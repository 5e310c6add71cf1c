package deta

import (
	"context"
	"errors"
)

// Done is returned by Next when the iteration is complete.
var Done = errors.New("deta: no more results")

// Iterator walks a Base query result set page by page. Pages are
// fetched lazily: the first request happens on the first Next call,
// and subsequent pages are requested only when the buffered page is
// exhausted. An Iterator is not safe for concurrent use; create a
// fresh one per goroutine (and to restart from the first page).
type Iterator struct {
	base  *Base
	input FetchInput

	buf       []Item
	pos       int
	exhausted bool
	err       error
}

// Next returns the next item in the result set. When the result set is
// exhausted it returns Done. Once Next returns a non-nil error, every
// subsequent call returns the same error.
func (it *Iterator) Next(ctx context.Context) (Item, error) {
	if it.err != nil {
		return nil, it.err
	}

	for it.pos >= len(it.buf) {
		if it.exhausted {
			it.err = Done
			return nil, Done
		}

		if err := it.fetchPage(ctx); err != nil {
			it.err = err
			return nil, err
		}
	}

	item := it.buf[it.pos]
	it.pos++

	return item, nil
}

// fetchPage requests the next page and resets the buffer. A page with
// no cursor marks the iteration as exhausted; empty pages with a
// cursor are skipped by the caller's loop.
func (it *Iterator) fetchPage(ctx context.Context) error {
	out, err := it.base.Fetch(ctx, &it.input)
	if err != nil {
		return err
	}

	it.buf = out.Items
	it.pos = 0

	if out.Paging.Last == "" {
		it.exhausted = true
	} else {
		it.input.Last = out.Paging.Last
	}

	return nil
}
