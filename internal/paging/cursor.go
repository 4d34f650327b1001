// Package paging walks paged remote listings.
package paging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/protocol"
)

// ErrEndOfResults is returned by Cursor.Next once the listing is exhausted.
var ErrEndOfResults = errors.New("end of results")

// DefaultMaxPages bounds Collect when no explicit limit is given.
const DefaultMaxPages = 10000

// FirstPage returns the first page index of a method family.
func FirstPage(m protocol.Method) int {
	return m.FirstPage()
}

// NormalizePage turns a requested page into an index. "all", "-1" and ""
// select the method's first page.
func NormalizePage(m protocol.Method, requested string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(requested))
	switch s {
	case "", "all", "-1":
		return m.FirstPage(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, faults.Validationf("page", "invalid page %q", requested)
	}
	return n, nil
}

// FetchFunc fetches one page of a listing.
type FetchFunc[T any] func(ctx context.Context, page int) (remote.Page[T], error)

// Cursor iterates a paged listing. The query is fixed; only the page changes.
type Cursor[T any] struct {
	method protocol.Method
	fetch  FetchFunc[T]
	next   int
	page   int
	seen   int
	done   bool
}

// New returns a cursor positioned at the method's first page.
func New[T any](m protocol.Method, fetch FetchFunc[T]) *Cursor[T] {
	return &Cursor[T]{method: m, fetch: fetch, next: m.FirstPage(), page: -1}
}

// NewAt returns a cursor starting at a requested page (see NormalizePage).
func NewAt[T any](m protocol.Method, requested string, fetch FetchFunc[T]) (*Cursor[T], error) {
	start, err := NormalizePage(m, requested)
	if err != nil {
		return nil, err
	}
	c := New(m, fetch)
	c.next = start
	return c, nil
}

// Method returns the method family the cursor pages through.
func (c *Cursor[T]) Method() protocol.Method { return c.method }

// FirstPage returns the first page index of the cursor's method family.
func (c *Cursor[T]) FirstPage() int { return c.method.FirstPage() }

// Page returns the index of the last fetched page, or -1 before the first fetch.
func (c *Cursor[T]) Page() int { return c.page }

// HasMore reports whether Next may return more items.
func (c *Cursor[T]) HasMore() bool { return !c.done }

// Next fetches the next page. A page with items is returned even when it is
// the last one; the following call returns ErrEndOfResults.
func (c *Cursor[T]) Next(ctx context.Context) (remote.Page[T], error) {
	if c.done {
		return remote.Page[T]{}, ErrEndOfResults
	}
	p, err := c.fetch(ctx, c.next)
	if err != nil {
		c.done = true
		return p, err
	}
	c.page = c.next
	c.next++
	c.seen += len(p.Items)

	if !p.Success || p.Total == nil || *p.Total == 0 || len(p.Items) == 0 || c.seen >= *p.Total {
		c.done = true
	}
	if len(p.Items) == 0 {
		return p, ErrEndOfResults
	}
	return p, nil
}

// Collect drains the cursor. maxPages <= 0 means DefaultMaxPages.
func Collect[T any](ctx context.Context, c *Cursor[T], maxPages int) ([]T, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	var out []T
	for pages := 0; ; pages++ {
		if pages == maxPages {
			return out, fmt.Errorf("%s: stopped after %d pages", c.method, maxPages)
		}
		p, err := c.Next(ctx)
		if errors.Is(err, ErrEndOfResults) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, p.Items...)
	}
}

// All fetches every page of a listing starting at the method's first page.
func All[T any](ctx context.Context, m protocol.Method, fetch FetchFunc[T]) ([]T, error) {
	return Collect(ctx, New(m, fetch), 0)
}
