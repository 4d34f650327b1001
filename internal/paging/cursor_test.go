package paging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/protocol"
)

// pagedSource serves items in pages of size, counting from first.
type pagedSource struct {
	items     []int
	size      int
	first     int
	omitTotal bool
	fail      bool
	requested []int
}

func (s *pagedSource) fetch(ctx context.Context, page int) (remote.Page[int], error) {
	s.requested = append(s.requested, page)
	if s.fail {
		return remote.Page[int]{Success: false}, nil
	}
	total := len(s.items)
	p := remote.Page[int]{Success: true}
	if !s.omitTotal {
		p.Total = &total
	}
	start := (page - s.first) * s.size
	if start >= 0 && start < total {
		end := start + s.size
		if end > total {
			end = total
		}
		p.Items = s.items[start:end]
	}
	return p, nil
}

func TestFirstPageTable(t *testing.T) {
	assert.Equal(t, 0, FirstPage(protocol.AssetSearch))
	assert.Equal(t, 0, FirstPage(protocol.AssetAdvancedSearch))
	assert.Equal(t, 1, FirstPage(protocol.AssetGetByFolderID))
	assert.Equal(t, 1, FirstPage(protocol.EventGetAll))
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		method    protocol.Method
		requested string
		want      int
		wantErr   bool
	}{
		{protocol.AssetAdvancedSearch, "all", 0, false},
		{protocol.AssetAdvancedSearch, "-1", 0, false},
		{protocol.AssetAdvancedSearch, "", 0, false},
		{protocol.AssetGetByProjectID, "ALL", 1, false},
		{protocol.AssetGetByProjectID, "-1", 1, false},
		{protocol.AssetGetByProjectID, "3", 3, false},
		{protocol.AssetGetByProjectID, "-4", 0, true},
		{protocol.AssetGetByProjectID, "two", 0, true},
	}
	for _, tt := range tests {
		got, err := NormalizePage(tt.method, tt.requested)
		if tt.wantErr {
			assert.True(t, faults.Is(err, faults.Validation), "%s %q", tt.method, tt.requested)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %q", tt.method, tt.requested)
	}
}

func TestCursorIncrementsByOne(t *testing.T) {
	src := &pagedSource{items: []int{1, 2, 3, 4, 5}, size: 2, first: 0}
	c := New(protocol.AssetAdvancedSearch, src.fetch)

	items, err := Collect(context.Background(), c, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items)
	assert.Equal(t, []int{0, 1, 2}, src.requested)
	assert.Equal(t, 2, c.Page())
	assert.False(t, c.HasMore())

	_, err = c.Next(context.Background())
	assert.ErrorIs(t, err, ErrEndOfResults)
}

func TestCursorStartsAtOneForListings(t *testing.T) {
	src := &pagedSource{items: []int{1, 2, 3}, size: 2, first: 1}
	items, err := All(context.Background(), protocol.AssetGetByFolderID, src.fetch)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, items)
	assert.Equal(t, []int{1, 2}, src.requested)
}

func TestCursorStopsOnAbsentTotal(t *testing.T) {
	src := &pagedSource{items: []int{1, 2, 3, 4}, size: 2, first: 1, omitTotal: true}
	items, err := All(context.Background(), protocol.AssetGetByProjectID, src.fetch)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, items)
	assert.Equal(t, []int{1}, src.requested)
}

func TestCursorStopsOnFailure(t *testing.T) {
	src := &pagedSource{items: []int{1}, size: 2, first: 1, fail: true}
	items, err := All(context.Background(), protocol.AssetGetByProjectID, src.fetch)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Len(t, src.requested, 1)
}

func TestCursorZeroTotal(t *testing.T) {
	src := &pagedSource{size: 2, first: 0}
	c := New(protocol.AssetSearch, src.fetch)
	_, err := c.Next(context.Background())
	assert.ErrorIs(t, err, ErrEndOfResults)
	assert.False(t, c.HasMore())
}

func TestNewAt(t *testing.T) {
	src := &pagedSource{items: []int{1, 2, 3, 4, 5}, size: 2, first: 1}
	c, err := NewAt(protocol.AssetGetByFolderID, "2", src.fetch)
	require.NoError(t, err)
	p, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4}, p.Items)

	_, err = NewAt(protocol.AssetGetByFolderID, "x", src.fetch)
	assert.Error(t, err)
}

func TestCollectFetchError(t *testing.T) {
	boom := errors.New("boom")
	c := New(protocol.EventGetAll, func(ctx context.Context, page int) (remote.Page[int], error) {
		return remote.Page[int]{}, boom
	})
	_, err := Collect(context.Background(), c, 0)
	assert.ErrorIs(t, err, boom)
}

func TestCollectMaxPages(t *testing.T) {
	src := &pagedSource{items: []int{1, 2, 3, 4, 5}, size: 1, first: 1}
	items, err := Collect(context.Background(), New(protocol.EventGetAll, src.fetch), 2)
	assert.Error(t, err)
	assert.Equal(t, []int{1, 2}, items)
}
