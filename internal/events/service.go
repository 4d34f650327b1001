package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/internal/metrics"
	"github.com/fruitsalade/silosync/internal/paging"
	"github.com/fruitsalade/silosync/internal/remote"
	"github.com/fruitsalade/silosync/pkg/cache"
	"github.com/fruitsalade/silosync/pkg/models"
	"github.com/fruitsalade/silosync/pkg/protocol"
)

// Service searches the remote event log.
type Service struct {
	store    remote.EventStore
	logger   *zap.Logger
	maxPages int

	userCacheSize int
	userCacheTTL  time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithUserCache bounds the per-search user lookup cache. A size of 0 keeps
// every user; a ttl of 0 never expires them.
func WithUserCache(size int, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.userCacheSize = size
		s.userCacheTTL = ttl
	}
}

// NewService returns a search service. A nil logger discards output.
func NewService(store remote.EventStore, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: logging.OrNop(logger), maxPages: paging.DefaultMaxPages}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search pages through the event log, newest first, and applies q. Paging
// stops as soon as the occurrence selector is satisfied. With the default
// unbounded cache each user record is looked up at most once per search.
func (s *Service) Search(ctx context.Context, q Query) ([]models.Event, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	users := cache.New[int64, models.User](s.userCacheSize, cache.WithTTL(s.userCacheTTL))
	lookup := func(ctx context.Context, id int64) (string, error) {
		u, err := users.GetOrLoad(ctx, id, s.store.UserGet)
		if err != nil {
			return "", faults.Wrap(err, fmt.Sprintf("look up user %d", id))
		}
		return u.Username, nil
	}

	m := newMatcher(q, lookup)
	cursor := paging.New(protocol.EventGetAll, func(ctx context.Context, page int) (remote.Page[models.Event], error) {
		return s.store.EventList(ctx, page)
	})

	scanned := 0
	for pages := 0; ; pages++ {
		if pages == s.maxPages {
			metrics.RecordEventSearch("error")
			return nil, fmt.Errorf("%s: stopped after %d pages", protocol.EventGetAll, s.maxPages)
		}
		page, err := cursor.Next(ctx)
		if errors.Is(err, paging.ErrEndOfResults) {
			break
		}
		if err != nil {
			metrics.RecordEventSearch("error")
			return nil, faults.Wrap(err, "list events")
		}
		stop, err := s.offer(ctx, m, page.Items)
		scanned += len(page.Items)
		if err != nil {
			metrics.RecordEventSearch("error")
			return nil, err
		}
		if stop {
			break
		}
	}

	st := users.Stats()
	s.logger.Debug("event search finished",
		zap.Int("scanned", scanned),
		zap.Int("pages", cursor.Page()+1-cursor.FirstPage()),
		zap.Int("user_lookups", st.Misses),
		zap.Int("user_cache_hits", st.Hits),
		zap.Int("users_cached", st.Entries),
		zap.Stringer("occurrence", q.Occurrence),
	)

	matches, err := m.result()
	if err != nil {
		metrics.RecordEventSearch("no_match")
		return nil, err
	}
	metrics.RecordEventSearch("match")
	return matches, nil
}

func (s *Service) offer(ctx context.Context, m *matcher, events []models.Event) (bool, error) {
	for _, e := range events {
		stop, err := m.offer(ctx, e)
		if err != nil || stop {
			return stop, err
		}
	}
	return false, nil
}
