package events

import (
	"context"
	"errors"
	"strings"

	"github.com/fruitsalade/silosync/pkg/models"
)

// ErrNoMatch is returned when no event satisfies a query.
var ErrNoMatch = errors.New("no matching event")

// UsernameFunc returns the username of a user id.
type UsernameFunc func(ctx context.Context, userID int64) (string, error)

// Match filters events, which must be ordered newest first. It returns
// ErrNoMatch instead of an empty result.
func Match(events []models.Event, q Query) ([]models.Event, error) {
	return MatchWith(context.Background(), events, q, nil)
}

// MatchWith is Match with a username lookup for events that carry a user id.
func MatchWith(ctx context.Context, events []models.Event, q Query, usernames UsernameFunc) ([]models.Event, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	m := newMatcher(q, usernames)
	for _, e := range events {
		stop, err := m.offer(ctx, e)
		if err != nil {
			return nil, err
		}
		if stop {
			break
		}
	}
	return m.result()
}

// matcher consumes events newest first and keeps what the occurrence
// selector asks for.
type matcher struct {
	q         Query
	usernames UsernameFunc
	matches   []models.Event
	count     int
}

func newMatcher(q Query, usernames UsernameFunc) *matcher {
	return &matcher{q: q, usernames: usernames}
}

// offer reports whether the scan can stop.
func (m *matcher) offer(ctx context.Context, e models.Event) (bool, error) {
	ok, err := m.accepts(ctx, e)
	if err != nil || !ok {
		return false, err
	}
	m.count++
	switch occ := m.q.Occurrence; {
	case occ == All:
		m.matches = append(m.matches, e)
	case occ == Last:
		m.matches = []models.Event{e}
	case m.count == int(occ):
		m.matches = []models.Event{e}
		return true, nil
	}
	return false, nil
}

func (m *matcher) result() ([]models.Event, error) {
	if len(m.matches) == 0 {
		return nil, ErrNoMatch
	}
	return m.matches, nil
}

func (m *matcher) accepts(ctx context.Context, e models.Event) (bool, error) {
	q := m.q
	if !q.matchCode(e.Code) {
		return false, nil
	}
	if q.Window != nil && !q.Window.Contains(e.Created) {
		return false, nil
	}
	if q.Descriptive == nil || q.Descriptive.empty() {
		return true, nil
	}

	want := *q.Descriptive
	got, parsed := ParseDescription(e.Description)
	if want.Username != "" && e.UserID != 0 && m.usernames != nil {
		name, err := m.usernames(ctx, e.UserID)
		if err != nil {
			return false, err
		}
		got.Username = name
		parsed = true
	}
	if !parsed {
		return false, nil
	}
	return field(want.Username, got.Username) &&
		field(want.Action, got.Action) &&
		field(want.Object1, got.Object1) &&
		field(want.Object2, got.Object2), nil
}

func field(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}
