package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/competition"
	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
)

// SnapshotSource is the read side of the scheduler.
type SnapshotSource interface {
	Snapshot(class match.Class) (MatchFeedSnapshot, bool)
}

type MatchFeedView struct {
	Class        match.Class         `json:"class"`
	GeneratedAt  time.Time           `json:"generatedAt"`
	Degraded     bool                `json:"degraded"`
	Matches      []match.Record      `json:"matches"`
	Competitions []competition.Group `json:"competitions"`
}

// MatchFeedService serves polling reads from the published snapshots. It
// never triggers a fetch.
type MatchFeedService struct {
	source SnapshotSource
	now    func() time.Time
}

func NewMatchFeedService(source SnapshotSource) *MatchFeedService {
	return &MatchFeedService{source: source, now: time.Now}
}

// List returns the class snapshot. A positive windowDays narrows upcoming
// matches to the next windowDays days and finished matches to the last
// windowDays days; it is ignored for the live class.
func (s *MatchFeedService) List(ctx context.Context, class match.Class, windowDays int) (MatchFeedView, error) {
	_, span := startUsecaseSpan(ctx, "usecase.MatchFeedService.List")
	defer span.End()

	if _, ok := match.ParseClass(string(class)); !ok {
		return MatchFeedView{}, fmt.Errorf("%w: unknown class %q", ErrInvalidInput, class)
	}
	if windowDays < 0 {
		return MatchFeedView{}, fmt.Errorf("%w: window must be >= 0", ErrInvalidInput)
	}

	snap, ok := s.source.Snapshot(class)
	if !ok {
		return MatchFeedView{
			Class:        class,
			Matches:      []match.Record{},
			Competitions: []competition.Group{},
		}, nil
	}

	matches := snap.Matches
	groups := snap.Competitions
	if windowDays > 0 && class != match.ClassLive {
		matches = narrowWindow(snap.Matches, class, s.now().UTC(), windowDays)
		groups = competition.GroupAndScore(matches)
	}
	if matches == nil {
		matches = []match.Record{}
	}
	if groups == nil {
		groups = []competition.Group{}
	}

	return MatchFeedView{
		Class:        class,
		GeneratedAt:  snap.GeneratedAt,
		Degraded:     snap.Degraded,
		Matches:      matches,
		Competitions: groups,
	}, nil
}

// GetByID looks a match up across every class snapshot, live first.
func (s *MatchFeedService) GetByID(ctx context.Context, matchID string) (match.Record, error) {
	_, span := startUsecaseSpan(ctx, "usecase.MatchFeedService.GetByID")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return match.Record{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	for _, class := range match.Classes {
		snap, ok := s.source.Snapshot(class)
		if !ok {
			continue
		}
		for _, record := range snap.Matches {
			if record.ID == matchID {
				return record.Clone(), nil
			}
		}
	}
	return match.Record{}, fmt.Errorf("%w: match id=%s", ErrNotFound, matchID)
}

func narrowWindow(records []match.Record, class match.Class, now time.Time, days int) []match.Record {
	from := startOfDay(now)
	to := from.AddDate(0, 0, days)
	if class == match.ClassFinished {
		to = from.AddDate(0, 0, 1)
		from = from.AddDate(0, 0, -days)
	}

	out := make([]match.Record, 0, len(records))
	for _, record := range records {
		if !record.StartTime.IsZero() && (record.StartTime.Before(from) || !record.StartTime.Before(to)) {
			continue
		}
		out = append(out, record)
	}
	return out
}
