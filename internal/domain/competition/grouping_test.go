package competition

import (
	"testing"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
)

func record(id, competitionID, competitionName string, home, away int) match.Record {
	return match.Record{
		ID:              id,
		CompetitionID:   competitionID,
		CompetitionName: competitionName,
		Score:           match.Score{Home: home, Away: away},
	}
}

func TestScore_IgnoresGoallessMatches(t *testing.T) {
	t.Parallel()

	stats := Score([]match.Record{
		record("1", "39", "Premier League", 2, 1),
		record("2", "39", "Premier League", 0, 0),
		record("3", "39", "Premier League", 3, 2),
	})

	if stats.MatchesConsidered != 2 {
		t.Fatalf("unexpected matches considered: %d", stats.MatchesConsidered)
	}
	if stats.BothScoredPct != 100 {
		t.Fatalf("unexpected btts pct: %d", stats.BothScoredPct)
	}
	if stats.TotalGoals != 8 {
		t.Fatalf("unexpected total goals: %d", stats.TotalGoals)
	}
	if stats.AverageGoals != "4.00" {
		t.Fatalf("unexpected average goals: %s", stats.AverageGoals)
	}
	if stats.Over15Pct != 100 || stats.Over25Pct != 100 || stats.Over35Pct != 50 {
		t.Fatalf("unexpected over pct: %d/%d/%d", stats.Over15Pct, stats.Over25Pct, stats.Over35Pct)
	}
}

func TestScore_RoundsPercentToNearest(t *testing.T) {
	t.Parallel()

	stats := Score([]match.Record{
		record("1", "39", "Premier League", 2, 1),
		record("2", "39", "Premier League", 0, 0),
		record("3", "39", "Premier League", 3, 0),
		record("4", "39", "Premier League", 1, 1),
	})
	// 2-1, 3-0 and 1-1 are considered; two of them have both sides scoring.
	if stats.MatchesConsidered != 3 {
		t.Fatalf("unexpected matches considered: %d", stats.MatchesConsidered)
	}
	if stats.BothScoredPct != 67 {
		t.Fatalf("expected 66.67 rounded up to 67, got %d", stats.BothScoredPct)
	}
	if stats.AverageGoals != "2.67" {
		t.Fatalf("unexpected average goals: %s", stats.AverageGoals)
	}
}

func TestScore_RoundsHalfUp(t *testing.T) {
	t.Parallel()

	matches := make([]match.Record, 0, 8)
	for i := 0; i < 8; i++ {
		matches = append(matches, record("m", "1", "Cup", 1, 0))
	}
	// 1 of 8 over 1.5 is 12.5%.
	matches[0].Score = match.Score{Home: 2, Away: 0}

	stats := Score(matches)
	if stats.Over15Pct != 13 {
		t.Fatalf("expected 12.5 to round to 13, got %d", stats.Over15Pct)
	}
	if stats.AverageGoals != "1.13" {
		t.Fatalf("expected 1.125 to round to 1.13, got %s", stats.AverageGoals)
	}
}

func TestScore_NoConsideredMatchesYieldsZeroBlock(t *testing.T) {
	t.Parallel()

	stats := Score([]match.Record{record("1", "39", "Premier League", 0, 0)})
	if stats != zeroStatistics {
		t.Fatalf("expected zero statistics, got %+v", stats)
	}
	if stats.MatchesConsidered != 0 || stats.BothScoredPct != 0 || stats.AverageGoals != "0.00" {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
}

func TestScore_PercentagesAreBoundedAndMonotonic(t *testing.T) {
	t.Parallel()

	scores := [][2]int{{1, 0}, {1, 1}, {2, 1}, {2, 2}, {5, 0}, {0, 3}, {0, 1}}
	matches := make([]match.Record, 0, len(scores))
	for _, score := range scores {
		matches = append(matches, record("x", "1", "Cup", score[0], score[1]))
	}

	stats := Score(matches)
	for _, pct := range []int{stats.BothScoredPct, stats.Over15Pct, stats.Over25Pct, stats.Over35Pct} {
		if pct < 0 || pct > 100 {
			t.Fatalf("percentage out of range: %d", pct)
		}
	}
	if !(stats.Over35Pct <= stats.Over25Pct && stats.Over25Pct <= stats.Over15Pct) {
		t.Fatalf("over percentages not monotonic: %+v", stats)
	}
}

func TestGroupAndScore_GroupsByIDAndKeepsOrder(t *testing.T) {
	t.Parallel()

	groups := GroupAndScore([]match.Record{
		record("1", "140", "La Liga", 1, 0),
		record("2", "39", "Premier League", 2, 2),
		record("3", "140", "La Liga", 0, 0),
	})

	if len(groups) != 2 {
		t.Fatalf("unexpected group count: %d", len(groups))
	}
	if groups[0].CompetitionID != "140" || groups[1].CompetitionID != "39" {
		t.Fatalf("unexpected group order: %s, %s", groups[0].CompetitionID, groups[1].CompetitionID)
	}
	if len(groups[0].Matches) != 2 || groups[0].Matches[0].ID != "1" || groups[0].Matches[1].ID != "3" {
		t.Fatalf("unexpected matches in first group: %+v", groups[0].Matches)
	}
	if groups[0].Statistics.MatchesConsidered != 1 {
		t.Fatalf("unexpected considered count: %d", groups[0].Statistics.MatchesConsidered)
	}
}

func TestGroupAndScore_SameNameDifferentIDsStayDistinct(t *testing.T) {
	t.Parallel()

	groups := GroupAndScore([]match.Record{
		record("1", "", "Friendlies", 1, 0),
		record("2", "", "Friendlies", 2, 0),
		record("3", "667", "Friendlies", 1, 1),
		record("4", "10", "Friendlies", 0, 0),
	})

	if len(groups) != 3 {
		t.Fatalf("expected name fallback group plus two id groups, got %d", len(groups))
	}
	if groups[0].CompetitionID != "" || len(groups[0].Matches) != 2 {
		t.Fatalf("unexpected name fallback group: %+v", groups[0])
	}
}

func TestGroupAndScore_Empty(t *testing.T) {
	t.Parallel()

	groups := GroupAndScore(nil)
	if groups == nil || len(groups) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", groups)
	}
}
