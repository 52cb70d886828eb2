package competition

import "github.com/mastermhp/Live-Baz-sub000/internal/domain/match"

// Statistics is derived from the scored matches of one group.
type Statistics struct {
	BothScoredPct     int    `json:"bttsPct"`
	Over15Pct         int    `json:"over15Pct"`
	Over25Pct         int    `json:"over25Pct"`
	Over35Pct         int    `json:"over35Pct"`
	AverageGoals      string `json:"averageGoals"`
	TotalGoals        int    `json:"totalGoals"`
	MatchesConsidered int    `json:"matchesConsidered"`
}

// Group collects the matches of one competition for a single cycle.
type Group struct {
	CompetitionID   string         `json:"competitionId,omitempty"`
	CompetitionName string         `json:"competitionName"`
	Logo            string         `json:"logo,omitempty"`
	Matches         []match.Record `json:"matches"`
	Statistics      Statistics     `json:"statistics"`
}
