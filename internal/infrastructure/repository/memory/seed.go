package memory

import (
	"time"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
)

const (
	LeagueIDLiga1Indonesia = "274"
	LeagueIDPremierLeague  = "39"
)

var (
	seedLiga1 = match.LeagueRef{ID: LeagueIDLiga1Indonesia, Name: "Liga 1 Indonesia"}
	seedEPL   = match.LeagueRef{ID: LeagueIDPremierLeague, Name: "Premier League"}
)

// SeedMatches returns a small local catalog positioned around now so that
// every class has something to show on a dev instance.
func SeedMatches(now time.Time) []match.LocalDocument {
	day := now.UTC().Truncate(time.Hour)
	score := func(v int) *int { return &v }

	return []match.LocalDocument{
		{
			ID:        "local-idn-001",
			League:    seedLiga1,
			HomeTeam:  match.TeamRef{ID: "idn-persija", Name: "Persija Jakarta"},
			AwayTeam:  match.TeamRef{ID: "idn-persib", Name: "Persib Bandung"},
			Status:    "live",
			HomeScore: score(1),
			AwayScore: score(0),
			Minute:    score(34),
			Venue:     "Jakarta International Stadium",
			Date:      day.Add(-40 * time.Minute).Format(time.RFC3339),
		},
		{
			ID:       "local-idn-002",
			League:   seedLiga1,
			HomeTeam: match.TeamRef{ID: "idn-persebaya", Name: "Persebaya Surabaya"},
			AwayTeam: match.TeamRef{ID: "idn-baliutd", Name: "Bali United"},
			Status:   "scheduled",
			Venue:    "Gelora Bung Tomo",
			Date:     day.Add(26 * time.Hour).Format(time.RFC3339),
		},
		{
			ID:        "local-idn-003",
			League:    seedLiga1,
			HomeTeam:  match.TeamRef{ID: "idn-persib", Name: "Persib Bandung"},
			AwayTeam:  match.TeamRef{ID: "idn-persebaya", Name: "Persebaya Surabaya"},
			Status:    "FT",
			HomeScore: score(2),
			AwayScore: score(2),
			Venue:     "Gelora Bandung Lautan Api",
			Date:      day.Add(-30 * time.Hour).Format(time.RFC3339),
		},
		{
			ID:        "local-eng-001",
			FixtureID: "1208021",
			League:    seedEPL,
			HomeTeam:  match.TeamRef{ID: "42", Name: "Arsenal"},
			AwayTeam:  match.TeamRef{ID: "40", Name: "Liverpool"},
			Status:    "upcoming",
			Venue:     "Emirates Stadium",
			Referee:   "Michael Oliver",
			Date:      day.Add(50 * time.Hour).Format(time.RFC3339),
		},
	}
}
