package competition

import (
	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	"github.com/shopspring/decimal"
)

var zeroStatistics = Statistics{AverageGoals: "0.00"}

// GroupAndScore partitions matches by competition and computes each group's
// statistics. Groups keep the order in which their first match appears and
// matches keep their input order.
func GroupAndScore(matches []match.Record) []Group {
	if len(matches) == 0 {
		return []Group{}
	}

	index := make(map[string]int, len(matches))
	out := make([]Group, 0)
	for _, item := range matches {
		key := item.CompetitionKey()
		pos, ok := index[key]
		if !ok {
			pos = len(out)
			index[key] = pos
			out = append(out, Group{
				CompetitionID:   item.CompetitionID,
				CompetitionName: item.CompetitionName,
				Logo:            item.CompetitionLogo,
			})
		}
		if out[pos].Logo == "" {
			out[pos].Logo = item.CompetitionLogo
		}
		out[pos].Matches = append(out[pos].Matches, item)
	}

	for i := range out {
		out[i].Statistics = Score(out[i].Matches)
	}
	return out
}

// Score computes statistics over matches with a nonzero combined score.
func Score(matches []match.Record) Statistics {
	var considered, btts, over15, over25, over35, total int
	for _, item := range matches {
		goals := item.Score.Total()
		if goals <= 0 {
			continue
		}
		considered++
		total += goals
		if item.Score.Home > 0 && item.Score.Away > 0 {
			btts++
		}
		if goals > 1 {
			over15++
		}
		if goals > 2 {
			over25++
		}
		if goals > 3 {
			over35++
		}
	}
	if considered == 0 {
		return zeroStatistics
	}

	return Statistics{
		BothScoredPct:     percent(btts, considered),
		Over15Pct:         percent(over15, considered),
		Over25Pct:         percent(over25, considered),
		Over35Pct:         percent(over35, considered),
		AverageGoals:      decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(considered))).StringFixed(2),
		TotalGoals:        total,
		MatchesConsidered: considered,
	}
}

// percent rounds half up; inputs are never negative.
func percent(count, considered int) int {
	return int(decimal.NewFromInt(int64(count) * 100).
		Div(decimal.NewFromInt(int64(considered))).
		Round(0).
		IntPart())
}
