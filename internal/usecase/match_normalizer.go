package usecase

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
)

// RawMatch is a tagged variant over the two input shapes. Exactly one of
// Provider or Local is set, matching Source.
type RawMatch struct {
	Source   match.Source
	Provider *match.ProviderFixture
	Local    *match.LocalDocument
}

func ProviderRawMatch(item match.ProviderFixture) RawMatch {
	return RawMatch{Source: match.SourceProvider, Provider: &item}
}

func LocalRawMatch(item match.LocalDocument) RawMatch {
	return RawMatch{Source: match.SourceLocal, Local: &item}
}

// DropHook is notified for every raw record the normalizer rejects.
type DropHook func(source match.Source, err error)

type MatchNormalizer struct {
	logger *logging.Logger
	onDrop DropHook
}

func NewMatchNormalizer(logger *logging.Logger, onDrop DropHook) *MatchNormalizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &MatchNormalizer{logger: logger, onDrop: onDrop}
}

// NormalizeAll converts raw items and drops the malformed ones.
func (n *MatchNormalizer) NormalizeAll(ctx context.Context, items []RawMatch) []match.Record {
	out := make([]match.Record, 0, len(items))
	for _, item := range items {
		record, err := NormalizeMatch(item)
		if err != nil {
			n.logger.WarnContext(ctx, "drop malformed match record",
				"source", string(item.Source),
				"error", err,
			)
			if n.onDrop != nil {
				n.onDrop(item.Source, err)
			}
			continue
		}
		out = append(out, record)
	}
	return out
}

// NormalizeMatch converts one raw item into a canonical record.
func NormalizeMatch(raw RawMatch) (match.Record, error) {
	switch {
	case raw.Source == match.SourceProvider && raw.Provider != nil:
		return normalizeProviderFixture(*raw.Provider)
	case raw.Source == match.SourceLocal && raw.Local != nil:
		return normalizeLocalDocument(*raw.Local)
	default:
		return match.Record{}, fmt.Errorf("%w: unknown variant %q", ErrMalformedRecord, raw.Source)
	}
}

func normalizeProviderFixture(item match.ProviderFixture) (match.Record, error) {
	if item.Fixture.ID <= 0 {
		return match.Record{}, fmt.Errorf("%w: provider fixture without id", ErrMalformedRecord)
	}

	status := match.StatusFromProviderCode(item.Fixture.Status.Short)
	record := match.Record{
		ID:              strconv.FormatInt(item.Fixture.ID, 10),
		Source:          match.SourceProvider,
		CompetitionID:   formatOptionalID(item.League.ID),
		CompetitionName: strings.TrimSpace(item.League.Name),
		CompetitionLogo: strings.TrimSpace(item.League.Logo),
		Home:            providerParticipant(item.Teams.Home),
		Away:            providerParticipant(item.Teams.Away),
		Status:          status,
		Score: match.Score{
			Home: intOrZero(item.Goals.Home),
			Away: intOrZero(item.Goals.Away),
		},
		Referee:    stringOrEmpty(item.Fixture.Referee),
		Statistics: providerStatistics(item),
	}
	if item.Fixture.Timestamp > 0 {
		record.StartTime = time.Unix(item.Fixture.Timestamp, 0).UTC()
	}
	if item.Fixture.Venue != nil {
		record.Venue = stringOrEmpty(item.Fixture.Venue.Name)
	}
	if status == match.StatusLive {
		record.Elapsed = copyInt(item.Fixture.Status.Elapsed)
	}
	return record, nil
}

func normalizeLocalDocument(doc match.LocalDocument) (match.Record, error) {
	id := strings.TrimSpace(doc.FixtureID)
	if id == "" {
		id = strings.TrimSpace(doc.ID)
	}
	if id == "" {
		return match.Record{}, fmt.Errorf("%w: local document without id", ErrMalformedRecord)
	}

	status := match.ParseLocalStatus(doc.Status)
	record := match.Record{
		ID:              id,
		Source:          match.SourceLocal,
		CompetitionID:   strings.TrimSpace(doc.League.ID),
		CompetitionName: strings.TrimSpace(doc.League.Name),
		CompetitionLogo: strings.TrimSpace(doc.League.Logo),
		Home:            localParticipant(doc.HomeTeam),
		Away:            localParticipant(doc.AwayTeam),
		Status:          status,
		Score: match.Score{
			Home: intOrZero(doc.HomeScore),
			Away: intOrZero(doc.AwayScore),
		},
		Venue:     strings.TrimSpace(doc.Venue),
		Referee:   strings.TrimSpace(doc.Referee),
		StartTime: parseLocalDate(doc.Date),
	}
	if status == match.StatusLive {
		record.Elapsed = copyInt(doc.Minute)
	}
	return record, nil
}

var localDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ValidLocalDate reports whether value is in a layout local documents may
// use for their kickoff date.
func ValidLocalDate(value string) bool {
	return !parseLocalDate(value).IsZero()
}

// parseLocalDate returns the zero time for values it cannot read.
func parseLocalDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range localDateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

func providerParticipant(team match.ProviderTeam) match.Participant {
	return match.Participant{
		ExternalID: formatOptionalID(team.ID),
		Name:       strings.TrimSpace(team.Name),
		Logo:       strings.TrimSpace(team.Logo),
	}
}

func localParticipant(team match.TeamRef) match.Participant {
	return match.Participant{
		ExternalID: strings.TrimSpace(team.ID),
		Name:       strings.TrimSpace(team.Name),
		Logo:       strings.TrimSpace(team.Logo),
	}
}

func providerStatistics(item match.ProviderFixture) *match.Statistics {
	if len(item.Statistics) == 0 {
		return nil
	}

	var (
		out   match.Statistics
		found bool
	)
	for idx, teamStats := range item.Statistics {
		side := sideForTeam(item.Teams, teamStats.Team.ID, idx)
		if side == nil {
			continue
		}
		target := &out.Home
		if *side == "away" {
			target = &out.Away
		}
		for _, entry := range teamStats.Statistics {
			value, ok := statValue(entry.Value)
			if !ok {
				continue
			}
			switch strings.ToLower(strings.TrimSpace(entry.Type)) {
			case "ball possession":
				target.Possession = value
			case "total shots":
				target.Shots = value
			case "shots on goal", "shots on target":
				target.ShotsOnTarget = value
			case "total passes":
				target.Passes = value
			default:
				continue
			}
			found = true
		}
	}
	if !found {
		return nil
	}
	return &out
}

// sideForTeam resolves a statistics block to home or away by team id, and
// falls back to list position when the block carries no team id.
func sideForTeam(teams match.ProviderTeams, teamID int64, idx int) *string {
	home, away := "home", "away"
	switch {
	case teamID > 0 && teamID == teams.Home.ID:
		return &home
	case teamID > 0 && teamID == teams.Away.ID:
		return &away
	case teamID <= 0 && idx == 0:
		return &home
	case teamID <= 0 && idx == 1:
		return &away
	default:
		return nil
	}
}

func statValue(raw any) (int, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return int(math.Round(v)), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case string:
		trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		if trimmed == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return int(math.Round(f)), true
	default:
		return 0, false
	}
}

func formatOptionalID(id int64) string {
	if id <= 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
