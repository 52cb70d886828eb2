package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/mastermhp/Live-Baz-sub000/internal/domain/match"
	qb "github.com/mastermhp/Live-Baz-sub000/internal/platform/querybuilder"
)

const localMatchesTable = "local_matches"

var localMatchColumns = []string{
	"id",
	"public_id",
	"fixture_id",
	"league_id",
	"league_name",
	"league_logo",
	"home_team_id",
	"home_team_name",
	"home_team_logo",
	"away_team_id",
	"away_team_name",
	"away_team_logo",
	"status",
	"home_score",
	"away_score",
	"minute",
	"venue",
	"referee",
	"match_date",
	"created_at",
	"updated_at",
	"deleted_at",
}

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) ListByStatus(ctx context.Context, statuses ...match.Status) ([]match.LocalDocument, error) {
	query, args, err := buildListByStatusQuery(statuses)
	if err != nil {
		return nil, fmt.Errorf("build select local matches query: %w", err)
	}

	var rows []localMatchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select local matches: %w", err)
	}

	out := make([]match.LocalDocument, 0, len(rows))
	for _, row := range rows {
		out = append(out, localMatchFromRow(row))
	}
	return out, nil
}

func (r *MatchRepository) Upsert(ctx context.Context, doc match.LocalDocument) error {
	query, args, err := buildUpsertQuery(doc)
	if err != nil {
		return fmt.Errorf("build upsert local match query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert local match id=%s: %w", doc.ID, err)
	}
	return nil
}

func (r *MatchRepository) Delete(ctx context.Context, id string) (bool, error) {
	query, args, err := qb.Update(localMatchesTable).
		SetExpr("deleted_at", "NOW()").
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("public_id", strings.TrimSpace(id)),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build soft delete local match query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("soft delete local match: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected soft delete local match: %w", err)
	}
	return affected > 0, nil
}

// buildListByStatusQuery matches the stored free-form status against every
// alias of the requested statuses, case-insensitively.
func buildListByStatusQuery(statuses []match.Status) (string, []any, error) {
	conditions := []qb.Condition{qb.IsNull("deleted_at")}
	if len(statuses) > 0 {
		conditions = append(conditions, qb.In("lower(trim(status))", toArgs(match.LocalStatusAliases(statuses...))))
	}
	return qb.Select(localMatchColumns...).
		From(localMatchesTable).
		Where(conditions...).
		OrderBy("public_id").
		ToSQL()
}

func buildUpsertQuery(doc match.LocalDocument) (string, []any, error) {
	id := strings.TrimSpace(doc.ID)
	if id == "" {
		return "", nil, fmt.Errorf("local match id is required")
	}

	insertModel := localMatchInsertModel{
		PublicID:     id,
		FixtureID:    optionalText(doc.FixtureID),
		LeagueID:     doc.League.ID,
		LeagueName:   doc.League.Name,
		LeagueLogo:   doc.League.Logo,
		HomeTeamID:   doc.HomeTeam.ID,
		HomeTeamName: doc.HomeTeam.Name,
		HomeTeamLogo: doc.HomeTeam.Logo,
		AwayTeamID:   doc.AwayTeam.ID,
		AwayTeamName: doc.AwayTeam.Name,
		AwayTeamLogo: doc.AwayTeam.Logo,
		Status:       strings.TrimSpace(doc.Status),
		HomeScore:    doc.HomeScore,
		AwayScore:    doc.AwayScore,
		Minute:       doc.Minute,
		Venue:        doc.Venue,
		Referee:      doc.Referee,
		MatchDate:    strings.TrimSpace(doc.Date),
	}

	return qb.InsertModel(localMatchesTable, insertModel, `ON CONFLICT (public_id)
DO UPDATE SET
    fixture_id = EXCLUDED.fixture_id,
    league_id = EXCLUDED.league_id,
    league_name = EXCLUDED.league_name,
    league_logo = EXCLUDED.league_logo,
    home_team_id = EXCLUDED.home_team_id,
    home_team_name = EXCLUDED.home_team_name,
    home_team_logo = EXCLUDED.home_team_logo,
    away_team_id = EXCLUDED.away_team_id,
    away_team_name = EXCLUDED.away_team_name,
    away_team_logo = EXCLUDED.away_team_logo,
    status = EXCLUDED.status,
    home_score = EXCLUDED.home_score,
    away_score = EXCLUDED.away_score,
    minute = EXCLUDED.minute,
    venue = EXCLUDED.venue,
    referee = EXCLUDED.referee,
    match_date = EXCLUDED.match_date,
    updated_at = NOW(),
    deleted_at = NULL`)
}

func localMatchFromRow(row localMatchTableModel) match.LocalDocument {
	return match.LocalDocument{
		ID:        row.PublicID,
		FixtureID: row.FixtureID.String,
		League: match.LeagueRef{
			ID:   row.LeagueID,
			Name: row.LeagueName,
			Logo: row.LeagueLogo,
		},
		HomeTeam: match.TeamRef{
			ID:   row.HomeTeamID,
			Name: row.HomeTeamName,
			Logo: row.HomeTeamLogo,
		},
		AwayTeam: match.TeamRef{
			ID:   row.AwayTeamID,
			Name: row.AwayTeamName,
			Logo: row.AwayTeamLogo,
		},
		Status:    row.Status,
		HomeScore: optionalInt(row.HomeScore),
		AwayScore: optionalInt(row.AwayScore),
		Minute:    optionalInt(row.Minute),
		Venue:     row.Venue,
		Referee:   row.Referee,
		Date:      row.MatchDate,
		UpdatedAt: row.UpdatedAt,
	}
}
