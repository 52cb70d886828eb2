package postgres

import (
	"database/sql"
	"time"
)

type localMatchTableModel struct {
	ID           int64          `db:"id"`
	PublicID     string         `db:"public_id"`
	FixtureID    sql.NullString `db:"fixture_id"`
	LeagueID     string         `db:"league_id"`
	LeagueName   string         `db:"league_name"`
	LeagueLogo   string         `db:"league_logo"`
	HomeTeamID   string         `db:"home_team_id"`
	HomeTeamName string         `db:"home_team_name"`
	HomeTeamLogo string         `db:"home_team_logo"`
	AwayTeamID   string         `db:"away_team_id"`
	AwayTeamName string         `db:"away_team_name"`
	AwayTeamLogo string         `db:"away_team_logo"`
	Status       string         `db:"status"`
	HomeScore    sql.NullInt64  `db:"home_score"`
	AwayScore    sql.NullInt64  `db:"away_score"`
	Minute       sql.NullInt64  `db:"minute"`
	Venue        string         `db:"venue"`
	Referee      string         `db:"referee"`
	MatchDate    string         `db:"match_date"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	DeletedAt    *time.Time     `db:"deleted_at"`
}

type localMatchInsertModel struct {
	PublicID     string  `db:"public_id"`
	FixtureID    *string `db:"fixture_id"`
	LeagueID     string  `db:"league_id"`
	LeagueName   string  `db:"league_name"`
	LeagueLogo   string  `db:"league_logo"`
	HomeTeamID   string  `db:"home_team_id"`
	HomeTeamName string  `db:"home_team_name"`
	HomeTeamLogo string  `db:"home_team_logo"`
	AwayTeamID   string  `db:"away_team_id"`
	AwayTeamName string  `db:"away_team_name"`
	AwayTeamLogo string  `db:"away_team_logo"`
	Status       string  `db:"status"`
	HomeScore    *int    `db:"home_score"`
	AwayScore    *int    `db:"away_score"`
	Minute       *int    `db:"minute"`
	Venue        string  `db:"venue"`
	Referee      string  `db:"referee"`
	MatchDate    string  `db:"match_date"`
}
