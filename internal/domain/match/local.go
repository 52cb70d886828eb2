package match

import "time"

type TeamRef struct {
	ID   string
	Name string
	Logo string
}

type LeagueRef struct {
	ID   string
	Name string
	Logo string
}

// LocalDocument is the shape editors write into the local store. Team and
// league data is denormalized and the kickoff date is an ISO-8601 string.
type LocalDocument struct {
	ID        string
	FixtureID string
	League    LeagueRef
	HomeTeam  TeamRef
	AwayTeam  TeamRef
	Status    string
	HomeScore *int
	AwayScore *int
	Minute    *int
	Venue     string
	Referee   string
	Date      string
	UpdatedAt time.Time
}

// Clone returns a copy that shares no pointers with d.
func (d LocalDocument) Clone() LocalDocument {
	out := d
	out.HomeScore = cloneInt(d.HomeScore)
	out.AwayScore = cloneInt(d.AwayScore)
	out.Minute = cloneInt(d.Minute)
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
