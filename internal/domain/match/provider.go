package match

// ProviderFixture mirrors one item of the provider's fixtures response.
// Timestamps are epoch seconds and goals are null before kickoff.
type ProviderFixture struct {
	Fixture    ProviderFixtureInfo    `json:"fixture"`
	League     ProviderLeague         `json:"league"`
	Teams      ProviderTeams          `json:"teams"`
	Goals      ProviderGoals          `json:"goals"`
	Statistics []ProviderTeamStatList `json:"statistics,omitempty"`
}

type ProviderFixtureInfo struct {
	ID        int64          `json:"id"`
	Referee   *string        `json:"referee"`
	Timestamp int64          `json:"timestamp"`
	Venue     *ProviderVenue `json:"venue"`
	Status    ProviderStatus `json:"status"`
}

type ProviderVenue struct {
	Name *string `json:"name"`
	City *string `json:"city"`
}

type ProviderStatus struct {
	Short   string `json:"short"`
	Elapsed *int   `json:"elapsed"`
}

type ProviderLeague struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type ProviderTeam struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type ProviderTeams struct {
	Home ProviderTeam `json:"home"`
	Away ProviderTeam `json:"away"`
}

type ProviderGoals struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

type ProviderTeamStatList struct {
	Team       ProviderTeam        `json:"team"`
	Statistics []ProviderStatEntry `json:"statistics"`
}

// ProviderStatEntry values arrive as numbers, percentage strings or null.
type ProviderStatEntry struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}
