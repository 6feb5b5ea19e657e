package provider

// Wire types for the football-data.org v4 payloads. Only the fields the
// ingestion path reads are declared.

type matchesResponse struct {
	Matches []wireMatch `json:"matches"`
}

type wireMatch struct {
	ID       int64      `json:"id"`
	UTCDate  string     `json:"utcDate"`
	Status   string     `json:"status"`
	Matchday int        `json:"matchday"`
	Venue    string     `json:"venue"`
	Season   wireSeason `json:"season"`
	HomeTeam wireTeam   `json:"homeTeam"`
	AwayTeam wireTeam   `json:"awayTeam"`
	Score    wireScore  `json:"score"`
}

type wireSeason struct {
	StartDate       string `json:"startDate"`
	CurrentMatchday int    `json:"currentMatchday"`
}

type wireTeam struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
	Crest     string `json:"crest"`
}

type wireScore struct {
	FullTime struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"fullTime"`
}

type standingsResponse struct {
	Season    wireSeason `json:"season"`
	Standings []struct {
		Type  string `json:"type"`
		Table []struct {
			Position       int      `json:"position"`
			Team           wireTeam `json:"team"`
			PlayedGames    int      `json:"playedGames"`
			Won            int      `json:"won"`
			Draw           int      `json:"draw"`
			Lost           int      `json:"lost"`
			Points         int      `json:"points"`
			GoalsFor       int      `json:"goalsFor"`
			GoalsAgainst   int      `json:"goalsAgainst"`
			GoalDifference int      `json:"goalDifference"`
			Form           string   `json:"form"`
		} `json:"table"`
	} `json:"standings"`
}

type teamsResponse struct {
	Teams []wireTeam `json:"teams"`
}
