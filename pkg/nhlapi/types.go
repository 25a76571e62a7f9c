package nhlapi

import "encoding/json"

// LocalizedString is a string the NHL API serves either as a plain JSON
// string or as an object with a "default" translation. Both forms appear in
// the wild, sometimes within the same array.
type LocalizedString struct {
	Default string `json:"default"`
}

// UnmarshalJSON accepts both the plain-string and the {"default": ...} form.
func (s *LocalizedString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &s.Default)
	}
	var aux struct {
		Default string `json:"default"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Default = aux.Default
	return nil
}

// Team is one entry of the stats API team list. Historical entries exist for
// defunct franchises; Active is a pointer because the API omits the field for
// some rows, and an omitted value means the franchise is still active.
type Team struct {
	ID           int    `json:"id"`
	FranchiseID  int    `json:"franchiseId"`
	FullName     string `json:"fullName"`
	TriCode      string `json:"triCode"`
	RawTricode   string `json:"rawTricode"`
	Abbreviation string `json:"abbreviation"`
	Active       *bool  `json:"active"`
}

// IsActive reports whether the franchise is currently active.
func (t Team) IsActive() bool {
	return t.Active == nil || *t.Active
}

type teamListResponse struct {
	Data []Team `json:"data"`
}

// PlayerCategory selects which player summary report to query.
type PlayerCategory string

const (
	CategorySkater PlayerCategory = "skater"
	CategoryGoalie PlayerCategory = "goalie"
)

// PlayerSummary is one row of the paginated franchise summary report. Only
// the player id is load-bearing; the rest is kept for logging.
type PlayerSummary struct {
	PlayerID       int    `json:"playerId"`
	SkaterFullName string `json:"skaterFullName"`
	GoalieFullName string `json:"goalieFullName"`
}

type summaryResponse struct {
	Data  []PlayerSummary `json:"data"`
	Total int             `json:"total"`
}

// SeasonTotal is one season-by-season row of a player landing document. Team
// name and team id each arrive under several alternate keys depending on the
// league and era of the row; resolution precedence lives in pkg/teams.
type SeasonTotal struct {
	GameTypeID   int             `json:"gameTypeId"`
	LeagueAbbrev string          `json:"leagueAbbrev"`
	Season       int             `json:"season"`
	TeamFullName string          `json:"teamFullName"`
	TeamName     LocalizedString `json:"teamName"`
	Team         string          `json:"team"`
	FranchiseID  int             `json:"franchiseId"`
	TeamID       int             `json:"teamId"`
}

// CareerRegularSeason holds aggregate career totals for regular-season play.
// Skater and goaltender fields share the struct; the API zero-fills whichever
// set does not apply.
type CareerRegularSeason struct {
	GamesPlayed     int     `json:"gamesPlayed"`
	Goals           int     `json:"goals"`
	Assists         int     `json:"assists"`
	Points          int     `json:"points"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	OTLosses        int     `json:"otLosses"`
	SavePctg        float64 `json:"savePctg"`
	GoalsAgainstAvg float64 `json:"goalsAgainstAvg"`
}

// CareerTotals groups career aggregates by game type.
type CareerTotals struct {
	RegularSeason CareerRegularSeason `json:"regularSeason"`
}

// DraftDetails is the draft block of a player landing document. Absent (or
// year-less) means undrafted.
type DraftDetails struct {
	Year        int    `json:"year"`
	Round       int    `json:"round"`
	PickInRound int    `json:"pickInRound"`
	OverallPick int    `json:"overallPick"`
	TeamAbbrev  string `json:"teamAbbrev"`
	TeamName    string `json:"teamName"`
}

// PlayerLanding is the detailed per-player document from the web API.
type PlayerLanding struct {
	PlayerID      int             `json:"playerId"`
	FirstName     LocalizedString `json:"firstName"`
	LastName      LocalizedString `json:"lastName"`
	SweaterNumber int             `json:"sweaterNumber"`
	Position      string          `json:"position"`
	Headshot      string          `json:"headshot"`
	CareerTotals  CareerTotals    `json:"careerTotals"`
	SeasonTotals  []SeasonTotal   `json:"seasonTotals"`
	DraftDetails  *DraftDetails   `json:"draftDetails"`
}
