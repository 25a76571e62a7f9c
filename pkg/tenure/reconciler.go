// Package tenure reconciles raw season-by-season career records into
// contiguous team tenures. The reconciler is a pure function over its inputs;
// all I/O happens upstream of it.
package tenure

import (
	"sort"
	"time"

	"github.com/pucklines/nhl-ingest/pkg/model"
	"github.com/pucklines/nhl-ingest/pkg/nhlapi"
	"github.com/pucklines/nhl-ingest/pkg/teams"
)

// Game type codes used by the NHL stats APIs.
const (
	GameTypeRegularSeason = 2
	GameTypePlayoffs      = 3
)

// Config tunes reconciliation.
type Config struct {
	// League filters season records to one league by abbreviation.
	League string

	// CurrentYear anchors the active-tenure window.
	CurrentYear int

	// GraceYears widens the active window below CurrentYear. A tenure ending
	// in the off-season gap still counts as active; the upstream data often
	// lags a season behind. The window is bounded above by CurrentYear: an
	// end year in the future never counts as active.
	GraceYears int
}

// DefaultConfig returns the production configuration: NHL, anchored at the
// current calendar year, with a one-year grace window.
func DefaultConfig() Config {
	return Config{
		League:      "NHL",
		CurrentYear: time.Now().Year(),
		GraceYears:  1,
	}
}

// entry is one season record after filtering and identity resolution.
type entry struct {
	ident     teams.Identity
	startYear int
	endYear   int
}

// Reconcile turns a player's season records into an ordered tenure list.
//
// Records outside regular-season/playoff play or the target league are
// dropped, as are records with an unparsable season or no team name. The
// survivors are resolved to team identities, stably sorted by start year, and
// walked chronologically: adjacent records with the same identity extend one
// tenure, any identity change closes it and opens the next. A player who
// leaves and later rejoins a team therefore gets two separate tenures for it;
// only chronologically adjacent stints merge.
func Reconcile(seasons []nhlapi.SeasonTotal, resolver *teams.Resolver, cfg Config) []model.Tenure {
	entries := make([]entry, 0, len(seasons))

	for _, s := range seasons {
		if s.GameTypeID != GameTypeRegularSeason && s.GameTypeID != GameTypePlayoffs {
			continue
		}
		if s.LeagueAbbrev != cfg.League {
			continue
		}

		rawName := teams.FirstNonEmpty(s.TeamFullName, s.TeamName.Default, s.Team)
		if rawName == "" {
			continue
		}

		startYear, endYear, ok := parseSeason(s.Season)
		if !ok {
			continue
		}

		franchiseID := teams.FirstNonZero(s.FranchiseID, s.TeamID)

		entries = append(entries, entry{
			ident:     resolver.Resolve(franchiseID, rawName),
			startYear: startYear,
			endYear:   endYear,
		})
	}

	// Stable keeps the original relative order of same-year rows (a regular
	// season and its playoff run, normally).
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].startYear < entries[j].startYear
	})

	var tenures []model.Tenure
	var current *entry

	for i := range entries {
		e := entries[i]
		if current != nil && current.ident.Key() == e.ident.Key() {
			if e.endYear > current.endYear {
				current.endYear = e.endYear
			}
			continue
		}
		if current != nil {
			tenures = append(tenures, current.toTenure(cfg))
		}
		current = &e
	}
	if current != nil {
		tenures = append(tenures, current.toTenure(cfg))
	}

	return tenures
}

// parseSeason splits an 8-digit YYYYYYYY season code into start and end year.
func parseSeason(season int) (startYear, endYear int, ok bool) {
	if season < 10000000 || season > 99999999 {
		return 0, 0, false
	}
	return season / 10000, season % 10000, true
}

func (e *entry) toTenure(cfg Config) model.Tenure {
	return model.Tenure{
		TeamName:   e.ident.Name,
		TeamID:     e.ident.FranchiseID,
		TeamAbbrev: e.ident.Abbrev,
		TeamLogo:   e.ident.LogoURL,
		StartYear:  e.startYear,
		EndYear:    e.endYear,
		IsActive:   e.endYear <= cfg.CurrentYear && e.endYear >= cfg.CurrentYear-cfg.GraceYears,
	}
}
