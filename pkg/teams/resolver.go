// Package teams resolves the many spellings of a team found in upstream
// season records to one canonical identity. Resolution is pure table lookup;
// no I/O happens here.
package teams

import (
	"fmt"
	"strings"

	"github.com/pucklines/nhl-ingest/pkg/model"
	"github.com/pucklines/nhl-ingest/pkg/nhlapi"
)

const logoURLFormat = "https://assets.nhle.com/logos/nhl/svg/%s_light.svg"

// LogoURL returns the asset URL for a team abbreviation, or "" when the
// abbreviation is unknown.
func LogoURL(abbrev string) string {
	if abbrev == "" {
		return ""
	}
	return fmt.Sprintf(logoURLFormat, abbrev)
}

// FirstNonEmpty returns the first non-empty string of values. Upstream
// records carry the same attribute under several alternate keys; every
// precedence chain in this codebase goes through this helper so the order is
// explicit in the call site.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FirstNonZero is FirstNonEmpty for numeric ids.
func FirstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

// NormalizeName lowercases and trims a team name for name-based lookup.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Identity is the resolved identity of a team for one season record.
type Identity struct {
	FranchiseID int
	Abbrev      string
	LogoURL     string

	// Name is the canonical display name: the modern full name when the
	// abbreviation is known, otherwise the upstream name verbatim.
	Name string
}

// Key identifies a tenure accumulator. Two season records belong to the same
// tenure candidate iff their keys are equal.
func (id Identity) Key() string {
	return fmt.Sprintf("%d_%s", id.FranchiseID, id.Name)
}

// Resolver maps season-record team references to identities. Built once per
// run from the live team list layered over the static tables.
type Resolver struct {
	byID   map[int]Identity
	byName map[string]Identity
}

// NewResolver builds a resolver from the upstream team list. Only active
// franchises are indexed; records for anything else fall through to the
// fallback tables.
func NewResolver(teamList []nhlapi.Team) *Resolver {
	r := &Resolver{
		byID:   make(map[int]Identity),
		byName: make(map[string]Identity),
	}

	for _, t := range teamList {
		if t.FranchiseID == 0 || !t.IsActive() {
			continue
		}

		abbrev := FirstNonEmpty(franchiseAbbrevs[t.FranchiseID], t.TriCode, t.RawTricode, t.Abbreviation)
		ident := Identity{
			FranchiseID: t.FranchiseID,
			Abbrev:      abbrev,
			LogoURL:     LogoURL(abbrev),
			Name:        t.FullName,
		}

		r.byID[t.FranchiseID] = ident
		if name := NormalizeName(t.FullName); name != "" {
			r.byName[name] = ident
		}
	}

	return r
}

// Resolve determines the identity for a season record's team reference:
// franchise-id lookup, else normalized-name lookup, else an identity
// synthesized from the static tables (empty abbreviation when the franchise
// is unknown there too). The returned Name has the canonical display-name
// override applied.
func (r *Resolver) Resolve(franchiseID int, rawName string) Identity {
	ident, ok := r.byID[franchiseID]
	if !ok {
		ident, ok = r.byName[NormalizeName(rawName)]
	}
	if !ok {
		abbrev := franchiseAbbrevs[franchiseID]
		ident = Identity{
			FranchiseID: franchiseID,
			Abbrev:      abbrev,
			LogoURL:     LogoURL(abbrev),
		}
	}

	ident.Name = FirstNonEmpty(abbrevFullNames[ident.Abbrev], rawName)
	return ident
}

// DraftInfo converts upstream draft details into the persisted draft record,
// correcting era-specific abbreviations through the franchise tables. A nil
// or year-less input yields the undrafted zero value.
func (r *Resolver) DraftInfo(d *nhlapi.DraftDetails) model.DraftInfo {
	if d == nil || d.Year == 0 {
		return model.DraftInfo{}
	}

	abbrev := d.TeamAbbrev
	if _, known := abbrevFullNames[abbrev]; !known {
		if fid, ok := abbrevFranchiseIDs[abbrev]; ok {
			if modern, ok := franchiseAbbrevs[fid]; ok {
				abbrev = modern
			}
		}
	}

	year, round, pick, overall := d.Year, d.Round, d.PickInRound, d.OverallPick
	return model.DraftInfo{
		Year:       &year,
		Round:      &round,
		Pick:       &pick,
		Overall:    &overall,
		Team:       FirstNonEmpty(abbrevFullNames[abbrev], d.TeamName),
		TeamAbbrev: abbrev,
		TeamLogo:   LogoURL(abbrev),
	}
}
