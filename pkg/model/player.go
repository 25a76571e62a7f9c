// Package model defines the document shapes persisted for downstream
// consumers (query API, game client). The player id is the stable external
// key; records are always written wholesale, never partially mutated.
package model

import "time"

// Tenure is one contiguous chronological span a player spent with a single
// team identity. A player's Teams list is ordered by StartYear; the same team
// may appear in more than one non-adjacent tenure (left and rejoined), but
// never in two adjacent entries.
type Tenure struct {
	TeamName   string `json:"teamName"`
	TeamID     int    `json:"teamId"`
	TeamAbbrev string `json:"teamAbbrev"`
	TeamLogo   string `json:"teamLogo"`
	StartYear  int    `json:"startYear"`
	EndYear    int    `json:"endYear"`
	IsActive   bool   `json:"isActive"`
}

// DraftInfo describes where a player was drafted. The zero value (all nil
// pointers, empty strings) is the canonical "undrafted" record.
type DraftInfo struct {
	Year       *int   `json:"year"`
	Round      *int   `json:"round"`
	Pick       *int   `json:"pick"`
	Overall    *int   `json:"overall"`
	Team       string `json:"team"`
	TeamAbbrev string `json:"teamAbbrev"`
	TeamLogo   string `json:"teamLogo"`
}

// Stats holds career regular-season totals. The populated fields depend on
// position: goaltenders get the win/loss/save fields, everyone else the
// scoring fields. Games is common to both.
type Stats struct {
	Games int `json:"games"`

	// Skater fields.
	Goals   int `json:"goals,omitempty"`
	Assists int `json:"assists,omitempty"`
	Points  int `json:"points,omitempty"`

	// Goaltender fields.
	Wins                int     `json:"wins,omitempty"`
	Losses              int     `json:"losses,omitempty"`
	OTLosses            int     `json:"ot,omitempty"`
	Record              string  `json:"record,omitempty"`
	SavePercentage      float64 `json:"savePercentage,omitempty"`
	GoalsAgainstAverage float64 `json:"goalsAgainstAverage,omitempty"`
}

// PlayerRecord is the materialized per-player document. IsActive mirrors the
// IsActive flag of the most recent tenure.
type PlayerRecord struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	SweaterNumber string    `json:"sweaterNumber"`
	Position      string    `json:"position"`
	Silhouette    string    `json:"silhouette"`
	Draft         DraftInfo `json:"draft"`
	Teams         []Tenure  `json:"teams"`
	IsActive      bool      `json:"isActive"`
	Stats         Stats     `json:"stats"`

	// Ingestion timestamps, stamped by the storage layer on upsert.
	LastUpdated time.Time `json:"lastUpdated"`
	LastScraped time.Time `json:"lastScraped"`
}
