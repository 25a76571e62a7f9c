// Package testutil provides a configurable mock NHL API server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/pucklines/nhl-ingest/pkg/nhlapi"
)

// MockNHL serves the three upstream endpoints the scraper consumes: the team
// list, the paginated franchise summary reports, and player landing
// documents. Tests point both client base URLs at one mock. Paths can be
// overridden with custom handlers to inject failures.
type MockNHL struct {
	server *httptest.Server

	mu        sync.RWMutex
	handlers  map[string]http.HandlerFunc
	teams     []nhlapi.Team
	summaries map[string][]nhlapi.PlayerSummary
	landings  map[int]nhlapi.PlayerLanding

	requestCount int
	pathCounts   map[string]int
}

// NewMockNHL creates and starts a mock NHL API server.
func NewMockNHL() *MockNHL {
	m := &MockNHL{
		handlers:   make(map[string]http.HandlerFunc),
		summaries:  make(map[string][]nhlapi.PlayerSummary),
		landings:   make(map[int]nhlapi.PlayerLanding),
		pathCounts: make(map[string]int),
	}

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requestCount++
		m.pathCounts[r.URL.Path]++
		m.mu.Unlock()

		m.mu.RLock()
		handler, overridden := m.handlers[r.URL.Path]
		m.mu.RUnlock()

		if overridden {
			handler(w, r)
			return
		}

		m.defaultHandler(w, r)
	}))

	return m
}

// URL returns the mock server URL.
func (m *MockNHL) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockNHL) Close() {
	m.server.Close()
}

// SetTeams configures the team list response.
func (m *MockNHL) SetTeams(teams []nhlapi.Team) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams = teams
}

func summaryKey(category string, franchiseID int) string {
	return fmt.Sprintf("%s:%d", category, franchiseID)
}

// SetSummaries configures the summary report for one category and franchise.
// The default handler paginates it according to the start/limit parameters.
func (m *MockNHL) SetSummaries(category nhlapi.PlayerCategory, franchiseID int, players []nhlapi.PlayerSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[summaryKey(string(category), franchiseID)] = players
}

// SetLanding configures the landing document for one player.
func (m *MockNHL) SetLanding(id int, landing nhlapi.PlayerLanding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landings[id] = landing
}

// SetHandler overrides the handler for an exact path.
func (m *MockNHL) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// RequestCount returns the total number of requests served.
func (m *MockNHL) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// RequestsFor returns the number of requests served for an exact path.
func (m *MockNHL) RequestsFor(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

func (m *MockNHL) defaultHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/stats/rest/en/team":
		m.mu.RLock()
		teams := m.teams
		m.mu.RUnlock()
		writeJSON(w, map[string]any{"data": teams})

	case strings.HasPrefix(path, "/stats/rest/en/") && strings.HasSuffix(path, "/summary"):
		category := strings.TrimSuffix(strings.TrimPrefix(path, "/stats/rest/en/"), "/summary")
		m.serveSummaryPage(w, r, category)

	case strings.HasPrefix(path, "/v1/player/") && strings.HasSuffix(path, "/landing"):
		idStr := strings.TrimSuffix(strings.TrimPrefix(path, "/v1/player/"), "/landing")
		id, err := strconv.Atoi(idStr)
		if err != nil {
			http.Error(w, "bad player id", http.StatusBadRequest)
			return
		}
		m.mu.RLock()
		landing, ok := m.landings[id]
		m.mu.RUnlock()
		if !ok {
			http.Error(w, "player not found", http.StatusNotFound)
			return
		}
		writeJSON(w, landing)

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (m *MockNHL) serveSummaryPage(w http.ResponseWriter, r *http.Request, category string) {
	q := r.URL.Query()

	franchiseID := 0
	if expr := q.Get("cayenneExp"); strings.HasPrefix(expr, "franchiseId=") {
		franchiseID, _ = strconv.Atoi(strings.TrimPrefix(expr, "franchiseId="))
	}
	start, _ := strconv.Atoi(q.Get("start"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 100
	}

	m.mu.RLock()
	players := m.summaries[summaryKey(category, franchiseID)]
	m.mu.RUnlock()

	page := []nhlapi.PlayerSummary{}
	if start < len(players) {
		end := start + limit
		if end > len(players) {
			end = len(players)
		}
		page = players[start:end]
	}

	writeJSON(w, map[string]any{"data": page, "total": len(players)})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
