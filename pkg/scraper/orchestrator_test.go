package scraper

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pucklines/nhl-ingest/internal/testutil"
	"github.com/pucklines/nhl-ingest/pkg/model"
	"github.com/pucklines/nhl-ingest/pkg/nhlapi"
	"github.com/pucklines/nhl-ingest/pkg/ratelimit"
	"github.com/pucklines/nhl-ingest/pkg/storage"
	"github.com/pucklines/nhl-ingest/pkg/teams"
	"github.com/pucklines/nhl-ingest/pkg/tenure"
)

type harness struct {
	mock        *testutil.MockNHL
	mr          *miniredis.Miniredis
	players     *storage.PlayerStore
	checkpoints *storage.CheckpointStore
	orch        *Orchestrator
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()

	mock := testutil.NewMockNHL()
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	api := nhlapi.New(nhlapi.Config{
		StatsBaseURL: mock.URL(),
		WebBaseURL:   mock.URL(),
		MaxAttempts:  1,
	})

	// 60000 rpm = 1ms interval; pacing is irrelevant to these tests.
	sched := ratelimit.New(60000)
	t.Cleanup(sched.Close)

	if cfg.CurrentYear == 0 {
		cfg.CurrentYear = 2020
	}

	players := storage.NewPlayerStore(client)
	checkpoints := storage.NewCheckpointStore(client)

	return &harness{
		mock:        mock,
		mr:          mr,
		players:     players,
		checkpoints: checkpoints,
		orch:        New(api, sched, players, checkpoints, cfg),
	}
}

func defaultTeams() []nhlapi.Team {
	return []nhlapi.Team{
		{ID: 10, FranchiseID: 6, FullName: "Boston Bruins", TriCode: "BOS"},
		{ID: 3, FranchiseID: 10, FullName: "New York Rangers", TriCode: "NYR"},
	}
}

func nhlSeason(code, franchiseID int, name string) nhlapi.SeasonTotal {
	return nhlapi.SeasonTotal{
		GameTypeID:   2,
		LeagueAbbrev: "NHL",
		Season:       code,
		TeamName:     nhlapi.LocalizedString{Default: name},
		FranchiseID:  franchiseID,
	}
}

func skaterLanding(first, last string, seasons ...nhlapi.SeasonTotal) nhlapi.PlayerLanding {
	return nhlapi.PlayerLanding{
		FirstName:     nhlapi.LocalizedString{Default: first},
		LastName:      nhlapi.LocalizedString{Default: last},
		SweaterNumber: 63,
		Position:      "LW",
		Headshot:      "https://assets.nhle.com/mugs/nhl/latest/player.png",
		CareerTotals: nhlapi.CareerTotals{
			RegularSeason: nhlapi.CareerRegularSeason{GamesPlayed: 500, Goals: 200, Assists: 300, Points: 500},
		},
		SeasonTotals: seasons,
	}
}

func landingPath(id int) string {
	return "/v1/player/" + strconv.Itoa(id) + "/landing"
}

func TestRun_EndToEnd(t *testing.T) {
	h := newHarness(t, Config{})
	h.mock.SetTeams(defaultTeams())

	h.mock.SetSummaries(nhlapi.CategorySkater, 6, []nhlapi.PlayerSummary{{PlayerID: 100}})
	h.mock.SetLanding(100, skaterLanding("Brad", "Marchand",
		nhlSeason(20152016, 6, "Boston Bruins"),
		nhlSeason(20162017, 6, "Boston Bruins"),
		nhlSeason(20172018, 10, "New York Rangers"),
		nhlSeason(20182019, 6, "Boston Bruins"),
	))

	goalie := skaterLanding("Tuukka", "Rask", nhlSeason(20182019, 6, "Boston Bruins"))
	goalie.Position = "G"
	goalie.CareerTotals.RegularSeason = nhlapi.CareerRegularSeason{
		GamesPlayed: 564, Wins: 308, Losses: 165, OTLosses: 66, SavePctg: 0.921, GoalsAgainstAvg: 2.28,
	}
	h.mock.SetSummaries(nhlapi.CategoryGoalie, 6, []nhlapi.PlayerSummary{{PlayerID: 200}})
	h.mock.SetLanding(200, goalie)

	if err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if h.orch.State() != StateCompleted {
		t.Errorf("state = %q, want completed", h.orch.State())
	}

	ctx := context.Background()

	skater, err := h.players.Get(ctx, 100)
	if err != nil {
		t.Fatalf("skater not stored: %v", err)
	}
	if skater.Name != "Brad Marchand" || skater.SweaterNumber != "63" {
		t.Errorf("skater = %+v", skater)
	}
	if len(skater.Teams) != 3 {
		t.Fatalf("tenures = %d, want 3 (rejoin must not merge)", len(skater.Teams))
	}
	if skater.Teams[0].StartYear != 2015 || skater.Teams[0].EndYear != 2017 {
		t.Errorf("first tenure = %+v, want 2015-2017", skater.Teams[0])
	}
	if !skater.IsActive {
		t.Error("skater ending 2019 must be active in 2020")
	}
	if skater.Stats.Points != 500 || skater.Stats.Wins != 0 {
		t.Errorf("skater stats = %+v, want scoring shape", skater.Stats)
	}

	g, err := h.players.Get(ctx, 200)
	if err != nil {
		t.Fatalf("goalie not stored: %v", err)
	}
	if g.Stats.Record != "308-165-66" || g.Stats.SavePercentage != 0.921 {
		t.Errorf("goalie stats = %+v, want goaltender shape", g.Stats)
	}
	if g.Stats.Goals != 0 {
		t.Errorf("goalie stats = %+v, scoring fields must stay empty", g.Stats)
	}

	// Clean completion deletes the checkpoint.
	cp, err := h.checkpoints.Get(ctx)
	if err != nil {
		t.Fatalf("checkpoint get failed: %v", err)
	}
	if cp.LastTeamIndex != 0 || len(cp.ProcessedTeamIDs) != 0 {
		t.Errorf("checkpoint = %+v, want cleared after completion", cp)
	}
}

func TestRun_SkipsAlreadyIngestedPlayers(t *testing.T) {
	h := newHarness(t, Config{})
	h.mock.SetTeams(defaultTeams())
	h.mock.SetSummaries(nhlapi.CategorySkater, 6, []nhlapi.PlayerSummary{{PlayerID: 100}})

	// Player 100 is already durably written from an earlier run.
	_, err := h.players.UpsertMany(context.Background(), []model.PlayerRecord{{
		ID: 100, Name: "Existing Player",
		Teams: []model.Tenure{{TeamID: 6, TeamName: "Boston Bruins", StartYear: 2015, EndYear: 2019}},
	}})
	if err != nil {
		t.Fatalf("seed upsert failed: %v", err)
	}

	if err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := h.mock.RequestsFor(landingPath(100)); got != 0 {
		t.Errorf("landing fetches for known player = %d, want 0", got)
	}
}

func TestRun_ResumeSkipsCheckpointedTeams(t *testing.T) {
	h := newHarness(t, Config{})
	h.mock.SetTeams(defaultTeams())

	h.mock.SetSummaries(nhlapi.CategorySkater, 6, []nhlapi.PlayerSummary{{PlayerID: 100}})
	h.mock.SetLanding(100, skaterLanding("Team", "Zero", nhlSeason(20182019, 6, "Boston Bruins")))
	h.mock.SetSummaries(nhlapi.CategorySkater, 10, []nhlapi.PlayerSummary{{PlayerID: 300}})
	h.mock.SetLanding(300, skaterLanding("Team", "One", nhlSeason(20182019, 10, "New York Rangers")))

	// Team index 0 already completed in a previous run.
	if err := h.checkpoints.Put(context.Background(), storage.Checkpoint{
		LastTeamIndex: 1, ProcessedTeamIDs: []int{6},
	}); err != nil {
		t.Fatalf("seed checkpoint failed: %v", err)
	}

	if err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := h.mock.RequestsFor(landingPath(100)); got != 0 {
		t.Errorf("fetches for checkpointed team's player = %d, want 0", got)
	}
	if _, err := h.players.Get(context.Background(), 100); !errors.Is(err, storage.ErrNotFound) {
		t.Error("player from checkpointed team must not be ingested")
	}
	if _, err := h.players.Get(context.Background(), 300); err != nil {
		t.Errorf("player from remaining team not ingested: %v", err)
	}
}

func TestRun_PlayerFailureSkipsPlayerOnly(t *testing.T) {
	h := newHarness(t, Config{})
	h.mock.SetTeams(defaultTeams())

	h.mock.SetSummaries(nhlapi.CategorySkater, 6, []nhlapi.PlayerSummary{{PlayerID: 100}, {PlayerID: 101}})
	h.mock.SetLanding(101, skaterLanding("Still", "Works", nhlSeason(20182019, 6, "Boston Bruins")))
	// No landing for 100: the mock answers 404, a permanent client error.

	if err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if h.orch.State() != StateCompleted {
		t.Errorf("state = %q, want completed despite a player failure", h.orch.State())
	}

	if _, err := h.players.Get(context.Background(), 100); !errors.Is(err, storage.ErrNotFound) {
		t.Error("failed player must not be stored")
	}
	if _, err := h.players.Get(context.Background(), 101); err != nil {
		t.Errorf("surviving player not stored: %v", err)
	}
}

func TestRun_TeamFetchFailureSkipsTeam(t *testing.T) {
	h := newHarness(t, Config{})
	h.mock.SetTeams(defaultTeams())

	// Summary reports fail outright for franchise 6, succeed for 10.
	failFranchise := func(w http.ResponseWriter, r *http.Request, payload string) {
		if strings.Contains(r.URL.Query().Get("cayenneExp"), "franchiseId=6") {
			http.Error(w, "boom", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}
	h.mock.SetHandler("/stats/rest/en/skater/summary", func(w http.ResponseWriter, r *http.Request) {
		failFranchise(w, r, `{"data":[{"playerId":300}],"total":1}`)
	})
	h.mock.SetHandler("/stats/rest/en/goalie/summary", func(w http.ResponseWriter, r *http.Request) {
		failFranchise(w, r, `{"data":[],"total":0}`)
	})
	h.mock.SetLanding(300, skaterLanding("Other", "Team", nhlSeason(20182019, 10, "New York Rangers")))

	if err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := h.mock.RequestsFor(landingPath(100)); got != 0 {
		t.Errorf("landing fetches for failed team = %d, want 0", got)
	}
	if _, err := h.players.Get(context.Background(), 300); err != nil {
		t.Errorf("healthy team's player not ingested: %v", err)
	}
}

func TestRun_DropsPlayersWithoutLeagueTenures(t *testing.T) {
	h := newHarness(t, Config{})
	h.mock.SetTeams(defaultTeams())

	minorLeaguer := skaterLanding("Farm", "Hand", nhlapi.SeasonTotal{
		GameTypeID:   2,
		LeagueAbbrev: "AHL",
		Season:       20182019,
		TeamName:     nhlapi.LocalizedString{Default: "Providence Bruins"},
	})
	h.mock.SetSummaries(nhlapi.CategorySkater, 6, []nhlapi.PlayerSummary{{PlayerID: 100}})
	h.mock.SetLanding(100, minorLeaguer)

	if err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ids, err := h.players.AllIDs(context.Background())
	if err != nil {
		t.Fatalf("AllIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want none (no recognized-league tenures)", ids)
	}
}

func TestRun_DroppedPlayerFetchedOncePerRun(t *testing.T) {
	h := newHarness(t, Config{})
	h.mock.SetTeams(defaultTeams())

	// The same minor-leaguer shows up on two franchises' reports. The drop
	// must not make the second franchise refetch the landing.
	minorLeaguer := skaterLanding("Farm", "Hand", nhlapi.SeasonTotal{
		GameTypeID:   2,
		LeagueAbbrev: "AHL",
		Season:       20182019,
		TeamName:     nhlapi.LocalizedString{Default: "Providence Bruins"},
	})
	h.mock.SetSummaries(nhlapi.CategorySkater, 6, []nhlapi.PlayerSummary{{PlayerID: 100}})
	h.mock.SetSummaries(nhlapi.CategorySkater, 10, []nhlapi.PlayerSummary{{PlayerID: 100}})
	h.mock.SetLanding(100, minorLeaguer)

	if err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := h.mock.RequestsFor(landingPath(100)); got != 1 {
		t.Errorf("landing fetches = %d, want 1 for a player listed on two franchises", got)
	}
	ids, err := h.players.AllIDs(context.Background())
	if err != nil {
		t.Fatalf("AllIDs failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want none stored", ids)
	}
}

func TestRun_FlushesAtBatchThreshold(t *testing.T) {
	h := newHarness(t, Config{BatchSize: 2})
	h.mock.SetTeams(defaultTeams())

	summaries := []nhlapi.PlayerSummary{{PlayerID: 100}, {PlayerID: 101}, {PlayerID: 102}}
	h.mock.SetSummaries(nhlapi.CategorySkater, 6, summaries)
	for _, s := range summaries {
		h.mock.SetLanding(s.PlayerID, skaterLanding("Player", strconv.Itoa(s.PlayerID), nhlSeason(20182019, 6, "Boston Bruins")))
	}

	if err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ids, err := h.players.AllIDs(context.Background())
	if err != nil {
		t.Fatalf("AllIDs failed: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("stored %d players, want all 3 across threshold and team-end flushes", len(ids))
	}
}

func TestRun_StorageFailureAbortsRun(t *testing.T) {
	h := newHarness(t, Config{})
	h.mock.SetTeams(defaultTeams())

	// Storage gone before the run starts: fatal, not skippable.
	h.mr.Close()

	if err := h.orch.Run(context.Background()); err == nil {
		t.Fatal("Run must fail when storage is unreachable")
	}
	if h.orch.State() != StateFailed {
		t.Errorf("state = %q, want failed", h.orch.State())
	}
}

func TestStatsFor(t *testing.T) {
	career := nhlapi.CareerRegularSeason{
		GamesPlayed: 100, Goals: 30, Assists: 40, Points: 70,
		Wins: 50, Losses: 30, OTLosses: 10, SavePctg: 0.915, GoalsAgainstAvg: 2.5,
	}

	skater := statsFor("C", career)
	if skater.Points != 70 || skater.Goals != 30 || skater.Games != 100 {
		t.Errorf("skater stats = %+v", skater)
	}
	if skater.Record != "" || skater.SavePercentage != 0 {
		t.Errorf("skater stats = %+v, goaltender fields must stay empty", skater)
	}

	goalie := statsFor("G", career)
	if goalie.Record != "50-30-10" || goalie.SavePercentage != 0.915 || goalie.GoalsAgainstAverage != 2.5 {
		t.Errorf("goalie stats = %+v", goalie)
	}
	if goalie.Points != 0 {
		t.Errorf("goalie stats = %+v, scoring fields must stay empty", goalie)
	}
}

func TestBuildRecord_Defaults(t *testing.T) {
	resolver := teams.NewResolver(defaultTeams())
	cfg := tenure.Config{League: "NHL", CurrentYear: 2020, GraceYears: 1}

	landing := &nhlapi.PlayerLanding{
		LastName:     nhlapi.LocalizedString{Default: "Mystery"},
		SeasonTotals: []nhlapi.SeasonTotal{nhlSeason(20182019, 6, "Boston Bruins")},
	}

	record, ok := buildRecord(42, landing, resolver, cfg)
	if !ok {
		t.Fatal("buildRecord dropped a player with valid tenures")
	}
	if record.Name != "Unknown Mystery" {
		t.Errorf("Name = %q, want Unknown prefix for missing first name", record.Name)
	}
	if record.SweaterNumber != "N/A" || record.Position != "N/A" {
		t.Errorf("sweater/position = %q/%q, want N/A defaults", record.SweaterNumber, record.Position)
	}
	if record.Silhouette != "https://assets.nhle.com/mugs/nhl/20232024/42.png" {
		t.Errorf("Silhouette = %q, want synthesized mug URL", record.Silhouette)
	}
	if record.Draft.Year != nil {
		t.Errorf("Draft = %+v, want undrafted zero value", record.Draft)
	}
}
