// Package scraper drives the ingestion run: team iteration, player fetches,
// tenure reconciliation, batched writes, and crash-resumable checkpointing.
package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/pucklines/nhl-ingest/pkg/logging"
	"github.com/pucklines/nhl-ingest/pkg/model"
	"github.com/pucklines/nhl-ingest/pkg/nhlapi"
	"github.com/pucklines/nhl-ingest/pkg/pagination"
	"github.com/pucklines/nhl-ingest/pkg/ratelimit"
	"github.com/pucklines/nhl-ingest/pkg/storage"
	"github.com/pucklines/nhl-ingest/pkg/teams"
	"github.com/pucklines/nhl-ingest/pkg/tenure"
)

// Prometheus metrics for the ingestion run.
var (
	playersProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_players_processed_total",
		Help: "Players successfully fetched, reconciled, and batched",
	})

	playersSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_players_skipped_total",
		Help: "Players skipped by reason",
	}, []string{"reason"})

	teamsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_teams_completed_total",
		Help: "Teams fully processed and checkpointed",
	})

	teamsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_teams_skipped_total",
		Help: "Teams skipped after a whole-team fetch failure",
	})

	batchFlushesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_batch_flushes_total",
		Help: "Pending-batch flushes to storage",
	})
)

// State is the orchestrator's lifecycle state. Transitions are logged; Failed
// is terminal and reachable from anywhere on unrecoverable error.
type State string

const (
	StateIdle             State = "idle"
	StateResuming         State = "resuming"
	StateIteratingTeams   State = "iterating_teams"
	StateIteratingPlayers State = "iterating_players"
	StateFlushing         State = "flushing"
	StateCompleted        State = "completed"
	StateFailed           State = "failed"
)

// Config tunes one ingestion run.
type Config struct {
	// League is the target league abbreviation for tenure reconciliation.
	League string

	// PageSize is the summary-report page size.
	PageSize int

	// BatchSize is the pending-batch flush threshold.
	BatchSize int

	// CurrentYear anchors the active-tenure window; zero means the current
	// calendar year (resolved by tenure.DefaultConfig).
	CurrentYear int

	// GraceYears is the active-tenure grace window below CurrentYear.
	GraceYears int
}

// DefaultConfig returns the production run configuration.
func DefaultConfig() Config {
	t := tenure.DefaultConfig()
	return Config{
		League:      t.League,
		PageSize:    pagination.DefaultPageSize,
		BatchSize:   50,
		CurrentYear: t.CurrentYear,
		GraceYears:  t.GraceYears,
	}
}

// Orchestrator owns one ingestion run: the dedup set and pending batch live
// on the instance, never as process-wide state, so runs and tests stay
// isolated.
type Orchestrator struct {
	api         *nhlapi.Client
	sched       *ratelimit.Scheduler
	players     *storage.PlayerStore
	checkpoints *storage.CheckpointStore
	cfg         Config
	logger      zerolog.Logger

	state State
	seen  map[int]struct{}
	batch []model.PlayerRecord
}

// New creates an orchestrator over the given collaborators.
func New(api *nhlapi.Client, sched *ratelimit.Scheduler, players *storage.PlayerStore, checkpoints *storage.CheckpointStore, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.League == "" {
		cfg.League = def.League
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.CurrentYear == 0 {
		cfg.CurrentYear = def.CurrentYear
	}

	return &Orchestrator{
		api:         api,
		sched:       sched,
		players:     players,
		checkpoints: checkpoints,
		cfg:         cfg,
		logger:      logging.NewLogger("scraper"),
		state:       StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.logger.Debug().Str("from", string(o.state)).Str("to", string(s)).Msg("State transition")
	o.state = s
}

// fail marks the run Failed. The last durably written checkpoint is intact,
// so a rerun resumes from the last completed team.
func (o *Orchestrator) fail(err error) error {
	o.setState(StateFailed)
	o.logger.Error().Err(err).Msg("Run aborted - progress is checkpointed, rerun to resume")
	return err
}

// Run executes one full ingestion pass. Player-level failures skip the
// player, whole-team fetch failures skip the team without checkpointing it,
// and storage failures abort the run.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.setState(StateResuming)

	cp, err := o.checkpoints.Get(ctx)
	if err != nil {
		return o.fail(fmt.Errorf("load checkpoint: %w", err))
	}

	ids, err := o.players.AllIDs(ctx)
	if err != nil {
		return o.fail(fmt.Errorf("load existing player ids: %w", err))
	}
	o.seen = make(map[int]struct{}, len(ids))
	for _, id := range ids {
		o.seen[id] = struct{}{}
	}
	o.batch = o.batch[:0]

	o.logger.Info().
		Int("last_team_index", cp.LastTeamIndex).
		Int("known_players", len(o.seen)).
		Msg("Resuming ingestion")

	var teamList []nhlapi.Team
	err = o.sched.Do(ctx, func(ctx context.Context) error {
		var fetchErr error
		teamList, fetchErr = o.api.Teams(ctx)
		return fetchErr
	})
	if err != nil {
		return o.fail(fmt.Errorf("fetch team list: %w", err))
	}

	var active []nhlapi.Team
	for _, t := range teamList {
		if t.FranchiseID != 0 && t.IsActive() {
			active = append(active, t)
		}
	}

	resolver := teams.NewResolver(teamList)
	tenureCfg := tenure.Config{
		League:      o.cfg.League,
		CurrentYear: o.cfg.CurrentYear,
		GraceYears:  o.cfg.GraceYears,
	}

	o.logger.Info().
		Int("teams", len(teamList)).
		Int("active_teams", len(active)).
		Msg("Fetched team list")

	o.setState(StateIteratingTeams)

	for i := cp.LastTeamIndex; i < len(active); i++ {
		team := active[i]
		teamLogger := o.logger.With().
			Int("franchise_id", team.FranchiseID).
			Str("team", team.FullName).
			Int("index", i).
			Logger()

		teamLogger.Info().Msg("Processing team")

		summaries, failed := o.collectTeamPlayers(ctx, team.FranchiseID, teamLogger)
		if failed {
			// Checkpoint stays put, so this team is retried on the next run.
			teamsSkippedTotal.Inc()
			teamLogger.Error().Msg("Whole-team fetch failed - skipping without checkpoint advance")
			continue
		}

		if err := o.processPlayers(ctx, summaries, resolver, tenureCfg, teamLogger); err != nil {
			return o.fail(err)
		}

		if err := o.flush(ctx); err != nil {
			return o.fail(err)
		}

		cp.ProcessedTeamIDs = append(cp.ProcessedTeamIDs, team.FranchiseID)
		cp.LastTeamIndex = i + 1
		if err := o.checkpoints.Put(ctx, cp); err != nil {
			return o.fail(fmt.Errorf("persist checkpoint: %w", err))
		}

		teamsCompletedTotal.Inc()
		teamLogger.Info().Msg("Team completed and checkpointed")
		o.setState(StateIteratingTeams)
	}

	if err := o.checkpoints.Clear(ctx); err != nil {
		return o.fail(fmt.Errorf("clear checkpoint: %w", err))
	}

	o.setState(StateCompleted)
	o.logger.Info().Int("known_players", len(o.seen)).Msg("Ingestion run completed")
	return nil
}

// collectTeamPlayers drains both summary reports for a franchise. A category
// that fails with nothing collected counts as a whole-team failure; a
// category that fails after collecting some pages is just truncated, matching
// the collector's blast-radius contract.
func (o *Orchestrator) collectTeamPlayers(ctx context.Context, franchiseID int, logger zerolog.Logger) ([]nhlapi.PlayerSummary, bool) {
	var all []nhlapi.PlayerSummary

	for _, category := range []nhlapi.PlayerCategory{nhlapi.CategorySkater, nhlapi.CategoryGoalie} {
		fetch := func(ctx context.Context, start, limit int) ([]nhlapi.PlayerSummary, error) {
			var page []nhlapi.PlayerSummary
			err := o.sched.Do(ctx, func(ctx context.Context) error {
				var fetchErr error
				page, fetchErr = o.api.PlayerSummaries(ctx, category, franchiseID, start, limit)
				return fetchErr
			})
			return page, err
		}

		items, err := pagination.Collect(ctx, logger.With().Str("category", string(category)).Logger(), fetch, o.cfg.PageSize)
		if err != nil && len(items) == 0 {
			return nil, true
		}
		all = append(all, items...)
	}

	logger.Info().Int("players", len(all)).Msg("Collected player summaries")
	return all, false
}

func (o *Orchestrator) processPlayers(ctx context.Context, summaries []nhlapi.PlayerSummary, resolver *teams.Resolver, tenureCfg tenure.Config, logger zerolog.Logger) error {
	o.setState(StateIteratingPlayers)

	for _, summary := range summaries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run interrupted: %w", err)
		}

		id := summary.PlayerID
		if _, dup := o.seen[id]; dup {
			playersSkippedTotal.WithLabelValues("duplicate").Inc()
			logger.Debug().Int("player_id", id).Msg("Skipping already-ingested player")
			continue
		}

		var landing *nhlapi.PlayerLanding
		err := o.sched.Do(ctx, func(ctx context.Context) error {
			var fetchErr error
			landing, fetchErr = o.api.PlayerLanding(ctx, id)
			return fetchErr
		})
		if err != nil {
			playersSkippedTotal.WithLabelValues("fetch_failed").Inc()
			logger.Warn().Err(err).Int("player_id", id).Msg("Player fetch failed - skipping player")
			continue
		}

		// Seen on fetch success: a dropped player listed on several
		// franchises' reports is not refetched in the same run. A failed
		// fetch stays out of the set and is retried by a later run.
		o.seen[id] = struct{}{}

		record, ok := buildRecord(id, landing, resolver, tenureCfg)
		if !ok {
			// No recognized-league tenure; not a player the game can use.
			playersSkippedTotal.WithLabelValues("no_tenures").Inc()
			logger.Debug().Int("player_id", id).Msg("Dropping player with no reconciled tenures")
			continue
		}

		o.batch = append(o.batch, record)
		playersProcessedTotal.Inc()

		logger.Debug().
			Int("player_id", id).
			Str("name", record.Name).
			Str("position", record.Position).
			Bool("active", record.IsActive).
			Msg("Processed player")

		if len(o.batch) >= o.cfg.BatchSize {
			if err := o.flush(ctx); err != nil {
				return err
			}
			o.setState(StateIteratingPlayers)
		}
	}

	return nil
}

// flush writes the pending batch and clears it.
func (o *Orchestrator) flush(ctx context.Context) error {
	if len(o.batch) == 0 {
		return nil
	}

	o.setState(StateFlushing)

	result, err := o.players.UpsertMany(ctx, o.batch)
	if err != nil {
		return fmt.Errorf("flush batch of %d: %w", len(o.batch), err)
	}

	batchFlushesTotal.Inc()
	o.logger.Info().
		Int("batch", len(o.batch)).
		Int("inserted", result.Inserted).
		Int("modified", result.Modified).
		Msg("Flushed pending batch")

	o.batch = o.batch[:0]
	return nil
}

// buildRecord assembles the persisted document for one player. Returns false
// when the player has no tenure in the target league.
func buildRecord(id int, landing *nhlapi.PlayerLanding, resolver *teams.Resolver, tenureCfg tenure.Config) (model.PlayerRecord, bool) {
	tenures := tenure.Reconcile(landing.SeasonTotals, resolver, tenureCfg)
	if len(tenures) == 0 {
		return model.PlayerRecord{}, false
	}

	first := landing.FirstName.Default
	if first == "" {
		first = "Unknown"
	}
	name := strings.TrimSpace(first + " " + landing.LastName.Default)

	sweater := "N/A"
	if landing.SweaterNumber > 0 {
		sweater = strconv.Itoa(landing.SweaterNumber)
	}

	position := landing.Position
	if position == "" {
		position = "N/A"
	}

	silhouette := landing.Headshot
	if silhouette == "" {
		silhouette = fmt.Sprintf("https://assets.nhle.com/mugs/nhl/20232024/%d.png", id)
	}

	return model.PlayerRecord{
		ID:            id,
		Name:          name,
		SweaterNumber: sweater,
		Position:      position,
		Silhouette:    silhouette,
		Draft:         resolver.DraftInfo(landing.DraftDetails),
		Teams:         tenures,
		IsActive:      tenures[len(tenures)-1].IsActive,
		Stats:         statsFor(position, landing.CareerTotals.RegularSeason),
	}, true
}

// statsFor shapes career totals by position: goaltenders get the win/loss
// and save stats, everyone else the scoring stats.
func statsFor(position string, career nhlapi.CareerRegularSeason) model.Stats {
	if position == "G" {
		return model.Stats{
			Games:               career.GamesPlayed,
			Wins:                career.Wins,
			Losses:              career.Losses,
			OTLosses:            career.OTLosses,
			Record:              fmt.Sprintf("%d-%d-%d", career.Wins, career.Losses, career.OTLosses),
			SavePercentage:      career.SavePctg,
			GoalsAgainstAverage: career.GoalsAgainstAvg,
		}
	}
	return model.Stats{
		Games:   career.GamesPlayed,
		Goals:   career.Goals,
		Assists: career.Assists,
		Points:  career.Points,
	}
}
