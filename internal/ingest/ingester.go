// Package ingest runs the per-game pipeline: fetch the play-by-play and
// shift documents, reconcile them, then persist and announce the result.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fortuna/icetime/internal/cache"
	"github.com/fortuna/icetime/internal/events"
	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/identity"
	"github.com/fortuna/icetime/internal/ingest/htmlreport"
	"github.com/fortuna/icetime/internal/ingest/nhl"
	"github.com/fortuna/icetime/internal/metrics"
	"github.com/fortuna/icetime/internal/publisher"
	"github.com/fortuna/icetime/internal/reconciliation"
	"github.com/fortuna/icetime/internal/shifts"
)

// GameSource serves the NHL JSON documents.
type GameSource interface {
	FetchPlayByPlay(ctx context.Context, gameID int64) (*nhl.PlayByPlay, []byte, error)
	FetchShiftChart(ctx context.Context, gameID int64) ([]nhl.ShiftChartRecord, []byte, error)
}

// ReportSource serves the legacy TH/TV shift reports.
type ReportSource interface {
	Fetch(ctx context.Context, gameID int64, side hockey.Side) (string, error)
}

// DocumentCache stores raw upstream documents.
type DocumentCache interface {
	GetDocument(ctx context.Context, kind string, gameID int64) ([]byte, bool, error)
	PutDocument(ctx context.Context, kind string, gameID int64, body []byte) error
}

// ResultSink persists a reconciled game.
type ResultSink interface {
	SaveResult(ctx context.Context, res *reconciliation.GameResult, roster *hockey.Roster, source string) error
}

// Publisher announces reconciled games on a stream.
type Publisher interface {
	PublishGameReconciled(ctx context.Context, msg publisher.GameReconciled) error
}

// Notifier pushes reconciled games to connected clients.
type Notifier interface {
	BroadcastGame(msg publisher.GameReconciled)
}

// Deps wires the ingester. Games is required; Reports is required for the
// html source. The rest are optional.
type Deps struct {
	Games     GameSource
	Reports   ReportSource
	Cache     DocumentCache
	Sink      ResultSink
	Publisher Publisher
	Notifier  Notifier
	Directory *identity.Directory
	Engine    *reconciliation.Engine
	Metrics   *metrics.Recorder

	// ShiftSource is the default source, shifts.SourceHTML or shifts.SourceAPI.
	ShiftSource string
	// FallbackToAPI retries with the shift chart when no html report exists.
	FallbackToAPI bool
}

// Game is one scraped and reconciled game.
type Game struct {
	Result *reconciliation.GameResult
	Roster *hockey.Roster
	Source string
}

// Ingester handles per-game ingestion with html primary and api fallback
type Ingester struct {
	games     GameSource
	reports   ReportSource
	cache     DocumentCache
	sink      ResultSink
	publisher Publisher
	notifier  Notifier

	normalizer *shifts.Normalizer
	matcher    *reconciliation.Matcher
	engine     *reconciliation.Engine
	metrics    *metrics.Recorder

	source   string
	fallback bool
	logger   *slog.Logger
}

// NewIngester creates a new game ingester
func NewIngester(deps Deps, logger *slog.Logger) (*Ingester, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Games == nil {
		return nil, errors.New("ingest: game source is required")
	}
	if deps.Directory == nil {
		dir, err := identity.Default()
		if err != nil {
			return nil, fmt.Errorf("load identity tables: %w", err)
		}
		deps.Directory = dir
	}
	if deps.Engine == nil {
		deps.Engine = reconciliation.NewEngine(logger)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewRecorder()
	}
	if deps.ShiftSource == "" {
		deps.ShiftSource = shifts.SourceHTML
	}
	if err := validSource(deps.ShiftSource); err != nil {
		return nil, err
	}

	return &Ingester{
		games:      deps.Games,
		reports:    deps.Reports,
		cache:      deps.Cache,
		sink:       deps.Sink,
		publisher:  deps.Publisher,
		notifier:   deps.Notifier,
		normalizer: shifts.NewNormalizer(deps.Directory),
		matcher:    reconciliation.NewMatcher(deps.Directory),
		engine:     deps.Engine,
		metrics:    deps.Metrics,
		source:     deps.ShiftSource,
		fallback:   deps.FallbackToAPI,
		logger:     logger.With("component", "ingest"),
	}, nil
}

func validSource(source string) error {
	switch source {
	case shifts.SourceHTML, shifts.SourceAPI:
		return nil
	}
	return fmt.Errorf("unknown shift source %q", source)
}

// Engine returns the reconciliation engine, for metrics reporting.
func (in *Ingester) Engine() *reconciliation.Engine { return in.engine }

// IngestGame scrapes, reconciles, persists and announces one game. A game
// without shift data returns an error wrapping hockey.ErrNoData.
func (in *Ingester) IngestGame(ctx context.Context, gameID int64, source string) (*Game, error) {
	start := time.Now()

	game, err := in.Scrape(ctx, gameID, source)
	if err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, hockey.ErrNoData) {
			outcome = metrics.OutcomeNoData
		}
		in.metrics.ObserveGame(outcome, valueOr(source, in.source), time.Since(start))
		return nil, err
	}

	if in.sink != nil {
		if err := in.sink.SaveResult(ctx, game.Result, game.Roster, game.Source); err != nil {
			in.metrics.ObserveGame(metrics.OutcomeFailed, game.Source, time.Since(start))
			return nil, fmt.Errorf("save game %d: %w", gameID, err)
		}
	}

	msg := summary(game)
	if in.publisher != nil {
		if err := in.publisher.PublishGameReconciled(ctx, msg); err != nil {
			in.logger.Warn("publish failed", "game_id", gameID, "error", err)
		}
	}
	if in.notifier != nil {
		in.notifier.BroadcastGame(msg)
	}

	in.metrics.ObserveGame(metrics.OutcomeOK, game.Source, time.Since(start))
	in.logger.Info("game ingested",
		"game_id", gameID,
		"source", game.Source,
		"events", msg.Events,
		"shifts", msg.Shifts,
		"diagnostics", msg.Diagnostics,
		"took", time.Since(start))
	return game, nil
}

// Scrape fetches and reconciles one game without persisting it. An empty
// source uses the configured default.
func (in *Ingester) Scrape(ctx context.Context, gameID int64, source string) (*Game, error) {
	source = valueOr(source, in.source)
	if err := validSource(source); err != nil {
		return nil, err
	}

	doc, err := in.playByPlay(ctx, gameID)
	if err != nil {
		return nil, err
	}
	meta := doc.Meta()
	roster := doc.Roster()

	evs, err := events.Enrich(meta, roster, doc.Plays)
	if err != nil {
		return nil, err
	}

	normalized, err := in.loadShifts(ctx, meta, roster, source)
	if errors.Is(err, hockey.ErrNoData) && source == shifts.SourceHTML && in.fallback {
		in.logger.Warn("no html shift report, falling back to shift chart", "game_id", gameID)
		source = shifts.SourceAPI
		normalized, err = in.loadShifts(ctx, meta, roster, source)
	}
	if err != nil {
		return nil, err
	}

	res, err := in.engine.ReconcileGame(reconciliation.Input{
		Meta:        meta,
		Roster:      roster,
		Events:      evs,
		Shifts:      normalized.Shifts,
		Diagnostics: normalized.Diagnostics,
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile game %d: %w", gameID, err)
	}
	in.metrics.ObserveResult(len(res.Events), res.Diagnostics)

	return &Game{Result: res, Roster: roster, Source: source}, nil
}

func (in *Ingester) playByPlay(ctx context.Context, gameID int64) (*nhl.PlayByPlay, error) {
	if body, ok := in.cached(ctx, cache.KindPlayByPlay, gameID); ok {
		doc, err := nhl.ParsePlayByPlay(body)
		if err == nil {
			return doc, nil
		}
		in.logger.Warn("discarding unreadable cached play-by-play", "game_id", gameID, "error", err)
	}

	doc, body, err := in.games.FetchPlayByPlay(ctx, gameID)
	in.metrics.ObserveFetch(cache.KindPlayByPlay, err)
	if err != nil {
		return nil, fmt.Errorf("fetch play-by-play %d: %w", gameID, err)
	}
	in.store(ctx, cache.KindPlayByPlay, gameID, body)
	return doc, nil
}

func (in *Ingester) loadShifts(ctx context.Context, meta hockey.GameMeta, roster *hockey.Roster, source string) (shifts.Result, error) {
	if source == shifts.SourceAPI {
		return in.apiShifts(ctx, meta, roster)
	}
	return in.reportShifts(ctx, meta, roster)
}

func (in *Ingester) apiShifts(ctx context.Context, meta hockey.GameMeta, roster *hockey.Roster) (shifts.Result, error) {
	var records []nhl.ShiftChartRecord
	if body, ok := in.cached(ctx, cache.KindShiftChart, meta.GameID); ok {
		if recs, err := nhl.ParseShiftChart(body); err == nil {
			records = recs
		}
	}
	if records == nil {
		recs, body, err := in.games.FetchShiftChart(ctx, meta.GameID)
		in.metrics.ObserveFetch(cache.KindShiftChart, err)
		if err != nil {
			return shifts.Result{}, fmt.Errorf("fetch shift chart %d: %w", meta.GameID, err)
		}
		in.store(ctx, cache.KindShiftChart, meta.GameID, body)
		records = recs
	}
	return in.normalizer.FromAPI(meta, roster, nhl.APIRecords(records))
}

func (in *Ingester) reportShifts(ctx context.Context, meta hockey.GameMeta, roster *hockey.Roster) (shifts.Result, error) {
	if in.reports == nil {
		return shifts.Result{}, errors.New("ingest: html shift source is not configured")
	}

	var rows []shifts.RawShift
	var diags []hockey.Diagnostic
	for _, nominal := range hockey.Sides {
		kind := reportKind(nominal)
		var page string
		if body, ok := in.cached(ctx, kind, meta.GameID); ok {
			page = string(body)
		} else {
			fetched, err := in.reports.Fetch(ctx, meta.GameID, nominal)
			in.metrics.ObserveFetch(kind, err)
			if err != nil {
				return shifts.Result{}, fmt.Errorf("fetch %s shift report %d: %w", nominal, meta.GameID, err)
			}
			page = fetched
		}

		report, err := htmlreport.Parse(page, nominal == hockey.Home)
		if err != nil {
			return shifts.Result{}, hockey.WithGame(fmt.Errorf("parse %s shift report: %w", nominal, err), meta.GameID)
		}
		in.store(ctx, kind, meta.GameID, []byte(page))

		side, diag := in.matcher.AssignSide(meta, report.TeamHeading, nominal)
		if diag != nil {
			in.logger.Warn("shift report heading", "game_id", meta.GameID, "detail", diag.Message)
			diags = append(diags, *diag)
		}
		for _, row := range report.Rows {
			row.IsHome = side == hockey.Home
			rows = append(rows, row)
		}
	}

	res, err := in.normalizer.FromReport(meta, roster, rows)
	if err != nil {
		return shifts.Result{}, err
	}
	res.Diagnostics = append(diags, res.Diagnostics...)
	return res, nil
}

func reportKind(side hockey.Side) string {
	if side == hockey.Home {
		return cache.KindReportHome
	}
	return cache.KindReportAway
}

func (in *Ingester) cached(ctx context.Context, kind string, gameID int64) ([]byte, bool) {
	if in.cache == nil {
		return nil, false
	}
	body, ok, err := in.cache.GetDocument(ctx, kind, gameID)
	if err != nil {
		in.logger.Warn("cache read failed", "kind", kind, "game_id", gameID, "error", err)
		return nil, false
	}
	in.metrics.ObserveCache(kind, ok)
	return body, ok
}

func (in *Ingester) store(ctx context.Context, kind string, gameID int64, body []byte) {
	if in.cache == nil || len(body) == 0 {
		return
	}
	if err := in.cache.PutDocument(ctx, kind, gameID, body); err != nil {
		in.logger.Warn("cache write failed", "kind", kind, "game_id", gameID, "error", err)
	}
}

func summary(g *Game) publisher.GameReconciled {
	meta := g.Result.Meta
	return publisher.GameReconciled{
		GameID:      meta.GameID,
		Season:      meta.Season,
		HomeTeam:    meta.HomeTeam.Abbrev,
		AwayTeam:    meta.AwayTeam.Abbrev,
		ShiftSource: g.Source,
		Events:      len(g.Result.Events),
		Shifts:      len(g.Result.Shifts),
		Diagnostics: len(g.Result.Diagnostics),
		At:          time.Now().UTC(),
	}
}

func valueOr(val, fallback string) string {
	if val != "" {
		return val
	}
	return fallback
}
