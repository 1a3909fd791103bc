// Command icetime-scrape scrapes and reconciles NHL games from the shell.
//
// Usage:
//
//	icetime-scrape game 2023020001 --format csv > events.csv
//	icetime-scrape game 2023020001 --source api --save
//	icetime-scrape toi 2023020001 --side home
//	icetime-scrape backfill --games 2023020001,2023020002 --workers 2
//	icetime-scrape backfill --team MTL --season 20232024 --dry-run
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fortuna/icetime/internal/backfill"
	"github.com/fortuna/icetime/internal/cache"
	"github.com/fortuna/icetime/internal/config"
	"github.com/fortuna/icetime/internal/export"
	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/identity"
	"github.com/fortuna/icetime/internal/ingest"
	"github.com/fortuna/icetime/internal/ingest/htmlreport"
	"github.com/fortuna/icetime/internal/ingest/nhl"
	"github.com/fortuna/icetime/internal/metrics"
	"github.com/fortuna/icetime/internal/store"
	"github.com/fortuna/icetime/internal/store/repository"
)

func main() {
	_ = godotenv.Load(".env")

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "icetime-scrape",
		Short:         "Scrape NHL games and attach on-ice players to every event",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(gameCmd())
	root.AddCommand(toiCmd())
	root.AddCommand(backfillCmd())
	return root
}

// --------------------------------------------------------------------------
// game command
// --------------------------------------------------------------------------

func gameCmd() *cobra.Command {
	var source, format string
	var save, noCache bool
	cmd := &cobra.Command{
		Use:   "game <game-id>",
		Short: "Scrape one game and print its enriched events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q (use csv or json)", format)
			}
			return withPipeline(pipelineOptions{save: save, cache: !noCache}, func(ctx context.Context, p *pipeline) error {
				game, err := p.run(ctx, gameID, source, save)
				if err != nil {
					return err
				}
				for _, d := range game.Result.Diagnostics {
					p.logger.Warn("diagnostic", "detail", d.String())
				}
				return writeEvents(cmd.OutOrStdout(), format, game.Result.Events)
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Shift source: html or api (default from config)")
	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv or json")
	cmd.Flags().BoolVar(&save, "save", false, "Store the reconciled game in the database")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the Redis document cache")
	return cmd
}

func writeEvents(w io.Writer, format string, events []hockey.EnrichedEvent) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}
	return export.WriteEvents(w, events)
}

// --------------------------------------------------------------------------
// toi command
// --------------------------------------------------------------------------

func toiCmd() *cobra.Command {
	var source, side, format string
	cmd := &cobra.Command{
		Use:   "toi <game-id>",
		Short: "Scrape one game and print time on ice by strength",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gameID, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			return withPipeline(pipelineOptions{cache: true}, func(ctx context.Context, p *pipeline) error {
				game, err := p.run(ctx, gameID, source, false)
				if err != nil {
					return err
				}
				rows, err := filterSide(game.Result.PlayerTOI, side)
				if err != nil {
					return err
				}
				if format == "json" {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(map[string]interface{}{
						"players": rows,
						"teams":   game.Result.TeamTOI,
					})
				}
				return export.WritePlayerTOI(cmd.OutOrStdout(), rows)
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Shift source: html or api (default from config)")
	cmd.Flags().StringVar(&side, "side", "", "Only one team: home or away")
	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv or json")
	return cmd
}

func filterSide(rows []hockey.PlayerTOI, side string) ([]hockey.PlayerTOI, error) {
	var home bool
	switch side {
	case "":
		return rows, nil
	case "home":
		home = true
	case "away":
	default:
		return nil, fmt.Errorf("unknown side %q (use home or away)", side)
	}
	out := make([]hockey.PlayerTOI, 0, len(rows))
	for _, r := range rows {
		if r.IsHome == home {
			out = append(out, r)
		}
	}
	return out, nil
}

// --------------------------------------------------------------------------
// backfill command
// --------------------------------------------------------------------------

func backfillCmd() *cobra.Command {
	var (
		gameIDs      []int64
		team, source string
		season       int
		workers      int
		dryRun       bool
		skipExisting bool
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Ingest a list of games or a team's season into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := backfill.Request{GameIDs: gameIDs, Team: team, Season: season, Source: source, SkipExisting: skipExisting}
			if err := req.Validate(); err != nil {
				return err
			}
			jobType, _ := req.DeriveType()
			spec := backfill.JobSpec{
				Type:         jobType,
				Team:         req.Team,
				Season:       req.Season,
				GameIDs:      req.GameIDs,
				Source:       req.Source,
				SkipExisting: req.SkipExisting,
				DryRun:       dryRun,
			}

			return withPipeline(pipelineOptions{save: !dryRun, cache: true}, func(ctx context.Context, p *pipeline) error {
				deps := backfill.RunnerDeps{
					Ingester:  p.ingester,
					Schedules: p.nhl,
					Metrics:   p.metrics,
					Workers:   workers,
				}
				if p.db != nil {
					deps.Existing = repository.NewGameRepository(p.db)
				}
				runner := backfill.NewRunner(deps, p.logger)

				report, err := runner.Run(ctx, spec, &consoleReporter{out: cmd.OutOrStdout(), dryRun: dryRun})
				if err != nil {
					return err
				}
				if len(report.Failed) > 0 && len(report.Failed) == report.Total {
					return fmt.Errorf("every game failed: %s", report.Summary())
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64SliceVar(&gameIDs, "games", nil, "Comma separated game ids")
	cmd.Flags().StringVar(&team, "team", "", "Team abbreviation for a season backfill")
	cmd.Flags().IntVar(&season, "season", 0, "Season such as 20232024")
	cmd.Flags().StringVar(&source, "source", "", "Shift source: html or api (default from config)")
	cmd.Flags().IntVar(&workers, "workers", backfill.DefaultWorkers, "Games ingested at once")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve the game list without ingesting")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "Skip games already in the database")
	cmd.MarkFlagsMutuallyExclusive("games", "team")
	return cmd
}

// consoleReporter prints backfill progress.
type consoleReporter struct {
	out    io.Writer
	dryRun bool
}

func (c *consoleReporter) OnJobStart(spec backfill.JobSpec, gameIDs []int64) {
	fmt.Fprintf(c.out, "Starting %s job: %d games (dry_run=%v)\n", spec.Type, len(gameIDs), c.dryRun)
	if c.dryRun {
		for _, id := range gameIDs {
			fmt.Fprintln(c.out, id)
		}
	}
}

func (c *consoleReporter) OnGameDone(res backfill.GameResult, done, total int) {
	line := fmt.Sprintf("[%d/%d] %d %s", done, total, res.GameID, res.Outcome)
	if res.Err != nil {
		line += ": " + res.Err.Error()
	}
	fmt.Fprintln(c.out, line)
}

func (c *consoleReporter) OnJobComplete(report *backfill.Report) {
	fmt.Fprintln(c.out, "Job complete:", report.Summary())
}

func (c *consoleReporter) OnJobError(err error) {
	fmt.Fprintln(c.out, "Job error:", err)
}

// --------------------------------------------------------------------------
// shared wiring
// --------------------------------------------------------------------------

type pipelineOptions struct {
	save  bool
	cache bool
}

type pipeline struct {
	ingester *ingest.Ingester
	nhl      *nhl.Client
	db       *store.Database
	metrics  *metrics.Recorder
	logger   *slog.Logger
}

// run scrapes a game, persisting it when save is set.
func (p *pipeline) run(ctx context.Context, gameID int64, source string, save bool) (*ingest.Game, error) {
	if save {
		return p.ingester.IngestGame(ctx, gameID, source)
	}
	return p.ingester.Scrape(ctx, gameID, source)
}

func withPipeline(opts pipelineOptions, fn func(ctx context.Context, p *pipeline) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// Progress goes to stderr so stdout stays a clean data stream.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if cfg.LogLevel == "debug" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	p := &pipeline{metrics: metrics.NewRecorder(), logger: logger}
	p.nhl = nhl.NewClient(nhl.Config{
		APIBase:         cfg.NHLAPIBase,
		StatsBase:       cfg.NHLStatsBase,
		RequestInterval: cfg.RequestInterval,
	}, logger)

	reports, err := htmlreport.NewClient(htmlreport.Config{
		BaseURL:         cfg.HTMLReportBase,
		Mode:            cfg.HTMLFetchMode,
		RequestInterval: cfg.RequestInterval,
	}, logger)
	if err != nil {
		return err
	}
	defer reports.Close()

	dir, err := identity.Load(cfg.IdentityFile)
	if err != nil {
		return fmt.Errorf("load identity tables: %w", err)
	}

	deps := ingest.Deps{
		Games:         p.nhl,
		Reports:       reports,
		Directory:     dir,
		Metrics:       p.metrics,
		ShiftSource:   cfg.ShiftSource,
		FallbackToAPI: cfg.FallbackToAPI,
	}

	if opts.cache && cfg.RedisURL != "" {
		// The cache is optional from the shell.
		if rc, err := cache.NewRedisCache(cfg.RedisURL, cfg.CacheTTL); err == nil {
			defer rc.Close()
			deps.Cache = rc
		} else {
			logger.Warn("running without document cache", "error", err)
		}
	}

	if opts.save {
		db, err := store.NewDatabase(cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := db.RunMigrations(ctx); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		p.db = db
		deps.Sink = repository.NewResultRepository(db)
	}

	p.ingester, err = ingest.NewIngester(deps, logger)
	if err != nil {
		return err
	}
	return fn(ctx, p)
}

func parseGameID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1_000_000_000 || id > 9_999_999_999 {
		return 0, fmt.Errorf("game id %q is not a 10 digit id", arg)
	}
	return id, nil
}
