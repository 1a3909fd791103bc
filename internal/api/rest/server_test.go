package rest

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fortuna/icetime/internal/backfill"
	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/ingest"
	"github.com/fortuna/icetime/internal/metrics"
	"github.com/fortuna/icetime/internal/reconciliation"
	"github.com/fortuna/icetime/internal/service"
	"github.com/fortuna/icetime/internal/store"
	"github.com/fortuna/icetime/internal/store/repository"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	knownGame = int64(2023020001)
	suzuki    = int64(8480018)
)

type fakeGames struct {
	lastSide  *hockey.Side
	lastLimit int
}

func (f *fakeGames) GetGame(ctx context.Context, gameID int64) (*service.GameSummary, error) {
	if gameID != knownGame {
		return nil, fmt.Errorf("game %d: %w", gameID, store.ErrNotFound)
	}
	return &service.GameSummary{
		Game:     &store.Game{GameID: knownGame, Season: 20232024, GameDate: time.Date(2023, 10, 11, 0, 0, 0, 0, time.UTC)},
		HomeTeam: &hockey.Team{ID: 8, Abbrev: "MTL"},
		AwayTeam: &hockey.Team{ID: 10, Abbrev: "TOR"},
	}, nil
}

func (f *fakeGames) GetSeasonGames(ctx context.Context, season int, limit int) ([]*service.GameSummary, error) {
	f.lastLimit = limit
	g, _ := f.GetGame(ctx, knownGame)
	return []*service.GameSummary{g}, nil
}

func (f *fakeGames) GetEvents(ctx context.Context, gameID int64) ([]hockey.EnrichedEvent, error) {
	if gameID != knownGame {
		return nil, fmt.Errorf("game %d: %w", gameID, store.ErrNotFound)
	}
	strength := "5v5"
	return []hockey.EnrichedEvent{{
		Event:    hockey.Event{GameID: knownGame, EventID: 1, Type: hockey.EventFaceoff},
		HomeOn:   hockey.OnIceSet{Players: []hockey.OnIcePlayer{{ID: suzuki, Name: "Nick Suzuki", Position: "C"}}},
		Strength: &strength,
	}}, nil
}

func (f *fakeGames) GetPlayerTOI(ctx context.Context, gameID int64, side *hockey.Side) ([]hockey.PlayerTOI, error) {
	f.lastSide = side
	return []hockey.PlayerTOI{{GameID: gameID, PlayerID: suzuki, Strength: "5v5", Seconds: 900}}, nil
}

func (f *fakeGames) GetTeamTOI(ctx context.Context, gameID int64) ([]hockey.TeamTOI, error) {
	return nil, errors.New("connection reset")
}

type fakePlayers struct{}

func (fakePlayers) GetPlayer(ctx context.Context, playerID int64) (*service.PlayerProfile, error) {
	if playerID != suzuki {
		return nil, fmt.Errorf("player %d: %w", playerID, store.ErrNotFound)
	}
	return &service.PlayerProfile{Player: &repository.Player{PlayerID: suzuki, FullName: "Nick Suzuki"}}, nil
}

func (fakePlayers) GetOnIceEvents(ctx context.Context, playerID int64, limit int) ([]hockey.EnrichedEvent, error) {
	return []hockey.EnrichedEvent{}, nil
}

type fakeScraper struct {
	err     error
	sources []string
}

func (f *fakeScraper) IngestGame(ctx context.Context, gameID int64, source string) (*ingest.Game, error) {
	f.sources = append(f.sources, source)
	if f.err != nil {
		return nil, f.err
	}
	return &ingest.Game{
		Result: &reconciliation.GameResult{
			Meta:   hockey.GameMeta{GameID: gameID},
			Events: make([]hockey.EnrichedEvent, 3),
			Shifts: make([]hockey.Shift, 40),
		},
		Source: "html",
	}, nil
}

type fakeBackfill struct {
	requests []backfill.Request
}

func (f *fakeBackfill) Enqueue(ctx context.Context, req backfill.Request) (*backfill.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.requests = append(f.requests, req)
	return &backfill.Job{JobID: "job-1", JobType: backfill.JobTypeGames, Status: backfill.JobStatusQueued}, nil
}

func (f *fakeBackfill) GetJob(ctx context.Context, jobID string) (*backfill.Job, error) {
	if jobID != "job-1" {
		return nil, store.ErrNotFound
	}
	return &backfill.Job{JobID: jobID, Status: backfill.JobStatusRunning}, nil
}

func (f *fakeBackfill) GetStatus(ctx context.Context) (*backfill.StatusSummary, error) {
	return &backfill.StatusSummary{}, nil
}

type checkFunc func(ctx context.Context) error

func (c checkFunc) HealthCheck(ctx context.Context) error { return c(ctx) }

func do(h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(rec *httptest.ResponseRecorder) map[string]interface{} {
	out := map[string]interface{}{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}

func TestServer(t *testing.T) {
	Convey("Given a REST server over fake services", t, func() {
		games := &fakeGames{}
		scraper := &fakeScraper{}
		bf := &fakeBackfill{}
		recorder := metrics.NewRecorder()
		redisDown := checkFunc(func(ctx context.Context) error { return errors.New("dial tcp: refused") })
		dbUp := checkFunc(func(ctx context.Context) error { return nil })

		srv := NewServer(Config{Port: "0"}, Deps{
			Games:    games,
			Players:  fakePlayers{},
			Scraper:  scraper,
			Backfill: bf,
			Checks:   map[string]HealthChecker{"database": dbUp},
			Metrics:  recorder,
		}, nil)
		h := srv.Handler()

		Convey("Health reports each dependency", func() {
			rec := do(h, "GET", "/health", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["status"], ShouldEqual, "healthy")

			degraded := NewServer(Config{}, Deps{Checks: map[string]HealthChecker{"redis": redisDown}}, nil)
			rec = do(degraded.Handler(), "GET", "/health", "")
			So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(rec)["dependencies"].(map[string]interface{})["redis"], ShouldContainSubstring, "refused")
		})

		Convey("Games are served and unknown games are 404", func() {
			rec := do(h, "GET", "/api/v1/games/2023020001", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			rec = do(h, "GET", "/api/v1/games/2023029999", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decode(rec)["status"], ShouldEqual, float64(404))
		})

		Convey("Season listings validate the season", func() {
			So(do(h, "GET", "/api/v1/games?season=2023", "").Code, ShouldEqual, http.StatusBadRequest)

			rec := do(h, "GET", "/api/v1/games?season=20232024&limit=5", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(games.lastLimit, ShouldEqual, 5)
		})

		Convey("Events export as csv with materialized slots", func() {
			rec := do(h, "GET", "/api/v1/games/2023020001/events?format=csv", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldEqual, "text/csv")

			rows, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0], ShouldContain, "home_on_name_7")
			So(rows[1], ShouldContain, "Nick Suzuki")
			So(rows[1], ShouldContain, "MTL")

			So(do(h, "GET", "/api/v1/games/2023020001/events?format=xml", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Time on ice accepts a side filter", func() {
			rec := do(h, "GET", "/api/v1/games/2023020001/toi?side=away", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(*games.lastSide, ShouldEqual, hockey.Away)

			So(do(h, "GET", "/api/v1/games/2023020001/toi?side=bench", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Store failures are 500s", func() {
			rec := do(h, "GET", "/api/v1/games/2023020001/strength-toi", "")
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode(rec)["details"], ShouldEqual, "connection reset")
		})

		Convey("Scrapes pass the source through and map pipeline errors", func() {
			rec := do(h, "POST", "/api/v1/games/2023020001/scrape?source=api", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["shifts"], ShouldEqual, float64(40))
			So(scraper.sources, ShouldResemble, []string{"api"})

			So(do(h, "POST", "/api/v1/games/2023020001/scrape?source=ftp", "").Code, ShouldEqual, http.StatusBadRequest)

			scraper.err = fmt.Errorf("report: %w", hockey.ErrNoData)
			So(do(h, "POST", "/api/v1/games/2023020001/scrape", "").Code, ShouldEqual, http.StatusNotFound)

			scraper.err = &hockey.FormatError{Field: "shift_start", Value: "??"}
			So(do(h, "POST", "/api/v1/games/2023020001/scrape", "").Code, ShouldEqual, http.StatusBadGateway)
		})

		Convey("Players and their on-ice events are served", func() {
			So(do(h, "GET", "/api/v1/players/8480018", "").Code, ShouldEqual, http.StatusOK)
			So(do(h, "GET", "/api/v1/players/1", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(h, "GET", "/api/v1/players/8480018/on-ice?limit=10", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Backfill jobs are queued and looked up", func() {
			rec := do(h, "POST", "/api/v1/backfill", `{"game_ids":[2023020001],"game_id":2023020002,"source":"api"}`)
			So(rec.Code, ShouldEqual, http.StatusAccepted)
			So(bf.requests[0].GameIDs, ShouldResemble, []int64{2023020001, 2023020002})

			So(do(h, "POST", "/api/v1/backfill", `{"team":"Habs","season":20232024}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, "POST", "/api/v1/backfill", `not json`).Code, ShouldEqual, http.StatusBadRequest)

			rec = do(h, "GET", "/api/v1/backfill/status", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["status"], ShouldEqual, "idle")

			rec = do(h, "GET", "/api/v1/backfill/job-1", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["job"].(map[string]interface{})["status"], ShouldEqual, "running")

			So(do(h, "GET", "/api/v1/backfill/missing", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Requests are counted by route template", func() {
			do(h, "GET", "/api/v1/games/2023020001", "")
			rec := do(h, "GET", "/metrics", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, `route="/api/v1/games/{gameID:[0-9]+}"`)
		})
	})

	Convey("Scrape routes are rate limited per client", t, func() {
		srv := NewServer(Config{ScrapesPerMinute: 2}, Deps{Scraper: &fakeScraper{}}, nil)
		h := srv.Handler()
		So(do(h, "POST", "/api/v1/games/2023020001/scrape", "").Code, ShouldEqual, http.StatusOK)
		So(do(h, "POST", "/api/v1/games/2023020001/scrape", "").Code, ShouldEqual, http.StatusTooManyRequests)
	})

	Convey("Panics become 500 responses", t, func() {
		srv := NewServer(Config{}, Deps{Games: nil}, nil)
		rec := do(srv.Handler(), "GET", "/api/v1/games/2023020001", "")
		So(rec.Code, ShouldEqual, http.StatusInternalServerError)
	})
}
