package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/fortuna/icetime/internal/backfill"
	"github.com/fortuna/icetime/internal/export"
	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/ingest"
	"github.com/fortuna/icetime/internal/service"
	"github.com/fortuna/icetime/internal/shifts"
	"github.com/fortuna/icetime/internal/store"
)

// GameReader serves reconciled games.
type GameReader interface {
	GetGame(ctx context.Context, gameID int64) (*service.GameSummary, error)
	GetSeasonGames(ctx context.Context, season int, limit int) ([]*service.GameSummary, error)
	GetEvents(ctx context.Context, gameID int64) ([]hockey.EnrichedEvent, error)
	GetPlayerTOI(ctx context.Context, gameID int64, side *hockey.Side) ([]hockey.PlayerTOI, error)
	GetTeamTOI(ctx context.Context, gameID int64) ([]hockey.TeamTOI, error)
}

// PlayerReader serves roster players.
type PlayerReader interface {
	GetPlayer(ctx context.Context, playerID int64) (*service.PlayerProfile, error)
	GetOnIceEvents(ctx context.Context, playerID int64, limit int) ([]hockey.EnrichedEvent, error)
}

// Scraper runs the ingestion pipeline for one game.
type Scraper interface {
	IngestGame(ctx context.Context, gameID int64, source string) (*ingest.Game, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	games   GameReader
	players PlayerReader
	scraper Scraper
	checks  map[string]HealthChecker
	logger  *slog.Logger
}

// NewHandler creates a new handler
func NewHandler(games GameReader, players PlayerReader, scraper Scraper, checks map[string]HealthChecker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		games:   games,
		players: players,
		scraper: scraper,
		checks:  checks,
		logger:  logger,
	}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.HealthCheck(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":       state,
		"service":      "icetime",
		"dependencies": deps,
	})
}

// GetSeasonGames returns reconciled games of a season
func (h *Handler) GetSeasonGames(w http.ResponseWriter, r *http.Request) {
	season, err := strconv.Atoi(r.URL.Query().Get("season"))
	if err == nil {
		err = backfill.ValidSeason(season)
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid season (use e.g. 20232024)", err)
		return
	}

	games, err := h.games.GetSeasonGames(r.Context(), season, queryLimit(r))
	if err != nil {
		h.respondLookupError(w, "Failed to fetch games", err)
		return
	}
	respondJSON(w, http.StatusOK, games)
}

// GetGame returns one reconciled game
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}

	game, err := h.games.GetGame(r.Context(), gameID)
	if err != nil {
		h.respondLookupError(w, "Failed to fetch game", err)
		return
	}
	respondJSON(w, http.StatusOK, game)
}

// GetGameEvents returns the enriched events of a game as JSON, or as a flat
// file with format=csv
func (h *Handler) GetGameEvents(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}

	events, err := h.games.GetEvents(r.Context(), gameID)
	if err != nil {
		h.respondLookupError(w, "Failed to fetch events", err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		respondJSON(w, http.StatusOK, events)
	case "csv":
		game, err := h.games.GetGame(r.Context(), gameID)
		if err != nil {
			h.respondLookupError(w, "Failed to fetch game", err)
			return
		}
		meta := game.Meta()
		for i := range events {
			events[i].Meta = meta
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=\""+strconv.FormatInt(gameID, 10)+"_events.csv\"")
		if err := export.WriteEvents(w, events); err != nil {
			h.logger.Error("csv export failed", "game_id", gameID, "error", err)
		}
	default:
		respondError(w, http.StatusBadRequest, "Unknown format (use json or csv)", nil)
	}
}

// GetPlayerTOI returns per-player time on ice by strength
func (h *Handler) GetPlayerTOI(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}

	var side *hockey.Side
	switch r.URL.Query().Get("side") {
	case "":
	case "home":
		s := hockey.Home
		side = &s
	case "away":
		s := hockey.Away
		side = &s
	default:
		respondError(w, http.StatusBadRequest, "Invalid side (use home or away)", nil)
		return
	}

	rows, err := h.games.GetPlayerTOI(r.Context(), gameID, side)
	if err != nil {
		h.respondLookupError(w, "Failed to fetch time on ice", err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// GetStrengthTOI returns per-team time by strength state
func (h *Handler) GetStrengthTOI(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}

	rows, err := h.games.GetTeamTOI(r.Context(), gameID)
	if err != nil {
		h.respondLookupError(w, "Failed to fetch strength time on ice", err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// ScrapeGame runs the pipeline for one game and stores the result
func (h *Handler) ScrapeGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}
	source := r.URL.Query().Get("source")
	switch source {
	case "", shifts.SourceHTML, shifts.SourceAPI:
	default:
		respondError(w, http.StatusBadRequest, "Invalid source (use html or api)", nil)
		return
	}

	game, err := h.scraper.IngestGame(r.Context(), gameID, source)
	if err != nil {
		var fe *hockey.FormatError
		switch {
		case errors.Is(err, hockey.ErrNoData):
			respondError(w, http.StatusNotFound, "No shift data published for game", err)
		case errors.As(err, &fe):
			respondError(w, http.StatusBadGateway, "Upstream document could not be parsed", err)
		default:
			h.logger.Error("scrape failed", "game_id", gameID, "error", err)
			respondError(w, http.StatusBadGateway, "Failed to scrape game", err)
		}
		return
	}

	res := game.Result
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"game_id":      res.Meta.GameID,
		"shift_source": game.Source,
		"events":       len(res.Events),
		"shifts":       len(res.Shifts),
		"diagnostics":  res.Diagnostics,
	})
}

// GetPlayer returns a player profile
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, ok := pathID(w, r, "playerID")
	if !ok {
		return
	}

	profile, err := h.players.GetPlayer(r.Context(), playerID)
	if err != nil {
		h.respondLookupError(w, "Failed to fetch player", err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// GetPlayerOnIce returns recent events the player was on the ice for
func (h *Handler) GetPlayerOnIce(w http.ResponseWriter, r *http.Request) {
	playerID, ok := pathID(w, r, "playerID")
	if !ok {
		return
	}

	events, err := h.players.GetOnIceEvents(r.Context(), playerID, queryLimit(r))
	if err != nil {
		h.respondLookupError(w, "Failed to fetch on-ice events", err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (h *Handler) respondLookupError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Not found", err)
		return
	}
	h.logger.Error(message, "error", err)
	respondError(w, http.StatusInternalServerError, message, err)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid "+name, err)
		return 0, false
	}
	return id, true
}

func queryLimit(r *http.Request) int {
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= service.DefaultListLimit {
		return l
	}
	return 0
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
