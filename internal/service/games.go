package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/store"
	"github.com/fortuna/icetime/internal/store/repository"
)

// DefaultListLimit caps list endpoints when the caller gives no limit.
const DefaultListLimit = 100

// GameStore reads reconciled game rows.
type GameStore interface {
	GetByID(ctx context.Context, gameID int64) (*store.Game, error)
	Exists(ctx context.Context, gameID int64) (bool, error)
	GetBySeason(ctx context.Context, season int, limit int) ([]*store.Game, error)
}

// TeamStore reads teams.
type TeamStore interface {
	GetByID(ctx context.Context, teamID int) (*hockey.Team, error)
}

// EventStore reads enriched events.
type EventStore interface {
	GetByGame(ctx context.Context, gameID int64) ([]hockey.EnrichedEvent, error)
	GetOnIceForPlayer(ctx context.Context, playerID int64, limit int) ([]hockey.EnrichedEvent, error)
}

// TOIStore reads time-on-ice aggregates.
type TOIStore interface {
	GetPlayerTOI(ctx context.Context, gameID int64, side *hockey.Side) ([]hockey.PlayerTOI, error)
	GetTeamTOI(ctx context.Context, gameID int64) ([]hockey.TeamTOI, error)
}

// PlayerStore reads roster players.
type PlayerStore interface {
	GetByID(ctx context.Context, playerID int64) (*repository.Player, error)
}

// Stores groups the read side of the database.
type Stores struct {
	Games   GameStore
	Teams   TeamStore
	Events  EventStore
	TOI     TOIStore
	Players PlayerStore
}

// NewStores builds every store over a database.
func NewStores(db *store.Database) Stores {
	return Stores{
		Games:   repository.NewGameRepository(db),
		Teams:   repository.NewTeamRepository(db),
		Events:  repository.NewEventRepository(db),
		TOI:     repository.NewTOIRepository(db),
		Players: repository.NewPlayerRepository(db),
	}
}

// GameService handles game-related business logic
type GameService struct {
	games  GameStore
	teams  TeamStore
	events EventStore
	toi    TOIStore
}

// NewGameService creates a new game service
func NewGameService(stores Stores) *GameService {
	return &GameService{
		games:  stores.Games,
		teams:  stores.Teams,
		events: stores.Events,
		toi:    stores.TOI,
	}
}

// GameSummary contains game details with team information
type GameSummary struct {
	Game     *store.Game  `json:"game"`
	HomeTeam *hockey.Team `json:"home_team"`
	AwayTeam *hockey.Team `json:"away_team"`
}

// Meta rebuilds the game-level fields copied onto exported event rows.
func (s *GameSummary) Meta() hockey.GameMeta {
	meta := hockey.GameMeta{
		GameID:   s.Game.GameID,
		Season:   s.Game.Season,
		GameType: s.Game.GameType,
		GameDate: s.Game.GameDate.Format("2006-01-02"),
		Venue:    s.Game.Venue.String,
	}
	if s.Game.StartTimeUTC.Valid {
		meta.StartTimeUTC = s.Game.StartTimeUTC.Time.UTC().Format(time.RFC3339)
	}
	if s.HomeTeam != nil {
		meta.HomeTeam = *s.HomeTeam
	}
	if s.AwayTeam != nil {
		meta.AwayTeam = *s.AwayTeam
	}
	return meta
}

// GetGame retrieves a game by ID with team details
func (s *GameService) GetGame(ctx context.Context, gameID int64) (*GameSummary, error) {
	game, err := s.games.GetByID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching game: %w", err)
	}
	return s.summarize(ctx, game)
}

// GetSeasonGames lists reconciled games of a season, newest first
func (s *GameService) GetSeasonGames(ctx context.Context, season int, limit int) ([]*GameSummary, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	games, err := s.games.GetBySeason(ctx, season, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching season games: %w", err)
	}

	summaries := make([]*GameSummary, 0, len(games))
	for _, game := range games {
		summary, err := s.summarize(ctx, game)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetEvents returns the enriched events of a reconciled game in play order
func (s *GameService) GetEvents(ctx context.Context, gameID int64) ([]hockey.EnrichedEvent, error) {
	if err := s.requireGame(ctx, gameID); err != nil {
		return nil, err
	}
	events, err := s.events.GetByGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	return events, nil
}

// GetPlayerTOI returns per-player time on ice by strength, optionally for
// one side only
func (s *GameService) GetPlayerTOI(ctx context.Context, gameID int64, side *hockey.Side) ([]hockey.PlayerTOI, error) {
	if err := s.requireGame(ctx, gameID); err != nil {
		return nil, err
	}
	rows, err := s.toi.GetPlayerTOI(ctx, gameID, side)
	if err != nil {
		return nil, fmt.Errorf("fetching player toi: %w", err)
	}
	return rows, nil
}

// GetTeamTOI returns per-team time by strength
func (s *GameService) GetTeamTOI(ctx context.Context, gameID int64) ([]hockey.TeamTOI, error) {
	if err := s.requireGame(ctx, gameID); err != nil {
		return nil, err
	}
	rows, err := s.toi.GetTeamTOI(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("fetching team toi: %w", err)
	}
	return rows, nil
}

func (s *GameService) requireGame(ctx context.Context, gameID int64) error {
	exists, err := s.games.Exists(ctx, gameID)
	if err != nil {
		return fmt.Errorf("fetching game: %w", err)
	}
	if !exists {
		return fmt.Errorf("game %d: %w", gameID, store.ErrNotFound)
	}
	return nil
}

func (s *GameService) summarize(ctx context.Context, game *store.Game) (*GameSummary, error) {
	homeTeam, err := s.teams.GetByID(ctx, game.HomeTeamID)
	if err != nil {
		return nil, fmt.Errorf("fetching home team for game %d: %w", game.GameID, err)
	}

	awayTeam, err := s.teams.GetByID(ctx, game.AwayTeamID)
	if err != nil {
		return nil, fmt.Errorf("fetching away team for game %d: %w", game.GameID, err)
	}

	return &GameSummary{
		Game:     game,
		HomeTeam: homeTeam,
		AwayTeam: awayTeam,
	}, nil
}
