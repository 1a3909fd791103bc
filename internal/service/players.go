package service

import (
	"context"
	"fmt"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/store/repository"
)

// PlayerService handles player-related business logic
type PlayerService struct {
	players PlayerStore
	teams   TeamStore
	events  EventStore
}

// NewPlayerService creates a new player service
func NewPlayerService(stores Stores) *PlayerService {
	return &PlayerService{
		players: stores.Players,
		teams:   stores.Teams,
		events:  stores.Events,
	}
}

// PlayerProfile contains player details with team information
type PlayerProfile struct {
	Player *repository.Player `json:"player"`
	Team   *hockey.Team       `json:"team,omitempty"`
}

// GetPlayer retrieves a player by ID with the team of their latest game
func (s *PlayerService) GetPlayer(ctx context.Context, playerID int64) (*PlayerProfile, error) {
	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("fetching player: %w", err)
	}

	profile := &PlayerProfile{Player: player}
	if player.LastTeamID != 0 {
		// A missing team row leaves the profile without one.
		if team, err := s.teams.GetByID(ctx, player.LastTeamID); err == nil {
			profile.Team = team
		}
	}
	return profile, nil
}

// GetOnIceEvents returns the most recent events the player was on the ice for
func (s *PlayerService) GetOnIceEvents(ctx context.Context, playerID int64, limit int) ([]hockey.EnrichedEvent, error) {
	if _, err := s.players.GetByID(ctx, playerID); err != nil {
		return nil, fmt.Errorf("fetching player: %w", err)
	}
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	events, err := s.events.GetOnIceForPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching on-ice events: %w", err)
	}
	return events, nil
}
