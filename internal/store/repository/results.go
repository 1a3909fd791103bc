package repository

import (
	"context"
	"database/sql"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/reconciliation"
	"github.com/fortuna/icetime/internal/store"
)

// ResultRepository writes a whole reconciled game in one transaction
type ResultRepository struct {
	db *store.Database
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *store.Database) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveResult replaces everything stored for the game.
func (r *ResultRepository) SaveResult(ctx context.Context, res *reconciliation.GameResult, roster *hockey.Roster, source string) error {
	game, err := store.NewGame(res.Meta, source, len(res.Events), len(res.Shifts), res.Diagnostics)
	if err != nil {
		return err
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, team := range []hockey.Team{res.Meta.HomeTeam, res.Meta.AwayTeam} {
			if err := upsertTeam(ctx, tx, team); err != nil {
				return err
			}
		}
		if err := upsertRoster(ctx, tx, roster); err != nil {
			return err
		}
		if err := upsertGame(ctx, tx, game); err != nil {
			return err
		}
		if err := replaceEvents(ctx, tx, game.GameID, res.Events); err != nil {
			return err
		}
		if err := replaceShifts(ctx, tx, game.GameID, res.Shifts); err != nil {
			return err
		}
		return replaceTOI(ctx, tx, game.GameID, res.PlayerTOI, res.TeamTOI)
	})
}
