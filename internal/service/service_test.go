package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/store"
	"github.com/fortuna/icetime/internal/store/repository"
	. "github.com/smartystreets/goconvey/convey"
)

type memGames map[int64]*store.Game

func (m memGames) GetByID(ctx context.Context, gameID int64) (*store.Game, error) {
	g, ok := m[gameID]
	if !ok {
		return nil, fmt.Errorf("game %d: %w", gameID, store.ErrNotFound)
	}
	return g, nil
}

func (m memGames) Exists(ctx context.Context, gameID int64) (bool, error) {
	_, ok := m[gameID]
	return ok, nil
}

func (m memGames) GetBySeason(ctx context.Context, season int, limit int) ([]*store.Game, error) {
	var out []*store.Game
	for _, g := range m {
		if g.Season == season && len(out) < limit {
			out = append(out, g)
		}
	}
	return out, nil
}

type memTeams map[int]*hockey.Team

func (m memTeams) GetByID(ctx context.Context, teamID int) (*hockey.Team, error) {
	t, ok := m[teamID]
	if !ok {
		return nil, fmt.Errorf("team %d: %w", teamID, store.ErrNotFound)
	}
	return t, nil
}

type memEvents struct {
	byGame    map[int64][]hockey.EnrichedEvent
	lastLimit int
}

func (m *memEvents) GetByGame(ctx context.Context, gameID int64) ([]hockey.EnrichedEvent, error) {
	return m.byGame[gameID], nil
}

func (m *memEvents) GetOnIceForPlayer(ctx context.Context, playerID int64, limit int) ([]hockey.EnrichedEvent, error) {
	m.lastLimit = limit
	var out []hockey.EnrichedEvent
	for _, evs := range m.byGame {
		for _, ev := range evs {
			for _, p := range append(ev.HomeOn.Players, ev.AwayOn.Players...) {
				if p.ID == playerID {
					out = append(out, ev)
				}
			}
		}
	}
	return out, nil
}

type memTOI struct {
	players  []hockey.PlayerTOI
	teams    []hockey.TeamTOI
	lastSide *hockey.Side
}

func (m *memTOI) GetPlayerTOI(ctx context.Context, gameID int64, side *hockey.Side) ([]hockey.PlayerTOI, error) {
	m.lastSide = side
	return m.players, nil
}

func (m *memTOI) GetTeamTOI(ctx context.Context, gameID int64) ([]hockey.TeamTOI, error) {
	return m.teams, nil
}

type memPlayers map[int64]*repository.Player

func (m memPlayers) GetByID(ctx context.Context, playerID int64) (*repository.Player, error) {
	p, ok := m[playerID]
	if !ok {
		return nil, fmt.Errorf("player %d: %w", playerID, store.ErrNotFound)
	}
	return p, nil
}

const (
	gameID   = int64(2023020001)
	suzuki   = int64(8480018)
	unsigned = int64(8400001)
)

func testStores() (Stores, *memEvents, *memTOI) {
	events := &memEvents{byGame: map[int64][]hockey.EnrichedEvent{
		gameID: {
			{Event: hockey.Event{GameID: gameID, EventID: 1, Type: hockey.EventFaceoff},
				HomeOn: hockey.OnIceSet{Players: []hockey.OnIcePlayer{{ID: suzuki, Name: "Nick Suzuki", Position: "C"}}}},
			{Event: hockey.Event{GameID: gameID, EventID: 2, Type: hockey.EventShotOnGoal}},
		},
	}}
	toi := &memTOI{
		players: []hockey.PlayerTOI{{GameID: gameID, PlayerID: suzuki, IsHome: true, Strength: "5v5", Seconds: 900}},
		teams:   []hockey.TeamTOI{{GameID: gameID, Abbrev: "MTL", IsHome: true, Strength: "5v5", Seconds: 3000}},
	}
	stores := Stores{
		Games: memGames{gameID: {GameID: gameID, Season: 20232024, HomeTeamID: 8, AwayTeamID: 10}},
		Teams: memTeams{
			8:  {ID: 8, Abbrev: "MTL", Name: "Montréal Canadiens"},
			10: {ID: 10, Abbrev: "TOR", Name: "Toronto Maple Leafs"},
		},
		Events: events,
		TOI:    toi,
		Players: memPlayers{
			suzuki:   {PlayerID: suzuki, FullName: "Nick Suzuki", PositionCode: "C", LastTeamID: 8},
			unsigned: {PlayerID: unsigned, FullName: "Free Agent", LastTeamID: 99},
		},
	}
	return stores, events, toi
}

func TestGameService(t *testing.T) {
	Convey("Given a game service over reconciled data", t, func() {
		stores, _, toi := testStores()
		svc := NewGameService(stores)
		ctx := context.Background()

		Convey("Games carry both teams", func() {
			summary, err := svc.GetGame(ctx, gameID)
			So(err, ShouldBeNil)
			So(summary.HomeTeam.Abbrev, ShouldEqual, "MTL")
			So(summary.AwayTeam.Abbrev, ShouldEqual, "TOR")
		})

		Convey("Unknown games are not found", func() {
			_, err := svc.GetGame(ctx, 2023029999)
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)

			_, err = svc.GetEvents(ctx, 2023029999)
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)

			_, err = svc.GetTeamTOI(ctx, 2023029999)
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)
		})

		Convey("Season listings summarize each game", func() {
			games, err := svc.GetSeasonGames(ctx, 20232024, 0)
			So(err, ShouldBeNil)
			So(games, ShouldHaveLength, 1)

			games, err = svc.GetSeasonGames(ctx, 20222023, 10)
			So(err, ShouldBeNil)
			So(games, ShouldBeEmpty)
		})

		Convey("Events are returned in stored order", func() {
			events, err := svc.GetEvents(ctx, gameID)
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 2)
			So(events[0].Type, ShouldEqual, hockey.EventFaceoff)
		})

		Convey("Player time on ice passes the side filter through", func() {
			side := hockey.Home
			rows, err := svc.GetPlayerTOI(ctx, gameID, &side)
			So(err, ShouldBeNil)
			So(rows[0].Seconds, ShouldEqual, 900)
			So(*toi.lastSide, ShouldEqual, hockey.Home)
		})

		Convey("Team time on ice is keyed by strength", func() {
			rows, err := svc.GetTeamTOI(ctx, gameID)
			So(err, ShouldBeNil)
			So(rows[0].Strength, ShouldEqual, "5v5")
		})
	})
}

func TestPlayerService(t *testing.T) {
	Convey("Given a player service", t, func() {
		stores, events, _ := testStores()
		svc := NewPlayerService(stores)
		ctx := context.Background()

		Convey("Profiles include the latest team", func() {
			profile, err := svc.GetPlayer(ctx, suzuki)
			So(err, ShouldBeNil)
			So(profile.Team.Abbrev, ShouldEqual, "MTL")
		})

		Convey("A missing team leaves the profile without one", func() {
			profile, err := svc.GetPlayer(ctx, unsigned)
			So(err, ShouldBeNil)
			So(profile.Team, ShouldBeNil)
		})

		Convey("Unknown players are not found", func() {
			_, err := svc.GetPlayer(ctx, 1)
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)

			_, err = svc.GetOnIceEvents(ctx, 1, 10)
			So(errors.Is(err, store.ErrNotFound), ShouldBeTrue)
		})

		Convey("On-ice events are limited", func() {
			evs, err := svc.GetOnIceEvents(ctx, suzuki, 0)
			So(err, ShouldBeNil)
			So(evs, ShouldHaveLength, 1)
			So(events.lastLimit, ShouldEqual, DefaultListLimit)
		})
	})
}
