package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StreamReconciled carries one entry per reconciled game.
const StreamReconciled = "games.reconciled.nhl"

// streamMaxLen caps the stream approximately.
const streamMaxLen = 10000

// GameReconciled is the stream payload for a finished reconciliation.
type GameReconciled struct {
	GameID      int64     `json:"game_id"`
	Season      int       `json:"season"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	ShiftSource string    `json:"shift_source"`
	Events      int       `json:"events"`
	Shifts      int       `json:"shifts"`
	Diagnostics int       `json:"diagnostics"`
	At          time.Time `json:"at"`
}

// RedisStreamPublisher publishes events to Redis streams
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		stream: StreamReconciled,
	}
}

// PublishGameReconciled appends a completion entry to the stream
func (rsp *RedisStreamPublisher) PublishGameReconciled(ctx context.Context, msg GameReconciled) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal stream payload: %w", err)
	}

	err = rsp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: rsp.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"game_id":   msg.GameID,
			"data":      string(data),
			"timestamp": msg.At.Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", rsp.stream, err)
	}
	return nil
}
