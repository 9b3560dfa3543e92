package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const transcriptChannel = "speech:session:%s:transcripts"

// Publisher mirrors final transcripts onto a per-session redis channel so
// other services can subscribe without going through the agent endpoint.
type Publisher struct {
	redis  *redis.Client
	logger *slog.Logger
}

func NewPublisher(redisClient *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  redisClient,
		logger: logger.With("component", "transcript_publisher"),
	}
}

func (p *Publisher) Notify(ctx context.Context, t Transcript) error {
	if p.redis == nil {
		return nil
	}

	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	channel := fmt.Sprintf(transcriptChannel, t.SessionID)
	if err := p.redis.Publish(ctx, channel, payload).Err(); err != nil {
		p.logger.Warn("transcript publish failed", "session_id", t.SessionID, "error", err)
		return fmt.Errorf("publish transcript: %w", err)
	}
	return nil
}
