package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher pushes a stored notification to connected clients.
type Publisher interface {
	Publish(ctx context.Context, n *Notification) error
}

// Channel is the pub/sub channel a user's real-time clients subscribe to.
func Channel(userID uuid.UUID) string {
	return "notifications:" + userID.String()
}

// RedisPublisher publishes notifications as JSON on per-user Redis channels.
type RedisPublisher struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisPublisher returns a publisher. A nil client yields a publisher that does nothing.
func NewRedisPublisher(client *redis.Client, logger *zap.Logger) Publisher {
	return &RedisPublisher{client: client, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, n *Notification) error {
	if p.client == nil {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification %s: %w", n.ID, err)
	}
	receivers, err := p.client.Publish(ctx, Channel(n.UserID), payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish notification %s: %w", n.ID, err)
	}
	p.logger.Debug("Notification published",
		zap.String("notificationID", n.ID.String()),
		zap.String("userID", n.UserID.String()),
		zap.Int64("receivers", receivers),
	)
	return nil
}
