package usecase

import (
	"context"
	"time"

	"github.com/wekeepgrowing/resume-billing/pkg/messaging"
	"go.uber.org/zap"
)

// AccessChange is published after a write that may change a user's access.
type AccessChange struct {
	UserID      string    `json:"user_id"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
	ReferenceID string    `json:"reference_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type AccessNotifier interface {
	NotifyAccessChanged(ctx context.Context, change AccessChange) error
}

// RedisAccessNotifier publishes changes on a Redis channel.
type RedisAccessNotifier struct {
	client  messaging.RedisClient
	channel string
	logger  *zap.Logger
}

func NewRedisAccessNotifier(client messaging.RedisClient, channel string, logger *zap.Logger) *RedisAccessNotifier {
	return &RedisAccessNotifier{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

func (n *RedisAccessNotifier) NotifyAccessChanged(ctx context.Context, change AccessChange) error {
	if err := n.client.Publish(ctx, n.channel, change); err != nil {
		return err
	}
	n.logger.Debug("Published access change",
		zap.String("channel", n.channel),
		zap.String("user_id", change.UserID),
		zap.String("source", change.Source))
	return nil
}

// NopAccessNotifier is used when Redis is not configured.
type NopAccessNotifier struct{}

func (NopAccessNotifier) NotifyAccessChanged(context.Context, AccessChange) error { return nil }

// notify publishes change and only logs failures; a lost notification never
// fails the write that caused it.
func notify(ctx context.Context, notifier AccessNotifier, change AccessChange, logger *zap.Logger) {
	if err := notifier.NotifyAccessChanged(ctx, change); err != nil {
		logger.Warn("Failed to publish access change",
			zap.String("user_id", change.UserID),
			zap.String("reference_id", change.ReferenceID),
			zap.Error(err))
	}
}
