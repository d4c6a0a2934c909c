package usecases

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abelzeko/dengue-watch/internal/entities"
	"github.com/abelzeko/dengue-watch/internal/repository"
)

// AlertsUseCase manages community alert subscriptions
type AlertsUseCase struct {
	repo   repository.SubscriberRepository
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewAlertsUseCase creates a new alerts use case
func NewAlertsUseCase(repo repository.SubscriberRepository, logger *zap.SugaredLogger) *AlertsUseCase {
	return &AlertsUseCase{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers a chat for alerts. Subscribing twice is harmless
func (uc *AlertsUseCase) Subscribe(ctx context.Context, chatID int64, userName string) error {
	err := uc.repo.AddSubscriber(ctx, entities.Subscriber{
		ChatID:       chatID,
		UserName:     userName,
		SubscribedAt: uc.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe chat %d: %w", chatID, err)
	}
	uc.logger.Infof("Chat %d (%s) subscribed to alerts", chatID, userName)
	return nil
}

// Unsubscribe removes a chat. It reports whether the chat was subscribed
func (uc *AlertsUseCase) Unsubscribe(ctx context.Context, chatID int64) (bool, error) {
	removed, err := uc.repo.RemoveSubscriber(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to unsubscribe chat %d: %w", chatID, err)
	}
	if removed {
		uc.logger.Infof("Chat %d unsubscribed from alerts", chatID)
	}
	return removed, nil
}

// Subscribers lists every subscribed chat
func (uc *AlertsUseCase) Subscribers(ctx context.Context) ([]entities.Subscriber, error) {
	subs, err := uc.repo.ListSubscribers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return subs, nil
}
