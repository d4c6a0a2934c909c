package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abelzeko/dengue-watch/internal/entities"
	"github.com/abelzeko/dengue-watch/internal/repository"
)

var (
	// ErrEmptyFeedback is returned for a blank feedback message
	ErrEmptyFeedback = errors.New("please enter your feedback before submitting")
	// ErrUnknownCity is returned for a city outside the fumigation dataset
	ErrUnknownCity = errors.New("unknown city")
)

// FumigationUseCase serves the fumigation progress page
type FumigationUseCase struct {
	cities []entities.FumigationCity
	repo   repository.FeedbackRepository
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewFumigationUseCase creates a new fumigation use case
func NewFumigationUseCase(cities []entities.FumigationCity, repo repository.FeedbackRepository, logger *zap.SugaredLogger) *FumigationUseCase {
	return &FumigationUseCase{
		cities: cities,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Cities returns the fumigation dataset
func (uc *FumigationUseCase) Cities() []entities.FumigationCity {
	out := make([]entities.FumigationCity, len(uc.cities))
	copy(out, uc.cities)
	return out
}

// City looks a city up by name. An empty name selects the first city
func (uc *FumigationUseCase) City(name string) (entities.FumigationCity, error) {
	if name == "" && len(uc.cities) > 0 {
		return uc.cities[0], nil
	}
	for _, c := range uc.cities {
		if strings.EqualFold(c.City, name) {
			return c, nil
		}
	}
	return entities.FumigationCity{}, fmt.Errorf("%w: %s", ErrUnknownCity, name)
}

// Timeline returns the expected progress for days 1..days, rising linearly
// to progress percent on the last day
func Timeline(days, progress int) []entities.TimelinePoint {
	if days <= 0 {
		return nil
	}
	points := make([]entities.TimelinePoint, days)
	for day := 1; day <= days; day++ {
		points[day-1] = entities.TimelinePoint{
			Day:      day,
			Progress: float64(progress) / 100 * float64(day) / float64(days),
		}
	}
	return points
}

// SubmitFeedback stores a feedback message for a city
func (uc *FumigationUseCase) SubmitFeedback(ctx context.Context, city, message string) (entities.Feedback, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return entities.Feedback{}, ErrEmptyFeedback
	}
	c, err := uc.City(city)
	if err != nil {
		return entities.Feedback{}, err
	}

	fb := entities.Feedback{City: c.City, Message: message, CreatedAt: uc.now()}
	id, err := uc.repo.SaveFeedback(ctx, fb)
	if err != nil {
		return entities.Feedback{}, fmt.Errorf("failed to save feedback: %w", err)
	}
	fb.ID = id
	uc.logger.Infof("Stored feedback %d for %s", id, c.City)
	return fb, nil
}

// RecentFeedback lists the latest feedback for a city
func (uc *FumigationUseCase) RecentFeedback(ctx context.Context, city string, limit int) ([]entities.Feedback, error) {
	feedback, err := uc.repo.ListFeedback(ctx, city, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return feedback, nil
}
