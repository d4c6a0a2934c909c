// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abelzeko/dengue-watch/internal/entities"
	"github.com/abelzeko/dengue-watch/internal/integration"
)

// RiskProvider returns the current risk dataset and when it was fetched
type RiskProvider interface {
	Get(ctx context.Context) ([]entities.RiskPoint, time.Time, error)
}

// RiskUseCase builds the risk map views
type RiskUseCase struct {
	provider RiskProvider
	logger   *zap.SugaredLogger
}

// NewRiskUseCase creates a new risk use case
func NewRiskUseCase(provider RiskProvider, logger *zap.SugaredLogger) *RiskUseCase {
	return &RiskUseCase{
		provider: provider,
		logger:   logger,
	}
}

// Heatmap returns the normalized heatmap for the requested factor. The
// factor accepts a column name or a display label, and defaults to overall risk
func (uc *RiskUseCase) Heatmap(ctx context.Context, factor string) (entities.Heatmap, error) {
	f := entities.ParseRiskFactor(factor)
	uc.logger.Debugf("Building heatmap for factor %s", f)

	points, updated, err := uc.provider.Get(ctx)
	if err != nil {
		return entities.Heatmap{}, fmt.Errorf("failed to load risk data: %w", err)
	}

	hm := integration.BuildHeatmap(points, f)
	hm.Updated = updated
	return hm, nil
}

// Hotspots returns the n highest overall risk points
func (uc *RiskUseCase) Hotspots(ctx context.Context, n int) ([]entities.RiskPoint, time.Time, error) {
	points, updated, err := uc.provider.Get(ctx)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load risk data: %w", err)
	}
	return integration.Hotspots(points, entities.FactorOverall, n), updated, nil
}

// FormatHotspots formats hotspots for a chat message
func FormatHotspots(points []entities.RiskPoint, updated time.Time) string {
	if len(points) == 0 {
		return "No risk data available right now."
	}

	var result strings.Builder
	result.WriteString("Top dengue risk hotspots in Lahore:\n\n")
	for i, p := range points {
		result.WriteString(fmt.Sprintf("%d. 📍 %.4f, %.4f\n", i+1, p.Latitude, p.Longitude))
		result.WriteString(fmt.Sprintf("   Overall risk: %.2f (weather %.2f, stagnant water %.2f, past cases %.2f)\n",
			p.TotalRisk, p.WeatherRisk, p.WaterCoverageRisk, p.PastCasesRisk))
	}
	result.WriteString(fmt.Sprintf("\n🕒 Last update: %s", updated.Format("2006-01-02 15:04:05 MST")))
	return result.String()
}
