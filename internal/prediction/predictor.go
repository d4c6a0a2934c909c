// Package prediction provides the environmental risk predictor and the
// stagnant water classifier. The built-in implementations are placeholders
// that return random labels; real inference plugs in through the same
// interfaces
package prediction

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/abelzeko/dengue-watch/internal/entities"
)

// Placeholder notices displayed while model loading is disabled
const (
	NoticeModelDisabled         = "Model loading is currently disabled. This is a placeholder."
	NoticePreprocessingDisabled = "Preprocessing is currently disabled. This is a placeholder."
	NoticePredictionDisabled    = "Prediction is currently disabled. This is a placeholder."
)

// PlaceholderSource names results produced by the random implementations
const PlaceholderSource = "placeholder"

var interventions = map[entities.RiskLevel]string{
	entities.RiskLow:    "No immediate action required. Monitor conditions regularly.",
	entities.RiskMedium: "Increase surveillance and public awareness. Remove stagnant water sources.",
	entities.RiskHigh:   "Implement emergency measures. Conduct fogging and distribute mosquito nets.",
}

// Intervention returns the recommended strategy for a risk level
func Intervention(level entities.RiskLevel) string {
	return interventions[level]
}

// Assessment is the outcome of a risk prediction
type Assessment struct {
	Level  entities.RiskLevel
	Score  float64 // confidence in the label, 0-1
	Source string
}

// Predictor assesses dengue risk from environmental readings
type Predictor interface {
	Assess(ctx context.Context, reading entities.EnvironmentalReading) (Assessment, error)
}

// RandomPredictor ignores its input and draws a uniformly random risk level
type RandomPredictor struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPredictor creates a placeholder predictor. A nil rng uses a
// randomly seeded generator
func NewRandomPredictor(rng *rand.Rand) *RandomPredictor {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomPredictor{rng: rng}
}

// Assess returns Low, Medium or High at random. It never fails
func (p *RandomPredictor) Assess(_ context.Context, _ entities.EnvironmentalReading) (Assessment, error) {
	p.mu.Lock()
	idx := p.rng.IntN(len(entities.RiskLevels))
	score := p.rng.Float64()
	p.mu.Unlock()

	return Assessment{
		Level:  entities.RiskLevels[idx],
		Score:  score,
		Source: PlaceholderSource,
	}, nil
}

var _ Predictor = (*RandomPredictor)(nil)
