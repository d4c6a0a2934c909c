package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abelzeko/dengue-watch/internal/entities"
	"github.com/abelzeko/dengue-watch/internal/prediction"
	"github.com/abelzeko/dengue-watch/internal/session"
)

// ErrInvalidReading is returned when an environmental reading is out of range
var ErrInvalidReading = errors.New("please fill in all fields correctly")

// Notifier delivers a community alert to every subscriber
type Notifier interface {
	Broadcast(ctx context.Context, text string) (int, error)
}

// PredictionUseCase runs the environmental predictor and the stagnant water
// classifier and keeps their results in the session
type PredictionUseCase struct {
	predictor  prediction.Predictor
	fallback   prediction.Predictor
	classifier prediction.Classifier
	notifier   Notifier
	logger     *zap.SugaredLogger
	now        func() time.Time
	alerts     sync.WaitGroup
}

// NewPredictionUseCase creates a new prediction use case. A nil predictor or
// classifier uses the placeholder; a nil notifier disables alerts
func NewPredictionUseCase(predictor prediction.Predictor, classifier prediction.Classifier, notifier Notifier, logger *zap.SugaredLogger) *PredictionUseCase {
	fallback := prediction.NewRandomPredictor(nil)
	if predictor == nil {
		predictor = fallback
	}
	if classifier == nil {
		classifier = prediction.NewRandomClassifier(nil)
	}
	return &PredictionUseCase{
		predictor:  predictor,
		fallback:   fallback,
		classifier: classifier,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// ValidateReading checks the form ranges
func ValidateReading(r entities.EnvironmentalReading) error {
	values := []float64{r.Rainfall, r.Temperature, r.Humidity, r.Vegetation}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidReading
		}
	}
	switch {
	case strings.TrimSpace(r.Location) == "":
		return ErrInvalidReading
	case r.Rainfall < 0, r.Temperature < 0:
		return ErrInvalidReading
	case r.Humidity < 0 || r.Humidity > 100:
		return ErrInvalidReading
	case r.Vegetation < -1 || r.Vegetation > 1:
		return ErrInvalidReading
	}
	return nil
}

// PredictRisk labels a reading and stores the result in the session. A
// predictor failure falls back to the placeholder, so only invalid input
// returns an error. High risk results are broadcast to subscribers
func (uc *PredictionUseCase) PredictRisk(ctx context.Context, sess *session.Session, reading entities.EnvironmentalReading) (entities.Prediction, error) {
	if err := ValidateReading(reading); err != nil {
		return entities.Prediction{}, err
	}

	assessment, err := uc.predictor.Assess(ctx, reading)
	if err != nil {
		uc.logger.Warnf("Risk predictor failed, using placeholder: %v", err)
		assessment, _ = uc.fallback.Assess(ctx, reading)
	}

	p := entities.Prediction{
		Reading:      reading,
		RiskLevel:    assessment.Level,
		Score:        assessment.Score,
		Intervention: prediction.Intervention(assessment.Level),
		Source:       assessment.Source,
		CreatedAt:    uc.now(),
	}
	sess.AddPrediction(p)
	uc.logger.Infof("Predicted %s risk for %s (source: %s)", p.RiskLevel, reading.Location, p.Source)

	if p.RiskLevel == entities.RiskHigh && uc.notifier != nil {
		uc.broadcast(ctx, FormatAlert(p))
	}
	return p, nil
}

func (uc *PredictionUseCase) broadcast(ctx context.Context, text string) {
	uc.alerts.Add(1)
	go func() {
		defer uc.alerts.Done()
		sent, err := uc.notifier.Broadcast(context.WithoutCancel(ctx), text)
		if err != nil {
			uc.logger.Warnf("Alert broadcast stopped after %d messages: %v", sent, err)
			return
		}
		uc.logger.Infof("Alert sent to %d subscribers", sent)
	}()
}

// Wait blocks until pending alert broadcasts finish
func (uc *PredictionUseCase) Wait() {
	uc.alerts.Wait()
}

// DetectStagnantWater validates an uploaded image, classifies it and stores
// the result in the session
func (uc *PredictionUseCase) DetectStagnantWater(ctx context.Context, sess *session.Session, filename string, data []byte) (entities.WaterDetection, error) {
	img, err := prediction.DecodeUpload(filename, data)
	if err != nil {
		return entities.WaterDetection{}, err
	}

	d, err := uc.classifier.Classify(ctx, img)
	if err != nil {
		return entities.WaterDetection{}, fmt.Errorf("failed to classify image: %w", err)
	}
	d.CreatedAt = uc.now()
	if d.Preview, err = prediction.Preview(img, prediction.PreviewSize); err != nil {
		uc.logger.Warnf("Error building preview for %s: %v", img.Filename, err)
	}
	sess.AddDetection(d)
	uc.logger.Infof("Classified %s (%dx%d) as %s", img.Filename, img.Width, img.Height, d.Class)
	return d, nil
}

// FormatAlert formats a high risk prediction for subscribers
func FormatAlert(p entities.Prediction) string {
	return fmt.Sprintf("🚨 Dengue alert: %s risk predicted for %s.\n\n"+
		"🌧️ Rainfall: %.1f mm\n🌡️ Temperature: %.1f °C\n💧 Humidity: %.0f%%\n🌿 NDVI: %.2f\n\n"+
		"Recommended action: %s",
		p.RiskLevel, p.Reading.Location,
		p.Reading.Rainfall, p.Reading.Temperature, p.Reading.Humidity, p.Reading.Vegetation,
		p.Intervention)
}
