package prediction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"

	"github.com/abelzeko/dengue-watch/internal/entities"
)

// MaxImageSize is the largest accepted upload
const MaxImageSize = 10 << 20

// ErrUnsupportedImage is returned for uploads that are not a JPEG or PNG image
var ErrUnsupportedImage = errors.New("unsupported image: upload a .jpg, .jpeg or .png file")

var allowedExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// DecodeUpload checks the file extension and decodes the image header
func DecodeUpload(filename string, data []byte) (entities.UploadedImage, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return entities.UploadedImage{}, ErrUnsupportedImage
	}
	if len(data) == 0 || len(data) > MaxImageSize {
		return entities.UploadedImage{}, ErrUnsupportedImage
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return entities.UploadedImage{}, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	return entities.UploadedImage{
		Filename: filepath.Base(filename),
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Data:     data,
	}, nil
}

// Classifier labels an uploaded image as containing stagnant water or not
type Classifier interface {
	Classify(ctx context.Context, img entities.UploadedImage) (entities.WaterDetection, error)
}

// RandomClassifier draws a random probability vector instead of running a model
type RandomClassifier struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomClassifier creates a placeholder classifier. A nil rng uses a
// randomly seeded generator
func NewRandomClassifier(rng *rand.Rand) *RandomClassifier {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomClassifier{rng: rng}
}

// Classify returns the argmax of a random distribution over the water classes
func (c *RandomClassifier) Classify(_ context.Context, img entities.UploadedImage) (entities.WaterDetection, error) {
	raw := make([]float64, len(entities.WaterClasses))
	var sum float64
	c.mu.Lock()
	for i := range raw {
		// strictly positive, total is never zero
		raw[i] = c.rng.Float64() + 1e-9
		sum += raw[i]
	}
	c.mu.Unlock()

	return Detect(img, raw, sum), nil
}

// Detect turns class scores into a detection. Scores are divided by total so
// they sum to one; the best class and its probability become the result
func Detect(img entities.UploadedImage, scores []float64, total float64) entities.WaterDetection {
	probs := make([]entities.ClassProbability, len(entities.WaterClasses))
	best := 0
	for i, class := range entities.WaterClasses {
		p := 0.0
		if i < len(scores) && total > 0 {
			p = scores[i] / total
		}
		probs[i] = entities.ClassProbability{Class: class, Probability: p}
		if p > probs[best].Probability {
			best = i
		}
	}

	d := entities.WaterDetection{
		Filename:      img.Filename,
		Width:         img.Width,
		Height:        img.Height,
		Class:         probs[best].Class,
		Confidence:    probs[best].Probability,
		Probabilities: probs,
	}
	for _, p := range probs {
		if p.Class == entities.StagnantWater && p.Probability > 0.5 {
			d.HasStagnantWater = true
		}
	}
	return d
}

var _ Classifier = (*RandomClassifier)(nil)
