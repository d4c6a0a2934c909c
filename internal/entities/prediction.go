package entities

import "time"

// RiskLevel is the label assigned by the environmental predictor
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// RiskLevels is indexed by the predictor's class number
var RiskLevels = [3]RiskLevel{RiskLow, RiskMedium, RiskHigh}

// EnvironmentalReading holds the inputs of the predictive analytics form
type EnvironmentalReading struct {
	Location    string  `json:"location"`
	Rainfall    float64 `json:"rainfall"`    // mm
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // %
	Vegetation  float64 `json:"vegetation"`  // NDVI
}

// Prediction is an environmental risk result stored in the session
type Prediction struct {
	Reading      EnvironmentalReading `json:"reading"`
	RiskLevel    RiskLevel            `json:"risk_level"`
	Score        float64              `json:"score"`
	Intervention string               `json:"intervention"`
	Source       string               `json:"source"` // which predictor produced it
	CreatedAt    time.Time            `json:"created_at"`
}

// WaterClass is a label of the stagnant water classifier
type WaterClass string

const (
	NoStagnantWater WaterClass = "No Stagnant Water"
	StagnantWater   WaterClass = "Stagnant Water"
)

// WaterClasses is indexed by the classifier's output position
var WaterClasses = [2]WaterClass{NoStagnantWater, StagnantWater}

// ClassProbability is the classifier's score for one class
type ClassProbability struct {
	Class       WaterClass `json:"class"`
	Probability float64    `json:"probability"`
}

// UploadedImage is an image received from the upload form
type UploadedImage struct {
	Filename string
	Format   string // "jpeg" or "png"
	Width    int
	Height   int
	Data     []byte
}

// WaterDetection is a stagnant water classification stored in the session
type WaterDetection struct {
	Filename         string             `json:"filename"`
	Width            int                `json:"width"`
	Height           int                `json:"height"`
	Class            WaterClass         `json:"class"`
	Confidence       float64            `json:"confidence"`
	Probabilities    []ClassProbability `json:"probabilities"`
	HasStagnantWater bool               `json:"has_stagnant_water"`
	CreatedAt        time.Time          `json:"created_at"`
	// Preview is a downscaled data URI of the upload
	Preview string `json:"-"`
}
