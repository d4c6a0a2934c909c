package entities

import "time"

// RiskPoint is a single geographic point from the risk dataset
type RiskPoint struct {
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	TotalRisk         float64 `json:"total_risk"`
	WeatherRisk       float64 `json:"weather_risk"`
	WaterCoverageRisk float64 `json:"water_coverage_risk"`
	PastCasesRisk     float64 `json:"past_cases_risk"`
}

// RiskFactor selects which score of a RiskPoint drives the heatmap
type RiskFactor string

const (
	FactorOverall       RiskFactor = "Total_Risk_Score"
	FactorWeather       RiskFactor = "Weather_Risk_Score"
	FactorWaterCoverage RiskFactor = "Water_Coverage_Risk_Score"
	FactorPastCases     RiskFactor = "Past_Cases_Risk_Score"
)

// RiskFactors lists the selectable factors in display order
var RiskFactors = []RiskFactor{FactorOverall, FactorWeather, FactorWaterCoverage, FactorPastCases}

var factorLabels = map[RiskFactor]string{
	FactorOverall:       "Overall Risk",
	FactorWeather:       "Weather",
	FactorWaterCoverage: "Stagnant water",
	FactorPastCases:     "Past Cases",
}

// Label returns the human readable name shown in the factor selector
func (f RiskFactor) Label() string {
	if l, ok := factorLabels[f]; ok {
		return l
	}
	return string(f)
}

// ParseRiskFactor accepts either the CSV column name or the display label.
// Unknown or empty values fall back to the overall risk
func ParseRiskFactor(s string) RiskFactor {
	for _, f := range RiskFactors {
		if s == string(f) || s == f.Label() {
			return f
		}
	}
	return FactorOverall
}

// Value returns the score of the point for the given factor
func (p RiskPoint) Value(f RiskFactor) float64 {
	switch f {
	case FactorWeather:
		return p.WeatherRisk
	case FactorWaterCoverage:
		return p.WaterCoverageRisk
	case FactorPastCases:
		return p.PastCasesRisk
	default:
		return p.TotalRisk
	}
}

// HeatPoint is a normalized heatmap sample ready for the map layer
type HeatPoint struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Intensity float64 `json:"intensity"` // normalized 0-1
	Value     float64 `json:"value"`     // raw score
}

// LegendEntry is one band of the risk color key
type LegendEntry struct {
	Label string  `json:"label"`
	Color string  `json:"color"`
	Min   float64 `json:"min"` // inclusive lower bound of normalized intensity
}

// Heatmap is the payload rendered by the risk map page
type Heatmap struct {
	Factor    RiskFactor    `json:"factor"`
	Label     string        `json:"label"`
	CenterLat float64       `json:"center_lat"`
	CenterLng float64       `json:"center_lng"`
	Zoom      int           `json:"zoom"`
	Radius    int           `json:"radius"`
	Points    []HeatPoint   `json:"points"`
	Legend    []LegendEntry `json:"legend"`
	MinValue  float64       `json:"min_value"`
	MaxValue  float64       `json:"max_value"`
	Updated   time.Time     `json:"updated"`
}
