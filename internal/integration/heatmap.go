package integration

import (
	"math"
	"sort"

	"github.com/abelzeko/dengue-watch/internal/entities"
)

// Map defaults for Lahore
const (
	MapCenterLat = 31.5204
	MapCenterLng = 74.3587
	MapZoom      = 12
	HeatRadius   = 25
)

// RiskLegend is the color key of the heatmap, lowest band first
var RiskLegend = []entities.LegendEntry{
	{Label: "Low Risk", Color: "#00FF00", Min: 0},
	{Label: "Moderate Risk", Color: "#FFFF00", Min: 0.25},
	{Label: "High Risk", Color: "#FFA500", Min: 0.5},
	{Label: "Severe Risk", Color: "#FF0000", Min: 0.75},
}

// LegendFor returns the legend band a normalized intensity falls into
func LegendFor(intensity float64) entities.LegendEntry {
	band := RiskLegend[0]
	for _, e := range RiskLegend {
		if intensity >= e.Min {
			band = e
		}
	}
	return band
}

// BuildHeatmap normalizes the selected factor of every point into 0..1.
// When all values are equal every point gets full intensity
func BuildHeatmap(points []entities.RiskPoint, factor entities.RiskFactor) entities.Heatmap {
	hm := entities.Heatmap{
		Factor:    factor,
		Label:     factor.Label(),
		CenterLat: MapCenterLat,
		CenterLng: MapCenterLng,
		Zoom:      MapZoom,
		Radius:    HeatRadius,
		Points:    make([]entities.HeatPoint, 0, len(points)),
		Legend:    RiskLegend,
	}
	if len(points) == 0 {
		return hm
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		v := p.Value(factor)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	hm.MinValue, hm.MaxValue = lo, hi

	span := hi - lo
	for _, p := range points {
		v := p.Value(factor)
		intensity := 1.0
		if span > 0 {
			intensity = (v - lo) / span
		}
		hm.Points = append(hm.Points, entities.HeatPoint{
			Lat:       p.Latitude,
			Lng:       p.Longitude,
			Intensity: intensity,
			Value:     v,
		})
	}
	return hm
}

// Hotspots returns the n points with the highest score for a factor
func Hotspots(points []entities.RiskPoint, factor entities.RiskFactor, n int) []entities.RiskPoint {
	sorted := make([]entities.RiskPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value(factor) > sorted[j].Value(factor)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
