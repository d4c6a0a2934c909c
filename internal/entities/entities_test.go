package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in     string
		want   Month
		wantOK bool
	}{
		{"April", time.April, true},
		{"april", time.April, true},
		{" Sep ", time.September, true},
		{"DEC", time.December, true},
		{"Ap", 0, false},
		{"Aprilis", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseMonth(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCaseRowAccessors(t *testing.T) {
	var r CaseRow
	r.Set(time.March, 80)
	r.Set(time.September, 120)
	assert.Equal(t, 80, r.Get(time.March))
	assert.Equal(t, 0, r.Get(time.January))
	assert.Equal(t, 200, r.Total())
}

func TestParseRiskFactor(t *testing.T) {
	assert.Equal(t, FactorWeather, ParseRiskFactor("Weather"))
	assert.Equal(t, FactorWaterCoverage, ParseRiskFactor("Stagnant water"))
	assert.Equal(t, FactorPastCases, ParseRiskFactor("Past_Cases_Risk_Score"))
	assert.Equal(t, FactorOverall, ParseRiskFactor(""))
	assert.Equal(t, FactorOverall, ParseRiskFactor("Humidity"))
	assert.Equal(t, "Overall Risk", FactorOverall.Label())
}

func TestRiskPointValue(t *testing.T) {
	p := RiskPoint{TotalRisk: 0.4, WeatherRisk: 0.1, WaterCoverageRisk: 0.2, PastCasesRisk: 0.3}
	assert.Equal(t, 0.4, p.Value(FactorOverall))
	assert.Equal(t, 0.1, p.Value(FactorWeather))
	assert.Equal(t, 0.2, p.Value(FactorWaterCoverage))
	assert.Equal(t, 0.3, p.Value(FactorPastCases))
}
