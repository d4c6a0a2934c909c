// Package integration handles external service interactions
package integration

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abelzeko/dengue-watch/internal/entities"
)

// DefaultRiskDataURL is the published Lahore risk dataset
const DefaultRiskDataURL = "https://raw.githubusercontent.com/QamarAyesha/test-data/refs/heads/main/lahore_dengue_data.csv"

// ErrNoRiskData is returned when no risk data could be loaded
var ErrNoRiskData = errors.New("no risk data available")

var riskColumns = []string{
	"Latitude",
	"Longitude",
	string(entities.FactorOverall),
	string(entities.FactorWeather),
	string(entities.FactorWaterCoverage),
	string(entities.FactorPastCases),
}

// RiskSource provides the risk dataset
type RiskSource interface {
	FetchRiskData(ctx context.Context) ([]entities.RiskPoint, error)
}

// RiskDataFetcher downloads the risk CSV over HTTP
type RiskDataFetcher struct {
	sourceURL string
	client    *http.Client
	retry     Retry
	logger    *zap.SugaredLogger
}

// NewRiskDataFetcher creates a fetcher for the given CSV URL. An empty URL
// uses DefaultRiskDataURL and a nil client gets a 30 second timeout
func NewRiskDataFetcher(url string, client *http.Client, logger *zap.SugaredLogger) *RiskDataFetcher {
	if url == "" {
		url = DefaultRiskDataURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RiskDataFetcher{
		sourceURL: url,
		client:    client,
		retry:     Retry{MaxAttempts: 3, BaseDelay: time.Second, Logger: logger},
		logger:    logger,
	}
}

// SourceURL returns the URL the fetcher reads from
func (f *RiskDataFetcher) SourceURL() string {
	return f.sourceURL
}

// FetchRiskData retrieves and parses the risk CSV, retrying transient failures
func (f *RiskDataFetcher) FetchRiskData(ctx context.Context) ([]entities.RiskPoint, error) {
	var points []entities.RiskPoint
	err := f.retry.Do(ctx, "fetch risk data", func() error {
		var err error
		points, err = f.fetchOnce(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return points, nil
}

func (f *RiskDataFetcher) fetchOnce(ctx context.Context) ([]entities.RiskPoint, error) {
	f.logger.Debugf("Sending HTTP request to %s", f.sourceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch risk data: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d %s", res.StatusCode, res.Status)
	}

	points, skipped, err := ParseRiskCSV(res.Body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		f.logger.Warnf("Skipped %d risk rows with unparsable values", skipped)
	}
	f.logger.Infof("Successfully fetched %d risk points", len(points))
	return points, nil
}

// ParseRiskCSV reads risk points, locating columns by header name. Rows with
// a missing, non-numeric or non-finite value are skipped and counted
func ParseRiskCSV(r io.Reader) ([]entities.RiskPoint, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("%w: empty csv", ErrNoRiskData)
		}
		return nil, 0, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	cols := make([]int, len(riskColumns))
	for i, name := range riskColumns {
		pos, ok := index[name]
		if !ok {
			return nil, 0, fmt.Errorf("csv is missing column %q", name)
		}
		cols[i] = pos
	}

	var points []entities.RiskPoint
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read csv row: %w", err)
		}

		values, ok := parseValues(record, cols)
		if !ok {
			skipped++
			continue
		}
		points = append(points, entities.RiskPoint{
			Latitude:          values[0],
			Longitude:         values[1],
			TotalRisk:         values[2],
			WeatherRisk:       values[3],
			WaterCoverageRisk: values[4],
			PastCasesRisk:     values[5],
		})
	}

	return points, skipped, nil
}

func parseValues(record []string, cols []int) ([]float64, bool) {
	values := make([]float64, len(cols))
	for i, c := range cols {
		if c >= len(record) {
			return nil, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[c]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}
