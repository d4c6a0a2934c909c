package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/abelzeko/dengue-watch/internal/content"
	"github.com/abelzeko/dengue-watch/internal/entities"
	"github.com/abelzeko/dengue-watch/internal/logging"
	"github.com/abelzeko/dengue-watch/internal/prediction"
	"github.com/abelzeko/dengue-watch/internal/session"
	"github.com/abelzeko/dengue-watch/internal/usecases"
)

type stubRisk struct {
	points []entities.RiskPoint
	err    error
}

func (s *stubRisk) Get(context.Context) ([]entities.RiskPoint, time.Time, error) {
	if s.err != nil {
		return nil, time.Time{}, s.err
	}
	return s.points, time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC), nil
}

func samplePoints() []entities.RiskPoint {
	return []entities.RiskPoint{
		{Latitude: 31.52, Longitude: 74.35, TotalRisk: 0.9, WeatherRisk: 0.2, WaterCoverageRisk: 0.5, PastCasesRisk: 0.7},
		{Latitude: 31.48, Longitude: 74.30, TotalRisk: 0.3, WeatherRisk: 0.6, WaterCoverageRisk: 0.1, PastCasesRisk: 0.2},
		{Latitude: 31.55, Longitude: 74.40, TotalRisk: 0.6, WeatherRisk: 0.4, WaterCoverageRisk: 0.8, PastCasesRisk: 0.4},
	}
}

type memoryStore struct {
	mu          sync.Mutex
	feedback    []entities.Feedback
	subscribers map[int64]entities.Subscriber
	listErr     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{subscribers: make(map[int64]entities.Subscriber)}
}

func (m *memoryStore) SaveFeedback(_ context.Context, fb entities.Feedback) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fb.ID = int64(len(m.feedback) + 1)
	m.feedback = append(m.feedback, fb)
	return fb.ID, nil
}

func (m *memoryStore) ListFeedback(_ context.Context, city string, limit int) ([]entities.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entities.Feedback
	for i := len(m.feedback) - 1; i >= 0 && len(out) < limit; i-- {
		if m.feedback[i].City == city {
			out = append(out, m.feedback[i])
		}
	}
	return out, nil
}

func (m *memoryStore) AddSubscriber(_ context.Context, s entities.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers[s.ChatID] = s
	return nil
}

func (m *memoryStore) RemoveSubscriber(_ context.Context, chatID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.subscribers[chatID]
	delete(m.subscribers, chatID)
	return ok, nil
}

func (m *memoryStore) ListSubscribers(context.Context) ([]entities.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]entities.Subscriber, 0, len(m.subscribers))
	for _, s := range m.subscribers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChatID < out[j].ChatID })
	return out, nil
}

type levelPredictor struct {
	level entities.RiskLevel
}

func (p levelPredictor) Assess(context.Context, entities.EnvironmentalReading) (prediction.Assessment, error) {
	return prediction.Assessment{Level: p.level, Score: 0.8, Source: "test"}, nil
}

type testEnv struct {
	risk   *stubRisk
	store  *memoryStore
	server *Server
	http   *httptest.Server
}

func newTestEnv(t *testing.T, alertsURL string) *testEnv {
	t.Helper()
	logger := logging.Nop()
	risk := &stubRisk{points: samplePoints()}
	store := newMemoryStore()
	c := content.Default()

	srv, err := NewServer(Services{
		Risk:       usecases.NewRiskUseCase(risk, logger),
		Cases:      usecases.NewCasesUseCase(logger),
		Fumigation: usecases.NewFumigationUseCase(c.Fumigation, store, logger),
		Prediction: usecases.NewPredictionUseCase(levelPredictor{entities.RiskMedium}, nil, nil, logger),
		Guidance:   usecases.NewGuidanceUseCase(c),
		Sessions:   session.NewStore(time.Hour),
	}, alertsURL, logger)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{risk: risk, store: store, server: srv, http: ts}
}

// client returns a browser-like client that keeps its session cookie
func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func document(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

var errUpstream = errors.New("upstream unavailable")
