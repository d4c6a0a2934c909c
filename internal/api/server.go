// Package api provides the HTTP dashboard and the Telegram alerts bot
package api

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abelzeko/dengue-watch/internal/session"
	"github.com/abelzeko/dengue-watch/internal/usecases"
)

// SessionCookie names the cookie holding the session id
const SessionCookie = "dengue_session"

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"home", "risk_map", "fumigation", "cases", "predict", "stagnant_water", "guidelines"}

type navLink struct {
	Path  string
	Label string
}

var navigation = []navLink{
	{"/", "Home"},
	{"/risk-map", "Risk Map"},
	{"/fumigation", "Fumigation"},
	{"/cases", "Reported Cases"},
	{"/predict", "Environmental Factors"},
	{"/stagnant-water", "Stagnant Water"},
	{"/guidelines", "Guidelines"},
}

// Services groups the use cases behind the dashboard
type Services struct {
	Risk       *usecases.RiskUseCase
	Cases      *usecases.CasesUseCase
	Fumigation *usecases.FumigationUseCase
	Prediction *usecases.PredictionUseCase
	Guidance   *usecases.GuidanceUseCase
	Sessions   *session.Store
}

// Server serves the dashboard pages and the JSON and image endpoints
type Server struct {
	services  Services
	alertsURL string
	templates map[string]*template.Template
	logger    *zap.SugaredLogger
	started   time.Time

	qrOnce sync.Once
	qrPNG  []byte
	qrErr  error
}

type flash struct {
	Kind    string // success, error, warning or info
	Message string
}

type pageData struct {
	Title   string
	Active  string
	Nav     []navLink
	Flashes []flash
	Data    interface{}
}

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"percent": func(f float64) string {
		return fmt.Sprintf("%.0f%%", f*100)
	},
	// imageURL passes through the data URIs built for upload previews
	"imageURL": func(s string) template.URL {
		if !strings.HasPrefix(s, "data:image/") {
			return ""
		}
		return template.URL(s)
	},
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Format("2006-01-02 15:04:05 MST")
	},
}

// NewServer parses the page templates and creates a server. alertsURL is
// the link behind the community alerts QR code; empty hides it
func NewServer(services Services, alertsURL string, logger *zap.SugaredLogger) (*Server, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		templates[page] = tmpl
	}

	return &Server{
		services:  services,
		alertsURL: alertsURL,
		templates: templates,
		logger:    logger,
		started:   time.Now(),
	}, nil
}

// Handler returns the routed handler with logging and panic recovery
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.withSession(s.handleHome))
	mux.HandleFunc("GET /risk-map", s.withSession(s.handleRiskMap))
	mux.HandleFunc("GET /fumigation", s.withSession(s.handleFumigation))
	mux.HandleFunc("POST /fumigation", s.withSession(s.handleFumigationFeedback))
	mux.HandleFunc("GET /cases", s.withSession(s.handleCases))
	mux.HandleFunc("POST /cases", s.withSession(s.handleCasesUpsert))
	mux.HandleFunc("POST /cases/edit", s.withSession(s.handleCasesEdit))
	mux.HandleFunc("GET /predict", s.withSession(s.handlePredict))
	mux.HandleFunc("POST /predict", s.withSession(s.handlePredictSubmit))
	mux.HandleFunc("GET /stagnant-water", s.withSession(s.handleStagnantWater))
	mux.HandleFunc("POST /stagnant-water", s.withSession(s.handleStagnantWaterUpload))
	mux.HandleFunc("GET /guidelines", s.withSession(s.handleGuidelines))

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/risk", s.handleRiskAPI)
	mux.HandleFunc("GET /api/cases", s.withExistingSession(s.handleCasesAPI))
	mux.HandleFunc("GET /charts/cases.png", s.withExistingSession(s.handleCasesChart))
	mux.HandleFunc("GET /charts/fumigation.png", s.handleFumigationChart)
	mux.HandleFunc("GET /qr/alerts.png", s.handleAlertsQR)

	return s.recoverer(s.requestLogger(mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Dashboard listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve dashboard: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down dashboard...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down dashboard: %w", err)
	}
	return nil
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves the caller's session, starting one when the cookie
// is missing or expired
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}
		sess, created := s.services.Sessions.GetOrCreate(id)
		if created {
			s.logger.Debugf("Started session %s", sess.ID)
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		h(w, r, sess)
	}
}

// withExistingSession resolves the caller's session without starting one.
// Callers without a live session see the seed data
func (s *Server) withExistingSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sess *session.Session
		if c, err := r.Cookie(SessionCookie); err == nil {
			sess, _ = s.services.Sessions.Get(c.Value)
		}
		if sess == nil {
			sess = s.services.Sessions.Detached()
		}
		h(w, r, sess)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.logger.Errorf("Panic serving %s %s: %v", r.Method, r.URL.Path, v)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// render executes a page into a buffer so a template error never sends a
// half written page
func (s *Server) render(w http.ResponseWriter, status int, page, title, active string, data interface{}, flashes ...flash) {
	tmpl, ok := s.templates[page]
	if !ok {
		s.logger.Errorf("Unknown template %s", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, "layout", pageData{
		Title:   title,
		Active:  active,
		Nav:     navigation,
		Flashes: flashes,
		Data:    data,
	})
	if err != nil {
		s.logger.Errorf("Error rendering %s: %v", page, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debugf("Error writing %s: %v", page, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.logger.Errorf("Error encoding JSON response: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"internal error"}`+"\n")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debugf("Error writing JSON response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}
