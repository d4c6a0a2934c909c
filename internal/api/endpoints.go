package api

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/abelzeko/dengue-watch/internal/session"
	"github.com/abelzeko/dengue-watch/internal/usecases"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.services.Sessions.Len(),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleRiskAPI(w http.ResponseWriter, r *http.Request) {
	hm, err := s.services.Risk.Heatmap(r.Context(), r.URL.Query().Get("factor"))
	if err != nil {
		s.logger.Warnf("Error serving risk data: %v", err)
		s.writeJSONError(w, http.StatusBadGateway, "risk data is not available")
		return
	}
	s.writeJSON(w, http.StatusOK, hm)
}

func (s *Server) handleCasesAPI(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q := r.URL.Query()
	view := s.services.Cases.View(sess, q.Get("location"), q.Get("year"))
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"location": view.Location,
		"year":     view.Year,
		"rows":     view.Filtered,
		"series":   view.Series,
	})
}

func (s *Server) handleCasesChart(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q := r.URL.Query()
	view := s.services.Cases.View(sess, q.Get("location"), q.Get("year"))

	var buf bytes.Buffer
	if err := RenderCasesChart(&buf, view.Series); err != nil {
		if errors.Is(err, ErrNoChartData) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.logger.Errorf("Error rendering cases chart: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writePNG(w, buf.Bytes())
}

func (s *Server) handleFumigationChart(w http.ResponseWriter, r *http.Request) {
	city, err := s.services.Fumigation.City(r.URL.Query().Get("city"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := RenderFumigationChart(&buf, city, usecases.Timeline(city.EstimatedDays, city.Progress)); err != nil {
		s.logger.Errorf("Error rendering fumigation chart for %s: %v", city.City, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writePNG(w, buf.Bytes())
}

func (s *Server) handleAlertsQR(w http.ResponseWriter, r *http.Request) {
	if s.alertsURL == "" {
		http.NotFound(w, r)
		return
	}
	s.qrOnce.Do(func() {
		s.qrPNG, s.qrErr = AlertsQRCode(s.alertsURL)
	})
	if s.qrErr != nil {
		s.logger.Errorf("Error encoding alerts QR code: %v", s.qrErr)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writePNG(w, s.qrPNG)
}
