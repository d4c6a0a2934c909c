package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/abelzeko/dengue-watch/internal/cases"
	"github.com/abelzeko/dengue-watch/internal/entities"
	"github.com/abelzeko/dengue-watch/internal/prediction"
	"github.com/abelzeko/dengue-watch/internal/session"
	"github.com/abelzeko/dengue-watch/internal/usecases"
)

// Inline messages
const (
	msgIncompleteEntry = "Please fill in all fields correctly."
	msgCaseSaved       = "Data added/updated successfully!"
	msgCasesEdited     = "Data updated successfully!"
	msgFeedbackThanks  = "Thank you for your feedback!"
	msgFeedbackEmpty   = "Please enter your feedback before submitting."
	msgFeedbackFailed  = "Could not save your feedback right now. Please try again later."
	msgUnsupportedFile = "Please upload a .jpg, .jpeg or .png image."
	msgUnknownCity     = "Unknown city, showing the first available city instead."
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	s.render(w, http.StatusOK, "home", "Dengue Watch", "/", struct {
		Cards     []entities.FeatureCard
		AlertsURL string
	}{s.services.Guidance.Cards(), s.alertsURL})
}

type factorOption struct {
	Value    string
	Label    string
	Selected bool
}

func (s *Server) handleRiskMap(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	selected := entities.ParseRiskFactor(r.URL.Query().Get("factor"))
	options := make([]factorOption, 0, len(entities.RiskFactors))
	for _, f := range entities.RiskFactors {
		options = append(options, factorOption{Value: string(f), Label: f.Label(), Selected: f == selected})
	}

	data := struct {
		Factors []factorOption
		Heatmap *entities.Heatmap
	}{Factors: options}

	hm, err := s.services.Risk.Heatmap(r.Context(), string(selected))
	if err != nil {
		s.logger.Warnf("Error loading risk map: %v", err)
		s.render(w, http.StatusOK, "risk_map", "Dengue Risk Heatmap", "/risk-map", data,
			flash{"error", "Risk data is not available right now. Please try again later."})
		return
	}
	data.Heatmap = &hm
	s.render(w, http.StatusOK, "risk_map", "Dengue Risk Heatmap", "/risk-map", data)
}

type fumigationView struct {
	Cities   []entities.FumigationCity
	City     entities.FumigationCity
	Timeline []entities.TimelinePoint
	Feedback []entities.Feedback
}

func (s *Server) fumigationPage(r *http.Request, cityName string) (fumigationView, []flash) {
	var flashes []flash
	city, err := s.services.Fumigation.City(cityName)
	if err != nil {
		flashes = append(flashes, flash{"warning", msgUnknownCity})
		city, _ = s.services.Fumigation.City("")
	}

	view := fumigationView{
		Cities:   s.services.Fumigation.Cities(),
		City:     city,
		Timeline: usecases.Timeline(city.EstimatedDays, city.Progress),
	}
	feedback, err := s.services.Fumigation.RecentFeedback(r.Context(), city.City, 5)
	if err != nil {
		s.logger.Warnf("Error loading feedback for %s: %v", city.City, err)
	}
	view.Feedback = feedback
	return view, flashes
}

func (s *Server) handleFumigation(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	view, flashes := s.fumigationPage(r, r.URL.Query().Get("city"))
	s.render(w, http.StatusOK, "fumigation", "Fumigation Progress", "/fumigation", view, flashes...)
}

func (s *Server) handleFumigationFeedback(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	city := r.PostFormValue("city")

	status := http.StatusOK
	var result []flash
	_, err := s.services.Fumigation.SubmitFeedback(r.Context(), city, r.PostFormValue("message"))
	switch {
	case err == nil:
		result = append(result, flash{"success", msgFeedbackThanks})
	case errors.Is(err, usecases.ErrEmptyFeedback):
		status = http.StatusUnprocessableEntity
		result = append(result, flash{"warning", msgFeedbackEmpty})
	case errors.Is(err, usecases.ErrUnknownCity):
		// fumigationPage reports the unknown city
		status = http.StatusUnprocessableEntity
	default:
		s.logger.Errorf("Error saving feedback: %v", err)
		status = http.StatusInternalServerError
		result = append(result, flash{"error", msgFeedbackFailed})
	}

	view, flashes := s.fumigationPage(r, city)
	s.render(w, status, "fumigation", "Fumigation Progress", "/fumigation", view, append(flashes, result...)...)
}

type casesPage struct {
	View          usecases.CasesView
	Months        [entities.MonthCount]entities.Month
	FormLocations []string
	ChartURL      string
}

func (s *Server) renderCases(w http.ResponseWriter, r *http.Request, sess *session.Session, status int, flashes ...flash) {
	q := r.URL.Query()
	view := s.services.Cases.View(sess, q.Get("location"), q.Get("year"))
	chartQuery := url.Values{"location": {view.Location}, "year": {view.Year}}

	s.render(w, status, "cases", "📅 Reported Dengue Cases", "/cases", casesPage{
		View:          view,
		Months:        entities.Months,
		FormLocations: cases.FormLocations,
		ChartURL:      "/charts/cases.png?" + chartQuery.Encode(),
	}, flashes...)
}

func (s *Server) handleCases(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.renderCases(w, r, sess, http.StatusOK)
}

// parseCaseEntry reads the add form. Any unreadable field is reported as an
// incomplete entry
func parseCaseEntry(form url.Values) (entities.CaseEntry, error) {
	year, err := strconv.Atoi(strings.TrimSpace(form.Get("year")))
	if err != nil || year < 2000 || year > 2100 {
		return entities.CaseEntry{}, cases.ErrIncompleteEntry
	}
	month, ok := entities.ParseMonth(form.Get("month"))
	if !ok {
		return entities.CaseEntry{}, cases.ErrIncompleteEntry
	}
	count, err := strconv.Atoi(strings.TrimSpace(form.Get("cases")))
	if err != nil {
		return entities.CaseEntry{}, cases.ErrIncompleteEntry
	}
	return entities.CaseEntry{
		Location: strings.TrimSpace(form.Get("location")),
		Year:     year,
		Month:    month,
		Cases:    count,
	}, nil
}

func (s *Server) handleCasesUpsert(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	entry, err := parseCaseEntry(r.PostForm)
	if err == nil {
		err = s.services.Cases.Upsert(sess, entry)
	}
	if err != nil {
		s.renderCases(w, r, sess, http.StatusUnprocessableEntity, flash{"error", msgIncompleteEntry})
		return
	}
	s.renderCases(w, r, sess, http.StatusOK, flash{"success", msgCaseSaved})
}

// parseEditedRows reads the row editor. Rows are parallel form arrays;
// rows marked for removal and the blank trailing row are dropped
func parseEditedRows(form url.Values) ([]entities.CaseRow, error) {
	locations := form["location"]
	years := form["year"]
	if len(years) != len(locations) {
		return nil, cases.ErrIncompleteEntry
	}
	monthValues := make([][]string, entities.MonthCount)
	for i := range monthValues {
		monthValues[i] = form[fmt.Sprintf("m%d", i+1)]
		if len(monthValues[i]) != len(locations) {
			return nil, cases.ErrIncompleteEntry
		}
	}

	removed := make(map[int]bool)
	for _, v := range form["remove"] {
		if i, err := strconv.Atoi(v); err == nil {
			removed[i] = true
		}
	}

	rows := make([]entities.CaseRow, 0, len(locations))
	for i := range locations {
		if removed[i] {
			continue
		}
		location := strings.TrimSpace(locations[i])
		year := strings.TrimSpace(years[i])

		blank := location == "" && year == ""
		for m := range monthValues {
			if strings.TrimSpace(monthValues[m][i]) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}

		y, err := strconv.Atoi(year)
		if err != nil {
			return nil, cases.ErrIncompleteEntry
		}
		row := entities.CaseRow{Location: location, Year: y}
		for m := range monthValues {
			v := strings.TrimSpace(monthValues[m][i])
			if v == "" {
				continue
			}
			c, err := strconv.Atoi(v)
			if err != nil {
				return nil, cases.ErrIncompleteEntry
			}
			row.Counts[m] = c
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Server) handleCasesEdit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	rows, err := parseEditedRows(r.PostForm)
	var changed bool
	if err == nil {
		changed, err = s.services.Cases.Replace(sess, rows)
	}
	switch {
	case err != nil:
		s.renderCases(w, r, sess, http.StatusUnprocessableEntity, flash{"error", msgIncompleteEntry})
	case changed:
		s.renderCases(w, r, sess, http.StatusOK, flash{"success", msgCasesEdited})
	default:
		s.renderCases(w, r, sess, http.StatusOK)
	}
}

func (s *Server) renderPredict(w http.ResponseWriter, sess *session.Session, status int, flashes ...flash) {
	s.render(w, status, "predict", "📊 Predictive Analytics Using Environmental Data", "/predict", struct {
		Neighbourhoods []string
		Predictions    []entities.Prediction
	}{s.services.Guidance.Neighbourhoods(), sess.Predictions()}, flashes...)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.renderPredict(w, sess, http.StatusOK)
}

func parseReading(form url.Values) (entities.EnvironmentalReading, error) {
	values := make([]float64, 4)
	for i, field := range []string{"rainfall", "temperature", "humidity", "vegetation"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(form.Get(field)), 64)
		if err != nil {
			return entities.EnvironmentalReading{}, usecases.ErrInvalidReading
		}
		values[i] = v
	}
	return entities.EnvironmentalReading{
		Location:    strings.TrimSpace(form.Get("location")),
		Rainfall:    values[0],
		Temperature: values[1],
		Humidity:    values[2],
		Vegetation:  values[3],
	}, nil
}

func (s *Server) handlePredictSubmit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	reading, err := parseReading(r.PostForm)
	if err == nil {
		_, err = s.services.Prediction.PredictRisk(r.Context(), sess, reading)
	}
	if err != nil {
		s.renderPredict(w, sess, http.StatusUnprocessableEntity, flash{"error", msgIncompleteEntry})
		return
	}
	s.renderPredict(w, sess, http.StatusOK)
}

func (s *Server) renderStagnantWater(w http.ResponseWriter, sess *session.Session, status int, flashes ...flash) {
	s.render(w, status, "stagnant_water", "Stagnant Water Detection", "/stagnant-water", struct {
		Notices    []string
		Detections []entities.WaterDetection
	}{
		Notices: []string{
			prediction.NoticeModelDisabled,
			prediction.NoticePreprocessingDisabled,
			prediction.NoticePredictionDisabled,
		},
		Detections: sess.Detections(),
	}, flashes...)
}

func (s *Server) handleStagnantWater(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.renderStagnantWater(w, sess, http.StatusOK)
}

func (s *Server) handleStagnantWaterUpload(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	r.Body = http.MaxBytesReader(w, r.Body, prediction.MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		s.renderStagnantWater(w, sess, http.StatusBadRequest, flash{"error", msgUnsupportedFile})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("image")
	if err != nil {
		s.renderStagnantWater(w, sess, http.StatusBadRequest, flash{"error", msgUnsupportedFile})
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(file, prediction.MaxImageSize+1)); err != nil {
		s.renderStagnantWater(w, sess, http.StatusBadRequest, flash{"error", msgUnsupportedFile})
		return
	}

	if _, err := s.services.Prediction.DetectStagnantWater(r.Context(), sess, header.Filename, buf.Bytes()); err != nil {
		if !errors.Is(err, prediction.ErrUnsupportedImage) {
			s.logger.Errorf("Error classifying %s: %v", header.Filename, err)
		}
		s.renderStagnantWater(w, sess, http.StatusUnprocessableEntity, flash{"error", msgUnsupportedFile})
		return
	}
	s.renderStagnantWater(w, sess, http.StatusOK)
}

type symptomOption struct {
	Name    string
	Checked bool
}

func (s *Server) handleGuidelines(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	checked := make(map[string]bool)
	for _, v := range r.URL.Query()["symptom"] {
		checked[v] = true
	}

	var selected []string
	options := make([]symptomOption, 0, len(s.services.Guidance.Symptoms()))
	for _, name := range s.services.Guidance.Symptoms() {
		options = append(options, symptomOption{Name: name, Checked: checked[name]})
		if checked[name] {
			selected = append(selected, name)
		}
	}

	s.render(w, http.StatusOK, "guidelines", "Dengue Prevention and Awareness", "/guidelines", struct {
		Tips      []string
		Symptoms  []symptomOption
		Advice    []string
		Myths     []entities.Myth
		AlertsURL string
	}{
		Tips:      s.services.Guidance.Tips(),
		Symptoms:  options,
		Advice:    usecases.SymptomAdvice(selected),
		Myths:     s.services.Guidance.Myths(),
		AlertsURL: s.alertsURL,
	})
}
