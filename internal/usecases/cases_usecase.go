package usecases

import (
	"go.uber.org/zap"

	"github.com/abelzeko/dengue-watch/internal/cases"
	"github.com/abelzeko/dengue-watch/internal/entities"
	"github.com/abelzeko/dengue-watch/internal/session"
)

// CasesView is everything the reported cases page shows
type CasesView struct {
	Rows      []entities.CaseRow
	Filtered  []entities.CaseRow
	Series    []entities.SeriesPoint
	Locations []string
	Years     []int
	Location  string
	Year      string
}

// CasesUseCase edits and queries a session's reported cases table
type CasesUseCase struct {
	logger *zap.SugaredLogger
}

// NewCasesUseCase creates a new cases use case
func NewCasesUseCase(logger *zap.SugaredLogger) *CasesUseCase {
	return &CasesUseCase{logger: logger}
}

// Upsert adds or overwrites one monthly count
func (uc *CasesUseCase) Upsert(sess *session.Session, e entities.CaseEntry) error {
	err := sess.WithCases(func(t *cases.Table) error {
		return t.Upsert(e)
	})
	if err != nil {
		uc.logger.Debugf("Rejected case entry %+v: %v", e, err)
		return err
	}
	uc.logger.Debugf("Session %s: set %s %d %s to %d", sess.ID, e.Location, e.Year, e.Month, e.Cases)
	return nil
}

// Replace swaps in the rows submitted by the row editor. It reports false
// when the submission matches the current table
func (uc *CasesUseCase) Replace(sess *session.Session, rows []entities.CaseRow) (bool, error) {
	var changed bool
	err := sess.WithCases(func(t *cases.Table) error {
		var err error
		changed, err = t.Replace(rows)
		return err
	})
	if err != nil {
		return false, err
	}
	if changed {
		uc.logger.Debugf("Session %s: table replaced with %d rows", sess.ID, len(rows))
	}
	return changed, nil
}

// View returns the full table plus the rows matching the filter
func (uc *CasesUseCase) View(sess *session.Session, location, year string) CasesView {
	if location == "" {
		location = cases.All
	}
	if year == "" {
		year = cases.All
	}

	view := CasesView{Location: location, Year: year}
	_ = sess.WithCases(func(t *cases.Table) error {
		view.Rows = t.Rows()
		view.Filtered = t.Filter(location, year)
		view.Locations = t.Locations()
		view.Years = t.Years()
		return nil
	})
	view.Series = cases.Series(view.Filtered)
	return view
}
