// Package cases holds the per-session reported dengue cases table
package cases

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/abelzeko/dengue-watch/internal/entities"
)

// All is the filter value that matches every location or year
const All = "All"

// ErrIncompleteEntry is returned for any missing or invalid field. It carries
// no field detail: the form shows a single generic message
var ErrIncompleteEntry = errors.New("please fill in all fields correctly")

// FormLocations are the choices offered by the add data form
var FormLocations = []string{"Gulberg, Lahore", "Johar Town, Lahore", "Defence, Lahore", "Other"}

// Table is the reported cases table of one session. It is not safe for
// concurrent use; the owning session serializes access
type Table struct {
	rows []entities.CaseRow
}

// NewTable creates a table holding a copy of rows
func NewTable(rows []entities.CaseRow) *Table {
	t := &Table{rows: make([]entities.CaseRow, len(rows))}
	copy(t.rows, rows)
	return t
}

// Seed returns the built-in dataset a new session starts with
func Seed() []entities.CaseRow {
	return []entities.CaseRow{
		{Location: "Gulberg, Lahore", Year: 2023, Counts: [entities.MonthCount]int{10, 15, 80, 60, 0, 0, 0, 30, 120, 10, 2, 0}},
		{Location: "Johar Town, Lahore", Year: 2023, Counts: [entities.MonthCount]int{5, 10, 50, 40, 5, 0, 0, 15, 80, 8, 0, 1}},
		{Location: "Defence, Lahore", Year: 2023, Counts: [entities.MonthCount]int{8, 12, 30, 20, 6, 0, 0, 22, 75, 20, 0, 3}},
	}
}

// NewSeededTable creates a table holding the built-in dataset
func NewSeededTable() *Table {
	return NewTable(Seed())
}

func validate(location string, year int, cases int) error {
	if location == "" || year <= 0 || cases < 0 {
		return ErrIncompleteEntry
	}
	return nil
}

// Upsert sets the month column of the (location, year) row, creating the row
// with all other months at zero when it does not exist yet. Repeated
// submissions for the same month overwrite the previous value
func (t *Table) Upsert(e entities.CaseEntry) error {
	if err := validate(e.Location, e.Year, e.Cases); err != nil {
		return err
	}
	if e.Month < 1 || e.Month > entities.MonthCount {
		return ErrIncompleteEntry
	}

	for i := range t.rows {
		if t.rows[i].Location == e.Location && t.rows[i].Year == e.Year {
			t.rows[i].Set(e.Month, e.Cases)
			return nil
		}
	}

	row := entities.CaseRow{Location: e.Location, Year: e.Year}
	row.Set(e.Month, e.Cases)
	t.rows = append(t.rows, row)
	return nil
}

// Replace swaps the table contents for edited rows. It reports whether the
// contents changed; an invalid row or a repeated (location, year) pair
// leaves the table untouched
func (t *Table) Replace(rows []entities.CaseRow) (bool, error) {
	type key struct {
		location string
		year     int
	}
	seen := make(map[key]bool, len(rows))
	for _, r := range rows {
		if err := validate(r.Location, r.Year, 0); err != nil {
			return false, err
		}
		k := key{r.Location, r.Year}
		if seen[k] {
			return false, ErrIncompleteEntry
		}
		seen[k] = true
		for _, c := range r.Counts {
			if c < 0 {
				return false, ErrIncompleteEntry
			}
		}
	}
	if equalRows(t.rows, rows) {
		return false, nil
	}
	t.rows = make([]entities.CaseRow, len(rows))
	copy(t.rows, rows)
	return true, nil
}

func equalRows(a, b []entities.CaseRow) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Rows returns a copy of all rows in insertion order
func (t *Table) Rows() []entities.CaseRow {
	out := make([]entities.CaseRow, len(t.rows))
	copy(out, t.rows)
	return out
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Filter returns the rows matching location and year. Either may be All.
// A year that is not a number matches nothing
func (t *Table) Filter(location, year string) []entities.CaseRow {
	wantYear := 0
	if year != All && year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			return []entities.CaseRow{}
		}
		wantYear = y
	}

	out := []entities.CaseRow{}
	for _, r := range t.rows {
		if location != All && location != "" && r.Location != location {
			continue
		}
		if wantYear != 0 && r.Year != wantYear {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Locations returns the distinct locations in first-seen order
func (t *Table) Locations() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.rows {
		if !seen[r.Location] {
			seen[r.Location] = true
			out = append(out, r.Location)
		}
	}
	return out
}

// Years returns the distinct years in first-seen order
func (t *Table) Years() []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range t.rows {
		if !seen[r.Year] {
			seen[r.Year] = true
			out = append(out, r.Year)
		}
	}
	return out
}

// Series melts rows into one point per (row, month), grouped by row
func Series(rows []entities.CaseRow) []entities.SeriesPoint {
	points := make([]entities.SeriesPoint, 0, len(rows)*entities.MonthCount)
	for _, r := range rows {
		for _, m := range entities.Months {
			points = append(points, entities.SeriesPoint{
				Location: r.Location,
				Year:     r.Year,
				Month:    m,
				Cases:    r.Get(m),
				Label:    fmt.Sprintf("%s %d", m, r.Year),
			})
		}
	}
	return points
}
