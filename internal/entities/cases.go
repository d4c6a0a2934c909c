// Package entities contains the core domain objects for the dengue dashboard
package entities

import (
	"strings"
	"time"
)

// Month is a calendar month column of the reported cases table
type Month = time.Month

// MonthCount is the number of month columns in a cases row
const MonthCount = 12

// Months lists the month columns in calendar order
var Months = [MonthCount]Month{
	time.January, time.February, time.March, time.April, time.May, time.June,
	time.July, time.August, time.September, time.October, time.November, time.December,
}

// ParseMonth resolves a full English month name ("April") or its three-letter
// prefix ("Apr"), case-insensitively
func ParseMonth(name string) (Month, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, false
	}
	for _, m := range Months {
		full := m.String()
		if strings.EqualFold(full, name) || (len(name) == 3 && strings.EqualFold(full[:3], name)) {
			return m, true
		}
	}
	return 0, false
}

// CaseRow is one row of the reported cases table, keyed by location and year
type CaseRow struct {
	Location string          `json:"location"`
	Year     int             `json:"year"`
	Counts   [MonthCount]int `json:"counts"` // January..December
}

// Get returns the number of cases reported for a month
func (r CaseRow) Get(m Month) int {
	return r.Counts[m-1]
}

// Set overwrites the number of cases for a month
func (r *CaseRow) Set(m Month, cases int) {
	r.Counts[m-1] = cases
}

// Total returns the sum over all months
func (r CaseRow) Total() int {
	total := 0
	for _, c := range r.Counts {
		total += c
	}
	return total
}

// CaseEntry is a single (location, year, month, cases) submission
type CaseEntry struct {
	Location string
	Year     int
	Month    Month
	Cases    int
}

// SeriesPoint is one melted cell of the cases table, used for charts
type SeriesPoint struct {
	Location string `json:"location"`
	Year     int    `json:"year"`
	Month    Month  `json:"month"`
	Cases    int    `json:"cases"`
	Label    string `json:"label"` // e.g. "April 2023"
}
