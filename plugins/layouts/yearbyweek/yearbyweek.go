// Package yearbyweek renders a full year as one TeX page per week. The
// interesting part is the context preparation: the year is walked day by
// day from the Monday on/before Jan 1 through the Sunday on/after Dec 31,
// grouping days into weeks and matching the calendar entries to each day.
package yearbyweek

import (
	"embed"
	"fmt"
	"text/template"
	"time"

	"calingen/internal/model"
	"calingen/internal/plugin"
	"calingen/internal/tex"
)

//go:embed templates
var templates embed.FS

var layoutTemplate = template.Must(
	template.New("year_by_week.tex.tmpl").
		Funcs(tex.FuncMap()).
		ParseFS(templates, "templates/*.tmpl"))

// Day is one calendar day with its entries already split into the buckets
// the template prints separately.
type Day struct {
	Date     time.Time
	Holidays []string
	Annuals  []string
}

// Week collects the days of one calendar week. Its ISO week number and
// month label are computed once, when the first day is added; the month
// label is recomputed at most once more, when the week's days turn out to
// span two months.
type Week struct {
	WeekNumber int
	MonthLabel string
	Days       []Day

	populated    bool
	turnoverDone bool
}

// AddDay appends a day, maintaining the week's metadata.
func (w *Week) AddDay(day Day) {
	if !w.populated {
		_, w.WeekNumber = day.Date.ISOWeek()
		w.MonthLabel = day.Date.Month().String()
		w.populated = true
	}

	w.Days = append(w.Days, day)

	w.checkTurnover(day.Date)
}

// IsEmpty reports whether the week contains no days yet.
func (w *Week) IsEmpty() bool { return len(w.Days) == 0 }

// checkTurnover updates the month label when a new month starts within
// this week. A turnover can happen at most once per week, so the check is
// disabled after the first hit.
func (w *Week) checkTurnover(date time.Time) {
	if w.turnoverDone {
		return
	}
	reference := w.Days[0].Date
	if reference.Month() == date.Month() {
		return
	}

	if reference.Year() != date.Year() {
		w.MonthLabel = fmt.Sprintf("%s %d/%s %d",
			reference.Month(), reference.Year(), date.Month(), date.Year())
	} else {
		w.MonthLabel = fmt.Sprintf("%s/%s", reference.Month(), date.Month())
	}
	w.turnoverDone = true
}

// mondayOffset returns the number of days since the most recent Monday
// (0 for Mondays, 6 for Sundays).
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// BuildWeeks walks the year's full calendar range and groups its days into
// weeks, attaching matching entries to each day. Entries are matched by
// month and day only: the leading and trailing days of the range belong to
// the adjacent years, yet still show the target year's entries for that
// month/day.
func BuildWeeks(targetYear int, entries []model.CalendarEntry) []*Week {
	// The first day of the calendar is the Monday on/before Jan 1.
	firstDay := time.Date(targetYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	firstDay = firstDay.AddDate(0, 0, -mondayOffset(firstDay))
	// The last day is the Sunday on/after Dec 31; one day beyond, so the
	// loop can compare with Before instead of a closed bound.
	lastDay := time.Date(targetYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	lastDay = lastDay.AddDate(0, 0, 7-mondayOffset(lastDay))

	var weeks []*Week
	week := &Week{}
	for day := firstDay; day.Before(lastDay); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Monday && !week.IsEmpty() {
			weeks = append(weeks, week)
			week = &Week{}
		}

		entry := Day{Date: day}
		for _, e := range entries {
			ts := e.Timestamp()
			if ts.Day() != day.Day() || ts.Month() != day.Month() {
				continue
			}
			switch e.Category() {
			case model.CategoryHoliday:
				entry.Holidays = append(entry.Holidays, e.Title())
			case model.CategoryAnnualAnniversary:
				entry.Annuals = append(entry.Annuals, e.Title())
			}
		}
		week.AddDay(entry)
	}
	if !week.IsEmpty() {
		weeks = append(weeks, week)
	}
	return weeks
}

func prepareContext(ctx *plugin.RenderContext) error {
	ctx.Prepared["weeks"] = BuildWeeks(ctx.TargetYear, ctx.Entries)
	return nil
}

// Layout is the registered provider.
var Layout = &plugin.TemplateLayout{
	Ident:       "layout.yearbyweek",
	Name:        "Year by Week",
	PaperSize:   "a5",
	Orientation: "portrait",
	Type:        "tex",
	Template:    layoutTemplate,
	Prepare:     prepareContext,
}

func init() {
	plugin.Layouts.MustRegister(Layout)
}
