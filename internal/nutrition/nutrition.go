// Package nutrition tracks daily calorie and protein intake through notes
// tagged "nutrition". Each entry records amounts as "cal: N" and "prot: N"
// lines in the note content.
package nutrition

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gregdefoy/zettl/internal/apperr"
	"github.com/gregdefoy/zettl/internal/store"
)

// TagNutrition marks notes holding nutrition entries.
const TagNutrition = "nutrition"

var (
	calPattern  = regexp.MustCompile(`(?i)cal:\s*(\d+(?:\.\d+)?)`)
	protPattern = regexp.MustCompile(`(?i)prot:\s*(\d+(?:\.\d+)?)`)
)

// Entry is one parsed nutrition note.
type Entry struct {
	NoteID   string
	Content  string
	Calories float64
	Protein  float64
	Time     time.Time
}

// DayTotal aggregates one day's entries.
type DayTotal struct {
	Date     string
	Calories float64
	Protein  float64
}

// Tracker reads and writes nutrition entries via the store.
type Tracker struct {
	store *store.Store
	now   func() time.Time
}

// NewTracker creates a Tracker.
func NewTracker(st *store.Store) *Tracker {
	return &Tracker{store: st, now: time.Now}
}

// Log records a nutrition entry. The content must carry at least one of
// "cal:" or "prot:". A non-empty date (YYYY-MM-DD) backdates the entry to
// noon UTC of that day so it sorts inside the day regardless of timezone.
func (t *Tracker) Log(ctx context.Context, content, date string) (string, error) {
	if _, _, ok := parseAmounts(content); !ok {
		return "", fmt.Errorf(`entry needs a "cal:" or "prot:" amount: %w`, apperr.ErrBadRequest)
	}

	var noteID string
	var err error
	if date != "" {
		day, perr := time.ParseInLocation("2006-01-02", date, time.UTC)
		if perr != nil {
			return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", date, apperr.ErrBadRequest)
		}
		noon := day.Add(12 * time.Hour).Format("2006-01-02T15:04:05.000")
		noteID, err = t.store.CreateNoteWithTimestamp(ctx, content, noon, "")
	} else {
		noteID, err = t.store.CreateNote(ctx, content)
	}
	if err != nil {
		return "", err
	}
	if err := t.store.AddTag(ctx, noteID, TagNutrition); err != nil {
		return noteID, err
	}
	return noteID, nil
}

// Entries returns every parseable nutrition entry, oldest first. Notes
// tagged nutrition but carrying no amounts are skipped.
func (t *Tracker) Entries(ctx context.Context) ([]Entry, error) {
	nutritionNotes, err := t.store.GetNotesByTag(ctx, TagNutrition)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, note := range nutritionNotes {
		cal, prot, ok := parseAmounts(note.Content)
		if !ok {
			continue
		}
		ts, err := store.ParseTimestamp(note.CreatedAt)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			NoteID:   note.ID,
			Content:  note.Content,
			Calories: cal,
			Protein:  prot,
			Time:     ts,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Time.Before(entries[j].Time) })
	return entries, nil
}

// Today returns today's total and the entries behind it.
func (t *Tracker) Today(ctx context.Context) (DayTotal, []Entry, error) {
	entries, err := t.Entries(ctx)
	if err != nil {
		return DayTotal{}, nil, err
	}
	today := t.now().UTC().Format("2006-01-02")
	total := DayTotal{Date: today}
	var todays []Entry
	for _, e := range entries {
		if e.Time.UTC().Format("2006-01-02") != today {
			continue
		}
		total.Calories += e.Calories
		total.Protein += e.Protein
		todays = append(todays, e)
	}
	return total, todays, nil
}

// History returns per-day totals for the last days days, oldest first. Days
// without entries are included with zero totals so charts have no gaps.
func (t *Tracker) History(ctx context.Context, days int) ([]DayTotal, error) {
	if days <= 0 {
		days = 7
	}
	entries, err := t.Entries(ctx)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*DayTotal)
	for _, e := range entries {
		day := e.Time.UTC().Format("2006-01-02")
		total, ok := byDay[day]
		if !ok {
			total = &DayTotal{Date: day}
			byDay[day] = total
		}
		total.Calories += e.Calories
		total.Protein += e.Protein
	}

	today := t.now().UTC()
	totals := make([]DayTotal, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format("2006-01-02")
		if total, ok := byDay[day]; ok {
			totals = append(totals, *total)
		} else {
			totals = append(totals, DayTotal{Date: day})
		}
	}
	return totals, nil
}

// Chart renders day totals as a fixed-scale two-column ASCII chart. One bar
// character is 100 kcal (capped at 30) or 10 g protein (capped at 25).
func Chart(totals []DayTotal) string {
	var b strings.Builder
	b.WriteString("date        calories" + strings.Repeat(" ", 30) + "protein\n")
	for _, d := range totals {
		calBar := bar(d.Calories/100, 30)
		protBar := bar(d.Protein/10, 25)
		fmt.Fprintf(&b, "%s  %-30s %5s  %-25s %5s\n",
			d.Date,
			calBar, trimFloat(d.Calories),
			protBar, trimFloat(d.Protein)+"g")
	}
	return b.String()
}

func bar(n float64, max int) string {
	count := int(n)
	if count > max {
		count = max
	}
	if count < 0 {
		count = 0
	}
	return strings.Repeat("#", count)
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseAmounts extracts the first cal: and prot: values from content. ok is
// false when neither is present.
func parseAmounts(content string) (cal, prot float64, ok bool) {
	if m := calPattern.FindStringSubmatch(content); m != nil {
		cal, _ = strconv.ParseFloat(m[1], 64)
		ok = true
	}
	if m := protPattern.FindStringSubmatch(content); m != nil {
		prot, _ = strconv.ParseFloat(m[1], 64)
		ok = true
	}
	return cal, prot, ok
}
