package nutrition

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gregdefoy/zettl/internal/apperr"
	"github.com/gregdefoy/zettl/internal/store"
	"github.com/gregdefoy/zettl/internal/testutil"
)

func newTestTracker(t *testing.T) (*Tracker, *testutil.Rest) {
	t.Helper()
	f := testutil.NewRest(t)
	return NewTracker(store.New(store.NewClient(f.URL(), ""))), f
}

func seedEntry(f *testutil.Rest, id, content, createdAt string) {
	f.Insert("notes", map[string]any{
		"id": id, "content": content, "created_at": createdAt, "modified_at": createdAt,
	})
	f.Insert("tags", map[string]any{"note_id": id, "tag": TagNutrition, "created_at": createdAt})
}

func TestParseAmounts(t *testing.T) {
	cases := []struct {
		in        string
		cal, prot float64
		ok        bool
	}{
		{"lunch cal: 650 prot: 35", 650, 35, true},
		{"CAL:120.5", 120.5, 0, true},
		{"shake\nprot: 25", 0, 25, true},
		{"just a note about food", 0, 0, false},
	}
	for _, tc := range cases {
		cal, prot, ok := parseAmounts(tc.in)
		if cal != tc.cal || prot != tc.prot || ok != tc.ok {
			t.Errorf("parseAmounts(%q) = %v, %v, %v", tc.in, cal, prot, ok)
		}
	}
}

func TestLogRejectsAmountlessEntry(t *testing.T) {
	tr, _ := newTestTracker(t)
	if _, err := tr.Log(context.Background(), "tasty sandwich", ""); !errors.Is(err, apperr.ErrBadRequest) {
		t.Errorf("err = %v, want ErrBadRequest", err)
	}
}

func TestLogBackdatesToNoon(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	id, err := tr.Log(ctx, "dinner cal: 800 prot: 40", "2025-03-10")
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	note, err := tr.store.GetNote(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if note.CreatedAt != "2025-03-10T12:00:00.000" {
		t.Errorf("created_at = %q, want noon UTC", note.CreatedAt)
	}

	tags, err := tr.store.GetTags(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0] != TagNutrition {
		t.Errorf("tags = %v", tags)
	}

	if _, err := tr.Log(ctx, "cal: 100", "10/03/2025"); !errors.Is(err, apperr.ErrBadRequest) {
		t.Errorf("bad date: err = %v, want ErrBadRequest", err)
	}
}

func TestTodayTotals(t *testing.T) {
	tr, f := newTestTracker(t)
	tr.now = func() time.Time {
		return time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC)
	}
	seedEntry(f, "brk01", "breakfast cal: 400 prot: 20", "2025-03-15T08:00:00.000")
	seedEntry(f, "lun01", "lunch cal: 650 prot: 35", "2025-03-15T12:30:00.000")
	seedEntry(f, "old01", "yesterday cal: 900", "2025-03-14T19:00:00.000")
	seedEntry(f, "bad01", "no amounts here", "2025-03-15T09:00:00.000")

	total, entries, err := tr.Today(context.Background())
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if total.Calories != 1050 || total.Protein != 55 {
		t.Errorf("total = %+v", total)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestHistoryFillsGaps(t *testing.T) {
	tr, f := newTestTracker(t)
	tr.now = func() time.Time {
		return time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC)
	}
	seedEntry(f, "one01", "cal: 2000 prot: 90", "2025-03-15T12:00:00.000")
	seedEntry(f, "two01", "cal: 1500", "2025-03-13T12:00:00.000")

	totals, err := tr.History(context.Background(), 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(totals) != 3 {
		t.Fatalf("got %d days, want 3", len(totals))
	}
	if totals[0].Date != "2025-03-13" || totals[0].Calories != 1500 {
		t.Errorf("day 0 = %+v", totals[0])
	}
	if totals[1].Date != "2025-03-14" || totals[1].Calories != 0 {
		t.Errorf("gap day = %+v", totals[1])
	}
	if totals[2].Calories != 2000 || totals[2].Protein != 90 {
		t.Errorf("today = %+v", totals[2])
	}
}

func TestChartScalesAndCaps(t *testing.T) {
	out := Chart([]DayTotal{
		{Date: "2025-03-15", Calories: 1850, Protein: 72},
		{Date: "2025-03-16", Calories: 9999, Protein: 400},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], strings.Repeat("#", 18)) {
		t.Errorf("calorie bar wrong: %q", lines[1])
	}
	// Both bars hit their caps.
	if !strings.Contains(lines[2], strings.Repeat("#", 30)) {
		t.Errorf("calorie bar not capped at 30: %q", lines[2])
	}
	if !strings.Contains(lines[2], strings.Repeat("#", 25)+" ") && !strings.Contains(lines[2], strings.Repeat("#", 25)) {
		t.Errorf("protein bar not capped at 25: %q", lines[2])
	}
}
