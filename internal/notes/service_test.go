package notes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gregdefoy/zettl/internal/apperr"
	"github.com/gregdefoy/zettl/internal/models"
	"github.com/gregdefoy/zettl/internal/store"
	"github.com/gregdefoy/zettl/internal/testutil"
)

func newTestService(t *testing.T) (*Service, *testutil.Rest) {
	t.Helper()
	f := testutil.NewRest(t)
	return NewService(store.New(store.NewClient(f.URL(), ""))), f
}

func seedNote(f *testutil.Rest, id, content, createdAt string) {
	f.Insert("notes", map[string]any{
		"id":          id,
		"content":     content,
		"created_at":  createdAt,
		"modified_at": createdAt,
	})
}

func seedTag(f *testutil.Rest, noteID, tag, createdAt string) {
	f.Insert("tags", map[string]any{"note_id": noteID, "tag": tag, "created_at": createdAt})
}

func TestCreateNoteWithTags(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	id, err := svc.CreateNote(ctx, "ship the release", "todo", "Work", "")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	_, tags, err := svc.NoteWithTags(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 2 {
		t.Fatalf("tags = %v, want two (blank skipped)", tags)
	}
	if tags[0] != "todo" || tags[1] != "work" {
		t.Errorf("tags = %v", tags)
	}
}

func TestAppendAndPrepend(t *testing.T) {
	svc, f := newTestService(t)
	ctx := context.Background()
	seedNote(f, "edit1", "middle", "2025-01-01T10:00:00.000")

	if err := svc.AppendToNote(ctx, "edit1", "end"); err != nil {
		t.Fatalf("AppendToNote: %v", err)
	}
	if err := svc.PrependToNote(ctx, "edit1", "start"); err != nil {
		t.Fatalf("PrependToNote: %v", err)
	}

	note, _, err := svc.NoteWithTags(ctx, "edit1")
	if err != nil {
		t.Fatal(err)
	}
	if note.Content != "start\n\nmiddle\n\nend" {
		t.Errorf("content = %q", note.Content)
	}

	if err := svc.AppendToNote(ctx, "ghost", "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("append to missing note: err = %v", err)
	}
}

func TestTodosGrouping(t *testing.T) {
	svc, f := newTestService(t)
	ctx := context.Background()
	today := time.Now().UTC().Format("2006-01-02") + "T09:00:00.000"

	seedNote(f, "act01", "write report", "2025-01-01T10:00:00.000")
	seedTag(f, "act01", "todo", "x")
	seedTag(f, "act01", "work", "x")

	seedNote(f, "act02", "buy groceries", "2025-01-01T10:00:00.000")
	seedTag(f, "act02", "todo", "x")

	seedNote(f, "don01", "old chore", "2025-01-01T10:00:00.000")
	seedTag(f, "don01", "todo", "x")
	seedTag(f, "don01", "done", "2024-12-01T10:00:00.000")

	seedNote(f, "don02", "fresh win", "2025-01-01T10:00:00.000")
	seedTag(f, "don02", "todo", "x")
	seedTag(f, "don02", "done", today)

	seedNote(f, "can01", "abandoned plan", "2025-01-01T10:00:00.000")
	seedTag(f, "can01", "todo", "x")
	seedTag(f, "can01", "cancel", "x")
	seedTag(f, "can01", "done", "x")

	groups, err := svc.Todos(ctx)
	if err != nil {
		t.Fatalf("Todos: %v", err)
	}

	if got := groups.Active["work"]; len(got) != 1 || got[0].ID != "act01" {
		t.Errorf("Active[work] = %+v", got)
	}
	if got := groups.Active[Uncategorized]; len(got) != 1 || got[0].ID != "act02" {
		t.Errorf("Active[uncategorized] = %+v", got)
	}
	if got := groups.Done[Uncategorized]; len(got) != 1 || got[0].ID != "don01" {
		t.Errorf("Done = %+v", groups.Done)
	}
	if got := groups.DoneToday[Uncategorized]; len(got) != 1 || got[0].ID != "don02" {
		t.Errorf("DoneToday = %+v", groups.DoneToday)
	}
	// Cancel wins over done.
	if got := groups.Canceled[Uncategorized]; len(got) != 1 || got[0].ID != "can01" {
		t.Errorf("Canceled = %+v", groups.Canceled)
	}
}

func TestCategoryKeyCombinesSortedTags(t *testing.T) {
	if got := categoryKey([]string{"todo", "work", "deep", "done"}); got != "deep - work" {
		t.Errorf("categoryKey = %q", got)
	}
	if got := categoryKey([]string{"todo"}); got != Uncategorized {
		t.Errorf("categoryKey = %q", got)
	}
}

func TestSortedKeysUncategorizedLast(t *testing.T) {
	group := map[string][]models.Note{
		Uncategorized: {{ID: "a"}},
		"work":        {{ID: "b"}},
		"health":      {{ID: "c"}},
	}
	got := SortedKeys(group)
	want := []string{"health", "work", Uncategorized}
	if len(got) != len(want) {
		t.Fatalf("keys = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("keys = %v, want %v", got, want)
		}
	}
}

func TestRules(t *testing.T) {
	svc, f := newTestService(t)
	ctx := context.Background()
	seedNote(f, "rul01", "Sleep eight hours.\n\nNo phone before breakfast.", "2025-01-01T10:00:00.000")
	seedTag(f, "rul01", "rules", "x")
	seedNote(f, "rul02", "Write every day.", "2025-01-02T10:00:00.000")
	seedTag(f, "rul02", "rules", "x")

	rules, err := svc.Rules(ctx)
	if err != nil {
		t.Fatalf("Rules: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}

	rule, err := svc.RandomRule(ctx)
	if err != nil {
		t.Fatalf("RandomRule: %v", err)
	}
	if rule.NoteID == "" || rule.Text == "" {
		t.Errorf("rule = %+v", rule)
	}
}

func TestRandomRuleNoRules(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.RandomRule(context.Background()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
