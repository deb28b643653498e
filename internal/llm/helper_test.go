package llm

import (
	"context"
	"net/http"
	"testing"

	"github.com/gregdefoy/zettl/internal/notes"
	"github.com/gregdefoy/zettl/internal/store"
	"github.com/gregdefoy/zettl/internal/testutil"
)

func newTestHelper(t *testing.T, reply string) (*Helper, *testutil.Rest) {
	t.Helper()
	f := testutil.NewRest(t)
	svc := notes.NewService(store.New(store.NewClient(f.URL(), "")))
	client := fakeModel(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(modelReply(reply))
	})
	return NewHelper(client, svc), f
}

func seedNote(f *testutil.Rest, id, content string) {
	f.Insert("notes", map[string]any{
		"id": id, "content": content,
		"created_at": "2025-01-01T10:00:00.000", "modified_at": "2025-01-01T10:00:00.000",
	})
}

func TestSuggestTags(t *testing.T) {
	h, f := newTestHelper(t, "Tag: focus\nTag: habits\nTag: learning\nTag: extra")
	seedNote(f, "abc12", "a note about building habits")

	tags, err := h.SuggestTags(context.Background(), "abc12", 3)
	if err != nil {
		t.Fatalf("SuggestTags: %v", err)
	}
	if len(tags) != 3 || tags[0] != "focus" {
		t.Errorf("tags = %v", tags)
	}
}

func TestExtractConceptsCreatesLinkedNotes(t *testing.T) {
	h, f := newTestHelper(t,
		"Concept: Spaced repetition\nExplanation: Review at intervals.\nConcept: Active recall\nExplanation: Test yourself.")
	seedNote(f, "src01", "studying techniques")

	created, err := h.ExtractConcepts(context.Background(), "src01")
	if err != nil {
		t.Fatalf("ExtractConcepts: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created %d notes, want 2", len(created))
	}

	st := h.svc.Store()
	for _, n := range created {
		tags, err := st.GetTags(context.Background(), n.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(tags) != 1 || tags[0] != "concept" {
			t.Errorf("tags for %s = %v", n.ID, tags)
		}
	}

	related, err := st.GetRelatedNotes(context.Background(), "src01")
	if err != nil {
		t.Fatal(err)
	}
	if len(related) != 2 {
		t.Errorf("source related to %d notes, want 2", len(related))
	}
}

func TestFindConnections(t *testing.T) {
	h, f := newTestHelper(t, "[rel01] both discuss deep work\n[bogus] not a real note\nchatter")
	seedNote(f, "src01", "deep work sessions")
	seedNote(f, "rel01", "time blocking for focus")
	seedNote(f, "oth01", "grocery list")

	conns, err := h.FindConnections(context.Background(), "src01", 10)
	if err != nil {
		t.Fatalf("FindConnections: %v", err)
	}
	if len(conns) != 1 {
		t.Fatalf("conns = %+v", conns)
	}
	if conns[0].NoteID != "rel01" || conns[0].Reason != "both discuss deep work" {
		t.Errorf("conn = %+v", conns[0])
	}
}

func TestCritiqueNote(t *testing.T) {
	h, f := newTestHelper(t, "Strengths:\n- vivid\n\nAreas for Improvement:\n- rushed ending\n\nSuggestions:\n- slow down")
	seedNote(f, "cri01", "an essay draft")

	c, err := h.CritiqueNote(context.Background(), "cri01")
	if err != nil {
		t.Fatalf("CritiqueNote: %v", err)
	}
	if len(c.Strengths) != 1 || len(c.Weaknesses) != 1 || len(c.Suggestions) != 1 {
		t.Errorf("critique = %+v", c)
	}
}

func TestSnippetKeepsRunesWhole(t *testing.T) {
	got := snippet("héllo wörld", 7)
	if got != "héllo w..." {
		t.Errorf("snippet = %q", got)
	}
	for _, r := range got {
		if r == '�' {
			t.Fatalf("snippet split a rune: %q", got)
		}
	}
	if got := snippet("line one\nline two", 100); got != "line one line two" {
		t.Errorf("snippet = %q", got)
	}
}
