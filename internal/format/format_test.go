package format

import (
	"strings"
	"testing"

	"github.com/gregdefoy/zettl/internal/models"
)

func TestNoteRendering(t *testing.T) {
	n := models.Note{
		ID:        "42abc",
		Content:   "remember the milk",
		CreatedAt: "2025-03-15T08:30:00.000",
	}
	out := Note(n, []string{"todo", "errands"})

	for _, want := range []string{"#42abc", "2025-03-15 08:30", "#todo", "#errands", "remember the milk", noteSeparator} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPalette(t *testing.T) {
	cases := []struct{ got, want string }{
		{Header("Recent"), "\033[1m\033[32mRecent\033[0m"},
		{NoteID("ab123"), "\033[36m#ab123\033[0m"},
		{Timestamp("2025-01-01 10:00"), "\033[34m2025-01-01 10:00\033[0m"},
		{Tag("todo"), "\033[33m#todo\033[0m"},
		{Error("boom"), "\033[31mError: boom\033[0m"},
		{Warning("careful"), "\033[33mWarning: careful\033[0m"},
		{Success("saved"), "\033[32msaved\033[0m"},
		{Info("fyi"), "\033[36mfyi\033[0m"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("got %q, want %q", c.got, c.want)
		}
	}
}

func TestNoteRenderingNoTags(t *testing.T) {
	n := models.Note{ID: "42abc", Content: "plain", CreatedAt: "bad timestamp"}
	out := Note(n, nil)
	if !strings.Contains(out, "Unknown date") {
		t.Errorf("output missing fallback date:\n%s", out)
	}
	if strings.Contains(out, "\033[33m") {
		t.Error("tag styling emitted for a note without tags")
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 10); got != "short" {
		t.Errorf("Preview = %q", got)
	}
	if got := Preview("line one\nline two", 100); got != "line one line two" {
		t.Errorf("Preview = %q", got)
	}
	if got := Preview("abcdefghij", 4); got != "abcd..." {
		t.Errorf("Preview = %q", got)
	}
}

func TestANSIToHTML(t *testing.T) {
	in := "\033[32m#42abc\033[0m done\nnext"
	out := ANSIToHTML(in)
	if !strings.Contains(out, `<span style="color:#2ecc71">#42abc</span>`) {
		t.Errorf("colored span missing: %q", out)
	}
	if !strings.Contains(out, "<br>") {
		t.Errorf("newline not converted: %q", out)
	}
	if strings.Contains(out, "\033") {
		t.Errorf("escape codes leaked: %q", out)
	}
}

func TestANSIToHTMLEscapesText(t *testing.T) {
	out := ANSIToHTML("<script>alert(1)</script>")
	if strings.Contains(out, "<script>") {
		t.Errorf("HTML not escaped: %q", out)
	}
}

func TestANSIToHTMLCombinedCodes(t *testing.T) {
	out := ANSIToHTML("\033[1;36mHeader\033[0m")
	if !strings.Contains(out, "font-weight:bold") || !strings.Contains(out, "color:#1abc9c") {
		t.Errorf("combined style missing: %q", out)
	}
}

func TestANSIToHTMLUnclosedSpan(t *testing.T) {
	out := ANSIToHTML("\033[31mdangling")
	if !strings.HasSuffix(out, "</span>") {
		t.Errorf("span left open: %q", out)
	}
}
