package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gregdefoy/zettl/internal/auth"
	"github.com/gregdefoy/zettl/internal/models"
	"github.com/gregdefoy/zettl/internal/notes"
	"github.com/gregdefoy/zettl/internal/store"
	"github.com/gregdefoy/zettl/internal/testutil"
)

func testServer(t *testing.T) (*Server, *testutil.Rest) {
	t.Helper()
	f := testutil.NewRest(t)
	svc := notes.NewService(store.New(store.NewClient(f.URL(), "")))
	return New(svc), f
}

func seedNote(f *testutil.Rest, id, content, createdAt string) {
	f.Insert("notes", map[string]any{
		"id": id, "content": content, "created_at": createdAt, "modified_at": createdAt,
	})
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so the tool
	// handler functions are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "get_note":
		result, err = srv.getNote(ctx, req)
	case "list_recent_notes":
		result, err = srv.listRecentNotes(ctx, req)
	case "get_notes_by_tag":
		result, err = srv.getNotesByTag(ctx, req)
	case "get_all_tags":
		result, err = srv.getAllTags(ctx, req)
	case "get_related_notes":
		result, err = srv.getRelatedNotes(ctx, req)
	case "search_notes_by_date":
		result, err = srv.searchNotesByDate(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "append_to_note":
		result, err = srv.appendToNote(ctx, req)
	case "add_tags_to_note":
		result, err = srv.addTagsToNote(ctx, req)
	case "create_link_between_notes":
		result, err = srv.createLink(ctx, req)
	case "update_note_content":
		result, err = srv.updateNoteContent(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndGetNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"content": "an idea worth keeping",
		"tags":    "idea, Keep",
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "created: ") {
		t.Fatalf("create result = %q", text)
	}
	id := strings.TrimPrefix(text, "created: ")

	r = callTool(t, srv, "get_note", map[string]interface{}{"note_id": id})
	var note models.Note
	if err := json.Unmarshal([]byte(resultText(r)), &note); err != nil {
		t.Fatalf("get_note result not JSON: %v", err)
	}
	if note.Content != "an idea worth keeping" {
		t.Errorf("content = %q", note.Content)
	}
	if len(note.Tags) != 2 || note.Tags[0] != "idea" || note.Tags[1] != "keep" {
		t.Errorf("tags = %v", note.Tags)
	}
}

func TestGetNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_note", map[string]interface{}{"note_id": "nope1"})
	if !r.IsError {
		t.Error("missing note did not error")
	}
}

func TestListRecentNotesCapped(t *testing.T) {
	srv, f := testServer(t)
	seedNote(f, "aaa11", "one", "2025-01-01T10:00:00.000")
	seedNote(f, "bbb22", "two", "2025-01-02T10:00:00.000")

	r := callTool(t, srv, "list_recent_notes", map[string]interface{}{"limit": 500})
	var list []models.Note
	if err := json.Unmarshal([]byte(resultText(r)), &list); err != nil {
		t.Fatalf("result not JSON: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("got %d notes", len(list))
	}
	if list[0].ID != "bbb22" {
		t.Errorf("order = %+v", list)
	}
}

func TestSearchAndDateTools(t *testing.T) {
	srv, f := testServer(t)
	seedNote(f, "hit01", "Thinking about Deep Work", "2025-03-15T08:00:00.000")
	seedNote(f, "mis01", "unrelated", "2025-03-16T08:00:00.000")

	r := callTool(t, srv, "search_notes", map[string]interface{}{"query": "deep work"})
	if !strings.Contains(resultText(r), "hit01") {
		t.Errorf("search result = %q", resultText(r))
	}

	r = callTool(t, srv, "search_notes_by_date", map[string]interface{}{"date": "2025-03-15"})
	text := resultText(r)
	if !strings.Contains(text, "hit01") || strings.Contains(text, "mis01") {
		t.Errorf("date result = %q", text)
	}

	r = callTool(t, srv, "search_notes_by_date", map[string]interface{}{"date": "bad"})
	if !r.IsError {
		t.Error("bad date did not error")
	}
}

func TestTagAndLinkTools(t *testing.T) {
	srv, f := testServer(t)
	seedNote(f, "src01", "source", "2025-01-01T10:00:00.000")
	seedNote(f, "tgt01", "target", "2025-01-01T10:00:00.000")

	r := callTool(t, srv, "add_tags_to_note", map[string]interface{}{
		"note_id": "src01", "tags": "work, Focus",
	})
	if r.IsError {
		t.Fatalf("add_tags error: %q", resultText(r))
	}

	r = callTool(t, srv, "get_notes_by_tag", map[string]interface{}{"tag": "focus"})
	if !strings.Contains(resultText(r), "src01") {
		t.Errorf("by tag = %q", resultText(r))
	}

	r = callTool(t, srv, "get_all_tags", map[string]interface{}{})
	if !strings.Contains(resultText(r), "work") {
		t.Errorf("all tags = %q", resultText(r))
	}

	r = callTool(t, srv, "create_link_between_notes", map[string]interface{}{
		"source_id": "src01", "target_id": "tgt01", "context": "because",
	})
	if resultText(r) != "linked: src01 -> tgt01" {
		t.Errorf("link result = %q", resultText(r))
	}

	r = callTool(t, srv, "get_related_notes", map[string]interface{}{"note_id": "src01"})
	if !strings.Contains(resultText(r), "tgt01") {
		t.Errorf("related = %q", resultText(r))
	}
}

func TestUpdateAndAppendTools(t *testing.T) {
	srv, f := testServer(t)
	seedNote(f, "upd01", "start", "2025-01-01T10:00:00.000")

	r := callTool(t, srv, "append_to_note", map[string]interface{}{
		"note_id": "upd01", "text": "more",
	})
	if resultText(r) != "updated: upd01" {
		t.Fatalf("append result = %q", resultText(r))
	}

	r = callTool(t, srv, "update_note_content", map[string]interface{}{
		"note_id": "upd01", "content": "rewritten",
	})
	if r.IsError {
		t.Fatalf("update error: %q", resultText(r))
	}

	r = callTool(t, srv, "get_note", map[string]interface{}{"note_id": "upd01"})
	if !strings.Contains(resultText(r), "rewritten") {
		t.Errorf("note after update = %q", resultText(r))
	}
}

func TestMissingRequiredArgument(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "search_notes", map[string]interface{}{})
	if !r.IsError {
		t.Error("missing query did not error")
	}
}

func TestHTTPToolRoutes(t *testing.T) {
	srv, _ := testServer(t)
	h := HTTPHandler(srv, nil, nil, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "search_notes") {
		t.Errorf("tools = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tool/create_note",
		strings.NewReader(`{"content":"made over http"}`))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "created: ") {
		t.Errorf("call = %d %s", rec.Code, rec.Body.String())
	}
}

func TestHTTPHandlerAuth(t *testing.T) {
	srv, _ := testServer(t)
	secret := []byte("mcp-secret")

	tokenSvc := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") == "good-key" {
			w.Write([]byte(`{"user_id":"u1"}`))
			return
		}
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	t.Cleanup(tokenSvc.Close)

	h := HTTPHandler(srv, auth.NewVerifier(secret), auth.NewClient(tokenSvc.URL), true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d", rec.Code)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rec, req)
	if rec.Code == http.StatusUnauthorized {
		t.Error("valid JWT rejected")
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-API-Key", "good-key")
	h.ServeHTTP(rec, req)
	if rec.Code == http.StatusUnauthorized {
		t.Error("valid API key rejected")
	}
}
