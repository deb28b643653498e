package graph

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gregdefoy/zettl/internal/apperr"
	"github.com/gregdefoy/zettl/internal/store"
	"github.com/gregdefoy/zettl/internal/testutil"
)

// Chain: a -> b -> c -> d, plus e off on its own.
func seedChain(t *testing.T) (*store.Store, *testutil.Rest) {
	t.Helper()
	f := testutil.NewRest(t)
	for _, id := range []string{"aaa", "bbb", "ccc", "ddd", "eee"} {
		f.Insert("notes", map[string]any{
			"id": id, "content": "note " + id,
			"created_at": "2025-01-01T10:00:00.000", "modified_at": "2025-01-01T10:00:00.000",
		})
	}
	f.Insert("links", map[string]any{"source_id": "aaa", "target_id": "bbb", "context": "first", "created_at": "x"})
	f.Insert("links", map[string]any{"source_id": "bbb", "target_id": "ccc", "context": "", "created_at": "x"})
	f.Insert("links", map[string]any{"source_id": "ccc", "target_id": "ddd", "context": "", "created_at": "x"})
	f.Insert("tags", map[string]any{"note_id": "aaa", "tag": "root", "created_at": "x"})
	return store.New(store.NewClient(f.URL(), "")), f
}

func TestBuildFullGraph(t *testing.T) {
	st, _ := seedChain(t)
	g, err := Build(context.Background(), st, "", 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.Nodes) != 5 {
		t.Errorf("nodes = %d, want 5", len(g.Nodes))
	}
	if len(g.Edges) != 3 {
		t.Errorf("edges = %d, want 3", len(g.Edges))
	}
}

func TestBuildNeighbourhoodDepth(t *testing.T) {
	st, _ := seedChain(t)
	ctx := context.Background()

	g, err := Build(ctx, st, "aaa", 1)
	if err != nil {
		t.Fatalf("Build depth 1: %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("depth 1 nodes = %d, want 2 (aaa, bbb)", len(g.Nodes))
	}
	if len(g.Edges) != 1 || g.Edges[0].Context != "first" {
		t.Errorf("depth 1 edges = %+v", g.Edges)
	}

	g, err = Build(ctx, st, "aaa", 2)
	if err != nil {
		t.Fatalf("Build depth 2: %v", err)
	}
	if len(g.Nodes) != 3 {
		t.Errorf("depth 2 nodes = %d, want 3", len(g.Nodes))
	}

	// Links point both ways during traversal: starting mid-chain reaches
	// both neighbours.
	g, err = Build(ctx, st, "bbb", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Nodes) != 3 {
		t.Errorf("mid-chain depth 1 nodes = %d, want 3", len(g.Nodes))
	}
}

func TestBuildMissingRoot(t *testing.T) {
	st, _ := seedChain(t)
	if _, err := Build(context.Background(), st, "zzz", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestWriteFile(t *testing.T) {
	st, _ := seedChain(t)
	path := filepath.Join(t.TempDir(), "graph.json")

	if err := WriteFile(context.Background(), st, "", 0, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	if len(g.Nodes) != 5 {
		t.Errorf("nodes = %d", len(g.Nodes))
	}
	for _, n := range g.Nodes {
		if n.ID == "aaa" && (len(n.Tags) != 1 || n.Tags[0] != "root") {
			t.Errorf("tags for aaa = %v", n.Tags)
		}
	}
}
