// Package graph exports the note network as a JSON document of nodes and
// edges, either in full or as a neighbourhood around one note.
package graph

import (
	"context"
	"encoding/json"
	"os"

	"github.com/gregdefoy/zettl/internal/store"
)

// Node is one note in the exported graph.
type Node struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Edge is one directed link in the exported graph.
type Edge struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Context string `json:"context,omitempty"`
}

// Graph is the export document.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build assembles the graph. With a root ID it walks outward breadth-first
// up to depth hops in either link direction; with an empty root it exports
// every note. Edges are included only when both endpoints are in the graph.
func Build(ctx context.Context, st *store.Store, rootID string, depth int) (Graph, error) {
	var ids []string
	var err error
	if rootID == "" {
		ids, err = st.ListNoteIDs(ctx)
	} else {
		ids, err = neighbourhood(ctx, st, rootID, depth)
	}
	if err != nil {
		return Graph{}, err
	}

	included := make(map[string]bool, len(ids))
	for _, id := range ids {
		included[id] = true
	}

	g := Graph{Nodes: make([]Node, 0, len(ids)), Edges: []Edge{}}
	for _, id := range ids {
		note, err := st.GetNote(ctx, id)
		if err != nil {
			continue
		}
		tags, err := st.GetTags(ctx, id)
		if err != nil {
			tags = nil
		}
		if tags == nil {
			tags = []string{}
		}
		g.Nodes = append(g.Nodes, Node{ID: id, Content: note.Content, Tags: tags})

		links, err := st.OutgoingLinks(ctx, id)
		if err != nil {
			continue
		}
		for _, l := range links {
			if included[l.TargetID] {
				g.Edges = append(g.Edges, Edge{Source: l.SourceID, Target: l.TargetID, Context: l.Context})
			}
		}
	}
	return g, nil
}

// WriteFile builds the graph and writes it as indented JSON to path.
func WriteFile(ctx context.Context, st *store.Store, rootID string, depth int, path string) error {
	g, err := Build(ctx, st, rootID, depth)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// neighbourhood returns rootID plus every note reachable within depth hops,
// in breadth-first order.
func neighbourhood(ctx context.Context, st *store.Store, rootID string, depth int) ([]string, error) {
	if _, err := st.GetNote(ctx, rootID); err != nil {
		return nil, err
	}
	if depth <= 0 {
		depth = 1
	}

	visited := map[string]bool{rootID: true}
	order := []string{rootID}
	frontier := []string{rootID}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			related, err := st.GetRelatedNotes(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, note := range related {
				if visited[note.ID] {
					continue
				}
				visited[note.ID] = true
				order = append(order, note.ID)
				next = append(next, note.ID)
			}
		}
		frontier = next
	}
	return order, nil
}
