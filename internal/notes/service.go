// Package notes builds note-level workflows on top of the store: tagged
// creation, append/prepend editing, todo grouping and rule extraction.
package notes

import (
	"context"
	"strings"

	"github.com/gregdefoy/zettl/internal/models"
	"github.com/gregdefoy/zettl/internal/store"
)

// Service wraps the store with the operations the CLI, web API and MCP
// server share.
type Service struct {
	store *store.Store
}

// NewService creates a Service around st.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Store exposes the underlying store for operations the facade does not
// wrap.
func (s *Service) Store() *store.Store { return s.store }

// CreateNote creates a note and attaches the given tags to it.
func (s *Service) CreateNote(ctx context.Context, content string, tags ...string) (string, error) {
	id, err := s.store.CreateNote(ctx, content)
	if err != nil {
		return "", err
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		if err := s.store.AddTag(ctx, id, tag); err != nil {
			return id, err
		}
	}
	return id, nil
}

// AppendToNote adds text to the end of a note, separated by a blank line.
func (s *Service) AppendToNote(ctx context.Context, noteID, text string) error {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return err
	}
	return s.store.UpdateNote(ctx, noteID, note.Content+"\n\n"+text)
}

// PrependToNote adds text to the start of a note, separated by a blank line.
func (s *Service) PrependToNote(ctx context.Context, noteID, text string) error {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return err
	}
	return s.store.UpdateNote(ctx, noteID, text+"\n\n"+note.Content)
}

// NoteWithTags fetches a note together with its tags.
func (s *Service) NoteWithTags(ctx context.Context, noteID string) (models.Note, []string, error) {
	note, err := s.store.GetNote(ctx, noteID)
	if err != nil {
		return models.Note{}, nil, err
	}
	tags, err := s.store.GetTags(ctx, noteID)
	if err != nil {
		return note, nil, err
	}
	return note, tags, nil
}
