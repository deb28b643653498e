package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rs/xid"

	"github.com/gregdefoy/zettl/internal/apperr"
	"github.com/gregdefoy/zettl/internal/models"
)

// Conversation persistence. Chat history lives in its own two tables and is
// never cached: a conversation is read once when resumed, then appended to.

// CreateConversation starts a new conversation, optionally pinned to a set of
// context notes, and returns its ID.
func (s *Store) CreateConversation(ctx context.Context, title string, contextNoteIDs []string) (string, error) {
	row := models.Conversation{
		ID:             xid.New().String(),
		Title:          title,
		ContextNoteIDs: contextNoteIDs,
		CreatedAt:      isoTimestamp(s.now()),
	}
	if _, err := s.client.Insert(ctx, "conversations", row); err != nil {
		return "", err
	}
	return row.ID, nil
}

// GetConversation fetches one conversation by ID.
func (s *Store) GetConversation(ctx context.Context, id string) (models.Conversation, error) {
	var rows []models.Conversation
	if err := s.client.Select(ctx, "conversations", eq("id", id), &rows); err != nil {
		return models.Conversation{}, err
	}
	if len(rows) == 0 {
		return models.Conversation{}, fmt.Errorf("conversation %s: %w", id, apperr.ErrNotFound)
	}
	return rows[0], nil
}

// ListConversations returns conversations, newest first.
func (s *Store) ListConversations(ctx context.Context, limit int) ([]models.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{}
	params.Set("order", "created_at.desc")
	params.Set("limit", fmt.Sprintf("%d", limit))
	var rows []models.Conversation
	if err := s.client.Select(ctx, "conversations", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// AppendMessage stores one message in a conversation and returns its ID.
func (s *Store) AppendMessage(ctx context.Context, conversationID, role, content string, toolCalls any) (string, error) {
	row := models.Message{
		ID:             xid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		ToolCalls:      toolCalls,
		CreatedAt:      isoTimestamp(s.now()),
	}
	if _, err := s.client.Insert(ctx, "messages", row); err != nil {
		return "", err
	}
	return row.ID, nil
}

// GetMessages returns a conversation's messages in chronological order.
func (s *Store) GetMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	params := eq("conversation_id", conversationID)
	params.Set("order", "created_at.asc")
	var rows []models.Message
	if err := s.client.Select(ctx, "messages", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateConversationTitle renames a conversation.
func (s *Store) UpdateConversationTitle(ctx context.Context, id, title string) error {
	data, err := s.client.Update(ctx, "conversations", eq("id", id), map[string]string{"title": title})
	if err != nil {
		return err
	}
	var rows []models.Conversation
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("conversation %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	if _, err := s.client.Delete(ctx, "messages", eq("conversation_id", id)); err != nil {
		return err
	}
	data, err := s.client.Delete(ctx, "conversations", eq("id", id))
	if err != nil {
		return err
	}
	var rows []models.Conversation
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("conversation %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
