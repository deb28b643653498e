// Package models defines the domain types for zettl.
package models

// Note is a single Zettelkasten note as stored in the notes resource.
type Note struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
	// Tags is populated only by queries that join tags in (e.g.
	// GetNotesWithAllTagsByTag); most reads leave it nil.
	Tags []string `json:"all_tags,omitempty"`
}

// Tag is a (note, tag) association. Tags are lowercase-normalized on write.
type Tag struct {
	NoteID    string `json:"note_id"`
	Tag       string `json:"tag"`
	CreatedAt string `json:"created_at"`
}

// TagCount is an aggregate of how many notes carry a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Link is a directed edge between two notes with optional context.
// Related-note queries treat links as undirected.
type Link struct {
	SourceID  string `json:"source_id"`
	TargetID  string `json:"target_id"`
	Context   string `json:"context"`
	CreatedAt string `json:"created_at"`
}

// Conversation groups chat messages with an optional set of context notes.
type Conversation struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	ContextNoteIDs []string `json:"context_note_ids"`
	CreatedAt      string   `json:"created_at,omitempty"`
}

// Message is a single chat message within a conversation.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	ToolCalls      any    `json:"tool_calls,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}
