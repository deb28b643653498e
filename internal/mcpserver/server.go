// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes note tools for LLM integration via stdio or HTTP transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gregdefoy/zettl/internal/notes"
)

// listRecentCap bounds list_recent_notes regardless of what the caller asks
// for.
const listRecentCap = 50

// Server wraps the MCP server with note tools.
type Server struct {
	mcp *server.MCPServer
	svc *notes.Service
}

// New creates a new MCP server with all note tools registered.
func New(svc *notes.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"zettl",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note contents (case-insensitive)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Fetch one note by ID, including its tags."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note ID")),
	), s.getNote)

	s.mcp.AddTool(mcp.NewTool("list_recent_notes",
		mcp.WithDescription(fmt.Sprintf("List the most recent notes, newest first (at most %d).", listRecentCap)),
		mcp.WithNumber("limit", mcp.Description("Number of notes to return (default 10)")),
	), s.listRecentNotes)

	s.mcp.AddTool(mcp.NewTool("get_notes_by_tag",
		mcp.WithDescription("List every note carrying the given tag."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag to filter by")),
	), s.getNotesByTag)

	s.mcp.AddTool(mcp.NewTool("get_all_tags",
		mcp.WithDescription("List all tags with their usage counts, most used first."),
	), s.getAllTags)

	s.mcp.AddTool(mcp.NewTool("get_related_notes",
		mcp.WithDescription("List the notes linked to the given note, in either direction."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note ID")),
	), s.getRelatedNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes_by_date",
		mcp.WithDescription("List notes created on a given day."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Day in YYYY-MM-DD format (UTC)")),
	), s.searchNotesByDate)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note, optionally with tags."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note content")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags to attach")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("append_to_note",
		mcp.WithDescription("Append text to the end of an existing note."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to append")),
	), s.appendToNote)

	s.mcp.AddTool(mcp.NewTool("add_tags_to_note",
		mcp.WithDescription("Attach one or more tags to a note."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated tags")),
	), s.addTagsToNote)

	s.mcp.AddTool(mcp.NewTool("create_link_between_notes",
		mcp.WithDescription("Create a directed link from one note to another."),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Source note ID")),
		mcp.WithString("target_id", mcp.Required(), mcp.Description("Target note ID")),
		mcp.WithString("context", mcp.Description("Optional context for the link")),
	), s.createLink)

	s.mcp.AddTool(mcp.NewTool("update_note_content",
		mcp.WithDescription("Replace the content of an existing note."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note ID")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New note content")),
	), s.updateNoteContent)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for transports and testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Store().SearchNotes(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, tags, err := s.svc.NoteWithTags(ctx, noteID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note.Tags = tags
	return jsonResult(note)
}

func (s *Server) listRecentNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 10)
	if limit > listRecentCap {
		limit = listRecentCap
	}
	results, err := s.svc.Store().ListNotes(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getNotesByTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Store().GetNotesByTag(ctx, tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getAllTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	counts, err := s.svc.Store().GetAllTagsWithCounts(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(counts)
}

func (s *Server) getRelatedNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Store().GetRelatedNotes(ctx, noteID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) searchNotesByDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Store().SearchNotesByDate(ctx, date)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := s.svc.CreateNote(ctx, content, splitTags(req.GetString("tags", ""))...)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("created: " + id), nil
}

func (s *Server) appendToNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.AppendToNote(ctx, noteID, text); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("updated: " + noteID), nil
}

func (s *Server) addTagsToNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawTags, err := req.RequireString("tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags := splitTags(rawTags)
	if len(tags) == 0 {
		return mcp.NewToolResultError("no tags given"), nil
	}
	for _, tag := range tags {
		if err := s.svc.Store().AddTag(ctx, noteID, tag); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("tagged %s with %s", noteID, strings.Join(tags, ", "))), nil
}

func (s *Server) createLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceID, err := req.RequireString("source_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	targetID, err := req.RequireString("target_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Store().CreateLink(ctx, sourceID, targetID, req.GetString("context", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("linked: %s -> %s", sourceID, targetID)), nil
}

func (s *Server) updateNoteContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	noteID, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Store().UpdateNote(ctx, noteID, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("updated: " + noteID), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
