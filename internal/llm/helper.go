package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/gregdefoy/zettl/internal/models"
	"github.com/gregdefoy/zettl/internal/notes"
)

const systemPrompt = "You are an assistant for a Zettelkasten note system. " +
	"Be concise and follow the requested output format exactly."

// Helper runs note-aware model actions: each one reads a note through the
// service, prompts the model and post-processes the reply.
type Helper struct {
	client *Client
	svc    *notes.Service
}

// NewHelper creates a Helper.
func NewHelper(client *Client, svc *notes.Service) *Helper {
	return &Helper{client: client, svc: svc}
}

// Summarize returns a short summary of the note.
func (h *Helper) Summarize(ctx context.Context, noteID string) (string, error) {
	note, err := h.svc.Store().GetNote(ctx, noteID)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("Summarize the following note in two or three sentences.\n\nNote:\n%s", note.Content)
	return h.client.Complete(ctx, systemPrompt, prompt, 500)
}

// Expand returns an expanded version of the note's content.
func (h *Helper) Expand(ctx context.Context, noteID string) (string, error) {
	note, err := h.svc.Store().GetNote(ctx, noteID)
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(
		"Expand the following note with additional detail, examples and context. Keep the author's voice.\n\nNote:\n%s",
		note.Content)
	return h.client.Complete(ctx, systemPrompt, prompt, 1500)
}

// SuggestTags asks for up to count tags fitting the note.
func (h *Helper) SuggestTags(ctx context.Context, noteID string, count int) ([]string, error) {
	if count <= 0 {
		count = 3
	}
	note, err := h.svc.Store().GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(
		"Suggest %d short lowercase tags for the following note. Reply with one per line in the format \"Tag: name\".\n\nNote:\n%s",
		count, note.Content)
	reply, err := h.client.Complete(ctx, systemPrompt, prompt, 300)
	if err != nil {
		return nil, err
	}
	return ParseTags(reply, count), nil
}

// ExtractConcepts pulls the key concepts out of a note. Each concept is
// saved as a new note tagged "concept" and linked back to the source.
func (h *Helper) ExtractConcepts(ctx context.Context, noteID string) ([]models.Note, error) {
	return h.extractLinked(ctx, noteID, "Concept", "concept",
		"Extract the key concepts from the following note. For each, reply with a \"Concept: name\" line followed by an \"Explanation: ...\" line.")
}

// GenerateQuestions derives open questions from a note. Each question is
// saved as a new note tagged "question" and linked back to the source.
func (h *Helper) GenerateQuestions(ctx context.Context, noteID string) ([]models.Note, error) {
	return h.extractLinked(ctx, noteID, "Question", "question",
		"Generate thought-provoking questions raised by the following note. For each, reply with a \"Question: ...\" line followed by an \"Explanation: ...\" line.")
}

func (h *Helper) extractLinked(ctx context.Context, noteID, label, tag, instruction string) ([]models.Note, error) {
	note, err := h.svc.Store().GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("%s\n\nNote:\n%s", instruction, note.Content)
	reply, err := h.client.Complete(ctx, systemPrompt, prompt, 1500)
	if err != nil {
		return nil, err
	}

	var created []models.Note
	for _, item := range ParseItems(reply, label) {
		content := item.Title
		if label == "Question" && !strings.HasSuffix(content, "?") {
			content += "?"
		}
		if item.Explanation != "" {
			content += "\n\n" + item.Explanation
		}
		id, err := h.svc.CreateNote(ctx, content, tag)
		if err != nil {
			return created, err
		}
		if err := h.svc.Store().CreateLink(ctx, id, noteID, "Extracted from this note"); err != nil {
			return created, err
		}
		newNote, err := h.svc.Store().GetNote(ctx, id)
		if err != nil {
			return created, err
		}
		created = append(created, newNote)
	}
	return created, nil
}

// CritiqueNote returns structured feedback on the note.
func (h *Helper) CritiqueNote(ctx context.Context, noteID string) (Critique, error) {
	note, err := h.svc.Store().GetNote(ctx, noteID)
	if err != nil {
		return Critique{}, err
	}
	prompt := fmt.Sprintf(
		"Critique the following note. Reply with three sections headed \"Strengths\", \"Areas for Improvement\" and \"Suggestions\", each a bullet list.\n\nNote:\n%s",
		note.Content)
	reply, err := h.client.Complete(ctx, systemPrompt, prompt, 1500)
	if err != nil {
		return Critique{}, err
	}
	return ParseCritique(reply), nil
}

// Connection is a candidate link between the source note and another note.
type Connection struct {
	NoteID string
	Reason string
}

// FindConnections compares the note with recent notes and reports which
// ones relate to it and why.
func (h *Helper) FindConnections(ctx context.Context, noteID string, candidates int) ([]Connection, error) {
	if candidates <= 0 {
		candidates = 20
	}
	note, err := h.svc.Store().GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	others, err := h.svc.Store().ListNotes(ctx, candidates)
	if err != nil {
		return nil, err
	}

	var list strings.Builder
	for _, other := range others {
		if other.ID == noteID {
			continue
		}
		fmt.Fprintf(&list, "[%s] %s\n", other.ID, snippet(other.Content, 200))
	}
	if list.Len() == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(
		"Which of the candidate notes below relate to the source note? Reply with one line per related note in the format \"[id] reason\". Only include genuinely related notes.\n\nSource note:\n%s\n\nCandidate notes:\n%s",
		note.Content, list.String())
	reply, err := h.client.Complete(ctx, systemPrompt, prompt, 1000)
	if err != nil {
		return nil, err
	}

	valid := make(map[string]bool, len(others))
	for _, other := range others {
		valid[other.ID] = true
	}
	var conns []Connection
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[") {
			continue
		}
		end := strings.Index(line, "]")
		if end < 0 {
			continue
		}
		id := strings.TrimSpace(line[1:end])
		if !valid[id] || id == noteID {
			continue
		}
		conns = append(conns, Connection{NoteID: id, Reason: strings.TrimSpace(line[end+1:])})
	}
	return conns, nil
}

// snippet flattens content to one line, truncating at max runes so a cut
// never lands inside a multi-byte character.
func snippet(content string, max int) string {
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) > max {
		content = string(runes[:max]) + "..."
	}
	return content
}
