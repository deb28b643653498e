package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gregdefoy/zettl/internal/apperr"
	"github.com/gregdefoy/zettl/internal/models"
)

// Store exposes note, tag and link operations over PostgREST with read-through
// caching. It is safe for concurrent use.
type Store struct {
	client *Client
	cache  *Cache
	now    func() time.Time
}

// New creates a Store around an existing PostgREST client.
func New(client *Client) *Store {
	return &Store{
		client: client,
		cache:  NewCache(),
		now:    time.Now,
	}
}

// Cache returns the store's cache, mainly so callers can force invalidation.
func (s *Store) Cache() *Cache { return s.cache }

// CreateNote inserts a note with a freshly generated ID and returns the ID.
func (s *Store) CreateNote(ctx context.Context, content string) (string, error) {
	return s.CreateNoteWithTimestamp(ctx, content, isoTimestamp(s.now()), "")
}

// CreateNoteWithTimestamp inserts a note with an explicit created_at
// timestamp and, optionally, an explicit ID. Used for backdated entries and
// imports.
func (s *Store) CreateNoteWithTimestamp(ctx context.Context, content, timestamp, noteID string) (string, error) {
	if noteID == "" {
		noteID = GenerateID()
	}
	row := models.Note{
		ID:         noteID,
		Content:    content,
		CreatedAt:  timestamp,
		ModifiedAt: timestamp,
	}
	data, err := s.client.Insert(ctx, "notes", row)
	if err != nil {
		return "", err
	}
	var created []models.Note
	if err := json.Unmarshal(data, &created); err != nil || len(created) == 0 {
		return "", fmt.Errorf("create note: no row returned")
	}

	s.cache.Invalidate("list_notes")
	return noteID, nil
}

// GetNote fetches a note by ID, serving from cache when fresh.
func (s *Store) GetNote(ctx context.Context, noteID string) (models.Note, error) {
	key := "note:" + noteID
	if v, ok := s.cache.Get(key); ok {
		return v.(models.Note), nil
	}

	var rows []models.Note
	if err := s.client.Select(ctx, "notes", eq("id", noteID), &rows); err != nil {
		return models.Note{}, err
	}
	if len(rows) == 0 {
		return models.Note{}, fmt.Errorf("note %s: %w", noteID, apperr.ErrNotFound)
	}

	s.cache.Set(key, rows[0], noteTTL)
	return rows[0], nil
}

// ListNotes returns the most recent notes, newest first.
func (s *Store) ListNotes(ctx context.Context, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 10
	}
	key := "list_notes:" + strconv.Itoa(limit)
	if v, ok := s.cache.Get(key); ok {
		return v.([]models.Note), nil
	}

	params := url.Values{}
	params.Set("order", "created_at.desc")
	params.Set("limit", strconv.Itoa(limit))
	var rows []models.Note
	if err := s.client.Select(ctx, "notes", params, &rows); err != nil {
		return nil, err
	}

	s.cache.Set(key, rows, listTTL)
	for _, n := range rows {
		s.cache.Set("note:"+n.ID, n, noteTTL)
	}
	return rows, nil
}

// UpdateNote replaces a note's content and bumps modified_at.
func (s *Store) UpdateNote(ctx context.Context, noteID, content string) error {
	changes := map[string]string{
		"content":     content,
		"modified_at": isoTimestamp(s.now()),
	}
	data, err := s.client.Update(ctx, "notes", eq("id", noteID), changes)
	if err != nil {
		return err
	}
	var rows []models.Note
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("note %s: %w", noteID, apperr.ErrNotFound)
	}

	s.cache.Invalidate("note:" + noteID)
	s.cache.Invalidate("list_notes")
	return nil
}

// DeleteNote removes a note. With cascade, associated tags and links are
// deleted first; PostgREST has no server-side cascade here.
func (s *Store) DeleteNote(ctx context.Context, noteID string, cascade bool) error {
	if _, err := s.GetNote(ctx, noteID); err != nil {
		return err
	}
	if cascade {
		if err := s.DeleteNoteTags(ctx, noteID); err != nil {
			return err
		}
		if err := s.DeleteNoteLinks(ctx, noteID); err != nil {
			return err
		}
	}

	data, err := s.client.Delete(ctx, "notes", eq("id", noteID))
	if err != nil {
		return err
	}
	var rows []models.Note
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("delete note %s: %w", noteID, apperr.ErrNotFound)
	}

	s.cache.Invalidate("note:" + noteID)
	s.cache.Invalidate("list_notes")
	return nil
}

// AddTag attaches a lowercase-normalized tag to a note.
func (s *Store) AddTag(ctx context.Context, noteID, tag string) error {
	if _, err := s.GetNote(ctx, noteID); err != nil {
		return err
	}
	norm := NormalizeTag(tag)
	if norm == "" {
		return fmt.Errorf("empty tag: %w", apperr.ErrBadRequest)
	}
	row := models.Tag{
		NoteID:    noteID,
		Tag:       norm,
		CreatedAt: isoTimestamp(s.now()),
	}
	if _, err := s.client.Insert(ctx, "tags", row); err != nil {
		return err
	}

	s.cache.Invalidate("tags:" + noteID)
	s.cache.Invalidate("notes_by_tag:" + norm)
	s.cache.Invalidate("all_tags_counts")
	return nil
}

// GetTags returns all tags attached to a note.
func (s *Store) GetTags(ctx context.Context, noteID string) ([]string, error) {
	key := "tags:" + noteID
	if v, ok := s.cache.Get(key); ok {
		return v.([]string), nil
	}

	params := eq("note_id", noteID)
	params.Set("select", "tag")
	var rows []models.Tag
	if err := s.client.Select(ctx, "tags", params, &rows); err != nil {
		return nil, err
	}
	tags := make([]string, 0, len(rows))
	for _, r := range rows {
		tags = append(tags, r.Tag)
	}

	s.cache.Set(key, tags, tagTTL)
	return tags, nil
}

// DeleteTag removes one tag from a note.
func (s *Store) DeleteTag(ctx context.Context, noteID, tag string) error {
	norm := NormalizeTag(tag)
	params := eq("note_id", noteID)
	params.Set("tag", "eq."+norm)
	data, err := s.client.Delete(ctx, "tags", params)
	if err != nil {
		return err
	}
	var rows []models.Tag
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("tag %q on note %s: %w", tag, noteID, apperr.ErrNotFound)
	}

	s.cache.Invalidate("tags:" + noteID)
	s.cache.Invalidate("notes_by_tag:" + norm)
	s.cache.Invalidate("all_tags_counts")
	return nil
}

// DeleteNoteTags removes every tag attached to a note.
func (s *Store) DeleteNoteTags(ctx context.Context, noteID string) error {
	if _, err := s.client.Delete(ctx, "tags", eq("note_id", noteID)); err != nil {
		return err
	}
	s.cache.Invalidate("tags:" + noteID)
	s.cache.Invalidate("notes_by_tag:")
	s.cache.Invalidate("all_tags_counts")
	return nil
}

// GetNotesByTag returns every note carrying the given tag.
func (s *Store) GetNotesByTag(ctx context.Context, tag string) ([]models.Note, error) {
	norm := NormalizeTag(tag)
	key := "notes_by_tag:" + norm
	if v, ok := s.cache.Get(key); ok {
		return v.([]models.Note), nil
	}

	noteIDs, err := s.noteIDsWithTag(ctx, norm)
	if err != nil {
		return nil, err
	}
	notes := make([]models.Note, 0, len(noteIDs))
	for _, id := range noteIDs {
		note, err := s.GetNote(ctx, id)
		if err != nil {
			continue
		}
		notes = append(notes, note)
	}

	s.cache.Set(key, notes, tagTTL)
	return notes, nil
}

// GetNotesWithAllTagsByTag returns notes carrying the given tag with each
// note's full tag set populated, using two bulk queries instead of one per
// note.
func (s *Store) GetNotesWithAllTagsByTag(ctx context.Context, tag string) ([]models.Note, error) {
	noteIDs, err := s.noteIDsWithTag(ctx, NormalizeTag(tag))
	if err != nil {
		return nil, err
	}
	if len(noteIDs) == 0 {
		return []models.Note{}, nil
	}

	inFilter := "in.(" + strings.Join(noteIDs, ",") + ")"

	var notes []models.Note
	params := url.Values{}
	params.Set("id", inFilter)
	params.Set("order", "created_at.desc")
	if err := s.client.Select(ctx, "notes", params, &notes); err != nil {
		return nil, err
	}

	var tagRows []models.Tag
	tagParams := url.Values{}
	tagParams.Set("note_id", inFilter)
	if err := s.client.Select(ctx, "tags", tagParams, &tagRows); err != nil {
		return nil, err
	}

	tagsByNote := make(map[string][]string)
	for _, r := range tagRows {
		tagsByNote[r.NoteID] = append(tagsByNote[r.NoteID], r.Tag)
	}
	for i := range notes {
		notes[i].Tags = tagsByNote[notes[i].ID]
	}
	return notes, nil
}

// GetAllTagsWithCounts aggregates tag usage, sorted by count descending.
func (s *Store) GetAllTagsWithCounts(ctx context.Context) ([]models.TagCount, error) {
	key := "all_tags_counts"
	if v, ok := s.cache.Get(key); ok {
		return v.([]models.TagCount), nil
	}

	params := url.Values{}
	params.Set("select", "tag,note_id")
	var rows []models.Tag
	if err := s.client.Select(ctx, "tags", params, &rows); err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Tag]++
	}
	result := make([]models.TagCount, 0, len(counts))
	for tag, n := range counts {
		result = append(result, models.TagCount{Tag: tag, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Tag < result[j].Tag
	})

	s.cache.Set(key, result, tagTTL)
	return result, nil
}

// GetTagRows returns raw tag rows for one tag value, including timestamps.
// Used to work out which todos were completed today.
func (s *Store) GetTagRows(ctx context.Context, tag string) ([]models.Tag, error) {
	params := eq("tag", NormalizeTag(tag))
	params.Set("select", "note_id,created_at")
	var rows []models.Tag
	if err := s.client.Select(ctx, "tags", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SearchNotes finds notes whose content contains query (case-insensitive).
// Results are intentionally uncached: the term space is unbounded.
func (s *Store) SearchNotes(ctx context.Context, query string) ([]models.Note, error) {
	params := url.Values{}
	params.Set("content", "ilike.*"+query+"*")
	var rows []models.Note
	if err := s.client.Select(ctx, "notes", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SearchNotesByDate returns notes created on the given YYYY-MM-DD day (UTC).
func (s *Store) SearchNotesByDate(ctx context.Context, date string) ([]models.Note, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", date, apperr.ErrBadRequest)
	}
	next := day.AddDate(0, 0, 1)

	params := url.Values{}
	params.Add("created_at", "gte."+day.Format("2006-01-02T15:04:05"))
	params.Add("created_at", "lt."+next.Format("2006-01-02T15:04:05"))
	params.Set("order", "created_at.desc")
	var rows []models.Note
	if err := s.client.Select(ctx, "notes", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateLink creates a directed link between two existing notes.
func (s *Store) CreateLink(ctx context.Context, sourceID, targetID, context string) error {
	if _, err := s.GetNote(ctx, sourceID); err != nil {
		return err
	}
	if _, err := s.GetNote(ctx, targetID); err != nil {
		return err
	}
	row := models.Link{
		SourceID:  sourceID,
		TargetID:  targetID,
		Context:   context,
		CreatedAt: isoTimestamp(s.now()),
	}
	if _, err := s.client.Insert(ctx, "links", row); err != nil {
		return err
	}

	s.cache.Invalidate("related_notes:" + sourceID)
	s.cache.Invalidate("related_notes:" + targetID)
	return nil
}

// DeleteLink removes the directed link from sourceID to targetID.
func (s *Store) DeleteLink(ctx context.Context, sourceID, targetID string) error {
	params := eq("source_id", sourceID)
	params.Set("target_id", "eq."+targetID)
	data, err := s.client.Delete(ctx, "links", params)
	if err != nil {
		return err
	}
	var rows []models.Link
	if err := json.Unmarshal(data, &rows); err != nil || len(rows) == 0 {
		return fmt.Errorf("link %s -> %s: %w", sourceID, targetID, apperr.ErrNotFound)
	}

	s.cache.Invalidate("related_notes:" + sourceID)
	s.cache.Invalidate("related_notes:" + targetID)
	return nil
}

// DeleteNoteLinks removes every link touching a note, in either direction.
func (s *Store) DeleteNoteLinks(ctx context.Context, noteID string) error {
	// Collect the neighbours first so their related caches can be evicted.
	neighbours := make(map[string]struct{})
	out, err := s.outgoingLinks(ctx, noteID)
	if err != nil {
		return err
	}
	for _, l := range out {
		neighbours[l.TargetID] = struct{}{}
	}
	in, err := s.incomingLinks(ctx, noteID)
	if err != nil {
		return err
	}
	for _, l := range in {
		neighbours[l.SourceID] = struct{}{}
	}

	if _, err := s.client.Delete(ctx, "links", eq("source_id", noteID)); err != nil {
		return err
	}
	if _, err := s.client.Delete(ctx, "links", eq("target_id", noteID)); err != nil {
		return err
	}

	for id := range neighbours {
		s.cache.Invalidate("related_notes:" + id)
	}
	s.cache.Invalidate("related_notes:" + noteID)
	return nil
}

// GetRelatedNotes returns the notes linked to noteID in either direction,
// deduplicated.
func (s *Store) GetRelatedNotes(ctx context.Context, noteID string) ([]models.Note, error) {
	key := "related_notes:" + noteID
	if v, ok := s.cache.Get(key); ok {
		return v.([]models.Note), nil
	}

	out, err := s.outgoingLinks(ctx, noteID)
	if err != nil {
		return nil, err
	}
	in, err := s.incomingLinks(ctx, noteID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var relatedIDs []string
	for _, l := range out {
		if _, ok := seen[l.TargetID]; !ok {
			seen[l.TargetID] = struct{}{}
			relatedIDs = append(relatedIDs, l.TargetID)
		}
	}
	for _, l := range in {
		if _, ok := seen[l.SourceID]; !ok {
			seen[l.SourceID] = struct{}{}
			relatedIDs = append(relatedIDs, l.SourceID)
		}
	}

	related := make([]models.Note, 0, len(relatedIDs))
	for _, id := range relatedIDs {
		note, err := s.GetNote(ctx, id)
		if err != nil {
			continue
		}
		related = append(related, note)
	}

	s.cache.Set(key, related, tagTTL)
	return related, nil
}

// OutgoingLinks returns links whose source is noteID. The graph builder
// walks these.
func (s *Store) OutgoingLinks(ctx context.Context, noteID string) ([]models.Link, error) {
	return s.outgoingLinks(ctx, noteID)
}

// ListNoteIDs returns the IDs of every note.
func (s *Store) ListNoteIDs(ctx context.Context) ([]string, error) {
	params := url.Values{}
	params.Set("select", "id")
	var rows []models.Note
	if err := s.client.Select(ctx, "notes", params, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// MergeNotes combines the given notes into one new note: contents joined by
// a separator, tags unioned. The source notes are left in place and each is
// linked to the merged note.
func (s *Store) MergeNotes(ctx context.Context, noteIDs []string) (string, error) {
	if len(noteIDs) < 2 {
		return "", fmt.Errorf("merge needs at least two notes: %w", apperr.ErrBadRequest)
	}

	var parts []string
	tagSet := make(map[string]struct{})
	var tagOrder []string
	for _, id := range noteIDs {
		note, err := s.GetNote(ctx, id)
		if err != nil {
			return "", err
		}
		parts = append(parts, note.Content)
		tags, err := s.GetTags(ctx, id)
		if err != nil {
			return "", err
		}
		for _, t := range tags {
			if _, ok := tagSet[t]; !ok {
				tagSet[t] = struct{}{}
				tagOrder = append(tagOrder, t)
			}
		}
	}

	mergedID, err := s.CreateNote(ctx, strings.Join(parts, "\n\n---\n\n"))
	if err != nil {
		return "", err
	}
	for _, t := range tagOrder {
		if err := s.AddTag(ctx, mergedID, t); err != nil {
			return "", err
		}
	}
	for _, id := range noteIDs {
		if err := s.CreateLink(ctx, id, mergedID, "Merged into this note"); err != nil {
			return "", err
		}
	}
	return mergedID, nil
}

// NormalizeTag lowercases and trims a tag. Applying it twice is a no-op.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

func (s *Store) noteIDsWithTag(ctx context.Context, norm string) ([]string, error) {
	params := eq("tag", norm)
	params.Set("select", "note_id")
	var rows []models.Tag
	if err := s.client.Select(ctx, "tags", params, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.NoteID)
	}
	return ids, nil
}

func (s *Store) outgoingLinks(ctx context.Context, noteID string) ([]models.Link, error) {
	var rows []models.Link
	if err := s.client.Select(ctx, "links", eq("source_id", noteID), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) incomingLinks(ctx context.Context, noteID string) ([]models.Link, error) {
	var rows []models.Link
	if err := s.client.Select(ctx, "links", eq("target_id", noteID), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
