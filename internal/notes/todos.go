package notes

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/gregdefoy/zettl/internal/models"
	"github.com/gregdefoy/zettl/internal/store"
)

// Status tags carried by todo notes. Everything else on the note acts as a
// category label.
const (
	TagTodo   = "todo"
	TagDone   = "done"
	TagCancel = "cancel"
)

// Uncategorized is the group key for todos carrying no category tags.
const Uncategorized = "uncategorized"

// TodoGroups holds todo notes bucketed by status, each bucket keyed by
// category. A note with several category tags lands under one combined key,
// the sorted tags joined with " - ".
type TodoGroups struct {
	Active    map[string][]models.Note
	DoneToday map[string][]models.Note
	Done      map[string][]models.Note
	Canceled  map[string][]models.Note
}

// Todos fetches every note tagged "todo" and groups it by status and
// category. "Done today" means the done tag itself was attached today (UTC),
// not that the note was created today.
func (s *Service) Todos(ctx context.Context) (TodoGroups, error) {
	todoNotes, err := s.store.GetNotesWithAllTagsByTag(ctx, TagTodo)
	if err != nil {
		return TodoGroups{}, err
	}

	doneToday, err := s.doneTodaySet(ctx)
	if err != nil {
		return TodoGroups{}, err
	}

	groups := TodoGroups{
		Active:    make(map[string][]models.Note),
		DoneToday: make(map[string][]models.Note),
		Done:      make(map[string][]models.Note),
		Canceled:  make(map[string][]models.Note),
	}
	for _, note := range todoNotes {
		key := categoryKey(note.Tags)
		switch {
		case hasTag(note.Tags, TagCancel):
			groups.Canceled[key] = append(groups.Canceled[key], note)
		case hasTag(note.Tags, TagDone) && doneToday[note.ID]:
			groups.DoneToday[key] = append(groups.DoneToday[key], note)
		case hasTag(note.Tags, TagDone):
			groups.Done[key] = append(groups.Done[key], note)
		default:
			groups.Active[key] = append(groups.Active[key], note)
		}
	}
	return groups, nil
}

// MarkDone tags a todo note as done.
func (s *Service) MarkDone(ctx context.Context, noteID string) error {
	return s.store.AddTag(ctx, noteID, TagDone)
}

// doneTodaySet returns the IDs of notes whose done tag was created today.
func (s *Service) doneTodaySet(ctx context.Context) (map[string]bool, error) {
	rows, err := s.store.GetTagRows(ctx, TagDone)
	if err != nil {
		return nil, err
	}
	today := time.Now().UTC().Format("2006-01-02")
	set := make(map[string]bool)
	for _, row := range rows {
		t, err := store.ParseTimestamp(row.CreatedAt)
		if err != nil {
			continue
		}
		if t.Format("2006-01-02") == today {
			set[row.NoteID] = true
		}
	}
	return set, nil
}

// categoryKey derives the group key from a note's tags: status tags are
// dropped, the rest are sorted and joined.
func categoryKey(tags []string) string {
	var categories []string
	for _, tag := range tags {
		switch tag {
		case TagTodo, TagDone, TagCancel:
			continue
		}
		categories = append(categories, tag)
	}
	if len(categories) == 0 {
		return Uncategorized
	}
	sort.Strings(categories)
	return strings.Join(categories, " - ")
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// SortedKeys returns a group map's category keys in stable display order,
// uncategorized last.
func SortedKeys(group map[string][]models.Note) []string {
	keys := make([]string, 0, len(group))
	for k := range group {
		if k != Uncategorized {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := group[Uncategorized]; ok {
		keys = append(keys, Uncategorized)
	}
	return keys
}
