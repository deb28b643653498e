package notes

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/gregdefoy/zettl/internal/apperr"
)

// TagRules marks notes whose content is a list of personal rules.
const TagRules = "rules"

// Rule is one extracted rule together with the note it came from.
type Rule struct {
	NoteID string
	Text   string
}

// Rules collects every rule from notes tagged "rules". Each non-empty
// paragraph of a rules note counts as one rule.
func (s *Service) Rules(ctx context.Context) ([]Rule, error) {
	ruleNotes, err := s.store.GetNotesByTag(ctx, TagRules)
	if err != nil {
		return nil, err
	}
	var rules []Rule
	for _, note := range ruleNotes {
		for _, para := range strings.Split(note.Content, "\n\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			rules = append(rules, Rule{NoteID: note.ID, Text: para})
		}
	}
	return rules, nil
}

// RandomRule picks one rule at random.
func (s *Service) RandomRule(ctx context.Context) (Rule, error) {
	rules, err := s.Rules(ctx)
	if err != nil {
		return Rule{}, err
	}
	if len(rules) == 0 {
		return Rule{}, fmt.Errorf("no notes tagged %q: %w", TagRules, apperr.ErrNotFound)
	}
	return rules[rand.Intn(len(rules))], nil
}
