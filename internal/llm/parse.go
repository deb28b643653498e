package llm

import (
	"regexp"
	"strings"
)

// The model is asked for strictly formatted replies but does not always
// comply, so every parser has a looser fallback.

var (
	listItemPattern = regexp.MustCompile(`^\s*(?:[-*\x{2022}]|\d+[.)])\s*(.+)$`)
	tagLinePattern  = regexp.MustCompile(`(?i)^\s*tag:\s*(.+)$`)
)

// ParseTags extracts tag suggestions. Preferred format is one "Tag: name"
// per line; list items and a single comma-separated line are accepted too.
func ParseTags(reply string, max int) []string {
	var raw []string
	for _, line := range strings.Split(reply, "\n") {
		if m := tagLinePattern.FindStringSubmatch(line); m != nil {
			raw = append(raw, m[1])
		}
	}
	if len(raw) == 0 {
		for _, line := range strings.Split(reply, "\n") {
			if m := listItemPattern.FindStringSubmatch(line); m != nil {
				raw = append(raw, m[1])
			}
		}
	}
	if len(raw) == 0 {
		raw = strings.Split(reply, ",")
	}

	seen := make(map[string]struct{})
	var tags []string
	for _, r := range raw {
		tag := strings.ToLower(strings.Trim(strings.TrimSpace(r), `#"'.`))
		if tag == "" || strings.ContainsRune(tag, ' ') && len(strings.Fields(tag)) > 3 {
			continue
		}
		tag = strings.ReplaceAll(tag, " ", "-")
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if max > 0 && len(tags) == max {
			break
		}
	}
	return tags
}

// Item is one extracted concept or question with its explanation.
type Item struct {
	Title       string
	Explanation string
}

// ParseItems extracts labelled pairs such as "Concept: ... / Explanation:
// ..." from a reply. When no labels are found, each non-empty paragraph
// becomes an item with an empty explanation.
func ParseItems(reply, label string) []Item {
	titlePattern := regexp.MustCompile(`(?i)^\s*(?:\d+[.)]\s*)?` + regexp.QuoteMeta(label) + `:\s*(.+)$`)
	explPattern := regexp.MustCompile(`(?i)^\s*explanation:\s*(.+)$`)

	var items []Item
	for _, line := range strings.Split(reply, "\n") {
		if m := titlePattern.FindStringSubmatch(line); m != nil {
			items = append(items, Item{Title: strings.TrimSpace(m[1])})
			continue
		}
		if m := explPattern.FindStringSubmatch(line); m != nil && len(items) > 0 {
			last := &items[len(items)-1]
			if last.Explanation != "" {
				last.Explanation += " "
			}
			last.Explanation += strings.TrimSpace(m[1])
		}
	}
	if len(items) > 0 {
		return items
	}

	for _, para := range strings.Split(reply, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		items = append(items, Item{Title: para})
	}
	return items
}

// Critique is structured feedback on a note.
type Critique struct {
	Strengths   []string
	Weaknesses  []string
	Suggestions []string
}

// ParseCritique splits a reply into strengths, areas for improvement and
// suggestions by section header. Unheadered replies land entirely in
// Suggestions.
func ParseCritique(reply string) Critique {
	var c Critique
	var current *[]string
	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "#*:"))
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "strength"):
			current = &c.Strengths
			continue
		case strings.HasPrefix(lower, "area") || strings.HasPrefix(lower, "weakness") || strings.HasPrefix(lower, "improvement"):
			current = &c.Weaknesses
			continue
		case strings.HasPrefix(lower, "suggestion"):
			current = &c.Suggestions
			continue
		}
		if trimmed == "" {
			continue
		}
		text := trimmed
		if m := listItemPattern.FindStringSubmatch(line); m != nil {
			text = strings.TrimSpace(m[1])
		}
		if current == nil {
			c.Suggestions = append(c.Suggestions, text)
		} else {
			*current = append(*current, text)
		}
	}
	return c
}
