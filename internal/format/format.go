// Package format renders notes and related output for terminals, using ANSI
// escape codes, and converts that output to HTML for the web client.
package format

import (
	"fmt"
	"strings"

	"github.com/gregdefoy/zettl/internal/models"
	"github.com/gregdefoy/zettl/internal/store"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiCyan   = "\033[36m"
)

// Header renders a bold green section header.
func Header(s string) string { return ansiBold + ansiGreen + s + ansiReset }

// NoteID renders a note ID in cyan, prefixed with '#'.
func NoteID(id string) string { return ansiCyan + "#" + id + ansiReset }

// Timestamp renders a display timestamp in blue.
func Timestamp(s string) string { return ansiBlue + s + ansiReset }

// Tag renders a tag in yellow, prefixed with '#'.
func Tag(tag string) string { return ansiYellow + "#" + tag + ansiReset }

// Link renders a link context in blue.
func Link(s string) string { return ansiBlue + s + ansiReset }

// Error renders an error message in red.
func Error(msg string) string { return ansiRed + "Error: " + msg + ansiReset }

// Warning renders a warning in yellow.
func Warning(msg string) string { return ansiYellow + "Warning: " + msg + ansiReset }

// Success renders a confirmation in green.
func Success(msg string) string { return ansiGreen + msg + ansiReset }

// Info renders an informational message in cyan.
func Info(msg string) string { return ansiCyan + msg + ansiReset }

const noteSeparator = "----------------------------------------"

// Note renders a full note: ID and creation time on the first line, a
// separator, tags when present, then the content.
func Note(n models.Note, tags []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", NoteID(n.ID), Timestamp(store.FormatTimestamp(n.CreatedAt)))
	b.WriteString(noteSeparator)
	b.WriteString("\n")
	if len(tags) > 0 {
		parts := make([]string, 0, len(tags))
		for _, t := range tags {
			parts = append(parts, Tag(t))
		}
		b.WriteString(strings.Join(parts, " "))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(n.Content)
	b.WriteString("\n")
	return b.String()
}

// NoteSummary renders a one-note listing block: header line plus a content
// preview truncated at previewLen runes.
func NoteSummary(n models.Note, previewLen int) string {
	preview := Preview(n.Content, previewLen)
	return fmt.Sprintf("%s %s\n%s\n", NoteID(n.ID), Timestamp(store.FormatTimestamp(n.CreatedAt)), preview)
}

// Preview truncates content to max runes on a single line, appending an
// ellipsis when it was cut.
func Preview(content string, max int) string {
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if max <= 0 || len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}
