package web

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gregdefoy/zettl/internal/apperr"
	"github.com/gregdefoy/zettl/internal/format"
	"github.com/gregdefoy/zettl/internal/graph"
	"github.com/gregdefoy/zettl/internal/llm"
	"github.com/gregdefoy/zettl/internal/models"
	"github.com/gregdefoy/zettl/internal/notes"
	"github.com/gregdefoy/zettl/internal/nutrition"
)

// commandRunner executes one CLI-style command line against the services and
// renders the result the way the terminal client would, then as HTML.
type commandRunner struct {
	svc     *notes.Service
	helper  *llm.Helper
	tracker *nutrition.Tracker
	broker  *Broker
}

func newCommandRunner(svc *notes.Service, helper *llm.Helper, tracker *nutrition.Tracker, broker *Broker) *commandRunner {
	return &commandRunner{svc: svc, helper: helper, tracker: tracker, broker: broker}
}

// Run executes a command line. Execution failures are rendered into the
// output like the terminal client renders them; only unusable input returns
// an error.
func (c *commandRunner) Run(ctx context.Context, line string) (string, error) {
	args, err := splitCommand(line)
	if err != nil {
		return "", fmt.Errorf("%s: %w", err.Error(), apperr.ErrBadRequest)
	}
	if len(args) > 0 && args[0] == "zettl" {
		args = args[1:]
	}
	if len(args) == 0 {
		return "", fmt.Errorf("empty command: %w", apperr.ErrBadRequest)
	}

	out, err := c.dispatch(ctx, args[0], args[1:])
	if err != nil {
		out = format.Error(err.Error())
	}
	return format.ANSIToHTML(out), nil
}

func (c *commandRunner) dispatch(ctx context.Context, name string, args []string) (string, error) {
	switch name {
	case "help":
		return c.help(), nil
	case "new", "add":
		return c.newNote(ctx, args, nil)
	case "task", "t":
		return c.newNote(ctx, args, []string{"todo"})
	case "idea", "i":
		return c.newNote(ctx, args, []string{"idea"})
	case "note", "n":
		return c.newNote(ctx, args, nil)
	case "project", "p":
		return c.newNote(ctx, args, []string{"project"})
	case "list":
		return c.list(ctx, args)
	case "show":
		return c.show(ctx, args)
	case "search":
		return c.search(ctx, args)
	case "tags":
		return c.tags(ctx, args)
	case "untag":
		return c.untag(ctx, args)
	case "link":
		return c.link(ctx, args)
	case "unlink":
		return c.unlink(ctx, args)
	case "related":
		return c.related(ctx, args)
	case "delete":
		return c.delete(ctx, args)
	case "append":
		return c.appendText(ctx, args, false)
	case "prepend":
		return c.appendText(ctx, args, true)
	case "merge":
		return c.merge(ctx, args)
	case "todos":
		return c.todos(ctx)
	case "done":
		return c.done(ctx, args)
	case "rules":
		return c.rules(ctx, args)
	case "nutrition":
		return c.nutrition(ctx, args)
	case "graph":
		return c.graph(ctx, args)
	case "llm":
		return c.llm(ctx, args)
	default:
		return "", fmt.Errorf("unknown command %q, try help", name)
	}
}

func (c *commandRunner) help() string {
	var b strings.Builder
	b.WriteString(format.Header("zettl commands") + "\n\n")
	for _, line := range []string{
		"new <text> [-t tag]      create a note (aliases: add; task/idea/project pre-tag)",
		"list [-l limit]          list recent notes",
		"show <id>                show one note",
		"search <query> [-t tag] [-d date]",
		"tags [id]                tags of a note, or all tags with counts",
		"untag <id> <tag>         remove a tag",
		"link <src> <tgt> [-c context]",
		"unlink <src> <tgt>",
		"related <id>             linked notes",
		"append <id> <text>       add text to the end of a note",
		"prepend <id> <text>      add text to the start of a note",
		"merge <id> <id> [...]    combine notes into a new one",
		"delete <id> [--keep-links]",
		"todos                    todo notes grouped by category",
		"done <id>                mark a todo done",
		"rules [-a]               one random rule, or all",
		"nutrition [today|history] [-d days]",
		"graph [id] [-d depth]    export the link graph as JSON",
		"llm <id> [-a action] [-c count]",
	} {
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (c *commandRunner) newNote(ctx context.Context, args []string, presetTags []string) (string, error) {
	p, err := parseArgs(args, flagSpec{
		value: map[string]string{"-t": "tag", "--tag": "tag"},
	})
	if err != nil {
		return "", err
	}
	if len(p.args) == 0 {
		return "", fmt.Errorf("usage: new <text> [-t tag]")
	}
	content := strings.Join(p.args, " ")
	tags := append(presetTags, p.values["tag"]...)

	id, err := c.svc.CreateNote(ctx, content, tags...)
	if err != nil {
		return "", err
	}
	c.publish("created", id)

	out := format.Success("Created note") + " " + format.NoteID(id)
	if len(tags) > 0 {
		out += "\n" + formatTagList(tags)
	}
	return out + "\n", nil
}

func (c *commandRunner) list(ctx context.Context, args []string) (string, error) {
	p, err := parseArgs(args, flagSpec{
		value: map[string]string{"-l": "limit", "--limit": "limit"},
	})
	if err != nil {
		return "", err
	}
	limit := 10
	if v := p.first("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			return "", fmt.Errorf("invalid limit %q", v)
		}
	}

	list, err := c.svc.Store().ListNotes(ctx, limit)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return format.Warning("no notes yet") + "\n", nil
	}

	var b strings.Builder
	b.WriteString(format.Header(fmt.Sprintf("Recent notes (%d)", len(list))) + "\n\n")
	for _, n := range list {
		b.WriteString(format.NoteSummary(n, 80))
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (c *commandRunner) show(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: show <id>")
	}
	note, tags, err := c.svc.NoteWithTags(ctx, args[0])
	if err != nil {
		return "", err
	}
	return format.Note(note, tags), nil
}

func (c *commandRunner) search(ctx context.Context, args []string) (string, error) {
	p, err := parseArgs(args, flagSpec{
		value: map[string]string{"-t": "tag", "--tag": "tag", "-d": "date", "--date": "date"},
	})
	if err != nil {
		return "", err
	}

	var results []models.Note
	header := "Search results"
	switch {
	case p.first("tag") != "":
		results, err = c.svc.Store().GetNotesByTag(ctx, p.first("tag"))
		header = "Notes tagged " + p.first("tag")
	case p.first("date") != "":
		results, err = c.svc.Store().SearchNotesByDate(ctx, p.first("date"))
		header = "Notes from " + p.first("date")
	case len(p.args) > 0:
		results, err = c.svc.Store().SearchNotes(ctx, strings.Join(p.args, " "))
	default:
		return "", fmt.Errorf("usage: search <query> or search -t tag or search -d YYYY-MM-DD")
	}
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return format.Warning("no matches") + "\n", nil
	}

	var b strings.Builder
	b.WriteString(format.Header(fmt.Sprintf("%s (%d)", header, len(results))) + "\n\n")
	for _, n := range results {
		b.WriteString(format.NoteSummary(n, 80))
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (c *commandRunner) tags(ctx context.Context, args []string) (string, error) {
	if len(args) == 1 {
		tags, err := c.svc.Store().GetTags(ctx, args[0])
		if err != nil {
			return "", err
		}
		if len(tags) == 0 {
			return format.Warning("no tags on "+args[0]) + "\n", nil
		}
		return formatTagList(tags) + "\n", nil
	}

	counts, err := c.svc.Store().GetAllTagsWithCounts(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(format.Header("All tags") + "\n\n")
	for _, tc := range counts {
		fmt.Fprintf(&b, "%s (%d)\n", format.Tag(tc.Tag), tc.Count)
	}
	return b.String(), nil
}

func (c *commandRunner) untag(ctx context.Context, args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("usage: untag <id> <tag>")
	}
	if err := c.svc.Store().DeleteTag(ctx, args[0], args[1]); err != nil {
		return "", err
	}
	c.publish("updated", args[0])
	return format.Success("Removed tag") + " " + format.Tag(args[1]) + "\n", nil
}

func (c *commandRunner) link(ctx context.Context, args []string) (string, error) {
	p, err := parseArgs(args, flagSpec{
		value: map[string]string{"-c": "context", "--context": "context"},
	})
	if err != nil {
		return "", err
	}
	if len(p.args) != 2 {
		return "", fmt.Errorf("usage: link <source> <target> [-c context]")
	}
	if err := c.svc.Store().CreateLink(ctx, p.args[0], p.args[1], p.first("context")); err != nil {
		return "", err
	}
	c.publish("updated", p.args[0])
	return format.Success("Linked") + " " + format.NoteID(p.args[0]) + " -> " + format.NoteID(p.args[1]) + "\n", nil
}

func (c *commandRunner) unlink(ctx context.Context, args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("usage: unlink <source> <target>")
	}
	if err := c.svc.Store().DeleteLink(ctx, args[0], args[1]); err != nil {
		return "", err
	}
	c.publish("updated", args[0])
	return format.Success("Unlinked") + " " + format.NoteID(args[0]) + " -> " + format.NoteID(args[1]) + "\n", nil
}

func (c *commandRunner) related(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: related <id>")
	}
	related, err := c.svc.Store().GetRelatedNotes(ctx, args[0])
	if err != nil {
		return "", err
	}
	if len(related) == 0 {
		return format.Warning("no linked notes") + "\n", nil
	}
	var b strings.Builder
	b.WriteString(format.Header(fmt.Sprintf("Notes linked to %s", args[0])) + "\n\n")
	for _, n := range related {
		b.WriteString(format.NoteSummary(n, 80))
		b.WriteString("\n")
	}
	return b.String(), nil
}

func (c *commandRunner) delete(ctx context.Context, args []string) (string, error) {
	p, err := parseArgs(args, flagSpec{
		boolean: map[string]string{"-k": "keep-links", "--keep-links": "keep-links"},
	})
	if err != nil {
		return "", err
	}
	if len(p.args) != 1 {
		return "", fmt.Errorf("usage: delete <id> [--keep-links]")
	}
	if err := c.svc.Store().DeleteNote(ctx, p.args[0], !p.bools["keep-links"]); err != nil {
		return "", err
	}
	c.publish("deleted", p.args[0])
	return format.Success("Deleted note") + " " + format.NoteID(p.args[0]) + "\n", nil
}

func (c *commandRunner) appendText(ctx context.Context, args []string, prepend bool) (string, error) {
	if len(args) < 2 {
		verb := "append"
		if prepend {
			verb = "prepend"
		}
		return "", fmt.Errorf("usage: %s <id> <text>", verb)
	}
	id, text := args[0], strings.Join(args[1:], " ")
	var err error
	if prepend {
		err = c.svc.PrependToNote(ctx, id, text)
	} else {
		err = c.svc.AppendToNote(ctx, id, text)
	}
	if err != nil {
		return "", err
	}
	c.publish("updated", id)
	return format.Success("Updated note") + " " + format.NoteID(id) + "\n", nil
}

func (c *commandRunner) merge(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("usage: merge <id> <id> [...]")
	}
	id, err := c.svc.Store().MergeNotes(ctx, args)
	if err != nil {
		return "", err
	}
	c.publish("created", id)
	return format.Success("Merged into") + " " + format.NoteID(id) + "\n", nil
}

func (c *commandRunner) todos(ctx context.Context) (string, error) {
	groups, err := c.svc.Todos(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	writeGroup := func(title string, group map[string][]models.Note) {
		if len(group) == 0 {
			return
		}
		b.WriteString(format.Header(title) + "\n")
		for _, key := range notes.SortedKeys(group) {
			b.WriteString("  " + format.Tag(key) + "\n")
			for _, n := range group[key] {
				fmt.Fprintf(&b, "    %s %s\n", format.NoteID(n.ID), format.Preview(n.Content, 70))
			}
		}
		b.WriteString("\n")
	}
	writeGroup("Active", groups.Active)
	writeGroup("Done today", groups.DoneToday)
	writeGroup("Done", groups.Done)
	writeGroup("Canceled", groups.Canceled)

	if b.Len() == 0 {
		return format.Warning("no todos") + "\n", nil
	}
	return b.String(), nil
}

func (c *commandRunner) done(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: done <id>")
	}
	if err := c.svc.MarkDone(ctx, args[0]); err != nil {
		return "", err
	}
	c.publish("updated", args[0])
	return format.Success("Marked done") + " " + format.NoteID(args[0]) + "\n", nil
}

func (c *commandRunner) rules(ctx context.Context, args []string) (string, error) {
	p, err := parseArgs(args, flagSpec{
		boolean: map[string]string{"-a": "all", "--all": "all"},
	})
	if err != nil {
		return "", err
	}

	if p.bools["all"] {
		rules, err := c.svc.Rules(ctx)
		if err != nil {
			return "", err
		}
		if len(rules) == 0 {
			return format.Warning("no rules notes") + "\n", nil
		}
		var b strings.Builder
		b.WriteString(format.Header(fmt.Sprintf("Rules (%d)", len(rules))) + "\n\n")
		for i, r := range rules {
			fmt.Fprintf(&b, "%2d. %s %s\n", i+1, r.Text, format.NoteID(r.NoteID))
		}
		return b.String(), nil
	}

	rule, err := c.svc.RandomRule(ctx)
	if err != nil {
		return "", err
	}
	return rule.Text + " " + format.NoteID(rule.NoteID) + "\n", nil
}

func (c *commandRunner) nutrition(ctx context.Context, args []string) (string, error) {
	sub := "today"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub = args[0]
		args = args[1:]
	}

	switch sub {
	case "today":
		total, entries, err := c.tracker.Today(ctx)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		b.WriteString(format.Header("Today") + "\n")
		fmt.Fprintf(&b, "%s cal, %sg protein across %d entries\n",
			strconv.FormatFloat(total.Calories, 'f', -1, 64),
			strconv.FormatFloat(total.Protein, 'f', -1, 64),
			len(entries))
		for _, e := range entries {
			fmt.Fprintf(&b, "  %s %s\n", format.NoteID(e.NoteID), format.Preview(e.Content, 60))
		}
		return b.String(), nil
	case "history", "graph":
		p, err := parseArgs(args, flagSpec{
			value: map[string]string{"-d": "days", "--days": "days"},
		})
		if err != nil {
			return "", err
		}
		days := 7
		if v := p.first("days"); v != "" {
			days, err = strconv.Atoi(v)
			if err != nil {
				return "", fmt.Errorf("invalid day count %q", v)
			}
		}
		totals, err := c.tracker.History(ctx, days)
		if err != nil {
			return "", err
		}
		return nutrition.Chart(totals), nil
	default:
		return "", fmt.Errorf("usage: nutrition [today|history] [-d days]")
	}
}

func (c *commandRunner) graph(ctx context.Context, args []string) (string, error) {
	p, err := parseArgs(args, flagSpec{
		value: map[string]string{"-d": "depth", "--depth": "depth"},
	})
	if err != nil {
		return "", err
	}
	root := ""
	if len(p.args) > 0 {
		root = p.args[0]
	}
	depth := 2
	if v := p.first("depth"); v != "" {
		depth, err = strconv.Atoi(v)
		if err != nil {
			return "", fmt.Errorf("invalid depth %q", v)
		}
	}

	g, err := graph.Build(ctx, c.svc.Store(), root, depth)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return "", err
	}
	summary := format.Header(fmt.Sprintf("Graph: %d notes, %d links", len(g.Nodes), len(g.Edges)))
	return summary + "\n" + string(data) + "\n", nil
}

func (c *commandRunner) llm(ctx context.Context, args []string) (string, error) {
	if c.helper == nil {
		return "", fmt.Errorf("model commands are disabled, no API key configured")
	}
	p, err := parseArgs(args, flagSpec{
		value: map[string]string{"-a": "action", "--action": "action", "-c": "count", "--count": "count"},
	})
	if err != nil {
		return "", err
	}
	if len(p.args) != 1 {
		return "", fmt.Errorf("usage: llm <id> [-a action] [-c count]")
	}
	id := p.args[0]
	action := p.first("action")
	if action == "" {
		action = "summarize"
	}
	count := 3
	if v := p.first("count"); v != "" {
		count, err = strconv.Atoi(v)
		if err != nil {
			return "", fmt.Errorf("invalid count %q", v)
		}
	}

	switch action {
	case "summarize":
		text, err := c.helper.Summarize(ctx, id)
		if err != nil {
			return "", err
		}
		return format.Header("Summary") + "\n" + text + "\n", nil
	case "expand":
		text, err := c.helper.Expand(ctx, id)
		if err != nil {
			return "", err
		}
		return format.Header("Expanded") + "\n" + text + "\n", nil
	case "tags":
		tags, err := c.helper.SuggestTags(ctx, id, count)
		if err != nil {
			return "", err
		}
		return format.Header("Suggested tags") + "\n" + formatTagList(tags) + "\n", nil
	case "concepts", "questions":
		var created []models.Note
		if action == "concepts" {
			created, err = c.helper.ExtractConcepts(ctx, id)
		} else {
			created, err = c.helper.GenerateQuestions(ctx, id)
		}
		if err != nil {
			return "", err
		}
		var b strings.Builder
		b.WriteString(format.Header(fmt.Sprintf("Created %d notes", len(created))) + "\n")
		for _, n := range created {
			c.publish("created", n.ID)
			fmt.Fprintf(&b, "  %s %s\n", format.NoteID(n.ID), format.Preview(n.Content, 60))
		}
		return b.String(), nil
	case "critique":
		cr, err := c.helper.CritiqueNote(ctx, id)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		writeSection := func(title string, items []string) {
			if len(items) == 0 {
				return
			}
			b.WriteString(format.Header(title) + "\n")
			for _, item := range items {
				b.WriteString("  - " + item + "\n")
			}
		}
		writeSection("Strengths", cr.Strengths)
		writeSection("Areas for improvement", cr.Weaknesses)
		writeSection("Suggestions", cr.Suggestions)
		return b.String(), nil
	case "connect":
		conns, err := c.helper.FindConnections(ctx, id, 20)
		if err != nil {
			return "", err
		}
		if len(conns) == 0 {
			return format.Warning("no connections found") + "\n", nil
		}
		var b strings.Builder
		b.WriteString(format.Header("Possible connections") + "\n")
		for _, conn := range conns {
			fmt.Fprintf(&b, "  %s %s\n", format.NoteID(conn.NoteID), conn.Reason)
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("unknown action %q (summarize, expand, tags, concepts, questions, critique, connect)", action)
	}
}

func (c *commandRunner) publish(kind, noteID string) {
	if c.broker != nil {
		c.broker.PublishNoteEvent(kind, noteID)
	}
}

func formatTagList(tags []string) string {
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)
	parts := make([]string, 0, len(sorted))
	for _, t := range sorted {
		parts = append(parts, format.Tag(strings.ToLower(strings.TrimSpace(t))))
	}
	return strings.Join(parts, " ")
}
