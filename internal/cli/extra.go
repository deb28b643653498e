package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/gregdefoy/zettl/internal/format"
	"github.com/gregdefoy/zettl/internal/graph"
	"github.com/gregdefoy/zettl/internal/models"
	"github.com/gregdefoy/zettl/internal/notes"
	"github.com/gregdefoy/zettl/internal/nutrition"
)

func todosCmd() *cli.Command {
	return &cli.Command{
		Name:    "todos",
		Aliases: []string{"todo"},
		Usage:   "Show todos grouped by category and status",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Include done and canceled todos"},
			&cli.BoolFlag{Name: "donetoday", Aliases: []string{"dt"}, Usage: "Show only todos finished today"},
			&cli.BoolFlag{Name: "cancel", Usage: "Show only canceled todos"},
			&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Show only this category"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			groups, err := e.svc.Todos(ctx)
			if err != nil {
				return err
			}

			tag := cmd.String("tag")
			if tag != "" {
				fmt.Fprintf(out(cmd), "%s\n\n", format.Info(fmt.Sprintf("Filtered by tag: %s", tag)))
			}
			active := filterGroup(groups.Active, tag)
			doneToday := filterGroup(groups.DoneToday, tag)
			done := filterGroup(groups.Done, tag)
			canceled := filterGroup(groups.Canceled, tag)

			w := out(cmd)
			var shown int
			switch {
			case cmd.Bool("cancel"):
				printTodoGroup(w, "Canceled", canceled)
				shown = len(canceled)
			case cmd.Bool("donetoday"):
				printTodoGroup(w, "Done today", doneToday)
				shown = len(doneToday)
			default:
				printTodoGroup(w, "Active", active)
				printTodoGroup(w, "Done today", doneToday)
				shown = len(active) + len(doneToday)
				if cmd.Bool("all") {
					printTodoGroup(w, "Done", done)
					printTodoGroup(w, "Canceled", canceled)
					shown += len(done) + len(canceled)
				}
			}
			if shown == 0 {
				fmt.Fprintln(w, format.Warning("no todos"))
			}
			return nil
		},
	}
}

// filterGroup keeps only the categories whose key mentions tag.
func filterGroup(group map[string][]models.Note, tag string) map[string][]models.Note {
	if tag == "" {
		return group
	}
	out := make(map[string][]models.Note)
	for key, list := range group {
		if strings.Contains(key, strings.ToLower(strings.TrimSpace(tag))) {
			out[key] = list
		}
	}
	return out
}

func printTodoGroup(w io.Writer, title string, group map[string][]models.Note) {
	if len(group) == 0 {
		return
	}
	fmt.Fprintf(w, "%s\n", format.Header(title))
	for _, key := range notes.SortedKeys(group) {
		fmt.Fprintf(w, "  %s\n", format.Tag(key))
		for _, n := range group[key] {
			fmt.Fprintf(w, "    %s %s\n", format.NoteID(n.ID), format.Preview(n.Content, 70))
		}
	}
	fmt.Fprintln(w)
}

func doneCmd() *cli.Command {
	return &cli.Command{
		Name:      "done",
		Usage:     "Mark a todo as done",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("exactly one note ID is required")
			}
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			id := cmd.Args().First()
			if err := e.svc.MarkDone(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s %s\n", format.Success("Done:"), format.NoteID(id))
			return nil
		},
	}
}

func rulesCmd() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "Show a random personal rule, or all of them",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Show every rule"},
			&cli.BoolFlag{Name: "source", Aliases: []string{"s"}, Usage: "Show which note each rule came from"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			w := out(cmd)
			if cmd.Bool("all") {
				rules, err := e.svc.Rules(ctx)
				if err != nil {
					return err
				}
				if len(rules) == 0 {
					fmt.Fprintln(w, format.Warning("no notes tagged rules"))
					return nil
				}
				fmt.Fprintf(w, "%s\n\n", format.Header(fmt.Sprintf("Rules (%d)", len(rules))))
				for _, r := range rules {
					fmt.Fprintf(w, "%s %s\n", format.NoteID(r.NoteID), r.Text)
				}
				return nil
			}
			rule, err := e.svc.RandomRule(ctx)
			if err != nil {
				return err
			}
			if cmd.Bool("source") {
				fmt.Fprintf(w, "%s %s\n", format.NoteID(rule.NoteID), rule.Text)
			} else {
				fmt.Fprintf(w, "%s\n", rule.Text)
			}
			return nil
		},
	}
}

func nutritionCmd() *cli.Command {
	return &cli.Command{
		Name:    "nutrition",
		Aliases: []string{"nut"},
		Usage:   "Track calories and protein",
		Commands: []*cli.Command{
			{
				Name:      "log",
				Usage:     `Record an entry, e.g. "lunch cal: 650 prot: 40"`,
				ArgsUsage: "<content>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Usage: "Backdate the entry (YYYY-MM-DD)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() == 0 {
						return fmt.Errorf("entry content is required")
					}
					e, err := setup(ctx, cmd)
					if err != nil {
						return err
					}
					content := strings.Join(cmd.Args().Slice(), " ")
					id, err := e.tracker.Log(ctx, content, cmd.String("date"))
					if err != nil {
						return err
					}
					fmt.Fprintf(out(cmd), "%s %s\n", format.Success("Logged"), format.NoteID(id))
					return nil
				},
			},
			{
				Name:  "today",
				Usage: "Show today's totals",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := setup(ctx, cmd)
					if err != nil {
						return err
					}
					total, entries, err := e.tracker.Today(ctx)
					if err != nil {
						return err
					}
					w := out(cmd)
					fmt.Fprintf(w, "%s\n\n", format.Header(fmt.Sprintf("Nutrition for %s", total.Date)))
					if len(entries) == 0 {
						fmt.Fprintln(w, format.Info("nothing logged yet today"))
					}
					for _, entry := range entries {
						fmt.Fprintf(w, "%s %s\n", format.NoteID(entry.NoteID), format.Preview(entry.Content, 70))
					}
					fmt.Fprintf(w, "\nTotal: %.0f cal, %.0fg protein\n", total.Calories, total.Protein)
					return nil
				},
			},
			{
				Name:  "history",
				Usage: "Chart daily totals",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Aliases: []string{"d"}, Value: 7, Usage: "Days to chart"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := setup(ctx, cmd)
					if err != nil {
						return err
					}
					totals, err := e.tracker.History(ctx, int(cmd.Int("days")))
					if err != nil {
						return err
					}
					fmt.Fprint(out(cmd), nutrition.Chart(totals))
					return nil
				},
			},
		},
	}
}

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Usage:     "Export the note graph as JSON",
		ArgsUsage: "[root-id]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "depth", Aliases: []string{"d"}, Value: 1, Usage: "Link hops from the root note"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			root := cmd.Args().First()
			depth := int(cmd.Int("depth"))

			if path := cmd.String("output"); path != "" {
				if err := graph.WriteFile(ctx, e.store, root, depth, path); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "%s %s\n", format.Success("Wrote graph to"), path)
				return nil
			}

			g, err := graph.Build(ctx, e.store, root, depth)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(g, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), string(data))
			return nil
		},
	}
}

func llmCmd() *cli.Command {
	return &cli.Command{
		Name:      "llm",
		Usage:     "Run a model action on a note",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "action",
				Aliases: []string{"a"},
				Value:   "summarize",
				Usage:   "summarize, expand, tags, concepts, questions, critique or connect",
			},
			&cli.IntFlag{Name: "count", Aliases: []string{"c"}, Usage: "How many tags or candidate notes to consider"},
			&cli.BoolFlag{Name: "show-source", Aliases: []string{"s"}, Usage: "Print the source note first"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("exactly one note ID is required")
			}
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			if e.helper == nil {
				return fmt.Errorf("no model API key configured; set CLAUDE_API_KEY")
			}

			id := cmd.Args().First()
			count := int(cmd.Int("count"))
			w := out(cmd)

			if cmd.Bool("show-source") {
				note, tags, err := e.svc.NoteWithTags(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\n", format.Note(note, tags))
			}

			switch action := cmd.String("action"); action {
			case "summarize":
				text, err := e.helper.Summarize(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, text)
			case "expand":
				text, err := e.helper.Expand(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, text)
			case "tags":
				tags, err := e.helper.SuggestTags(ctx, id, count)
				if err != nil {
					return err
				}
				for _, t := range tags {
					fmt.Fprintf(w, "%s\n", format.Tag(t))
				}
			case "concepts":
				created, err := e.helper.ExtractConcepts(ctx, id)
				if err != nil {
					return err
				}
				printCreatedNotes(w, "Extracted concepts", created)
			case "questions":
				created, err := e.helper.GenerateQuestions(ctx, id)
				if err != nil {
					return err
				}
				printCreatedNotes(w, "Generated questions", created)
			case "critique":
				critique, err := e.helper.CritiqueNote(ctx, id)
				if err != nil {
					return err
				}
				printCritiqueSection(w, "Strengths", critique.Strengths)
				printCritiqueSection(w, "Areas for improvement", critique.Weaknesses)
				printCritiqueSection(w, "Suggestions", critique.Suggestions)
			case "connect":
				conns, err := e.helper.FindConnections(ctx, id, count)
				if err != nil {
					return err
				}
				if len(conns) == 0 {
					fmt.Fprintln(w, format.Warning("no connections found"))
					return nil
				}
				for _, c := range conns {
					fmt.Fprintf(w, "%s %s\n", format.NoteID(c.NoteID), c.Reason)
				}
			default:
				return fmt.Errorf("unknown action %q", action)
			}
			return nil
		},
	}
}

func printCreatedNotes(w io.Writer, title string, created []models.Note) {
	if len(created) == 0 {
		fmt.Fprintln(w, format.Warning("nothing extracted"))
		return
	}
	fmt.Fprintf(w, "%s\n\n", format.Header(title))
	for _, n := range created {
		fmt.Fprintf(w, "%s %s\n", format.NoteID(n.ID), format.Preview(n.Content, 70))
	}
}

func printCritiqueSection(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s\n", format.Header(title))
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
	fmt.Fprintln(w)
}

func workflowCmd() *cli.Command {
	return &cli.Command{
		Name:  "workflow",
		Usage: "Show the suggested daily workflow",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Fprint(out(cmd), workflowText)
			return nil
		},
	}
}

const workflowText = `Suggested daily workflow

Morning
  zettl rules              one rule to keep in mind
  zettl todos              review what is open

During the day
  zettl task <content>     capture tasks as they come up
  zettl idea <content>     capture ideas without breaking flow
  zettl new <content>      everything else

Evening
  zettl done <id>          close finished tasks
  zettl list               skim what the day produced
  zettl llm <id> -a connect   let the model surface related notes
`
