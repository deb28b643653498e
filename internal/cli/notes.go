package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/gregdefoy/zettl/internal/format"
	"github.com/gregdefoy/zettl/internal/models"
	"github.com/gregdefoy/zettl/internal/store"
)

func tagFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "tag",
		Aliases: []string{"t"},
		Usage:   "Tag to attach (repeatable)",
	}
}

func createAction(presetTags ...string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() == 0 {
			return fmt.Errorf("note content is required")
		}
		e, err := setup(ctx, cmd)
		if err != nil {
			return err
		}

		content := strings.Join(cmd.Args().Slice(), " ")
		tags := append(presetTags, cmd.StringSlice("tag")...)
		id, err := e.svc.CreateNote(ctx, content, tags...)
		if err != nil {
			return err
		}

		fmt.Fprintf(out(cmd), "%s %s\n", format.Success("Created note"), format.NoteID(id))
		return nil
	}
}

func newCmd() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Aliases:   []string{"add"},
		Usage:     "Create a note",
		ArgsUsage: "<content>",
		Flags:     []cli.Flag{tagFlag()},
		Action:    createAction(),
	}
}

func taskCmd() *cli.Command {
	return &cli.Command{
		Name:      "task",
		Aliases:   []string{"t"},
		Usage:     "Create a note tagged todo",
		ArgsUsage: "<content>",
		Flags:     []cli.Flag{tagFlag()},
		Action:    createAction("todo"),
	}
}

func ideaCmd() *cli.Command {
	return &cli.Command{
		Name:      "idea",
		Aliases:   []string{"i"},
		Usage:     "Create a note tagged idea",
		ArgsUsage: "<content>",
		Flags:     []cli.Flag{tagFlag()},
		Action:    createAction("idea"),
	}
}

func noteCmd() *cli.Command {
	return &cli.Command{
		Name:      "note",
		Aliases:   []string{"n"},
		Usage:     "Create a plain note",
		ArgsUsage: "<content>",
		Flags:     []cli.Flag{tagFlag()},
		Action:    createAction(),
	}
}

func projectCmd() *cli.Command {
	return &cli.Command{
		Name:      "project",
		Aliases:   []string{"p"},
		Usage:     "Create a note tagged project",
		ArgsUsage: "<content>",
		Flags:     []cli.Flag{tagFlag()},
		Action:    createAction("project"),
	}
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recent notes",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 10, Usage: "Number of notes"},
			&cli.BoolFlag{Name: "full", Aliases: []string{"f"}, Usage: "Show full notes with their tags"},
			&cli.BoolFlag{Name: "compact", Aliases: []string{"c"}, Usage: "One line per note"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			list, err := e.store.ListNotes(ctx, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			w := out(cmd)
			if len(list) == 0 {
				fmt.Fprintln(w, format.Warning("no notes yet"))
				return nil
			}
			fmt.Fprintf(w, "%s\n\n", format.Header(fmt.Sprintf("Recent notes (%d)", len(list))))
			for _, n := range list {
				switch {
				case cmd.Bool("full"):
					tags, err := e.store.GetTags(ctx, n.ID)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%s\n", format.Note(n, tags))
				case cmd.Bool("compact"):
					fmt.Fprintf(w, "%s %s\n", format.NoteID(n.ID), format.Preview(n.Content, 50))
				default:
					fmt.Fprintf(w, "%s\n", format.NoteSummary(n, 80))
				}
			}
			return nil
		},
	}
}

func showCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one note with its tags",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("exactly one note ID is required")
			}
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			note, tags, err := e.svc.NoteWithTags(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			fmt.Fprint(out(cmd), format.Note(note, tags))
			return nil
		},
	}
}

func searchCmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search notes by content, tag or creation date",
		ArgsUsage: "[query]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Find notes carrying this tag"},
			&cli.StringFlag{Name: "exclude-tag", Usage: "Drop notes carrying this tag"},
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Find notes created on YYYY-MM-DD"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}

			var list []models.Note
			switch {
			case cmd.String("tag") != "":
				list, err = e.store.GetNotesByTag(ctx, cmd.String("tag"))
			case cmd.String("date") != "":
				list, err = e.store.SearchNotesByDate(ctx, cmd.String("date"))
			case cmd.Args().Len() > 0:
				list, err = e.store.SearchNotes(ctx, strings.Join(cmd.Args().Slice(), " "))
			default:
				return fmt.Errorf("give a query, --tag or --date")
			}
			if err != nil {
				return err
			}

			if exclude := store.NormalizeTag(cmd.String("exclude-tag")); exclude != "" {
				list, err = withoutTagged(ctx, e.store, list, exclude)
				if err != nil {
					return err
				}
			}

			w := out(cmd)
			if len(list) == 0 {
				fmt.Fprintln(w, format.Warning("no matches"))
				return nil
			}
			fmt.Fprintf(w, "%s\n\n", format.Header(fmt.Sprintf("Search results (%d)", len(list))))
			for _, n := range list {
				fmt.Fprintf(w, "%s\n", format.NoteSummary(n, 80))
			}
			return nil
		},
	}
}

// withoutTagged drops the notes carrying tag. The input slice may be owned
// by the store cache, so the result is always a fresh slice.
func withoutTagged(ctx context.Context, st *store.Store, list []models.Note, tag string) ([]models.Note, error) {
	kept := make([]models.Note, 0, len(list))
	for _, n := range list {
		tags, err := st.GetTags(ctx, n.ID)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(tags, tag) {
			kept = append(kept, n)
		}
	}
	return kept, nil
}

func appendCmd() *cli.Command {
	return &cli.Command{
		Name:      "append",
		Usage:     "Append text to a note",
		ArgsUsage: "<id> <text>",
		Action:    editTextAction(false),
	}
}

func prependCmd() *cli.Command {
	return &cli.Command{
		Name:      "prepend",
		Usage:     "Prepend text to a note",
		ArgsUsage: "<id> <text>",
		Action:    editTextAction(true),
	}
}

func editTextAction(prepend bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() < 2 {
			return fmt.Errorf("a note ID and text are required")
		}
		e, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		id := cmd.Args().First()
		text := strings.Join(cmd.Args().Slice()[1:], " ")
		if prepend {
			err = e.svc.PrependToNote(ctx, id, text)
		} else {
			err = e.svc.AppendToNote(ctx, id, text)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "%s %s\n", format.Success("Updated note"), format.NoteID(id))
		return nil
	}
}

func editCmd() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Edit a note in $EDITOR",
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
			note, err := e.store.GetNote(ctx, id)
			if err != nil {
				return err
			}

			edited, changed, err := editInEditor(note.Content)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(out(cmd), format.Warning("no changes"))
				return nil
			}
			if err := e.store.UpdateNote(ctx, id, edited); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s %s\n", format.Success("Updated note"), format.NoteID(id))
			return nil
		},
	}
}

// editInEditor round-trips content through the user's editor via a temp
// file. changed is false when the saved text is identical.
func editInEditor(content string) (edited string, changed bool, err error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	tmp, err := os.CreateTemp("", "zettl-*.md")
	if err != nil {
		return "", false, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return "", false, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	ed := exec.Command(editor, tmp.Name())
	ed.Stdin = os.Stdin
	ed.Stdout = os.Stdout
	ed.Stderr = os.Stderr
	if err := ed.Run(); err != nil {
		return "", false, fmt.Errorf("run %s: %w", editor, err)
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return "", false, fmt.Errorf("read temp file: %w", err)
	}
	edited = string(data)
	return edited, edited != content, nil
}

func mergeCmd() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "Merge notes into a new combined note",
		ArgsUsage: "<id> <id> [...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 2 {
				return fmt.Errorf("at least two note IDs are required")
			}
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			id, err := e.store.MergeNotes(ctx, cmd.Args().Slice())
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s %s\n", format.Success("Merged into"), format.NoteID(id))
			return nil
		},
	}
}

func deleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a note and, by default, its tags and links",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "keep-links", Aliases: []string{"k"}, Usage: "Leave tags and links in place"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("exactly one note ID is required")
			}
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			id := cmd.Args().First()
			if err := e.store.DeleteNote(ctx, id, !cmd.Bool("keep-links")); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s %s\n", format.Success("Deleted note"), format.NoteID(id))
			return nil
		},
	}
}
