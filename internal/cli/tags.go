package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gregdefoy/zettl/internal/format"
)

func tagsCmd() *cli.Command {
	return &cli.Command{
		Name:      "tags",
		Usage:     "Show a note's tags, add tags, or list all tags",
		ArgsUsage: "[id [tag ...]]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			w := out(cmd)

			if cmd.Args().Len() == 0 {
				counts, err := e.store.GetAllTagsWithCounts(ctx)
				if err != nil {
					return err
				}
				if len(counts) == 0 {
					fmt.Fprintln(w, format.Warning("no tags yet"))
					return nil
				}
				fmt.Fprintf(w, "%s\n\n", format.Header("All tags"))
				for _, c := range counts {
					fmt.Fprintf(w, "%s (%d)\n", format.Tag(c.Tag), c.Count)
				}
				return nil
			}

			id := cmd.Args().First()
			if cmd.Args().Len() > 1 {
				for _, tag := range cmd.Args().Slice()[1:] {
					if err := e.store.AddTag(ctx, id, tag); err != nil {
						return err
					}
				}
			}
			tags, err := e.store.GetTags(ctx, id)
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				fmt.Fprintf(w, "%s has no tags\n", format.NoteID(id))
				return nil
			}
			fmt.Fprintf(w, "%s ", format.NoteID(id))
			for _, t := range tags {
				fmt.Fprintf(w, "%s ", format.Tag(t))
			}
			fmt.Fprintln(w)
			return nil
		},
	}
}

func untagCmd() *cli.Command {
	return &cli.Command{
		Name:      "untag",
		Usage:     "Remove a tag from a note",
		ArgsUsage: "<id> <tag>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("a note ID and a tag are required")
			}
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			id, tag := cmd.Args().Get(0), cmd.Args().Get(1)
			if err := e.store.DeleteTag(ctx, id, tag); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s removed %s from %s\n",
				format.Success("Untagged:"), format.Tag(tag), format.NoteID(id))
			return nil
		},
	}
}

func linkCmd() *cli.Command {
	return &cli.Command{
		Name:      "link",
		Usage:     "Link one note to another",
		ArgsUsage: "<source-id> <target-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "context", Aliases: []string{"c"}, Usage: "Why the notes are linked"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("a source and a target note ID are required")
			}
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			src, tgt := cmd.Args().Get(0), cmd.Args().Get(1)
			if err := e.store.CreateLink(ctx, src, tgt, cmd.String("context")); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s %s -> %s\n",
				format.Success("Linked"), format.NoteID(src), format.NoteID(tgt))
			return nil
		},
	}
}

func unlinkCmd() *cli.Command {
	return &cli.Command{
		Name:      "unlink",
		Usage:     "Remove a link between two notes",
		ArgsUsage: "<source-id> <target-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("a source and a target note ID are required")
			}
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			src, tgt := cmd.Args().Get(0), cmd.Args().Get(1)
			if err := e.store.DeleteLink(ctx, src, tgt); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s %s -> %s\n",
				format.Success("Unlinked"), format.NoteID(src), format.NoteID(tgt))
			return nil
		},
	}
}

func relatedCmd() *cli.Command {
	return &cli.Command{
		Name:      "related",
		Usage:     "List notes linked to a note, in either direction",
		ArgsUsage: "<id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("exactly one note ID is required")
			}
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			related, err := e.store.GetRelatedNotes(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			w := out(cmd)
			if len(related) == 0 {
				fmt.Fprintln(w, format.Warning("no related notes"))
				return nil
			}
			fmt.Fprintf(w, "%s\n\n", format.Header(fmt.Sprintf("Related notes (%d)", len(related))))
			for _, n := range related {
				fmt.Fprintf(w, "%s\n", format.NoteSummary(n, 80))
			}
			return nil
		},
	}
}
