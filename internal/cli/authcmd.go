package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gregdefoy/zettl/internal/auth"
	"github.com/gregdefoy/zettl/internal/format"
)

func authCmd() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the API key used for the data backend",
		Commands: []*cli.Command{
			{
				Name:  "setup",
				Usage: "Save an API key to ~/.zettl/config",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Required: true, Usage: "API key to save"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					key := cmd.String("key")
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					w := out(cmd)

					if cfg.Auth.URL != "" {
						identity, err := auth.NewClient(cfg.Auth.URL).ValidateKey(ctx, key)
						if err != nil {
							return fmt.Errorf("key rejected by %s: %w", cfg.Auth.URL, err)
						}
						fmt.Fprintf(w, "Key belongs to %s\n", identity.Username)
					}

					if err := auth.SaveAPIKey(key); err != nil {
						return err
					}
					fmt.Fprintln(w, format.Success("API key saved"))
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show where the API key comes from and whether it works",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					w := out(cmd)

					key, err := auth.LoadAPIKey()
					if err != nil {
						fmt.Fprintln(w, format.Warning("no API key configured"))
						fmt.Fprintf(w, "Set %s or run: zettl auth setup --key <key>\n", auth.EnvAPIKey)
						return nil
					}
					fmt.Fprintf(w, "API key configured (%d chars)\n", len(key))

					if cfg.Auth.URL == "" {
						fmt.Fprintln(w, format.Warning("no auth service configured; key not verified"))
						return nil
					}
					identity, err := auth.NewClient(cfg.Auth.URL).ValidateKey(ctx, key)
					if err != nil {
						fmt.Fprintln(w, format.Error("key rejected: "+err.Error()))
						return nil
					}
					fmt.Fprintf(w, "%s authenticated as %s\n", format.Success("OK:"), identity.Username)
					return nil
				},
			},
		},
	}
}
