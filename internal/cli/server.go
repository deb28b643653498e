package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/gregdefoy/zettl/internal"
	"github.com/gregdefoy/zettl/internal/mcpserver"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the zettl web and MCP server",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			return internal.Run(ctx, internal.WithConfig(cfg))
		},
	}
}

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdin/stdout",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			return mcpserver.New(e.svc).ServeStdio()
		},
	}
}
