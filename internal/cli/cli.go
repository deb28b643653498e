// Package cli implements the zettl command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/gregdefoy/zettl/internal"
	"github.com/gregdefoy/zettl/internal/auth"
	"github.com/gregdefoy/zettl/internal/llm"
	"github.com/gregdefoy/zettl/internal/notes"
	"github.com/gregdefoy/zettl/internal/nutrition"
	"github.com/gregdefoy/zettl/internal/store"
	pkgconfig "github.com/gregdefoy/zettl/pkg/config"
)

// New builds the root zettl command.
func New() *cli.Command {
	return &cli.Command{
		Name:  "zettl",
		Usage: "Zettelkasten note taking with tags, links, todos and model assistance",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("ZETTL_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			newCmd(), taskCmd(), ideaCmd(), noteCmd(), projectCmd(),
			listCmd(), showCmd(), searchCmd(),
			tagsCmd(), untagCmd(), linkCmd(), unlinkCmd(), relatedCmd(),
			appendCmd(), prependCmd(), editCmd(), mergeCmd(), deleteCmd(),
			todosCmd(), doneCmd(), rulesCmd(), nutritionCmd(),
			graphCmd(), llmCmd(), workflowCmd(),
			authCmd(), serveCmd(), mcpCmd(),
		},
	}
}

// env holds everything a command action needs, assembled lazily per
// invocation so config problems surface as command errors.
type env struct {
	cfg     *internal.Config
	store   *store.Store
	svc     *notes.Service
	tracker *nutrition.Tracker
	helper  *llm.Helper // nil without an API key
}

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	// No config file is fine for CLI use; defaults plus env cover it.
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if url := firstEnv("POSTGREST_URL", "ZETTL_DATA_URL"); url != "" {
		cfg.Data.APIURL = url
	}
	if url := firstEnv("AUTH_URL", "ZETTL_AUTH_URL"); url != "" {
		cfg.Auth.URL = url
	}
	if key := firstEnv("CLAUDE_API_KEY", "LLM_API_KEY"); key != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = key
	}
	return cfg, nil
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func setup(ctx context.Context, cmd *cli.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	token := cfg.Data.Token
	if token == "" && cfg.Auth.URL != "" {
		if key, err := auth.LoadAPIKey(); err == nil {
			if t, err := auth.NewClient(cfg.Auth.URL).Token(ctx, key); err == nil {
				token = t
			}
		}
	}

	st := store.New(store.NewClient(cfg.Data.APIURL, token))
	svc := notes.NewService(st)

	e := &env{
		cfg:     cfg,
		store:   st,
		svc:     svc,
		tracker: nutrition.NewTracker(st),
	}
	if cfg.LLM.APIKey != "" {
		e.helper = llm.NewHelper(llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL), svc)
	}
	return e, nil
}

func out(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
