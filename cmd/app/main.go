package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/rolodex/internal"
	pkgconfig "github.com/starford/rolodex/pkg/config"
)

var version = "dev"

// loadConfig reads the config file named by --config, falling back to
// defaults when it does not exist, and applies --capacity on top.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("capacity") {
		cfg.Directory.Capacity = int(cmd.Int("capacity"))
	}
	if cmd.IsSet("seed") {
		cfg.Directory.SeedFile = cmd.String("seed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func withConfig(run func(context.Context, ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
		}
		if err := run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "rolodex",
		Usage:   "In-memory address book with an interactive menu, HTTP API, and MCP tools",
		Version: version,
		Action:  withConfig(internal.RunMenu),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.IntFlag{
				Name:    "capacity",
				Usage:   "Maximum number of contacts (overrides directory.capacity)",
				Sources: cli.EnvVars("ROLODEX_CAPACITY"),
			},
			&cli.StringFlag{
				Name:    "seed",
				Usage:   "YAML file of contacts loaded at startup (overrides directory.seed_file)",
				Sources: cli.EnvVars("ROLODEX_SEED_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "menu",
				Usage:  "Run the interactive address book menu (default)",
				Action: withConfig(internal.RunMenu),
			},
			{
				Name:   "serve",
				Usage:  "Serve the address book over HTTP with an SSE change stream",
				Action: withConfig(internal.Serve),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the address book as MCP tools over stdio",
				Action: withConfig(internal.ServeMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
