package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mchmarny/healthscore/pkg/config"
	"github.com/mchmarny/healthscore/pkg/data"
	"github.com/mchmarny/healthscore/pkg/doc"
	"github.com/mchmarny/healthscore/pkg/logging"
	"github.com/urfave/cli/v3"
)

const (
	appName      = "healthscore"
	appConfigKey = "app-config"
	homeEnvVar   = "HEALTHSCORE_HOME"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level [debug, info, warn, error] (overrides config)",
	}

	homeFlag = &cli.StringFlag{
		Name:    "home",
		Usage:   "Directory holding config and data (default: $HOME/.healthscore)",
		Sources: cli.EnvVars(homeEnvVar),
	}

	dbFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "Sqlite file path or postgres:// DSN (overrides config)",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: string(doc.FormatJSON),
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Dir    string
	Config *config.Config
	Format doc.Format
	Out    io.Writer

	store *data.Store
}

// Store opens the result store on first use.
func (a *appConfig) Store(ctx context.Context) (*data.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := data.Init(ctx, a.Config.DB)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	a.store = s
	return s, nil
}

func (a *appConfig) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Debug("error closing database", "error", err)
		}
		a.store = nil
	}
}

func getConfig(cmd *cli.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Evaluate project health scores from KPI hierarchies",
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			debugFlag,
			logLevelFlag,
			homeFlag,
			dbFlag,
			formatFlag,
		},
		Commands: []*cli.Command{
			evalCmd,
			validateCmd,
			collectCmd,
			historyCmd,
			showCmd,
			resetCmd,
			authCmd,
			serverCmd,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			dir := cmd.String(homeFlag.Name)
			if dir == "" {
				d, _, err := config.GetOrCreateHomeDir(appName)
				if err != nil {
					return ctx, fmt.Errorf("resolving home dir: %w", err)
				}
				dir = d
			}

			c, err := config.ReadOrCreate(dir)
			if err != nil {
				return ctx, fmt.Errorf("reading config: %w", err)
			}

			level := c.LogLevel
			if cmd.IsSet(logLevelFlag.Name) {
				level = cmd.String(logLevelFlag.Name)
			}
			if cmd.Bool(debugFlag.Name) {
				level = "debug"
			}
			logging.SetDefaultCLILogger(level)

			if cmd.IsSet(dbFlag.Name) {
				c.DB = cmd.String(dbFlag.Name)
			}

			cmd.Metadata[appConfigKey] = &appConfig{
				Dir:    dir,
				Config: c,
				Format: doc.ParseFormat(cmd.String(formatFlag.Name)),
				Out:    cmd.Root().Writer,
			}
			return ctx, nil
		},
		After: func(_ context.Context, cmd *cli.Command) error {
			if cfg, ok := cmd.Metadata[appConfigKey].(*appConfig); ok {
				cfg.close()
			}
			return nil
		},
	}
}

func encode(cmd *cli.Command, v any) error {
	cfg := getConfig(cmd)
	w := cfg.Out
	if w == nil {
		w = os.Stdout
	}
	if err := doc.Encode(w, v, cfg.Format); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

var errMissingArg = errors.New("missing required argument")
