package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/advscorer/pkg/config"
	"github.com/mchmarny/advscorer/pkg/data"
	"github.com/mchmarny/advscorer/pkg/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "advscorer"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	configDirFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Directory holding config.yaml and the batch database (default: ~/.advscorer)",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(config.DefaultLogLevel)

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Dir    string
	Debug  bool
	Format string
	Config *config.Config
	DB     *sql.DB
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
		Usage:                 "Batch score transformation with advertising boost",
		Metadata:              map[string]any{},
		Flags: []cli.Flag{
			debugFlag,
			configDirFlag,
			formatFlag,
		},
		Commands: []*cli.Command{
			transformCmd,
			benchCmd,
			importCmd,
			applyCmd,
			batchesCmd,
			runsCmd,
			serverCmd,
			configCmd,
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			dir := cmd.String(configDirFlag.Name)
			if dir == "" {
				home, _, err := config.GetOrCreateHomeDir(appName)
				if err != nil {
					return ctx, fmt.Errorf("resolving home dir: %w", err)
				}
				dir = home
			}

			c, err := config.ReadOrCreate(dir)
			if err != nil {
				return ctx, fmt.Errorf("reading config: %w", err)
			}

			debug := cmd.Bool(debugFlag.Name)
			if debug {
				initLogging("debug")
			} else {
				initLogging(c.LogLevel)
			}

			format := formatJSON
			if f := strings.ToLower(cmd.String(formatFlag.Name)); f == formatYAML || f == "yml" {
				format = formatYAML
			}

			cmd.Root().Metadata[appConfigKey] = &appConfig{
				Dir:    dir,
				Debug:  debug,
				Format: format,
				Config: c,
			}
			return ctx, nil
		},
		After: func(_ context.Context, cmd *cli.Command) error {
			if cfg, ok := cmd.Root().Metadata[appConfigKey].(*appConfig); ok && cfg.DB != nil {
				return cfg.DB.Close()
			}
			return nil
		},
	}
}

func initLogging(level string) {
	logging.SetDefaultCLILogger(level)
}

// getDB opens the batch database on first use.
func getDB(cmd *cli.Command) (*sql.DB, error) {
	cfg := getConfig(cmd)
	if cfg.DB != nil {
		return cfg.DB, nil
	}

	dbPath := filepath.Join(cfg.Dir, data.DataFileName)
	if err := data.Init(dbPath); err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	db, err := data.GetDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	cfg.DB = db
	return db, nil
}

func encode(cmd *cli.Command, v any) error {
	return encodeTo(cmd.Root().Writer, getConfig(cmd).Format, v)
}

func encodeTo(w io.Writer, format string, v any) error {
	if format == formatYAML {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
