package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/advscorer/pkg/config"
	"github.com/urfave/cli/v3"
)

var (
	saveFlag = &cli.BoolFlag{
		Name:  "save",
		Usage: "Write the effective params back to the config file",
	}

	configCmd = &cli.Command{
		Name:   "config",
		Usage:  "Print the effective configuration (config file merged with param flags)",
		Action: cmdConfig,
		Flags: append([]cli.Flag{
			saveFlag,
			workersFlag,
		}, paramFlags...),
	}
)

func cmdConfig(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)

	c := *cfg.Config
	c.Params = getParams(cmd)
	c.Workers = getWorkers(cmd)

	if cmd.Bool(saveFlag.Name) {
		if err := config.Save(cfg.Dir, &c); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		slog.Info("config saved", "path", config.Path(cfg.Dir))
	}

	return encode(cmd, &c)
}
