// Pulse - Explainable wellbeing risk scoring for student questionnaires.
// Copyright (c) 2025 opensource.wellbeing
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/opensource-wellbeing/pulse/internal/config"
	"github.com/opensource-wellbeing/pulse/internal/domain"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to a YAML config file",
		Sources: cli.EnvVars(config.EnvConfig),
	}

	modelFlag = &cli.StringFlag{
		Name:    "model",
		Aliases: []string{"m"},
		Usage:   "Path to the JSON model artifact",
		Sources: cli.EnvVars(config.EnvModelPath),
	}

	debugFlag = &cli.BoolFlag{
		Name:    "debug",
		Usage:   "Enable debug logging",
		Sources: cli.EnvVars(config.EnvDebug),
	}
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:           "pulse",
		Usage:          "Explainable wellbeing risk scoring",
		Version:        fmt.Sprintf("%s (%s - %s)", Version, Commit, BuildDate),
		DefaultCommand: serveCmd.Name,
		Flags: []cli.Flag{
			configFlag,
			modelFlag,
			debugFlag,
		},
		Commands: []*cli.Command{
			serveCmd,
			scoreCmd,
		},
	}
}

// loadConfig merges the config file and environment with command-line flags.
func loadConfig(cmd *cli.Command) (*domain.Config, error) {
	cfg, err := config.Load(cmd.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet(modelFlag.Name) {
		cfg.Model.Path = cmd.String(modelFlag.Name)
	}
	if cmd.Bool(debugFlag.Name) {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}
