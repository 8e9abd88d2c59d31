package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/opensource-wellbeing/pulse/internal/advice"
	"github.com/opensource-wellbeing/pulse/internal/assess"
	"github.com/opensource-wellbeing/pulse/internal/domain"
	"github.com/opensource-wellbeing/pulse/internal/logging"
)

var scoreCmd = &cli.Command{
	Name:      "score",
	Usage:     "Score one questionnaire read from stdin and print the assessment JSON",
	ArgsUsage: "[model-path]",
	Action:    runScore,
}

func runScore(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// stdout carries only the result.
	slog.SetDefault(slog.New(logging.NewCLIHandler(os.Stderr, logging.ParseLevel(cfg.Logging.Level), false)))

	if arg := cmd.Args().First(); arg != "" {
		cfg.Model.Path = arg
	}

	engine, err := advice.NewEngine(cfg.Suggestions)
	if err != nil {
		return fmt.Errorf("failed to compile suggestion rules: %w", err)
	}

	return score(os.Stdin, os.Stdout, func() *assess.Processor {
		return assess.NewProcessor(loadModel(cfg.Model.Path), engine, cfg.Model.TargetClass)
	})
}

// score reads one payload from in and writes the response to out. Missing
// input and a missing model are reported as JSON; malformed JSON is an error.
func score(in io.Reader, out io.Writer, newProcessor func() *assess.Processor) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	var resp *domain.Response
	if len(bytes.TrimSpace(data)) == 0 {
		resp = domain.ErrorResponse(domain.ErrMsgNoInput)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var payload domain.RawPayload
		if err := dec.Decode(&payload); err != nil {
			return fmt.Errorf("invalid JSON input: %w", err)
		}
		resp = newProcessor().Assess(payload)
	}

	return json.NewEncoder(out).Encode(resp)
}
