package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	orchestration "github.com/koscakluka/ema-assistant/core"
	"github.com/urfave/cli/v3"
)

func newAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Speak a question, listen for the answer and print it",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for an answer",
				Value: time.Minute,
			},
		},
		Action: runAsk,
	}
}

func runAsk(ctx context.Context, cmd *cli.Command) (err error) {
	question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(ctx)) }()

	s.orchestrator.Orchestrate(ctx,
		orchestration.WithErrorCallback(func(err error) {
			logger.Warn("assistant reported an error", "error", err)
		}),
	)

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	answer, err := s.orchestrator.Ask(ctx, question)
	if err != nil {
		return fmt.Errorf("no answer: %w", err)
	}
	fmt.Println(answer)
	return nil
}
