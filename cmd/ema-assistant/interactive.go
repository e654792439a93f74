package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-assistant/core"
	"github.com/koscakluka/ema-assistant/core/events"
	"github.com/urfave/cli/v3"
)

func runInteractive(ctx context.Context, cmd *cli.Command) (err error) {
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, s.close(ctx)) }()

	history, err := s.store.Entries(ctx)
	if err != nil {
		return fmt.Errorf("failed to load transcript: %w", err)
	}

	program := tea.NewProgram(newUIModel(s.orchestrator, history), tea.WithAltScreen(), tea.WithContext(ctx))

	s.orchestrator.Orchestrate(ctx,
		orchestration.WithEventCallback(func(event events.Event) {
			program.Send(eventMsg{event: event})
		}),
	)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}
