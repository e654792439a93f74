package main

import (
	"context"
	"regexp"
	"time"

	"github.com/koscakluka/ema-assistant/core/commands"
)

// controller is the part of the orchestrator built-in commands drive. Command
// actions run on the orchestrator's event loop, so only asynchronous methods
// may be used here.
type controller interface {
	Assist(query string)
	Say(sentence string, delay time.Duration, silent bool)
	ForceStop()
	SetMiniMode(enabled bool)
}

func builtinCommands(c controller) []*commands.Command {
	return []*commands.Command{
		{
			Name:    "mini-mode-on",
			Phrases: []string{"mini mode", "mini mode on", "enable mini mode", "go small"},
			Action: func(context.Context, commands.Match) error {
				c.SetMiniMode(true)
				return nil
			},
		},
		{
			Name:    "mini-mode-off",
			Phrases: []string{"mini mode off", "disable mini mode", "full screen", "go big"},
			Action: func(context.Context, commands.Match) error {
				c.SetMiniMode(false)
				return nil
			},
		},
		{
			Name:    "stop",
			Phrases: []string{"stop", "be quiet", "never mind", "cancel"},
			Action: func(context.Context, commands.Match) error {
				c.ForceStop()
				return nil
			},
		},
		{
			Name:    "listen",
			Phrases: []string{"listen", "start listening", "hey ema"},
			Action: func(context.Context, commands.Match) error {
				c.Assist("")
				return nil
			},
		},
		{
			Name:    "repeat",
			Pattern: regexp.MustCompile(`^(say|repeat after me) (?P<text>.+)$`),
			Action: func(_ context.Context, match commands.Match) error {
				c.Say(match.Args["text"], 0, false)
				return nil
			},
		},
	}
}
