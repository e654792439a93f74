package commands

import (
	"context"
	"errors"
	"regexp"
	"testing"
)

func noop(context.Context, Match) error { return nil }

func TestFindCommandMatchesNormalizedPhrase(t *testing.T) {
	lights := &Command{Name: "lights off", Phrases: []string{"turn off lights", "lights off"}, Action: noop}
	registry, err := NewRegistry(lights)
	if err != nil {
		t.Fatalf("unexpected registry error: %v", err)
	}

	for _, input := range []string{"turn off lights", "Turn off  lights.", "LIGHTS OFF!"} {
		match := registry.FindCommand(input)
		if match == nil {
			t.Fatalf("expected %q to match", input)
		}
		if match.Command != lights {
			t.Fatalf("expected lights command for %q, got %q", input, match.Command.Name)
		}
		if match.Input != input {
			t.Fatalf("expected match to keep raw input %q, got %q", input, match.Input)
		}
	}
}

func TestFindCommandReturnsNilWithoutMatch(t *testing.T) {
	registry, _ := NewRegistry(&Command{Name: "lights off", Phrases: []string{"turn off lights"}, Action: noop})

	for _, input := range []string{"what is the weather", "", "   ", "turn off lights please"} {
		if match := registry.FindCommand(input); match != nil {
			t.Fatalf("expected no match for %q, got %q", input, match.Command.Name)
		}
	}
}

func TestFindCommandExtractsPatternArgs(t *testing.T) {
	registry, _ := NewRegistry(&Command{
		Name:    "volume",
		Pattern: regexp.MustCompile(`^set volume to (?P<level>\d+)$`),
		Action:  noop,
	})

	match := registry.FindCommand("Set volume to 40.")
	if match == nil {
		t.Fatalf("expected pattern to match")
	}
	if got := match.Args["level"]; got != "40" {
		t.Fatalf("expected level arg 40, got %q", got)
	}
}

func TestPhrasesWinOverPatterns(t *testing.T) {
	pattern := &Command{Name: "generic", Pattern: regexp.MustCompile(`^mini mode`), Action: noop}
	exact := &Command{Name: "exact", Phrases: []string{"mini mode off"}, Action: noop}
	registry, _ := NewRegistry(pattern, exact)

	if match := registry.FindCommand("mini mode off"); match == nil || match.Command != exact {
		t.Fatalf("expected exact phrase to win")
	}
}

func TestRegisterRejectsInvalidAndDuplicateCommands(t *testing.T) {
	registry, _ := NewRegistry()

	if err := registry.Register(&Command{Name: "no action", Phrases: []string{"x"}}); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected invalid command error, got %v", err)
	}
	if err := registry.Register(&Command{Name: "no trigger", Action: noop}); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected invalid command error, got %v", err)
	}

	if err := registry.Register(&Command{Name: "stop", Phrases: []string{"stop"}, Action: noop}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.Register(&Command{Name: "stop", Phrases: []string{"halt"}, Action: noop}); !errors.Is(err, ErrDuplicateCommand) {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
	if err := registry.Register(&Command{Name: "halt", Phrases: []string{"Stop!"}, Action: noop}); !errors.Is(err, ErrDuplicateCommand) {
		t.Fatalf("expected duplicate phrase error, got %v", err)
	}
}

func TestRunReportsActionOutcome(t *testing.T) {
	calls := 0
	succeeding := &Match{Command: &Command{Name: "ok", Action: func(context.Context, Match) error {
		calls++
		return nil
	}}}
	failing := &Match{Command: &Command{Name: "fail", Action: func(context.Context, Match) error {
		return errors.New("device unreachable")
	}}}
	panicking := &Match{Command: &Command{Name: "panic", Action: func(context.Context, Match) error {
		panic("boom")
	}}}

	if !Run(succeeding) || calls != 1 {
		t.Fatalf("expected successful run to report true once, calls=%d", calls)
	}
	if Run(failing) {
		t.Fatalf("expected failing run to report false")
	}
	if Run(panicking) {
		t.Fatalf("expected panicking run to report false")
	}
	if Run(nil) {
		t.Fatalf("expected nil match to report false")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Don't   STOP-now!? "); got != "don t stop now" {
		t.Fatalf("unexpected normalization %q", got)
	}
}
