// Package commands intercepts user input that should be handled locally
// instead of by the remote assistant.
package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const scopeName = "github.com/koscakluka/ema-assistant/core/commands"

var tracer = otel.Tracer(scopeName)

var (
	ErrInvalidCommand   = errors.New("invalid command")
	ErrDuplicateCommand = errors.New("duplicate command")
)

// Action executes a matched command. Returning an error marks the execution
// as failed.
type Action func(ctx context.Context, match Match) error

// Command is a locally executed intent. Phrases match the whole normalized
// input, Pattern is matched against the normalized input and its named
// groups become the match arguments.
type Command struct {
	Name    string
	Phrases []string
	Pattern *regexp.Regexp
	Action  Action
}

// Match is a command bound to the input that selected it.
type Match struct {
	Command *Command
	Input   string
	Args    map[string]string
}

type Registry struct {
	commands []*Command
	phrases  map[string]*Command
	mu       sync.RWMutex
}

func NewRegistry(commands ...*Command) (*Registry, error) {
	registry := &Registry{phrases: map[string]*Command{}}
	for _, command := range commands {
		if err := registry.Register(command); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (r *Registry) Register(command *Command) error {
	if command == nil || command.Name == "" || command.Action == nil {
		return fmt.Errorf("%w: name and action are required", ErrInvalidCommand)
	}
	if len(command.Phrases) == 0 && command.Pattern == nil {
		return fmt.Errorf("%w: %q has neither phrases nor a pattern", ErrInvalidCommand, command.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.commands {
		if existing.Name == command.Name {
			return fmt.Errorf("%w: %q", ErrDuplicateCommand, command.Name)
		}
	}

	normalized := make([]string, 0, len(command.Phrases))
	for _, phrase := range command.Phrases {
		phrase = Normalize(phrase)
		if owner, ok := r.phrases[phrase]; ok {
			return fmt.Errorf("%w: phrase %q already registered by %q", ErrDuplicateCommand, phrase, owner.Name)
		}
		normalized = append(normalized, phrase)
	}

	for _, phrase := range normalized {
		r.phrases[phrase] = command
	}
	r.commands = append(r.commands, command)
	return nil
}

// FindCommand returns the command matching text, or nil. Exact phrases win
// over patterns, patterns are tried in registration order.
func (r *Registry) FindCommand(text string) *Match {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if command, ok := r.phrases[normalized]; ok {
		return &Match{Command: command, Input: text}
	}

	for _, command := range r.commands {
		if command.Pattern == nil {
			continue
		}

		submatches := command.Pattern.FindStringSubmatch(normalized)
		if submatches == nil {
			continue
		}

		args := map[string]string{}
		for i, name := range command.Pattern.SubexpNames() {
			if name != "" && i < len(submatches) {
				args[name] = submatches[i]
			}
		}
		return &Match{Command: command, Input: text, Args: args}
	}

	return nil
}

// Run executes a match and reports whether it succeeded. A panicking action
// counts as a failure.
func Run(match *Match) (ok bool) {
	return RunContext(context.Background(), match)
}

func RunContext(ctx context.Context, match *Match) (ok bool) {
	if match == nil || match.Command == nil || match.Command.Action == nil {
		return false
	}

	ctx, span := tracer.Start(ctx, "run command")
	defer span.End()
	span.SetAttributes(attribute.String("command.name", match.Command.Name))

	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("command %q panicked: %v", match.Command.Name, recovered)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			ok = false
		}
	}()

	if err := match.Command.Action(ctx, *match); err != nil {
		err = fmt.Errorf("command %q failed: %w", match.Command.Name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false
	}

	return true
}

// Normalize lowercases text, drops punctuation and collapses whitespace so
// recognized speech and typed input compare equal.
func Normalize(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r), r == '-', r == '\'':
			return ' '
		}
		return -1
	}, text)
	return strings.Join(strings.Fields(cleaned), " ")
}
