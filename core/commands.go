package orchestration

import (
	"github.com/koscakluka/ema-assistant/core/commands"
	"github.com/koscakluka/ema-assistant/core/events"
	"go.opentelemetry.io/otel/attribute"
)

func (o *Orchestrator) runCommand(text string, queue bool) bool {
	match := o.commandMatcher.FindCommand(text)
	if match == nil {
		o.pendingCommand = nil
		return false
	}
	o.pendingCommand = match

	if !queue {
		o.executePendingCommand(match)
		return true
	}

	s := o.session
	if s == nil || s.detached.Load() {
		logger.Warn("no active session to queue command behind, dropping it", "command", match.Command.Name)
		o.pendingCommand = nil
		return true
	}

	s.onEnded(func() {
		if o.pendingCommand != match {
			logger.Debug("queued command superseded", "command", match.Command.Name)
			return
		}
		o.executePendingCommand(match)
	})
	o.forceStop()
	return true
}

func (o *Orchestrator) executePendingCommand(match *commands.Match) {
	o.pendingCommand = nil

	ctx, span := tracer.Start(o.baseContext, "execute command")
	defer span.End()
	span.SetAttributes(attribute.String("command.name", match.Command.Name))

	if !commands.RunContext(ctx, match) {
		logger.Info("command did not succeed", "command", match.Command.Name)
		return
	}

	o.emit(events.NewReady())
}
