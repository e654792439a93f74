package orchestration

import (
	"fmt"
	"slices"

	"github.com/koscakluka/ema-assistant/core/assistant"
	"github.com/koscakluka/ema-assistant/core/events"
	"github.com/koscakluka/ema-assistant/core/transcript"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// addMessage commits a transcript entry. Only incoming entries that are not
// follow-ups go through the text normalizer.
func (o *Orchestrator) addMessage(text string, direction transcript.Direction, followup bool) transcript.Entry {
	o.pendingCommand = nil

	entry := transcript.NewEntry(text, direction, followup)
	if direction == transcript.Incoming && !followup {
		entry = o.textNormalizer.Normalize(entry)
	}

	ctx, span := tracer.Start(o.baseContext, "add transcript entry")
	defer span.End()
	span.SetAttributes(
		attribute.String("transcript.direction", string(direction)),
		attribute.Bool("transcript.followup", followup),
	)

	if err := o.transcriptStore.Append(ctx, entry); err != nil {
		err = fmt.Errorf("failed to append transcript entry: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("failed to store transcript entry", "error", err)
	}

	o.emit(events.NewTranscriptEntryAdded(entry))
	return entry
}

func (o *Orchestrator) setSpeechBuffer(results assistant.SpeechResults) {
	o.speechBuffer = slices.Clone(results)
	o.emit(events.NewSpeechBufferUpdated(slices.Clone(results)))
}

func (o *Orchestrator) routeSpeechResults(s *session, results assistant.SpeechResults) {
	if o.ask != nil && o.ask.awaitsAnswerFrom(s) {
		o.onAskAnswerResults(o.ask, results)
		return
	}

	o.onSpeechResults(results)
}

func (o *Orchestrator) onSpeechResults(results assistant.SpeechResults) {
	if len(results) == 0 {
		return
	}

	if result, ok := results.Final(); ok {
		o.addMessage(result.Transcript, transcript.Outgoing, false)
		o.setSpeechBuffer(nil)
		o.runCommand(result.Transcript, true)
		if err := o.audioInput.Disable(); err != nil {
			logger.Warn("failed to disable microphone", "error", err)
		}
		o.emit(events.NewWaiting())
	} else {
		o.setSpeechBuffer(results)
	}

	o.emit(events.NewNewText(slices.Clone(results)))
}
