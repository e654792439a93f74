package orchestration

import (
	"fmt"

	"github.com/koscakluka/ema-assistant/core/assistant"
	"github.com/koscakluka/ema-assistant/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// openSession replaces the active session with a new conversation. It
// returns nil when the conversation could not be started.
func (o *Orchestrator) openSession(config assistant.Config) *session {
	ctx, span := tracer.Start(o.baseContext, "open session")
	defer span.End()

	if o.session != nil {
		o.detachSession(o.session)
	}

	if o.assistant == nil {
		span.RecordError(ErrNoAssistant)
		span.SetStatus(codes.Error, ErrNoAssistant.Error())
		o.reportError(ErrNoAssistant)
		return nil
	}

	s := newSession(config)
	span.SetAttributes(
		attribute.String("session.id", s.id),
		attribute.Bool("session.live", config.IsLive()),
	)

	conversation, err := o.assistant.Start(ctx, o.conversationOptions(s)...)
	if err != nil {
		err = fmt.Errorf("failed to start conversation: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.reportError(err)
		return nil
	}

	s.conversation = conversation
	s.transition(openingEvent(config))
	o.session = s
	if s.isLive() {
		o.liveSession.Store(s)
		// A new utterance starts with an empty buffer.
		if len(o.speechBuffer) > 0 {
			o.setSpeechBuffer(nil)
		}
	}

	o.emit(events.NewSessionOpened(s.id, s.isLive()))
	return s
}

// detachSession tears a session down without waiting for it to end. Nothing
// it reports afterwards reaches the orchestrator.
func (o *Orchestrator) detachSession(s *session) {
	s.detached.Store(true)
	s.state = sessionEnded
	s.endWaiters = nil
	o.liveSession.CompareAndSwap(s, nil)
	if o.session == s {
		o.session = nil
	}

	if o.ask != nil && o.ask.session == s {
		o.settleAsk(o.ask, "", ErrSuperseded)
	}

	s.stop()
}

func (o *Orchestrator) conversationOptions(s *session) []assistant.ConversationOption {
	return []assistant.ConversationOption{
		assistant.WithTextQuery(s.config.TextQuery),
		assistant.WithUtterance(s.config.Utterance),
		assistant.WithLanguage(o.language),
		assistant.WithInputEncoding(o.audioInput.EncodingInfo()),
		assistant.WithOutputEncoding(o.audioOutput.EncodingInfo()),
		assistant.WithAudioCallback(func(chunk []byte) {
			if s.detached.Load() {
				return
			}
			o.audioOutput.SendAudio(chunk)
			if s.audioSeen.CompareAndSwap(false, true) {
				o.dispatch(s, sessionEventAudio, nil)
			}
		}),
		assistant.WithEndOfUtteranceCallback(func() {
			o.dispatch(s, sessionEventEndOfUtterance, func() {
				logger.Info("end of utterance", "session_id", s.id)
			})
		}),
		assistant.WithDeviceActionCallback(func(action assistant.DeviceAction) {
			o.dispatch(s, sessionEventDeviceAction, func() {
				logger.Info("device action", "session_id", s.id, "action", action.Name)
			})
		}),
		assistant.WithSpeechResultsCallback(func(results assistant.SpeechResults) {
			o.dispatch(s, sessionEventSpeechResults, func() { o.routeSpeechResults(s, results) })
		}),
		assistant.WithResponseCallback(func(text string) {
			o.dispatch(s, sessionEventResponse, func() { o.emit(events.NewAssistantResponse(text)) })
		}),
		assistant.WithScreenDataCallback(func(data assistant.ScreenData) {
			o.dispatch(s, sessionEventScreenData, func() { o.onScreenData(data) })
		}),
		assistant.WithErrorCallback(func(err error) {
			o.dispatch(s, sessionEventError, func() { o.reportError(err) })
		}),
		assistant.WithEndedCallback(func(report assistant.EndedReport) {
			o.dispatch(s, sessionEventEnded, func() { o.onSessionEnded(s, report) })
		}),
	}
}

// dispatch queues a session event. Events the session's current state does
// not accept, and events of detached sessions, never reach handle.
func (o *Orchestrator) dispatch(s *session, event sessionEvent, handle func()) {
	o.loop.enqueue("session "+event.String(), func() {
		if !s.transition(event) {
			return
		}
		if handle != nil {
			handle()
		}
	})
}

func (o *Orchestrator) onScreenData(data assistant.ScreenData) {
	if data.Format != assistant.ScreenDataFormatHTML {
		logger.Warn("unrecognized screen data format", "format", string(data.Format))
		return
	}

	o.emit(events.NewResponseHTML(string(data.Data)))
}

func (o *Orchestrator) onSessionEnded(s *session, report assistant.EndedReport) {
	s.detached.Store(true)
	o.liveSession.CompareAndSwap(s, nil)
	if o.session == s {
		o.session = nil
	}

	if report.ContinueConversation {
		o.followOn = true
	}

	idleMark := o.markIdle()

	for _, waiter := range s.takeEndWaiters() {
		waiter()
	}
	o.advanceAskOnSessionEnded(s, idleMark)

	o.emit(events.NewSessionEnded(s.id, report.ContinueConversation))
}

// markIdle asks the speaker to report when everything buffered so far has
// been played and returns the mark's sequence number.
func (o *Orchestrator) markIdle() uint64 {
	seq := o.markSeq.Add(1)
	o.audioOutput.Mark(fmt.Sprintf("idle-%d", seq), func(string) {
		o.loop.enqueue("assistant finished talking", func() { o.onAssistantFinishedTalking(seq) })
	})
	return seq
}
