package orchestration

import (
	"github.com/koscakluka/ema-assistant/core/assistant"
	"github.com/koscakluka/ema-assistant/core/events"
	"github.com/koscakluka/ema-assistant/core/transcript"
)

// assist answers a typed query, or opens a live listening session when query
// is empty. It returns the opened session, if any.
func (o *Orchestrator) assist(query string) *session {
	if query != "" {
		o.emit(events.NewWaiting())
		o.addMessage(query, transcript.Outgoing, true)
		if o.runCommand(query, false) {
			return nil
		}

		return o.openSession(assistant.Config{TextQuery: query})
	}

	o.emit(events.NewLoading())
	s := o.openSession(assistant.Config{})
	if s != nil {
		o.audioInput.Enable(o.baseContext)
	}
	return s
}

func (o *Orchestrator) say(sentence string, silent bool) {
	if o.session == nil {
		o.forceStop()
	}

	if sentence == "" {
		return
	}

	o.addMessage(sentence, transcript.Incoming, false)
	if silent {
		o.emit(events.NewReady())
		return
	}

	o.openSession(assistant.Config{Utterance: sentence})
}

func (o *Orchestrator) stop() {
	if err := o.audioInput.Disable(); err != nil {
		logger.Warn("failed to disable microphone", "error", err)
	}
	o.markIdle()
}

func (o *Orchestrator) forceStop() {
	if o.session != nil {
		o.session.stop()
	}

	if err := o.audioInput.Disable(); err != nil {
		logger.Warn("failed to disable microphone", "error", err)
	}
	o.audioOutput.Clear()
}

func (o *Orchestrator) reset() {
	o.forceStop()
	o.assist("")
}

// onAssistantFinishedTalking runs whenever the speaker drained up to the mark
// with sequence number seq.
func (o *Orchestrator) onAssistantFinishedTalking(seq uint64) {
	if o.advanceAskOnPlaybackIdle(seq) {
		// The ask's listening session is the continuation.
		o.followOn = false
		return
	}

	if o.followOn {
		o.followOn = false
		o.reset()
	}
}
