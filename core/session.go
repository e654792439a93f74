package orchestration

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-assistant/core/assistant"
)

type sessionState int

const (
	sessionIdle sessionState = iota
	sessionListening
	sessionSpeaking
	sessionAwaitingResult
	sessionEnded
)

func (s sessionState) String() string {
	switch s {
	case sessionIdle:
		return "idle"
	case sessionListening:
		return "listening"
	case sessionSpeaking:
		return "speaking"
	case sessionAwaitingResult:
		return "awaiting_result"
	case sessionEnded:
		return "ended"
	}
	return "unknown"
}

type sessionEvent int

const (
	// Opening events, one per conversation kind.
	sessionEventListen sessionEvent = iota
	sessionEventQuery
	sessionEventUtter

	sessionEventAudio
	sessionEventEndOfUtterance
	sessionEventSpeechResults
	sessionEventResponse
	sessionEventScreenData
	sessionEventDeviceAction
	sessionEventError
	sessionEventEnded
)

func (e sessionEvent) String() string {
	switch e {
	case sessionEventListen:
		return "listen"
	case sessionEventQuery:
		return "query"
	case sessionEventUtter:
		return "utter"
	case sessionEventAudio:
		return "audio"
	case sessionEventEndOfUtterance:
		return "end_of_utterance"
	case sessionEventSpeechResults:
		return "speech_results"
	case sessionEventResponse:
		return "response"
	case sessionEventScreenData:
		return "screen_data"
	case sessionEventDeviceAction:
		return "device_action"
	case sessionEventError:
		return "error"
	case sessionEventEnded:
		return "ended"
	}
	return "unknown"
}

// sessionTransitions is the only place session states change. Events missing
// from a state's row are dropped.
var sessionTransitions = map[sessionState]map[sessionEvent]sessionState{
	sessionIdle: {
		sessionEventListen: sessionListening,
		sessionEventQuery:  sessionAwaitingResult,
		sessionEventUtter:  sessionSpeaking,
		sessionEventError:  sessionIdle,
		sessionEventEnded:  sessionEnded,
	},
	sessionListening: {
		sessionEventSpeechResults:  sessionListening,
		sessionEventEndOfUtterance: sessionAwaitingResult,
		sessionEventResponse:       sessionAwaitingResult,
		sessionEventScreenData:     sessionAwaitingResult,
		sessionEventDeviceAction:   sessionListening,
		sessionEventAudio:          sessionSpeaking,
		sessionEventError:          sessionListening,
		sessionEventEnded:          sessionEnded,
	},
	sessionAwaitingResult: {
		sessionEventSpeechResults:  sessionAwaitingResult,
		sessionEventEndOfUtterance: sessionAwaitingResult,
		sessionEventResponse:       sessionAwaitingResult,
		sessionEventScreenData:     sessionAwaitingResult,
		sessionEventDeviceAction:   sessionAwaitingResult,
		sessionEventAudio:          sessionSpeaking,
		sessionEventError:          sessionAwaitingResult,
		sessionEventEnded:          sessionEnded,
	},
	sessionSpeaking: {
		sessionEventResponse:     sessionSpeaking,
		sessionEventScreenData:   sessionSpeaking,
		sessionEventDeviceAction: sessionSpeaking,
		sessionEventAudio:        sessionSpeaking,
		sessionEventError:        sessionSpeaking,
		sessionEventEnded:        sessionEnded,
	},
	sessionEnded: {},
}

func openingEvent(config assistant.Config) sessionEvent {
	switch {
	case config.Utterance != "":
		return sessionEventUtter
	case config.TextQuery != "":
		return sessionEventQuery
	default:
		return sessionEventListen
	}
}

// session is one conversation with the remote assistant. state and
// endWaiters are only touched on the event loop, detached is read from the
// audio paths as well.
type session struct {
	id           string
	config       assistant.Config
	conversation assistant.Conversation

	state      sessionState
	endWaiters []func()

	detached  atomic.Bool
	audioSeen atomic.Bool
}

func newSession(config assistant.Config) *session {
	return &session{id: uuid.NewString(), config: config, state: sessionIdle}
}

// transition applies event to the session and reports whether it was
// accepted. Detached sessions accept nothing.
func (s *session) transition(event sessionEvent) bool {
	if s == nil || s.detached.Load() {
		return false
	}

	next, ok := sessionTransitions[s.state][event]
	if !ok {
		logger.Debug("dropping session event",
			"session_id", s.id,
			"state", s.state.String(),
			"event", event.String(),
		)
		return false
	}

	s.state = next
	return true
}

func (s *session) isLive() bool { return s != nil && s.config.IsLive() }

func (s *session) onEnded(waiter func()) {
	s.endWaiters = append(s.endWaiters, waiter)
}

func (s *session) takeEndWaiters() []func() {
	waiters := s.endWaiters
	s.endWaiters = nil
	return waiters
}

func (s *session) stop() {
	if s.conversation == nil {
		return
	}

	if err := s.conversation.Stop(); err != nil {
		logger.Warn("failed to stop conversation", "session_id", s.id, "error", err)
	}
}
