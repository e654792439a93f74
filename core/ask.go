package orchestration

import (
	"context"
	"errors"
	"strings"

	"github.com/koscakluka/ema-assistant/core/assistant"
	"github.com/koscakluka/ema-assistant/core/transcript"
)

var (
	ErrEmptyQuestion = errors.New("empty question")
	ErrSuperseded    = errors.New("ask superseded")
	ErrNoAnswer      = errors.New("conversation ended without an answer")
	ErrNotAsked      = errors.New("question could not be asked")
)

type askStage int

const (
	// askAwaitingQuestionEnd waits for the session speaking the question to end.
	askAwaitingQuestionEnd askStage = iota
	// askAwaitingPlaybackIdle waits for the spoken question to finish playing.
	askAwaitingPlaybackIdle
	// askAwaitingAnswer routes the listening session's results to the ask.
	askAwaitingAnswer
	// askAwaitingAnswerEnd waits for the listening session to wind down.
	askAwaitingAnswerEnd
)

type askResult struct {
	transcript string
	err        error
}

// askTurn is a spoken question followed by a listened-for answer. It is
// advanced only by the event loop.
type askTurn struct {
	question string
	stage    askStage
	// session is the session the current stage waits on.
	session *session
	// idleAfter is the first idle mark sequence that belongs to this ask.
	idleAfter  uint64
	transcript string

	result  chan askResult
	settled bool
}

func newAskTurn(question string) *askTurn {
	return &askTurn{question: question, result: make(chan askResult, 1)}
}

func (t *askTurn) awaitsAnswerFrom(s *session) bool {
	return t.stage == askAwaitingAnswer && t.session == s
}

// Ask speaks question, listens for the answer and returns its transcript.
//
// Ask blocks until the answer session ended. It fails with [ErrEmptyQuestion]
// for blank questions, with ctx's error when ctx is done first, with
// [ErrClosed] when the orchestrator closes, with [ErrSuperseded] when a newer
// Ask or session takes over, and with [ErrNoAnswer] when the listening
// session ends without a final transcript. Once Ask returns, speech results
// are handled as regular live input again.
func (o *Orchestrator) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	if !o.loop.isStarted() {
		return "", ErrNotRunning
	}

	turn := newAskTurn(question)
	if !o.loop.enqueue("ask", func() { o.startAsk(turn) }) {
		return "", ErrClosed
	}

	select {
	case result := <-turn.result:
		return result.transcript, result.err
	case <-ctx.Done():
		o.loop.enqueue("cancel ask", func() { o.settleAsk(turn, "", ctx.Err()) })
		return "", ctx.Err()
	case <-o.loop.done:
		select {
		case result := <-turn.result:
			return result.transcript, result.err
		default:
			return "", ErrClosed
		}
	}
}

func (o *Orchestrator) startAsk(turn *askTurn) {
	if turn.settled {
		return
	}
	if o.ask != nil {
		o.settleAsk(o.ask, "", ErrSuperseded)
	}

	// The ask takes over the conversation, including a pending follow-on.
	o.stop()
	o.followOn = false

	o.addMessage(turn.question, transcript.Incoming, true)

	s := o.openSession(assistant.Config{Utterance: turn.question})
	if s == nil {
		o.settleAsk(turn, "", ErrNotAsked)
		return
	}

	turn.stage = askAwaitingQuestionEnd
	turn.session = s
	o.ask = turn
}

func (o *Orchestrator) advanceAskOnSessionEnded(s *session, idleMark uint64) {
	turn := o.ask
	if turn == nil || turn.session != s {
		return
	}

	switch turn.stage {
	case askAwaitingQuestionEnd:
		turn.stage = askAwaitingPlaybackIdle
		turn.session = nil
		turn.idleAfter = idleMark
	case askAwaitingAnswer:
		o.settleAsk(turn, "", ErrNoAnswer)
	case askAwaitingAnswerEnd:
		o.settleAsk(turn, turn.transcript, nil)
	}
}

// advanceAskOnPlaybackIdle opens the answer session once the spoken question
// finished playing and reports whether it did.
func (o *Orchestrator) advanceAskOnPlaybackIdle(seq uint64) bool {
	turn := o.ask
	if turn == nil || turn.stage != askAwaitingPlaybackIdle || seq < turn.idleAfter {
		return false
	}

	s := o.assist("")
	if s == nil {
		o.settleAsk(turn, "", ErrNotAsked)
		return true
	}

	turn.stage = askAwaitingAnswer
	turn.session = s
	return true
}

func (o *Orchestrator) onAskAnswerResults(turn *askTurn, results assistant.SpeechResults) {
	if len(results) == 0 {
		return
	}

	result, ok := results.Final()
	if !ok {
		o.setSpeechBuffer(results)
		return
	}

	o.addMessage(result.Transcript, transcript.Outgoing, false)
	o.setSpeechBuffer(nil)
	if err := o.audioInput.Disable(); err != nil {
		logger.Warn("failed to disable microphone", "error", err)
	}

	turn.transcript = result.Transcript
	turn.stage = askAwaitingAnswerEnd
	o.forceStop()
}

// settleAsk resolves turn exactly once and detaches it from the orchestrator.
func (o *Orchestrator) settleAsk(turn *askTurn, transcript string, err error) {
	if o.ask == turn {
		o.ask = nil
	}
	if turn.settled {
		return
	}

	turn.settled = true
	turn.result <- askResult{transcript: transcript, err: err}
}
