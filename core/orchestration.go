package orchestration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-assistant/core/assistant"
	"github.com/koscakluka/ema-assistant/core/commands"
	"github.com/koscakluka/ema-assistant/core/events"
	"github.com/koscakluka/ema-assistant/core/host"
	"github.com/koscakluka/ema-assistant/core/transcript"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrClosed      = errors.New("orchestrator closed")
	ErrNotRunning  = errors.New("orchestrator is not running")
	ErrNoAssistant = errors.New("no assistant configured")
)

// Orchestrator drives conversations with the remote assistant: it owns the
// microphone, the speaker, command interception and the active session, and
// publishes what happens as events.
//
// Public methods are safe for concurrent use. State changes are serialized on
// a single event loop started by [Orchestrator.Orchestrate].
type Orchestrator struct {
	assistant       Assistant
	audioInput      *audioInput
	audioOutput     *audioOutput
	commandMatcher  CommandMatcher
	textNormalizer  TextNormalizer
	transcriptStore TranscriptStore
	hostNotifier    HostNotifier
	language        string

	loop               *eventLoop
	emit               eventEmitter
	orchestrateOptions OrchestrateOptions
	baseContext        context.Context
	closeOnce          sync.Once

	// liveSession is the session receiving microphone frames. Frames bypass
	// the event loop.
	liveSession atomic.Pointer[session]
	markSeq     atomic.Uint64

	// Owned by the event loop.
	session        *session
	pendingCommand *commands.Match
	followOn       bool
	speechBuffer   assistant.SpeechResults
	miniMode       bool
	ask            *askTurn
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		commandMatcher:  noCommands{},
		textNormalizer:  passthroughNormalizer{},
		transcriptStore: transcript.NewMemoryStore(),
		language:        "en-US",
		loop:            newEventLoop(),
		emit:            noopEventEmitter,
		baseContext:     context.Background(),
		audioOutput:     newAudioOutput(nil),
	}
	o.audioInput = newAudioInput(nil, o.onInputAudio)

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Orchestrate starts the event loop and the microphone stream.
//
// ctx is the base context for every conversation and command. Cancelling it
// closes the orchestrator. Call Orchestrate at most once.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) {
	if o.loop.isClosed() {
		logger.Warn("orchestrator already closed, skipping Orchestrate")
		return
	}

	o.orchestrateOptions = OrchestrateOptions{}
	for _, opt := range opts {
		opt(&o.orchestrateOptions)
	}
	o.emit = newCallbackEventEmitter(o.orchestrateOptions)
	o.baseContext = ctx

	if started := o.loop.start(ctx); !started {
		logger.Warn("orchestrator already running, skipping Orchestrate")
		return
	}

	go func() {
		select {
		case <-ctx.Done():
			o.Close()
		case <-o.loop.closeCh:
		}
	}()

	o.audioInput.Start(ctx)

	if connector, ok := o.assistant.(AssistantConnector); ok {
		go o.connect(ctx, connector)
	}
}

func (o *Orchestrator) connect(ctx context.Context, connector AssistantConnector) {
	ctx, span := tracer.Start(ctx, "connect assistant")
	defer span.End()

	err := connector.Connect(ctx)
	if err != nil {
		err = fmt.Errorf("failed to connect assistant: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	o.loop.enqueue("assistant connected", func() {
		if err != nil {
			o.reportError(err)
			return
		}
		o.emit(events.NewReady())
	})
}

// Close stops the active session, fails a pending Ask with [ErrClosed] and
// releases the microphone. It is safe to call more than once.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.loop.call("close", func() {
			if o.ask != nil {
				o.settleAsk(o.ask, "", ErrClosed)
			}
			if o.session != nil {
				o.detachSession(o.session)
			}
			o.audioOutput.Clear()
		})
		o.loop.end()
		o.loop.waitUntilEnded()

		if err := o.audioInput.Close(); err != nil {
			recordedErr := fmt.Errorf("failed to close audio input: %w", err)
			span := trace.SpanFromContext(o.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}
	})
}

// Assist answers query, or opens a listening session when query is empty.
func (o *Orchestrator) Assist(query string) {
	o.loop.enqueue("assist", func() { o.assist(query) })
}

// Say adds sentence to the transcript after delay and speaks it, unless
// silent is set.
func (o *Orchestrator) Say(sentence string, delay time.Duration, silent bool) {
	run := func() {
		o.loop.enqueue("say", func() { o.say(sentence, silent) })
	}

	if delay <= 0 {
		run()
		return
	}
	time.AfterFunc(delay, run)
}

// RunCommand executes the command matching text and reports whether there
// was one. With queue set the command runs once the active session ended.
func (o *Orchestrator) RunCommand(text string, queue bool) bool {
	matched := false
	o.loop.call("run command", func() { matched = o.runCommand(text, queue) })
	return matched
}

// Stop turns the microphone off and lets buffered speech finish.
func (o *Orchestrator) Stop() {
	o.loop.enqueue("stop", o.stop)
}

// ForceStop ends the active conversation and discards buffered speech.
func (o *Orchestrator) ForceStop() {
	o.loop.enqueue("force stop", o.forceStop)
}

// Reset force stops and starts listening again.
func (o *Orchestrator) Reset() {
	o.loop.enqueue("reset", o.reset)
}

func (o *Orchestrator) SetMiniMode(enabled bool) {
	o.loop.enqueue("set mini mode", func() { o.setMiniMode(enabled) })
}

func (o *Orchestrator) MiniMode() bool {
	enabled := false
	o.loop.call("mini mode", func() { enabled = o.miniMode })
	return enabled
}

// PlayPing plays a short notification tone.
func (o *Orchestrator) PlayPing() {
	o.loop.enqueue("play ping", o.audioOutput.Ping)
}

// AddMessage commits a transcript entry and returns it as stored.
func (o *Orchestrator) AddMessage(text string, direction transcript.Direction, followup bool) transcript.Entry {
	var entry transcript.Entry
	o.loop.call("add message", func() { entry = o.addMessage(text, direction, followup) })
	return entry
}

// SpeechBuffer returns the interim candidates of the utterance in progress.
func (o *Orchestrator) SpeechBuffer() assistant.SpeechResults {
	var results assistant.SpeechResults
	o.loop.call("speech buffer", func() { results = slices.Clone(o.speechBuffer) })
	return results
}

// HandleHostMessage reacts to a message from a host window. A query without
// text starts listening.
func (o *Orchestrator) HandleHostMessage(msg host.Message) {
	if msg.Query == nil {
		logger.Debug("ignoring host message without query")
		return
	}

	o.Assist(msg.Query.QueryText)
}

func (o *Orchestrator) onInputAudio(frame []byte) {
	if o.orchestrateOptions.onInputAudio != nil {
		o.orchestrateOptions.onInputAudio(frame)
	}

	s := o.liveSession.Load()
	if s == nil || s.detached.Load() || s.conversation == nil {
		return
	}

	if err := s.conversation.WriteAudio(frame); err != nil {
		logger.Debug("failed to write audio to conversation", "session_id", s.id, "error", err)
	}
}

func (o *Orchestrator) reportError(err error) {
	logger.Error("assistant error", "error", err)
	o.emit(events.NewAssistantError(err))
}

type noCommands struct{}

func (noCommands) FindCommand(string) *commands.Match { return nil }

type passthroughNormalizer struct{}

func (passthroughNormalizer) Normalize(entry transcript.Entry) transcript.Entry { return entry }
