package orchestration

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-assistant/core/assistant"
	"github.com/koscakluka/ema-assistant/core/audio"
	"github.com/koscakluka/ema-assistant/core/commands"
	"github.com/koscakluka/ema-assistant/core/events"
	"github.com/koscakluka/ema-assistant/core/transcript"
)

const testTimeout = 2 * time.Second

var errTestCommandFailed = errors.New("command failed")

func startTestOrchestrator(t *testing.T, opts ...OrchestratorOption) (*Orchestrator, *eventRecorder) {
	t.Helper()

	recorder := &eventRecorder{}
	o := NewOrchestrator(opts...)

	ctx, cancel := context.WithCancel(context.Background())
	o.Orchestrate(ctx, WithEventCallback(recorder.record))
	t.Cleanup(func() {
		cancel()
		o.Close()
	})

	return o, recorder
}

func flush(t *testing.T, o *Orchestrator) {
	t.Helper()

	if !o.loop.call("flush", func() {}) {
		t.Fatalf("expected orchestrator loop to be running")
	}
}

func inspect(t *testing.T, o *Orchestrator, fn func()) {
	t.Helper()

	if !o.loop.call("inspect", fn) {
		t.Fatalf("expected orchestrator loop to be running")
	}
}

func eventually(t *testing.T, o *Orchestrator, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		flush(t, o)
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out: %s", message)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, event := range r.events {
		if event.Kind() == kind {
			count++
		}
	}
	return count
}

func (r *eventRecorder) ofKind(kind events.Kind) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	matching := []events.Event{}
	for _, event := range r.events {
		if event.Kind() == kind {
			matching = append(matching, event)
		}
	}
	return matching
}

type testAssistant struct {
	mu            sync.Mutex
	conversations []*testConversation
	startErr      error
	manualEnd     bool
	started       chan *testConversation
}

func newTestAssistant() *testAssistant {
	return &testAssistant{started: make(chan *testConversation, 16)}
}

func (a *testAssistant) Start(_ context.Context, opts ...assistant.ConversationOption) (assistant.Conversation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.startErr != nil {
		return nil, a.startErr
	}

	conversation := &testConversation{
		options:   assistant.NewConversationOptions(opts...),
		manualEnd: a.manualEnd,
	}
	a.conversations = append(a.conversations, conversation)
	a.started <- conversation
	return conversation, nil
}

func (a *testAssistant) startCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conversations)
}

func (a *testAssistant) awaitConversation(t *testing.T) *testConversation {
	t.Helper()

	select {
	case conversation := <-a.started:
		return conversation
	case <-time.After(testTimeout):
		t.Fatalf("timed out waiting for a conversation to start")
		return nil
	}
}

type testConnectingAssistant struct {
	*testAssistant
	connectErr error
}

func (a testConnectingAssistant) Connect(context.Context) error { return a.connectErr }

// testConversation ends as soon as it is stopped unless manualEnd is set.
type testConversation struct {
	options   assistant.ConversationOptions
	manualEnd bool

	mu        sync.Mutex
	written   [][]byte
	stopCalls atomic.Int32
	endOnce   sync.Once
}

func (c *testConversation) WriteAudio(audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, slices.Clone(audio))
	return nil
}

func (c *testConversation) Stop() error {
	c.stopCalls.Add(1)
	if !c.manualEnd {
		c.end(assistant.EndedReport{})
	}
	return nil
}

func (c *testConversation) end(report assistant.EndedReport) {
	c.endOnce.Do(func() { c.options.EndedCallback(report) })
}

func (c *testConversation) results(results ...assistant.SpeechResult) {
	c.options.SpeechResultsCallback(results)
}

func (c *testConversation) writtenAudio() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.written)
}

// testAudioOutput is a callback-mark output. With holdMarks set, marks pass
// only when releaseMarks is called.
type testAudioOutput struct {
	mu         sync.Mutex
	sent       [][]byte
	clearCount int
	markCount  int
	holdMarks  bool
	heldMarks  []func()
}

func (output *testAudioOutput) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (output *testAudioOutput) SendAudio(chunk []byte) error {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.sent = append(output.sent, slices.Clone(chunk))
	return nil
}

func (output *testAudioOutput) ClearBuffer() {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.clearCount++
}

func (output *testAudioOutput) Mark(mark string, callback func(string)) error {
	output.mu.Lock()
	output.markCount++
	if output.holdMarks {
		output.heldMarks = append(output.heldMarks, func() { callback(mark) })
		output.mu.Unlock()
		return nil
	}
	output.mu.Unlock()

	callback(mark)
	return nil
}

func (output *testAudioOutput) releaseMarks() {
	output.mu.Lock()
	held := output.heldMarks
	output.heldMarks = nil
	output.mu.Unlock()

	for _, release := range held {
		release()
	}
}

func (output *testAudioOutput) sentChunks() [][]byte {
	output.mu.Lock()
	defer output.mu.Unlock()
	return slices.Clone(output.sent)
}

func (output *testAudioOutput) marks() int {
	output.mu.Lock()
	defer output.mu.Unlock()
	return output.markCount
}

func (output *testAudioOutput) clears() int {
	output.mu.Lock()
	defer output.mu.Unlock()
	return output.clearCount
}

// testMicrophone supports capture controls and lets tests push frames.
type testMicrophone struct {
	testAudioInputClient

	mu                sync.Mutex
	onAudio           func([]byte)
	startCaptureCalls atomic.Int32
	stopCaptureCalls  atomic.Int32
}

func (m *testMicrophone) StartCapture(_ context.Context, onAudio func([]byte)) error {
	m.mu.Lock()
	m.onAudio = onAudio
	m.mu.Unlock()
	m.startCaptureCalls.Add(1)
	return nil
}

func (m *testMicrophone) StopCapture() error {
	m.stopCaptureCalls.Add(1)
	return nil
}

func (m *testMicrophone) capturing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onAudio != nil
}

func (m *testMicrophone) emit(frame []byte) {
	m.mu.Lock()
	onAudio := m.onAudio
	m.mu.Unlock()
	if onAudio != nil {
		onAudio(frame)
	}
}

type testHostNotifier struct {
	mu    sync.Mutex
	calls []bool
}

func (n *testHostNotifier) NotifyMiniMode(enabled bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, enabled)
	return nil
}

func (n *testHostNotifier) notifications() []bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.calls)
}

type testCommand struct {
	calls   atomic.Int32
	succeed bool
}

func (c *testCommand) action(context.Context, commands.Match) error {
	c.calls.Add(1)
	if !c.succeed {
		return errTestCommandFailed
	}
	return nil
}

func newTestRegistry(t *testing.T, phrase string, command *testCommand) *commands.Registry {
	t.Helper()

	registry, err := commands.NewRegistry(&commands.Command{
		Name:    phrase,
		Phrases: []string{phrase},
		Action:  command.action,
	})
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return registry
}

func storedEntries(t *testing.T, store *transcript.MemoryStore) []transcript.Entry {
	t.Helper()

	entries, err := store.Entries(context.Background())
	if err != nil {
		t.Fatalf("failed to read transcript: %v", err)
	}
	return entries
}

func stable(text string) assistant.SpeechResult {
	return assistant.SpeechResult{Transcript: text, Stability: 1}
}

func interim(text string, stability float64) assistant.SpeechResult {
	return assistant.SpeechResult{Transcript: text, Stability: stability}
}
