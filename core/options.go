package orchestration

import (
	"context"

	"github.com/koscakluka/ema-assistant/core/assistant"
	"github.com/koscakluka/ema-assistant/core/audio"
	"github.com/koscakluka/ema-assistant/core/commands"
	"github.com/koscakluka/ema-assistant/core/events"
	"github.com/koscakluka/ema-assistant/core/transcript"
)

type OrchestratorOption func(*Orchestrator)

// Assistant opens conversations with the remote assistant service.
type Assistant interface {
	Start(ctx context.Context, opts ...assistant.ConversationOption) (assistant.Conversation, error)
}

// AssistantConnector is implemented by assistants that can verify their
// connection up front. The result is reported as a ready or error event.
type AssistantConnector interface {
	Connect(ctx context.Context) error
}

func WithAssistant(client Assistant) OrchestratorOption {
	return func(o *Orchestrator) { o.assistant = client }
}

type AudioInput interface {
	audioInputBase
}

type AudioInputFine interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioInput.Set(client) }
}

type AudioOutputV0 interface {
	audioOutputBase
	AwaitMark() error
}

func WithAudioOutputV0(client AudioOutputV0) OrchestratorOption {
	return func(o *Orchestrator) { o.audioOutput.Set(client) }
}

type AudioOutputV1 interface {
	audioOutputBase
	Mark(string, func(string)) error
}

func WithAudioOutputV1(client AudioOutputV1) OrchestratorOption {
	return func(o *Orchestrator) { o.audioOutput.Set(client) }
}

// CommandMatcher maps input text to a locally executed command. A nil match
// means the text should go to the assistant.
type CommandMatcher interface {
	FindCommand(text string) *commands.Match
}

func WithCommandMatcher(matcher CommandMatcher) OrchestratorOption {
	return func(o *Orchestrator) {
		if matcher != nil {
			o.commandMatcher = matcher
		}
	}
}

type TextNormalizer interface {
	Normalize(entry transcript.Entry) transcript.Entry
}

func WithTextNormalizer(normalizer TextNormalizer) OrchestratorOption {
	return func(o *Orchestrator) {
		if normalizer != nil {
			o.textNormalizer = normalizer
		}
	}
}

type TranscriptStore interface {
	Append(ctx context.Context, entry transcript.Entry) error
}

// WithTranscriptStore sets where transcript entries are committed. Without
// it entries are kept in memory.
func WithTranscriptStore(store TranscriptStore) OrchestratorOption {
	return func(o *Orchestrator) {
		if store != nil {
			o.transcriptStore = store
		}
	}
}

type HostNotifier interface {
	NotifyMiniMode(enabled bool) error
}

func WithHostNotifier(notifier HostNotifier) OrchestratorOption {
	return func(o *Orchestrator) { o.hostNotifier = notifier }
}

func WithLanguage(language string) OrchestratorOption {
	return func(o *Orchestrator) {
		if language != "" {
			o.language = language
		}
	}
}

type OrchestrateOptions struct {
	onEvent           func(event events.Event)
	onReady           func()
	onWaiting         func()
	onLoading         func()
	onNewText         func(results assistant.SpeechResults)
	onSpeechBuffer    func(results assistant.SpeechResults)
	onResponse        func(text string)
	onResponseHTML    func(html string)
	onTranscriptEntry func(entry transcript.Entry)
	onMiniMode        func(enabled bool)
	onError           func(err error)
	onInputAudio      func(audio []byte)
}

type OrchestrateOption func(*OrchestrateOptions)

// WithEventCallback registers a callback receiving every published event.
//
// Callbacks run on the orchestrator's event loop. They must not block and
// must not call the synchronous methods of the orchestrator
// ([Orchestrator.RunCommand], [Orchestrator.AddMessage] and friends).
func WithEventCallback(callback func(event events.Event)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onEvent = callback
	}
}

func WithReadyCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onReady = callback
	}
}

func WithWaitingCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onWaiting = callback
	}
}

func WithLoadingCallback(callback func()) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onLoading = callback
	}
}

// WithNewTextCallback registers a callback for every non-empty set of speech
// results, interim or final.
func WithNewTextCallback(callback func(results assistant.SpeechResults)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onNewText = callback
	}
}

// WithSpeechBufferCallback registers a callback for speech buffer snapshots.
// An empty snapshot means the buffer was cleared.
func WithSpeechBufferCallback(callback func(results assistant.SpeechResults)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onSpeechBuffer = callback
	}
}

func WithResponseCallback(callback func(text string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onResponse = callback
	}
}

func WithResponseHTMLCallback(callback func(html string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onResponseHTML = callback
	}
}

func WithTranscriptEntryCallback(callback func(entry transcript.Entry)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTranscriptEntry = callback
	}
}

func WithMiniModeCallback(callback func(enabled bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onMiniMode = callback
	}
}

func WithErrorCallback(callback func(err error)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onError = callback
	}
}

// WithInputAudioCallback registers a callback for raw microphone frames.
//
// Frames are delivered while the microphone is enabled, inline on the capture
// path, so the callback should not block.
func WithInputAudioCallback(callback func(audio []byte)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onInputAudio = callback
	}
}

type audioOutputBase interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	ClearBuffer()
}

type audioInputBase interface {
	EncodingInfo() audio.EncodingInfo
	Stream(ctx context.Context, onAudio func(audio []byte)) error
	Close()
}
