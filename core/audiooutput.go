package orchestration

import (
	"reflect"

	"github.com/koscakluka/ema-assistant/core/audio"
)

// audioOutput normalizes legacy (v0) and callback-mark (v1) clients behind
// one facade used as the orchestrator's audio sink.
//
// Output is a best-effort side effect: client errors are logged, never
// returned to the caller.
type audioOutput struct {
	// base stores the configured output client regardless of protocol version.
	base audioOutputBase
	// v0 is set when the output client supports the legacy mark-wait API.
	v0 AudioOutputV0
	// v1 is set when the output client supports callback-based mark handling.
	v1 AudioOutputV1
}

func newAudioOutput(client audioOutputBase) *audioOutput {
	audioOutput := audioOutput{}
	audioOutput.Set(client)
	return &audioOutput
}

// Set replaces the configured output client. Nil and typed-nil clients are
// treated as unconfigured.
func (a *audioOutput) Set(client audioOutputBase) {
	if a == nil {
		return
	}

	a.base = nil
	a.v0 = nil
	a.v1 = nil

	if isNilAudioOutputBase(client) {
		return
	}
	a.base = client

	if v1, ok := client.(AudioOutputV1); ok {
		a.v1 = v1
		return
	}

	if v0, ok := client.(AudioOutputV0); ok {
		a.v0 = v0
	}
}

func (a *audioOutput) isConfigured() bool {
	if a == nil {
		return false
	}

	return a.v0 != nil || a.v1 != nil
}

// SendAudio appends a chunk to the playback buffer. Without a usable client
// the chunk is dropped.
func (a *audioOutput) SendAudio(audio []byte) {
	var err error
	if a.v1 != nil {
		err = a.v1.SendAudio(audio)
	} else if a.v0 != nil {
		err = a.v0.SendAudio(audio)
	}

	if err != nil {
		logger.Warn("failed to send audio to output", "error", err)
	}
}

// Mark calls callback once everything buffered so far has been played.
//
// Legacy clients only expose a blocking wait, which runs on its own
// goroutine. Without output configured the callback runs immediately.
func (a *audioOutput) Mark(mark string, callback func(string)) {
	if a.v1 != nil {
		if err := a.v1.Mark(mark, callback); err != nil {
			logger.Warn("failed to mark audio output", "mark", mark, "error", err)
			callback(mark)
		}
	} else if a.v0 != nil {
		go func() {
			if err := a.v0.AwaitMark(); err != nil {
				logger.Warn("failed to await audio output mark", "mark", mark, "error", err)
			}
			callback(mark)
		}()
	} else {
		callback(mark)
	}
}

// Clear discards buffered output.
func (a *audioOutput) Clear() {
	if a.v1 != nil {
		a.v1.ClearBuffer()
	} else if a.v0 != nil {
		a.v0.ClearBuffer()
	}
}

// Ping queues a short notification tone.
func (a *audioOutput) Ping() {
	if !a.isConfigured() {
		return
	}

	a.SendAudio(audio.Ping(a.EncodingInfo()))
}

func (a *audioOutput) EncodingInfo() audio.EncodingInfo {
	if a.v1 != nil {
		return a.v1.EncodingInfo()
	}
	if a.v0 != nil {
		return a.v0.EncodingInfo()
	}

	return audio.GetDefaultEncodingInfo()
}

func isNilAudioOutputBase(client audioOutputBase) bool {
	if client == nil {
		return true
	}

	v := reflect.ValueOf(client)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
