package orchestration

import (
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-assistant/core/audio"
)

func TestAudioOutputFacadeTreatsTypedNilAsUnconfigured(t *testing.T) {
	var outputClient *legacyAudioOutput

	facade := newAudioOutput(outputClient)

	if facade.isConfigured() {
		t.Fatalf("expected typed nil output client to be treated as unconfigured")
	}
	if facade.base != nil {
		t.Fatalf("expected base client to be nil for typed nil output client")
	}

	callbackCalled := false
	facade.Mark("typed-nil-mark", func(string) {
		callbackCalled = true
	})
	if !callbackCalled {
		t.Fatalf("expected unconfigured facade to invoke mark callback")
	}
}

func TestAudioOutputFacadeSetTypedNilClearsConfiguration(t *testing.T) {
	facade := newAudioOutput(&legacyAudioOutput{})
	if !facade.isConfigured() {
		t.Fatalf("expected facade to start configured")
	}

	var outputClient *legacyAudioOutput
	facade.Set(outputClient)

	if facade.isConfigured() {
		t.Fatalf("expected facade to become unconfigured after setting typed nil output client")
	}
	if facade.v0 != nil || facade.v1 != nil {
		t.Fatalf("expected version-specific clients to be nil after setting typed nil output client")
	}
}

func TestAudioOutputFacadePrefersCallbackMarks(t *testing.T) {
	output := &testAudioOutput{}
	facade := newAudioOutput(output)

	marks := []string{}
	facade.Mark("first", func(mark string) { marks = append(marks, mark) })

	if len(marks) != 1 || marks[0] != "first" {
		t.Fatalf("expected the v1 mark callback to run, got %v", marks)
	}
	if facade.v0 != nil {
		t.Fatalf("expected the v1 client not to be routed as v0")
	}
}

func TestAudioOutputFacadeBridgesLegacyMarks(t *testing.T) {
	output := &legacyAudioOutput{}
	facade := newAudioOutput(output)

	passed := make(chan string, 1)
	facade.Mark("legacy", func(mark string) { passed <- mark })

	select {
	case mark := <-passed:
		if mark != "legacy" {
			t.Fatalf("expected mark legacy, got %q", mark)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for legacy mark")
	}
	if got := output.awaitCalls(); got != 1 {
		t.Fatalf("expected one await, got %d", got)
	}
}

func TestAudioOutputFacadeForwardsAudioAndClears(t *testing.T) {
	output := &legacyAudioOutput{}
	facade := newAudioOutput(output)

	facade.SendAudio([]byte{1})
	facade.Ping()
	facade.Clear()

	if got := output.sendCalls(); got != 2 {
		t.Fatalf("expected audio and ping to be sent, got %d sends", got)
	}
	if got := output.clearCalls(); got != 1 {
		t.Fatalf("expected one clear, got %d", got)
	}
}

func TestUnconfiguredAudioOutputDropsPing(t *testing.T) {
	facade := newAudioOutput(nil)
	facade.Ping()

	if got, want := facade.EncodingInfo(), audio.GetDefaultEncodingInfo(); got != want {
		t.Fatalf("expected default encoding %+v, got %+v", want, got)
	}
}

type legacyAudioOutput struct {
	mu         sync.Mutex
	sendCount  int
	clearCount int
	awaitCount int
}

func (output *legacyAudioOutput) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

func (output *legacyAudioOutput) SendAudio([]byte) error {
	output.mu.Lock()
	output.sendCount++
	output.mu.Unlock()
	return nil
}

func (output *legacyAudioOutput) ClearBuffer() {
	output.mu.Lock()
	output.clearCount++
	output.mu.Unlock()
}

func (output *legacyAudioOutput) AwaitMark() error {
	output.mu.Lock()
	output.awaitCount++
	output.mu.Unlock()
	return nil
}

func (output *legacyAudioOutput) sendCalls() int {
	output.mu.Lock()
	defer output.mu.Unlock()
	return output.sendCount
}

func (output *legacyAudioOutput) clearCalls() int {
	output.mu.Lock()
	defer output.mu.Unlock()
	return output.clearCount
}

func (output *legacyAudioOutput) awaitCalls() int {
	output.mu.Lock()
	defer output.mu.Unlock()
	return output.awaitCount
}
