package orchestration

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/koscakluka/ema-assistant/core/audio"
)

// audioInput gates microphone frames behind an enabled flag. Clients with
// capture controls are started and stopped with the flag, plain streaming
// clients keep streaming and have their frames dropped while disabled.
type audioInput struct {
	// base stores the configured input client used for streaming audio.
	base audioInputBase
	// fineCaptureControl is set when the input client supports explicit capture controls.
	fineCaptureControl AudioInputFine

	// connected reports whether a concrete input client is currently configured.
	connected atomic.Bool
	// isCapturing reports whether the input client is currently capturing audio.
	isCapturing atomic.Bool
	// enabled reports whether captured frames should be delivered.
	enabled atomic.Bool

	onInputAudio func(audio []byte)
}

func newAudioInput(client audioInputBase, onInputAudio func(audio []byte)) *audioInput {
	if onInputAudio == nil {
		onInputAudio = func(audio []byte) {}
	}

	audioInput := audioInput{onInputAudio: onInputAudio}
	audioInput.Set(client)
	return &audioInput
}

func (a *audioInput) Set(client audioInputBase) {
	if a == nil {
		return
	}

	a.base = client
	a.fineCaptureControl = nil
	a.connected.Store(false)
	a.isCapturing.Store(false)

	if client == nil {
		return
	}

	a.connected.Store(true)
	if fine, ok := client.(AudioInputFine); ok {
		a.fineCaptureControl = fine
	}
}

func (a *audioInput) IsConfigured() bool            { return a != nil && a.connected.Load() }
func (a *audioInput) SupportsCaptureControls() bool { return a != nil && a.fineCaptureControl != nil }
func (a *audioInput) IsCapturing() bool             { return a != nil && a.isCapturing.Load() }
func (a *audioInput) IsEnabled() bool               { return a != nil && a.enabled.Load() }

// Start begins streaming for clients without capture controls. Clients with
// capture controls start capturing on Enable.
func (a *audioInput) Start(ctx context.Context) {
	if !a.IsConfigured() || a.SupportsCaptureControls() {
		return
	}

	a.capture(ctx)
}

func (a *audioInput) Enable(ctx context.Context) {
	if a == nil {
		return
	}

	a.enabled.Store(true)
	if a.SupportsCaptureControls() {
		a.capture(ctx)
	}
}

func (a *audioInput) Disable() error {
	if a == nil {
		return nil
	}

	a.enabled.Store(false)
	if !a.SupportsCaptureControls() || !a.isCapturing.Load() {
		return nil
	}

	if err := a.fineCaptureControl.StopCapture(); err != nil {
		return err
	}
	a.isCapturing.Store(false)
	return nil
}

func (a *audioInput) capture(ctx context.Context) {
	if !a.isCapturing.CompareAndSwap(false, true) {
		return
	}

	if a.SupportsCaptureControls() {
		go func() {
			if err := a.fineCaptureControl.StartCapture(ctx, a.onAudio); err != nil {
				a.isCapturing.Store(false)
				logger.Error("failed to start audio capture", "error", err)
			}
		}()
		return
	}

	if a.base != nil {
		go func() {
			if err := a.base.Stream(ctx, a.onAudio); err != nil {
				a.isCapturing.Store(false)
				logger.Error("failed to stream audio input", "error", err)
			}
		}()
		return
	}

	a.isCapturing.Store(false)
}

func (a *audioInput) Close() error {
	if a == nil {
		return nil
	}

	a.enabled.Store(false)

	var errs error
	if a.base != nil && a.IsConfigured() {
		if a.fineCaptureControl != nil && a.isCapturing.Load() {
			if err := a.fineCaptureControl.StopCapture(); err != nil {
				errs = errors.Join(errs, err)
			}
		}

		a.base.Close()
	}
	a.isCapturing.Store(false)

	return errs
}

func (a *audioInput) EncodingInfo() audio.EncodingInfo {
	if a == nil || a.base == nil {
		return audio.GetDefaultEncodingInfo()
	}

	return a.base.EncodingInfo()
}

func (a *audioInput) onAudio(audio []byte) {
	if !a.enabled.Load() {
		return
	}

	a.onInputAudio(audio)
}
