package main

import (
	"fmt"

	orchestration "github.com/koscakluka/ema-assistant/core"
	"github.com/koscakluka/ema-assistant/core/audio/miniaudio"
	"github.com/koscakluka/ema-assistant/core/audio/portaudio"
)

const (
	audioBackendMiniaudio = "miniaudio"
	audioBackendPortaudio = "portaudio"
	audioBackendNone      = "none"

	portaudioBufferSize = 1024
)

// audioOptions opens the selected device. The orchestrator owns the device
// afterwards and closes it.
func audioOptions(backend string, sampleRate int) ([]orchestration.OrchestratorOption, error) {
	switch backend {
	case audioBackendMiniaudio:
		client, err := miniaudio.NewClient(miniaudio.WithSampleRate(sampleRate))
		if err != nil {
			return nil, err
		}
		return []orchestration.OrchestratorOption{
			orchestration.WithAudioInput(client),
			orchestration.WithAudioOutputV1(client),
		}, nil

	case audioBackendPortaudio:
		client, err := portaudio.NewClient(portaudioBufferSize)
		if err != nil {
			return nil, err
		}
		return []orchestration.OrchestratorOption{
			orchestration.WithAudioInput(client),
			orchestration.WithAudioOutputV0(client),
		}, nil

	case audioBackendNone:
		return nil, nil
	}

	return nil, fmt.Errorf("unknown audio backend %q", backend)
}
