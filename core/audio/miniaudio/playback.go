package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

type playbackClient struct {
	device *malgo.Device
	config malgo.DeviceConfig

	buffer playbackBuffer

	mu sync.Mutex
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext, sampleRate uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	var err error
	if c.device, err = malgo.InitDevice(
		audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (c *playbackClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}

	c.buffer.Clear()
	return nil
}

func (c *playbackClient) SendAudio(audio []byte) error {
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if !c.device.IsStarted() {
		return fmt.Errorf("device not started")
	}

	c.buffer.Append(audio)
	return nil
}

func (c *playbackClient) ClearBuffer() {
	c.buffer.Clear()
}

func (c *playbackClient) Mark(mark string, callback func(string)) error {
	c.buffer.Mark(mark, callback)
	return nil
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}

	c.device.Uninit()
	c.device = nil
	c.buffer.Clear()

	return nil
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame
		if len(pOutput) < need {
			need = len(pOutput)
		}

		_, passed := c.buffer.Read(pOutput[:need])
		if len(passed) > 0 {
			// Marks must never run on the device thread.
			go func() {
				for _, mark := range passed {
					mark.callback(mark.name)
				}
			}()
		}
	}
}

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

// playbackBuffer queues audio for the device callback and tracks marks by
// their byte offset into the queue. A mark is passed once every byte queued
// before it has been handed to the device.
type playbackBuffer struct {
	audio []byte
	marks []playbackMark
	mu    sync.Mutex
}

func (b *playbackBuffer) Append(audio []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio = append(b.audio, audio...)
}

// Clear drops queued audio together with its pending marks. Dropped marks
// are never called.
func (b *playbackBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio = nil
	b.marks = nil
}

func (b *playbackBuffer) Mark(name string, callback func(string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.marks = append(b.marks, playbackMark{
		name:     name,
		position: len(b.audio),
		callback: callback,
	})
}

func (b *playbackBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.audio)
}

// Read fills out with queued audio, padding with silence, and returns the
// number of audio bytes copied with the marks passed by this read.
func (b *playbackBuffer) Read(out []byte) (int, []playbackMark) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := copy(out, b.audio)
	clear(out[n:])
	b.audio = b.audio[n:]
	if len(b.audio) == 0 {
		b.audio = nil
	}

	passedMarks := 0
	for i := range b.marks {
		b.marks[i].position -= n
		if b.marks[i].position <= 0 {
			passedMarks++
		}
	}

	if passedMarks == 0 {
		return n, nil
	}

	passed := make([]playbackMark, passedMarks)
	copy(passed, b.marks[:passedMarks])
	b.marks = b.marks[passedMarks:]
	return n, passed
}
