package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-assistant/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/koscakluka/ema-assistant/core/audio/portaudio"

var logger = otelslog.NewLogger(scopeName)

// Client is a blocking duplex PortAudio stream. Playback is written in
// whole frames, partial frames wait in leftoverAudio until AwaitMark drains
// them.
type Client struct {
	bufferSize    int
	stream        *portaudio.Stream
	leftoverAudio []byte

	in  []int16
	out []int16

	writeMu sync.Mutex
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

func (c *Client) Stream(ctx context.Context, onAudio func(audio []byte)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			if err := c.stream.Read(); err != nil {
				logger.Warn("failed to read from portaudio stream", "error", err)
				continue
			}

			audioBuffer := bytes.Buffer{}
			if err := binary.Write(&audioBuffer, binary.LittleEndian, c.in); err != nil {
				return fmt.Errorf("failed to encode captured audio: %w", err)
			}
			onAudio(audioBuffer.Bytes())
		}
	}
}

func (c *Client) Close() {
	if err := c.stream.Close(); err != nil {
		logger.Warn("failed to close portaudio stream", "error", err)
	}
	_ = portaudio.Terminate()
}

func (c *Client) SendAudio(audio []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	frameBytes := c.bufferSize * 2
	pending := append(c.leftoverAudio, audio...)
	for len(pending) >= frameBytes {
		if err := c.writeFrame(pending[:frameBytes]); err != nil {
			c.leftoverAudio = nil
			return err
		}
		pending = pending[frameBytes:]
	}

	c.leftoverAudio = append([]byte(nil), pending...)
	return nil
}

func (c *Client) ClearBuffer() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.leftoverAudio = nil
}

// AwaitMark plays out the partial frame left over from SendAudio, padded
// with silence. Writes block, so everything before the mark has been handed
// to the device once it returns.
func (c *Client) AwaitMark() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if len(c.leftoverAudio) == 0 {
		return nil
	}

	frame := make([]byte, c.bufferSize*2)
	copy(frame, c.leftoverAudio)
	c.leftoverAudio = nil
	return c.writeFrame(frame)
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}

func (c *Client) writeFrame(frame []byte) error {
	if err := binary.Read(bytes.NewReader(frame), binary.LittleEndian, c.out); err != nil {
		return fmt.Errorf("failed to decode playback frame: %w", err)
	}
	if err := c.stream.Write(); err != nil {
		return fmt.Errorf("failed to write to portaudio stream: %w", err)
	}
	return nil
}
