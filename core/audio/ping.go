package audio

import (
	"encoding/binary"
	"math"
)

const (
	pingFrequency = 880.0
	pingDuration  = 0.15
	pingVolume    = 0.3
	// fade keeps the tone from clicking at its edges.
	pingFadeSeconds = 0.01
)

// Ping renders a short notification tone in the given encoding.
//
// Only linear16 is rendered as a tone, companded formats get silence of the
// same length so callers can still use it as a playback marker.
func Ping(encoding EncodingInfo) []byte {
	if encoding.IsZero() {
		encoding = GetDefaultEncodingInfo()
	}

	samples := int(math.Round(float64(encoding.SampleRate) * pingDuration))
	size := encoding.Format.ByteSize()
	if size <= 0 {
		return nil
	}

	out := make([]byte, samples*size)
	if encoding.Format != EncodingLinear16 {
		for i := range out {
			out[i] = encoding.SilenceValue()
		}
		return out
	}

	fadeSamples := int(float64(encoding.SampleRate) * pingFadeSeconds)
	for i := range samples {
		gain := pingVolume
		if i < fadeSamples {
			gain *= float64(i) / float64(fadeSamples)
		} else if remaining := samples - i; remaining < fadeSamples {
			gain *= float64(remaining) / float64(fadeSamples)
		}

		t := float64(i) / float64(encoding.SampleRate)
		value := int16(gain * math.MaxInt16 * math.Sin(2*math.Pi*pingFrequency*t))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(value))
	}

	return out
}
