package audio

import "testing"

func TestPingLengthMatchesEncoding(t *testing.T) {
	encoding := EncodingInfo{SampleRate: 16000, Format: EncodingLinear16}

	ping := Ping(encoding)

	if got, want := len(ping), 2400*2; got != want {
		t.Fatalf("expected %d bytes of ping audio, got %d", want, got)
	}
	if got := encoding.Duration(len(ping)); got.Milliseconds() != 150 {
		t.Fatalf("expected ping to last 150ms, got %v", got)
	}
}

func TestPingStartsSilentAndIsNotFlat(t *testing.T) {
	ping := Ping(GetDefaultEncodingInfo())

	if ping[0] != 0 || ping[1] != 0 {
		t.Fatalf("expected faded-in first sample to be zero, got %v", ping[:2])
	}

	nonZero := false
	for _, b := range ping {
		if b != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatalf("expected ping to contain a tone")
	}
}

func TestPingUsesSilenceForCompandedFormats(t *testing.T) {
	encoding := EncodingInfo{SampleRate: 8000, Format: EncodingMulaw}

	ping := Ping(encoding)

	if len(ping) != 1200 {
		t.Fatalf("expected 1200 bytes for mulaw ping, got %d", len(ping))
	}
	for i, b := range ping {
		if b != encoding.SilenceValue() {
			t.Fatalf("expected silence value at byte %d, got %#x", i, b)
		}
	}
}

func TestPingFallsBackToDefaultEncoding(t *testing.T) {
	if got, want := len(Ping(EncodingInfo{})), len(Ping(GetDefaultEncodingInfo())); got != want {
		t.Fatalf("expected zero encoding to fall back to default, got %d bytes want %d", got, want)
	}
}
