package events

import "github.com/koscakluka/ema-assistant/core/assistant"

const (
	// KindNewText identifies a fresh set of speech result candidates.
	KindNewText Kind = "user_input.new_text"
	// KindSpeechBufferUpdated identifies interim speech buffer snapshots.
	KindSpeechBufferUpdated Kind = "user_input.speech_buffer_updated"
)

// NewText carries the speech result candidates as reported by the session.
type NewText struct {
	Base
	Results assistant.SpeechResults
}

func NewNewText(results assistant.SpeechResults) NewText {
	return NewText{Base: NewBase(KindNewText), Results: results}
}

// SpeechBufferUpdated carries the current interim candidates. Results is
// empty when the buffer was cleared.
type SpeechBufferUpdated struct {
	Base
	Results assistant.SpeechResults
}

func NewSpeechBufferUpdated(results assistant.SpeechResults) SpeechBufferUpdated {
	return SpeechBufferUpdated{Base: NewBase(KindSpeechBufferUpdated), Results: results}
}

// Text joins the buffered candidates in order.
func (e SpeechBufferUpdated) Text() string {
	text := ""
	for _, result := range e.Results {
		text += result.Transcript
	}
	return text
}
