package assistant

import (
	"context"

	"github.com/koscakluka/ema-assistant/core/audio"
)

// Config describes a single conversation with the remote assistant.
//
// At most one of TextQuery and Utterance should be set. With neither set the
// conversation listens to audio written through [Conversation.WriteAudio].
type Config struct {
	// TextQuery is a literal query the assistant should answer.
	TextQuery string
	// Utterance is text the assistant should speak verbatim.
	Utterance string
	// Language is a BCP-47 language code, e.g. en-US.
	Language string

	InputEncoding  audio.EncodingInfo
	OutputEncoding audio.EncodingInfo
}

// IsLive reports whether the conversation captures live speech.
func (c Config) IsLive() bool { return c.TextQuery == "" && c.Utterance == "" }

// SpeechResult is one transcript candidate for the utterance being spoken.
type SpeechResult struct {
	Transcript string  `json:"transcript"`
	Stability  float64 `json:"stability"`
}

// IsStable reports whether the recognizer considers the candidate final.
func (r SpeechResult) IsStable() bool { return r.Stability >= 1 }

type SpeechResults []SpeechResult

// Final returns the accepted transcript when the results consist of exactly
// one fully stable candidate.
func (r SpeechResults) Final() (SpeechResult, bool) {
	if len(r) == 1 && r[0].IsStable() {
		return r[0], true
	}
	return SpeechResult{}, false
}

type ScreenDataFormat string

const ScreenDataFormatHTML ScreenDataFormat = "HTML"

// ScreenData is a structured display payload accompanying a response.
type ScreenData struct {
	Format ScreenDataFormat
	Data   []byte
}

// DeviceAction is a request from the assistant for the local device to act.
type DeviceAction struct {
	Name    string
	Payload map[string]any
}

// EndedReport summarises a finished conversation.
type EndedReport struct {
	// ContinueConversation is set when the assistant expects the user to
	// answer without a new activation.
	ContinueConversation bool
}

// Response is a generated answer to a query.
type Response struct {
	Text                 string
	HTML                 string
	ContinueConversation bool
}

// Conversation is an open duplex exchange with the assistant.
type Conversation interface {
	// WriteAudio streams captured microphone audio. Audio written to a
	// conversation that is not listening is dropped.
	WriteAudio(audio []byte) error
	// Stop terminates the remote connection. The ended callback fires once
	// the conversation has shut down.
	Stop() error
}

// Responder answers text queries.
type Responder interface {
	Respond(ctx context.Context, query string) (*Response, error)
}
