package assistant

import "github.com/koscakluka/ema-assistant/core/audio"

type ConversationOptions struct {
	Config

	AudioCallback          func(audio []byte)
	EndOfUtteranceCallback func()
	DeviceActionCallback   func(action DeviceAction)
	SpeechResultsCallback  func(results SpeechResults)
	ResponseCallback       func(text string)
	ScreenDataCallback     func(data ScreenData)
	EndedCallback          func(report EndedReport)
	ErrorCallback          func(err error)
}

type ConversationOption func(*ConversationOptions)

// NewConversationOptions applies opts over no-op callbacks and default
// encodings, so implementations can call every callback unconditionally.
func NewConversationOptions(opts ...ConversationOption) ConversationOptions {
	options := ConversationOptions{
		Config: Config{
			Language:       "en-US",
			InputEncoding:  audio.GetDefaultEncodingInfo(),
			OutputEncoding: audio.GetDefaultEncodingInfo(),
		},
		AudioCallback:          func([]byte) {},
		EndOfUtteranceCallback: func() {},
		DeviceActionCallback:   func(DeviceAction) {},
		SpeechResultsCallback:  func(SpeechResults) {},
		ResponseCallback:       func(string) {},
		ScreenDataCallback:     func(ScreenData) {},
		EndedCallback:          func(EndedReport) {},
		ErrorCallback:          func(error) {},
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

func WithTextQuery(query string) ConversationOption {
	return func(o *ConversationOptions) { o.TextQuery = query }
}

func WithUtterance(text string) ConversationOption {
	return func(o *ConversationOptions) { o.Utterance = text }
}

func WithLanguage(language string) ConversationOption {
	return func(o *ConversationOptions) {
		if language != "" {
			o.Language = language
		}
	}
}

func WithInputEncoding(encodingInfo audio.EncodingInfo) ConversationOption {
	return func(o *ConversationOptions) {
		if !encodingInfo.IsZero() {
			o.InputEncoding = encodingInfo
		}
	}
}

func WithOutputEncoding(encodingInfo audio.EncodingInfo) ConversationOption {
	return func(o *ConversationOptions) {
		if !encodingInfo.IsZero() {
			o.OutputEncoding = encodingInfo
		}
	}
}

func WithAudioCallback(callback func(audio []byte)) ConversationOption {
	return func(o *ConversationOptions) {
		if callback != nil {
			o.AudioCallback = callback
		}
	}
}

func WithEndOfUtteranceCallback(callback func()) ConversationOption {
	return func(o *ConversationOptions) {
		if callback != nil {
			o.EndOfUtteranceCallback = callback
		}
	}
}

func WithDeviceActionCallback(callback func(action DeviceAction)) ConversationOption {
	return func(o *ConversationOptions) {
		if callback != nil {
			o.DeviceActionCallback = callback
		}
	}
}

func WithSpeechResultsCallback(callback func(results SpeechResults)) ConversationOption {
	return func(o *ConversationOptions) {
		if callback != nil {
			o.SpeechResultsCallback = callback
		}
	}
}

func WithResponseCallback(callback func(text string)) ConversationOption {
	return func(o *ConversationOptions) {
		if callback != nil {
			o.ResponseCallback = callback
		}
	}
}

func WithScreenDataCallback(callback func(data ScreenData)) ConversationOption {
	return func(o *ConversationOptions) {
		if callback != nil {
			o.ScreenDataCallback = callback
		}
	}
}

// WithEndedCallback registers the callback invoked once the conversation has
// shut down, for whatever reason.
func WithEndedCallback(callback func(report EndedReport)) ConversationOption {
	return func(o *ConversationOptions) {
		if callback != nil {
			o.EndedCallback = callback
		}
	}
}

// WithErrorCallback registers a callback for remote failures. Errors are
// informational, the conversation reports its end separately.
func WithErrorCallback(callback func(err error)) ConversationOption {
	return func(o *ConversationOptions) {
		if callback != nil {
			o.ErrorCallback = callback
		}
	}
}
