package orchestration

import events "github.com/koscakluka/ema-assistant/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		logger.Debug("publishing event", "kind", string(event.Kind()), "namespace", event.Kind().Namespace())
		if opts.onEvent != nil {
			opts.onEvent(event)
		}

		switch typedEvent := event.(type) {
		case events.Ready:
			if opts.onReady != nil {
				opts.onReady()
			}
		case events.Waiting:
			if opts.onWaiting != nil {
				opts.onWaiting()
			}
		case events.Loading:
			if opts.onLoading != nil {
				opts.onLoading()
			}
		case events.AssistantError:
			if opts.onError != nil {
				opts.onError(typedEvent.Err)
			}
		case events.NewText:
			if opts.onNewText != nil {
				opts.onNewText(typedEvent.Results)
			}
		case events.SpeechBufferUpdated:
			if opts.onSpeechBuffer != nil {
				opts.onSpeechBuffer(typedEvent.Results)
			}
		case events.AssistantResponse:
			if opts.onResponse != nil {
				opts.onResponse(typedEvent.Text)
			}
		case events.ResponseHTML:
			if opts.onResponseHTML != nil {
				opts.onResponseHTML(typedEvent.HTML)
			}
		case events.TranscriptEntryAdded:
			if opts.onTranscriptEntry != nil {
				opts.onTranscriptEntry(typedEvent.Entry)
			}
		case events.MiniModeChanged:
			if opts.onMiniMode != nil {
				opts.onMiniMode(typedEvent.Enabled)
			}
		}
	}
}
