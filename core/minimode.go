package orchestration

import "github.com/koscakluka/ema-assistant/core/events"

func (o *Orchestrator) setMiniMode(enabled bool) {
	if o.miniMode == enabled {
		return
	}
	o.miniMode = enabled

	if o.hostNotifier != nil {
		if err := o.hostNotifier.NotifyMiniMode(enabled); err != nil {
			logger.Warn("failed to notify host about mini mode", "enabled", enabled, "error", err)
		}
	}

	o.emit(events.NewMiniModeChanged(enabled))
}
