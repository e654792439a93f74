package events

const KindMiniModeChanged Kind = "ui.mini_mode_changed"

type MiniModeChanged struct {
	Base
	Enabled bool
}

func NewMiniModeChanged(enabled bool) MiniModeChanged {
	return MiniModeChanged{Base: NewBase(KindMiniModeChanged), Enabled: enabled}
}
