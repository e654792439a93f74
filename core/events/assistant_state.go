package events

const (
	KindReady          Kind = "assistant_state.ready"
	KindWaiting        Kind = "assistant_state.waiting"
	KindLoading        Kind = "assistant_state.loading"
	KindAssistantError Kind = "assistant_state.error"
)

type Ready struct{ Base }

func NewReady() Ready {
	return Ready{Base: NewBase(KindReady)}
}

type Waiting struct{ Base }

func NewWaiting() Waiting {
	return Waiting{Base: NewBase(KindWaiting)}
}

type Loading struct{ Base }

func NewLoading() Loading {
	return Loading{Base: NewBase(KindLoading)}
}

// AssistantError carries a non-fatal remote assistant failure.
type AssistantError struct {
	Base
	Err error
}

func NewAssistantError(err error) AssistantError {
	return AssistantError{Base: NewBase(KindAssistantError), Err: err}
}
