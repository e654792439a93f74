package events

const (
	KindSessionOpened Kind = "session.opened"
	KindSessionEnded  Kind = "session.ended"
)

// SessionOpened marks the start of a conversation session. Live is true for
// microphone sessions, false for text queries and utterances.
type SessionOpened struct {
	Base
	SessionID string
	Live      bool
}

func NewSessionOpened(sessionID string, live bool) SessionOpened {
	return SessionOpened{Base: NewBase(KindSessionOpened), SessionID: sessionID, Live: live}
}

type SessionEnded struct {
	Base
	SessionID            string
	ContinueConversation bool
}

func NewSessionEnded(sessionID string, continueConversation bool) SessionEnded {
	return SessionEnded{
		Base:                 NewBase(KindSessionEnded),
		SessionID:            sessionID,
		ContinueConversation: continueConversation,
	}
}
