// Package host carries messages between the assistant and the windows of the
// host process over a websocket channel.
package host

// Message is an inbound message from a host window.
type Message struct {
	Query *Query `json:"query,omitempty"`
}

type Query struct {
	QueryText string `json:"queryText"`
}

// Notification is an outbound message broadcast to every host window.
type Notification struct {
	Channel string `json:"channel"`
	Enabled bool   `json:"enabled"`
}

const ChannelMiniMode = "mini-mode"

type Handler interface {
	HandleHostMessage(msg Message)
}

type HandlerFunc func(msg Message)

func (f HandlerFunc) HandleHostMessage(msg Message) { f(msg) }
