// Package transcript holds the append-only conversation log shown to the
// user.
package transcript

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Direction string

const (
	// Incoming text was produced by the assistant.
	Incoming Direction = "incoming"
	// Outgoing text was produced by the user.
	Outgoing Direction = "outgoing"
)

// Card is structured display content derived from an entry's text.
type Card struct {
	Kind  string `json:"kind"`
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

// Entry is a single transcript line. Entries are never modified once they
// have been appended to a [Store].
type Entry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Direction Direction `json:"direction"`
	Followup  bool      `json:"followup"`
	Card      *Card     `json:"card,omitempty"`
	Links     []string  `json:"links,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewEntry(text string, direction Direction, followup bool) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Text:      text,
		Direction: direction,
		Followup:  followup,
		CreatedAt: time.Now(),
	}
}

type Store interface {
	Append(ctx context.Context, entry Entry) error
	Entries(ctx context.Context) ([]Entry, error)
}
