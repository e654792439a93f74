package textfilters

import (
	"testing"

	"github.com/koscakluka/ema-assistant/core/transcript"
)

func TestNormalizeCleansText(t *testing.T) {
	normalizer := NewNormalizer()

	entry := normalizer.Normalize(transcript.NewEntry("  here   you go\n", transcript.Incoming, false))

	if entry.Text != "Here you go" {
		t.Fatalf("expected cleaned text, got %q", entry.Text)
	}
	if entry.Card != nil {
		t.Fatalf("expected no card, got %+v", entry.Card)
	}
}

func TestNormalizeKeepsIdentity(t *testing.T) {
	original := transcript.NewEntry("hello", transcript.Incoming, false)

	entry := NewNormalizer().Normalize(original)

	if entry.ID != original.ID || entry.Direction != original.Direction || !entry.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("expected normalizer to keep entry identity, got %+v", entry)
	}
}

func TestNormalizeExtractsLinks(t *testing.T) {
	entry := NewNormalizer().Normalize(transcript.NewEntry(
		"See https://example.com/docs. Or https://example.com/docs, again.",
		transcript.Incoming,
		false,
	))

	if len(entry.Links) != 1 || entry.Links[0] != "https://example.com/docs" {
		t.Fatalf("expected a single deduplicated link, got %v", entry.Links)
	}
}

func TestNormalizeDetectsCards(t *testing.T) {
	testCases := []struct {
		text  string
		kind  string
		title string
	}{
		{text: "It's 10:42 PM.", kind: "time", title: "10:42 PM"},
		{text: "Right now it's 21° and sunny in Zagreb.", kind: "weather", title: "21°"},
		{text: "Expect 72°F and clear skies.", kind: "weather", title: "72°F"},
		{text: "A lighthouse is a tower with a bright light.", kind: "definition", title: "A lighthouse"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.text, func(t *testing.T) {
			entry := NewNormalizer().Normalize(transcript.NewEntry(testCase.text, transcript.Incoming, false))

			if entry.Card == nil {
				t.Fatalf("expected %s card for %q", testCase.kind, testCase.text)
			}
			if entry.Card.Kind != testCase.kind {
				t.Fatalf("expected card kind %q, got %q", testCase.kind, entry.Card.Kind)
			}
			if entry.Card.Title != testCase.title {
				t.Fatalf("expected card title %q, got %q", testCase.title, entry.Card.Title)
			}
		})
	}
}

func TestExtraFiltersRunLast(t *testing.T) {
	normalizer := NewNormalizer(func(entry transcript.Entry) transcript.Entry {
		entry.Text += "!"
		return entry
	})

	entry := normalizer.Normalize(transcript.NewEntry("done ", transcript.Incoming, false))

	if entry.Text != "Done!" {
		t.Fatalf("expected extra filter to see normalized text, got %q", entry.Text)
	}
}
