// Package textfilters turns raw assistant response text into display ready
// transcript entries.
package textfilters

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/koscakluka/ema-assistant/core/transcript"
)

// Filter transforms an entry. Filters run in registration order and each one
// sees the output of the previous.
type Filter func(entry transcript.Entry) transcript.Entry

// CardPattern attaches a card to entries whose text matches Pattern. The
// first capture group, when present, becomes the card title.
type CardPattern struct {
	Kind    string
	Pattern *regexp.Regexp
}

type Normalizer struct {
	filters []Filter
}

// NewNormalizer builds a normalizer with the default filters followed by
// extra.
func NewNormalizer(extra ...Filter) *Normalizer {
	filters := []Filter{
		CollapseWhitespace,
		CapitalizeSentence,
		ExtractLinks,
		DetectCards(DefaultCardPatterns()...),
	}
	return &Normalizer{filters: append(filters, extra...)}
}

func (n *Normalizer) Normalize(entry transcript.Entry) transcript.Entry {
	for _, filter := range n.filters {
		entry = filter(entry)
	}
	return entry
}

func CollapseWhitespace(entry transcript.Entry) transcript.Entry {
	entry.Text = strings.Join(strings.Fields(entry.Text), " ")
	return entry
}

func CapitalizeSentence(entry transcript.Entry) transcript.Entry {
	first, size := utf8.DecodeRuneInString(entry.Text)
	if first == utf8.RuneError || !unicode.IsLower(first) {
		return entry
	}
	entry.Text = string(unicode.ToUpper(first)) + entry.Text[size:]
	return entry
}

var linkPattern = regexp.MustCompile(`https?://[^\s<>"]+[^\s<>".,;:!?)]`)

func ExtractLinks(entry transcript.Entry) transcript.Entry {
	links := linkPattern.FindAllString(entry.Text, -1)
	if len(links) == 0 {
		return entry
	}

	entry.Links = slices.Compact(append(slices.Clone(entry.Links), links...))
	return entry
}

func DefaultCardPatterns() []CardPattern {
	return []CardPattern{
		{Kind: "time", Pattern: regexp.MustCompile(`(?i)\bit(?:'s| is) (\d{1,2}:\d{2}(?:\s?[ap]\.?m)?)`)},
		{Kind: "weather", Pattern: regexp.MustCompile(`(?i)\b(-?\d+\s?°(?:\s?[cf]\b)?).*\b(?:sunny|cloudy|rain|snow|clear|wind)`)},
		{Kind: "definition", Pattern: regexp.MustCompile(`(?i)^(\w[\w\s-]{0,40}?) (?:is|means|refers to) (?:a|an|the)\b`)},
	}
}

// DetectCards attaches a card for the first matching pattern. Entries that
// already carry a card are left alone.
func DetectCards(patterns ...CardPattern) Filter {
	return func(entry transcript.Entry) transcript.Entry {
		if entry.Card != nil {
			return entry
		}

		for _, pattern := range patterns {
			match := pattern.Pattern.FindStringSubmatch(entry.Text)
			if match == nil {
				continue
			}

			card := &transcript.Card{Kind: pattern.Kind, Body: entry.Text}
			if len(match) > 1 {
				card.Title = strings.TrimSpace(match[1])
			}
			entry.Card = card
			return entry
		}

		return entry
	}
}
