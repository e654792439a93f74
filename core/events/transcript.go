package events

import "github.com/koscakluka/ema-assistant/core/transcript"

const KindTranscriptEntryAdded Kind = "transcript.entry_added"

type TranscriptEntryAdded struct {
	Base
	Entry transcript.Entry
}

func NewTranscriptEntryAdded(entry transcript.Entry) TranscriptEntryAdded {
	return TranscriptEntryAdded{Base: NewBase(KindTranscriptEntryAdded), Entry: entry}
}
