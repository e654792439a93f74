// Package events defines the typed session event contract published by the
// orchestrator to its UI layer.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - assistant_state.*
//   - user_input.*
//   - assistant_response.*
//   - transcript.*
//   - session.*
//   - ui.*
//
// assistant_state events
//
//   - Ready (assistant_state.ready): the assistant can take new input.
//   - Waiting (assistant_state.waiting): input was accepted and a reply is
//     pending.
//   - Loading (assistant_state.loading): a live listening session is being
//     opened.
//   - AssistantError (assistant_state.error): the remote assistant reported a
//     failure. Errors are never fatal for the orchestrator.
//
// user_input events
//
//   - NewText (user_input.new_text): a non-empty set of speech result
//     candidates arrived.
//   - SpeechBufferUpdated (user_input.speech_buffer_updated): mutable
//     snapshot of the interim candidates for the current utterance. Empty
//     when the buffer was cleared.
//
// assistant_response events
//
//   - AssistantResponse (assistant_response.text): response text reported by
//     the remote assistant.
//   - ResponseHTML (assistant_response.html): HTML screen data to render.
//
// transcript events
//
//   - TranscriptEntryAdded (transcript.entry_added): an entry was appended to
//     the transcript log.
//
// session events
//
//   - SessionOpened (session.opened): a new conversation session started.
//   - SessionEnded (session.ended): the active session ended.
//
// ui events
//
//   - MiniModeChanged (ui.mini_mode_changed): mini mode was toggled.
package events
