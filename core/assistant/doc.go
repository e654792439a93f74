// Package assistant defines the contract between the session orchestrator and
// a remote conversational assistant service.
//
// A conversation is opened with [ConversationOption] values: the [Config]
// decides what the conversation does (listen to the microphone, answer a
// literal text query or speak a fixed utterance) and the callbacks receive
// the conversation's output.
//
// Callbacks may be invoked from any goroutine. The ended callback is called
// exactly once per conversation and is always the last callback.
package assistant
