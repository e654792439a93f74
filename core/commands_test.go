package orchestration

import (
	"testing"

	"github.com/koscakluka/ema-assistant/core/assistant"
	"github.com/koscakluka/ema-assistant/core/events"
	"github.com/koscakluka/ema-assistant/core/transcript"
)

func TestQueuedCommandRunsWhenSessionEnds(t *testing.T) {
	command := &testCommand{succeed: true}
	client := newTestAssistant()
	o, recorder := startTestOrchestrator(t,
		WithAssistant(client),
		WithCommandMatcher(newTestRegistry(t, "lights off", command)),
	)

	o.Assist("")
	conversation := client.awaitConversation(t)
	conversation.results(stable("Lights off."))

	eventually(t, o, func() bool { return command.calls.Load() == 1 }, "expected the queued command to run")

	if got := conversation.stopCalls.Load(); got != 1 {
		t.Fatalf("expected the session to be force stopped once, got %d", got)
	}
	if got := recorder.count(events.KindReady); got != 1 {
		t.Fatalf("expected a ready event after the command, got %d", got)
	}
	inspect(t, o, func() {
		if o.pendingCommand != nil {
			t.Errorf("expected the pending command to be cleared")
		}
	})
}

func TestQueuedCommandFailureSuppressesReady(t *testing.T) {
	command := &testCommand{succeed: false}
	client := newTestAssistant()
	o, recorder := startTestOrchestrator(t,
		WithAssistant(client),
		WithCommandMatcher(newTestRegistry(t, "lights off", command)),
	)

	o.Assist("")
	client.awaitConversation(t).results(stable("lights off"))

	eventually(t, o, func() bool { return command.calls.Load() == 1 }, "expected the queued command to run")
	flush(t, o)
	if got := recorder.count(events.KindReady); got != 0 {
		t.Fatalf("expected no ready event for a failed command, got %d", got)
	}
}

func TestQueuedCommandWithoutSessionIsDropped(t *testing.T) {
	command := &testCommand{succeed: true}
	o, recorder := startTestOrchestrator(t,
		WithCommandMatcher(newTestRegistry(t, "lights off", command)),
	)

	if !o.RunCommand("lights off", true) {
		t.Fatalf("expected the command to match")
	}
	flush(t, o)

	if got := command.calls.Load(); got != 0 {
		t.Fatalf("expected the command not to run, got %d calls", got)
	}
	if got := recorder.count(events.KindReady); got != 0 {
		t.Fatalf("expected no ready event, got %d", got)
	}
	inspect(t, o, func() {
		if o.pendingCommand != nil {
			t.Errorf("expected the pending command to be cleared")
		}
	})
}

func TestQueuedCommandSupersededByNewInput(t *testing.T) {
	command := &testCommand{succeed: true}
	client := newTestAssistant()
	client.manualEnd = true
	o, _ := startTestOrchestrator(t,
		WithAssistant(client),
		WithCommandMatcher(newTestRegistry(t, "lights off", command)),
	)

	o.Assist("")
	conversation := client.awaitConversation(t)

	if !o.RunCommand("lights off", true) {
		t.Fatalf("expected the command to match")
	}
	o.AddMessage("never mind", transcript.Outgoing, false)

	conversation.end(assistant.EndedReport{})
	flush(t, o)

	if got := command.calls.Load(); got != 0 {
		t.Fatalf("expected the superseded command not to run, got %d calls", got)
	}
}

func TestQueuedCommandRunsAtMostOnce(t *testing.T) {
	command := &testCommand{succeed: true}
	client := newTestAssistant()
	client.manualEnd = true
	o, _ := startTestOrchestrator(t,
		WithAssistant(client),
		WithCommandMatcher(newTestRegistry(t, "lights off", command)),
	)

	o.Assist("")
	conversation := client.awaitConversation(t)
	o.RunCommand("lights off", true)

	conversation.options.EndedCallback(assistant.EndedReport{})
	conversation.options.EndedCallback(assistant.EndedReport{})
	flush(t, o)

	if got := command.calls.Load(); got != 1 {
		t.Fatalf("expected the command to run once, got %d", got)
	}
}
