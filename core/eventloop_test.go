package orchestration

import (
	"context"
	"testing"
)

func TestCloseBeforeOrchestrateMarksClosed(t *testing.T) {
	o := NewOrchestrator()
	o.Close()

	if !o.loop.isClosed() {
		t.Fatalf("expected orchestrator to be closed")
	}

	o.Orchestrate(context.Background())
	if !o.loop.isClosed() {
		t.Fatalf("expected orchestrator to stay closed")
	}
	if o.RunCommand("anything", false) {
		t.Fatalf("expected a closed orchestrator not to run commands")
	}
}

func TestCancellingContextClosesOrchestrator(t *testing.T) {
	o := NewOrchestrator()
	ctx, cancel := context.WithCancel(context.Background())
	o.Orchestrate(ctx)

	cancel()
	o.loop.waitUntilEnded()

	if !o.loop.isClosed() {
		t.Fatalf("expected the orchestrator to close with its context")
	}
}

func TestEventLoopRunsItemsInOrder(t *testing.T) {
	loop := newEventLoop()
	loop.start(context.Background())
	defer loop.end()

	var order []int
	for i := range eventQueueCapacity / 2 {
		loop.enqueue("append", func() { order = append(order, i) })
	}

	if !loop.call("flush", func() {}) {
		t.Fatalf("expected the loop to run")
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("expected item %d at position %d, got %v", i, i, order)
		}
	}
	if len(order) != eventQueueCapacity/2 {
		t.Fatalf("expected %d items, got %d", eventQueueCapacity/2, len(order))
	}
}

func TestEventLoopSurvivesPanickingHandler(t *testing.T) {
	loop := newEventLoop()
	loop.start(context.Background())
	defer loop.end()

	loop.enqueue("panic", func() { panic("boom") })

	ran := false
	if !loop.call("after panic", func() { ran = true }) || !ran {
		t.Fatalf("expected the loop to keep running after a panic")
	}
}

func TestEventLoopRejectsWorkAfterEnd(t *testing.T) {
	loop := newEventLoop()
	if loop.call("before start", func() {}) {
		t.Fatalf("expected call before start to fail")
	}

	loop.start(context.Background())
	loop.end()
	loop.waitUntilEnded()

	if loop.enqueue("after end", func() {}) {
		t.Fatalf("expected enqueue after end to fail")
	}
	if loop.start(context.Background()) {
		t.Fatalf("expected a closed loop not to restart")
	}
}
