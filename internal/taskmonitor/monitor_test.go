package taskmonitor

import (
	"context"
	"testing"
	"time"
)

func TestShouldTrackSlashCommands(t *testing.T) {
	cases := map[string]bool{
		"/code":      true,
		"/init":      true,
		"/cost":      false,
		"/help":      false,
		"write this": true,
	}
	for cmd, want := range cases {
		if got := ShouldTrack(cmd); got != want {
			t.Errorf("ShouldTrack(%q) = %v, want %v", cmd, got, want)
		}
	}
}

func TestSubTaskIDJoinsWithColon(t *testing.T) {
	if got := SubTaskID("worker-1", 3); got != "worker-1:3" {
		t.Fatalf("unexpected sub-task id: %q", got)
	}
}

func TestAddTaskAndUpdateTokens(t *testing.T) {
	m := New()
	m.AddTask("t1", "/code", "claude-opus")
	m.UpdateInputTokens("t1", 100, "")
	m.UpdateOutputTokens("t1", 40, 12.5)

	tasks := m.List()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.InputTokens != 100 || got.OutputTokens != 40 || got.TokPerSec != 12.5 {
		t.Fatalf("unexpected task state: %+v", got)
	}
	if got.Model != "claude-opus" {
		t.Fatalf("expected model to be preserved when UpdateInputTokens is given an empty model, got %q", got.Model)
	}
	if got.State != StateActive {
		t.Fatalf("expected active state, got %v", got.State)
	}
}

func TestFinishMarksDoneAndFreezesRuntime(t *testing.T) {
	m := New()
	m.AddTask("t1", "chat", "claude-opus")
	time.Sleep(5 * time.Millisecond)
	m.Finish("t1")

	tasks := m.List()
	if tasks[0].State != StateDone {
		t.Fatalf("expected done state, got %v", tasks[0].State)
	}
	runtimeAtFinish := tasks[0].Runtime(time.Now())
	time.Sleep(5 * time.Millisecond)
	runtimeLater := m.List()[0].Runtime(time.Now())
	if runtimeAtFinish != runtimeLater {
		t.Fatalf("expected runtime to freeze once done: %v vs %v", runtimeAtFinish, runtimeLater)
	}
}

func TestListIsOrderedByStartTime(t *testing.T) {
	m := New()
	m.AddTask("first", "chat", "m")
	time.Sleep(2 * time.Millisecond)
	m.AddTask("second", "chat", "m")

	tasks := m.List()
	if tasks[0].ID != "first" || tasks[1].ID != "second" {
		t.Fatalf("expected insertion order by start time, got %+v", tasks)
	}
}

func TestRunSweepStopsOnContextCancel(t *testing.T) {
	m := New()
	m.AddTask("t1", "chat", "m")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticks := 0
	go func() {
		m.RunSweep(ctx, func(tasks []Task) { ticks++ })
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunSweep did not return after context cancellation")
	}
}

func TestRunSweepStopsWhenNoTaskActive(t *testing.T) {
	m := New()
	m.AddTask("t1", "chat", "m")
	m.Finish("t1")

	done := make(chan struct{})
	go func() {
		m.RunSweep(context.Background(), func(tasks []Task) {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunSweep did not stop once no task was active")
	}
}
