package app_test

import (
	"testing"
	"time"

	"geoquiz-service/internal/app"
)

func TestTaskFires(t *testing.T) {
	clock := &fakeClock{}
	runs := 0
	task := app.ScheduleTask(clock, time.Second, func() { runs++ })
	if task.State() != app.TaskScheduled {
		t.Fatalf("expected scheduled, got %s", task.State())
	}

	clock.Advance(999 * time.Millisecond)
	if runs != 0 {
		t.Fatalf("fired early")
	}
	clock.Advance(time.Millisecond)
	if runs != 1 || task.State() != app.TaskFired {
		t.Fatalf("expected one run and fired state, got runs=%d state=%s", runs, task.State())
	}
	if task.Cancel() {
		t.Fatalf("cancel after fire must report false")
	}
}

func TestTaskCancel(t *testing.T) {
	clock := &fakeClock{}
	runs := 0
	task := app.ScheduleTask(clock, time.Second, func() { runs++ })

	if !task.Cancel() {
		t.Fatalf("expected pending task to cancel")
	}
	clock.Advance(2 * time.Second)
	if runs != 0 || task.State() != app.TaskCancelled {
		t.Fatalf("cancelled task ran: runs=%d state=%s", runs, task.State())
	}
	if task.Cancel() {
		t.Fatalf("second cancel must report false")
	}

	var missing *app.Task
	if missing.Cancel() || missing.State() != app.TaskIdle {
		t.Fatalf("nil task must be idle and inert")
	}
}

// A timer that already expired but whose callback has not taken the task
// lock yet must still honour a cancel.
func TestTaskCancelWinsOverExpiredTimer(t *testing.T) {
	clock := &stubbornClock{}
	runs := 0
	task := app.ScheduleTask(clock, time.Millisecond, func() { runs++ })
	task.Cancel()
	clock.fire()
	if runs != 0 {
		t.Fatalf("callback ran after cancel")
	}
}

// stubbornClock ignores Stop, like a timer whose goroutine already started.
type stubbornClock struct{ f func() }

func (c *stubbornClock) AfterFunc(_ time.Duration, f func()) app.Timer {
	c.f = f
	return stubbornTimer{}
}

func (c *stubbornClock) fire() { c.f() }

type stubbornTimer struct{}

func (stubbornTimer) Stop() bool { return false }
