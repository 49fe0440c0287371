package app

import (
	"sync"
	"time"
)

// Timer is the cancel half of a scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The system clock uses time.AfterFunc; tests use a fake.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock returns the wall-clock scheduler.
func SystemClock() Clock { return systemClock{} }

// TaskState is the lifecycle of a scheduled task.
type TaskState int

const (
	TaskIdle TaskState = iota
	TaskScheduled
	TaskFired
	TaskCancelled
)

func (s TaskState) String() string {
	switch s {
	case TaskScheduled:
		return "scheduled"
	case TaskFired:
		return "fired"
	case TaskCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Task is a one-shot cancellable callback: idle -> scheduled -> fired|cancelled.
// A cancelled task never runs its callback, even if its timer already expired.
type Task struct {
	mu    sync.Mutex
	state TaskState
	timer Timer
}

// ScheduleTask returns a task that runs f after d.
func ScheduleTask(clock Clock, d time.Duration, f func()) *Task {
	t := &Task{state: TaskScheduled}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = clock.AfterFunc(d, func() {
		t.mu.Lock()
		if t.state != TaskScheduled {
			t.mu.Unlock()
			return
		}
		t.state = TaskFired
		t.mu.Unlock()
		f()
	})
	return t
}

// Cancel stops a scheduled task. It reports whether the task was still pending.
// Cancel on a nil task is a no-op.
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != TaskScheduled {
		return false
	}
	t.state = TaskCancelled
	if t.timer != nil {
		t.timer.Stop()
	}
	return true
}

func (t *Task) State() TaskState {
	if t == nil {
		return TaskIdle
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
