package sys_manager

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xpanvictor/ava/pkg/io/events"
	memoryregistry "github.com/xpanvictor/ava/pkg/io/registry/memoryRegistry"
)

type countingTask struct {
	runs atomic.Int32
}

func (c *countingTask) Execute(ctx context.Context) error {
	c.runs.Add(1)
	return nil
}

func (c *countingTask) GetName() string            { return "counting" }
func (c *countingTask) GetInterval() time.Duration { return 5 * time.Millisecond }

func TestManagerRunsTasksUntilStopped(t *testing.T) {
	sm := NewSystemManager(nil)
	task := &countingTask{}
	sm.RegisterTask(task)

	if err := sm.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := sm.Start(); err == nil {
		t.Error("second start should fail")
	}

	deadline := time.Now().Add(time.Second)
	for task.runs.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("task ran %d times", task.runs.Load())
		}
		time.Sleep(time.Millisecond)
	}

	if err := sm.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sm.IsRunning() {
		t.Error("manager still running after stop")
	}
	after := task.runs.Load()
	time.Sleep(20 * time.Millisecond)
	if task.runs.Load() != after {
		t.Error("task kept running after stop")
	}
}

func TestRegistrySweepTaskEvictsParkedChannels(t *testing.T) {
	reg := memoryregistry.New(memoryregistry.Options{IdleTTL: time.Minute})
	ch, release := reg.Acquire("abc")
	if _, err := ch.Publish(events.NewSignal(events.Done)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	release()
	if reg.Len() != 1 {
		t.Fatalf("parked channel should survive release, len %d", reg.Len())
	}

	task := NewRegistrySweepTask(reg, nil, time.Minute)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatal("fresh channel must not be swept")
	}

	task.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if reg.Len() != 0 {
		t.Errorf("expected idle channel evicted, len %d", reg.Len())
	}
}
