package sys_manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xpanvictor/ava/pkg/Logger"
	"github.com/xpanvictor/ava/pkg/io/registry"
)

const taskTimeout = 30 * time.Second

// SystemTask represents a background task that can be executed
type SystemTask interface {
	// Execute runs the task
	Execute(ctx context.Context) error
	// GetName returns the task name for logging
	GetName() string
	// GetInterval returns how often this task should run
	GetInterval() time.Duration
}

// SystemManager manages and schedules background system tasks
type SystemManager struct {
	tasks   []SystemTask
	logger  *Logger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

func NewSystemManager(logger *Logger.Logger) *SystemManager {
	if logger == nil {
		logger = Logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &SystemManager{
		tasks:  make([]SystemTask, 0),
		logger: logger.Named("system"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// RegisterTask adds a task. Tasks registered after Start are not scheduled.
func (sm *SystemManager) RegisterTask(task SystemTask) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.tasks = append(sm.tasks, task)
	sm.logger.Infow("registered system task", "task", task.GetName(), "interval", task.GetInterval())
}

// Start begins executing all registered tasks on their schedules
func (sm *SystemManager) Start() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.running {
		return fmt.Errorf("system manager is already running")
	}

	sm.running = true
	sm.logger.Infof("starting system manager with %d tasks", len(sm.tasks))

	for _, task := range sm.tasks {
		if task.GetInterval() <= 0 {
			sm.logger.Warnf("task %s has no interval, not scheduled", task.GetName())
			continue
		}
		sm.wg.Add(1)
		go sm.runTask(task)
	}

	return nil
}

// Stop cancels all tasks and waits for the running ones to return.
func (sm *SystemManager) Stop() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.running {
		return nil
	}

	sm.cancel()
	sm.wg.Wait()
	sm.running = false
	sm.logger.Info("system manager stopped")

	return nil
}

func (sm *SystemManager) IsRunning() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.running
}

func (sm *SystemManager) GetTaskCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.tasks)
}

func (sm *SystemManager) runTask(task SystemTask) {
	defer sm.wg.Done()

	ticker := time.NewTicker(task.GetInterval())
	defer ticker.Stop()

	for {
		select {
		case <-sm.ctx.Done():
			sm.logger.Debugf("task scheduler stopping for %s", task.GetName())
			return
		case <-ticker.C:
			sm.executeTask(task)
		}
	}
}

func (sm *SystemManager) executeTask(task SystemTask) {
	start := time.Now()

	taskCtx, cancel := context.WithTimeout(sm.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	duration := time.Since(start)

	if err != nil {
		sm.logger.Errorf("system task %s failed after %s: %v", task.GetName(), duration, err)
	} else {
		sm.logger.Debugf("system task %s completed in %s", task.GetName(), duration)
	}
}

// RegistrySweepTask evicts idle device channels nobody holds anymore.
type RegistrySweepTask struct {
	registry registry.DeviceRegistry
	logger   *Logger.Logger
	interval time.Duration
	now      func() time.Time
}

func NewRegistrySweepTask(reg registry.DeviceRegistry, logger *Logger.Logger, interval time.Duration) *RegistrySweepTask {
	if interval == 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = Logger.Nop()
	}

	return &RegistrySweepTask{
		registry: reg,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Execute implements SystemTask.Execute
func (t *RegistrySweepTask) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n := t.registry.Sweep(t.now()); n > 0 {
		t.logger.Infof("swept %d idle device channels, %d remain", n, t.registry.Len())
	}
	return nil
}

// GetName implements SystemTask.GetName
func (t *RegistrySweepTask) GetName() string {
	return "RegistrySweepTask"
}

// GetInterval implements SystemTask.GetInterval
func (t *RegistrySweepTask) GetInterval() time.Duration {
	return t.interval
}
