package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/moodtrack/internal/bus"
	"github.com/matheus3301/moodtrack/internal/mood"
	"go.uber.org/zap"
)

// Task is one queued mirror mutation.
type Task struct {
	Op    Op
	Entry mood.Entry
}

// Result is the payload of mirror.applied and mirror.failed events.
type Result struct {
	Op      Op
	EntryID string
	Err     string
}

// Dispatcher runs mirror mutations on a background worker.
//
// Dispatch never blocks and never reports an outcome to its caller: results
// are logged and published on the bus, then discarded. There are no retries
// and the queue is not persisted, so work still queued at Stop is lost.
type Dispatcher struct {
	mirror  Mirror
	bus     *bus.Bus
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	queue  []Task
	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDispatcher creates a dispatcher that gives each task at most timeout.
func NewDispatcher(m Mirror, b *bus.Bus, logger *zap.Logger, timeout time.Duration) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &Dispatcher{
		mirror:  m,
		bus:     b,
		logger:  logger,
		timeout: timeout,
		wake:    make(chan struct{}, 1),
	}
}

// Start begins draining the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	go d.loop(ctx)
}

// Stop stops the worker after the task in flight, dropping queued tasks.
func (d *Dispatcher) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done

	d.mu.Lock()
	dropped := len(d.queue)
	d.queue = nil
	d.mu.Unlock()
	if dropped > 0 {
		d.logger.Warn("dropping queued mirror tasks", zap.Int("count", dropped))
	}
}

// Dispatch queues op for e and returns immediately.
func (d *Dispatcher) Dispatch(op Op, e mood.Entry) {
	d.mu.Lock()
	d.queue = append(d.queue, Task{Op: op, Entry: e})
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks not yet started.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)
	for {
		for {
			task, ok := d.next()
			if !ok {
				break
			}
			d.run(ctx, task)
			if ctx.Err() != nil {
				return
			}
		}
		select {
		case <-d.wake:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) next() (Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return Task{}, false
	}
	task := d.queue[0]
	d.queue = d.queue[1:]
	return task, true
}

func (d *Dispatcher) run(ctx context.Context, task Task) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.apply(ctx, task)
	if err == nil {
		err = d.mirror.Save(ctx)
	}

	result := Result{Op: task.Op, EntryID: task.Entry.ID}
	if err != nil {
		result.Err = err.Error()
		d.logger.Warn("mirror sync failed", zap.Error(err),
			zap.String("op", string(task.Op)), zap.String("entry_id", task.Entry.ID))
		d.bus.Emit(bus.MirrorFailed, result)
		return
	}
	d.logger.Debug("mirror sync applied", zap.String("op", string(task.Op)), zap.String("entry_id", task.Entry.ID))
	d.bus.Emit(bus.MirrorApplied, result)
}

func (d *Dispatcher) apply(ctx context.Context, task Task) error {
	switch task.Op {
	case OpAdd:
		return d.mirror.Add(ctx, task.Entry)
	case OpUpdate:
		return d.mirror.Update(ctx, task.Entry)
	case OpDelete:
		return d.mirror.Delete(ctx, task.Entry)
	default:
		return &UnknownOpError{Op: task.Op}
	}
}

// UnknownOpError is reported for tasks with an unsupported Op.
type UnknownOpError struct {
	Op Op
}

func (e *UnknownOpError) Error() string {
	return "mirror: unknown op " + string(e.Op)
}
