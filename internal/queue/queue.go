// Package queue runs automation tasks on a fixed pool of workers.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Operation names a kind of task, e.g. "scrape" or "bulk_apply".
type Operation string

type Task struct {
	ID        string
	Operation Operation
	Payload   any
	CreatedAt time.Time
}

// Handler executes one task. It must return when ctx is done.
type Handler func(ctx context.Context, t Task) error

var (
	ErrQueueFull       = errors.New("task queue is full")
	ErrClosed          = errors.New("task queue is shut down")
	ErrNoHandler       = errors.New("no handler registered")
	ErrShutdownTimeout = errors.New("workers did not finish before shutdown timeout")
)

type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration // zero means no per-task limit
	// CancelGrace is how long Shutdown still waits for cancelled tasks to
	// record their outcome. Defaults to 5s.
	CancelGrace time.Duration
	Log         *logrus.Entry
}

type Queue struct {
	cfg Config
	log *logrus.Entry

	handlerMu sync.RWMutex
	handlers  map[Operation]Handler

	mu     sync.RWMutex
	closed bool
	tasks  chan Task

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.CancelGrace <= 0 {
		cfg.CancelGrace = 5 * time.Second
	}
	if cfg.Log == nil {
		cfg.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Queue{
		cfg:      cfg,
		log:      cfg.Log.WithField("component", "queue"),
		handlers: make(map[Operation]Handler),
		tasks:    make(chan Task, cfg.QueueSize),
	}
}

// RegisterHandler associates an Operation with its Handler.
func (q *Queue) RegisterHandler(op Operation, h Handler) {
	q.handlerMu.Lock()
	q.handlers[op] = h
	q.handlerMu.Unlock()
}

func (q *Queue) handler(op Operation) (Handler, error) {
	q.handlerMu.RLock()
	defer q.handlerMu.RUnlock()
	h, ok := q.handlers[op]
	if !ok {
		return nil, fmt.Errorf("%w for operation %s", ErrNoHandler, op)
	}
	return h, nil
}

// Start launches the workers. ctx bounds every task they run.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.log.Infof("🚀 Starting %d workers...", q.cfg.Workers)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work(fmt.Sprintf("worker-%d", i))
	}
}

// Enqueue never blocks: a full buffer is reported as ErrQueueFull.
func (q *Queue) Enqueue(op Operation, payload any) (string, error) {
	if _, err := q.handler(op); err != nil {
		return "", err
	}
	t := Task{ID: uuid.NewString(), Operation: op, Payload: payload, CreatedAt: time.Now()}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return "", ErrClosed
	}
	select {
	case q.tasks <- t:
		q.log.WithFields(logrus.Fields{"task_id": t.ID, "operation": op}).Debug("📥 Task queued")
		return t.ID, nil
	default:
		return "", ErrQueueFull
	}
}

func (q *Queue) work(id string) {
	defer q.wg.Done()
	log := q.log.WithField("worker", id)
	for t := range q.tasks {
		q.execute(log, t)
	}
	log.Debug("Worker stopped")
}

func (q *Queue) execute(log *logrus.Entry, t Task) {
	log = log.WithFields(logrus.Fields{"task_id": t.ID, "operation": t.Operation})
	start := time.Now()

	ctx := q.ctx
	if q.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.cfg.TaskTimeout)
		defer cancel()
	}

	err := q.run(ctx, t)
	elapsed := time.Since(start)
	switch {
	case err == nil:
		log.Infof("✅ Task COMPLETED in %v", elapsed)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		log.WithError(err).Errorf("⏱️ Task timed out after %v", q.cfg.TaskTimeout)
	default:
		log.WithError(err).Errorf("❌ Task FAILED in %v", elapsed)
	}
}

func (q *Queue) run(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	h, err := q.handler(t.Operation)
	if err != nil {
		return err
	}
	return h(ctx, t)
}

// Shutdown stops accepting tasks, lets workers drain the buffer and waits up
// to timeout. Past the timeout running tasks are cancelled and given
// CancelGrace to return.
func (q *Queue) Shutdown(timeout time.Duration) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.tasks)
	q.mu.Unlock()

	if q.cancel == nil {
		return nil
	}
	defer q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.log.Info("🛑 All workers stopped")
		return nil
	case <-time.After(timeout):
		q.cancel()
		q.log.Warn("⚠️ Shutdown timeout reached, cancelling running tasks")
		select {
		case <-done:
			q.log.Info("🛑 Cancelled workers stopped")
		case <-time.After(q.cfg.CancelGrace):
			q.log.Error("❌ Workers still running after cancellation")
		}
		return ErrShutdownTimeout
	}
}
