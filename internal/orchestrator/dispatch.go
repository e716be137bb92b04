package orchestrator

import (
	"context"
	"fmt"

	"go-hopeforjob-automation/internal/automator"
	"go-hopeforjob-automation/internal/models"
	"go-hopeforjob-automation/internal/queue"

	"github.com/robfig/cron/v3"
)

const (
	OpScrape    queue.Operation = "scrape"
	OpApply     queue.Operation = "apply"
	OpBulkApply queue.Operation = "bulk_apply"
	OpCleanup   queue.Operation = "cleanup"
)

// RegisterHandlers binds the run kinds to q. Dispatch* calls need it.
func (o *Orchestrator) RegisterHandlers(q *queue.Queue) {
	o.queue = q
	run := func(ctx context.Context, t queue.Task) error {
		id, ok := t.Payload.(string)
		if !ok {
			return fmt.Errorf("task %s: payload is not a session id", t.ID)
		}
		o.execute(ctx, id)
		return nil
	}
	q.RegisterHandler(OpScrape, run)
	q.RegisterHandler(OpApply, run)
	q.RegisterHandler(OpBulkApply, run)
	q.RegisterHandler(OpCleanup, func(ctx context.Context, t queue.Task) error {
		_, err := o.CleanupOldSessions(ctx)
		return err
	})
}

// DispatchScrape creates a pending scrape session, queues it and returns its id.
func (o *Orchestrator) DispatchScrape(ctx context.Context, userID, platform string, c automator.Criteria) (string, error) {
	sess, err := o.newScrapeSession(ctx, userID, platform, c)
	if err != nil {
		return "", err
	}
	return o.enqueue(ctx, OpScrape, sess)
}

func (o *Orchestrator) DispatchApply(ctx context.Context, userID, jobID string) (string, error) {
	sess, err := o.newApplySession(ctx, userID, jobID)
	if err != nil {
		return "", err
	}
	return o.enqueue(ctx, OpApply, sess)
}

func (o *Orchestrator) DispatchBulkApply(ctx context.Context, userID string, jobIDs []string, cfg BulkConfig) (string, error) {
	sess, err := o.newBulkSession(ctx, userID, jobIDs, cfg)
	if err != nil {
		return "", err
	}
	return o.enqueue(ctx, OpBulkApply, sess)
}

// DispatchCleanup queues a cleanup and returns the task id.
func (o *Orchestrator) DispatchCleanup() (string, error) {
	if o.queue == nil {
		return "", ErrNoQueue
	}
	return o.queue.Enqueue(OpCleanup, nil)
}

// enqueue fails the session when it cannot be queued so it never stays pending.
func (o *Orchestrator) enqueue(ctx context.Context, op queue.Operation, sess *models.AutomationSession) (string, error) {
	err := ErrNoQueue
	if o.queue != nil {
		_, err = o.queue.Enqueue(op, sess.ID)
	}
	if err == nil {
		o.log.WithField("session_id", sess.ID).Infof("📥 Queued %s", op)
		return sess.ID, nil
	}

	now := o.now()
	sess.Status = models.SessionFailed
	sess.ErrorMessage = err.Error()
	sess.CompletedAt = &now
	if uerr := o.store.UpdateSession(ctx, sess); uerr != nil {
		o.log.WithError(uerr).Error("❌ Could not mark unqueued session failed")
	}
	return "", fmt.Errorf("failed to queue %s: %w", op, err)
}

// ScheduleCleanup runs a cleanup on the cron spec until the returned cron is stopped.
func (o *Orchestrator) ScheduleCleanup(spec string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		o.log.Info("🔄 Starting scheduled session cleanup...")
		if _, err := o.DispatchCleanup(); err != nil {
			o.log.WithError(err).Error("❌ Scheduled cleanup could not be queued")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
