// Package orchestrator turns dispatch requests into automation runs: it owns
// the session record, the browser lifetime and the bookkeeping around each
// automator call.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-hopeforjob-automation/internal/automator"
	"go-hopeforjob-automation/internal/browser"
	"go-hopeforjob-automation/internal/models"
	"go-hopeforjob-automation/internal/notify"
	"go-hopeforjob-automation/internal/queue"
	"go-hopeforjob-automation/internal/store"

	"github.com/sirupsen/logrus"
)

var (
	ErrNotCancellable  = errors.New("session is already finished")
	ErrNoQueue         = errors.New("orchestrator has no task queue")
	ErrSessionFinished = errors.New("session no longer accepts work")
	ErrSessionOwner    = errors.New("session belongs to another user")
	ErrAlreadyApplied  = errors.New("application is already past submission")
)

// OutcomeSkipped marks a job whose application is already tracked beyond
// submission and was left untouched.
const OutcomeSkipped automator.Outcome = "skipped"

// Opener acquires a fresh browser session for one platform.
type Opener interface {
	Open(ctx context.Context, platform string) (*browser.Session, error)
}

type Options struct {
	// ApplyDelay separates consecutive bulk apply attempts.
	ApplyDelay time.Duration
	// Retention is how long finished sessions are kept.
	Retention time.Duration
}

type Orchestrator struct {
	store    store.Store
	opener   Opener
	registry automator.Registry
	deps     automator.Deps
	notifier notify.Notifier
	opts     Options
	log      *logrus.Entry
	queue    *queue.Queue

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(st store.Store, opener Opener, registry automator.Registry, deps automator.Deps, notifier notify.Notifier, opts Options, log *logrus.Entry) *Orchestrator {
	if opts.ApplyDelay < 0 {
		opts.ApplyDelay = 0
	}
	if opts.Retention <= 0 {
		opts.Retention = 30 * 24 * time.Hour
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	deps.Store = st
	if deps.Log == nil {
		deps.Log = log
	}
	return &Orchestrator{
		store:    st,
		opener:   opener,
		registry: registry,
		deps:     deps,
		notifier: notifier,
		opts:     opts,
		log:      log.WithField("component", "orchestrator"),
		now:      time.Now,
		sleep: func(ctx context.Context, d time.Duration) error {
			return browser.RandomDelay(ctx, d, d)
		},
	}
}

// ApplicationResult reports one apply attempt.
type ApplicationResult struct {
	SessionID     string                   `json:"session_id"`
	ApplicationID string                   `json:"application_id,omitempty"`
	JobID         string                   `json:"job_id"`
	JobTitle      string                   `json:"job_title,omitempty"`
	Company       string                   `json:"company,omitempty"`
	Status        models.ApplicationStatus `json:"status"`
	Success       bool                     `json:"success"`
	Outcome       automator.Outcome        `json:"outcome"`
	Message       string                   `json:"message,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

// ---------------- SYNCHRONOUS SURFACE ----------------

// ScrapeJobs runs a scrape to completion. Run failures are recorded on the
// returned session, not returned as errors.
func (o *Orchestrator) ScrapeJobs(ctx context.Context, userID, platform string, c automator.Criteria) (*models.AutomationSession, error) {
	sess, err := o.newScrapeSession(ctx, userID, platform, c)
	if err != nil {
		return nil, err
	}
	o.execute(ctx, sess.ID)
	return o.store.GetSession(ctx, sess.ID)
}

// ApplyToJob applies to one job. With sessionID set the attempt is counted
// on that existing session instead of a new one; the session must belong to
// userID and still be pending or running.
func (o *Orchestrator) ApplyToJob(ctx context.Context, userID, jobID string, sessionID *string) (*ApplicationResult, error) {
	if sessionID != nil && *sessionID != "" {
		sess, err := o.store.GetSession(ctx, *sessionID)
		if err != nil {
			return nil, err
		}
		if sess.UserID != userID {
			return nil, fmt.Errorf("%w: %s", ErrSessionOwner, sess.ID)
		}
		if sess.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: %s is %s", ErrSessionFinished, sess.ID, sess.Status)
		}
		job, err := o.store.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		res := o.applyInSession(ctx, sess, job)
		return &res, nil
	}

	sess, err := o.newApplySession(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	o.execute(ctx, sess.ID)
	return o.applicationOutcome(ctx, sess.ID, jobID)
}

// BulkApply applies to every job in order inside one session.
func (o *Orchestrator) BulkApply(ctx context.Context, userID string, jobIDs []string, cfg BulkConfig) (*models.AutomationSession, error) {
	sess, err := o.newBulkSession(ctx, userID, jobIDs, cfg)
	if err != nil {
		return nil, err
	}
	o.execute(ctx, sess.ID)
	return o.store.GetSession(ctx, sess.ID)
}

// CleanupOldSessions deletes sessions created before now minus retention.
func (o *Orchestrator) CleanupOldSessions(ctx context.Context) (int, error) {
	cutoff := o.now().Add(-o.opts.Retention)
	n, err := o.store.DeleteSessionsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old sessions: %w", err)
	}
	o.log.Infof("🧹 Deleted %d sessions older than %s", n, cutoff.Format(time.RFC3339))
	return n, nil
}

// Cancel asks a pending or running session to stop at its next unit boundary.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID string) error {
	ok, err := o.store.SetSessionStatus(ctx, sessionID, models.SessionCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotCancellable
	}
	o.log.WithField("session_id", sessionID).Info("🛑 Cancellation requested")
	return nil
}

// ---------------- SESSION CREATION ----------------

// BulkConfig is the run configuration of a bulk apply.
type BulkConfig struct {
	JobIDs []string `json:"job_ids"`
	// DelaySeconds overrides the configured gap between attempts; nil keeps it.
	DelaySeconds *int `json:"delay_between_applications,omitempty"`
}

type scrapeConfig struct {
	automator.Criteria
}

type applyConfig struct {
	JobID string `json:"job_id"`
}

func (o *Orchestrator) newScrapeSession(ctx context.Context, userID, platform string, c automator.Criteria) (*models.AutomationSession, error) {
	if !o.registry.Supports(platform) {
		return nil, fmt.Errorf("%w: %q", automator.ErrUnsupportedPlatform, platform)
	}
	return o.createSession(ctx, userID, models.KindScrape, platform, scrapeConfig{c}, 0)
}

func (o *Orchestrator) newApplySession(ctx context.Context, userID, jobID string) (*models.AutomationSession, error) {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !o.registry.Supports(job.Source) {
		return nil, fmt.Errorf("%w: %q", automator.ErrUnsupportedPlatform, job.Source)
	}
	return o.createSession(ctx, userID, models.KindApply, job.Source, applyConfig{JobID: jobID}, 1)
}

func (o *Orchestrator) newBulkSession(ctx context.Context, userID string, jobIDs []string, cfg BulkConfig) (*models.AutomationSession, error) {
	cfg.JobIDs = jobIDs
	return o.createSession(ctx, userID, models.KindBulkApply, "multiple", cfg, len(jobIDs))
}

func (o *Orchestrator) createSession(ctx context.Context, userID string, kind models.SessionKind, platform string, cfg any, targeted int) (*models.AutomationSession, error) {
	config, err := toMap(cfg)
	if err != nil {
		return nil, err
	}
	sess := &models.AutomationSession{
		UserID:            userID,
		Kind:              kind,
		Status:            models.SessionPending,
		Platform:          platform,
		Config:            config,
		TotalJobsTargeted: targeted,
		Logs:              []string{},
	}
	if err := o.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

func (o *Orchestrator) applicationOutcome(ctx context.Context, sessionID, jobID string) (*ApplicationResult, error) {
	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if res, ok := sess.Results["application"]; ok {
		var out ApplicationResult
		if err := fromAny(res, &out); err == nil {
			return &out, nil
		}
	}
	// the run failed before reaching the job
	return &ApplicationResult{
		SessionID: sessionID,
		JobID:     jobID,
		Status:    models.AppFailed,
		Outcome:   automator.OutcomeFailed,
		Error:     sess.ErrorMessage,
	}, nil
}

func toMap(v any) (map[string]any, error) {
	out := map[string]any{}
	if err := fromAny(v, &out); err != nil {
		return nil, fmt.Errorf("failed to encode run config: %w", err)
	}
	return out, nil
}

// fromAny round-trips through JSON so a config read back from the database
// (numbers as float64) decodes the same as one built in process.
func fromAny(in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
