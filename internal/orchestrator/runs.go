package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-hopeforjob-automation/internal/automator"
	"go-hopeforjob-automation/internal/filter"
	"go-hopeforjob-automation/internal/models"

	"github.com/sirupsen/logrus"
)

// execute moves a pending session to running, runs it and records the
// outcome. A session cancelled before it starts is left untouched. Nothing
// escapes: errors and panics end up on the session record.
func (o *Orchestrator) execute(ctx context.Context, sessionID string) {
	log := o.log.WithField("session_id", sessionID)

	started, err := o.store.SetSessionStatus(ctx, sessionID, models.SessionRunning)
	if err != nil {
		log.WithError(err).Error("❌ Could not start session")
		return
	}
	if !started {
		log.Info("⏭️ Session is no longer pending, skipping")
		return
	}
	sess, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		log.WithError(err).Error("❌ Could not load session")
		return
	}
	log = log.WithFields(logrus.Fields{"kind": sess.Kind, "platform": sess.Platform})
	log.Info("🚀 Session started")

	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("unexpected failure: %v", r)
			}
		}()
		switch sess.Kind {
		case models.KindScrape:
			runErr = o.runScrape(ctx, sess)
		case models.KindApply:
			runErr = o.runApply(ctx, sess)
		case models.KindBulkApply:
			runErr = o.runBulk(ctx, sess)
		default:
			runErr = fmt.Errorf("unsupported session kind %q", sess.Kind)
		}
	}()
	o.finish(ctx, sess, runErr)
}

// finish writes the terminal state. A cancellation already stored wins over
// whatever the run reports.
func (o *Orchestrator) finish(ctx context.Context, sess *models.AutomationSession, runErr error) {
	ctx = context.WithoutCancel(ctx)
	log := o.log.WithField("session_id", sess.ID)

	now := o.now()
	sess.CompletedAt = &now
	switch {
	case runErr == nil:
		sess.Status = models.SessionCompleted
	case errors.Is(runErr, automator.ErrCancelled):
		sess.Status = models.SessionCancelled
		sess.AppendLog(stamp(now, "run cancelled"))
	default:
		sess.Status = models.SessionFailed
		sess.ErrorMessage = runErr.Error()
		sess.AppendLog(stamp(now, "run failed: "+runErr.Error()))
	}

	if err := o.store.UpdateSession(ctx, sess); err != nil {
		log.WithError(err).Error("❌ Could not record session outcome")
		return
	}
	if stored, err := o.store.GetSession(ctx, sess.ID); err == nil {
		*sess = *stored
	}

	entry := log.WithFields(logrus.Fields{
		"status":    sess.Status,
		"processed": sess.JobsProcessed,
		"submitted": sess.ApplicationsSubmitted,
		"failed":    sess.ApplicationsFailed,
	})
	if sess.Status == models.SessionFailed {
		entry.WithField("error", sess.ErrorMessage).Error("❌ Session failed")
	} else {
		entry.Info("✅ Session finished")
	}

	if err := o.notifier.SessionFinished(ctx, sess); err != nil {
		log.WithError(err).Warn("⚠️ Could not send session summary")
	}
}

func stamp(t time.Time, msg string) string {
	return t.Format("15:04:05") + " " + msg
}

func (o *Orchestrator) isCancelled(ctx context.Context, sessionID string) bool {
	status, err := o.store.SessionStatus(ctx, sessionID)
	return err == nil && status == models.SessionCancelled
}

func (o *Orchestrator) runFor(sess *models.AutomationSession) automator.Run {
	id := sess.ID
	return automator.Run{
		SessionID: id,
		UserID:    sess.UserID,
		Cancelled: func(ctx context.Context) bool { return o.isCancelled(ctx, id) },
	}
}

// openAutomator acquires a browser and binds a platform automator to it.
// release must be called on every path once the automator is no longer used.
func (o *Orchestrator) openAutomator(ctx context.Context, sess *models.AutomationSession, platform string) (automator.Automator, func(), error) {
	if !o.registry.Supports(platform) {
		return nil, nil, fmt.Errorf("%w: %q", automator.ErrUnsupportedPlatform, platform)
	}
	bs, err := o.opener.Open(ctx, platform)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open browser: %w", err)
	}
	release := func() {
		if err := bs.Close(); err != nil {
			o.log.WithError(err).Warn("⚠️ Browser close reported errors")
		}
	}
	a, err := o.registry.New(platform, bs, o.runFor(sess), o.deps)
	if err != nil {
		release()
		return nil, nil, err
	}
	return a, release, nil
}

// ---------------- SCRAPE ----------------

func (o *Orchestrator) runScrape(ctx context.Context, sess *models.AutomationSession) error {
	var cfg scrapeConfig
	if err := fromAny(sess.Config, &cfg); err != nil {
		return fmt.Errorf("invalid scrape config: %w", err)
	}

	a, release, err := o.openAutomator(ctx, sess, sess.Platform)
	if err != nil {
		return err
	}
	defer release()

	sess.AppendLog(stamp(o.now(), fmt.Sprintf("scraping %s for %q in %q", sess.Platform, cfg.Keywords, cfg.Location)))
	res, err := a.ScrapeJobs(ctx, cfg.Criteria)
	if err != nil {
		return err
	}

	fc := filter.Criteria{Keywords: cfg.Keywords, Location: cfg.Location}
	newJobs := 0
	jobs := make([]map[string]any, 0, len(res.Jobs))
	for i := range res.Jobs {
		job := &res.Jobs[i]
		job.MatchScore = filter.CalculateMatchScore(*job, fc)
		created, err := o.store.UpsertJobListing(ctx, job)
		if err != nil {
			o.log.WithError(err).WithField("external_id", job.ExternalID).Warn("⚠️ Could not store job listing")
			continue
		}
		if created {
			newJobs++
		}
		jobs = append(jobs, map[string]any{
			"id":          job.ID,
			"external_id": job.ExternalID,
			"title":       job.Title,
			"company":     job.Company,
			"location":    job.Location,
			"source_url":  job.URL,
			"match_score": job.MatchScore,
		})
	}

	sess.TotalJobsTargeted = res.TotalFound
	sess.JobsProcessed = len(res.Jobs)
	sess.Results = map[string]any{
		"total_found":   res.TotalFound,
		"pages_scraped": res.PagesScraped,
		"new_jobs":      newJobs,
		"jobs":          jobs,
	}
	sess.AppendLog(stamp(o.now(), fmt.Sprintf("found %d jobs (%d new) on %d pages", len(res.Jobs), newJobs, res.PagesScraped)))

	if o.isCancelled(ctx, sess.ID) {
		return automator.ErrCancelled
	}
	return nil
}

// ---------------- APPLY ----------------

func (o *Orchestrator) runApply(ctx context.Context, sess *models.AutomationSession) error {
	var cfg applyConfig
	if err := fromAny(sess.Config, &cfg); err != nil {
		return fmt.Errorf("invalid apply config: %w", err)
	}
	job, err := o.store.GetJob(ctx, cfg.JobID)
	if err != nil {
		return err
	}

	res, err := o.applyWithNewBrowser(ctx, sess, job)
	sess.Results = map[string]any{"application": res}
	if err != nil {
		return err
	}
	if res.Outcome == automator.OutcomeCancelled {
		return automator.ErrCancelled
	}
	return nil
}

// applyInSession counts one attempt on an existing session, completing it
// once every targeted job has been processed.
func (o *Orchestrator) applyInSession(ctx context.Context, sess *models.AutomationSession, job *models.JobListing) ApplicationResult {
	if sess.Status == models.SessionPending {
		if _, err := o.store.SetSessionStatus(ctx, sess.ID, models.SessionRunning); err == nil {
			sess.Status = models.SessionRunning
		}
	}
	targeted := sess.TotalJobsTargeted > 0
	if sess.JobsProcessed+1 > sess.TotalJobsTargeted {
		sess.TotalJobsTargeted = sess.JobsProcessed + 1
	}

	res, err := o.applyWithNewBrowser(ctx, sess, job)
	if err != nil {
		o.log.WithError(err).WithField("session_id", sess.ID).Warn("⚠️ Apply could not run")
	}
	if targeted && sess.JobsProcessed >= sess.TotalJobsTargeted && sess.Status == models.SessionRunning {
		o.finish(ctx, sess, nil)
	}
	return res
}

// applyWithNewBrowser creates the application record first so the attempt is
// visible even when the browser or login fails.
func (o *Orchestrator) applyWithNewBrowser(ctx context.Context, sess *models.AutomationSession, job *models.JobListing) (ApplicationResult, error) {
	app, err := o.prepareApplication(ctx, sess, job)
	if errors.Is(err, ErrAlreadyApplied) {
		return o.skipAttempt(ctx, sess, job, app), nil
	}
	if err != nil {
		return o.failAttempt(ctx, sess, job, nil, err), err
	}

	a, release, err := o.openAutomator(ctx, sess, job.Source)
	if err != nil {
		return o.failAttempt(ctx, sess, job, app, err), err
	}
	defer release()

	if err := a.Login(ctx); err != nil {
		return o.failAttempt(ctx, sess, job, app, err), err
	}
	return o.attempt(ctx, sess, a, job, app), nil
}

func (o *Orchestrator) prepareApplication(ctx context.Context, sess *models.AutomationSession, job *models.JobListing) (*models.JobApplication, error) {
	sessionID := sess.ID
	app, err := o.store.GetOrCreateApplication(ctx, sess.UserID, job.ID, &sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	if !reapplicable(app.Status) {
		return app, ErrAlreadyApplied
	}
	app.Status = models.AppPending
	app.Automated = true
	app.SessionID = &sessionID
	app.ErrorDetails = ""
	if err := o.store.UpdateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to update application: %w", err)
	}
	return app, nil
}

// attempt runs one apply and records it on the application and the session.
func (o *Orchestrator) attempt(ctx context.Context, sess *models.AutomationSession, a automator.Automator, job *models.JobListing, app *models.JobApplication) ApplicationResult {
	log := o.log.WithFields(logrus.Fields{"session_id": sess.ID, "job_id": job.ID})
	log.Infof("📨 Applying to %s at %s", job.Title, job.Company)

	res := a.ApplyToJob(ctx, job, app)

	now := o.now()
	app.AutomationLog = res.Logs
	app.Screenshots = append(app.Screenshots, res.Screenshots...)
	if res.CoverLetter != "" {
		app.CoverLetter = res.CoverLetter
	}
	if len(res.CustomAnswers) > 0 {
		app.CustomAnswers = res.CustomAnswers
	}
	if res.Success {
		app.Status = models.AppSubmitted
		app.AppliedAt = &now
		sess.ApplicationsSubmitted++
	} else {
		app.Status = models.AppFailed
		app.ErrorDetails = res.Error
		sess.ApplicationsFailed++
	}
	sess.JobsProcessed++
	sess.AppendLog(stamp(now, fmt.Sprintf("%s: %s at %s", res.Outcome, job.Title, job.Company)))

	if err := o.store.UpdateApplication(ctx, app); err != nil {
		log.WithError(err).Error("❌ Could not record application")
	}
	o.saveProgress(ctx, sess)

	if res.Success {
		log.Info("✅ Application submitted")
	} else {
		log.WithField("outcome", res.Outcome).Warnf("⚠️ Application not submitted: %s", res.Error)
	}

	return ApplicationResult{
		SessionID:     sess.ID,
		ApplicationID: app.ID,
		JobID:         job.ID,
		JobTitle:      job.Title,
		Company:       job.Company,
		Status:        app.Status,
		Success:       res.Success,
		Outcome:       res.Outcome,
		Message:       res.Message,
		Error:         res.Error,
	}
}

// failAttempt records an attempt that never reached the apply flow.
func (o *Orchestrator) failAttempt(ctx context.Context, sess *models.AutomationSession, job *models.JobListing, app *models.JobApplication, cause error) ApplicationResult {
	ctx = context.WithoutCancel(ctx)
	res := ApplicationResult{
		SessionID: sess.ID,
		JobID:     job.ID,
		JobTitle:  job.Title,
		Company:   job.Company,
		Status:    models.AppFailed,
		Outcome:   automator.OutcomeFailed,
		Error:     cause.Error(),
	}
	if app != nil {
		app.Status = models.AppFailed
		app.ErrorDetails = cause.Error()
		app.AutomationLog = append(app.AutomationLog, stamp(o.now(), cause.Error()))
		if err := o.store.UpdateApplication(ctx, app); err != nil {
			o.log.WithError(err).Error("❌ Could not record application")
		}
		res.ApplicationID = app.ID
	}
	sess.JobsProcessed++
	sess.ApplicationsFailed++
	sess.AppendLog(stamp(o.now(), fmt.Sprintf("failed: %s at %s: %v", job.Title, job.Company, cause)))
	o.saveProgress(ctx, sess)
	return res
}

// reapplicable reports whether an existing application may be attempted
// again. Later statuses are owned by response tracking.
func reapplicable(s models.ApplicationStatus) bool {
	return s == "" || s == models.AppPending || s == models.AppFailed
}

// skipAttempt counts a job whose application was left as it is.
func (o *Orchestrator) skipAttempt(ctx context.Context, sess *models.AutomationSession, job *models.JobListing, app *models.JobApplication) ApplicationResult {
	sess.JobsProcessed++
	sess.AppendLog(stamp(o.now(), fmt.Sprintf("skipped: %s at %s is already %s", job.Title, job.Company, app.Status)))
	o.saveProgress(ctx, sess)
	o.log.WithFields(logrus.Fields{"session_id": sess.ID, "job_id": job.ID, "status": app.Status}).Info("⏭️ Application already tracked, skipping")
	return ApplicationResult{
		SessionID:     sess.ID,
		ApplicationID: app.ID,
		JobID:         job.ID,
		JobTitle:      job.Title,
		Company:       job.Company,
		Status:        app.Status,
		Outcome:       OutcomeSkipped,
		Message:       "application already " + string(app.Status),
	}
}

func (o *Orchestrator) saveProgress(ctx context.Context, sess *models.AutomationSession) {
	if err := o.store.UpdateSession(context.WithoutCancel(ctx), sess); err != nil {
		o.log.WithError(err).WithField("session_id", sess.ID).Warn("⚠️ Could not save session progress")
	}
}

// ---------------- BULK APPLY ----------------

// platformPool keeps one signed-in automator per platform for a bulk run.
// A platform whose browser or login failed keeps failing its jobs without
// retrying.
type platformPool struct {
	o       *Orchestrator
	sess    *models.AutomationSession
	entries map[string]*poolEntry
}

type poolEntry struct {
	a       automator.Automator
	release func()
	err     error
}

func (p *platformPool) get(ctx context.Context, platform string) (automator.Automator, error) {
	if e, ok := p.entries[platform]; ok {
		return e.a, e.err
	}
	e := &poolEntry{}
	p.entries[platform] = e

	a, release, err := p.o.openAutomator(ctx, p.sess, platform)
	if err != nil {
		e.err = err
		return nil, err
	}
	if err := a.Login(ctx); err != nil {
		release()
		e.err = err
		return nil, err
	}
	e.a, e.release = a, release
	return a, nil
}

func (p *platformPool) close() {
	for _, e := range p.entries {
		if e.release != nil {
			e.release()
		}
	}
}

func (o *Orchestrator) runBulk(ctx context.Context, sess *models.AutomationSession) error {
	var cfg BulkConfig
	if err := fromAny(sess.Config, &cfg); err != nil {
		return fmt.Errorf("invalid bulk config: %w", err)
	}
	delay := o.opts.ApplyDelay
	if cfg.DelaySeconds != nil && *cfg.DelaySeconds >= 0 {
		delay = time.Duration(*cfg.DelaySeconds) * time.Second
	}

	pool := &platformPool{o: o, sess: sess, entries: make(map[string]*poolEntry)}
	defer pool.close()

	results := make([]ApplicationResult, 0, len(cfg.JobIDs))
	for i, jobID := range cfg.JobIDs {
		if o.isCancelled(ctx, sess.ID) {
			sess.AppendLog(stamp(o.now(), fmt.Sprintf("cancelled after %d of %d jobs", i, len(cfg.JobIDs))))
			return automator.ErrCancelled
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		results = append(results, o.bulkItem(ctx, sess, pool, jobID))
		sess.Results = map[string]any{"applications": results}
		o.saveProgress(ctx, sess)

		if i < len(cfg.JobIDs)-1 && delay > 0 {
			if err := o.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	sess.AppendLog(stamp(o.now(), fmt.Sprintf("bulk apply done: %d submitted, %d failed", sess.ApplicationsSubmitted, sess.ApplicationsFailed)))
	return nil
}

func (o *Orchestrator) bulkItem(ctx context.Context, sess *models.AutomationSession, pool *platformPool, jobID string) ApplicationResult {
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return o.failAttempt(ctx, sess, &models.JobListing{ID: jobID}, nil, err)
	}
	app, err := o.prepareApplication(ctx, sess, job)
	if errors.Is(err, ErrAlreadyApplied) {
		return o.skipAttempt(ctx, sess, job, app)
	}
	if err != nil {
		return o.failAttempt(ctx, sess, job, nil, err)
	}
	a, err := pool.get(ctx, job.Source)
	if err != nil {
		return o.failAttempt(ctx, sess, job, app, err)
	}
	return o.attempt(ctx, sess, a, job, app)
}
