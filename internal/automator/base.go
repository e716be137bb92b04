package automator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-hopeforjob-automation/internal/browser"
	"go-hopeforjob-automation/internal/dedup"
	"go-hopeforjob-automation/internal/models"
	"go-hopeforjob-automation/internal/store"

	"github.com/sirupsen/logrus"
)

// LoginForm describes a platform's sign-in page.
type LoginForm struct {
	URL              string
	UsernameSelector string
	// ContinueSelector is clicked between username and password on two-step forms.
	ContinueSelector string
	PasswordSelector string
	SubmitSelector   string
	// AuthenticatedSelector only exists on pages served to a signed-in user.
	AuthenticatedSelector string
	// RejectURLParts mark a post-submit URL that is not an authenticated page.
	RejectURLParts []string
}

type SearchForm struct {
	URL              string
	KeywordsSelector string
	LocationSelector string
	SubmitSelector   string
}

// ResultsLayout locates job cards on a search results page.
type ResultsLayout struct {
	Source     string
	BaseURL    string
	Container  string
	Card       string
	Title      string
	Company    string
	Location   string
	PostedDate string
	Link       string
	NextPage   string
	// ExternalID derives the platform job id from a card and its link.
	ExternalID func(card browser.Element, href string) string
	// CanonicalURL rebuilds a stable job URL; nil keeps the link without its query.
	CanonicalURL func(externalID, href string) string
}

// ApplyTriggers are the two controls a job page may offer.
type ApplyTriggers struct {
	InFlow     string
	External   string
	InFlowWait time.Duration
}

// Base carries the state and helpers every platform automator embeds.
type Base struct {
	*browser.Interactor

	Platform string
	Session  *browser.Session
	Run      Run
	Deps     Deps

	log      *logrus.Entry
	loggedIn bool
}

func NewBase(platform string, sess *browser.Session, run Run, deps Deps) *Base {
	log := deps.Log.WithFields(logrus.Fields{"platform": platform, "session_id": run.SessionID})
	return &Base{
		Interactor: browser.NewInteractor(sess.Page, deps.Pacing, deps.Timeouts, log),
		Platform:   platform,
		Session:    sess,
		Run:        run,
		Deps:       deps,
		log:        log,
	}
}

func (b *Base) Name() string {
	return b.Platform
}

func (b *Base) Log() *logrus.Entry {
	return b.log
}

// Cancelled reports whether the run should stop at the next unit boundary.
func (b *Base) Cancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return b.Run.Cancelled != nil && b.Run.Cancelled(ctx)
}

// ---------------- LOGIN ----------------

// Login signs in once per automator. No internal retry.
func (b *Base) Login(ctx context.Context, form LoginForm) error {
	if b.loggedIn {
		return nil
	}
	b.log.Info("🔐 Logging in...")

	cred, err := b.Deps.Store.GetCredentials(ctx, b.Run.UserID, b.Platform)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNoCredentials, b.Platform)
		}
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	if err := b.Goto(ctx, form.URL); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if reason, blocked := browser.DetectChallenge(b.Page()); blocked {
		b.Session.Screenshot(b.Platform + "-login-blocked")
		return fmt.Errorf("%w: %s", ErrBlocked, reason)
	}

	// a seeded cookie jar may already be signed in
	if b.isAuthenticated(form) {
		b.loggedIn = true
		b.recordVerification(ctx, cred, models.VerificationVerified)
		b.log.Info("✅ Session already authenticated")
		return nil
	}

	password, err := b.Deps.Secrets.Decrypt(cred.EncryptedPassword)
	if err != nil {
		b.recordVerification(ctx, cred, models.VerificationFailed)
		return fmt.Errorf("%w: could not decrypt stored secret", ErrAuthFailed)
	}

	filled := b.SafeFill(ctx, form.UsernameSelector, cred.Username, 0)
	if filled && form.ContinueSelector != "" {
		filled = b.SafeClick(ctx, form.ContinueSelector, 0)
	}
	filled = filled &&
		b.SafeFill(ctx, form.PasswordSelector, password, 0) &&
		b.SafeClick(ctx, form.SubmitSelector, 0)
	if !filled {
		b.recordVerification(ctx, cred, models.VerificationFailed)
		return fmt.Errorf("%w: login form not usable", ErrAuthFailed)
	}

	b.WaitForElement(ctx, form.AuthenticatedSelector, 0)

	if reason, blocked := browser.DetectChallenge(b.Page()); blocked {
		b.Session.Screenshot(b.Platform + "-login-challenge")
		return fmt.Errorf("%w: %s", ErrBlocked, reason)
	}
	if !b.isAuthenticated(form) {
		b.recordVerification(ctx, cred, models.VerificationFailed)
		b.Session.Screenshot(b.Platform + "-login-failed")
		return fmt.Errorf("%w: landed on %s", ErrAuthFailed, b.Page().URL())
	}

	b.loggedIn = true
	b.recordVerification(ctx, cred, models.VerificationVerified)
	b.log.Info("✅ Login confirmed.")
	return nil
}

// isAuthenticated needs both a clean URL and the signed-in marker.
func (b *Base) isAuthenticated(form LoginForm) bool {
	u := strings.ToLower(b.Page().URL())
	for _, part := range form.RejectURLParts {
		if strings.Contains(u, part) {
			return false
		}
	}
	return b.Exists(form.AuthenticatedSelector)
}

func (b *Base) recordVerification(ctx context.Context, cred *models.PlatformCredentials, status models.VerificationStatus) {
	if cred.VerificationStatus == status && cred.LastVerified != nil && time.Since(*cred.LastVerified) < time.Minute {
		return
	}
	if err := b.Deps.Store.UpdateCredentialVerification(ctx, cred.ID, status, time.Now()); err != nil {
		b.log.WithError(err).Warn("⚠️ Could not record credential verification")
		return
	}
	now := time.Now()
	cred.VerificationStatus = status
	cred.LastVerified = &now
}

// ---------------- SEARCH ----------------

func (b *Base) Search(ctx context.Context, login LoginForm, form SearchForm, c Criteria) error {
	if err := b.Login(ctx, login); err != nil {
		return err
	}
	b.log.WithFields(logrus.Fields{"keywords": c.Keywords, "location": c.Location}).Info("🔍 Searching jobs")

	if err := b.Goto(ctx, form.URL); err != nil {
		return fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	if reason, blocked := browser.DetectChallenge(b.Page()); blocked {
		return fmt.Errorf("%w: %s", ErrBlocked, reason)
	}
	if !b.SafeFill(ctx, form.KeywordsSelector, c.Keywords, 0) {
		return fmt.Errorf("%w: keywords field", ErrSearchFailed)
	}
	if c.Location != "" && !b.SafeFill(ctx, form.LocationSelector, c.Location, 0) {
		return fmt.Errorf("%w: location field", ErrSearchFailed)
	}
	if !b.SafeClick(ctx, form.SubmitSelector, 0) {
		return fmt.Errorf("%w: submit control", ErrSearchFailed)
	}
	_ = b.Pause(ctx)
	return nil
}

// ---------------- SCRAPE ----------------

// Scrape searches, then walks at most maxPages result pages.
func (b *Base) Scrape(ctx context.Context, login LoginForm, form SearchForm, layout ResultsLayout, c Criteria) (*ScrapeResult, error) {
	if err := b.Search(ctx, login, form, c); err != nil {
		return nil, err
	}
	maxPages := c.MaxPages
	if maxPages <= 0 {
		maxPages = b.Deps.Limits.MaxPages
	}
	if maxPages <= 0 {
		maxPages = 3
	}
	return b.Paginate(ctx, layout, maxPages)
}

// Paginate extracts cards from the current results page and follows the
// next-page control while it exists, is enabled and MaxPages allows.
func (b *Base) Paginate(ctx context.Context, layout ResultsLayout, maxPages int) (*ScrapeResult, error) {
	res := &ScrapeResult{Jobs: []models.JobListing{}}
	seen := dedup.New()

	for page := 1; page <= maxPages; page++ {
		if b.Cancelled(ctx) {
			b.log.Info("🛑 Cancellation observed, stopping pagination")
			break
		}
		if !b.WaitForElement(ctx, layout.Container, 0) {
			if page == 1 {
				if reason, blocked := browser.DetectChallenge(b.Page()); blocked {
					return res, fmt.Errorf("%w: %s", ErrBlocked, reason)
				}
			}
			b.log.Warnf("⚠️ Results list not found on page %d", page)
			break
		}
		b.HumanScroll(ctx)

		cards, err := b.Page().QueryAll(layout.Card)
		if err != nil {
			b.log.WithError(err).Warnf("⚠️ Could not list cards on page %d", page)
			break
		}
		res.PagesScraped++
		res.TotalFound += len(cards)
		b.log.Infof("📄 Page %d: %d cards", page, len(cards))

		for idx, card := range cards {
			job, ok := extractCard(card, layout)
			if !ok {
				b.log.Debugf("skipping card %d on page %d", idx, page)
				continue
			}
			if !seen.Add(job.ExternalID) {
				continue
			}
			res.Jobs = append(res.Jobs, job)
		}

		if page == maxPages || !b.advance(ctx, layout.NextPage) {
			break
		}
	}

	b.log.Infof("✅ Scraped %d jobs from %d pages", len(res.Jobs), res.PagesScraped)
	return res, nil
}

func (b *Base) advance(ctx context.Context, nextSelector string) bool {
	next, err := b.Page().Query(nextSelector)
	if err != nil || next == nil {
		return false
	}
	if disabled, err := next.IsDisabled(); err != nil || disabled {
		return false
	}
	if err := next.Click(); err != nil {
		b.log.WithError(err).Warn("⚠️ Next page click failed")
		return false
	}
	_ = b.Pause(ctx)
	return true
}

func extractCard(card browser.Element, layout ResultsLayout) (models.JobListing, bool) {
	title := childText(card, layout.Title)
	if title == "" {
		return models.JobListing{}, false
	}

	href := ""
	if link, err := card.Query(layout.Link); err == nil && link != nil {
		href, _ = link.Attribute("href")
	}

	id := ""
	if layout.ExternalID != nil {
		id = layout.ExternalID(card, href)
	}
	url := absoluteURL(layout.BaseURL, href)
	if layout.CanonicalURL != nil && id != "" {
		url = layout.CanonicalURL(id, href)
	}
	if id == "" {
		id = url
	}
	if id == "" {
		return models.JobListing{}, false
	}

	now := time.Now()
	return models.JobListing{
		Source:     layout.Source,
		ExternalID: id,
		Title:      title,
		Company:    childText(card, layout.Company),
		Location:   childText(card, layout.Location),
		PostedDate: postedDate(card, layout.PostedDate),
		URL:        url,
		ScrapedAt:  &now,
	}, true
}

func childText(parent browser.Element, selector string) string {
	if selector == "" {
		return ""
	}
	el, err := parent.Query(selector)
	if err != nil || el == nil {
		return ""
	}
	text, err := el.InnerText()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// postedDate prefers a machine readable datetime attribute over the label.
func postedDate(card browser.Element, selector string) string {
	if selector == "" {
		return ""
	}
	el, err := card.Query(selector)
	if err != nil || el == nil {
		return ""
	}
	if dt, _ := el.Attribute("datetime"); dt != "" {
		return dt
	}
	text, _ := el.InnerText()
	return strings.TrimSpace(text)
}

// absoluteURL drops tracking query params so one job keeps one URL.
func absoluteURL(base, href string) string {
	if href == "" {
		return ""
	}
	if !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
	}
	return strings.SplitN(href, "?", 2)[0]
}

// ---------------- APPLY ----------------

// Apply ensures login, opens the job page and dispatches on the apply path found.
func (b *Base) Apply(ctx context.Context, login LoginForm, triggers ApplyTriggers, flow FlowLayout, job *models.JobListing, app *models.JobApplication) (res *ApplyResult) {
	j := NewJournal(b.log.WithField("job_id", job.ID))
	j.Add("apply started: %s at %s", job.Title, job.Company)

	defer func() {
		if r := recover(); r != nil {
			j.Add("unexpected failure: %v", r)
			res = b.failed(j, fmt.Sprintf("unexpected failure: %v", r), "")
		}
		res.Logs = j.Lines()
	}()

	if b.Cancelled(ctx) {
		j.Add("cancelled before start")
		return &ApplyResult{Outcome: OutcomeCancelled, Error: ErrCancelled.Error()}
	}

	if err := b.Login(ctx, login); err != nil {
		j.Add("login failed: %v", err)
		return b.failed(j, err.Error(), "")
	}
	j.Add("login ok")

	profile, err := b.Deps.Store.GetProfile(ctx, b.Run.UserID)
	if err != nil {
		j.Add("profile unavailable: %v", err)
		return b.failed(j, fmt.Sprintf("profile unavailable: %v", err), "")
	}

	if err := b.Goto(ctx, job.URL); err != nil {
		j.Add("navigation failed: %v", err)
		return b.failed(j, err.Error(), "apply-nav")
	}
	j.Add("opened %s", job.URL)
	if reason, blocked := browser.DetectChallenge(b.Page()); blocked {
		j.Add("blocked: %s", reason)
		return b.failed(j, fmt.Sprintf("%v: %s", ErrBlocked, reason), "apply-blocked")
	}

	wait := triggers.InFlowWait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	if b.WaitForElement(ctx, triggers.InFlow, wait) {
		j.Add("in-flow apply path detected")
		if !b.SafeClick(ctx, triggers.InFlow, 0) {
			j.Add("could not open apply flow")
			return b.failed(j, "could not open apply flow", "apply-open")
		}
		letter := app.CoverLetter
		if letter == "" {
			letter = GenerateCoverLetter(profile.CoverLetterTemplate, job, profile)
		}
		f := NewApplyFlow(b, flow, NewFieldFiller(b, job, profile, letter))
		res := f.Run(ctx, j)
		if !res.Success && res.Outcome == OutcomeFailed {
			if shot := b.Session.Screenshot(b.Platform + "-apply-failed"); shot != "" {
				res.Screenshots = append(res.Screenshots, shot)
			}
		}
		return res
	}

	if b.Exists(triggers.External) {
		j.Add("external apply path detected")
		return b.external(j)
	}

	j.Add("%s", NoApplyOptionMessage)
	return &ApplyResult{Outcome: OutcomeNoOption, Error: NoApplyOptionMessage}
}

// external is the redirect handler: completion needs a human.
func (b *Base) external(j *Journal) *ApplyResult {
	j.Add("manual action required")
	return &ApplyResult{Outcome: OutcomeExternal, Error: ExternalApplyMessage}
}

func (b *Base) failed(j *Journal, msg, shotName string) *ApplyResult {
	res := &ApplyResult{Outcome: OutcomeFailed, Error: msg}
	if shotName != "" {
		if shot := b.Session.Screenshot(b.Platform + "-" + shotName); shot != "" {
			j.Add("screenshot: %s", shot)
			res.Screenshots = append(res.Screenshots, shot)
		}
	}
	return res
}
