// Package automator defines the per-platform automation contract and the
// machinery shared by every platform: login, search, paginated scraping and
// the bounded multi-step apply flow.
package automator

import (
	"context"
	"fmt"
	"strings"

	"go-hopeforjob-automation/internal/ai"
	"go-hopeforjob-automation/internal/browser"
	"go-hopeforjob-automation/internal/models"
	"go-hopeforjob-automation/internal/secrets"
	"go-hopeforjob-automation/internal/store"

	"github.com/sirupsen/logrus"
)

// Automator drives one job board inside one browser session.
type Automator interface {
	Name() string
	Login(ctx context.Context) error
	// SearchJobs returns nil once the search was submitted, even if it yields nothing.
	SearchJobs(ctx context.Context, c Criteria) error
	ScrapeJobs(ctx context.Context, c Criteria) (*ScrapeResult, error)
	// ApplyToJob never returns nil and always carries the step log.
	ApplyToJob(ctx context.Context, job *models.JobListing, app *models.JobApplication) *ApplyResult
}

type Criteria struct {
	Keywords string `json:"keywords"`
	Location string `json:"location"`
	MaxPages int    `json:"max_pages"`
}

type ScrapeResult struct {
	Jobs         []models.JobListing `json:"jobs"`
	TotalFound   int                 `json:"total_found"`
	PagesScraped int                 `json:"pages_scraped"`
}

type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeFailed    Outcome = "failed"
	OutcomeExternal  Outcome = "external"
	OutcomeNoOption  Outcome = "no_option"
	OutcomeCancelled Outcome = "cancelled"
)

type ApplyResult struct {
	Success       bool              `json:"success"`
	Outcome       Outcome           `json:"outcome"`
	Message       string            `json:"message,omitempty"`
	Error         string            `json:"error,omitempty"`
	Logs          []string          `json:"logs"`
	Screenshots   []string          `json:"screenshots,omitempty"`
	CoverLetter   string            `json:"cover_letter,omitempty"`
	CustomAnswers map[string]string `json:"custom_answers,omitempty"`
}

// Limits bound the loops an automator may run.
type Limits struct {
	MaxSteps int
	MaxPages int
}

// Deps are the collaborators shared by every automator instance.
type Deps struct {
	Store    store.Store
	Secrets  secrets.Decrypter
	Resolver ai.FieldResolver // nil disables field resolution
	Log      *logrus.Entry
	Pacing   browser.Pacing
	Timeouts browser.Timeouts
	Limits   Limits
}

// Run binds an automator to the session record and user it works for.
type Run struct {
	SessionID string
	UserID    string
	// Cancelled is polled at unit boundaries. nil means never cancelled.
	Cancelled func(ctx context.Context) bool
}

type Factory func(sess *browser.Session, run Run, deps Deps) Automator

// Registry maps a lowercase platform name to its factory.
type Registry map[string]Factory

func (r Registry) New(platform string, sess *browser.Session, run Run, deps Deps) (Automator, error) {
	f, ok := r[strings.ToLower(strings.TrimSpace(platform))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
	return f(sess, run, deps), nil
}

func (r Registry) Supports(platform string) bool {
	_, ok := r[strings.ToLower(strings.TrimSpace(platform))]
	return ok
}
