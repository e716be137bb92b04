package linkedin

import (
	"context"
	"regexp"
	"time"

	"go-hopeforjob-automation/internal/automator"
	"go-hopeforjob-automation/internal/browser"
	"go-hopeforjob-automation/internal/models"
)

const (
	Name    = "linkedin"
	baseURL = "https://www.linkedin.com"
)

var (
	jobIDPattern = regexp.MustCompile(`/jobs/view/(?:[^/]*-)?(\d+)`)
	urnIDPattern = regexp.MustCompile(`(\d+)$`)
)

var loginForm = automator.LoginForm{
	URL:                   baseURL + "/login",
	UsernameSelector:      `input[name="session_key"]`,
	PasswordSelector:      `input[name="session_password"]`,
	SubmitSelector:        `button[type="submit"]`,
	AuthenticatedSelector: "#global-nav",
	RejectURLParts:        []string{"/login", "/checkpoint", "/uas/", "challenge"},
}

var searchForm = automator.SearchForm{
	URL:              baseURL + "/jobs/",
	KeywordsSelector: `input[aria-label="Search by title, skill, or company"]`,
	LocationSelector: `input[aria-label="City, state, or zip code"]`,
	SubmitSelector:   `button[aria-label="Search"]`,
}

var resultsLayout = automator.ResultsLayout{
	Source:     Name,
	BaseURL:    baseURL,
	Container:  ".jobs-search-results-list",
	Card:       ".job-search-card",
	Title:      ".job-search-card__title",
	Company:    ".job-search-card__subtitle",
	Location:   ".job-search-card__location",
	PostedDate: "time",
	Link:       ".job-search-card__title a",
	NextPage:   `button[aria-label="View next page"]`,
	ExternalID: func(card browser.Element, href string) string {
		if urn, _ := card.Attribute("data-entity-urn"); urn != "" {
			if m := urnIDPattern.FindString(urn); m != "" {
				return m
			}
		}
		return JobID(href)
	},
	CanonicalURL: func(id, _ string) string {
		return baseURL + "/jobs/view/" + id + "/"
	},
}

var triggers = automator.ApplyTriggers{
	InFlow:     `button[aria-label*="Easy Apply"]`,
	External:   `a[data-control-name="jobdetails_topcard_inapply"], button[aria-label*="Apply on company website"]`,
	InFlowWait: 5 * time.Second,
}

var flow = automator.FlowLayout{
	Container: ".jobs-easy-apply-modal",
	Fields:    "input, select, textarea",
	Continue: []string{
		`button[aria-label="Continue to next step"]`,
		`button[aria-label="Review your application"]`,
	},
	Submit:         `button[aria-label="Submit application"]`,
	Confirmation:   ".jobs-easy-apply-confirmation",
	ConfirmTimeout: 10 * time.Second,
}

// JobID pulls the numeric posting id out of a /jobs/view/ URL.
func JobID(href string) string {
	m := jobIDPattern.FindStringSubmatch(href)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// Automator drives LinkedIn job search and Easy Apply.
type Automator struct {
	*automator.Base
}

func New(sess *browser.Session, run automator.Run, deps automator.Deps) automator.Automator {
	return &Automator{Base: automator.NewBase(Name, sess, run, deps)}
}

func (a *Automator) Login(ctx context.Context) error {
	return a.Base.Login(ctx, loginForm)
}

func (a *Automator) SearchJobs(ctx context.Context, c automator.Criteria) error {
	return a.Search(ctx, loginForm, searchForm, c)
}

func (a *Automator) ScrapeJobs(ctx context.Context, c automator.Criteria) (*automator.ScrapeResult, error) {
	return a.Scrape(ctx, loginForm, searchForm, resultsLayout, c)
}

func (a *Automator) ApplyToJob(ctx context.Context, job *models.JobListing, app *models.JobApplication) *automator.ApplyResult {
	return a.Apply(ctx, loginForm, triggers, flow, job, app)
}
