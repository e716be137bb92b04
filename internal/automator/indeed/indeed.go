package indeed

import (
	"context"
	"net/url"
	"time"

	"go-hopeforjob-automation/internal/automator"
	"go-hopeforjob-automation/internal/browser"
	"go-hopeforjob-automation/internal/models"
)

const (
	Name    = "indeed"
	baseURL = "https://www.indeed.com"
)

// Indeed signs in on a two-step form: email, continue, then password.
var loginForm = automator.LoginForm{
	URL:                   "https://secure.indeed.com/auth",
	UsernameSelector:      `input[name="__email"]`,
	ContinueSelector:      `button[data-tn-element="auth-page-email-submit-button"]`,
	PasswordSelector:      `input[name="__password"]`,
	SubmitSelector:        `button[data-tn-element="auth-page-sign-in-password-form-submit-button"]`,
	AuthenticatedSelector: `[data-gnav-element-name="AccountMenu"]`,
	RejectURLParts:        []string{"/auth", "/account/login", "/challenge", "captcha"},
}

var searchForm = automator.SearchForm{
	URL:              baseURL + "/",
	KeywordsSelector: "#text-input-what",
	LocationSelector: "#text-input-where",
	SubmitSelector:   ".yosegi-InlineWhatWhere-primaryButton",
}

var resultsLayout = automator.ResultsLayout{
	Source:     Name,
	BaseURL:    baseURL,
	Container:  "#mosaic-provider-jobcards",
	Card:       ".job_seen_beacon",
	Title:      "h2.jobTitle span[title]",
	Company:    `[data-testid="company-name"]`,
	Location:   `[data-testid="text-location"]`,
	PostedDate: `[data-testid="myJobsStateDate"]`,
	Link:       "h2.jobTitle a",
	NextPage:   `a[data-testid="pagination-page-next"]`,
	ExternalID: func(card browser.Element, href string) string {
		if link, err := card.Query("h2.jobTitle a"); err == nil && link != nil {
			if jk, _ := link.Attribute("data-jk"); jk != "" {
				return jk
			}
		}
		return JobKey(href)
	},
	CanonicalURL: func(jk, _ string) string {
		return baseURL + "/viewjob?jk=" + jk
	},
}

var triggers = automator.ApplyTriggers{
	InFlow:     "#indeedApplyButton",
	External:   "#applyButtonLinkContainer a",
	InFlowWait: 5 * time.Second,
}

var flow = automator.FlowLayout{
	Container: ".ia-BasePage",
	Fields:    "input, select, textarea",
	Continue: []string{
		`button[data-testid="ia-continueButton"]`,
		".ia-continueButton",
	},
	Submit:         `button[data-testid="ia-submitButton"]`,
	Confirmation:   ".ia-PostApply-header",
	ConfirmTimeout: 15 * time.Second,
}

// JobKey reads the jk query parameter Indeed uses as its posting id.
func JobKey(href string) string {
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("jk")
}

// Automator drives Indeed job search and Indeed Apply.
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
