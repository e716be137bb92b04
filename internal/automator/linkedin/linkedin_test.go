package linkedin

import (
	"context"
	"io"
	"testing"

	"go-hopeforjob-automation/internal/automator"
	"go-hopeforjob-automation/internal/browser"
	"go-hopeforjob-automation/internal/browser/browsertest"
	"go-hopeforjob-automation/internal/models"
	"go-hopeforjob-automation/internal/secrets"
	"go-hopeforjob-automation/internal/store/memory"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobID(t *testing.T) {
	cases := map[string]string{
		"https://www.linkedin.com/jobs/view/3812345678/?refId=abc": "3812345678",
		"/jobs/view/senior-go-engineer-at-acme-3812345678":         "3812345678",
		"https://www.linkedin.com/company/acme":                    "",
		"": "",
	}
	for href, want := range cases {
		assert.Equal(t, want, JobID(href), href)
	}
}

func newAutomator(t *testing.T, page *browsertest.Page) automator.Automator {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	st := memory.New()
	st.PutCredentials(models.PlatformCredentials{UserID: "u1", Platform: Name, Username: "jane@example.com", EncryptedPassword: "pw", IsActive: true})
	st.PutProfile(models.UserProfile{UserID: "u1", FullName: "Jane Doe"})
	deps := automator.Deps{Store: st, Secrets: secrets.Plaintext{}, Log: log, Pacing: browser.NoPacing}
	return New(browser.NewSession(page, nil, log), automator.Run{SessionID: "s1", UserID: "u1"}, deps)
}

func jobCard(urn, title, href string) *browsertest.Element {
	return &browsertest.Element{
		Attrs: map[string]string{"data-entity-urn": urn},
		Children: map[string][]*browsertest.Element{
			".job-search-card__title":    {{Text: title}},
			".job-search-card__subtitle": {{Text: "Acme"}},
			".job-search-card__location": {{Text: "Remote"}},
			"time":                       {{Attrs: map[string]string{"datetime": "2026-10-01"}}},
			".job-search-card__title a":  {{Attrs: map[string]string{"href": href}}},
		},
	}
}

func TestScrapeJobs(t *testing.T) {
	page := browsertest.NewPage()
	page.OnGoto = func(p *browsertest.Page, url string) error {
		if url == loginForm.URL {
			p.SetURL(baseURL + "/feed/")
		}
		return nil
	}
	page.Set(loginForm.AuthenticatedSelector, &browsertest.Element{})
	page.Set(searchForm.KeywordsSelector, &browsertest.Element{})
	page.Set(searchForm.LocationSelector, &browsertest.Element{})
	page.Set(searchForm.SubmitSelector, &browsertest.Element{})
	page.Set(resultsLayout.Container, &browsertest.Element{})
	page.Set(resultsLayout.Card,
		jobCard("urn:li:jobPosting:111", "Go Engineer", "https://www.linkedin.com/jobs/view/111/?trk=x"),
		jobCard("", "Platform Engineer", "/jobs/view/platform-engineer-222"),
	)

	a := newAutomator(t, page)
	assert.Equal(t, Name, a.Name())

	res, err := a.ScrapeJobs(context.Background(), automator.Criteria{Keywords: "golang", Location: "Remote", MaxPages: 1})
	require.NoError(t, err)
	require.Len(t, res.Jobs, 2)
	assert.Equal(t, "111", res.Jobs[0].ExternalID)
	assert.Equal(t, "https://www.linkedin.com/jobs/view/111/", res.Jobs[0].URL)
	assert.Equal(t, "2026-10-01", res.Jobs[0].PostedDate)
	assert.Equal(t, "222", res.Jobs[1].ExternalID)
	assert.Equal(t, Name, res.Jobs[1].Source)
}

func TestApplyToJob_EasyApply(t *testing.T) {
	page := browsertest.NewPage()
	page.OnGoto = func(p *browsertest.Page, url string) error {
		if url == loginForm.URL {
			p.SetURL(baseURL + "/feed/")
		}
		return nil
	}
	page.Set(loginForm.AuthenticatedSelector, &browsertest.Element{})
	page.Set(triggers.InFlow, &browsertest.Element{})
	page.Set(flow.Container, &browsertest.Element{})
	page.Set(flow.Continue[1], &browsertest.Element{OnClick: func() {
		page.Remove(flow.Continue[1])
		page.Set(flow.Submit, &browsertest.Element{OnClick: func() {
			page.Set(flow.Confirmation, &browsertest.Element{})
		}})
	}})

	a := newAutomator(t, page)

	job := &models.JobListing{ID: "j1", Title: "Go Engineer", Company: "Acme", URL: baseURL + "/jobs/view/111/"}
	res := a.ApplyToJob(context.Background(), job, &models.JobApplication{})
	assert.True(t, res.Success, res.Error)
	assert.Equal(t, automator.OutcomeSubmitted, res.Outcome)
}
