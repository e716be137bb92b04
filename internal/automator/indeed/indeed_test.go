package indeed

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

func TestJobKey(t *testing.T) {
	assert.Equal(t, "abc123", JobKey("/rc/clk?jk=abc123&from=serp"))
	assert.Equal(t, "", JobKey("/viewjob"))
	assert.Equal(t, "", JobKey(""))
}

func setup(t *testing.T) (*browsertest.Page, *memory.Store, automator.Automator) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	page := browsertest.NewPage()
	st := memory.New()
	st.PutCredentials(models.PlatformCredentials{ID: "c1", UserID: "u1", Platform: Name, Username: "jane@example.com", EncryptedPassword: "pw", IsActive: true})
	st.PutProfile(models.UserProfile{UserID: "u1", FullName: "Jane Doe", Email: "jane@example.com"})
	deps := automator.Deps{Store: st, Secrets: secrets.Plaintext{}, Log: log, Pacing: browser.NoPacing}
	return page, st, New(browser.NewSession(page, nil, log), automator.Run{SessionID: "s1", UserID: "u1"}, deps)
}

func TestLogin_TwoStepForm(t *testing.T) {
	page, st, a := setup(t)
	email, password := &browsertest.Element{}, &browsertest.Element{}
	cont := &browsertest.Element{}
	page.Set(loginForm.UsernameSelector, email).Set(loginForm.ContinueSelector, cont).Set(loginForm.PasswordSelector, password)
	page.Set(loginForm.SubmitSelector, &browsertest.Element{OnClick: func() {
		page.SetURL(baseURL + "/")
		page.Set(loginForm.AuthenticatedSelector, &browsertest.Element{})
	}})

	require.NoError(t, a.Login(context.Background()))
	assert.Equal(t, "jane@example.com", email.Value)
	assert.Equal(t, 1, cont.ClickCount())
	assert.Equal(t, "pw", password.Value)

	cred, err := st.GetCredentials(context.Background(), "u1", Name)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationVerified, cred.VerificationStatus)
}

func signedIn(page *browsertest.Page) {
	page.Set(loginForm.AuthenticatedSelector, &browsertest.Element{})
	page.OnGoto = func(p *browsertest.Page, url string) error {
		if url == loginForm.URL {
			p.SetURL(baseURL + "/")
		}
		return nil
	}
}

func TestScrapeJobs_FollowsPagination(t *testing.T) {
	page, _, a := setup(t)
	signedIn(page)
	page.Set(searchForm.KeywordsSelector, &browsertest.Element{})
	page.Set(searchForm.SubmitSelector, &browsertest.Element{})
	page.Set(resultsLayout.Container, &browsertest.Element{})

	card := func(jk, title string) *browsertest.Element {
		return &browsertest.Element{Children: map[string][]*browsertest.Element{
			"h2.jobTitle span[title]":       {{Text: title}},
			`[data-testid="company-name"]`:  {{Text: "Acme"}},
			`[data-testid="text-location"]`: {{Text: "Austin, TX"}},
			"h2.jobTitle a":                 {{Attrs: map[string]string{"data-jk": jk, "href": "/rc/clk?jk=" + jk}}},
		}}
	}
	page.Set(resultsLayout.Card, card("a1", "Go Developer"))
	page.Set(resultsLayout.NextPage, &browsertest.Element{OnClick: func() {
		page.Set(resultsLayout.Card, card("b2", "Backend Engineer"))
		page.Remove(resultsLayout.NextPage)
	}})

	res, err := a.ScrapeJobs(context.Background(), automator.Criteria{Keywords: "golang", MaxPages: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, res.PagesScraped)
	require.Len(t, res.Jobs, 2)
	assert.Equal(t, "a1", res.Jobs[0].ExternalID)
	assert.Equal(t, baseURL+"/viewjob?jk=a1", res.Jobs[0].URL)
	assert.Equal(t, "b2", res.Jobs[1].ExternalID)
}

func TestApplyToJob_ExternalSite(t *testing.T) {
	page, _, a := setup(t)
	signedIn(page)
	page.Set(triggers.External, &browsertest.Element{})

	job := &models.JobListing{ID: "j1", Title: "Go Developer", URL: baseURL + "/viewjob?jk=a1"}
	res := a.ApplyToJob(context.Background(), job, &models.JobApplication{})
	assert.Equal(t, automator.OutcomeExternal, res.Outcome)
	assert.Equal(t, automator.ExternalApplyMessage, res.Error)
	assert.NotEmpty(t, res.Logs)
}
