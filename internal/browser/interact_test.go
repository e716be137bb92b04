package browser_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go-hopeforjob-automation/internal/browser"
	"go-hopeforjob-automation/internal/browser/browsertest"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newInteractor(page browser.Page) *browser.Interactor {
	return browser.NewInteractor(page, browser.NoPacing, browser.Timeouts{
		Element: 10 * time.Millisecond, Action: 10 * time.Millisecond, Navigation: 10 * time.Millisecond,
	}, quietLog())
}

func TestSafeFill_ClearsThenFills(t *testing.T) {
	page := browsertest.NewPage()
	input := &browsertest.Element{Value: "old"}
	page.Set("#email", input)

	ok := newInteractor(page).SafeFill(context.Background(), "#email", "me@example.com", 0)

	assert.True(t, ok)
	assert.Equal(t, []string{"", "me@example.com"}, input.Fills)
	assert.Equal(t, "me@example.com", input.Value)
}

func TestPrimitives_ReturnFalseInsteadOfError(t *testing.T) {
	page := browsertest.NewPage()
	page.Set("#broken", &browsertest.Element{ClickErr: errors.New("detached"), FillErr: errors.New("detached")})
	page.Set("#hidden", &browsertest.Element{Hidden: true})
	in := newInteractor(page)
	ctx := context.Background()

	assert.False(t, in.WaitForElement(ctx, "#missing", 0))
	assert.False(t, in.WaitForElement(ctx, "#hidden", 0))
	assert.False(t, in.SafeClick(ctx, "#missing", 0))
	assert.False(t, in.SafeClick(ctx, "#broken", 0))
	assert.False(t, in.SafeFill(ctx, "#missing", "x", 0))
	assert.False(t, in.SafeFill(ctx, "#broken", "x", 0))
}

func TestSafeClick_CancelledContext(t *testing.T) {
	page := browsertest.NewPage()
	btn := &browsertest.Element{}
	page.Set("button", btn)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, newInteractor(page).SafeClick(ctx, "button", 0))
	assert.Equal(t, 0, btn.ClickCount())
}

func TestRandomDelay_Bounds(t *testing.T) {
	start := time.Now()
	require.NoError(t, browser.RandomDelay(context.Background(), 5*time.Millisecond, 15*time.Millisecond))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, browser.RandomDelay(ctx, time.Hour, 2*time.Hour), context.Canceled)
}

func TestDetectChallenge(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(p *browsertest.Page)
		blocked bool
	}{
		{"clean page", func(p *browsertest.Page) { p.SetTitle("Jobs"); p.SetURL("https://www.linkedin.com/jobs/") }, false},
		{"cloudflare title", func(p *browsertest.Page) { p.SetTitle("Just a moment...") }, true},
		{"checkpoint url", func(p *browsertest.Page) { p.SetURL("https://www.linkedin.com/checkpoint/challenge/abc") }, true},
		{"captcha widget", func(p *browsertest.Page) {
			p.Set(`.captcha, .recaptcha, [data-captcha], iframe[src*="recaptcha"], iframe[src*="hcaptcha"]`, &browsertest.Element{})
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewPage()
			tt.setup(page)
			_, blocked := browser.DetectChallenge(page)
			assert.Equal(t, tt.blocked, blocked)
		})
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	calls := 0
	sess := browser.NewSession(browsertest.NewPage(), nil, quietLog(),
		func() error { calls++; return nil },
		func() error { calls++; return errors.New("already closed") },
	)

	err := sess.Close()
	assert.Error(t, err)
	assert.Equal(t, err, sess.Close())
	assert.Equal(t, 2, calls)
}

type failingUploader struct{}

func (failingUploader) Upload(localPath, key string) (string, error) {
	return "", errors.New("no network")
}

type recordingUploader struct{ keys []string }

func (u *recordingUploader) Upload(localPath, key string) (string, error) {
	u.keys = append(u.keys, key)
	return "https://bucket.example/" + key, nil
}

func TestSession_Screenshot(t *testing.T) {
	dir := t.TempDir()
	page := browsertest.NewPage()

	local := browser.NewSession(page, browser.NewScreenshots(dir, failingUploader{}, quietLog()), quietLog())
	ref := local.Screenshot("apply failed/linkedin")
	assert.Equal(t, dir, filepath.Dir(ref))
	assert.NotContains(t, filepath.Base(ref), "/")

	up := &recordingUploader{}
	remote := browser.NewSession(page, browser.NewScreenshots(dir, up, quietLog()), quietLog())
	assert.Contains(t, remote.Screenshot("scrape"), "https://bucket.example/screenshots/scrape_")
	assert.Len(t, up.keys, 1)

	page.ShotErr = errors.New("page crashed")
	assert.Equal(t, "", remote.Screenshot("again"))

	assert.Equal(t, "", browser.NewSession(page, nil, quietLog()).Screenshot("none"))
}

func TestLoadCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies-linkedin.json")
	body := `[
		{"name":"li_at","value":"abc","domain":".linkedin.com","path":"/","httpOnly":true,"secure":true,"sameSite":"None","expires":1900000000},
		{"name":"","value":"skip","domain":".linkedin.com"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cookies, err := browser.LoadCookies(path)
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "li_at", cookies[0].Name)
	assert.Equal(t, ".linkedin.com", *cookies[0].Domain)
	assert.True(t, *cookies[0].HttpOnly)
	require.NotNil(t, cookies[0].SameSite)

	_, err = browser.LoadCookies(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))
}
