package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-hopeforjob-automation/internal/config"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

// Manager owns the playwright driver. Each Open launches an isolated browser
// so runs never share cookies or tabs.
type Manager struct {
	pw    *playwright.Playwright
	cfg   config.BrowserConfig
	shots *Screenshots
	log   *logrus.Entry
}

func NewManager(cfg config.BrowserConfig, shots *Screenshots, log *logrus.Entry) (*Manager, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	return &Manager{pw: pw, cfg: cfg, shots: shots, log: log}, nil
}

// Open launches a browser, one context and one page for a single run.
// The returned Session must be closed by the caller.
func (m *Manager) Open(ctx context.Context, platform string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := m.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.cfg.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-blink-features=AutomationControlled",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(m.cfg.UserAgent),
		Viewport: &playwright.Size{
			Width:  m.cfg.ViewportW,
			Height: m.cfg.ViewportH,
		},
	})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}

	m.seedCookies(bctx, platform)

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		b.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	m.log.WithField("platform", platform).Debug("✅ Browser session opened")
	return NewSession(WrapPage(page), m.shots, m.log,
		func() error { return page.Close() },
		func() error { return bctx.Close() },
		func() error { return b.Close() },
	), nil
}

// seedCookies loads cookies-<platform>.json when present. A missing file is normal.
func (m *Manager) seedCookies(bctx playwright.BrowserContext, platform string) {
	if m.cfg.CookiesPath == "" || platform == "" {
		return
	}
	path := filepath.Join(m.cfg.CookiesPath, fmt.Sprintf("cookies-%s.json", strings.ToLower(platform)))
	cookies, err := LoadCookies(path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.log.WithError(err).Warnf("⚠️ Could not load %s cookies", platform)
		}
		return
	}
	if err := bctx.AddCookies(cookies); err != nil {
		m.log.WithError(err).Warnf("⚠️ Could not add %s cookies", platform)
		return
	}
	m.log.Debugf("🍪 Loaded %s cookies (%d)", platform, len(cookies))
}

func (m *Manager) Close() error {
	if m.pw == nil {
		return nil
	}
	return m.pw.Stop()
}
