package browser

import (
	"strings"
)

var (
	blockedTitles = []string{"Attention Required", "Just a moment", "Cloudflare", "Security Verification"}
	blockedPaths  = []string{"/checkpoint/", "/challenge", "captcha"}
)

const captchaSelector = `.captcha, .recaptcha, [data-captcha], iframe[src*="recaptcha"], iframe[src*="hcaptcha"]`

// DetectChallenge reports whether the page is an anti-automation wall and a
// short reason. Detected walls are reported to the caller, never solved.
func DetectChallenge(page Page) (string, bool) {
	if title, err := page.Title(); err == nil {
		for _, marker := range blockedTitles {
			if strings.Contains(title, marker) {
				return "blocked page: " + title, true
			}
		}
	}

	u := strings.ToLower(page.URL())
	for _, marker := range blockedPaths {
		if strings.Contains(u, marker) {
			return "challenge url: " + page.URL(), true
		}
	}

	if el, err := page.Query(captchaSelector); err == nil && el != nil {
		return "captcha present", true
	}
	return "", false
}
