package browser

import (
	"context"
	"math/rand"
	"time"

	"go-hopeforjob-automation/internal/config"

	"github.com/sirupsen/logrus"
)

// Pacing holds the pause ranges applied around interactions.
type Pacing struct {
	ActionMin, ActionMax time.Duration
	ClickMin, ClickMax   time.Duration
	FillMin, FillMax     time.Duration
}

// NoPacing disables every pause. Tests only.
var NoPacing = Pacing{}

func PacingFromConfig(c config.PacingConfig) Pacing {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return Pacing{
		ActionMin: ms(c.ActionMinMs), ActionMax: ms(c.ActionMaxMs),
		ClickMin: ms(c.ClickMinMs), ClickMax: ms(c.ClickMaxMs),
		FillMin: ms(c.FillMinMs), FillMax: ms(c.FillMaxMs),
	}
}

// Timeouts bound every wait the interactor performs.
type Timeouts struct {
	Element    time.Duration
	Action     time.Duration
	Navigation time.Duration
}

func TimeoutsFromConfig(c config.AutomationConfig) Timeouts {
	return Timeouts{
		Element:    time.Duration(c.ElementTimeoutMs) * time.Millisecond,
		Action:     time.Duration(c.ActionTimeoutMs) * time.Millisecond,
		Navigation: time.Duration(c.NavigationTimeoutMs) * time.Millisecond,
	}
}

// RandomDelay waits for a random duration in [min, max] or until ctx is done.
func RandomDelay(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min + 1)))
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Interactor wraps a page with forgiving primitives: element trouble is
// reported as false plus a warning, never as an error.
type Interactor struct {
	page     Page
	pacing   Pacing
	timeouts Timeouts
	log      *logrus.Entry
}

func NewInteractor(page Page, pacing Pacing, timeouts Timeouts, log *logrus.Entry) *Interactor {
	return &Interactor{page: page, pacing: pacing, timeouts: timeouts, log: log}
}

func (i *Interactor) Page() Page {
	return i.page
}

func (i *Interactor) Timeouts() Timeouts {
	return i.timeouts
}

// WaitForElement reports whether selector becomes visible within timeout.
// A zero timeout uses the element default.
func (i *Interactor) WaitForElement(ctx context.Context, selector string, timeout time.Duration) bool {
	_, ok := i.waitFor(ctx, selector, orDefault(timeout, i.timeouts.Element))
	return ok
}

// SafeClick waits for selector, clicks it, then pauses like a person would.
func (i *Interactor) SafeClick(ctx context.Context, selector string, timeout time.Duration) bool {
	el, ok := i.waitFor(ctx, selector, orDefault(timeout, i.timeouts.Action))
	if !ok {
		return false
	}
	if err := el.Click(); err != nil {
		i.log.WithField("selector", selector).WithError(err).Warn("⚠️ Click failed")
		return false
	}
	_ = RandomDelay(ctx, i.pacing.ClickMin, i.pacing.ClickMax)
	return true
}

// SafeFill waits for selector, clears it, types text, then pauses.
func (i *Interactor) SafeFill(ctx context.Context, selector, text string, timeout time.Duration) bool {
	el, ok := i.waitFor(ctx, selector, orDefault(timeout, i.timeouts.Action))
	if !ok {
		return false
	}
	return i.FillElement(ctx, el, selector, text)
}

// FillElement clears and fills an already located element.
func (i *Interactor) FillElement(ctx context.Context, el Element, label, text string) bool {
	if err := el.Fill(""); err != nil {
		i.log.WithField("selector", label).WithError(err).Warn("⚠️ Clear failed")
		return false
	}
	if err := el.Fill(text); err != nil {
		i.log.WithField("selector", label).WithError(err).Warn("⚠️ Fill failed")
		return false
	}
	_ = RandomDelay(ctx, i.pacing.FillMin, i.pacing.FillMax)
	return true
}

// Exists checks for selector without waiting.
func (i *Interactor) Exists(selector string) bool {
	el, err := i.page.Query(selector)
	return err == nil && el != nil
}

// Goto navigates with the navigation timeout.
func (i *Interactor) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return i.page.Goto(url, i.timeouts.Navigation)
}

// Pause is the generic between-actions delay.
func (i *Interactor) Pause(ctx context.Context) error {
	return RandomDelay(ctx, i.pacing.ActionMin, i.pacing.ActionMax)
}

// HumanScroll nudges the page down then slightly back up to trigger lazy loading.
func (i *Interactor) HumanScroll(ctx context.Context) {
	for _, dy := range []float64{500, 500, -200} {
		if err := i.page.Scroll(dy); err != nil {
			return
		}
		if err := RandomDelay(ctx, i.pacing.ClickMin, i.pacing.ClickMax); err != nil {
			return
		}
	}
}

func (i *Interactor) waitFor(ctx context.Context, selector string, timeout time.Duration) (Element, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	el, err := i.page.WaitFor(selector, timeout)
	if err != nil {
		i.log.WithField("selector", selector).WithError(err).Warn("⚠️ Element not available")
		return nil, false
	}
	return el, true
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
