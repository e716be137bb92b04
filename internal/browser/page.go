package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

var ErrTimeout = errors.New("timed out waiting for element")

// Element is the slice of a DOM element handle the automators use.
type Element interface {
	Click() error
	Fill(value string) error
	InnerText() (string, error)
	// Attribute returns "" when the attribute is missing.
	Attribute(name string) (string, error)
	TagName() (string, error)
	IsDisabled() (bool, error)
	IsVisible() (bool, error)
	// Query returns nil, nil when nothing matches.
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
	SelectOption(value string) error
	SetChecked(checked bool) error
	InputValue() (string, error)
}

// Page is a single rendered tab.
type Page interface {
	Goto(url string, timeout time.Duration) error
	URL() string
	Title() (string, error)
	// WaitFor blocks until selector is visible; ErrTimeout after timeout.
	WaitFor(selector string, timeout time.Duration) (Element, error)
	// Query returns nil, nil when nothing matches.
	Query(selector string) (Element, error)
	QueryAll(selector string) ([]Element, error)
	Scroll(dy float64) error
	Screenshot(path string) error
}

// ---------------- PLAYWRIGHT ADAPTER ----------------

type pwPage struct {
	page playwright.Page
}

// WrapPage adapts a playwright page to Page.
func WrapPage(page playwright.Page) Page {
	return &pwPage{page: page}
}

func (p *pwPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", url, translate(err))
	}
	return nil
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Title() (string, error) {
	return p.page.Title()
}

func (p *pwPage) WaitFor(selector string, timeout time.Duration) (Element, error) {
	el, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", selector, translate(err))
	}
	if el == nil {
		return nil, fmt.Errorf("%s: %w", selector, ErrTimeout)
	}
	return &pwElement{el: el}, nil
}

func (p *pwPage) Query(selector string) (Element, error) {
	el, err := p.page.QuerySelector(selector)
	if err != nil || el == nil {
		return nil, err
	}
	return &pwElement{el: el}, nil
}

func (p *pwPage) QueryAll(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	return wrapHandles(handles), nil
}

func (p *pwPage) Scroll(dy float64) error {
	return p.page.Mouse().Wheel(0, dy)
}

func (p *pwPage) Screenshot(path string) error {
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

type pwElement struct {
	el playwright.ElementHandle
}

func (e *pwElement) Click() error {
	return translate(e.el.Click())
}

func (e *pwElement) Fill(value string) error {
	return translate(e.el.Fill(value))
}

func (e *pwElement) InnerText() (string, error) {
	return e.el.InnerText()
}

func (e *pwElement) Attribute(name string) (string, error) {
	return e.el.GetAttribute(name)
}

func (e *pwElement) TagName() (string, error) {
	v, err := e.el.Evaluate("el => el.tagName.toLowerCase()")
	if err != nil {
		return "", err
	}
	tag, _ := v.(string)
	return tag, nil
}

func (e *pwElement) IsDisabled() (bool, error) {
	return e.el.IsDisabled()
}

func (e *pwElement) IsVisible() (bool, error) {
	return e.el.IsVisible()
}

func (e *pwElement) Query(selector string) (Element, error) {
	el, err := e.el.QuerySelector(selector)
	if err != nil || el == nil {
		return nil, err
	}
	return &pwElement{el: el}, nil
}

func (e *pwElement) QueryAll(selector string) ([]Element, error) {
	handles, err := e.el.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	return wrapHandles(handles), nil
}

func (e *pwElement) SelectOption(value string) error {
	_, err := e.el.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}})
	if err == nil {
		return nil
	}
	//fall back to the visible label
	_, err = e.el.SelectOption(playwright.SelectOptionValues{Labels: &[]string{value}})
	return translate(err)
}

func (e *pwElement) SetChecked(checked bool) error {
	return translate(e.el.SetChecked(checked))
}

func (e *pwElement) InputValue() (string, error) {
	return e.el.InputValue()
}

func wrapHandles(handles []playwright.ElementHandle) []Element {
	out := make([]Element, 0, len(handles))
	for _, h := range handles {
		out = append(out, &pwElement{el: h})
	}
	return out
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
