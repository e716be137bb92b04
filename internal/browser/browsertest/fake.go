// Package browsertest provides a scriptable in-memory browser.Page. Selectors
// are matched by exact string, so tests register elements under the same
// selector text the code under test queries.
package browsertest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go-hopeforjob-automation/internal/browser"
)

type Page struct {
	mu        sync.Mutex
	url       string
	title     string
	elements  map[string][]*Element
	OnGoto    func(p *Page, url string) error
	Visited   []string
	Shots     []string
	ShotErr   error
	Scrolled  int
	QueryErrs map[string]error
}

var _ browser.Page = (*Page)(nil)

func NewPage() *Page {
	return &Page{elements: make(map[string][]*Element), QueryErrs: make(map[string]error)}
}

// Set replaces everything registered under selector.
func (p *Page) Set(selector string, els ...*Element) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.elements[selector] = els
	return p
}

func (p *Page) Remove(selector string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, selector)
}

func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

func (p *Page) SetTitle(title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.title = title
}

func (p *Page) Goto(url string, timeout time.Duration) error {
	p.mu.Lock()
	p.Visited = append(p.Visited, url)
	p.url = url
	hook := p.OnGoto
	p.mu.Unlock()
	if hook != nil {
		return hook(p, url)
	}
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Title() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.title, nil
}

func (p *Page) WaitFor(selector string, timeout time.Duration) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.QueryErrs[selector]; err != nil {
		return nil, err
	}
	for _, el := range p.elements[selector] {
		if !el.Hidden {
			return el, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", selector, browser.ErrTimeout)
}

func (p *Page) Query(selector string) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.QueryErrs[selector]; err != nil {
		return nil, err
	}
	els := p.elements[selector]
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

func (p *Page) QueryAll(selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.QueryErrs[selector]; err != nil {
		return nil, err
	}
	return toElements(p.elements[selector]), nil
}

func (p *Page) Scroll(dy float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Scrolled++
	return nil
}

func (p *Page) Screenshot(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ShotErr != nil {
		return p.ShotErr
	}
	p.Shots = append(p.Shots, path)
	return nil
}

// Element is a fake DOM node. Zero value is a visible, enabled element.
type Element struct {
	mu       sync.Mutex
	Text     string
	Tag      string
	Attrs    map[string]string
	Disabled bool
	Hidden   bool
	Value    string
	Checked  bool
	Children map[string][]*Element
	Options  []string

	ClickErr error
	FillErr  error
	OnClick  func()

	Clicks   int
	Fills    []string
	Selected []string
}

var _ browser.Element = (*Element)(nil)

var ErrNoSuchOption = errors.New("no such option")

func (e *Element) Click() error {
	e.mu.Lock()
	if e.ClickErr != nil {
		e.mu.Unlock()
		return e.ClickErr
	}
	e.Clicks++
	hook := e.OnClick
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (e *Element) Fill(value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.FillErr != nil {
		return e.FillErr
	}
	e.Fills = append(e.Fills, value)
	e.Value = value
	return nil
}

func (e *Element) InnerText() (string, error) {
	return e.Text, nil
}

func (e *Element) Attribute(name string) (string, error) {
	return e.Attrs[name], nil
}

func (e *Element) TagName() (string, error) {
	if e.Tag == "" {
		return "div", nil
	}
	return e.Tag, nil
}

func (e *Element) IsDisabled() (bool, error) {
	return e.Disabled, nil
}

func (e *Element) IsVisible() (bool, error) {
	return !e.Hidden, nil
}

func (e *Element) Query(selector string) (browser.Element, error) {
	els := e.Children[selector]
	if len(els) == 0 {
		return nil, nil
	}
	return els[0], nil
}

func (e *Element) QueryAll(selector string) ([]browser.Element, error) {
	return toElements(e.Children[selector]), nil
}

func (e *Element) SelectOption(value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Options) > 0 {
		found := false
		for _, o := range e.Options {
			if o == value {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%q: %w", value, ErrNoSuchOption)
		}
	}
	e.Selected = append(e.Selected, value)
	e.Value = value
	return nil
}

func (e *Element) SetChecked(checked bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Checked = checked
	return nil
}

func (e *Element) InputValue() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Value, nil
}

func (e *Element) ClickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Clicks
}

func toElements(els []*Element) []browser.Element {
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out
}
