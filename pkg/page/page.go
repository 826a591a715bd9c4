// Package page tracks which of a fixed set of named pages is visible.
//
// All visibility changes go through Controller so that at most one page is
// ever shown. The capability banner on the entry page is a separate,
// orthogonal switch that the entry helpers set alongside the page.
package page

import (
	"fmt"
	"sync"

	"github.com/teslashibe/go-catcam/pkg/ui"
)

// Default page names.
const (
	Intro    = "intro"
	Detector = "detector"
)

// DefaultPages is the page set used by the service.
var DefaultPages = []string{Intro, Detector}

// UnknownPageError is returned when a page name is not in the fixed set.
// It signals a programming error, not a user-facing condition.
type UnknownPageError struct {
	Name string
}

func (e *UnknownPageError) Error() string {
	return fmt.Sprintf("page: unknown page %q", e.Name)
}

// Controller owns page visibility.
type Controller struct {
	mu      sync.Mutex
	surface ui.Surface
	names   []string
	known   map[string]bool
	entry   string
	visible string
	banner  ui.Banner
}

// NewController builds a controller over a fixed page set. entry is the page
// shown by ShowSupportedEntry and ShowUnsupportedEntry and must be in names.
func NewController(surface ui.Surface, entry string, names ...string) (*Controller, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("page: empty page set")
	}

	known := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return nil, fmt.Errorf("page: empty page name")
		}
		if known[n] {
			return nil, fmt.Errorf("page: duplicate page %q", n)
		}
		known[n] = true
	}
	if !known[entry] {
		return nil, &UnknownPageError{Name: entry}
	}

	return &Controller{
		surface: surface,
		names:   append([]string(nil), names...),
		known:   known,
		entry:   entry,
	}, nil
}

// ShowPage hides every page and then shows name. An unknown name returns
// *UnknownPageError and leaves visibility untouched.
func (c *Controller) ShowPage(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showLocked(name)
}

// MustShowPage is ShowPage for names known to be valid. It panics otherwise.
func (c *Controller) MustShowPage(name string) {
	if err := c.ShowPage(name); err != nil {
		panic(err)
	}
}

// ShowSupportedEntry shows the entry page with the supported banner.
func (c *Controller) ShowSupportedEntry() {
	c.showEntry(ui.Banner{Supported: true})
}

// ShowUnsupportedEntry shows the entry page with the unsupported banner.
// message may be empty.
func (c *Controller) ShowUnsupportedEntry(message string) {
	c.showEntry(ui.Banner{Supported: false, Message: message})
}

func (c *Controller) showEntry(b ui.Banner) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.showLocked(c.entry); err != nil {
		panic(err) // entry is validated in NewController
	}
	c.banner = b
	c.surface.SetBanner(b)
}

func (c *Controller) showLocked(name string) error {
	if !c.known[name] {
		return &UnknownPageError{Name: name}
	}
	for _, n := range c.names {
		c.surface.SetPageVisible(n, false)
	}
	c.surface.SetPageVisible(name, true)
	c.visible = name
	return nil
}

// Visible returns the visible page, or "" before the first ShowPage.
func (c *Controller) Visible() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// Banner returns the last banner set by an entry helper.
func (c *Controller) Banner() ui.Banner {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// Pages returns the fixed page set in construction order.
func (c *Controller) Pages() []string {
	return append([]string(nil), c.names...)
}

// Has reports whether name is in the page set.
func (c *Controller) Has(name string) bool {
	return c.known[name]
}
