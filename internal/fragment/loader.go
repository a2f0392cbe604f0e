package fragment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"github.com/starford/lintel/internal/apperr"
	"github.com/starford/lintel/internal/dom"
)

// Defaults for the placeholder contract.
const (
	DefaultHeaderID     = "layout-header"
	DefaultFooterID     = "layout-footer"
	DefaultErrorClass   = "layout-load-error"
	DefaultErrorMessage = "Failed to load page layout."
)

// Slot binds a fragment to the placeholder that receives it.
type Slot struct {
	Name          string // fragment file stem, e.g. "header"
	PlaceholderID string
	Clock         bool // start the clock once this slot is injected
}

// DefaultSlots returns the header and footer slots.
func DefaultSlots() []Slot {
	return []Slot{
		{Name: "header", PlaceholderID: DefaultHeaderID, Clock: true},
		{Name: "footer", PlaceholderID: DefaultFooterID},
	}
}

// Injection records a placeholder that received fragment content.
type Injection struct {
	Slot        Slot
	Placeholder *html.Node
}

// Loader fetches the fragments of every present placeholder in parallel and
// injects them all, or none.
type Loader struct {
	fetcher      Fetcher
	slots        []Slot
	errorClass   string
	errorMessage string
	policy       *bluemonday.Policy
	logger       *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSlots replaces the default header/footer slots.
func WithSlots(slots ...Slot) LoaderOption {
	return func(l *Loader) {
		l.slots = slots
	}
}

// WithErrorMessage sets the class and text of the failure paragraph.
func WithErrorMessage(class, message string) LoaderOption {
	return func(l *Loader) {
		if class != "" {
			l.errorClass = class
		}
		if message != "" {
			l.errorMessage = message
		}
	}
}

// WithSanitizer filters fragment markup through p before parsing.
func WithSanitizer(p *bluemonday.Policy) LoaderOption {
	return func(l *Loader) {
		l.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader reading fragments from f.
func NewLoader(f Fetcher, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher:      f,
		slots:        DefaultSlots(),
		errorClass:   DefaultErrorClass,
		errorMessage: DefaultErrorMessage,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Slots returns the configured slots.
func (l *Loader) Slots() []Slot {
	return l.slots
}

// Load fetches the fragment of every slot whose placeholder exists in doc,
// waits for all of them and appends each fragment's nodes to its
// placeholder. Slots without a placeholder are skipped without a fetch.
//
// If any fetch or parse fails nothing is injected: every present
// placeholder is emptied and given the error paragraph, and the returned
// error wraps apperr.ErrFragmentLoad.
func (l *Loader) Load(ctx context.Context, doc *dom.Document) ([]Injection, error) {
	placeholders := make([]*html.Node, len(l.slots))
	doc.Do(func(root *html.Node) {
		for i, s := range l.slots {
			placeholders[i] = dom.ElementByID(root, s.PlaceholderID)
		}
	})

	bodies := make([]string, len(l.slots))
	g, gCtx := errgroup.WithContext(ctx)
	for i, s := range l.slots {
		if placeholders[i] == nil {
			continue
		}
		g.Go(func() error {
			body, err := l.fetcher.Fetch(gCtx, s.Name)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", apperr.ErrFragmentLoad, s.Name, err)
			}
			bodies[i] = body
			return nil
		})
	}
	err := g.Wait()

	var injected []Injection
	doc.Do(func(root *html.Node) {
		if err == nil {
			injected, err = l.inject(placeholders, bodies)
			if err == nil {
				return
			}
		}
		for _, ph := range placeholders {
			if ph != nil {
				l.renderError(ph)
			}
		}
	})
	if err != nil {
		l.logger.Warn("fragment: load failed", slog.String("error", err.Error()))
		return nil, err
	}

	for _, inj := range injected {
		l.logger.Debug("fragment: injected",
			slog.String("fragment", inj.Slot.Name),
			slog.String("placeholder", inj.Slot.PlaceholderID))
	}
	return injected, nil
}

// inject parses every body first so that a parse failure leaves the
// placeholders untouched, then appends.
func (l *Loader) inject(placeholders []*html.Node, bodies []string) ([]Injection, error) {
	parsed := make([][]*html.Node, len(l.slots))
	for i, s := range l.slots {
		ph := placeholders[i]
		if ph == nil {
			continue
		}
		src := strings.TrimSpace(bodies[i])
		if src == "" {
			continue
		}
		if l.policy != nil {
			src = l.policy.Sanitize(src)
		}
		nodes, err := dom.ParseFragment(src, ph)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", apperr.ErrFragmentLoad, s.Name, err)
		}
		parsed[i] = nodes
	}

	var out []Injection
	for i, nodes := range parsed {
		if nodes == nil {
			continue
		}
		dom.AppendChildren(placeholders[i], nodes)
		out = append(out, Injection{Slot: l.slots[i], Placeholder: placeholders[i]})
	}
	return out, nil
}

func (l *Loader) renderError(ph *html.Node) {
	dom.RemoveChildren(ph)
	p := &html.Node{
		Type:     html.ElementNode,
		Data:     "p",
		DataAtom: atom.P,
		Attr:     []html.Attribute{{Key: "class", Val: l.errorClass}},
	}
	p.AppendChild(&html.Node{Type: html.TextNode, Data: l.errorMessage})
	ph.AppendChild(p)
}

// SanitizePolicy returns a bluemonday policy for layout fragments: user
// generated content rules plus the id, class and aria attributes the
// navigation and clock rely on.
func SanitizePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("header", "footer", "nav", "main", "section", "div", "span", "time")
	p.AllowAttrs("id", "class", "role", "aria-label", "aria-current", "aria-hidden").Globally()
	p.RequireNoFollowOnLinks(false)
	return p
}
