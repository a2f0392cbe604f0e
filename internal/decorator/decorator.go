// Package decorator applies the shared layout to a page: fragments in,
// current navigation entry marked, header clock running.
package decorator

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"github.com/starford/lintel/internal/clock"
	"github.com/starford/lintel/internal/dom"
	"github.com/starford/lintel/internal/fragment"
	"github.com/starford/lintel/internal/nav"
)

// DefaultClockInterval is how often the header clock is refreshed.
const DefaultClockInterval = time.Second

// Decorator composes the fragment loader, the navigation matcher and the
// clock. It holds no per-page state and is safe for concurrent use.
type Decorator struct {
	loader   *fragment.Loader
	matcher  nav.Matcher
	clock    clock.Updater
	interval time.Duration
	logger   *slog.Logger
}

// Option configures a Decorator.
type Option func(*Decorator)

// WithMatcher sets the navigation matcher.
func WithMatcher(m nav.Matcher) Option {
	return func(d *Decorator) {
		d.matcher = m
	}
}

// WithClock sets the clock updater and its refresh interval. A non-positive
// interval renders the clock once without repeating.
func WithClock(u clock.Updater, interval time.Duration) Option {
	return func(d *Decorator) {
		d.clock = u
		d.interval = interval
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decorator) {
		d.logger = logger
	}
}

// New creates a Decorator around loader.
func New(loader *fragment.Loader, opts ...Option) *Decorator {
	d := &Decorator{
		loader:   loader,
		matcher:  nav.NewMatcher(),
		clock:    clock.NewUpdater(),
		interval: DefaultClockInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Session is the result of decorating one document.
type Session struct {
	Current  nav.Path
	Injected []fragment.Injection
	Marked   int

	ticker *clock.Ticker
}

// ClockRunning reports whether a clock ticker was started.
func (s *Session) ClockRunning() bool {
	return s != nil && s.ticker != nil
}

// Stop cancels the session's clock. Safe on a nil Session.
func (s *Session) Stop() {
	if s == nil {
		return
	}
	s.ticker.Stop()
}

// Decorate loads the fragments into doc, marks the navigation entry for
// currentPath in every injected placeholder and starts the clock when the
// header was injected. The clock runs until ctx is done or the session is
// stopped.
//
// On a fragment failure the placeholders already carry the error message;
// the error wraps apperr.ErrFragmentLoad and the returned session is
// empty but usable.
func (d *Decorator) Decorate(ctx context.Context, doc *dom.Document, currentPath string) (*Session, error) {
	sess := &Session{Current: nav.Normalize(currentPath)}

	injected, err := d.loader.Load(ctx, doc)
	if err != nil {
		return sess, err
	}
	sess.Injected = injected

	startClock := false
	doc.Do(func(_ *html.Node) {
		for _, inj := range injected {
			sess.Marked += d.matcher.Apply(inj.Placeholder, sess.Current)
			if inj.Slot.Clock {
				startClock = true
			}
		}
	})
	if startClock {
		sess.ticker = d.clock.Start(ctx, doc, d.interval)
	}

	d.logger.Debug("decorator: page decorated",
		slog.String("path", string(sess.Current)),
		slog.Int("fragments", len(injected)),
		slog.Int("marked", sess.Marked))
	return sess, nil
}

// Outcome is delivered by Install once decoration has run.
type Outcome struct {
	Session *Session
	Err     error
}

// Install decorates doc exactly once: right away when it is already parsed,
// otherwise as soon as its content has loaded. The outcome is sent on the
// returned channel, which is then closed.
func (d *Decorator) Install(ctx context.Context, doc *dom.Document, currentPath string) <-chan Outcome {
	out := make(chan Outcome, 1)
	doc.WhenReady(func() {
		go func() {
			defer close(out)
			sess, err := d.Decorate(ctx, doc, currentPath)
			out <- Outcome{Session: sess, Err: err}
		}()
	})
	return out
}
