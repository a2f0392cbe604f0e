// Package dom wraps a parsed HTML document with serialized access and a
// small set of query and mutation helpers over golang.org/x/net/html.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// ReadyState reports whether a Document has finished parsing.
type ReadyState int

// Ready states.
const (
	Loading ReadyState = iota
	Interactive
)

func (s ReadyState) String() string {
	if s == Interactive {
		return "interactive"
	}
	return "loading"
}

// Document is a parsed HTML page.
//
// Concurrency model: every read or write of the node tree goes through Do,
// which holds the document mutex for the duration of the callback. This is
// the only place the tree is touched, so fetch goroutines and clock tickers
// never race on nodes.
type Document struct {
	mu      sync.Mutex
	root    *html.Node
	state   ReadyState
	pending []func()
}

// NewDocument returns an empty document in the Loading state.
func NewDocument() *Document {
	return &Document{}
}

// Parse reads a complete HTML document. The result is Interactive.
func Parse(r io.Reader) (*Document, error) {
	d := NewDocument()
	if err := d.Load(r); err != nil {
		return nil, err
	}
	return d, nil
}

// ParseString is Parse for an in-memory page.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Load parses r into the document, switches it to Interactive and then runs
// the callbacks registered with WhenReady in registration order.
func (d *Document) Load(r io.Reader) error {
	root, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("dom: parse: %w", err)
	}

	d.mu.Lock()
	if d.state != Loading {
		d.mu.Unlock()
		return fmt.Errorf("dom: document already loaded")
	}
	d.root = root
	d.state = Interactive
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
	return nil
}

// ReadyState returns the current parse state.
func (d *Document) ReadyState() ReadyState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// WhenReady runs fn now if the document is loaded, otherwise right after
// Load finishes. fn runs outside the document lock.
func (d *Document) WhenReady(fn func()) {
	d.mu.Lock()
	if d.state == Loading {
		d.pending = append(d.pending, fn)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	fn()
}

// Do runs fn with exclusive access to the node tree. fn must not call back
// into d. Do is a no-op on a document that has not been loaded.
func (d *Document) Do(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.root == nil {
		return
	}
	fn(d.root)
}

// Render serializes the document to w.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.root == nil {
		return nil
	}
	return html.Render(w, d.root)
}

// Bytes returns the serialized document.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return nil, fmt.Errorf("dom: render: %w", err)
	}
	return buf.Bytes(), nil
}
