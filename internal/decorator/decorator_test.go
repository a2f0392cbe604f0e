package decorator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"golang.org/x/net/html"

	"github.com/starford/lintel/internal/apperr"
	"github.com/starford/lintel/internal/clock"
	"github.com/starford/lintel/internal/dom"
	"github.com/starford/lintel/internal/fragment"
	"github.com/starford/lintel/internal/nav"
)

const page = `<!DOCTYPE html><html><body>
<div id="layout-header"></div>
<article>body</article>
<div id="layout-footer"></div>
</body></html>`

const headerHTML = `<div class="topbar"><span id="bloglo-date"></span><span id="bloglo-time"></span></div>
<nav><ul class="menu">
<li id="nav-home"><a href="/">Home</a></li>
<li id="nav-about"><a href="/about.html">About</a></li>
<li id="nav-datasets"><a href="/datasets/">Datasets</a></li>
</ul></nav>`

const footerHTML = `<ul class="menu"><li id="foot-about"><a href="/About.html">About</a></li></ul>`

func newDecorator(t *testing.T, fsys fstest.MapFS) *Decorator {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader := fragment.NewLoader(fragment.NewFSFetcher(fsys), fragment.WithLogger(logger))
	return New(loader,
		WithLogger(logger),
		WithClock(clock.NewUpdater(), 10*time.Millisecond))
}

func fragments() fstest.MapFS {
	return fstest.MapFS{
		"header.html": {Data: []byte(headerHTML)},
		"footer.html": {Data: []byte(footerHTML)},
	}
}

func isCurrent(t *testing.T, d *dom.Document, id string) bool {
	t.Helper()
	cur := false
	d.Do(func(root *html.Node) {
		n := dom.ElementByID(root, id)
		if n == nil {
			t.Fatalf("no element %q", id)
		}
		v, _ := dom.Attr(n, "aria-current")
		cur = dom.HasClass(n, nav.DefaultCurrentClass) && v == "page"
	})
	return cur
}

func TestDecorate_MarksNavInBothFragments(t *testing.T) {
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	sess, err := newDecorator(t, fragments()).Decorate(context.Background(), doc, "/about.html")
	if err != nil {
		t.Fatalf("Decorate: %v", err)
	}
	defer sess.Stop()

	if sess.Current != "/about.html" || len(sess.Injected) != 2 || sess.Marked != 2 {
		t.Errorf("session = %+v", sess)
	}
	if !isCurrent(t, doc, "nav-about") || !isCurrent(t, doc, "foot-about") {
		t.Error("about entries should be current")
	}
	if isCurrent(t, doc, "nav-home") || isCurrent(t, doc, "nav-datasets") {
		t.Error("other entries must not be current")
	}
}

func TestDecorate_StartsClock(t *testing.T) {
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	sess, err := newDecorator(t, fragments()).Decorate(context.Background(), doc, "/")
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Stop()

	if !sess.ClockRunning() {
		t.Fatal("clock should run after header injection")
	}
	var date, tm string
	doc.Do(func(root *html.Node) {
		date = dom.TextContent(dom.ElementByID(root, clock.DefaultDateID))
		tm = dom.TextContent(dom.ElementByID(root, clock.DefaultTimeID))
	})
	if !regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`).MatchString(date) {
		t.Errorf("date = %q", date)
	}
	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`).MatchString(tm) {
		t.Errorf("time = %q", tm)
	}
}

func TestDecorate_FooterOnlyNoClock(t *testing.T) {
	doc, err := dom.ParseString(`<div id="layout-footer"></div>`)
	if err != nil {
		t.Fatal(err)
	}
	sess, err := newDecorator(t, fragments()).Decorate(context.Background(), doc, "/about.html")
	if err != nil {
		t.Fatal(err)
	}
	if sess.ClockRunning() {
		t.Error("clock must not start without the header")
	}
	if !isCurrent(t, doc, "foot-about") {
		t.Error("footer nav should be matched")
	}
}

func TestDecorate_FailureShowsErrorEverywhere(t *testing.T) {
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	fsys := fragments()
	delete(fsys, "header.html")

	sess, err := newDecorator(t, fsys).Decorate(context.Background(), doc, "/")
	if !errors.Is(err, apperr.ErrFragmentLoad) {
		t.Fatalf("err = %v", err)
	}
	if sess.ClockRunning() || len(sess.Injected) != 0 {
		t.Errorf("session after failure = %+v", sess)
	}
	out, _ := doc.Bytes()
	if strings.Count(string(out), fragment.DefaultErrorMessage) != 2 {
		t.Errorf("want error message in both placeholders:\n%s", out)
	}
	if strings.Contains(string(out), "foot-about") {
		t.Error("successful footer must not be injected on failure")
	}
}

func TestInstall_WaitsForLoad(t *testing.T) {
	doc := dom.NewDocument()
	done := newDecorator(t, fragments()).Install(context.Background(), doc, "/datasets/index.html")

	select {
	case <-done:
		t.Fatal("decoration ran before the document loaded")
	case <-time.After(20 * time.Millisecond):
	}

	if err := doc.Load(strings.NewReader(page)); err != nil {
		t.Fatal(err)
	}

	select {
	case out := <-done:
		if out.Err != nil {
			t.Fatalf("Install: %v", out.Err)
		}
		defer out.Session.Stop()
		if !isCurrent(t, doc, "nav-datasets") {
			t.Error("datasets entry should be current")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("decoration did not run after load")
	}

	if _, ok := <-done; ok {
		t.Error("outcome channel should be closed after one delivery")
	}
}

func TestInstall_AlreadyLoaded(t *testing.T) {
	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case out := <-newDecorator(t, fragments()).Install(context.Background(), doc, "/dataset-pages.html?name=x"):
		defer out.Session.Stop()
		if !isCurrent(t, doc, "nav-datasets") {
			t.Error("dataset page should mark the datasets section")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Install did not run")
	}
}
