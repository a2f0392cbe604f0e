package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/starford/lintel/internal/apperr"
	"github.com/starford/lintel/internal/fragment"
	"github.com/starford/lintel/internal/testutil"
)

func siteConfig(t *testing.T) *Config {
	t.Helper()
	root, _ := testutil.TestSite(t)
	cfg := NewDefaultConfig()
	cfg.Site.Root = root
	return cfg
}

func TestNewStack_ScriptURL(t *testing.T) {
	cfg := siteConfig(t)
	st, err := newStack(cfg, testutil.Logger(), false)
	if err != nil {
		t.Fatalf("newStack: %v", err)
	}
	dir, ok := st.fetcher.(*fragment.DirFetcher)
	if !ok {
		t.Fatalf("fetcher = %T, want *fragment.DirFetcher", st.fetcher)
	}
	if filepath.Base(dir.Dir()) != "inc" {
		t.Errorf("fragment dir = %s", dir.Dir())
	}
}

func TestNewStack_MissingSite(t *testing.T) {
	cfg := siteConfig(t)
	cfg.Site.Root = filepath.Join(t.TempDir(), "absent")
	if _, err := newStack(cfg, testutil.Logger(), false); err == nil {
		t.Fatal("missing site root should fail")
	}
}

func TestRender(t *testing.T) {
	cfg := siteConfig(t)
	var buf bytes.Buffer
	err := Render(context.Background(), "/about.html", &buf, WithConfig(cfg), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), `<li id="nav-about" class="current-menu-item" aria-current="page">`) {
		t.Errorf("page not decorated:\n%s", buf.String())
	}
}

func TestRender_Sanitized(t *testing.T) {
	cfg := siteConfig(t)
	cfg.Layout.Sanitize = true
	var buf bytes.Buffer
	if err := Render(context.Background(), "/", &buf, WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), `<li id="nav-home" class="current-menu-item" aria-current="page">`) {
		t.Errorf("sanitized header lost its menu:\n%s", buf.String())
	}
}

func TestRender_NotFound(t *testing.T) {
	cfg := siteConfig(t)
	err := Render(context.Background(), "/missing.html", io.Discard, WithConfig(cfg), WithLogOutput(io.Discard))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background(), WithLogOutput(io.Discard)); err == nil {
		t.Fatal("Run without config should fail")
	}
}

func renderTwice(t *testing.T, st *stack, change func()) (string, string) {
	t.Helper()
	first, err := st.site.Render(context.Background(), "/about.html")
	if err != nil {
		t.Fatalf("first Render: %v", err)
	}
	change()
	second, err := st.site.Render(context.Background(), "/about.html")
	if err != nil {
		t.Fatalf("second Render: %v", err)
	}
	return string(first.HTML), string(second.HTML)
}

func TestNewStack_HTTPBaseFetchesEveryLoad(t *testing.T) {
	var mu sync.Mutex
	version := "V1"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		v := version
		mu.Unlock()
		switch r.URL.Path {
		case "/inc/header.html":
			_, _ = w.Write([]byte(`<nav class="menu">` + v + `</nav>`))
		case "/inc/footer.html":
			_, _ = w.Write([]byte(`<footer>f</footer>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := siteConfig(t)
	cfg.Layout.BaseURL = srv.URL + "/inc/"
	st, err := newStack(cfg, testutil.Logger(), true)
	if err != nil {
		t.Fatalf("newStack: %v", err)
	}
	if st.cache != nil || st.watcher != nil {
		t.Fatal("remote fragments must not be cached")
	}

	first, second := renderTwice(t, st, func() {
		mu.Lock()
		version = "V2"
		mu.Unlock()
	})
	if !strings.Contains(first, "V1") || !strings.Contains(second, "V2") {
		t.Errorf("second load served a stale header:\nfirst: %s\nsecond: %s", first, second)
	}
}

func TestNewStack_UnwatchedDirFetchesEveryLoad(t *testing.T) {
	cfg := siteConfig(t)
	st, err := newStack(cfg, testutil.Logger(), false)
	if err != nil {
		t.Fatalf("newStack: %v", err)
	}
	if st.cache != nil {
		t.Fatal("unwatched fragments must not be cached")
	}

	_, second := renderTwice(t, st, func() {
		testutil.WriteFile(t, cfg.Site.Root, "inc/footer.html", `<footer id="fresh-footer"></footer>`)
	})
	if !strings.Contains(second, "fresh-footer") {
		t.Errorf("second load served a stale footer:\n%s", second)
	}
}

func TestNewStack_WatchedDirIsCached(t *testing.T) {
	cfg := siteConfig(t)
	st, err := newStack(cfg, testutil.Logger(), true)
	if err != nil {
		t.Fatalf("newStack: %v", err)
	}
	if st.watcher == nil || st.cache == nil {
		t.Fatal("watched fragment dir should be cached")
	}
	t.Cleanup(func() { _ = st.watcher.Close() })
	if filepath.Base(st.watcher.Dir()) != "inc" {
		t.Errorf("watch dir = %s", st.watcher.Dir())
	}
}
