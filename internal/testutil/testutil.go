// Package testutil provides shared test helpers for building sample sites.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/lintel/internal/storage"
)

// HeaderHTML is a header fragment with a menu and the clock elements.
const HeaderHTML = `<div class="topbar"><span id="bloglo-date"></span> <span id="bloglo-time"></span></div>
<nav><ul class="menu">
<li id="nav-home"><a href="/">Home</a></li>
<li id="nav-about"><a href="/about.html">About</a></li>
<li id="nav-datasets"><a href="/datasets/">Datasets</a></li>
<li id="nav-ext"><a href="https://example.org/">Elsewhere</a></li>
</ul></nav>`

// FooterHTML is a footer fragment.
const FooterHTML = `<footer class="site-footer"><ul class="menu"><li id="foot-about"><a href="/about.html">About</a></li></ul></footer>`

// PageHTML is a page with both placeholders.
const PageHTML = `<!DOCTYPE html><html><head><title>t</title></head><body>
<div id="layout-header"></div>
<main>page body</main>
<div id="layout-footer"></div>
</body></html>`

// WriteFile writes content to rel under root, creating directories.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestSite creates a temporary site with fragments under inc/, an index,
// an about page, a Markdown datasets page and a stylesheet. It returns the
// site root and a storage.Provider over it.
func TestSite(t *testing.T) (string, storage.Provider) {
	t.Helper()
	root := t.TempDir()
	WriteFile(t, root, "inc/header.html", HeaderHTML)
	WriteFile(t, root, "inc/footer.html", FooterHTML)
	WriteFile(t, root, "index.html", PageHTML)
	WriteFile(t, root, "about.html", PageHTML)
	WriteFile(t, root, "dataset-pages.html", PageHTML)
	WriteFile(t, root, "datasets/index.md", "---\ntitle: Datasets\n---\n# All datasets\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	WriteFile(t, root, "css/site.css", "body{margin:0}")

	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
