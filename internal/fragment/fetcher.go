// Package fragment fetches shared layout fragments and splices them into
// placeholder elements of a page.
package fragment

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// maxFragmentSize bounds a single fragment body.
const maxFragmentSize = 4 << 20

// Fetcher retrieves the raw HTML of a named fragment ("header" reads
// <base>/header.html).
type Fetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// FileName returns the file a fragment name is stored under.
func FileName(name string) string {
	return name + ".html"
}

// StatusError is returned when the fragment server answers with a non-2xx
// status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fragment: GET %s: status %d", e.URL, e.StatusCode)
}

// HTTPFetcher loads fragments over HTTP relative to a base URL.
type HTTPFetcher struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPFetcher returns a fetcher for an http or https base URL. A nil
// client uses http.DefaultClient.
func NewHTTPFetcher(base string, client *http.Client) (*HTTPFetcher, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("fragment: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("fragment: base url must be http or https: %s", base)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{base: u, client: client}, nil
}

// URL returns the absolute URL of the named fragment.
func (f *HTTPFetcher) URL(name string) string {
	u := *f.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + FileName(name)
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Fetch issues GET <base>/<name>.html. Anything but a 2xx answer is an
// error.
func (f *HTTPFetcher) Fetch(ctx context.Context, name string) (string, error) {
	target := f.URL(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("fragment: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fragment: GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFragmentSize+1))
	if err != nil {
		return "", fmt.Errorf("fragment: read %s: %w", target, err)
	}
	if len(body) > maxFragmentSize {
		return "", fmt.Errorf("fragment: %s exceeds %d bytes", target, maxFragmentSize)
	}
	return string(body), nil
}

// DirFetcher loads fragments from a directory or any fs.FS.
type DirFetcher struct {
	fsys fs.FS
	dir  string
}

// NewDirFetcher returns a fetcher reading <dir>/<name>.html. The directory
// must exist.
func NewDirFetcher(dir string) (*DirFetcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("fragment: resolve dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("fragment: stat dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fragment: not a directory: %s", abs)
	}
	return &DirFetcher{fsys: os.DirFS(abs), dir: abs}, nil
}

// NewFSFetcher returns a fetcher reading <name>.html from the root of fsys.
func NewFSFetcher(fsys fs.FS) *DirFetcher {
	return &DirFetcher{fsys: fsys}
}

// Dir returns the absolute directory backing the fetcher, or "" when it
// was built from an fs.FS.
func (f *DirFetcher) Dir() string {
	return f.dir
}

// Fetch reads the fragment file.
func (f *DirFetcher) Fetch(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := fs.ReadFile(f.fsys, FileName(name))
	if err != nil {
		return "", fmt.Errorf("fragment: read %s: %w", FileName(name), err)
	}
	return string(data), nil
}

// NewFetcher picks a fetcher for base: http and https URLs use HTTP,
// file URLs and plain paths read from disk.
func NewFetcher(base string, client *http.Client) (Fetcher, error) {
	lower := strings.ToLower(base)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return NewHTTPFetcher(base, client)
	case strings.HasPrefix(lower, "file://"):
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("fragment: parse base url: %w", err)
		}
		return NewDirFetcher(filepath.FromSlash(u.Path))
	default:
		return NewDirFetcher(base)
	}
}

// BaseFromScriptURL returns the directory containing the script at src,
// which is where the fragments are published next to it. Query and
// fragment parts are dropped.
func BaseFromScriptURL(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		if i := strings.LastIndex(src, "/"); i >= 0 {
			return src[:i]
		}
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawPath = ""
	dir := path.Dir(u.Path)
	if dir == "." || dir == "/" {
		dir = ""
	}
	u.Path = dir
	return u.String()
}
