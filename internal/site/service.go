// Package site resolves request paths to site pages and renders them with
// the shared layout applied.
package site

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/starford/lintel/internal/apperr"
	"github.com/starford/lintel/internal/decorator"
	"github.com/starford/lintel/internal/dom"
	"github.com/starford/lintel/internal/models"
	"github.com/starford/lintel/internal/parser"
	"github.com/starford/lintel/internal/storage"
)

// Rendered is a decorated page ready to be written out.
type Rendered struct {
	File      string // site-relative file the page was built from
	Kind      models.PageKind
	Title     string
	HTML      []byte
	ModTime   time.Time
	LayoutErr error // fragment failure; HTML then carries the error message
}

// Shell holds the placeholder ids written into the page generated for a
// Markdown file.
type Shell struct {
	HeaderID string
	FooterID string
}

// Service coordinates storage, Markdown rendering and decoration.
type Service struct {
	store  storage.Provider
	deco   *decorator.Decorator
	md     goldmark.Markdown
	shell  Shell
	logger *slog.Logger
}

// NewService creates a new site service.
func NewService(store storage.Provider, deco *decorator.Decorator, shell Shell, logger *slog.Logger) *Service {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	return &Service{store: store, deco: deco, md: md, shell: shell, logger: logger}
}

// candidates lists the files that may back urlPath, most specific first.
func candidates(urlPath string) []string {
	clean := path.Clean("/" + urlPath)
	rel := strings.TrimPrefix(clean, "/")
	dirLike := rel == "" || strings.HasSuffix(urlPath, "/")

	switch {
	case dirLike:
		return []string{path.Join(rel, "index.html"), path.Join(rel, "index.md")}
	case path.Ext(rel) != "":
		return []string{rel}
	default:
		return []string{rel + ".html", rel + ".md", path.Join(rel, "index.html"), path.Join(rel, "index.md")}
	}
}

// Resolve maps a request path to an existing site file.
func (s *Service) Resolve(urlPath string) (string, fs.FileInfo, error) {
	for _, c := range candidates(urlPath) {
		info, err := s.store.Stat(c)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalidPath) {
				return "", nil, err
			}
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", nil, err
		}
		if info.IsDir() {
			continue
		}
		return c, info, nil
	}
	return "", nil, fmt.Errorf("site: %s: %w", urlPath, apperr.ErrNotFound)
}

// IsPage reports whether file is rendered through the decorator.
func IsPage(file string) bool {
	return models.KindOf(file) != ""
}

// Read returns the raw bytes of a site file, mapping a missing file to
// apperr.ErrNotFound.
func (s *Service) Read(file string) ([]byte, error) {
	data, err := s.store.Read(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("site: %s: %w", file, apperr.ErrNotFound)
	}
	return data, err
}

// Render decorates the page behind urlPath. urlPath is also the current
// path used for navigation matching. A layout failure is not an error: the
// page is returned with the error message in its placeholders and the
// failure in LayoutErr.
func (s *Service) Render(ctx context.Context, urlPath string) (*Rendered, error) {
	file, info, err := s.Resolve(urlPath)
	if err != nil {
		return nil, err
	}
	return s.RenderFile(ctx, urlPath, file, info)
}

// RenderFile is Render for a file already found by Resolve.
func (s *Service) RenderFile(ctx context.Context, urlPath, file string, info fs.FileInfo) (*Rendered, error) {
	kind := models.KindOf(file)
	if kind == "" {
		return nil, fmt.Errorf("site: %s is not a page: %w", file, apperr.ErrNotFound)
	}
	data, err := s.Read(file)
	if err != nil {
		return nil, err
	}

	out := &Rendered{File: file, Kind: kind, ModTime: info.ModTime()}
	if kind == models.KindMarkdown {
		page, title, err := s.markdownPage(data)
		if err != nil {
			return nil, fmt.Errorf("site: render %s: %w", file, err)
		}
		data = page
		out.Title = title
	}

	doc, err := dom.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("site: parse %s: %w", file, err)
	}

	sess, err := s.deco.Decorate(ctx, doc, urlPath)
	// The clock has already been written once; a rendered response is a
	// snapshot so the ticker is not kept.
	sess.Stop()
	if err != nil {
		if !errors.Is(err, apperr.ErrFragmentLoad) {
			return nil, err
		}
		s.logger.Warn("site: layout unavailable",
			slog.String("path", urlPath),
			slog.String("error", err.Error()))
		out.LayoutErr = err
	}

	out.HTML, err = doc.Bytes()
	if err != nil {
		return nil, err
	}
	return out, nil
}

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{- with .Description}}
<meta name="description" content="{{.}}">
{{- end}}
</head>
<body>
<div id="{{.HeaderID}}"></div>
<main>
{{.Content}}
</main>
<div id="{{.FooterID}}"></div>
</body>
</html>
`))

// markdownPage converts a Markdown file into a full page with header and
// footer placeholders.
func (s *Service) markdownPage(data []byte) ([]byte, string, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, "", err
	}
	var body bytes.Buffer
	if err := s.md.Convert([]byte(res.Body), &body); err != nil {
		return nil, "", fmt.Errorf("markdown: %w", err)
	}

	var page bytes.Buffer
	err = shellTemplate.Execute(&page, map[string]any{
		"Title":       res.Title,
		"Description": res.String("description"),
		"HeaderID":    s.shell.HeaderID,
		"FooterID":    s.shell.FooterID,
		"Content":     template.HTML(body.String()),
	})
	if err != nil {
		return nil, "", fmt.Errorf("shell: %w", err)
	}
	return page.Bytes(), res.Title, nil
}

// ListPages returns metadata for every page in the site.
func (s *Service) ListPages() ([]models.PageMetadata, error) {
	return s.store.List("")
}
