package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/lintel/internal/clock"
	"github.com/starford/lintel/internal/decorator"
	"github.com/starford/lintel/internal/fragment"
	"github.com/starford/lintel/internal/models"
	"github.com/starford/lintel/internal/site"
	"github.com/starford/lintel/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()

	root, store := testutil.TestSite(t)
	f, err := fragment.NewDirFetcher(filepath.Join(root, "inc"))
	if err != nil {
		t.Fatal(err)
	}
	logger := testutil.Logger()
	deco := decorator.New(
		fragment.NewLoader(f, fragment.WithLogger(logger)),
		decorator.WithLogger(logger),
		decorator.WithClock(clock.NewUpdater(), time.Second))
	shell := site.Shell{HeaderID: fragment.DefaultHeaderID, FooterID: fragment.DefaultFooterID}

	return New(site.NewService(store, deco, shell, logger)), root
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "decorate_page":
		result, err = srv.decoratePage(ctx, req)
	case "normalize_path":
		result, err = srv.normalizePath(ctx, req)
	case "list_pages":
		result, err = srv.listPages(ctx, req)
	case "get_layout_contract":
		result, err = srv.getLayoutContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestDecoratePage(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "decorate_page", map[string]interface{}{"path": "/about.html"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `<li id="nav-about" class="current-menu-item" aria-current="page">`) {
		t.Errorf("nav not marked:\n%s", text)
	}
}

func TestDecoratePageMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "decorate_page", map[string]interface{}{"path": "/nope.html"})
	if !r.IsError {
		t.Error("expected error for missing page")
	}
}

func TestDecoratePageLayoutFailure(t *testing.T) {
	srv, root := testServer(t)
	if err := os.Remove(filepath.Join(root, "inc", "footer.html")); err != nil {
		t.Fatal(err)
	}
	r := callTool(t, srv, "decorate_page", map[string]interface{}{"path": "/"})
	if !r.IsError {
		t.Error("expected error result when the layout is unavailable")
	}
	if !strings.Contains(resultText(r), fragment.DefaultErrorMessage) {
		t.Errorf("result should carry the fallback page:\n%s", resultText(r))
	}
}

func TestDecoratePageRequiresPath(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "decorate_page", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without path")
	}
}

func TestNormalizePath(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "normalize_path", map[string]interface{}{"path": "/Docs/Index.HTML"})
	if got := resultText(r); got != "/docs" {
		t.Errorf("normalize = %q, want /docs", got)
	}
}

func TestListPages(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "list_pages", map[string]interface{}{})
	var pages []models.PageMetadata
	if err := json.Unmarshal([]byte(resultText(r)), &pages); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	found := false
	for _, p := range pages {
		if p.Path == "datasets/index.md" && p.Kind == models.KindMarkdown {
			found = true
		}
	}
	if !found {
		t.Errorf("datasets/index.md not listed: %+v", pages)
	}
}

func TestLayoutContract(t *testing.T) {
	srv, _ := testServer(t)
	text := resultText(callTool(t, srv, "get_layout_contract", nil))
	for _, want := range []string{fragment.DefaultHeaderID, fragment.DefaultFooterID, clock.DefaultDateID, "current-menu-item"} {
		if !strings.Contains(text, want) {
			t.Errorf("contract missing %q", want)
		}
	}
}
