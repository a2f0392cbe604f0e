// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes lintel decoration tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/lintel/internal/apperr"
	"github.com/starford/lintel/internal/nav"
	"github.com/starford/lintel/internal/site"
)

// ContractURI identifies the layout contract resource.
const ContractURI = "lintel://layout-contract"

// Server wraps the MCP server with lintel tools.
type Server struct {
	mcp *server.MCPServer
	svc *site.Service
}

// New creates a new MCP server with all lintel tools registered.
func New(svc *site.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Lintel",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("decorate_page",
		mcp.WithDescription("Render a site page with the shared header and footer injected, "+
			"the current navigation entry marked and the clock filled in. Returns the full HTML."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Request path of the page (e.g. /about.html or /datasets/)")),
	), s.decoratePage)

	s.mcp.AddTool(mcp.NewTool("normalize_path",
		mcp.WithDescription("Return the canonical form used when comparing a page path with menu links."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path or href to normalize")),
	), s.normalizePath)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List every HTML and Markdown page in the site with its checksum."),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("get_layout_contract",
		mcp.WithDescription("Returns the markup contract a page and its fragments must follow "+
			"to be decorated. Read it before editing header.html, footer.html or page placeholders."),
	), s.getLayoutContract)

	// Resource: layout contract.
	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Layout Contract",
			mcp.WithResourceDescription("Placeholder ids, menu classes and clock elements used by the decorator."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) decoratePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.Render(ctx, path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	if page.LayoutErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("layout unavailable: %v\n\n%s", page.LayoutErr, page.HTML)), nil
	}
	return mcp.NewToolResultText(string(page.HTML)), nil
}

func (s *Server) normalizePath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(nav.Normalize(path))), nil
}

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.svc.ListPages()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(pages, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getLayoutContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(LayoutContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     LayoutContract,
		},
	}, nil
}
