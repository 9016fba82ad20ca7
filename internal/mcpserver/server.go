// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes slipbox tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"

	"github.com/starford/slipbox/internal/apperr"
	"github.com/starford/slipbox/internal/note"
	"github.com/starford/slipbox/internal/noteservice"
	"github.com/starford/slipbox/internal/storage"
)

// FormatURI is the resource URI of the note format contract.
const FormatURI = "slipbox://note-format"

// Server wraps the MCP server with slipbox tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *noteservice.Service
	store storage.Provider
}

// New creates a new MCP server with all slipbox tools registered. store is
// used for attachments only; notes go through svc.
func New(svc *noteservice.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"slipbox",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search note titles. Returns matching notes, most recently modified first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Keyword or query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note: title, content, outgoing links and backlinks."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note identifier (e.g. @/notes/20240101120000000.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new empty note with the given title. "+
			"The identifier is generated; fill the body with update_note. "+
			"Read the contract first via the get_note_contract tool or the "+FormatURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the new note")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the title and/or Markdown body of an existing note. "+
			"Pass the checksum from read_note to avoid overwriting concurrent edits."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note identifier")),
		mcp.WithString("title", mcp.Description("New title (omit to keep)")),
		mcp.WithString("content", mcp.Description("New Markdown body without the header (omit to keep)")),
		mcp.WithString("checksum", mcp.Description("Expected checksum of the current note")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the canonical slipbox note format contract. "+
			"Call this before creating or updating notes to ensure correct structure."),
	), s.getNoteContract)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List all notes, or notes under a folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Identifier of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Store an image or PDF under attachments/ from an http(s) URL or a base64 data URI. "+
			"Returns a Markdown image link to paste into a note."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when omitted")),
	), s.uploadAsset)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Note Format Contract",
			mcp.WithResourceDescription("Canonical note format that all notes must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

// normalizeID accepts both "notes/a.md" and "@/notes/a.md".
func normalizeID(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, note.IDPrefix) {
		return raw
	}
	return note.IDFromRel(raw)
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("checksum mismatch: the note changed, read it again")
	case errors.Is(err, apperr.ErrQuerySyntax):
		return mcp.NewToolResultError("invalid query syntax: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.SearchTitle(ctx, query)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetNote(ctx, normalizeID(id))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(detail), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(title) == "" {
		return mcp.NewToolResultError("title is required"), nil
	}
	detail, err := s.svc.CreateNote(ctx, title)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("created: " + detail.ID), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := req.GetArguments()
	var title, content *string
	if v, ok := args["title"].(string); ok {
		title = &v
	}
	if v, ok := args["content"].(string); ok {
		content = &v
	}
	if title == nil && content == nil {
		return mcp.NewToolResultError("title or content is required"), nil
	}
	detail, err := s.svc.UpdateNote(ctx, normalizeID(id), title, content, req.GetString("checksum", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("saved: " + detail.ID), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := strings.Trim(req.GetString("folder", ""), "/")

	items := s.svc.ListNotes(ctx)
	if folder != "" {
		prefix := note.IDPrefix + folder + "/"
		items = lo.Filter(items, func(it noteservice.NoteListItem, _ int) bool {
			return strings.HasPrefix(it.ID, prefix)
		})
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	lines := lo.Map(items, func(it noteservice.NoteListItem, _ int) string {
		return it.ID + "\t" + it.Title
	})
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl := s.svc.Backlinks(ctx, normalizeID(id))
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	ids := lo.Map(bl, func(it noteservice.NoteListItem, _ int) string { return it.ID })
	return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
}
