// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the contact directory as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/rolodex/internal/apperr"
	"github.com/starford/rolodex/internal/contactservice"
	"github.com/starford/rolodex/internal/models"
)

// Server wraps the MCP server with directory tools.
type Server struct {
	mcp *server.MCPServer
	svc *contactservice.Service
}

// New creates a new MCP server with all directory tools registered.
func New(svc *contactservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Rolodex",
		version,
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("add_contact",
		mcp.WithDescription("Add one contact. Fails when the address book is full."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Contact name")),
		mcp.WithString("phone_number", mcp.Required(), mcp.Description("Phone number, stored as text")),
		mcp.WithString("email", mcp.Description("Email address")),
	), s.addContact)

	s.mcp.AddTool(mcp.NewTool("add_contacts",
		mcp.WithDescription("Add several contacts at once. Either all are added or, "+
			"if they do not fit in the remaining space, none are."),
		mcp.WithArray("contacts", mcp.Required(),
			mcp.Description("Contacts to add, in order"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":         map[string]any{"type": "string"},
					"phone_number": map[string]any{"type": "string"},
					"email":        map[string]any{"type": "string"},
				},
				"required": []string{"name", "phone_number"},
			}),
		),
	), s.addContacts)

	s.mcp.AddTool(mcp.NewTool("list_contacts",
		mcp.WithDescription("List all contacts in their current order."),
	), s.listContacts)

	s.mcp.AddTool(mcp.NewTool("search_contacts",
		mcp.WithDescription("Find the first contact whose name matches (ignoring case) "+
			"or whose phone number matches exactly."),
		mcp.WithString("keyword", mcp.Required(), mcp.Description("Name or phone number")),
	), s.searchContacts)

	s.mcp.AddTool(mcp.NewTool("remove_contact",
		mcp.WithDescription("Remove the first contact with the given name (ignoring case)."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Contact name")),
	), s.removeContact)

	s.mcp.AddTool(mcp.NewTool("sort_contacts",
		mcp.WithDescription("Sort the address book in place."),
		mcp.WithString("by", mcp.Enum(string(contactservice.SortByName), string(contactservice.SortByNumber)),
			mcp.Description("Sort key (default name)")),
	), s.sortContacts)

	s.mcp.AddTool(mcp.NewTool("directory_size",
		mcp.WithDescription("Report how many contacts are stored and the capacity."),
	), s.directorySize)

	s.mcp.AddTool(mcp.NewTool("clear_directory",
		mcp.WithDescription("Remove every contact."),
	), s.clearDirectory)

	return s
}

// Listen serves MCP requests read from in and writes responses to out
// until ctx is cancelled or in is exhausted.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer, logger *slog.Logger) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

func (s *Server) addContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	phone, err := req.RequireString("phone_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	email := req.GetString("email", "")

	if _, err := s.svc.Add(ctx, name, phone, email); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s", name)), nil
}

func (s *Server) addContacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["contacts"]
	if !ok {
		return mcp.NewToolResultError(`required argument "contacts" not found`), nil
	}
	// Round-trip through JSON to map loosely typed arguments onto Contact.
	data, err := json.Marshal(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var contacts []models.Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("contacts must be an array of objects: %v", err)), nil
	}

	if err := s.svc.AddAll(ctx, contacts); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added %d contacts", len(contacts))), nil
}

func (s *Server) listContacts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contacts := s.svc.List(ctx)
	if len(contacts) == 0 {
		return mcp.NewToolResultText("address book is empty"), nil
	}
	out, _ := json.MarshalIndent(contacts, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchContacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword, err := req.RequireString("keyword")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.Search(ctx, keyword)
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.MarshalIndent(c, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) removeContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	c, err := s.svc.Remove(ctx, name)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", c.Name)), nil
}

func (s *Server) sortContacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := contactservice.SortKey(req.GetString("by", string(contactservice.SortByName)))
	if key != contactservice.SortByName && key != contactservice.SortByNumber {
		return mcp.NewToolResultError(fmt.Sprintf("unknown sort key %q (valid: name, phone)", key)), nil
	}
	sorted := s.svc.Sort(ctx, key)
	return mcp.NewToolResultText(fmt.Sprintf("sorted %d contacts by %s", len(sorted), key)), nil
}

func (s *Server) directorySize(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(fmt.Sprintf("%d/%d", s.svc.Size(ctx), s.svc.Capacity())), nil
}

func (s *Server) clearDirectory(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.svc.Clear(ctx)
	return mcp.NewToolResultText("cleared"), nil
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrCapacityExceeded):
		return mcp.NewToolResultError("address book is full")
	case errors.Is(err, apperr.ErrInsufficientSpace):
		return mcp.NewToolResultError("not enough space to add all contacts")
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("contact not found")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
