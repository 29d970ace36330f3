package tools

import (
	"context"
	"time"

	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Registration pairs an MCP tool definition with its handler function.
type Registration struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// Deps carries the guards and sinks every tool group is built with.
type Deps struct {
	Write    safety.WriteAccess
	Confirm  *safety.ConfirmationTracker
	Recorder *Recorder
}

// Registrar is the part of the MCP server tool groups are registered on.
type Registrar interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

// RegisterAll adds every Registration the filter allows and returns the names
// that were registered. A nil filter allows everything.
func RegisterAll(s Registrar, registrations []Registration, filter *safety.Filter) []string {
	var added []string
	for _, r := range registrations {
		if !filter.IsAllowed(r.Tool.Name) {
			continue
		}
		s.AddTool(r.Tool, r.Handler)
		added = append(added, r.Tool.Name)
	}
	return added
}

// Names lists the tool names of registrations, in order.
func Names(registrations []Registration) []string {
	names := make([]string, 0, len(registrations))
	for _, r := range registrations {
		names = append(names, r.Tool.Name)
	}
	return names
}

// RequireWrite returns the WriteDisabled error when writes are off.
func (d Deps) RequireWrite() *xmlresult.Error {
	if d.Write.Allowed() {
		return nil
	}
	return xmlresult.ErrWriteDisabled()
}

// Unconfirmed reports whether tool needs a confirmation token for resource
// that req does not carry. The token is consumed when checked.
func (d Deps) Unconfirmed(req mcp.CallToolRequest, tool, resource string) bool {
	if !d.Confirm.NeedsConfirmation(tool) {
		return false
	}
	return !d.Confirm.Confirm(Arg(req, "confirmation_token"), tool, resource)
}

// ConfirmationTokenParam declares the optional confirmation_token argument.
func ConfirmationTokenParam() mcp.ToolOption {
	return mcp.WithString("confirmation_token",
		mcp.Description("Confirmation token returned by a prior call, when confirmation is enabled"),
	)
}

// Call produces the response document for one tool invocation. A non-nil
// error is rendered with ErrorDocument.
type Call func(ctx context.Context, req mcp.CallToolRequest) (string, error)

// Handler adapts call into a ToolHandlerFunc that records every invocation.
// The returned handler never reports a Go error to the MCP runtime.
func (d Deps) Handler(tool string, call Call) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		doc, err := call(ctx, req)
		if err != nil {
			doc = ErrorDocument(err)
		}
		return d.Recorder.Respond(tool, req.GetArguments(), doc, start), nil
	}
}

// Guard returns a confirmation prompt when tool needs a token for resource
// and req lacks a valid one, nil otherwise. With writes disabled no prompt
// is issued so that the WriteDisabled error is reported instead.
func (d Deps) Guard(req mcp.CallToolRequest, tool, resource, description string) *mcp.CallToolResult {
	if !d.Write.Allowed() || !d.Unconfirmed(req, tool, resource) {
		return nil
	}
	return ConfirmPrompt(d.Confirm, tool, resource, description)
}

// Destructive is Handler preceded by Guard, keyed on the argument named
// resourceKey.
func (d Deps) Destructive(tool, resourceKey, description string, call Call) server.ToolHandlerFunc {
	inner := d.Handler(tool, call)
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if prompt := d.Guard(req, tool, Arg(req, resourceKey), description); prompt != nil {
			return prompt, nil
		}
		return inner(ctx, req)
	}
}
