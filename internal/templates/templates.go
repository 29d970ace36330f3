// Package templates lists and edits VM templates.
package templates

import (
	"context"
	"strings"

	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/tools"
	"github.com/jamesprial/opennebula-mcp/internal/validate"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Manager runs onetemplate commands.
type Manager struct {
	runner onecli.Runner
	fs     afero.Fs
	write  safety.WriteAccess
	log    zerolog.Logger
}

// NewManager returns a Manager staging template content on fs.
func NewManager(runner onecli.Runner, fs afero.Fs, write safety.WriteAccess, log zerolog.Logger) *Manager {
	return &Manager{runner: runner, fs: fs, write: write, log: log.With().Str("component", "templates").Logger()}
}

// List returns the template pool.
func (m *Manager) List(ctx context.Context) string {
	out, err := m.runner.Run(ctx, "onetemplate", "list", "--xml")
	return onecli.Output(out, err)
}

// Update replaces the template body, or merges content into it when
// appendMode is set.
func (m *Manager) Update(ctx context.Context, templateID, content string, appendMode bool) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("template_id", templateID); err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "content must not be empty")
	}

	var out string
	err := onecli.WithTempFile(m.fs, "template-*.tmpl", content, func(path string) error {
		args := []string{"onetemplate", "update", templateID, path}
		if appendMode {
			args = append(args, "--append")
		}
		var err error
		out, err = m.runner.Run(ctx, args...)
		return err
	})
	if err != nil {
		m.log.Warn().Str("template_id", templateID).Err(err).Msg("template update failed")
		return "", err
	}

	m.log.Info().Str("template_id", templateID).Bool("append", appendMode).Msg("template updated")
	return xmlresult.Result(
		xmlresult.F("template_id", templateID),
		xmlresult.F("operation", "update"),
		xmlresult.F("append", xmlresult.Bool(appendMode)),
		xmlresult.F("message", "Template "+templateID+" updated successfully"),
		xmlresult.F("command_output", strings.TrimSpace(out)),
	), nil
}

// Tools returns the template tool registrations.
func Tools(mgr *Manager, deps tools.Deps) []tools.Registration {
	list := mcp.NewTool("list_templates",
		mcp.WithDescription("List all VM templates accessible to the current user."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	update := mcp.NewTool("update_template",
		mcp.WithDescription("Replace the contents of a VM template, or merge new attributes into it."),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Template id")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Template attributes in OpenNebula template syntax")),
		mcp.WithBoolean("append", mcp.Description("Merge into the existing template instead of replacing it")),
	)

	return []tools.Registration{
		{Tool: list, Handler: deps.Handler(list.Name, func(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
			return mgr.List(ctx), nil
		})},
		{Tool: update, Handler: deps.Handler(update.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
			return mgr.Update(ctx, tools.Arg(req, "template_id"), tools.Arg(req, "content"), tools.BoolArg(req, "append", false))
		})},
	}
}
