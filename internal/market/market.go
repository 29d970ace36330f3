// Package market browses marketplaces and imports their appliances.
package market

import (
	"context"
	"strings"

	"github.com/beevik/etree"
	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/tools"
	"github.com/jamesprial/opennebula-mcp/internal/validate"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// searchFields are the appliance elements search_market_apps matches on.
var searchFields = []string{"NAME", "DESCRIPTION", "TAGS"}

// Manager runs onemarket and onemarketapp commands.
type Manager struct {
	runner onecli.Runner
	write  safety.WriteAccess
	log    zerolog.Logger
}

// NewManager returns a Manager.
func NewManager(runner onecli.Runner, write safety.WriteAccess, log zerolog.Logger) *Manager {
	return &Manager{runner: runner, write: write, log: log.With().Str("component", "market").Logger()}
}

// ListMarkets returns the marketplace pool.
func (m *Manager) ListMarkets(ctx context.Context) string {
	out, err := m.runner.Run(ctx, "onemarket", "list", "--xml")
	return onecli.Output(out, err)
}

// SearchApps returns the appliances whose name, description or tags contain
// filter, ignoring case. An empty filter returns every appliance. Output
// that cannot be parsed is returned as is.
func (m *Manager) SearchApps(ctx context.Context, filter string) string {
	out, err := m.runner.Run(ctx, "onemarketapp", "list", "--xml")
	if err != nil || filter == "" {
		return onecli.Output(out, err)
	}

	root, err := xmlresult.Parse(out)
	if err != nil {
		m.log.Error().Err(err).Msg("failed to parse marketplace apps")
		return out
	}

	needle := strings.ToLower(filter)
	pool := xmlresult.NewPool(xmlresult.MarketAppPool)
	for _, app := range root.FindElements(".//MARKETPLACEAPP") {
		if matches(app, needle) {
			pool.AppendElement(app)
		}
	}
	m.log.Debug().Str("filter", filter).Int("matches", pool.Len()).Msg("searched marketplace apps")
	return pool.String()
}

func matches(app *etree.Element, needle string) bool {
	for _, field := range searchFields {
		if text, ok := xmlresult.ChildText(app, field); ok && strings.Contains(strings.ToLower(text), needle) {
			return true
		}
	}
	return false
}

// ImportApp exports an appliance into a datastore as a new image.
func (m *Manager) ImportApp(ctx context.Context, appID, datastoreID, name string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.IDs("app_id", appID, "datastore_id", datastoreID); err != nil {
		return "", err
	}

	args := []string{"onemarketapp", "export", appID}
	if name != "" {
		args = append(args, name)
	}
	args = append(args, "--datastore", datastoreID)

	out, err := m.runner.Run(ctx, args...)
	if err != nil {
		return "", err
	}
	m.log.Info().Str("app_id", appID).Str("datastore_id", datastoreID).Msg("appliance imported")
	return xmlresult.Result(
		xmlresult.F("app_id", appID),
		xmlresult.F("message", "Appliance imported successfully"),
		xmlresult.F("output", strings.TrimSpace(out)),
	), nil
}

// Tools returns the marketplace tool registrations.
func Tools(mgr *Manager, deps tools.Deps) []tools.Registration {
	list := mcp.NewTool("list_markets",
		mcp.WithDescription("List marketplaces (repositories of appliances). Use search_market_apps to list the appliances themselves."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	search := mcp.NewTool("search_market_apps",
		mcp.WithDescription("List marketplace appliances, or search them by name, description or tags (case-insensitive)."),
		mcp.WithString("filter", mcp.Description("Text to search for; omit to list every appliance")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	imp := mcp.NewTool("import_market_app",
		mcp.WithDescription("Import a marketplace appliance into a datastore."),
		mcp.WithString("app_id", mcp.Required(), mcp.Description("Appliance id")),
		mcp.WithString("datastore_id", mcp.Required(), mcp.Description("Target datastore id")),
		mcp.WithString("name", mcp.Description("Name for the new image")),
	)

	return []tools.Registration{
		{Tool: list, Handler: deps.Handler(list.Name, func(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
			return mgr.ListMarkets(ctx), nil
		})},
		{Tool: search, Handler: deps.Handler(search.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
			return mgr.SearchApps(ctx, tools.Arg(req, "filter")), nil
		})},
		{Tool: imp, Handler: deps.Handler(imp.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
			return mgr.ImportApp(ctx, tools.Arg(req, "app_id"), tools.Arg(req, "datastore_id"), tools.Arg(req, "name"))
		})},
	}
}
