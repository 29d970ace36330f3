package market

import (
	"context"
	"testing"

	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/tools"
	"github.com/jamesprial/opennebula-mcp/internal/tools/tooltest"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appPool = `<MARKETPLACEAPP_POOL>
  <MARKETPLACEAPP>
    <ID>1</ID>
    <NAME>Ubuntu 22.04</NAME>
    <DESCRIPTION>Ubuntu Server image</DESCRIPTION>
    <TAGS>ubuntu,linux</TAGS>
  </MARKETPLACEAPP>
  <MARKETPLACEAPP>
    <ID>2</ID>
    <NAME>Debian 12</NAME>
    <DESCRIPTION>Debian Server image</DESCRIPTION>
    <TAGS>debian,linux</TAGS>
  </MARKETPLACEAPP>
  <MARKETPLACEAPP>
    <ID>3</ID>
    <NAME>Service WordPress</NAME>
    <DESCRIPTION>Blog appliance</DESCRIPTION>
  </MARKETPLACEAPP>
</MARKETPLACEAPP_POOL>`

func Test_SearchApps_Cases(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		wantIDs []string
	}{
		{name: "name match ignores case", filter: "UBUNTU", wantIDs: []string{"1"}},
		{name: "tag match", filter: "linux", wantIDs: []string{"1", "2"}},
		{name: "description match", filter: "blog", wantIDs: []string{"3"}},
		{name: "no match", filter: "windows", wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := tooltest.NewFakeRunner().On("onemarketapp list --xml", appPool)
			m := NewManager(runner, safety.ReadOnly, zerolog.Nop())

			d := tooltest.Parse(t, m.SearchApps(context.Background(), tt.filter))
			assert.Equal(t, xmlresult.MarketAppPool, d.Tag())
			var ids []string
			for _, app := range d.Root.SelectElements("MARKETPLACEAPP") {
				ids = append(ids, app.SelectElement("ID").Text())
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func Test_SearchApps_PassThrough(t *testing.T) {
	t.Run("no filter", func(t *testing.T) {
		runner := tooltest.NewFakeRunner().On("onemarketapp list --xml", appPool)
		assert.Equal(t, appPool, NewManager(runner, safety.ReadOnly, zerolog.Nop()).SearchApps(context.Background(), ""))
	})

	t.Run("unparsable output", func(t *testing.T) {
		runner := tooltest.NewFakeRunner().On("onemarketapp list --xml", "<MARKETPLACEAPP_POOL>")
		assert.Equal(t, "<MARKETPLACEAPP_POOL>", NewManager(runner, safety.ReadOnly, zerolog.Nop()).SearchApps(context.Background(), "x"))
	})
}

func Test_MarketTools_Cases(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		write   bool
		wantCmd string
		out     string
		wantTag string
		wantMsg string
	}{
		{name: "list markets", tool: "list_markets", wantCmd: "onemarket list --xml", out: "<MARKET_POOL></MARKET_POOL>", wantTag: "MARKET_POOL"},
		{
			name: "import with name", tool: "import_market_app", args: map[string]any{"app_id": "5", "datastore_id": "100", "name": "my-image"}, write: true,
			wantCmd: "onemarketapp export 5 my-image --datastore 100", out: "IMAGE ID: 10", wantTag: "result",
		},
		{
			name: "import without name", tool: "import_market_app", args: map[string]any{"app_id": "5", "datastore_id": "100"}, write: true,
			wantCmd: "onemarketapp export 5 --datastore 100", out: "IMAGE ID: 11", wantTag: "result",
		},
		{name: "import read only", tool: "import_market_app", args: map[string]any{"app_id": "5", "datastore_id": "100"}, wantTag: "error", wantMsg: xmlresult.WriteDisabledMessage},
		{name: "import bad app", tool: "import_market_app", args: map[string]any{"app_id": "abc", "datastore_id": "100"}, write: true, wantTag: "error", wantMsg: "app_id must be a non-negative integer"},
		{name: "import bad datastore", tool: "import_market_app", args: map[string]any{"app_id": "5", "datastore_id": "abc"}, write: true, wantTag: "error", wantMsg: "datastore_id must be a non-negative integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := tooltest.NewFakeRunner()
			if tt.wantCmd != "" {
				runner.On(tt.wantCmd, tt.out)
			}
			w := safety.NewWriteAccess(tt.write)
			regs := Tools(NewManager(runner, w, zerolog.Nop()), tools.Deps{Write: w})

			doc := tooltest.Parse(t, tooltest.Call(t, regs, tt.tool, tt.args))
			assert.Equal(t, tt.wantTag, doc.Tag())
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, doc.Fields["message"])
				assert.Empty(t, runner.Calls())
				return
			}
			require.Equal(t, []string{tt.wantCmd}, runner.Commands())
			if tt.wantTag == "result" {
				assert.Equal(t, tt.out, doc.Fields["output"])
			}
		})
	}
}
