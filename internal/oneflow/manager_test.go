package oneflow

import (
	"testing"

	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/tools"
	"github.com/jamesprial/opennebula-mcp/internal/tools/tooltest"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newRegs(runner *tooltest.FakeRunner, write bool) []tools.Registration {
	w := safety.NewWriteAccess(write)
	return Tools(NewManager(runner, w, zerolog.Nop()), tools.Deps{Write: w})
}

func Test_OneFlowTools_Cases(t *testing.T) {
	tests := []struct {
		name          string
		tool          string
		args          map[string]any
		write         bool
		wantCmd       string
		out           string
		wantServiceID string
	}{
		{name: "list templates", tool: "list_service_templates", wantCmd: "oneflow-template list --json", out: `{"DOCUMENT_POOL": []}`},
		{name: "list services", tool: "list_services", wantCmd: "oneflow list --json", out: `{"DOCUMENT_POOL": []}`},
		{name: "service info", tool: "get_service_info", args: map[string]any{"service_id": "10"}, wantCmd: "oneflow show 10 --json", out: `{"SERVICE": {"ID": "10"}}`},
		{name: "service log", tool: "get_service_log", args: map[string]any{"service_id": "5"}, wantCmd: "onelog get-service 5", out: "Service Log Content"},
		{
			name: "deploy", tool: "deploy_service", args: map[string]any{"template_id": "5", "name": "my-service"}, write: true,
			wantCmd: "oneflow-template instantiate 5 --name my-service", out: "ID: 10", wantServiceID: "10",
		},
		{name: "delete", tool: "delete_service", args: map[string]any{"service_id": "10"}, write: true, wantCmd: "oneflow delete 10", wantServiceID: "10"},
		{name: "action", tool: "service_action", args: map[string]any{"service_id": "10", "action": "Shutdown"}, write: true, wantCmd: "oneflow action shutdown 10", wantServiceID: "10"},
		{
			name: "scale", tool: "scale_service", args: map[string]any{"service_id": "10", "role_name": "worker", "cardinality": "5"}, write: true,
			wantCmd: "oneflow scale 10 worker 5", wantServiceID: "10",
		},
		{name: "recover", tool: "recover_service", args: map[string]any{"service_id": "10"}, write: true, wantCmd: "oneflow recover 10", wantServiceID: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := tooltest.NewFakeRunner().On(tt.wantCmd, tt.out)

			text := tooltest.Call(t, newRegs(runner, tt.write), tt.tool, tt.args)
			assert.Equal(t, []string{tt.wantCmd}, runner.Commands())
			if tt.wantServiceID == "" {
				assert.Equal(t, tt.out, text)
				return
			}
			doc := tooltest.Parse(t, text)
			assert.Equal(t, "result", doc.Tag())
			assert.Equal(t, tt.wantServiceID, doc.Fields["service_id"])
		})
	}
}

func Test_OneFlowTools_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		write   bool
		wantMsg string
	}{
		{name: "deploy read only", tool: "deploy_service", args: map[string]any{"template_id": "5"}, wantMsg: xmlresult.WriteDisabledMessage},
		{name: "delete read only", tool: "delete_service", args: map[string]any{"service_id": "10"}, wantMsg: xmlresult.WriteDisabledMessage},
		{name: "action read only", tool: "service_action", args: map[string]any{"service_id": "10", "action": "shutdown"}, wantMsg: xmlresult.WriteDisabledMessage},
		{name: "scale read only", tool: "scale_service", args: map[string]any{"service_id": "10", "role_name": "w", "cardinality": "5"}, wantMsg: xmlresult.WriteDisabledMessage},
		{name: "recover read only", tool: "recover_service", args: map[string]any{"service_id": "10"}, wantMsg: xmlresult.WriteDisabledMessage},
		{name: "deploy bad template", tool: "deploy_service", args: map[string]any{"template_id": "abc"}, write: true, wantMsg: "template_id must be a non-negative integer"},
		{name: "info bad id", tool: "get_service_info", args: map[string]any{"service_id": "abc"}, wantMsg: "service_id must be a non-negative integer"},
		{name: "log bad id", tool: "get_service_log", args: map[string]any{"service_id": "abc"}, wantMsg: "service_id must be a non-negative integer"},
		{name: "delete bad id", tool: "delete_service", args: map[string]any{"service_id": "abc"}, write: true, wantMsg: "service_id must be a non-negative integer"},
		{name: "action bad id", tool: "service_action", args: map[string]any{"service_id": "abc", "action": "shutdown"}, write: true, wantMsg: "service_id must be a non-negative integer"},
		{name: "unknown action", tool: "service_action", args: map[string]any{"service_id": "10", "action": "explode"}, write: true, wantMsg: "Invalid action 'explode'. Valid actions: shutdown, shutdown-hard, undeploy, undeploy-hard, hold, release, stop, suspend, resume, boot, delete-recreate, reboot, reboot-hard, poweroff, poweroff-hard, snapshot-create"},
		{name: "scale bad id", tool: "scale_service", args: map[string]any{"service_id": "abc", "role_name": "w", "cardinality": "5"}, write: true, wantMsg: "service_id must be a non-negative integer"},
		{name: "scale bad cardinality", tool: "scale_service", args: map[string]any{"service_id": "10", "role_name": "w", "cardinality": "abc"}, write: true, wantMsg: "cardinality must be a non-negative integer"},
		{name: "recover bad id", tool: "recover_service", args: map[string]any{"service_id": "abc"}, write: true, wantMsg: "service_id must be a non-negative integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := tooltest.NewFakeRunner()
			doc := tooltest.Parse(t, tooltest.Call(t, newRegs(runner, tt.write), tt.tool, tt.args))
			assert.Equal(t, "error", doc.Tag())
			assert.Equal(t, tt.wantMsg, doc.Fields["message"])
			assert.Empty(t, runner.Calls())
		})
	}
}
