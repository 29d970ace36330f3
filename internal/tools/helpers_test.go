package tools_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jamesprial/opennebula-mcp/internal/metrics"
	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/tools"
	"github.com/jamesprial/opennebula-mcp/internal/tools/tooltest"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ErrorDocument_Cases(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantMsg  string
		wantExit string
	}{
		{
			name:    "envelope error",
			err:     xmlresult.ErrWriteDisabled(),
			wantMsg: xmlresult.WriteDisabledMessage,
		},
		{
			name:     "command error keeps exit code",
			err:      &onecli.CommandError{Command: "onevm show 1 --xml", ExitCode: 255, Message: "boom"},
			wantMsg:  "boom",
			wantExit: "255",
		},
		{
			name:    "wrapped envelope error",
			err:     errors.Join(errors.New("ctx"), xmlresult.Errorf(xmlresult.InvalidIdentifier, "vm_id must be a non-negative integer")),
			wantMsg: "vm_id must be a non-negative integer",
		},
		{
			name:    "plain error",
			err:     errors.New("network unreachable"),
			wantMsg: "network unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := tooltest.Parse(t, tools.ErrorDocument(tt.err))
			assert.Equal(t, "error", doc.Tag())
			assert.Equal(t, tt.wantMsg, doc.Fields["message"])
			assert.Equal(t, tt.wantExit, doc.Fields["exit_code"])
			assert.True(t, tools.IsErrorDocument(tooltest.ResultText(t, tools.ErrorResult(tt.err))))
		})
	}
}

func Test_IsErrorDocument(t *testing.T) {
	assert.True(t, tools.IsErrorDocument("  <error><message>x</message></error>"))
	assert.False(t, tools.IsErrorDocument("<result/>"))
	assert.False(t, tools.IsErrorDocument("<VM_POOL><ERROR/></VM_POOL>"))
}

func Test_Recorder_NilIsSafe(t *testing.T) {
	var r *tools.Recorder
	r.Record("list_vms", nil, "<VM_POOL/>", time.Now())
	res := r.Respond("list_vms", nil, "<VM_POOL/>", time.Now())
	assert.Equal(t, "<VM_POOL/>", tooltest.ResultText(t, res))
}

func Test_Recorder_WritesAuditAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rec := tools.NewRecorder(safety.NewAuditLogger(&buf), m, zerolog.Nop())

	start := time.Now().Add(-5 * time.Millisecond)
	rec.Record("manage_vm", map[string]any{"vm_id": "3"}, "<result/>", start)
	rec.Record("manage_vm", map[string]any{"vm_id": "x"}, "<error><message>bad</message></error>", start)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "ok", first["result"])
	assert.Equal(t, "error", second["result"])
	assert.Greater(t, first["duration_ns"].(float64), 0.0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("manage_vm", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("manage_vm", "error")))
}

func Test_ConfirmPrompt_IssuesUsableToken(t *testing.T) {
	ct := safety.NewConfirmationTracker([]string{"delete_user"})
	text := tooltest.ResultText(t, tools.ConfirmPrompt(ct, "delete_user", "12", "This removes user 12."))

	assert.Contains(t, text, "Confirmation required for delete_user")
	m := regexp.MustCompile(`confirmation_token="([^"]+)"`).FindStringSubmatch(text)
	require.Len(t, m, 2)
	assert.True(t, ct.Confirm(m[1], "delete_user", "12"))
}

func Test_StringArg_Cases(t *testing.T) {
	req := tooltest.NewRequest("x", map[string]any{
		"s":     "42",
		"f":     float64(7),
		"big":   float64(4096),
		"frac":  1.5,
		"b":     true,
		"null":  nil,
		"empty": "",
	})

	tests := []struct {
		key     string
		want    string
		present bool
	}{
		{"s", "42", true},
		{"f", "7", true},
		{"big", "4096", true},
		{"frac", "1.5", true},
		{"b", "true", true},
		{"null", "", false},
		{"missing", "", false},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := tools.StringArg(req, tt.key)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.present, ok)
		})
	}
}

func Test_BoolArg_Cases(t *testing.T) {
	req := tooltest.NewRequest("x", map[string]any{
		"t":   true,
		"s":   "true",
		"bad": "maybe",
		"num": float64(1),
	})
	assert.True(t, tools.BoolArg(req, "t", false))
	assert.True(t, tools.BoolArg(req, "s", false))
	assert.False(t, tools.BoolArg(req, "bad", false))
	assert.True(t, tools.BoolArg(req, "num", true))
	assert.False(t, tools.BoolArg(req, "missing", false))
}

type recordingRegistrar struct {
	names []string
}

func (r *recordingRegistrar) AddTool(tool mcp.Tool, _ server.ToolHandlerFunc) {
	r.names = append(r.names, tool.Name)
}

func Test_RegisterAll_AppliesFilter(t *testing.T) {
	noop := func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) { return nil, nil }
	regs := []tools.Registration{
		{Tool: mcp.NewTool("list_vms"), Handler: noop},
		{Tool: mcp.NewTool("manage_vm"), Handler: noop},
		{Tool: mcp.NewTool("delete_user"), Handler: noop},
	}

	reg := &recordingRegistrar{}
	added := tools.RegisterAll(reg, regs, safety.NewFilter(nil, []string{"delete_*"}))
	assert.Equal(t, []string{"list_vms", "manage_vm"}, added)
	assert.Equal(t, added, reg.names)

	all := &recordingRegistrar{}
	tools.RegisterAll(all, regs, nil)
	assert.Equal(t, tools.Names(regs), all.names)
}

func Test_Deps_RequireWrite(t *testing.T) {
	assert.Nil(t, tools.Deps{Write: safety.NewWriteAccess(true)}.RequireWrite())

	err := tools.Deps{}.RequireWrite()
	require.NotNil(t, err)
	assert.Equal(t, xmlresult.WriteDisabled, err.Kind)
}

func Test_Deps_Unconfirmed(t *testing.T) {
	ct := safety.NewConfirmationTracker([]string{"delete_group"})
	deps := tools.Deps{Confirm: ct}

	assert.False(t, deps.Unconfirmed(tooltest.NewRequest("list_groups", nil), "list_groups", "1"))
	assert.True(t, deps.Unconfirmed(tooltest.NewRequest("delete_group", nil), "delete_group", "1"))

	token := ct.RequestConfirmation("delete_group", "1")
	req := tooltest.NewRequest("delete_group", map[string]any{"confirmation_token": token})
	assert.False(t, deps.Unconfirmed(req, "delete_group", "1"))

	assert.False(t, tools.Deps{}.Unconfirmed(req, "delete_group", "1"))
}

func Test_Deps_Handler_RendersErrors(t *testing.T) {
	deps := tools.Deps{}
	regs := []tools.Registration{
		{Tool: mcp.NewTool("ok"), Handler: deps.Handler("ok", func(context.Context, mcp.CallToolRequest) (string, error) {
			return "<result/>", nil
		})},
		{Tool: mcp.NewTool("bad"), Handler: deps.Handler("bad", func(context.Context, mcp.CallToolRequest) (string, error) {
			return "", xmlresult.Errorf(xmlresult.InvalidParameter, "nope")
		})},
	}

	assert.Equal(t, "<result/>", tooltest.Call(t, regs, "ok", nil))
	doc := tooltest.Parse(t, tooltest.Call(t, regs, "bad", nil))
	assert.Equal(t, "error", doc.Tag())
	assert.Equal(t, "nope", doc.Fields["message"])
}

func Test_Deps_Destructive_Cases(t *testing.T) {
	tests := []struct {
		name       string
		write      bool
		confirm    bool
		wantPrompt bool
	}{
		{name: "confirmation disabled", write: true},
		{name: "confirmation enabled", write: true, confirm: true, wantPrompt: true},
		{name: "writes disabled skips prompt", confirm: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := tools.Deps{Write: safety.NewWriteAccess(tt.write)}
			if tt.confirm {
				deps.Confirm = safety.NewConfirmationTracker([]string{"delete_user"})
			}
			called := false
			regs := []tools.Registration{{
				Tool: mcp.NewTool("delete_user"),
				Handler: deps.Destructive("delete_user", "user_id", "Deletes the user.", func(context.Context, mcp.CallToolRequest) (string, error) {
					called = true
					return "<result/>", nil
				}),
			}}

			text := tooltest.Call(t, regs, "delete_user", map[string]any{"user_id": "4"})
			if tt.wantPrompt {
				assert.False(t, called)
				assert.Contains(t, text, "Confirmation required for delete_user")

				token := regexp.MustCompile(`confirmation_token="([^"]+)"`).FindStringSubmatch(text)
				require.Len(t, token, 2)
				text = tooltest.Call(t, regs, "delete_user", map[string]any{"user_id": "4", "confirmation_token": token[1]})
			}
			assert.True(t, called)
			assert.Equal(t, "<result/>", text)
		})
	}
}
