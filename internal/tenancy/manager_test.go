package tenancy

import (
	"bytes"
	"context"
	"testing"

	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/tools"
	"github.com/jamesprial/opennebula-mcp/internal/tools/tooltest"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegs(runner onecli.Runner, write bool) []tools.Registration {
	w := safety.NewWriteAccess(write)
	return Tools(NewManager(runner, afero.NewMemMapFs(), w, zerolog.Nop()), tools.Deps{Write: w})
}

func Test_TenancyTools_Cases(t *testing.T) {
	tests := []struct {
		name      string
		tool      string
		args      map[string]any
		write     bool
		wantCmd   string
		out       string
		wantField map[string]string
	}{
		{name: "list users", tool: "list_users", wantCmd: "oneuser list --xml", out: "<USER_POOL></USER_POOL>"},
		{name: "list groups", tool: "list_groups", wantCmd: "onegroup list --xml", out: "<GROUP_POOL></GROUP_POOL>"},
		{name: "list acls", tool: "list_acls", wantCmd: "oneacl list --xml", out: "<ACL_POOL></ACL_POOL>"},
		{
			name: "delete user", tool: "delete_user", args: map[string]any{"user_id": "10"}, write: true,
			wantCmd: "oneuser delete 10", wantField: map[string]string{"user_id": "10"},
		},
		{
			name: "create group", tool: "create_group", args: map[string]any{"name": "testgroup"}, write: true,
			wantCmd: "onegroup create testgroup", out: "ID: 10", wantField: map[string]string{"group_id": "10"},
		},
		{
			name: "add user", tool: "add_user_to_group", args: map[string]any{"group_id": "10", "user_id": "5"}, write: true,
			wantCmd: "onegroup add_user 10 5", wantField: map[string]string{"group_id": "10"},
		},
		{
			name: "add admin", tool: "add_user_to_group", args: map[string]any{"group_id": "10", "user_id": "5", "admin": true}, write: true,
			wantCmd: "onegroup add_admin 10 5", wantField: map[string]string{"group_id": "10"},
		},
		{
			name: "delete group", tool: "delete_group", args: map[string]any{"group_id": "10"}, write: true,
			wantCmd: "onegroup delete 10", wantField: map[string]string{"group_id": "10"},
		},
		{
			name: "create acl", tool: "create_acl", args: map[string]any{"user": "#5", "resources": "VM+NET/#0", "rights": "USE+MANAGE"}, write: true,
			wantCmd: "oneacl create #5 VM+NET/#0 USE+MANAGE", out: "ID: 10", wantField: map[string]string{"acl_id": "10"},
		},
		{
			name: "delete acl", tool: "delete_acl", args: map[string]any{"acl_id": "10"}, write: true,
			wantCmd: "oneacl delete 10", wantField: map[string]string{"acl_id": "10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := tooltest.NewFakeRunner().On(tt.wantCmd, tt.out)

			text := tooltest.Call(t, newRegs(runner, tt.write), tt.tool, tt.args)
			assert.Equal(t, []string{tt.wantCmd}, runner.Commands())
			if tt.wantField == nil {
				assert.Equal(t, tt.out, text)
				return
			}
			doc := tooltest.Parse(t, text)
			assert.Equal(t, "result", doc.Tag())
			for k, v := range tt.wantField {
				assert.Equal(t, v, doc.Fields[k], k)
			}
		})
	}
}

func Test_TenancyTools_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		args    map[string]any
		write   bool
		wantMsg string
	}{
		{name: "create user read only", tool: "create_user", args: map[string]any{"name": "u", "password": "p"}, wantMsg: xmlresult.WriteDisabledMessage},
		{name: "quota read only", tool: "update_user_quota", args: map[string]any{"user_id": "1", "quota_template": "VM=[CPU=1]"}, wantMsg: xmlresult.WriteDisabledMessage},
		{name: "create acl read only", tool: "create_acl", args: map[string]any{"user": "#5", "resources": "VM", "rights": "USE"}, wantMsg: xmlresult.WriteDisabledMessage},
		{name: "quota bad user", tool: "update_user_quota", args: map[string]any{"user_id": "abc", "quota_template": "x"}, write: true, wantMsg: "user_id must be a non-negative integer"},
		{name: "delete user bad id", tool: "delete_user", args: map[string]any{"user_id": "abc"}, write: true, wantMsg: "user_id must be a non-negative integer"},
		{name: "add user bad group", tool: "add_user_to_group", args: map[string]any{"group_id": "abc", "user_id": "5"}, write: true, wantMsg: "group_id must be a non-negative integer"},
		{name: "add user bad user", tool: "add_user_to_group", args: map[string]any{"group_id": "10", "user_id": "abc"}, write: true, wantMsg: "user_id must be a non-negative integer"},
		{name: "delete group bad id", tool: "delete_group", args: map[string]any{"group_id": "abc"}, write: true, wantMsg: "group_id must be a non-negative integer"},
		{name: "delete acl bad id", tool: "delete_acl", args: map[string]any{"acl_id": "abc"}, write: true, wantMsg: "acl_id must be a non-negative integer"},
		{name: "acl missing rights", tool: "create_acl", args: map[string]any{"user": "#5", "resources": "VM"}, write: true, wantMsg: "rights must not be empty"},
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

func Test_CreateUser_PasswordNeverOnCommandLine(t *testing.T) {
	tests := []struct {
		name       string
		driver     string
		wantSuffix []string
	}{
		{name: "default driver", wantSuffix: []string{"--read-file"}},
		{name: "public driver", driver: "public", wantSuffix: []string{"--read-file", "--driver", "public"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			var got []string
			var staged string
			runner := onecli.RunnerFunc(func(_ context.Context, args ...string) (string, error) {
				got = args
				data, err := afero.ReadFile(fs, args[3])
				require.NoError(t, err)
				staged = string(data)
				return "ID: 11", nil
			})

			var audit bytes.Buffer
			w := safety.NewWriteAccess(true)
			deps := tools.Deps{Write: w, Recorder: tools.NewRecorder(safety.NewAuditLogger(&audit), nil, zerolog.Nop())}
			regs := Tools(NewManager(runner, fs, w, zerolog.Nop()), deps)

			doc := tooltest.Parse(t, tooltest.Call(t, regs, "create_user", map[string]any{
				"name": "testuser", "password": "password123", "auth_driver": tt.driver,
			}))
			assert.Equal(t, "11", doc.Fields["user_id"])

			require.GreaterOrEqual(t, len(got), 4)
			assert.Equal(t, []string{"oneuser", "create", "testuser"}, got[:3])
			assert.Equal(t, tt.wantSuffix, got[4:])
			assert.Equal(t, "password123", staged)
			assert.NotContains(t, got, "password123")
			assert.NotContains(t, audit.String(), "password123")

			exists, err := afero.Exists(fs, got[3])
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func Test_UpdateUserQuota_StagesTemplate(t *testing.T) {
	fs := afero.NewMemMapFs()
	var staged string
	runner := onecli.RunnerFunc(func(_ context.Context, args ...string) (string, error) {
		assert.Equal(t, []string{"oneuser", "quota", "10"}, args[:3])
		data, err := afero.ReadFile(fs, args[3])
		require.NoError(t, err)
		staged = string(data)
		return "", nil
	})
	m := NewManager(runner, fs, safety.NewWriteAccess(true), zerolog.Nop())

	doc, err := m.UpdateUserQuota(context.Background(), "10", "VM=[CPU=1]")
	require.NoError(t, err)
	assert.Equal(t, "VM=[CPU=1]", staged)
	d := tooltest.Parse(t, doc)
	assert.Equal(t, "10", d.Fields["user_id"])
	assert.Equal(t, "Quotas updated for user 10", d.Fields["message"])
}
