package templates

import (
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

func Test_UpdateTemplate_Cases(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]any
		write      bool
		wantArgs   []string
		wantAppend string
		wantMsg    string
	}{
		{
			name:       "replace",
			args:       map[string]any{"template_id": "10", "content": "NEW_CONTENT"},
			write:      true,
			wantArgs:   []string{"onetemplate", "update", "10"},
			wantAppend: "false",
		},
		{
			name:       "append",
			args:       map[string]any{"template_id": "10", "content": "NEW_CONTENT", "append": true},
			write:      true,
			wantArgs:   []string{"onetemplate", "update", "10", "--append"},
			wantAppend: "true",
		},
		{name: "bad id", args: map[string]any{"template_id": "abc", "content": "X"}, write: true, wantMsg: "template_id must be a non-negative integer"},
		{name: "read only", args: map[string]any{"template_id": "10", "content": "X"}, wantMsg: xmlresult.WriteDisabledMessage},
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
				return "", nil
			})
			w := safety.NewWriteAccess(tt.write)
			regs := Tools(NewManager(runner, fs, w, zerolog.Nop()), tools.Deps{Write: w})

			doc := tooltest.Parse(t, tooltest.Call(t, regs, "update_template", tt.args))
			if tt.wantMsg != "" {
				assert.Equal(t, "error", doc.Tag())
				assert.Equal(t, tt.wantMsg, doc.Fields["message"])
				assert.Nil(t, got)
				return
			}

			require.Len(t, got, len(tt.wantArgs)+1)
			assert.Equal(t, tt.wantArgs[:3], got[:3])
			assert.Equal(t, tt.wantArgs[3:], got[4:])
			assert.Equal(t, "NEW_CONTENT", staged)

			exists, err := afero.Exists(fs, got[3])
			require.NoError(t, err)
			assert.False(t, exists)

			assert.Equal(t, "result", doc.Tag())
			assert.Equal(t, "10", doc.Fields["template_id"])
			assert.Equal(t, "update", doc.Fields["operation"])
			assert.Equal(t, tt.wantAppend, doc.Fields["append"])
		})
	}
}

func Test_ListTemplates_PassThrough(t *testing.T) {
	runner := tooltest.NewFakeRunner().On("onetemplate list --xml", "<VMTEMPLATE_POOL></VMTEMPLATE_POOL>")
	regs := Tools(NewManager(runner, afero.NewMemMapFs(), safety.ReadOnly, zerolog.Nop()), tools.Deps{})

	assert.Equal(t, "<VMTEMPLATE_POOL></VMTEMPLATE_POOL>", tooltest.Call(t, regs, "list_templates", nil))
}

func Test_UpdateTemplate_CommandFailure(t *testing.T) {
	runner := onecli.RunnerFunc(func(context.Context, ...string) (string, error) {
		return "", &onecli.CommandError{Command: "onetemplate update", ExitCode: 255, Stderr: "[one.template.update] Error", Message: "failed"}
	})
	w := safety.NewWriteAccess(true)
	regs := Tools(NewManager(runner, afero.NewMemMapFs(), w, zerolog.Nop()), tools.Deps{Write: w})

	doc := tooltest.Parse(t, tooltest.Call(t, regs, "update_template", map[string]any{"template_id": "3", "content": "CPU=2"}))
	assert.Equal(t, "error", doc.Tag())
	assert.Equal(t, "255", doc.Fields["exit_code"])
}
