// Package tooltest holds helpers shared by tool handler tests: request
// construction, a scripted CLI runner and XML field extraction.
package tooltest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/beevik/etree"
	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/jamesprial/opennebula-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

// NewRequest builds a CallToolRequest carrying args.
func NewRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// ResultText extracts the text of the first content entry.
func ResultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("result is nil")
	}
	if len(result.Content) == 0 {
		t.Fatal("result has no content entries")
	}
	tc, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("first content entry is not TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

// Call invokes the registration called name with args and returns its text.
func Call(t *testing.T, regs []tools.Registration, name string, args map[string]any) string {
	t.Helper()
	for _, r := range regs {
		if r.Tool.Name != name {
			continue
		}
		result, err := r.Handler(context.Background(), NewRequest(name, args))
		if err != nil {
			t.Fatalf("handler %s returned error: %v", name, err)
		}
		return ResultText(t, result)
	}
	t.Fatalf("tool %q not registered", name)
	return ""
}

// Doc is a parsed response document.
type Doc struct {
	Root   *etree.Element
	Fields map[string]string
}

// Tag is the root element name.
func (d Doc) Tag() string {
	return d.Root.Tag
}

// Parse parses doc and indexes the text of the root's direct children.
func Parse(t *testing.T, doc string) Doc {
	t.Helper()
	d := etree.NewDocument()
	if err := d.ReadFromString(doc); err != nil {
		t.Fatalf("response is not XML: %v\n%s", err, doc)
	}
	root := d.Root()
	if root == nil {
		t.Fatalf("response has no root element: %q", doc)
	}
	fields := map[string]string{}
	for _, child := range root.ChildElements() {
		fields[child.Tag] = child.Text()
	}
	return Doc{Root: root, Fields: fields}
}

// Response is one scripted runner reply.
type Response struct {
	Out string
	Err error
}

// FakeRunner answers commands from a script keyed by the space-joined
// argument vector and records every call. Unscripted commands fail.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     [][]string
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{responses: map[string]Response{}}
}

// On scripts a successful reply for cmd.
func (f *FakeRunner) On(cmd, out string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmd] = Response{Out: out}
	return f
}

// Fail scripts a failure for cmd.
func (f *FakeRunner) Fail(cmd string, err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmd] = Response{Err: err}
	return f
}

// Run implements onecli.Runner.
func (f *FakeRunner) Run(_ context.Context, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), args...))
	key := strings.Join(args, " ")
	if r, ok := f.responses[key]; ok {
		return r.Out, r.Err
	}
	return "", &onecli.CommandError{
		Command:  key,
		ExitCode: 255,
		Message:  fmt.Sprintf("unscripted command: %s", key),
	}
}

// Calls returns the argument vectors received so far.
func (f *FakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// Commands returns the received calls as space-joined strings.
func (f *FakeRunner) Commands() []string {
	calls := f.Calls()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, strings.Join(c, " "))
	}
	return out
}

var _ onecli.Runner = (*FakeRunner)(nil)
