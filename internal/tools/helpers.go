// Package tools provides shared helper utilities for MCP tool handlers.
package tools

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jamesprial/opennebula-mcp/internal/metrics"
	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

// TextResult wraps an XML document as a tool result.
func TextResult(doc string) *mcp.CallToolResult {
	return mcp.NewToolResultText(doc)
}

// ErrorDocument renders err as the XML error envelope. Command failures keep
// their exit code and streams; anything else becomes a message-only error.
func ErrorDocument(err error) string {
	var envErr *xmlresult.Error
	if errors.As(err, &envErr) {
		return envErr.XML()
	}
	var cmdErr *onecli.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.XML()
	}
	return xmlresult.Errorf(xmlresult.ExecutionFailed, "%v", err).XML()
}

// ErrorResult returns a tool result carrying the XML error envelope for err.
func ErrorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultText(ErrorDocument(err))
}

// IsErrorDocument reports whether doc is an error envelope.
func IsErrorDocument(doc string) bool {
	return strings.HasPrefix(strings.TrimSpace(doc), "<error>")
}

// Recorder writes the audit entry, the metrics sample and a debug log line for
// each tool call. Every field is optional.
type Recorder struct {
	audit   *safety.AuditLogger
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewRecorder builds a Recorder. Nil audit and metrics disable those sinks.
func NewRecorder(audit *safety.AuditLogger, m *metrics.Metrics, log zerolog.Logger) *Recorder {
	return &Recorder{
		audit:   audit,
		metrics: m,
		log:     log.With().Str("component", "tools").Logger(),
	}
}

// Record logs one completed tool call whose response document was doc.
func (r *Recorder) Record(tool string, params map[string]any, doc string, start time.Time) {
	if r == nil {
		return
	}
	outcome := "ok"
	if IsErrorDocument(doc) {
		outcome = "error"
	}
	elapsed := time.Since(start)

	r.metrics.ObserveTool(tool, outcome, elapsed)
	r.log.Debug().
		Str("tool", tool).
		Str("result", outcome).
		Dur("duration", elapsed).
		Msg("tool call completed")

	if r.audit == nil {
		return
	}
	if err := r.audit.Log(safety.AuditEntry{
		Timestamp: start,
		Tool:      tool,
		Params:    params,
		Result:    outcome,
		Duration:  elapsed,
	}); err != nil {
		r.log.Warn().Err(err).Str("tool", tool).Msg("audit write failed")
	}
}

// Respond records the call and wraps doc as the tool result.
func (r *Recorder) Respond(tool string, params map[string]any, doc string, start time.Time) *mcp.CallToolResult {
	r.Record(tool, params, doc, start)
	return TextResult(doc)
}

// ConfirmPrompt issues a confirmation token and returns the prompt result.
func ConfirmPrompt(confirm *safety.ConfirmationTracker, toolName, resource, description string) *mcp.CallToolResult {
	token := confirm.RequestConfirmation(toolName, resource)
	return mcp.NewToolResultText(fmt.Sprintf(
		"Confirmation required for %s on %q.\n\n%s\n\nTo proceed, call %s again with confirmation_token=%q.",
		toolName, resource, description, toolName, token,
	))
}

// StringArg returns the argument named key as a string and whether it was
// supplied. Numbers are rendered without exponent so that 12 and "12" are
// equivalent; null counts as absent.
func StringArg(req mcp.CallToolRequest, key string) (string, bool) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Arg returns the argument named key as a string, or "" when absent.
func Arg(req mcp.CallToolRequest, key string) string {
	s, _ := StringArg(req, key)
	return s
}

// BoolArg returns the boolean argument named key, accepting "true"/"false"
// strings as well.
func BoolArg(req mcp.CallToolRequest, key string, def bool) bool {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}
