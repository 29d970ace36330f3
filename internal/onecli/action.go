package onecli

import (
	"context"
	"strings"

	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
)

// Action runs args and wraps a successful outcome as
// <result><idField>id</idField><message/><command_output/></result>.
// A command failure is returned unchanged.
func Action(ctx context.Context, r Runner, idField, id, message string, args ...string) (string, error) {
	out, err := r.Run(ctx, args...)
	if err != nil {
		return "", err
	}
	return xmlresult.Result(
		xmlresult.F(idField, id),
		xmlresult.F("message", message),
		xmlresult.F("command_output", strings.TrimSpace(out)),
	), nil
}

// Create runs a create-style command and reports the identifier it printed
// under idField.
func Create(ctx context.Context, r Runner, idField, message string, args ...string) (string, error) {
	out, err := r.Run(ctx, args...)
	if err != nil {
		return "", err
	}
	id, err := ParseID(out)
	if err != nil {
		return "", xmlresult.Errorf(xmlresult.IdExtractionFailed, "Unable to determine new %s - raw output: %s", idField, out)
	}
	return xmlresult.Result(
		xmlresult.F(idField, id),
		xmlresult.F("message", message),
		xmlresult.F("command_output", strings.TrimSpace(out)),
	), nil
}
