// Package oneflow manages multi-VM services through the oneflow and
// oneflow-template command-line tools. Listings are returned as the JSON the
// OneFlow server produces.
package oneflow

import (
	"context"
	"strings"

	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/validate"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Actions are the service actions service_action accepts.
var Actions = []string{
	"shutdown", "shutdown-hard", "undeploy", "undeploy-hard", "hold", "release",
	"stop", "suspend", "resume", "boot", "delete-recreate", "reboot", "reboot-hard",
	"poweroff", "poweroff-hard", "snapshot-create",
}

// Manager runs OneFlow commands.
type Manager struct {
	runner onecli.Runner
	write  safety.WriteAccess
	log    zerolog.Logger
}

// NewManager returns a Manager.
func NewManager(runner onecli.Runner, write safety.WriteAccess, log zerolog.Logger) *Manager {
	return &Manager{runner: runner, write: write, log: log.With().Str("component", "oneflow").Logger()}
}

// ListTemplates returns the service templates as JSON.
func (m *Manager) ListTemplates(ctx context.Context) string {
	out, err := m.runner.Run(ctx, "oneflow-template", "list", "--json")
	return onecli.Output(out, err)
}

// ListServices returns the running services as JSON.
func (m *Manager) ListServices(ctx context.Context) string {
	out, err := m.runner.Run(ctx, "oneflow", "list", "--json")
	return onecli.Output(out, err)
}

// ServiceInfo returns one service as JSON.
func (m *Manager) ServiceInfo(ctx context.Context, serviceID string) (string, error) {
	if err := validate.ID("service_id", serviceID); err != nil {
		return "", err
	}
	out, err := m.runner.Run(ctx, "oneflow", "show", serviceID, "--json")
	return onecli.Output(out, err), nil
}

// ServiceLog returns the OneFlow log of a service.
func (m *Manager) ServiceLog(ctx context.Context, serviceID string) (string, error) {
	if err := validate.ID("service_id", serviceID); err != nil {
		return "", err
	}
	out, err := m.runner.Run(ctx, "onelog", "get-service", serviceID)
	return onecli.Output(out, err), nil
}

// Deploy instantiates a service template.
func (m *Manager) Deploy(ctx context.Context, templateID, name string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("template_id", templateID); err != nil {
		return "", err
	}
	args := []string{"oneflow-template", "instantiate", templateID}
	if name != "" {
		args = append(args, "--name", name)
	}
	m.log.Info().Str("template_id", templateID).Msg("deploying service")
	return onecli.Create(ctx, m.runner, "service_id", "Service deployed successfully", args...)
}

// Delete removes a service and its VMs.
func (m *Manager) Delete(ctx context.Context, serviceID string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("service_id", serviceID); err != nil {
		return "", err
	}
	return onecli.Action(ctx, m.runner, "service_id", serviceID, "Service "+serviceID+" deleted successfully",
		"oneflow", "delete", serviceID)
}

// Action performs one of Actions on every VM of a service.
func (m *Manager) Action(ctx context.Context, serviceID, action string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("service_id", serviceID); err != nil {
		return "", err
	}
	action = strings.ToLower(strings.TrimSpace(action))
	if !lo.Contains(Actions, action) {
		return "", xmlresult.Errorf(xmlresult.UnknownOperation, "Invalid action '%s'. Valid actions: %s", action, strings.Join(Actions, ", "))
	}
	return onecli.Action(ctx, m.runner, "service_id", serviceID, "Action "+action+" performed on service "+serviceID,
		"oneflow", "action", action, serviceID)
}

// Scale sets the cardinality of a service role.
func (m *Manager) Scale(ctx context.Context, serviceID, role, cardinality string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("service_id", serviceID); err != nil {
		return "", err
	}
	if strings.TrimSpace(role) == "" {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "role_name must not be empty")
	}
	if !validate.IsNonNegInt(cardinality) {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "cardinality must be a non-negative integer")
	}
	return onecli.Action(ctx, m.runner, "service_id", serviceID,
		"Role "+role+" of service "+serviceID+" scaled to "+cardinality,
		"oneflow", "scale", serviceID, role, cardinality)
}

// Recover retries the failed step of a service.
func (m *Manager) Recover(ctx context.Context, serviceID string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("service_id", serviceID); err != nil {
		return "", err
	}
	return onecli.Action(ctx, m.runner, "service_id", serviceID, "Service "+serviceID+" recovery started",
		"oneflow", "recover", serviceID)
}
