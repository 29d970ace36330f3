package vm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/jamesprial/opennebula-mcp/internal/remote"
	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/validate"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/rs/zerolog"
)

// CLIManager implements VMManager on top of the OpenNebula CLI.
type CLIManager struct {
	runner onecli.Runner
	exec   remote.Executor
	write  safety.WriteAccess
	log    zerolog.Logger
}

// NewCLIManager returns a CLIManager. exec may be nil, in which case
// ExecuteCommand reports an execution failure.
func NewCLIManager(runner onecli.Runner, exec remote.Executor, write safety.WriteAccess, log zerolog.Logger) *CLIManager {
	return &CLIManager{
		runner: runner,
		exec:   exec,
		write:  write,
		log:    log.With().Str("component", "vm").Logger(),
	}
}

var _ VMManager = (*CLIManager)(nil)

func (m *CLIManager) show(ctx context.Context, id string) (string, error) {
	return m.runner.Run(ctx, "onevm", "show", id, "--xml")
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

// Status fetches one or more VM descriptors. A single id is passed through
// unchanged; several ids are gathered under VM_POOL with inline markers for
// members that could not be fetched or parsed.
func (m *CLIManager) Status(ctx context.Context, ids string) (string, error) {
	list := validate.SplitIDs(ids)
	if len(list) == 0 {
		return "", xmlresult.Errorf(xmlresult.EmptyTarget, "vm_id must contain at least one VM identifier")
	}
	for _, id := range list {
		if err := validate.ID("vm_id", id); err != nil {
			return "", err
		}
	}

	if len(list) == 1 {
		out, err := m.show(ctx, list[0])
		return onecli.Output(out, err), nil
	}

	pool := xmlresult.NewPool(xmlresult.VMPool)
	for _, id := range list {
		out, err := m.show(ctx, id)
		if err != nil {
			m.log.Warn().Str("vm_id", id).Err(err).Msg("status fetch failed")
			pool.AppendError(id, "Failed to get VM status: "+err.Error())
			continue
		}
		if err := pool.Append(out); err != nil {
			m.log.Warn().Str("vm_id", id).Err(err).Msg("status parse failed")
			pool.AppendError(id, "Failed to parse VM status: "+err.Error())
		}
	}
	return pool.String(), nil
}

// ---------------------------------------------------------------------------
// Manage
// ---------------------------------------------------------------------------

// Manage applies a lifecycle operation to a single VM, a comma list or a
// range. Single targets are checked against their current state first;
// batch targets are handed to the CLI as written.
func (m *CLIManager) Manage(ctx context.Context, target, operation string, hard bool) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}

	op, ok := ParseOperation(operation)
	if !ok {
		return "", xmlresult.Errorf(xmlresult.UnknownOperation,
			"Invalid operation '%s'. Valid operations: %s", op, validOperations())
	}
	t, _ := TransitionFor(op)

	if validate.IsMultiTarget(target) {
		return m.manageBatch(ctx, target, op, t, hard)
	}

	if err := validate.ID("vm_id", target); err != nil {
		return "", err
	}

	observed, err := m.observe(ctx, target)
	if err != nil {
		return "", err
	}
	m.log.Debug().Str("vm_id", target).Str("observed", observed.String()).Str("operation", string(op)).Msg("checking transition")

	if err := t.Check(observed); err != nil {
		m.log.Warn().Str("vm_id", target).Str("operation", string(op)).Msg(err.Message)
		return "", err
	}

	args := []string{"onevm", t.Verb()}
	if hard && t.SupportsHard() {
		args = append(args, "--hard")
	}
	args = append(args, target)

	out, err := m.runner.Run(ctx, args...)
	if err != nil {
		return "", xmlresult.Errorf(xmlresult.ExecutionFailed, "Failed to execute %s: %v", op, err)
	}

	m.log.Info().Str("vm_id", target).Str("operation", string(op)).Bool("hard", hard).Msg("operation completed")
	return xmlresult.Result(
		xmlresult.F("vm_id", target),
		xmlresult.F("operation", string(op)),
		xmlresult.F("hard", xmlresult.Bool(hard)),
		xmlresult.F("message", fmt.Sprintf("VM %s operation executed successfully", op)),
		xmlresult.F("command_output", strings.TrimSpace(out)),
	), nil
}

func (m *CLIManager) manageBatch(ctx context.Context, target string, op Operation, t Transition, hard bool) (string, error) {
	args := []string{"onevm", t.Verb(), target}
	if hard && t.SupportsHard() {
		args = append(args, "--hard")
	}

	out, err := m.runner.Run(ctx, args...)
	if err != nil {
		return "", xmlresult.Errorf(xmlresult.BatchExecutionFailed, "Failed to execute batch %s on VMs %s: %v", op, target, err)
	}

	m.log.Info().Str("vm_ids", target).Str("operation", string(op)).Bool("hard", hard).Msg("batch operation completed")
	return xmlresult.Result(
		xmlresult.F("vm_id", target),
		xmlresult.F("operation", string(op)),
		xmlresult.F("hard", xmlresult.Bool(hard)),
		xmlresult.F("message", fmt.Sprintf("VMs %s %s operation executed successfully", target, op)),
		xmlresult.F("command_output", strings.TrimSpace(out)),
	), nil
}

// observe fetches the VM descriptor and reads STATE and LCM_STATE.
func (m *CLIManager) observe(ctx context.Context, id string) (Observed, error) {
	out, err := m.show(ctx, id)
	if err != nil {
		return Observed{}, xmlresult.Errorf(xmlresult.StatusFetchFailed, "Failed to get VM status: %v", err)
	}
	root, err := xmlresult.Parse(out)
	if err != nil {
		return Observed{}, xmlresult.Errorf(xmlresult.StatusParseFailed, "Failed to parse VM status: %v", err)
	}
	return parseObserved(root)
}

func parseObserved(root *etree.Element) (Observed, error) {
	stateText, ok := xmlresult.ChildText(root, "STATE")
	if !ok {
		return Observed{}, xmlresult.Errorf(xmlresult.StatusParseFailed, "Could not determine VM state")
	}
	state, err := strconv.Atoi(stateText)
	if err != nil {
		return Observed{}, xmlresult.Errorf(xmlresult.StatusParseFailed, "Failed to parse VM status: invalid STATE %q", stateText)
	}

	o := Observed{State: State(state)}
	if lcmText, ok := xmlresult.ChildText(root, "LCM_STATE"); ok {
		lcm, err := strconv.Atoi(lcmText)
		if err != nil {
			return Observed{}, xmlresult.Errorf(xmlresult.StatusParseFailed, "Failed to parse VM status: invalid LCM_STATE %q", lcmText)
		}
		o.LCM = LCMState(lcm)
		o.HasLCM = true
	}
	return o, nil
}

// ---------------------------------------------------------------------------
// Instantiate
// ---------------------------------------------------------------------------

// Instantiate creates VMs from a template and returns the new descriptors.
func (m *CLIManager) Instantiate(ctx context.Context, req InstantiateRequest) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if !validate.IsNonNegInt(req.TemplateID) {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "template_id must be a non-negative integer")
	}
	for _, p := range []struct{ field, value string }{
		{"cpu", req.CPU},
		{"memory", req.Memory},
		{"num_instances", req.Count},
	} {
		if p.value == "" {
			continue
		}
		if err := validate.Positive(p.field, p.value); err != nil {
			return "", err
		}
	}

	args := []string{"onetemplate", "instantiate", req.TemplateID}
	if req.Name != "" {
		args = append(args, "--name", req.Name)
	}
	if req.CPU != "" {
		args = append(args, "--cpu", req.CPU)
	}
	if req.Memory != "" {
		args = append(args, "--memory", req.Memory)
	}
	if req.Network != "" {
		args = append(args, "--nic", req.Network)
	}
	if req.Count != "" {
		args = append(args, "--multiple", req.Count)
	}

	out, err := m.runner.Run(ctx, args...)
	var ids []string
	if err == nil {
		ids = onecli.VMIDs(out)
	}
	switch len(ids) {
	case 0:
		raw := onecli.Output(out, err)
		m.log.Error().Err(err).Str("template_id", req.TemplateID).Msg("no VM ID in instantiate output")
		return "", xmlresult.Errorf(xmlresult.IdExtractionFailed, "Unable to determine new VM ID - raw output: %s", raw)
	case 1:
		m.log.Info().Str("vm_id", ids[0]).Str("template_id", req.TemplateID).Msg("VM instantiated")
		shown, err := m.show(ctx, ids[0])
		return onecli.Output(shown, err), nil
	}

	m.log.Info().Strs("vm_ids", ids).Str("template_id", req.TemplateID).Msg("VMs instantiated")
	pool := xmlresult.NewPool(xmlresult.VMPool)
	for _, id := range ids {
		shown, err := m.show(ctx, id)
		if err != nil {
			m.log.Warn().Str("vm_id", id).Err(err).Msg("descriptor fetch failed")
			pool.AppendError(id, "Failed to get VM status: "+err.Error())
			continue
		}
		if err := pool.Append(shown); err != nil {
			m.log.Warn().Str("vm_id", id).Err(err).Msg("descriptor parse failed")
			pool.AppendError(id, "Failed to parse VM status: "+err.Error())
		}
	}
	return pool.String(), nil
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

const invalidFilterMessage = "Invalid filter values. All filter values must represent integers."

// List returns the VM pool, optionally narrowed by state, host and cluster.
// Host and cluster are matched against the VM's most recent history record.
func (m *CLIManager) List(ctx context.Context, filter ListFilter) (string, error) {
	for _, v := range []string{filter.State, filter.HostID, filter.ClusterID} {
		if v != "" && !validate.IsNonNegInt(v) {
			return "", xmlresult.Errorf(xmlresult.InvalidParameter, invalidFilterMessage)
		}
	}

	out, err := m.runner.Run(ctx, "onevm", "list", "--xml")
	if err != nil || filter.IsZero() {
		return onecli.Output(out, err), nil
	}

	pool, err := xmlresult.Filter(out, filter.matches)
	if err != nil {
		return "", xmlresult.Errorf(xmlresult.StatusParseFailed, "Failed to parse VM list: %v", err)
	}
	return pool.String(), nil
}

func (f ListFilter) matches(vm *etree.Element) bool {
	if vm.Tag != "VM" {
		return false
	}
	if f.State != "" {
		if state, _ := xmlresult.ChildText(vm, "STATE"); state != f.State {
			return false
		}
	}
	if f.HostID == "" && f.ClusterID == "" {
		return true
	}

	history := lastHistory(vm)
	if history == nil {
		return false
	}
	if f.HostID != "" {
		if hid, _ := xmlresult.ChildText(history, "HID"); hid != f.HostID {
			return false
		}
	}
	if f.ClusterID != "" {
		if cid, _ := xmlresult.ChildText(history, "CID"); cid != f.ClusterID {
			return false
		}
	}
	return true
}

func lastHistory(vm *etree.Element) *etree.Element {
	records := vm.SelectElement("HISTORY_RECORDS")
	if records == nil {
		return nil
	}
	entries := records.SelectElements("HISTORY")
	if len(entries) == 0 {
		return nil
	}
	return entries[len(entries)-1]
}

// ---------------------------------------------------------------------------
// Log
// ---------------------------------------------------------------------------

// Log returns the VM's log as printed by onelog.
func (m *CLIManager) Log(ctx context.Context, vmID string) (string, error) {
	if err := validate.ID("vm_id", vmID); err != nil {
		return "", err
	}
	out, err := m.runner.Run(ctx, "onelog", "get-vm", vmID)
	return onecli.Output(out, err), nil
}
