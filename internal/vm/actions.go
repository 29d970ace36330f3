package vm

import (
	"context"
	"strings"

	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/jamesprial/opennebula-mcp/internal/validate"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
)

// action runs a write-gated onevm sub-command against vmID and wraps the
// outcome in the action envelope.
func (m *CLIManager) action(ctx context.Context, vmID, operation, message string, args ...string) (string, error) {
	out, err := m.runner.Run(ctx, args...)
	if err != nil {
		m.log.Warn().Str("vm_id", vmID).Str("operation", operation).Err(err).Msg("vm action failed")
		return "", err
	}
	m.log.Info().Str("vm_id", vmID).Str("operation", operation).Msg("vm action completed")
	return xmlresult.Result(
		xmlresult.F("vm_id", vmID),
		xmlresult.F("operation", operation),
		xmlresult.F("message", message),
		xmlresult.F("command_output", strings.TrimSpace(out)),
	), nil
}

// SnapshotCreate takes a named snapshot of the VM.
func (m *CLIManager) SnapshotCreate(ctx context.Context, vmID, name string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("vm_id", vmID); err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "snapshot name must not be empty")
	}
	return m.action(ctx, vmID, "snapshot-create", "Snapshot "+name+" created",
		"onevm", "snapshot-create", vmID, name)
}

// SnapshotRevert rolls the VM back to a snapshot.
func (m *CLIManager) SnapshotRevert(ctx context.Context, vmID, snapshotID string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.IDs("vm_id", vmID, "snapshot_id", snapshotID); err != nil {
		return "", err
	}
	return m.action(ctx, vmID, "snapshot-revert", "Reverted to snapshot "+snapshotID,
		"onevm", "snapshot-revert", vmID, snapshotID)
}

// DiskAttach attaches an existing image or a new volatile disk of Size MB.
func (m *CLIManager) DiskAttach(ctx context.Context, req DiskAttachRequest) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("vm_id", req.VMID); err != nil {
		return "", err
	}

	args := []string{"onevm", "disk-attach", req.VMID}
	switch {
	case req.ImageID != "":
		if err := validate.ID("image_id", req.ImageID); err != nil {
			return "", err
		}
		args = append(args, "--image", req.ImageID)
	case req.Size != "":
		if !validate.IsNonNegInt(req.Size) {
			return "", xmlresult.Errorf(xmlresult.InvalidParameter, "size must be a non-negative integer")
		}
		args = append(args, "--size", req.Size)
	default:
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "Either image_id or size must be provided")
	}
	return m.action(ctx, req.VMID, "disk-attach", "Disk attached", args...)
}

// DiskDetach removes a disk from the VM.
func (m *CLIManager) DiskDetach(ctx context.Context, vmID, diskID string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.IDs("vm_id", vmID, "disk_id", diskID); err != nil {
		return "", err
	}
	return m.action(ctx, vmID, "disk-detach", "Disk "+diskID+" detached",
		"onevm", "disk-detach", vmID, diskID)
}

// DiskResize grows a disk to size MB.
func (m *CLIManager) DiskResize(ctx context.Context, vmID, diskID, size string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.IDs("vm_id", vmID, "disk_id", diskID); err != nil {
		return "", err
	}
	if !validate.IsNonNegInt(size) {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "size must be a non-negative integer")
	}
	return m.action(ctx, vmID, "disk-resize", "Disk "+diskID+" resized to "+size+" MB",
		"onevm", "disk-resize", vmID, diskID, size)
}

// NICAttach attaches a network interface, optionally with a fixed address.
func (m *CLIManager) NICAttach(ctx context.Context, req NICAttachRequest) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("vm_id", req.VMID); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.NetworkID) == "" {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "network_id must not be empty")
	}

	args := []string{"onevm", "nic-attach", req.VMID, "--network", req.NetworkID}
	if req.IP != "" {
		if !validate.IsIPAddress(req.IP) {
			return "", xmlresult.Errorf(xmlresult.InvalidParameter, "Invalid IP address")
		}
		args = append(args, "--ip", req.IP)
	}
	return m.action(ctx, req.VMID, "nic-attach", "NIC attached to network "+req.NetworkID, args...)
}

// NICDetach removes a network interface from the VM.
func (m *CLIManager) NICDetach(ctx context.Context, vmID, nicID string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.IDs("vm_id", vmID, "nic_id", nicID); err != nil {
		return "", err
	}
	return m.action(ctx, vmID, "nic-detach", "NIC "+nicID+" detached",
		"onevm", "nic-detach", vmID, nicID)
}

// ExecuteCommand runs command inside the VM reachable at ip. A failed
// command is reported inside the output field rather than as an error.
func (m *CLIManager) ExecuteCommand(ctx context.Context, ip, command string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if !validate.IsIPAddress(ip) {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "Invalid IP address")
	}
	if strings.TrimSpace(command) == "" {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "command must not be empty")
	}
	if m.exec == nil {
		return "", xmlresult.Errorf(xmlresult.ExecutionFailed, "no remote executor configured")
	}

	out, err := m.exec.Execute(ctx, ip, command)
	if err != nil {
		m.log.Warn().Str("host", ip).Err(err).Msg("remote command failed")
	}
	return xmlresult.Result(
		xmlresult.F("vm_ip_address", ip),
		xmlresult.F("command", command),
		xmlresult.F("output", onecli.Output(out, err)),
	), nil
}
