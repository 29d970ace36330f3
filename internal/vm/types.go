// Package vm manages OpenNebula virtual machines through the onevm and
// onetemplate command-line tools.
package vm

import "context"

// InstantiateRequest carries instantiate_vm parameters. Empty strings mean
// the parameter was not supplied.
type InstantiateRequest struct {
	TemplateID string
	Name       string
	CPU        string
	Memory     string
	Network    string
	Count      string
}

// ListFilter narrows list_vms. Empty fields are not applied.
type ListFilter struct {
	State     string
	HostID    string
	ClusterID string
}

// IsZero reports whether no filter is set.
func (f ListFilter) IsZero() bool {
	return f.State == "" && f.HostID == "" && f.ClusterID == ""
}

// DiskAttachRequest carries vm_disk_attach parameters; exactly one of
// ImageID and Size is expected.
type DiskAttachRequest struct {
	VMID    string
	ImageID string
	Size    string
}

// NICAttachRequest carries vm_nic_attach parameters.
type NICAttachRequest struct {
	VMID      string
	NetworkID string
	IP        string
}

// VMManager defines the operations the VM tools are built on. Every method
// returns the response document, or an error classified by xmlresult.Kind
// (or an onecli.CommandError) that the caller renders.
type VMManager interface {
	Status(ctx context.Context, ids string) (string, error)
	Manage(ctx context.Context, target, operation string, hard bool) (string, error)
	Instantiate(ctx context.Context, req InstantiateRequest) (string, error)
	List(ctx context.Context, filter ListFilter) (string, error)
	Log(ctx context.Context, vmID string) (string, error)

	SnapshotCreate(ctx context.Context, vmID, name string) (string, error)
	SnapshotRevert(ctx context.Context, vmID, snapshotID string) (string, error)
	DiskAttach(ctx context.Context, req DiskAttachRequest) (string, error)
	DiskDetach(ctx context.Context, vmID, diskID string) (string, error)
	DiskResize(ctx context.Context, vmID, diskID, size string) (string, error)
	NICAttach(ctx context.Context, req NICAttachRequest) (string, error)
	NICDetach(ctx context.Context, vmID, nicID string) (string, error)

	ExecuteCommand(ctx context.Context, ip, command string) (string, error)
}
