package vm

import (
	"context"

	"github.com/jamesprial/opennebula-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

// DestructiveTools lists the VM tools that can ask for confirmation.
// manage_vm asks only for terminate.
var DestructiveTools = []string{"manage_vm"}

// VMTools returns the tool registrations for every VM tool, backed by mgr.
func VMTools(mgr VMManager, deps tools.Deps) []tools.Registration {
	return []tools.Registration{
		getVMStatus(mgr, deps),
		manageVM(mgr, deps),
		instantiateVM(mgr, deps),
		listVMs(mgr, deps),
		getVMLog(mgr, deps),
		executeCommand(mgr, deps),
		snapshotCreate(mgr, deps),
		snapshotRevert(mgr, deps),
		diskAttach(mgr, deps),
		diskDetach(mgr, deps),
		diskResize(mgr, deps),
		nicAttach(mgr, deps),
		nicDetach(mgr, deps),
	}
}

// ---------------------------------------------------------------------------
// Core tools
// ---------------------------------------------------------------------------

func getVMStatus(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("get_vm_status",
		mcp.WithDescription("Get the full XML descriptor of one VM, or of several VMs given as a comma-separated list of ids."),
		mcp.WithString("vm_id",
			mcp.Required(),
			mcp.Description("VM id, or comma-separated VM ids (e.g. \"3,7,12\")"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.Status(ctx, tools.Arg(req, "vm_id"))
	})}
}

func manageVM(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("manage_vm",
		mcp.WithDescription("Start, stop, reboot or terminate a VM. Accepts a single id, a comma list or a range (\"10..15\"); single VMs are checked against their current state first."),
		mcp.WithString("vm_id",
			mcp.Required(),
			mcp.Description("VM id, comma-separated ids or an id range"),
		),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Description("One of start, stop, reboot, terminate"),
		),
		mcp.WithBoolean("hard",
			mcp.Description("Force the operation (ignored for start)"),
		),
		tools.ConfirmationTokenParam(),
		mcp.WithDestructiveHintAnnotation(true),
	)

	inner := deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.Manage(ctx, tools.Arg(req, "vm_id"), tools.Arg(req, "operation"), tools.BoolArg(req, "hard", false))
	})

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if op, _ := ParseOperation(tools.Arg(req, "operation")); op == OpTerminate {
			vmID := tools.Arg(req, "vm_id")
			if prompt := deps.Guard(req, tool.Name, vmID, "Terminating VM "+vmID+" destroys it and its volatile disks."); prompt != nil {
				return prompt, nil
			}
		}
		return inner(ctx, req)
	}

	return tools.Registration{Tool: tool, Handler: handler}
}

func instantiateVM(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("instantiate_vm",
		mcp.WithDescription("Create one or more VMs from a template and return their descriptors."),
		mcp.WithString("template_id",
			mcp.Required(),
			mcp.Description("Template id"),
		),
		mcp.WithString("vm_name", mcp.Description("Name for the new VM")),
		mcp.WithString("cpu", mcp.Description("CPU count override")),
		mcp.WithString("memory", mcp.Description("Memory override in MB")),
		mcp.WithString("network_name", mcp.Description("Virtual network to attach a NIC to")),
		mcp.WithString("num_instances", mcp.Description("Number of VMs to create")),
	)

	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.Instantiate(ctx, InstantiateRequest{
			TemplateID: tools.Arg(req, "template_id"),
			Name:       tools.Arg(req, "vm_name"),
			CPU:        tools.Arg(req, "cpu"),
			Memory:     tools.Arg(req, "memory"),
			Network:    tools.Arg(req, "network_name"),
			Count:      tools.Arg(req, "num_instances"),
		})
	})}
}

// ---------------------------------------------------------------------------
// Inventory and diagnostics
// ---------------------------------------------------------------------------

func listVMs(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("list_vms",
		mcp.WithDescription("List VMs, optionally filtered by state, host and cluster."),
		mcp.WithString("state", mcp.Description("Numeric VM state (e.g. 3 for ACTIVE)")),
		mcp.WithString("host_id", mcp.Description("Host id of the VM's current placement")),
		mcp.WithString("cluster_id", mcp.Description("Cluster id of the VM's current placement")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.List(ctx, ListFilter{
			State:     tools.Arg(req, "state"),
			HostID:    tools.Arg(req, "host_id"),
			ClusterID: tools.Arg(req, "cluster_id"),
		})
	})}
}

func getVMLog(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("get_vm_log",
		mcp.WithDescription("Return the OpenNebula log of a VM."),
		mcp.WithString("vm_id", mcp.Required(), mcp.Description("VM id")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.Log(ctx, tools.Arg(req, "vm_id"))
	})}
}

func executeCommand(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("execute_command",
		mcp.WithDescription("Run a shell command inside a VM over SSH."),
		mcp.WithString("vm_ip_address", mcp.Required(), mcp.Description("IP address of the VM")),
		mcp.WithString("command", mcp.Required(), mcp.Description("Shell command to run")),
		mcp.WithDestructiveHintAnnotation(true),
	)

	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.ExecuteCommand(ctx, tools.Arg(req, "vm_ip_address"), tools.Arg(req, "command"))
	})}
}

// ---------------------------------------------------------------------------
// Snapshots, disks and NICs
// ---------------------------------------------------------------------------

func snapshotCreate(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("vm_snapshot_create",
		mcp.WithDescription("Create a snapshot of a VM."),
		mcp.WithString("vm_id", mcp.Required(), mcp.Description("VM id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Snapshot name")),
	)

	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.SnapshotCreate(ctx, tools.Arg(req, "vm_id"), tools.Arg(req, "name"))
	})}
}

func snapshotRevert(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("vm_snapshot_revert",
		mcp.WithDescription("Revert a VM to a snapshot."),
		mcp.WithString("vm_id", mcp.Required(), mcp.Description("VM id")),
		mcp.WithString("snapshot_id", mcp.Required(), mcp.Description("Snapshot id")),
		mcp.WithDestructiveHintAnnotation(true),
	)

	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.SnapshotRevert(ctx, tools.Arg(req, "vm_id"), tools.Arg(req, "snapshot_id"))
	})}
}

func diskAttach(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("vm_disk_attach",
		mcp.WithDescription("Attach an image, or a new empty disk of the given size, to a VM."),
		mcp.WithString("vm_id", mcp.Required(), mcp.Description("VM id")),
		mcp.WithString("image_id", mcp.Description("Image to attach")),
		mcp.WithString("size", mcp.Description("Size in MB of a new volatile disk")),
	)

	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.DiskAttach(ctx, DiskAttachRequest{
			VMID:    tools.Arg(req, "vm_id"),
			ImageID: tools.Arg(req, "image_id"),
			Size:    tools.Arg(req, "size"),
		})
	})}
}

func diskDetach(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("vm_disk_detach",
		mcp.WithDescription("Detach a disk from a VM."),
		mcp.WithString("vm_id", mcp.Required(), mcp.Description("VM id")),
		mcp.WithString("disk_id", mcp.Required(), mcp.Description("Disk id")),
		mcp.WithDestructiveHintAnnotation(true),
	)

	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.DiskDetach(ctx, tools.Arg(req, "vm_id"), tools.Arg(req, "disk_id"))
	})}
}

func diskResize(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("vm_disk_resize",
		mcp.WithDescription("Resize a VM disk."),
		mcp.WithString("vm_id", mcp.Required(), mcp.Description("VM id")),
		mcp.WithString("disk_id", mcp.Required(), mcp.Description("Disk id")),
		mcp.WithString("size", mcp.Required(), mcp.Description("New size in MB")),
	)

	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.DiskResize(ctx, tools.Arg(req, "vm_id"), tools.Arg(req, "disk_id"), tools.Arg(req, "size"))
	})}
}

func nicAttach(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("vm_nic_attach",
		mcp.WithDescription("Attach a network interface to a VM."),
		mcp.WithString("vm_id", mcp.Required(), mcp.Description("VM id")),
		mcp.WithString("network_id", mcp.Required(), mcp.Description("Virtual network id or name")),
		mcp.WithString("ip", mcp.Description("Fixed IP address to request")),
	)

	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.NICAttach(ctx, NICAttachRequest{
			VMID:      tools.Arg(req, "vm_id"),
			NetworkID: tools.Arg(req, "network_id"),
			IP:        tools.Arg(req, "ip"),
		})
	})}
}

func nicDetach(mgr VMManager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("vm_nic_detach",
		mcp.WithDescription("Detach a network interface from a VM."),
		mcp.WithString("vm_id", mcp.Required(), mcp.Description("VM id")),
		mcp.WithString("nic_id", mcp.Required(), mcp.Description("NIC id")),
		mcp.WithDestructiveHintAnnotation(true),
	)

	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.NICDetach(ctx, tools.Arg(req, "vm_id"), tools.Arg(req, "nic_id"))
	})}
}
