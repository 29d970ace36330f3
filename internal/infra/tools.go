package infra

import (
	"context"

	"github.com/jamesprial/opennebula-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

// DestructiveTools lists the infra tools that can ask for confirmation.
var DestructiveTools = []string{"delete_vnet", "delete_image"}

// Tools returns the infrastructure tool registrations.
func Tools(mgr *Manager, deps tools.Deps) []tools.Registration {
	return []tools.Registration{
		listTool(deps, "list_clusters", "List all OpenNebula clusters accessible to the current user.", mgr.ListClusters),
		listHosts(mgr, deps),
		listTool(deps, "list_datastores", "List storage datastores and their types. STATE is 0 (READY) or 1 (DISABLE).", mgr.ListDatastores),
		listTool(deps, "list_networks", "List virtual networks available for VM connectivity.", mgr.ListNetworks),
		listTool(deps, "list_images", "List images available for VM creation.", mgr.ListImages),
		hostMonitoring(mgr, deps),
		hostAction(deps, "enable_host", "Enable a host so the scheduler can place VMs on it.", mgr.EnableHost),
		hostAction(deps, "disable_host", "Disable a host so the scheduler stops placing VMs on it.", mgr.DisableHost),
		createVNet(mgr, deps),
		deleteVNet(mgr, deps),
		reserveVNet(mgr, deps),
		createImage(mgr, deps),
		deleteImage(mgr, deps),
		updateImageType(mgr, deps),
	}
}

func listTool(deps tools.Deps, name, description string, list func(context.Context) string) tools.Registration {
	tool := mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(name, func(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
		return list(ctx), nil
	})}
}

func listHosts(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("list_hosts",
		mcp.WithDescription("List compute hosts, optionally filtered by cluster. Host STATE: 0 INIT, 1 MONITORING_MONITORED, 2 MONITORED, 3 ERROR, 4 DISABLED, 8 OFFLINE."),
		mcp.WithString("cluster_id", mcp.Description("Only list hosts in this cluster")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.ListHosts(ctx, tools.Arg(req, "cluster_id"))
	})}
}

func hostMonitoring(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("host_monitoring",
		mcp.WithDescription("Show a host with its capacity and monitoring data."),
		mcp.WithString("host_id", mcp.Required(), mcp.Description("Host id")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.HostMonitoring(ctx, tools.Arg(req, "host_id"))
	})}
}

func hostAction(deps tools.Deps, name, description string, act func(context.Context, string) (string, error)) tools.Registration {
	tool := mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString("host_id", mcp.Required(), mcp.Description("Host id")),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return act(ctx, tools.Arg(req, "host_id"))
	})}
}

func createVNet(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("create_vnet",
		mcp.WithDescription("Create a virtual network from an OpenNebula template."),
		mcp.WithString("template_content", mcp.Required(), mcp.Description("Virtual network template, e.g. NAME=\"private\" VN_MAD=\"bridge\" ...")),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.CreateVNet(ctx, tools.Arg(req, "template_content"))
	})}
}

func deleteVNet(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("delete_vnet",
		mcp.WithDescription("Delete a virtual network."),
		mcp.WithString("vnet_id", mcp.Required(), mcp.Description("Virtual network id")),
		tools.ConfirmationTokenParam(),
		mcp.WithDestructiveHintAnnotation(true),
	)
	return tools.Registration{Tool: tool, Handler: deps.Destructive(tool.Name, "vnet_id", "Deleting a virtual network releases all of its leases.",
		func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
			return mgr.DeleteVNet(ctx, tools.Arg(req, "vnet_id"))
		})}
}

func reserveVNet(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("reserve_vnet",
		mcp.WithDescription("Reserve a block of addresses from a virtual network."),
		mcp.WithString("vnet_id", mcp.Required(), mcp.Description("Virtual network id")),
		mcp.WithString("size", mcp.Required(), mcp.Description("Number of addresses")),
		mcp.WithString("name", mcp.Description("Name of the reservation network")),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.ReserveVNet(ctx, tools.Arg(req, "vnet_id"), tools.Arg(req, "size"), tools.Arg(req, "name"))
	})}
}

func createImage(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("create_image",
		mcp.WithDescription("Register a new image in a datastore."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Image name")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path or URL of the image source")),
		mcp.WithString("datastore_id", mcp.Required(), mcp.Description("Target datastore id")),
		mcp.WithString("type", mcp.Description("OS, CDROM, DATABLOCK, KERNEL, RAMDISK or CONTEXT")),
		mcp.WithString("prefix", mcp.Description("Device prefix, e.g. vd or sd")),
		mcp.WithBoolean("persistent", mcp.Description("Make the image persistent")),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.CreateImage(ctx, CreateImageRequest{
			Name:        tools.Arg(req, "name"),
			Path:        tools.Arg(req, "path"),
			DatastoreID: tools.Arg(req, "datastore_id"),
			Type:        tools.Arg(req, "type"),
			Prefix:      tools.Arg(req, "prefix"),
			Persistent:  tools.BoolArg(req, "persistent", false),
		})
	})}
}

func deleteImage(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("delete_image",
		mcp.WithDescription("Delete an image."),
		mcp.WithString("image_id", mcp.Required(), mcp.Description("Image id")),
		tools.ConfirmationTokenParam(),
		mcp.WithDestructiveHintAnnotation(true),
	)
	return tools.Registration{Tool: tool, Handler: deps.Destructive(tool.Name, "image_id", "Deleting an image removes it from its datastore.",
		func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
			return mgr.DeleteImage(ctx, tools.Arg(req, "image_id"))
		})}
}

func updateImageType(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("update_image_type",
		mcp.WithDescription("Change the type of an image."),
		mcp.WithString("image_id", mcp.Required(), mcp.Description("Image id")),
		mcp.WithString("type", mcp.Required(), mcp.Description("OS, CDROM, DATABLOCK, KERNEL, RAMDISK or CONTEXT")),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.UpdateImageType(ctx, tools.Arg(req, "image_id"), tools.Arg(req, "type"))
	})}
}
