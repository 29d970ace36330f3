package oneflow

import (
	"context"

	"github.com/jamesprial/opennebula-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

// DestructiveTools lists the OneFlow tools that can ask for confirmation.
var DestructiveTools = []string{"delete_service"}

func serviceID() mcp.ToolOption {
	return mcp.WithString("service_id", mcp.Required(), mcp.Description("Service id"))
}

// Tools returns the OneFlow tool registrations.
func Tools(mgr *Manager, deps tools.Deps) []tools.Registration {
	listTemplates := mcp.NewTool("list_service_templates",
		mcp.WithDescription("List OneFlow service templates (JSON)."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	deploy := mcp.NewTool("deploy_service",
		mcp.WithDescription("Deploy a service from a OneFlow service template."),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Service template id")),
		mcp.WithString("name", mcp.Description("Name for the new service")),
	)
	listServices := mcp.NewTool("list_services",
		mcp.WithDescription("List OneFlow services (JSON)."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	info := mcp.NewTool("get_service_info",
		mcp.WithDescription("Show a OneFlow service with its roles and VMs (JSON)."),
		serviceID(),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	del := mcp.NewTool("delete_service",
		mcp.WithDescription("Delete a OneFlow service."),
		serviceID(),
		tools.ConfirmationTokenParam(),
		mcp.WithDestructiveHintAnnotation(true),
	)
	action := mcp.NewTool("service_action",
		mcp.WithDescription("Perform an action on every VM of a service (shutdown, undeploy, hold, release, reboot, poweroff, ...)."),
		serviceID(),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action name")),
	)
	scale := mcp.NewTool("scale_service",
		mcp.WithDescription("Change the number of VMs in a service role."),
		serviceID(),
		mcp.WithString("role_name", mcp.Required(), mcp.Description("Role to scale")),
		mcp.WithString("cardinality", mcp.Required(), mcp.Description("Target number of VMs")),
	)
	logTool := mcp.NewTool("get_service_log",
		mcp.WithDescription("Return the OneFlow log of a service."),
		serviceID(),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	recoverTool := mcp.NewTool("recover_service",
		mcp.WithDescription("Recover a service from a failed state."),
		serviceID(),
	)

	return []tools.Registration{
		{Tool: listTemplates, Handler: deps.Handler(listTemplates.Name, func(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
			return mgr.ListTemplates(ctx), nil
		})},
		{Tool: deploy, Handler: deps.Handler(deploy.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
			return mgr.Deploy(ctx, tools.Arg(req, "template_id"), tools.Arg(req, "name"))
		})},
		{Tool: listServices, Handler: deps.Handler(listServices.Name, func(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
			return mgr.ListServices(ctx), nil
		})},
		{Tool: info, Handler: deps.Handler(info.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
			return mgr.ServiceInfo(ctx, tools.Arg(req, "service_id"))
		})},
		{Tool: del, Handler: deps.Destructive(del.Name, "service_id", "Deleting a service terminates all of its VMs.",
			func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
				return mgr.Delete(ctx, tools.Arg(req, "service_id"))
			})},
		{Tool: action, Handler: deps.Handler(action.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
			return mgr.Action(ctx, tools.Arg(req, "service_id"), tools.Arg(req, "action"))
		})},
		{Tool: scale, Handler: deps.Handler(scale.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
			return mgr.Scale(ctx, tools.Arg(req, "service_id"), tools.Arg(req, "role_name"), tools.Arg(req, "cardinality"))
		})},
		{Tool: logTool, Handler: deps.Handler(logTool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
			return mgr.ServiceLog(ctx, tools.Arg(req, "service_id"))
		})},
		{Tool: recoverTool, Handler: deps.Handler(recoverTool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
			return mgr.Recover(ctx, tools.Arg(req, "service_id"))
		})},
	}
}
