package tenancy

import (
	"context"

	"github.com/jamesprial/opennebula-mcp/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
)

// DestructiveTools lists the tenancy tools that can ask for confirmation.
var DestructiveTools = []string{"delete_user", "delete_group", "delete_acl"}

// Tools returns the user, group and ACL tool registrations.
func Tools(mgr *Manager, deps tools.Deps) []tools.Registration {
	return []tools.Registration{
		listTool(deps, "list_users", "List all users.", mgr.ListUsers),
		createUser(mgr, deps),
		updateUserQuota(mgr, deps),
		deleteTool(deps, "delete_user", "user_id", "User id", "Deleting a user removes its credentials.", mgr.DeleteUser),
		listTool(deps, "list_groups", "List all groups.", mgr.ListGroups),
		createGroup(mgr, deps),
		addUserToGroup(mgr, deps),
		deleteTool(deps, "delete_group", "group_id", "Group id", "Deleting a group cannot be undone.", mgr.DeleteGroup),
		listTool(deps, "list_acls", "List all ACL rules.", mgr.ListACLs),
		createACL(mgr, deps),
		deleteTool(deps, "delete_acl", "acl_id", "ACL rule id", "Deleting an ACL rule revokes the rights it grants.", mgr.DeleteACL),
	}
}

func listTool(deps tools.Deps, name, description string, list func(context.Context) string) tools.Registration {
	tool := mcp.NewTool(name, mcp.WithDescription(description), mcp.WithReadOnlyHintAnnotation(true))
	return tools.Registration{Tool: tool, Handler: deps.Handler(name, func(ctx context.Context, _ mcp.CallToolRequest) (string, error) {
		return list(ctx), nil
	})}
}

func deleteTool(deps tools.Deps, name, key, keyDesc, warning string, del func(context.Context, string) (string, error)) tools.Registration {
	tool := mcp.NewTool(name,
		mcp.WithDescription(warning),
		mcp.WithString(key, mcp.Required(), mcp.Description(keyDesc)),
		tools.ConfirmationTokenParam(),
		mcp.WithDestructiveHintAnnotation(true),
	)
	return tools.Registration{Tool: tool, Handler: deps.Destructive(name, key, warning, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return del(ctx, tools.Arg(req, key))
	})}
}

func createUser(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("create_user",
		mcp.WithDescription("Create a new user. When asked for a \"public user\", set auth_driver to public."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Username")),
		mcp.WithString("password", mcp.Required(), mcp.Description("Password")),
		mcp.WithString("auth_driver", mcp.Description("Authentication driver: core (default), public, ldap, ...")),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.CreateUser(ctx, CreateUserRequest{
			Name:       tools.Arg(req, "name"),
			Password:   tools.Arg(req, "password"),
			AuthDriver: tools.Arg(req, "auth_driver"),
		})
	})}
}

func updateUserQuota(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("update_user_quota",
		mcp.WithDescription("Set user quotas from an OpenNebula quota template."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User id")),
		mcp.WithString("quota_template", mcp.Required(), mcp.Description("Quota definition, e.g. VM=[CPU=4, MEMORY=8192]")),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.UpdateUserQuota(ctx, tools.Arg(req, "user_id"), tools.Arg(req, "quota_template"))
	})}
}

func createGroup(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("create_group",
		mcp.WithDescription("Create a new group."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Group name")),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.CreateGroup(ctx, tools.Arg(req, "name"))
	})}
}

func addUserToGroup(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("add_user_to_group",
		mcp.WithDescription("Add a user to a group, optionally as a group administrator."),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("Group id")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User id")),
		mcp.WithBoolean("admin", mcp.Description("Make the user a group administrator")),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.AddUserToGroup(ctx, tools.Arg(req, "group_id"), tools.Arg(req, "user_id"), tools.BoolArg(req, "admin", false))
	})}
}

func createACL(mgr *Manager, deps tools.Deps) tools.Registration {
	tool := mcp.NewTool("create_acl",
		mcp.WithDescription("Create an ACL rule. user takes '#<id>' for a user, '@<id>' for a group or '*'; "+
			"resources uses the same notation (e.g. 'VM+NET/#0'); rights is e.g. 'USE+MANAGE'."),
		mcp.WithString("user", mcp.Required(), mcp.Description("User component, e.g. #5, @3 or *")),
		mcp.WithString("resources", mcp.Required(), mcp.Description("Resources component, e.g. VM+NET/#0")),
		mcp.WithString("rights", mcp.Required(), mcp.Description("Rights component, e.g. USE+MANAGE")),
	)
	return tools.Registration{Tool: tool, Handler: deps.Handler(tool.Name, func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		return mgr.CreateACL(ctx, tools.Arg(req, "user"), tools.Arg(req, "resources"), tools.Arg(req, "rights"))
	})}
}
