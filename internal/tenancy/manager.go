// Package tenancy manages users, groups and ACL rules.
package tenancy

import (
	"context"
	"strings"

	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/validate"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// CreateUserRequest carries create_user parameters.
type CreateUserRequest struct {
	Name       string
	Password   string
	AuthDriver string
}

// Manager runs oneuser, onegroup and oneacl commands.
type Manager struct {
	runner onecli.Runner
	fs     afero.Fs
	write  safety.WriteAccess
	log    zerolog.Logger
}

// NewManager returns a Manager. Passwords and quota templates are staged on
// fs so they never appear on a command line.
func NewManager(runner onecli.Runner, fs afero.Fs, write safety.WriteAccess, log zerolog.Logger) *Manager {
	return &Manager{runner: runner, fs: fs, write: write, log: log.With().Str("component", "tenancy").Logger()}
}

func (m *Manager) list(ctx context.Context, binary string) string {
	out, err := m.runner.Run(ctx, binary, "list", "--xml")
	return onecli.Output(out, err)
}

// ListUsers returns the user pool.
func (m *Manager) ListUsers(ctx context.Context) string { return m.list(ctx, "oneuser") }

// ListGroups returns the group pool.
func (m *Manager) ListGroups(ctx context.Context) string { return m.list(ctx, "onegroup") }

// ListACLs returns the ACL rule pool.
func (m *Manager) ListACLs(ctx context.Context) string { return m.list(ctx, "oneacl") }

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// CreateUser creates a user. The password is passed to oneuser through a
// temporary file.
func (m *Manager) CreateUser(ctx context.Context, req CreateUserRequest) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if strings.TrimSpace(req.Name) == "" {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "name must not be empty")
	}
	if req.Password == "" {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "password must not be empty")
	}

	var doc string
	err := onecli.WithTempFile(m.fs, "user-*.pw", req.Password, func(path string) error {
		args := []string{"oneuser", "create", req.Name, path, "--read-file"}
		if req.AuthDriver != "" {
			args = append(args, "--driver", req.AuthDriver)
		}
		var err error
		doc, err = onecli.Create(ctx, m.runner, "user_id", "User created successfully", args...)
		return err
	})
	if err != nil {
		return "", err
	}
	m.log.Info().Str("user", req.Name).Msg("user created")
	return doc, nil
}

// UpdateUserQuota applies a quota template to a user.
func (m *Manager) UpdateUserQuota(ctx context.Context, userID, quota string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("user_id", userID); err != nil {
		return "", err
	}
	if strings.TrimSpace(quota) == "" {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "quota_template must not be empty")
	}

	var doc string
	err := onecli.WithTempFile(m.fs, "quota-*.tmpl", quota, func(path string) error {
		var err error
		doc, err = onecli.Action(ctx, m.runner, "user_id", userID, "Quotas updated for user "+userID,
			"oneuser", "quota", userID, path)
		return err
	})
	if err != nil {
		return "", err
	}
	return doc, nil
}

// DeleteUser removes a user.
func (m *Manager) DeleteUser(ctx context.Context, userID string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("user_id", userID); err != nil {
		return "", err
	}
	return onecli.Action(ctx, m.runner, "user_id", userID, "User "+userID+" deleted successfully",
		"oneuser", "delete", userID)
}

// ---------------------------------------------------------------------------
// Groups
// ---------------------------------------------------------------------------

// CreateGroup creates a group.
func (m *Manager) CreateGroup(ctx context.Context, name string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if strings.TrimSpace(name) == "" {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "name must not be empty")
	}
	return onecli.Create(ctx, m.runner, "group_id", "Group created successfully", "onegroup", "create", name)
}

// AddUserToGroup adds a user to a group, as a group admin when admin is set.
func (m *Manager) AddUserToGroup(ctx context.Context, groupID, userID string, admin bool) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.IDs("group_id", groupID, "user_id", userID); err != nil {
		return "", err
	}
	verb := "add_user"
	if admin {
		verb = "add_admin"
	}
	return onecli.Action(ctx, m.runner, "group_id", groupID, "User "+userID+" added to group "+groupID,
		"onegroup", verb, groupID, userID)
}

// DeleteGroup removes a group.
func (m *Manager) DeleteGroup(ctx context.Context, groupID string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("group_id", groupID); err != nil {
		return "", err
	}
	return onecli.Action(ctx, m.runner, "group_id", groupID, "Group "+groupID+" deleted successfully",
		"onegroup", "delete", groupID)
}

// ---------------------------------------------------------------------------
// ACLs
// ---------------------------------------------------------------------------

// CreateACL creates the rule "<user> <resources> <rights>".
func (m *Manager) CreateACL(ctx context.Context, user, resources, rights string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	for _, p := range []struct{ field, value string }{{"user", user}, {"resources", resources}, {"rights", rights}} {
		if strings.TrimSpace(p.value) == "" {
			return "", xmlresult.Errorf(xmlresult.InvalidParameter, "%s must not be empty", p.field)
		}
	}
	rule := strings.Join([]string{user, resources, rights}, " ")
	m.log.Debug().Str("rule", rule).Msg("creating ACL rule")
	return onecli.Create(ctx, m.runner, "acl_id", "ACL created successfully", "oneacl", "create", rule)
}

// DeleteACL removes an ACL rule.
func (m *Manager) DeleteACL(ctx context.Context, aclID string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("acl_id", aclID); err != nil {
		return "", err
	}
	return onecli.Action(ctx, m.runner, "acl_id", aclID, "ACL "+aclID+" deleted successfully",
		"oneacl", "delete", aclID)
}
