// Package infra exposes clusters, hosts, datastores, virtual networks and
// images.
package infra

import (
	"context"
	"strings"

	"github.com/beevik/etree"
	"github.com/jamesprial/opennebula-mcp/internal/onecli"
	"github.com/jamesprial/opennebula-mcp/internal/safety"
	"github.com/jamesprial/opennebula-mcp/internal/validate"
	"github.com/jamesprial/opennebula-mcp/internal/xmlresult"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

// ImageTypes are the values oneimage accepts for --type and chtype.
var ImageTypes = []string{"OS", "CDROM", "DATABLOCK", "KERNEL", "RAMDISK", "CONTEXT"}

// CreateImageRequest carries create_image parameters.
type CreateImageRequest struct {
	Name        string
	Path        string
	DatastoreID string
	Type        string
	Prefix      string
	Persistent  bool
}

// Manager runs infrastructure commands through the CLI.
type Manager struct {
	runner onecli.Runner
	fs     afero.Fs
	write  safety.WriteAccess
	log    zerolog.Logger
}

// NewManager returns a Manager. Template files are staged on fs.
func NewManager(runner onecli.Runner, fs afero.Fs, write safety.WriteAccess, log zerolog.Logger) *Manager {
	return &Manager{
		runner: runner,
		fs:     fs,
		write:  write,
		log:    log.With().Str("component", "infra").Logger(),
	}
}

func (m *Manager) list(ctx context.Context, binary string) string {
	out, err := m.runner.Run(ctx, binary, "list", "--xml")
	return onecli.Output(out, err)
}

// ListClusters returns the cluster pool.
func (m *Manager) ListClusters(ctx context.Context) string { return m.list(ctx, "onecluster") }

// ListDatastores returns the datastore pool.
func (m *Manager) ListDatastores(ctx context.Context) string { return m.list(ctx, "onedatastore") }

// ListNetworks returns the virtual network pool.
func (m *Manager) ListNetworks(ctx context.Context) string { return m.list(ctx, "onevnet") }

// ListImages returns the image pool.
func (m *Manager) ListImages(ctx context.Context) string { return m.list(ctx, "oneimage") }

// ListHosts returns the host pool, narrowed to one cluster when clusterID is
// set.
func (m *Manager) ListHosts(ctx context.Context, clusterID string) (string, error) {
	if clusterID != "" && !validate.IsNonNegInt(clusterID) {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "cluster_id must be a non-negative integer")
	}

	out, err := m.runner.Run(ctx, "onehost", "list", "--xml")
	if err != nil || clusterID == "" {
		return onecli.Output(out, err), nil
	}

	pool, err := xmlresult.Filter(out, func(host *etree.Element) bool {
		cid, _ := xmlresult.ChildText(host, "CLUSTER_ID")
		return host.Tag == "HOST" && cid == clusterID
	})
	if err != nil {
		m.log.Error().Err(err).Msg("failed to parse host list")
		return "", xmlresult.Errorf(xmlresult.StatusParseFailed, "Failed to parse host list XML")
	}
	if pool.Len() == 0 {
		return "", xmlresult.Errorf(xmlresult.EmptyTarget, "No hosts found in cluster %s", clusterID)
	}
	m.log.Debug().Str("cluster_id", clusterID).Int("hosts", pool.Len()).Msg("filtered host list")
	return pool.String(), nil
}

// HostMonitoring returns the full host descriptor, monitoring data included.
func (m *Manager) HostMonitoring(ctx context.Context, hostID string) (string, error) {
	if err := validate.ID("host_id", hostID); err != nil {
		return "", err
	}
	out, err := m.runner.Run(ctx, "onehost", "show", hostID, "--xml")
	return onecli.Output(out, err), nil
}

// EnableHost puts a host back into scheduling.
func (m *Manager) EnableHost(ctx context.Context, hostID string) (string, error) {
	return m.hostAction(ctx, hostID, "enable", "Host "+hostID+" enabled successfully")
}

// DisableHost removes a host from scheduling.
func (m *Manager) DisableHost(ctx context.Context, hostID string) (string, error) {
	return m.hostAction(ctx, hostID, "disable", "Host "+hostID+" disabled successfully")
}

func (m *Manager) hostAction(ctx context.Context, hostID, verb, message string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("host_id", hostID); err != nil {
		return "", err
	}
	m.log.Info().Str("host_id", hostID).Str("action", verb).Msg("host action")
	return onecli.Action(ctx, m.runner, "host_id", hostID, message, "onehost", verb, hostID)
}

// ---------------------------------------------------------------------------
// Virtual networks
// ---------------------------------------------------------------------------

// CreateVNet creates a virtual network from a template.
func (m *Manager) CreateVNet(ctx context.Context, template string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if strings.TrimSpace(template) == "" {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "template_content must not be empty")
	}

	var doc string
	err := onecli.WithTempFile(m.fs, "vnet-*.tmpl", template, func(path string) error {
		var err error
		doc, err = onecli.Create(ctx, m.runner, "vnet_id", "Virtual network created successfully", "onevnet", "create", path)
		return err
	})
	if err != nil {
		return "", err
	}
	return doc, nil
}

// DeleteVNet removes a virtual network.
func (m *Manager) DeleteVNet(ctx context.Context, vnetID string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("vnet_id", vnetID); err != nil {
		return "", err
	}
	return onecli.Action(ctx, m.runner, "vnet_id", vnetID, "Virtual network "+vnetID+" deleted successfully",
		"onevnet", "delete", vnetID)
}

// ReserveVNet carves size addresses out of a network into a reservation.
func (m *Manager) ReserveVNet(ctx context.Context, vnetID, size, name string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("vnet_id", vnetID); err != nil {
		return "", err
	}
	if !validate.IsNonNegInt(size) {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "size must be a non-negative integer")
	}

	args := []string{"onevnet", "reserve", vnetID, "--size", size}
	if name != "" {
		args = append(args, "--name", name)
	}
	return onecli.Create(ctx, m.runner, "reservation_id", "Reservation created successfully", args...)
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

// CreateImage registers a new image in a datastore.
func (m *Manager) CreateImage(ctx context.Context, req CreateImageRequest) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("datastore_id", req.DatastoreID); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Path) == "" {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "name and path must not be empty")
	}

	args := []string{"oneimage", "create", "--name", req.Name, "--path", req.Path, "--datastore", req.DatastoreID}
	if req.Type != "" {
		t, err := imageType(req.Type)
		if err != nil {
			return "", err
		}
		args = append(args, "--type", t)
	}
	if req.Prefix != "" {
		args = append(args, "--prefix", req.Prefix)
	}
	if req.Persistent {
		args = append(args, "--persistent")
	}
	return onecli.Create(ctx, m.runner, "image_id", "Image created successfully", args...)
}

// DeleteImage removes an image.
func (m *Manager) DeleteImage(ctx context.Context, imageID string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("image_id", imageID); err != nil {
		return "", err
	}
	return onecli.Action(ctx, m.runner, "image_id", imageID, "Image "+imageID+" deleted successfully",
		"oneimage", "delete", imageID)
}

// UpdateImageType changes the type of an image.
func (m *Manager) UpdateImageType(ctx context.Context, imageID, typ string) (string, error) {
	if !m.write.Allowed() {
		return "", xmlresult.ErrWriteDisabled()
	}
	if err := validate.ID("image_id", imageID); err != nil {
		return "", err
	}
	t, err := imageType(typ)
	if err != nil {
		return "", err
	}
	return onecli.Action(ctx, m.runner, "image_id", imageID, "Image "+imageID+" type changed to "+t,
		"oneimage", "chtype", imageID, t)
}

func imageType(s string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	if !lo.Contains(ImageTypes, t) {
		return "", xmlresult.Errorf(xmlresult.InvalidParameter, "type must be one of %s", strings.Join(ImageTypes, ", "))
	}
	return t, nil
}
