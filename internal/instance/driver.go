package instance

import (
	"github.com/go-logr/logr"
	"github.com/juju/errors"
)

// Driver answers the orchestrator's questions about provisioned instances
// from the instance config file at Path.
type Driver struct {
	Path     string
	Settings Settings
	log      logr.Logger
}

// NewDriver creates a driver for the instance config file at path.
func NewDriver(path string, settings Settings, log logr.Logger) *Driver {
	return &Driver{Path: path, Settings: settings, log: log}
}

// Target looks up an instance and resolves its target.
func (d *Driver) Target(name string) (Target, error) {
	r, err := Lookup(d.Path, name)
	if err != nil {
		return nil, err
	}
	return Resolve(r, d.Settings), nil
}

// LoginCommandTemplate returns the login template for the named instance.
// When the instance cannot be resolved, because the file is missing or
// malformed or the instance is not in it, the SSH template is used.
func (d *Driver) LoginCommandTemplate(name string) string {
	if name != "" {
		t, err := d.Target(name)
		if err == nil {
			if t.OS() == OSWindows {
				d.log.Info("opening RDP connection to Windows instance", "instance", name)
			}
			return t.LoginCommandTemplate()
		}
		d.log.V(1).Info("cannot resolve instance os_type, falling back to ssh", "instance", name, "reason", err.Error())
	}

	d.log.V(1).Info("using SSH login command template")
	return SSHLoginTemplate(d.Settings.SSHOptions)
}

// LoginOptions returns {"instance": name} merged with the instance record.
// Windows records get rdp_port and password defaults when absent.
func (d *Driver) LoginOptions(name string) (map[string]any, error) {
	r, err := Lookup(d.Path, name)
	if err != nil {
		return nil, err
	}

	opts := r.Fields()
	opts["instance"] = name

	if ParseOSType(r.OSType) == OSWindows {
		if !r.has("rdp_port") {
			opts["rdp_port"] = DefaultRDPPort
		}
		if !r.has("password") {
			opts["password"] = ""
		}
	}
	return opts, nil
}

// ConnectionOptions returns the inventory variables for the named
// instance. It returns an empty mapping while the instance has not been
// provisioned yet.
func (d *Driver) ConnectionOptions(name string) (map[string]any, error) {
	t, err := d.Target(name)
	if errors.Is(err, ErrNotProvisioned) || errors.Is(err, errors.NotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	return t.ConnectionOptions()
}
