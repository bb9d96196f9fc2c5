package instance

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/kballard/go-shellquote"
)

// OSType names the guest operating system family of an instance.
type OSType string

const (
	OSLinux   OSType = "linux"
	OSWindows OSType = "windows"
)

const (
	// DefaultRDPPort is used for Windows records without rdp_port.
	DefaultRDPPort = 3389

	defaultWinRMTransport      = "ntlm"
	defaultWinRMCertValidation = "ignore"
)

// DefaultSSHOptions are the SSH client options used for login commands and
// as ansible_ssh_common_args.
var DefaultSSHOptions = []string{
	"-o UserKnownHostsFile=/dev/null",
	"-o ControlMaster=auto",
	"-o ControlPersist=60s",
	"-o ControlPath=~/.ansible/cp/%r@%h-%p",
	"-o ForwardX11=no",
	"-o LogLevel=ERROR",
	"-o IdentitiesOnly=yes",
	"-o StrictHostKeyChecking=no",
}

// Settings carries the driver-wide values targets need.
type Settings struct {
	// SSHOptions are appended to the SSH login command.
	SSHOptions []string

	// LauncherPath is the binary invoked with "rdp" for Windows logins.
	LauncherPath string
}

// DefaultSettings returns settings with the default SSH options.
func DefaultSettings(launcherPath string) Settings {
	return Settings{
		SSHOptions:   DefaultSSHOptions,
		LauncherPath: launcherPath,
	}
}

// Target is how a provisioned instance is reached. It is either a
// *LinuxTarget or a *WindowsTarget.
type Target interface {
	// OS returns the operating system family
	OS() OSType

	// LoginCommandTemplate returns the interactive login command with
	// {key} placeholders for the login options
	LoginCommandTemplate() string

	// ConnectionOptions returns the inventory variables for the instance
	ConnectionOptions() (map[string]any, error)

	isTarget()
}

// ParseOSType maps an os_type value to a family. Anything other than
// windows is treated as linux.
func ParseOSType(s string) OSType {
	if strings.EqualFold(strings.TrimSpace(s), string(OSWindows)) {
		return OSWindows
	}
	return OSLinux
}

// Resolve picks the target variant for a record.
func Resolve(r Record, s Settings) Target {
	if ParseOSType(r.OSType) == OSWindows {
		return &WindowsTarget{Record: r, LauncherPath: s.LauncherPath}
	}
	return &LinuxTarget{Record: r, SSHOptions: s.SSHOptions}
}

// LinuxTarget is an instance reached over SSH.
type LinuxTarget struct {
	Record     Record
	SSHOptions []string
}

func (*LinuxTarget) OS() OSType { return OSLinux }
func (*LinuxTarget) isTarget()  {}

// LoginCommandTemplate returns the ssh command line.
func (t *LinuxTarget) LoginCommandTemplate() string {
	return SSHLoginTemplate(t.SSHOptions)
}

// SSHLoginTemplate returns the ssh login template with the given options.
func SSHLoginTemplate(sshOptions []string) string {
	tmpl := "ssh {address} -l {user} -p {port} -i {identity_file}"
	if len(sshOptions) > 0 {
		tmpl += " " + strings.Join(sshOptions, " ")
	}
	return tmpl
}

// ConnectionOptions returns the SSH inventory variables.
func (t *LinuxTarget) ConnectionOptions() (map[string]any, error) {
	r := t.Record
	if err := requireFields(r, "user", "address", "port", "identity_file"); err != nil {
		return nil, err
	}

	return map[string]any{
		"ansible_user":             r.User,
		"ansible_host":             r.Address,
		"ansible_port":             int(r.Port),
		"ansible_private_key_file": r.IdentityFile,
		"connection":               "ssh",
		"ansible_ssh_common_args":  strings.Join(t.SSHOptions, " "),
	}, nil
}

// WindowsTarget is an instance reached over WinRM, with RDP for logins.
type WindowsTarget struct {
	Record       Record
	LauncherPath string
}

func (*WindowsTarget) OS() OSType { return OSWindows }
func (*WindowsTarget) isTarget()  {}

// LoginCommandTemplate returns the RDP launcher command line.
func (t *WindowsTarget) LoginCommandTemplate() string {
	return shellquote.Join(t.LauncherPath, "rdp") + " {address} {user} {rdp_port} {password}"
}

// ConnectionOptions returns the WinRM inventory variables.
func (t *WindowsTarget) ConnectionOptions() (map[string]any, error) {
	r := t.Record
	if err := requireFields(r, "user", "address", "port"); err != nil {
		return nil, err
	}

	var password any
	if r.has("password") {
		password = r.Password
	}

	return map[string]any{
		"ansible_user":                         r.User,
		"ansible_host":                         r.Address,
		"ansible_port":                         int(r.Port),
		"ansible_password":                     password,
		"connection":                           "winrm",
		"ansible_winrm_transport":              t.Transport(),
		"ansible_winrm_server_cert_validation": t.CertValidation(),
	}, nil
}

// Transport returns the WinRM transport, ntlm unless set.
func (t *WindowsTarget) Transport() string {
	if t.Record.WinRMTransport == "" {
		return defaultWinRMTransport
	}
	return t.Record.WinRMTransport
}

// CertValidation returns the WinRM certificate policy, ignore unless set.
func (t *WindowsTarget) CertValidation() string {
	if t.Record.WinRMCertValidation == "" {
		return defaultWinRMCertValidation
	}
	return t.Record.WinRMCertValidation
}

// requireFields fails when any of keys is missing or empty in the record.
func requireFields(r Record, keys ...string) error {
	present := map[string]bool{
		"user":          r.User != "",
		"address":       r.Address != "",
		"port":          r.Port != 0,
		"identity_file": r.IdentityFile != "",
	}

	var missing []string
	for _, k := range keys {
		if !present[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return errors.WithType(
			fmt.Errorf("instance %q is missing required fields: %s", r.Instance, strings.Join(missing, ", ")),
			errors.NotValid,
		)
	}
	return nil
}
