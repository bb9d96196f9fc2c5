// Package probe checks that a provisioned instance accepts remote commands
// over the protocol its connection options name.
package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/juju/errors"
	"github.com/masterzen/winrm"
	"golang.org/x/crypto/ssh"

	"github.com/jbweber/molecule-proxmox/internal/instance"
)

// DefaultTimeout bounds the connection and the command of one probe.
const DefaultTimeout = 30 * time.Second

// winrmHTTPSPort is the conventional WinRM over HTTPS port.
const winrmHTTPSPort = 5986

// Result describes a successful probe.
type Result struct {
	Instance string `json:"instance" yaml:"instance"`
	Protocol string `json:"protocol" yaml:"protocol"`
	Address  string `json:"address" yaml:"address"`
	Port     int    `json:"port" yaml:"port"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// commandRunner runs one command on a remote Windows host.
type commandRunner interface {
	RunWithString(command string, stdin string) (string, string, int, error)
}

// Prober runs reachability checks.
type Prober struct {
	timeout  time.Duration
	log      logr.Logger
	readFile func(string) ([]byte, error)
	newWinRM func(t *instance.WindowsTarget, timeout time.Duration) (commandRunner, error)
}

// NewProber creates a Prober. A zero timeout means DefaultTimeout.
func NewProber(timeout time.Duration, log logr.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		timeout:  timeout,
		log:      log,
		readFile: os.ReadFile,
		newWinRM: newWinRMClient,
	}
}

// Probe connects to the target and runs a trivial command.
func (p *Prober) Probe(ctx context.Context, target instance.Target) (*Result, error) {
	switch t := target.(type) {
	case *instance.LinuxTarget:
		return p.probeSSH(ctx, t)
	case *instance.WindowsTarget:
		return p.probeWinRM(t)
	default:
		return nil, errors.WithType(fmt.Errorf("cannot probe target of type %T", target), errors.NotSupported)
	}
}

func (p *Prober) probeSSH(ctx context.Context, t *instance.LinuxTarget) (*Result, error) {
	r := t.Record
	if _, err := t.ConnectionOptions(); err != nil {
		return nil, err
	}

	keyData, err := p.readFile(r.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", r.IdentityFile, err)
	}

	config := &ssh.ClientConfig{
		User:            r.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // matches StrictHostKeyChecking=no
		Timeout:         p.timeout,
	}

	addr := net.JoinHostPort(r.Address, strconv.Itoa(int(r.Port)))
	log := p.log.WithValues("instance", r.Instance, "address", addr, "protocol", "ssh")
	log.V(1).Info("probing instance")

	dialer := net.Dialer{Timeout: p.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Now().Add(p.timeout))

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("SSH handshake with %s failed: %w", addr, err)
	}
	client := ssh.NewClient(c, chans, reqs)
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open SSH session: %w", err)
	}
	defer func() { _ = session.Close() }()

	if err := session.Run("true"); err != nil {
		return nil, fmt.Errorf("remote command failed on %s: %w", addr, err)
	}

	log.Info("instance is reachable")
	return &Result{
		Instance: r.Instance,
		Protocol: "ssh",
		Address:  r.Address,
		Port:     int(r.Port),
		Detail:   string(client.ServerVersion()),
	}, nil
}

func (p *Prober) probeWinRM(t *instance.WindowsTarget) (*Result, error) {
	r := t.Record
	if _, err := t.ConnectionOptions(); err != nil {
		return nil, err
	}

	log := p.log.WithValues("instance", r.Instance, "address", r.Address, "port", int(r.Port), "protocol", "winrm")
	log.V(1).Info("probing instance", "transport", t.Transport())

	client, err := p.newWinRM(t, p.timeout)
	if err != nil {
		return nil, err
	}

	stdout, stderr, code, err := client.RunWithString("hostname", "")
	if err != nil {
		return nil, fmt.Errorf("WinRM execution on %s failed: %w", r.Address, err)
	}
	if code != 0 {
		return nil, fmt.Errorf("remote command failed on %s (exit code %d): %s", r.Address, code, strings.TrimSpace(stderr))
	}

	log.Info("instance is reachable")
	return &Result{
		Instance: r.Instance,
		Protocol: "winrm",
		Address:  r.Address,
		Port:     int(r.Port),
		Detail:   strings.TrimSpace(stdout),
	}, nil
}

// newWinRMClient builds a WinRM client for the target's transport and
// certificate policy. HTTPS is used on port 5986.
func newWinRMClient(t *instance.WindowsTarget, timeout time.Duration) (commandRunner, error) {
	r := t.Record
	endpoint := winrm.NewEndpoint(
		r.Address,
		int(r.Port),
		int(r.Port) == winrmHTTPSPort,
		strings.EqualFold(t.CertValidation(), "ignore"),
		nil, // CA certificate
		nil, // client certificate
		nil, // client key
		timeout,
	)

	params := winrm.NewParameters("PT60S", "en-US", 153600)
	switch strings.ToLower(t.Transport()) {
	case "ntlm":
		params.TransportDecorator = func() winrm.Transporter {
			return &winrm.ClientNTLM{}
		}
	case "basic":
	default:
		return nil, errors.WithType(fmt.Errorf("unsupported WinRM transport %q", t.Transport()), errors.NotSupported)
	}

	client, err := winrm.NewClientWithParameters(endpoint, r.User, r.Password, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create WinRM client: %w", err)
	}
	return client, nil
}
