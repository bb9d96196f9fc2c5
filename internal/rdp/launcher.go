package rdp

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/juju/errors"
	"github.com/kballard/go-shellquote"
)

const (
	// openTimeout bounds the macOS open command.
	openTimeout = 5 * time.Second

	// fileLifetime is how long an .rdp file is kept for the client to read.
	fileLifetime = time.Hour
)

// Launcher starts a platform RDP client.
type Launcher struct {
	goos    string
	out     io.Writer
	log     logr.Logger
	tempDir string

	lookPath func(file string) (string, error)
	// run waits for the command to exit.
	run func(ctx context.Context, name string, args ...string) error
	// start does not wait for the command.
	start func(name string, args ...string) error
}

// NewLauncher creates a launcher for the running platform that reports
// progress to out.
func NewLauncher(out io.Writer, log logr.Logger) *Launcher {
	return &Launcher{
		goos:     runtime.GOOS,
		out:      out,
		log:      log,
		lookPath: exec.LookPath,
		run:      runCommand,
		start:    startCommand,
	}
}

// Launch opens an RDP session to c. When no client can be started the
// error carries the details for a manual connection.
func (l *Launcher) Launch(ctx context.Context, c Connection) error {
	_, _ = fmt.Fprintf(l.out, "Opening RDP connection to %s as %s...\n", c, c.User)

	var ok bool
	switch l.goos {
	case "darwin":
		ok = l.launchDarwin(ctx, c)
	case "linux":
		ok = l.launchLinux(c)
	case "windows":
		ok = l.launchWindows(c)
	default:
		return errors.WithType(fmt.Errorf("unsupported platform: %s", l.goos), errors.NotSupported)
	}

	if !ok {
		return fmt.Errorf("failed to launch RDP client, install one or connect manually (server: %s, username: %s)", c, c.User)
	}

	_, _ = fmt.Fprintf(l.out, "Connection: %s\nUsername: %s\n", c, c.User)
	return nil
}

// MacURL returns the rdp:// URL Microsoft Remote Desktop accepts.
func MacURL(c Connection) string {
	u := fmt.Sprintf("rdp://full%%20address=s:%s&username=s:%s", c, c.User)
	if c.Password != "" {
		u += "&password=s:" + c.Password
	}
	return u
}

func (l *Launcher) launchDarwin(ctx context.Context, c Connection) bool {
	err := l.run(ctx, "open", MacURL(c))
	if err == nil {
		return true
	}
	l.log.V(1).Info("rdp URL failed, trying an .rdp file", "error", err.Error())

	path, err := WriteFile(l.tempDir, c)
	if err != nil {
		l.log.Error(err, "failed to create RDP file")
		return false
	}
	_, _ = fmt.Fprintf(l.out, "Created RDP file: %s\n", path)

	if err := l.run(ctx, "open", path); err != nil {
		l.log.Error(err, "failed to open RDP file", "path", path)
		_ = os.Remove(path)
		return false
	}
	l.scheduleRemoval(path)
	return true
}

// LinuxClients returns the candidate client command lines in order of
// preference.
func LinuxClients(c Connection) [][]string {
	xfreerdp := []string{"xfreerdp", "/v:" + c.String(), "/u:" + c.User, "/cert:ignore", "/dynamic-resolution", "+clipboard"}
	if c.Password != "" {
		xfreerdp = append(xfreerdp, "/p:"+c.Password)
	}

	userInfo := c.User
	if c.Password != "" {
		userInfo += ":" + c.Password
	}
	remmina := []string{"remmina", "-c", fmt.Sprintf("rdp://%s@%s", userInfo, c)}

	rdesktop := []string{"rdesktop", c.String(), "-u", c.User}
	if c.Password != "" {
		rdesktop = append(rdesktop, "-p", c.Password)
	}
	rdesktop = append(rdesktop, "-g", "1920x1080")

	return [][]string{xfreerdp, remmina, rdesktop}
}

func (l *Launcher) launchLinux(c Connection) bool {
	for _, cmd := range LinuxClients(c) {
		if _, err := l.lookPath(cmd[0]); err != nil {
			continue
		}

		_, _ = fmt.Fprintf(l.out, "Using %s...\n", cmd[0])
		if err := l.start(cmd[0], cmd[1:]...); err != nil {
			l.log.Error(err, "failed to start RDP client", "client", cmd[0])
			continue
		}
		return true
	}
	return false
}

func (l *Launcher) launchWindows(c Connection) bool {
	path, err := WriteFile(l.tempDir, c)
	if err != nil {
		l.log.Error(err, "failed to create RDP file")
		return false
	}
	_, _ = fmt.Fprintf(l.out, "Created RDP file: %s\n", path)

	if err := l.start("mstsc", path); err != nil {
		l.log.Error(err, "failed to start mstsc")
		_ = os.Remove(path)
		return false
	}
	l.scheduleRemoval(path)
	return true
}

// RemovalCommand returns a detached shell command that deletes path after
// delay. The launcher exits long before the client has read the file.
func RemovalCommand(goos, path string, delay time.Duration) []string {
	secs := strconv.Itoa(int(delay.Seconds()))
	if goos == "windows" {
		return []string{"cmd", "/c", fmt.Sprintf(`timeout /t %s /nobreak >nul & del /q "%s"`, secs, path)}
	}
	return []string{"sh", "-c", "sleep " + secs + " && rm -f " + shellquote.Join(path)}
}

func (l *Launcher) scheduleRemoval(path string) {
	cmd := RemovalCommand(l.goos, path, fileLifetime)
	if err := l.start(cmd[0], cmd[1:]...); err != nil {
		l.log.V(1).Info("could not schedule RDP file removal", "path", path, "error", err.Error())
	}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	return exec.CommandContext(ctx, name, args...).Run()
}

func startCommand(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
