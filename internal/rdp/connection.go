// Package rdp opens a remote desktop session to a Windows instance with
// whichever RDP client the local platform provides.
package rdp

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// DefaultPort is the standard RDP port.
const DefaultPort = 3389

// Connection holds the details of one RDP session.
type Connection struct {
	Address  string
	User     string
	Port     int
	Password string
}

// String returns address:port.
func (c Connection) String() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// ParseArgs parses <address> <user> [port] [password]. An empty port
// argument means DefaultPort.
func ParseArgs(args []string) (Connection, error) {
	if len(args) < 2 || len(args) > 4 {
		return Connection{}, errors.WithType(fmt.Errorf("expected <address> <user> [port] [password], got %d arguments", len(args)), errors.BadRequest)
	}

	c := Connection{Address: args[0], User: args[1], Port: DefaultPort}
	if len(args) > 2 && strings.TrimSpace(args[2]) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(args[2]))
		if err != nil || port <= 0 || port > 65535 {
			return Connection{}, errors.WithType(fmt.Errorf("invalid port %q", args[2]), errors.BadRequest)
		}
		c.Port = port
	}
	if len(args) > 3 {
		c.Password = args[3]
	}
	return c, nil
}

// fileSettings are the fixed settings of a generated .rdp file.
var fileSettings = []string{
	"screen mode id:i:2",
	"use multimon:i:0",
	"desktopwidth:i:1920",
	"desktopheight:i:1080",
	"session bpp:i:32",
	"winposstr:s:0,3,0,0,800,600",
	"compression:i:1",
	"keyboardhook:i:2",
	"audiocapturemode:i:0",
	"videoplaybackmode:i:1",
	"connection type:i:7",
	"networkautodetect:i:1",
	"bandwidthautodetect:i:1",
	"displayconnectionbar:i:1",
	"enableworkspacereconnect:i:0",
	"disable wallpaper:i:0",
	"allow font smoothing:i:0",
	"allow desktop composition:i:0",
	"disable full window drag:i:1",
	"disable menu anims:i:1",
	"disable themes:i:0",
	"disable cursor setting:i:0",
	"bitmapcachepersistenable:i:1",
}

var fileSettingsTail = []string{
	"audiomode:i:0",
	"redirectprinters:i:1",
	"redirectcomports:i:0",
	"redirectsmartcards:i:1",
	"redirectclipboard:i:1",
	"redirectposdevices:i:0",
	"autoreconnection enabled:i:1",
	"authentication level:i:2",
	"prompt for credentials:i:0",
	"negotiate security layer:i:1",
	"remoteapplicationmode:i:0",
	"alternate shell:s:",
	"shell working directory:s:",
	"gatewayhostname:s:",
	"gatewayusagemethod:i:4",
	"gatewaycredentialssource:i:4",
	"gatewayprofileusagemethod:i:0",
	"promptcredentialonce:i:0",
	"gatewaybrokeringtype:i:0",
	"use redirection server name:i:0",
	"rdgiskdcproxy:i:0",
	"kdcproxyname:s:",
}

// FileContent renders an .rdp file for the connection. The password is
// never written to the file.
func FileContent(c Connection) string {
	var b strings.Builder
	for _, s := range fileSettings {
		b.WriteString(s + "\n")
	}
	fmt.Fprintf(&b, "full address:s:%s\n", c)
	for _, s := range fileSettingsTail {
		b.WriteString(s + "\n")
	}
	fmt.Fprintf(&b, "username:s:%s\n", c.User)
	return b.String()
}

// WriteFile writes an .rdp file for the connection into dir, or the system
// temporary directory when dir is empty, and returns its path.
func WriteFile(dir string, c Connection) (string, error) {
	f, err := os.CreateTemp(dir, "molecule-*.rdp")
	if err != nil {
		return "", fmt.Errorf("failed to create RDP file: %w", err)
	}

	if _, err := f.WriteString(FileContent(c)); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write RDP file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write RDP file: %w", err)
	}
	return f.Name(), nil
}
