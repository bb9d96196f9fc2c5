package proxmox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goproxmox "github.com/luthermonson/go-proxmox"
)

// DefaultPort is the port of the Proxmox VE API daemon (pveproxy).
const DefaultPort = 8006

// Options describes how to reach and authenticate against the API.
//
// Either Password or the TokenID/TokenSecret pair must be set. When both
// are set the token is used.
type Options struct {
	Host          string
	Port          int
	User          string
	Password      string
	TokenID       string
	TokenSecret   string
	ValidateCerts bool

	// Timeout bounds each HTTP request. Zero means 30 seconds.
	Timeout time.Duration

	// HTTPClient overrides the HTTP client. Used by tests.
	HTTPClient *http.Client
}

// Client wraps a go-proxmox session and provides the operations the
// readiness poller needs.
type Client struct {
	api     *goproxmox.Client
	baseURL string
}

// Connect prepares an API session. No request is sent until the first call;
// use Ping to verify connectivity.
func Connect(opts Options) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("api host is required")
	}
	if opts.User == "" {
		return nil, fmt.Errorf("api user is required")
	}

	baseURL := BaseURL(opts.Host, opts.Port)

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !opts.ValidateCerts, //nolint:gosec // validate_certs defaults to false
				},
			},
		}
	}

	clientOpts := []goproxmox.Option{goproxmox.WithHTTPClient(httpClient)}
	switch {
	case opts.TokenID != "" && opts.TokenSecret != "":
		clientOpts = append(clientOpts, goproxmox.WithAPIToken(TokenID(opts.User, opts.TokenID), opts.TokenSecret))
	case opts.Password != "":
		clientOpts = append(clientOpts, goproxmox.WithCredentials(&goproxmox.Credentials{
			Username: opts.User,
			Password: opts.Password,
		}))
	default:
		return nil, fmt.Errorf("either a password or an api token id and secret are required")
	}

	return &Client{
		api:     goproxmox.NewClient(baseURL, clientOpts...),
		baseURL: baseURL,
	}, nil
}

// BaseURL returns the api2/json root for host and port. A zero port means
// DefaultPort.
func BaseURL(host string, port int) string {
	if port == 0 {
		port = DefaultPort
	}
	u := url.URL{
		Scheme: "https",
		Host:   net.JoinHostPort(host, strconv.Itoa(port)),
		Path:   "/api2/json",
	}
	return u.String()
}

// TokenID returns the full API token id (user@realm!name). A token id that
// already names its user is returned unchanged.
func TokenID(user, tokenID string) string {
	if strings.Contains(tokenID, "!") {
		return tokenID
	}
	return user + "!" + tokenID
}

// URL returns the API root this client talks to.
func (c *Client) URL() string {
	return c.baseURL
}

// Ping verifies the session by reading the API version.
func (c *Client) Ping(ctx context.Context) (*Version, error) {
	v, err := c.api.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("proxmox api is unreachable at %s: %w", c.baseURL, err)
	}
	return &Version{Release: v.Release, Version: v.Version, RepoID: v.RepoID}, nil
}

// ClusterVMs lists the virtual machines of the cluster.
func (c *Client) ClusterVMs(ctx context.Context) ([]VMResource, error) {
	var resources []VMResource
	if err := c.api.Get(ctx, "/cluster/resources?type=vm", &resources); err != nil {
		return nil, fmt.Errorf("failed to list cluster resources: %w", err)
	}
	return resources, nil
}

// StartVM submits a start task for a QEMU VM and returns its task handle.
func (c *Client) StartVM(ctx context.Context, node string, vmid int) (UPID, error) {
	var upid UPID
	if err := c.api.Post(ctx, fmt.Sprintf("/nodes/%s/qemu/%d/status/start", node, vmid), nil, &upid); err != nil {
		return "", fmt.Errorf("failed to start vmid %d: %w", vmid, err)
	}
	if upid == "" {
		return "", fmt.Errorf("start of vmid %d returned no task id", vmid)
	}
	return upid, nil
}

// TaskStatus reads the current status of a task.
func (c *Client) TaskStatus(ctx context.Context, node string, upid UPID) (TaskStatus, error) {
	var status TaskStatus
	if err := c.api.Get(ctx, fmt.Sprintf("/nodes/%s/tasks/%s/status", node, upid), &status); err != nil {
		return TaskStatus{}, fmt.Errorf("failed to get status of task %s: %w", upid, err)
	}
	return status, nil
}

// TaskLog returns the log lines of a task in order.
func (c *Client) TaskLog(ctx context.Context, node string, upid UPID) ([]string, error) {
	var lines []taskLogLine
	if err := c.api.Get(ctx, fmt.Sprintf("/nodes/%s/tasks/%s/log", node, upid), &lines); err != nil {
		return nil, fmt.Errorf("failed to get log of task %s: %w", upid, err)
	}

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.T)
	}
	return out, nil
}

// AgentNetworkInterfaces runs the guest agent network-get-interfaces
// command. The error text of a VM that is not running or whose agent is not
// up yet is passed through unchanged so callers can tell those apart.
func (c *Client) AgentNetworkInterfaces(ctx context.Context, node string, vmid int) ([]NetworkInterface, error) {
	var reply agentInterfacesReply
	if err := c.api.Get(ctx, fmt.Sprintf("/nodes/%s/qemu/%d/agent/network-get-interfaces", node, vmid), &reply); err != nil {
		return nil, err
	}
	return reply.Result, nil
}
