package vm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/jbweber/molecule-proxmox/internal/proxmox"
)

const testUPID proxmox.UPID = "UPID:pve1:0000ABCD:00112233:65000000:qmstart:100:root@pam:"

// errVMNotRunning returns the API error for a stopped VM.
func errVMNotRunning(vmid int) error {
	return fmt.Errorf("500 VM %d is not running", vmid)
}

// errAgentNotRunning is the API error while the guest agent is not up.
var errAgentNotRunning = fmt.Errorf("500 QEMU guest agent is not running")

// mockHypervisor is a mock implementation of the Hypervisor interface for testing.
type mockHypervisor struct {
	mu sync.Mutex

	// Configurable behavior
	clusterVMsFunc func(ctx context.Context) ([]proxmox.VMResource, error)
	startVMFunc    func(ctx context.Context, node string, vmid int) (proxmox.UPID, error)
	taskStatusFunc func(ctx context.Context, node string, upid proxmox.UPID) (proxmox.TaskStatus, error)
	taskLogFunc    func(ctx context.Context, node string, upid proxmox.UPID) ([]string, error)
	agentFunc      func(ctx context.Context, node string, vmid int) ([]proxmox.NetworkInterface, error)

	// Call tracking
	clusterVMsCalls int
	startVMCalls    []int
	taskStatusCalls []proxmox.UPID
	taskLogCalls    []proxmox.UPID
	agentCalls      int
}

// newMockHypervisor creates a mock with one running VM 100 on node pve1
// whose agent reports a single address.
func newMockHypervisor() *mockHypervisor {
	m := &mockHypervisor{}

	m.clusterVMsFunc = func(ctx context.Context) ([]proxmox.VMResource, error) {
		return []proxmox.VMResource{
			{ID: "qemu/100", Type: "qemu", Node: "pve1", VMID: 100, Name: "instance", Status: "running"},
		}, nil
	}

	m.startVMFunc = func(ctx context.Context, node string, vmid int) (proxmox.UPID, error) {
		return testUPID, nil
	}

	m.taskStatusFunc = func(ctx context.Context, node string, upid proxmox.UPID) (proxmox.TaskStatus, error) {
		return proxmox.TaskStatus{Status: "stopped", ExitStatus: "OK"}, nil
	}

	m.taskLogFunc = func(ctx context.Context, node string, upid proxmox.UPID) ([]string, error) {
		return []string{"TASK OK"}, nil
	}

	m.agentFunc = func(ctx context.Context, node string, vmid int) ([]proxmox.NetworkInterface, error) {
		return []proxmox.NetworkInterface{ifaceWithIPv4("ens18", "192.168.136.176")}, nil
	}

	return m
}

func (m *mockHypervisor) ClusterVMs(ctx context.Context) ([]proxmox.VMResource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusterVMsCalls++
	return m.clusterVMsFunc(ctx)
}

func (m *mockHypervisor) StartVM(ctx context.Context, node string, vmid int) (proxmox.UPID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startVMCalls = append(m.startVMCalls, vmid)
	return m.startVMFunc(ctx, node, vmid)
}

func (m *mockHypervisor) TaskStatus(ctx context.Context, node string, upid proxmox.UPID) (proxmox.TaskStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taskStatusCalls = append(m.taskStatusCalls, upid)
	return m.taskStatusFunc(ctx, node, upid)
}

func (m *mockHypervisor) TaskLog(ctx context.Context, node string, upid proxmox.UPID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taskLogCalls = append(m.taskLogCalls, upid)
	return m.taskLogFunc(ctx, node, upid)
}

func (m *mockHypervisor) AgentNetworkInterfaces(ctx context.Context, node string, vmid int) ([]proxmox.NetworkInterface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agentCalls++
	return m.agentFunc(ctx, node, vmid)
}

// fakeClock returns immediately from After and records every pause.
type fakeClock struct {
	clock.Clock

	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		Clock: clock.WallClock,
		now:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

// ifaceWithIPv4 builds an interface record with the given IPv4 addresses.
func ifaceWithIPv4(name string, addrs ...string) proxmox.NetworkInterface {
	iface := proxmox.NetworkInterface{Name: name}
	for _, a := range addrs {
		iface.IPAddresses = append(iface.IPAddresses, proxmox.IPAddress{Type: proxmox.AddressTypeIPv4, Address: a})
	}
	return iface
}

// testVM is the VM the default mock reports.
var testVM = proxmox.VMResource{ID: "qemu/100", Type: "qemu", Node: "pve1", VMID: 100, Name: "instance"}

// newTestPoller creates a poller with a fake clock and no settle delay.
func newTestPoller(m *mockHypervisor) (*Poller, *fakeClock) {
	clk := newFakeClock()
	return NewPoller(m, WithClock(clk), WithSettleDelay(0)), clk
}
