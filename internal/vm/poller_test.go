package vm

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"

	"github.com/jbweber/molecule-proxmox/internal/proxmox"
)

func TestPollAgent_StartsStoppedVM(t *testing.T) {
	m := newMockHypervisor()
	replies := []error{errVMNotRunning(100), errAgentNotRunning, errAgentNotRunning}
	m.agentFunc = func(ctx context.Context, node string, vmid int) ([]proxmox.NetworkInterface, error) {
		if len(replies) > 0 {
			err := replies[0]
			replies = replies[1:]
			return nil, err
		}
		return []proxmox.NetworkInterface{
			ifaceWithIPv4("lo", "127.0.0.1"),
			ifaceWithIPv4("ens18", "192.168.136.176"),
		}, nil
	}
	p, _ := newTestPoller(m)
	budget := NewBudget(300)

	addrs, err := p.pollAgent(context.Background(), testVM, budget)
	if err != nil {
		t.Fatalf("pollAgent() error = %v", err)
	}

	if want := []string{"192.168.136.176"}; !slices.Equal(addrs, want) {
		t.Errorf("pollAgent() = %v, want %v", addrs, want)
	}
	if len(m.startVMCalls) != 1 {
		t.Errorf("StartVM called %d times, want 1", len(m.startVMCalls))
	}
	if m.agentCalls != 4 {
		t.Errorf("AgentNetworkInterfaces called %d times, want 4", m.agentCalls)
	}
	if got := budget.Remaining(); got != 297 {
		t.Errorf("budget.Remaining() = %d, want 297", got)
	}
}

func TestPollAgent_Timeout(t *testing.T) {
	m := newMockHypervisor()
	m.agentFunc = func(ctx context.Context, node string, vmid int) ([]proxmox.NetworkInterface, error) {
		return nil, errAgentNotRunning
	}
	p, _ := newTestPoller(m)

	addrs, err := p.pollAgent(context.Background(), testVM, NewBudget(1))
	if err == nil {
		t.Fatal("pollAgent() expected error, got nil")
	}
	if addrs != nil {
		t.Errorf("pollAgent() addresses = %v, want nil", addrs)
	}
	if !errors.Is(err, errors.Timeout) {
		t.Errorf("pollAgent() error = %v, want Timeout", err)
	}
	if !strings.Contains(err.Error(), "vmid 100") {
		t.Errorf("error %q does not name the vmid", err)
	}
	if m.agentCalls != 1 {
		t.Errorf("AgentNetworkInterfaces called %d times, want 1", m.agentCalls)
	}
}

func TestPollAgent_ExhaustedBudget(t *testing.T) {
	m := newMockHypervisor()
	p, _ := newTestPoller(m)

	_, err := p.pollAgent(context.Background(), testVM, NewBudget(0))
	if !errors.Is(err, errors.Timeout) {
		t.Errorf("pollAgent() error = %v, want Timeout", err)
	}
	if m.agentCalls != 0 {
		t.Errorf("AgentNetworkInterfaces called %d times, want 0", m.agentCalls)
	}
}

func TestPollAgent_NoUsableAddressRetries(t *testing.T) {
	m := newMockHypervisor()
	calls := 0
	m.agentFunc = func(ctx context.Context, node string, vmid int) ([]proxmox.NetworkInterface, error) {
		calls++
		if calls == 1 {
			return []proxmox.NetworkInterface{ifaceWithIPv4("eth0", "169.254.1.1")}, nil
		}
		return []proxmox.NetworkInterface{ifaceWithIPv4("eth0", "8.8.4.4", "10.10.0.2")}, nil
	}
	p, clk := newTestPoller(m)

	addrs, err := p.pollAgent(context.Background(), testVM, NewBudget(10))
	if err != nil {
		t.Fatalf("pollAgent() error = %v", err)
	}
	if want := []string{"10.10.0.2", "8.8.4.4"}; !slices.Equal(addrs, want) {
		t.Errorf("pollAgent() = %v, want %v", addrs, want)
	}
	if len(clk.sleeps) != 1 {
		t.Errorf("sleeps = %v, want one pause", clk.sleeps)
	}
}

func TestPollAgent_UnexpectedError(t *testing.T) {
	m := newMockHypervisor()
	m.agentFunc = func(ctx context.Context, node string, vmid int) ([]proxmox.NetworkInterface, error) {
		return nil, fmt.Errorf("500 No QEMU guest agent configured")
	}
	p, _ := newTestPoller(m)

	_, err := p.pollAgent(context.Background(), testVM, NewBudget(10))
	if err == nil {
		t.Fatal("pollAgent() expected error, got nil")
	}
	if errors.Is(err, errors.Timeout) {
		t.Errorf("pollAgent() error = %v, should not be Timeout", err)
	}
	if !strings.Contains(err.Error(), "No QEMU guest agent configured") {
		t.Errorf("error %q does not carry the cause", err)
	}
	if m.agentCalls != 1 {
		t.Errorf("AgentNetworkInterfaces called %d times, want 1", m.agentCalls)
	}
}

func TestPollAgent_StartTimeout(t *testing.T) {
	m := newMockHypervisor()
	m.agentFunc = func(ctx context.Context, node string, vmid int) ([]proxmox.NetworkInterface, error) {
		return nil, errVMNotRunning(vmid)
	}
	m.taskStatusFunc = func(ctx context.Context, node string, upid proxmox.UPID) (proxmox.TaskStatus, error) {
		return proxmox.TaskStatus{Status: "running"}, nil
	}
	p, _ := newTestPoller(m)
	budget := NewBudget(5)

	_, err := p.pollAgent(context.Background(), testVM, budget)
	if !errors.Is(err, errors.Timeout) {
		t.Fatalf("pollAgent() error = %v, want Timeout", err)
	}
	if !strings.Contains(err.Error(), "timeout while starting vmid 100") {
		t.Errorf("error %q, want start timeout", err)
	}
	if len(m.taskStatusCalls) != 5 {
		t.Errorf("TaskStatus called %d times, want 5", len(m.taskStatusCalls))
	}
}

func TestPollAgent_ContextCancelled(t *testing.T) {
	m := newMockHypervisor()
	m.agentFunc = func(ctx context.Context, node string, vmid int) ([]proxmox.NetworkInterface, error) {
		return nil, errAgentNotRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The wall clock never fires before the cancelled context is seen.
	p := NewPoller(m, WithSettleDelay(0))

	_, err := p.pollAgent(ctx, testVM, NewBudget(10))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("pollAgent() error = %v, want context.Canceled", err)
	}
}

func TestWaitForAddresses(t *testing.T) {
	m := newMockHypervisor()
	clk := newFakeClock()
	p := NewPoller(m, WithClock(clk))

	res, err := p.WaitForAddresses(context.Background(), 100, 30)
	if err != nil {
		t.Fatalf("WaitForAddresses() error = %v", err)
	}

	if res.VMID != 100 {
		t.Errorf("Result.VMID = %d, want 100", res.VMID)
	}
	if res.Changed {
		t.Errorf("Result.Changed = true, want false")
	}
	if want := []string{"192.168.136.176"}; !slices.Equal(res.Addresses, want) {
		t.Errorf("Result.Addresses = %v, want %v", res.Addresses, want)
	}
	if len(clk.sleeps) == 0 || clk.sleeps[0] != time.Second {
		t.Errorf("sleeps = %v, want settle delay first", clk.sleeps)
	}
}

func TestWaitForAddresses_NotFound(t *testing.T) {
	m := newMockHypervisor()
	p, _ := newTestPoller(m)

	_, err := p.WaitForAddresses(context.Background(), 4242, 30)
	if !errors.Is(err, errors.NotFound) {
		t.Errorf("WaitForAddresses() error = %v, want NotFound", err)
	}
	if m.agentCalls != 0 {
		t.Errorf("AgentNetworkInterfaces called %d times, want 0", m.agentCalls)
	}
}

func TestClassifyAgentError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		vmid int
		want agentCondition
	}{
		{"vm not running", errVMNotRunning(100), 100, conditionVMNotRunning},
		{"other vm not running", errVMNotRunning(101), 100, conditionFatal},
		{"agent not running", errAgentNotRunning, 100, conditionAgentNotRunning},
		{"permission denied", fmt.Errorf("403 Permission check failed"), 100, conditionFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyAgentError(tt.err, tt.vmid); got != tt.want {
				t.Errorf("classifyAgentError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAgentState_String(t *testing.T) {
	tests := []struct {
		state AgentState
		want  string
	}{
		{StateWaitingForAgent, "WaitingForAgent"},
		{StateVMNotRunning, "VMNotRunning"},
		{StateDone, "Done"},
		{AgentState(9), "AgentState(9)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("AgentState(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

func TestWaitForAddresses_ZeroTimeoutUsesDefault(t *testing.T) {
	m := newMockHypervisor()
	calls := 0
	m.agentFunc = func(ctx context.Context, node string, vmid int) ([]proxmox.NetworkInterface, error) {
		calls++
		if calls < 3 {
			return nil, errAgentNotRunning
		}
		return []proxmox.NetworkInterface{ifaceWithIPv4("ens18", "10.0.0.7")}, nil
	}
	p, _ := newTestPoller(m)

	res, err := p.WaitForAddresses(context.Background(), 100, 0)
	if err != nil {
		t.Fatalf("WaitForAddresses() error = %v", err)
	}
	if len(res.Addresses) != 1 || res.Addresses[0] != "10.0.0.7" {
		t.Errorf("Addresses = %v, want [10.0.0.7]", res.Addresses)
	}
}
