package vm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/jbweber/molecule-proxmox/internal/proxmox"
)

const (
	// DefaultTimeout is the poll budget in seconds when none is given.
	DefaultTimeout = 300

	// tick is the pause between polling iterations.
	tick = time.Second

	// settleDelay gives the API time to see a VM that was just cloned.
	settleDelay = time.Second
)

// AgentState is the state of the guest-agent polling loop.
type AgentState int

const (
	// StateWaitingForAgent is the initial state: query the guest agent.
	StateWaitingForAgent AgentState = iota
	// StateVMNotRunning means the VM has to be started first.
	StateVMNotRunning
	// StateDone means at least one usable address was found.
	StateDone
)

func (s AgentState) String() string {
	switch s {
	case StateWaitingForAgent:
		return "WaitingForAgent"
	case StateVMNotRunning:
		return "VMNotRunning"
	case StateDone:
		return "Done"
	default:
		return fmt.Sprintf("AgentState(%d)", int(s))
	}
}

// agentCondition classifies a failed guest-agent query.
type agentCondition int

const (
	conditionFatal agentCondition = iota
	conditionVMNotRunning
	conditionAgentNotRunning
)

// classifyAgentError tells the expected "VM not running" and "agent not
// running yet" replies apart from real failures.
func classifyAgentError(err error, vmid int) agentCondition {
	msg := err.Error()
	switch {
	case strings.Contains(msg, fmt.Sprintf("VM %d is not running", vmid)):
		return conditionVMNotRunning
	case strings.Contains(msg, "QEMU guest agent is not running"):
		return conditionAgentNotRunning
	default:
		return conditionFatal
	}
}

// Poller waits for a VM to be running and to report an IPv4 address.
type Poller struct {
	client Hypervisor
	clock  clock.Clock
	log    logr.Logger
	settle time.Duration
}

// Option configures a Poller.
type Option func(*Poller)

// WithClock sets the clock used for the pauses between iterations.
func WithClock(c clock.Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

// WithLogger sets the logger. Address decisions are logged at V(1) and raw
// guest-agent replies at V(2).
func WithLogger(l logr.Logger) Option {
	return func(p *Poller) {
		p.log = l
	}
}

// WithSettleDelay sets the pause before the VM lookup.
func WithSettleDelay(d time.Duration) Option {
	return func(p *Poller) {
		p.settle = d
	}
}

// NewPoller creates a Poller for the given hypervisor.
func NewPoller(client Hypervisor, opts ...Option) *Poller {
	p := &Poller{
		client: client,
		clock:  clock.WallClock,
		log:    logr.Discard(),
		settle: settleDelay,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WaitForAddresses resolves vmid, starts the VM if it is not running and
// waits until the guest agent reports at least one usable IPv4 address.
// timeout is the budget in seconds shared by every wait of the call; zero or
// less means DefaultTimeout.
func (p *Poller) WaitForAddresses(ctx context.Context, vmid, timeout int) (*Result, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if err := p.sleep(ctx, p.settle); err != nil {
		return nil, err
	}

	vm, err := FindVM(ctx, p.client, vmid)
	if err != nil {
		p.log.Error(err, "failed to look up vm", "vmid", vmid)
		return nil, err
	}

	addrs, err := p.pollAgent(ctx, vm, NewBudget(timeout))
	if err != nil {
		return nil, err
	}

	return &Result{VMID: vmid, Addresses: addrs}, nil
}

// pollAgent runs the guest-agent state machine until addresses are found,
// a query fails unexpectedly, or the budget is exhausted.
func (p *Poller) pollAgent(ctx context.Context, vm proxmox.VMResource, budget *Budget) ([]string, error) {
	log := p.log.WithValues("vmid", vm.VMID, "node", vm.Node)
	log.Info("waiting for vm IP address", "timeout", budget.Remaining())

	state := StateWaitingForAgent
	for !budget.Exhausted() {
		ifaces, err := p.client.AgentNetworkInterfaces(ctx, vm.Node, vm.VMID)
		if err == nil {
			log.V(2).Info("network-get-interfaces reply", "interfaces", ifaces)

			addrs := rankAddresses(extractAddresses(ifaces, log))
			if len(addrs) > 0 {
				state = p.transition(log, state, StateDone)
				log.Info("detected IP addresses", "addresses", addrs)
				return addrs, nil
			}
			log.V(1).Info("no valid IPv4 addresses detected")
		} else {
			switch classifyAgentError(err, vm.VMID) {
			case conditionVMNotRunning:
				state = p.transition(log, state, StateVMNotRunning)
				if err := p.startVM(ctx, vm, budget); err != nil {
					return nil, err
				}
				state = p.transition(log, state, StateWaitingForAgent)
			case conditionAgentNotRunning:
				// Guest is still booting.
			default:
				log.Error(err, "guest agent query failed")
				return nil, fmt.Errorf("guest agent query for vmid %d failed: %w", vm.VMID, err)
			}
		}

		if !budget.Spend() {
			break
		}
		if err := p.sleep(ctx, tick); err != nil {
			return nil, err
		}
	}

	err := errors.WithType(fmt.Errorf("timeout while waiting for vmid %d IP address", vm.VMID), errors.Timeout)
	log.Error(err, "gave up waiting for vm IP address", "state", state)
	return nil, err
}

func (p *Poller) transition(log logr.Logger, from, to AgentState) AgentState {
	if from != to {
		log.V(1).Info("agent poll state change", "from", from, "to", to)
	}
	return to
}

// sleep pauses for d on the poller clock.
func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clock.After(d):
		return nil
	}
}
