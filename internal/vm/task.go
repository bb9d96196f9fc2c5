package vm

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"

	"github.com/jbweber/molecule-proxmox/internal/proxmox"
)

// taskGrace is the pause after a successful task before the API reflects it.
const taskGrace = time.Second

// startVM submits a start task for vm and waits for it on budget.
func (p *Poller) startVM(ctx context.Context, vm proxmox.VMResource, budget *Budget) error {
	log := p.log.WithValues("vmid", vm.VMID, "node", vm.Node)

	upid, err := p.client.StartVM(ctx, vm.Node, vm.VMID)
	if err != nil {
		log.Error(err, "failed to submit start task")
		return err
	}
	log.Info("starting vm", "upid", upid)

	return p.waitForTask(ctx, vm, upid, budget)
}

// waitForTask checks the task once per tick until it stops. A task that
// stops with an exit status other than OK fails immediately.
func (p *Poller) waitForTask(ctx context.Context, vm proxmox.VMResource, upid proxmox.UPID, budget *Budget) error {
	log := p.log.WithValues("vmid", vm.VMID, "node", vm.Node, "upid", upid)

	for !budget.Exhausted() {
		status, err := p.client.TaskStatus(ctx, vm.Node, upid)
		if err != nil {
			log.Error(err, "failed to read task status")
			return err
		}

		if status.Succeeded() {
			log.V(1).Info("start task finished")
			return p.sleep(ctx, taskGrace)
		}
		if status.Stopped() {
			err := errors.WithType(
				fmt.Errorf("start of vmid %d failed with exit status %q: %s", vm.VMID, status.ExitStatus, p.taskLogTail(ctx, vm, upid)),
				ErrTaskFailed,
			)
			log.Error(err, "start task failed")
			return err
		}

		if !budget.Spend() {
			break
		}
		if err := p.sleep(ctx, tick); err != nil {
			return err
		}
	}

	err := errors.WithType(
		fmt.Errorf("timeout while starting vmid %d: %s", vm.VMID, p.taskLogTail(ctx, vm, upid)),
		errors.Timeout,
	)
	log.Error(err, "gave up waiting for start task")
	return err
}

// taskLogTail returns the last log line of a task for error messages.
func (p *Poller) taskLogTail(ctx context.Context, vm proxmox.VMResource, upid proxmox.UPID) string {
	lines, err := p.client.TaskLog(ctx, vm.Node, upid)
	if err != nil {
		p.log.Error(err, "failed to read task log", "vmid", vm.VMID, "upid", upid)
		return "task log unavailable"
	}
	if len(lines) == 0 {
		return "task log is empty"
	}
	return lines[len(lines)-1]
}
