package vm

import (
	"context"

	"github.com/jbweber/molecule-proxmox/internal/proxmox"
)

// vmLister lists the virtual machines of the cluster.
type vmLister interface {
	// ClusterVMs lists cluster resources of type vm
	ClusterVMs(ctx context.Context) ([]proxmox.VMResource, error)
}

// Hypervisor defines the Proxmox operations needed by the poller.
//
// In production, this is satisfied by *proxmox.Client.
// In tests, this is satisfied by mock implementations.
type Hypervisor interface {
	vmLister

	// StartVM submits a start task and returns its handle
	StartVM(ctx context.Context, node string, vmid int) (proxmox.UPID, error)

	// TaskStatus reads the status of a task
	TaskStatus(ctx context.Context, node string, upid proxmox.UPID) (proxmox.TaskStatus, error)

	// TaskLog reads the log lines of a task
	TaskLog(ctx context.Context, node string, upid proxmox.UPID) ([]string, error)

	// AgentNetworkInterfaces queries the guest agent for network interfaces
	AgentNetworkInterfaces(ctx context.Context, node string, vmid int) ([]proxmox.NetworkInterface, error)
}
