package vm

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/juju/errors"

	"github.com/jbweber/molecule-proxmox/internal/proxmox"
)

// FindVM resolves a vmid to its cluster resource. Exactly one VM must match.
func FindVM(ctx context.Context, lv vmLister, vmid int) (proxmox.VMResource, error) {
	vms, err := lv.ClusterVMs(ctx)
	if err != nil {
		return proxmox.VMResource{}, err
	}

	var matches []proxmox.VMResource
	for _, vm := range vms {
		if vm.VMID == vmid {
			matches = append(matches, vm)
		}
	}

	switch len(matches) {
	case 0:
		return proxmox.VMResource{}, errors.WithType(fmt.Errorf("VM with vmid = %d not found", vmid), errors.NotFound)
	case 1:
		return matches[0], nil
	default:
		return proxmox.VMResource{}, errors.WithType(fmt.Errorf("multiple VMs with vmid = %d found", vmid), ErrAmbiguousVM)
	}
}

// List lists all VMs of the cluster ordered by vmid.
func List(ctx context.Context, lv vmLister) ([]proxmox.VMResource, error) {
	vms, err := lv.ClusterVMs(ctx)
	if err != nil {
		return nil, err
	}

	if len(vms) == 0 {
		return []proxmox.VMResource{}, nil
	}

	slices.SortFunc(vms, func(a, b proxmox.VMResource) int {
		return cmp.Compare(a.VMID, b.VMID)
	})
	return vms, nil
}
