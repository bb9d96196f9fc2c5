// Package vm implements the readiness poller for Proxmox virtual machines.
//
// A poll resolves one VM by id, then repeatedly asks the QEMU guest agent
// for the VM's network interfaces until at least one usable IPv4 address is
// reported. A VM that is not running is started on demand and the start
// task is waited on. Both loops draw from one Budget of one-second ticks.
//
// The main operations are:
//   - FindVM: resolve a vmid to the node hosting it
//   - Poller.WaitForAddresses: start the VM if needed and wait for addresses
//   - CandidateAddresses: filter and rank guest-agent interface records
//   - List: list the VMs of the cluster
//
// Error Handling:
//
// Errors carry a juju/errors type so callers can tell them apart with
// errors.Is: errors.Timeout when the budget runs out, errors.NotFound when
// no VM has the id, ErrAmbiguousVM when several do, and ErrTaskFailed when
// the start task stops with a non-OK exit status. Any other API failure is
// returned wrapped and untyped.
package vm
