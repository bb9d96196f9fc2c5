package vm

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/jbweber/molecule-proxmox/internal/proxmox"
)

// Address priority classes, lowest first.
const (
	PriorityPrivateA = iota // 10.0.0.0/8
	PriorityPrivateC        // 192.168.0.0/16
	PriorityPrivateB        // 172.16.0.0/12
	PriorityOther           // public or unrecognized
)

// CandidateAddresses returns the usable IPv4 addresses of the interfaces,
// private ranges first. An empty result is not an error.
func CandidateAddresses(ifaces []proxmox.NetworkInterface) []string {
	return rankAddresses(extractAddresses(ifaces, logr.Discard()))
}

// AddressPriority returns the priority class of an IPv4 address.
func AddressPriority(addr string) int {
	switch {
	case strings.HasPrefix(addr, "10."):
		return PriorityPrivateA
	case strings.HasPrefix(addr, "192.168."):
		return PriorityPrivateC
	case strings.HasPrefix(addr, "172."):
		parts := strings.Split(addr, ".")
		if n, err := strconv.Atoi(parts[1]); err == nil && n >= 16 && n <= 31 {
			return PriorityPrivateB
		}
	}
	return PriorityOther
}

// extractAddresses collects IPv4 addresses in the order reported, skipping
// loopback interfaces and loopback or link-local addresses. Duplicates are
// kept.
func extractAddresses(ifaces []proxmox.NetworkInterface, log logr.Logger) []string {
	var addrs []string
	for _, iface := range ifaces {
		if isLoopbackInterface(iface.Name) {
			continue
		}

		for _, ip := range iface.IPAddresses {
			if ip.Type != proxmox.AddressTypeIPv4 || ip.Address == "" {
				continue
			}
			if strings.HasPrefix(ip.Address, "127.") || strings.HasPrefix(ip.Address, "169.254.") {
				log.V(1).Info("skipping loopback/link-local address", "address", ip.Address, "interface", iface.Name)
				continue
			}

			log.V(1).Info("found IPv4 address", "address", ip.Address, "interface", iface.Name)
			addrs = append(addrs, ip.Address)
		}
	}
	return addrs
}

// rankAddresses sorts addresses by priority class, keeping the reported
// order within a class.
func rankAddresses(addrs []string) []string {
	slices.SortStableFunc(addrs, func(a, b string) int {
		return cmp.Compare(AddressPriority(a), AddressPriority(b))
	})
	return addrs
}

func isLoopbackInterface(name string) bool {
	return strings.EqualFold(name, "lo") || strings.EqualFold(name, "loopback")
}
