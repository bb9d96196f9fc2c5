// Package proxmox provides a client wrapper for the Proxmox VE HTTP API.
//
// This package wraps github.com/luthermonson/go-proxmox to provide:
//   - Session setup from password or API-token credentials
//   - The handful of endpoints the readiness poller needs (cluster
//     resources, VM start, task status and log, guest-agent interfaces)
//   - Wire types for those endpoints
//
// Connection Management:
//
// No request is made until the first API call. Use Ping to verify the
// credentials and TLS settings up front:
//
//	client, err := proxmox.Connect(proxmox.Options{
//	    Host:        "pve.example.com",
//	    User:        "root@pam",
//	    TokenID:     "molecule",
//	    TokenSecret: secret,
//	})
//	if err != nil {
//	    return err
//	}
//
//	version, err := client.Ping(ctx)
//	if err != nil {
//	    return err
//	}
//
// Consumer-Side Interfaces:
//
// This package does not define interfaces. Consumers (internal/vm) define
// their own interfaces listing only the operations they need; *Client
// satisfies them implicitly.
package proxmox
