// Package instance reads the instance records the test orchestrator writes
// after provisioning and turns them into login commands and connection
// options.
//
// Each record resolves to one of two targets: LinuxTarget, reached over SSH,
// or WindowsTarget, reached over WinRM with an RDP login. The target is
// chosen from the record's os_type once per lookup.
//
// Example:
//
//	d := instance.NewDriver(path, instance.DefaultSettings(launcher))
//	opts, err := d.ConnectionOptions("instance")
package instance
