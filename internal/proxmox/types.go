package proxmox

// Task status values reported by /nodes/{node}/tasks/{upid}/status.
const (
	TaskStatusStopped = "stopped"

	// TaskExitOK is the exit status of a task that completed successfully.
	TaskExitOK = "OK"
)

// AddressTypeIPv4 is the guest agent address family of IPv4 entries.
const AddressTypeIPv4 = "ipv4"

// UPID is the unique process id Proxmox returns for an asynchronous task.
type UPID string

// VMResource is one entry of /cluster/resources?type=vm.
type VMResource struct {
	ID       string `json:"id" yaml:"id"`
	Type     string `json:"type" yaml:"type"`
	Node     string `json:"node" yaml:"node"`
	VMID     int    `json:"vmid" yaml:"vmid"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Status   string `json:"status,omitempty" yaml:"status,omitempty"`
	Template int    `json:"template,omitempty" yaml:"template,omitempty"`
	Uptime   int64  `json:"uptime,omitempty" yaml:"uptime,omitempty"`
}

// TaskStatus is the status of an asynchronous task.
type TaskStatus struct {
	Status     string `json:"status"`
	ExitStatus string `json:"exitstatus,omitempty"`
}

// Stopped reports whether the task has reached a terminal state.
func (s TaskStatus) Stopped() bool {
	return s.Status == TaskStatusStopped
}

// Succeeded reports whether the task stopped with exit status OK.
func (s TaskStatus) Succeeded() bool {
	return s.Stopped() && s.ExitStatus == TaskExitOK
}

// NetworkInterface is one interface reported by the guest agent
// network-get-interfaces command.
type NetworkInterface struct {
	Name            string      `json:"name"`
	HardwareAddress string      `json:"hardware-address,omitempty"`
	IPAddresses     []IPAddress `json:"ip-addresses,omitempty"`
}

// IPAddress is one address entry of a NetworkInterface.
type IPAddress struct {
	Type    string `json:"ip-address-type"`
	Address string `json:"ip-address"`
	Prefix  int    `json:"prefix,omitempty"`
}

// Version is the response of /version.
type Version struct {
	Release string
	Version string
	RepoID  string
}

type taskLogLine struct {
	N int    `json:"n"`
	T string `json:"t"`
}

type agentInterfacesReply struct {
	Result []NetworkInterface `json:"result"`
}
