package vm

// Result is the outcome of a successful poll.
type Result struct {
	VMID      int      `json:"vmid" yaml:"vmid"`
	Addresses []string `json:"addresses" yaml:"addresses"`
	Changed   bool     `json:"changed" yaml:"changed"`
}
