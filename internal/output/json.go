package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/molecule-proxmox/internal/proxmox"
	"github.com/jbweber/molecule-proxmox/internal/vm"
)

// JSONFormatter formats results as JSON.
type JSONFormatter struct{}

// FormatResult formats a poll result as a single-line JSON object, the form
// the orchestrator parses.
func (f *JSONFormatter) FormatResult(r *vm.Result) (string, error) {
	res := *r
	if res.Addresses == nil {
		res.Addresses = []string{}
	}

	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatVMList formats a list of VMs as a JSON array.
func (f *JSONFormatter) FormatVMList(vms []proxmox.VMResource) (string, error) {
	if len(vms) == 0 {
		return "[]\n", nil
	}

	data, err := json.MarshalIndent(vms, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal VMs to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatOptions formats an option mapping as a JSON object.
func (f *JSONFormatter) FormatOptions(opts map[string]any) (string, error) {
	if opts == nil {
		opts = map[string]any{}
	}

	data, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal options to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// Failure is the report printed on stdout when a command fails.
type Failure struct {
	Failed bool   `json:"failed"`
	Msg    string `json:"msg"`
	VMID   int    `json:"vmid,omitempty"`
}

// FormatFailure formats err as a failure report for vmid. A vmid of zero is
// omitted.
func FormatFailure(vmid int, err error) string {
	data, mErr := json.Marshal(Failure{Failed: true, Msg: err.Error(), VMID: vmid})
	if mErr != nil {
		return fmt.Sprintf("{\"failed\": true, \"msg\": %q}\n", err.Error())
	}
	return string(data) + "\n"
}
