package output

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/molecule-proxmox/internal/proxmox"
	"github.com/jbweber/molecule-proxmox/internal/vm"
)

// YAMLFormatter formats results as YAML.
type YAMLFormatter struct{}

// FormatResult formats a poll result as YAML.
func (f *YAMLFormatter) FormatResult(r *vm.Result) (string, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result to YAML: %w", err)
	}

	return string(data), nil
}

// FormatVMList formats a list of VMs as YAML.
// Outputs as a YAML stream (multiple documents separated by ---).
func (f *YAMLFormatter) FormatVMList(vms []proxmox.VMResource) (string, error) {
	if len(vms) == 0 {
		return "", nil
	}

	var buf bytes.Buffer

	for i, v := range vms {
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal VM %d to YAML: %w", v.VMID, err)
		}

		// Add document separator between VMs (but not before the first one)
		if i > 0 {
			buf.WriteString("---\n")
		}

		buf.Write(data)
	}

	return buf.String(), nil
}

// FormatOptions formats an option mapping as YAML.
func (f *YAMLFormatter) FormatOptions(opts map[string]any) (string, error) {
	if len(opts) == 0 {
		return "{}\n", nil
	}

	data, err := yaml.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("failed to marshal options to YAML: %w", err)
	}

	return string(data), nil
}
