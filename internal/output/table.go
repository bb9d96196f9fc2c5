package output

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jbweber/molecule-proxmox/internal/proxmox"
	"github.com/jbweber/molecule-proxmox/internal/vm"
)

// TableFormatter formats results as human-readable tables.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatResult formats a poll result as a table row.
func (f *TableFormatter) FormatResult(r *vm.Result) (string, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "VMID\tADDRESSES\tCHANGED")
	}

	addrs := "-"
	if len(r.Addresses) > 0 {
		addrs = strings.Join(r.Addresses, ",")
	}
	_, _ = fmt.Fprintf(w, "%d\t%s\t%t\n", r.VMID, addrs, r.Changed)

	_ = w.Flush()
	return buf.String(), nil
}

// FormatVMList formats a list of VMs as a table.
func (f *TableFormatter) FormatVMList(vms []proxmox.VMResource) (string, error) {
	if len(vms) == 0 {
		return "No VMs found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	// Write header unless NoHeaders is set
	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "VMID\tNAME\tNODE\tSTATUS\tUPTIME")
	}

	for _, v := range vms {
		name := v.Name
		if name == "" {
			name = "-"
		}
		status := v.Status
		if v.Template == 1 {
			status = "template"
		}
		if status == "" {
			status = "-"
		}

		uptime := "-"
		if v.Uptime > 0 {
			uptime = formatAge(time.Duration(v.Uptime) * time.Second)
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			v.VMID, name, v.Node, status, uptime)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// FormatOptions formats an option mapping as KEY/VALUE rows sorted by key.
func (f *TableFormatter) FormatOptions(opts map[string]any) (string, error) {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "KEY\tVALUE")
	}
	for _, k := range keys {
		v := opts[k]
		if v == nil {
			v = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%v\n", k, v)
	}

	_ = w.Flush()
	return buf.String(), nil
}

// formatAge formats a duration as a human-readable age string.
// Examples: "5s", "2m", "3h", "4d", "2w", "1y"
func formatAge(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh", hours)
	}

	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd", days)
	}

	weeks := days / 7
	if weeks < 8 {
		return fmt.Sprintf("%dw", weeks)
	}

	years := days / 365
	if years > 0 {
		return fmt.Sprintf("%dy", years)
	}

	return fmt.Sprintf("%dd", days)
}
