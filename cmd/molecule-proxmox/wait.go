package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jbweber/molecule-proxmox/internal/config"
	"github.com/jbweber/molecule-proxmox/internal/output"
	"github.com/jbweber/molecule-proxmox/internal/vm"
)

var (
	waitVMID    int
	waitTimeout int
)

var waitCmd = &cobra.Command{
	Use:   "wait [vmid]",
	Short: "Wait until a VM is running and reports an IP address",
	Long: `Wait until a VM is running and its QEMU guest agent reports a usable
IPv4 address.

The VM is started if it is not running. Loopback and link-local addresses
are ignored; private addresses are listed first (10/8, then 192.168/16,
then 172.16/12). All waiting shares one timeout in seconds.

On success the result is printed as {"vmid", "addresses", "changed"}.
On failure {"failed": true, "msg", "vmid"} is printed and the exit
status is 1.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outOpts, err := outputOptions(cmd)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			if _, err := strconv.Atoi(args[0]); err != nil {
				return fmt.Errorf("invalid vmid %q", args[0])
			}
			if err := cmd.Flags().Set("vmid", args[0]); err != nil {
				return err
			}
		}

		client, cfg, err := connect(cmd)
		if err != nil {
			fmt.Print(output.FormatFailure(requestedVMID(cmd), err))
			return errReported
		}
		if cfg.VMID <= 0 {
			fmt.Print(output.FormatFailure(0, fmt.Errorf("vmid is required")))
			return errReported
		}

		poller := vm.NewPoller(client, vm.WithLogger(logger))
		res, err := poller.WaitForAddresses(context.Background(), cfg.VMID, cfg.Timeout)
		if err != nil {
			fmt.Print(output.FormatFailure(cfg.VMID, err))
			return errReported
		}

		formatter, err := output.NewFormatter(outOpts)
		if err != nil {
			return err
		}

		out, err := formatter.FormatResult(res)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(out)
		return nil
	},
}

// requestedVMID returns the vmid given on the command line or, failing that,
// in the config file. It is used to label failure reports when the
// configuration as a whole could not be loaded.
func requestedVMID(cmd *cobra.Command) int {
	if cmd.Flags().Changed("vmid") {
		return waitVMID
	}
	if configPath == "" {
		return 0
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return 0
	}
	return cfg.VMID
}

func init() {
	addAPIFlags(waitCmd)
	addOutputFlags(waitCmd, string(output.FormatJSON))
	waitCmd.Flags().IntVar(&waitVMID, "vmid", 0, "Proxmox VM id")
	waitCmd.Flags().IntVar(&waitTimeout, "timeout", config.DefaultTimeout, "Seconds to wait for the VM and its address")
}
