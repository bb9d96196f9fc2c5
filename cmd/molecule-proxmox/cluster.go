package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/molecule-proxmox/internal/output"
	"github.com/jbweber/molecule-proxmox/internal/vm"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cluster VMs",
	Long: `List all virtual machines of the Proxmox VE cluster.

Output formats:
  -o table  Human-readable table (default)
  -o yaml   YAML documents
  -o json   JSON array`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		outOpts, err := outputOptions(cmd)
		if err != nil {
			return err
		}

		client, _, err := connect(cmd)
		if err != nil {
			return err
		}

		vms, err := vm.List(context.Background(), client)
		if err != nil {
			return fmt.Errorf("failed to list VMs: %w", err)
		}

		formatter, err := output.NewFormatter(outOpts)
		if err != nil {
			return err
		}

		out, err := formatter.FormatVMList(vms)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		fmt.Print(out)
		return nil
	},
}

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test the Proxmox VE API connection",
	Long:  `Test connectivity and credentials against the Proxmox VE API and display version information.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := connect(cmd)
		if err != nil {
			return err
		}

		fmt.Printf("Testing connection to %s as %s...\n", client.URL(), cfg.APIUser)

		v, err := client.Ping(context.Background())
		if err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		fmt.Printf("✓ Proxmox VE version: %s (release %s, repoid %s)\n", v.Version, v.Release, v.RepoID)

		vms, err := vm.List(context.Background(), client)
		if err != nil {
			return fmt.Errorf("failed to list VMs: %w", err)
		}
		fmt.Printf("✓ Cluster VMs visible: %d\n", len(vms))

		fmt.Println("\nConnection test successful!")
		return nil
	},
}

func init() {
	addAPIFlags(listCmd)
	addOutputFlags(listCmd, string(output.FormatTable))
	addAPIFlags(testConnCmd)
}
