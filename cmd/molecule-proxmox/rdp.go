package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbweber/molecule-proxmox/internal/rdp"
)

var rdpCmd = &cobra.Command{
	Use:   "rdp <address> <user> [port] [password]",
	Short: "Open an RDP session to a Windows instance",
	Long: `Open an RDP session with the platform's RDP client.

  linux    xfreerdp, remmina or rdesktop, whichever is installed first
  darwin   Microsoft Remote Desktop through an rdp:// URL or an .rdp file
  windows  mstsc with an .rdp file

Example:
  molecule-proxmox rdp 192.168.1.100 Administrator 3389`,
	Args: cobra.RangeArgs(2, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := rdp.ParseArgs(args)
		if err != nil {
			return err
		}
		return rdp.NewLauncher(os.Stdout, logger).Launch(context.Background(), conn)
	},
}
