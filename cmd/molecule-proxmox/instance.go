package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbweber/molecule-proxmox/internal/instance"
	"github.com/jbweber/molecule-proxmox/internal/output"
	"github.com/jbweber/molecule-proxmox/internal/probe"
)

// envInstanceConfig is set by Molecule to the instance config file path.
const envInstanceConfig = "MOLECULE_INSTANCE_CONFIG"

var (
	instanceConfigPath string
	templateOnly       bool
	probeTimeout       time.Duration
)

// newDriver creates an instance driver for the configured instance file.
func newDriver() (*instance.Driver, error) {
	path := instanceConfigPath
	if path == "" {
		path = os.Getenv(envInstanceConfig)
	}
	if path == "" {
		return nil, fmt.Errorf("instance config path is required (--instance-config or %s)", envInstanceConfig)
	}

	launcher, err := os.Executable()
	if err != nil {
		launcher = "molecule-proxmox"
	}
	return instance.NewDriver(path, instance.DefaultSettings(launcher), logger), nil
}

// printOptions prints an option mapping in the selected format.
func printOptions(outOpts output.Options, opts map[string]any) error {
	formatter, err := output.NewFormatter(outOpts)
	if err != nil {
		return err
	}

	out, err := formatter.FormatOptions(opts)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	fmt.Print(out)
	return nil
}

var loginCmdCmd = &cobra.Command{
	Use:   "login-cmd [instance]",
	Short: "Print the login command for an instance",
	Long: `Print the interactive login command for an instance.

Linux instances are reached with ssh, Windows instances with the rdp
subcommand of this binary. When the instance record cannot be read the ssh
command is used. With --template the command is printed with its {key}
placeholders instead of the instance values.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDriver()
		if err != nil {
			return err
		}

		var name string
		if len(args) == 1 {
			name = args[0]
		}

		tmpl := d.LoginCommandTemplate(name)
		if templateOnly {
			fmt.Println(tmpl)
			return nil
		}
		if name == "" {
			return fmt.Errorf("an instance name is required unless --template is given")
		}

		opts, err := d.LoginOptions(name)
		if err != nil {
			return fmt.Errorf("failed to read login options: %w", err)
		}

		line, err := instance.RenderLoginCommand(tmpl, opts)
		if err != nil {
			return err
		}
		fmt.Println(line)
		return nil
	},
}

var loginOptionsCmd = &cobra.Command{
	Use:   "login-options <instance>",
	Short: "Print the login options of an instance",
	Long:  `Print the instance record merged with the instance name, as used to render the login command.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outOpts, err := outputOptions(cmd)
		if err != nil {
			return err
		}

		d, err := newDriver()
		if err != nil {
			return err
		}

		opts, err := d.LoginOptions(args[0])
		if err != nil {
			return fmt.Errorf("failed to read login options: %w", err)
		}
		return printOptions(outOpts, opts)
	},
}

var connectionOptionsCmd = &cobra.Command{
	Use:   "connection-options <instance>",
	Short: "Print the Ansible connection options of an instance",
	Long: `Print the Ansible connection variables of an instance: ssh for Linux,
winrm for Windows. An instance that has not been provisioned yet has no
options and an empty mapping is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outOpts, err := outputOptions(cmd)
		if err != nil {
			return err
		}

		d, err := newDriver()
		if err != nil {
			return err
		}

		opts, err := d.ConnectionOptions(args[0])
		if err != nil {
			return fmt.Errorf("failed to read connection options: %w", err)
		}
		return printOptions(outOpts, opts)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <instance>",
	Short: "Check that an instance accepts remote commands",
	Long: `Connect to a provisioned instance the way Ansible will and run a trivial
command: "true" over ssh for Linux, "hostname" over WinRM for Windows.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outOpts, err := outputOptions(cmd)
		if err != nil {
			return err
		}

		d, err := newDriver()
		if err != nil {
			return err
		}

		target, err := d.Target(args[0])
		if err != nil {
			return err
		}

		res, err := probe.NewProber(probeTimeout, logger).Probe(context.Background(), target)
		if err != nil {
			return fmt.Errorf("instance %s is not reachable: %w", args[0], err)
		}

		return printOptions(outOpts, map[string]any{
			"instance": res.Instance,
			"protocol": res.Protocol,
			"address":  res.Address,
			"port":     res.Port,
			"detail":   res.Detail,
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmdCmd, loginOptionsCmd, connectionOptionsCmd, verifyCmd} {
		c.Flags().StringVar(&instanceConfigPath, "instance-config", "", "Instance config file (default $"+envInstanceConfig+")")
	}
	loginCmdCmd.Flags().BoolVar(&templateOnly, "template", false, "Print the template with placeholders")

	addOutputFlags(loginOptionsCmd, string(output.FormatJSON))
	addOutputFlags(connectionOptionsCmd, string(output.FormatJSON))
	addOutputFlags(verifyCmd, string(output.FormatTable))
	verifyCmd.Flags().DurationVar(&probeTimeout, "timeout", probe.DefaultTimeout, "Connection and command timeout")
}
