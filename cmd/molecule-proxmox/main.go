package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/jbweber/molecule-proxmox/internal/config"
	"github.com/jbweber/molecule-proxmox/internal/logging"
	"github.com/jbweber/molecule-proxmox/internal/output"
	"github.com/jbweber/molecule-proxmox/internal/proxmox"
)

var (
	version = "dev"
	commit  = "unknown"
)

// errReported means the command already printed its failure report.
const errReported = errors.ConstError("failure reported")

// Global flags
var (
	configPath string
	debug      bool
	logFormat  string

	apiHost        string
	apiPort        int
	apiUser        string
	apiPassword    string
	apiTokenID     string
	apiTokenSecret string
	validateCerts  bool

	logger = logr.Discard()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "molecule-proxmox",
	Short: "molecule-proxmox - Proxmox VE helper for Molecule test runs",
	Long: `molecule-proxmox waits for Proxmox VE virtual machines to become reachable
and answers the questions the Molecule test runner asks about provisioned
instances (login commands and connection options).

API credentials come from a YAML file (--config), flags, or the
PROXMOX_API_PASSWORD and PROXMOX_API_TOKEN_SECRET environment variables.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger(debug)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML file with API connection parameters")
	pf.BoolVar(&debug, "debug", false, "Log address decisions and raw guest agent replies")
	pf.StringVar(&logFormat, "log-format", logging.FormatText, "Log format (text, json)")

	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(testConnCmd)
	rootCmd.AddCommand(loginCmdCmd)
	rootCmd.AddCommand(loginOptionsCmd)
	rootCmd.AddCommand(connectionOptionsCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(rdpCmd)
}

// addAPIFlags registers the API connection flags on commands that talk to
// Proxmox.
func addAPIFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&apiHost, "api-host", "", "Proxmox VE API host")
	f.IntVar(&apiPort, "api-port", proxmox.DefaultPort, "Proxmox VE API port")
	f.StringVar(&apiUser, "api-user", "", "API user, e.g. root@pam")
	f.StringVar(&apiPassword, "api-password", "", "API password (prefer "+config.EnvPassword+")")
	f.StringVar(&apiTokenID, "api-token-id", "", "API token id")
	f.StringVar(&apiTokenSecret, "api-token-secret", "", "API token secret (prefer "+config.EnvTokenSecret+")")
	f.BoolVar(&validateCerts, "validate-certs", false, "Verify the API TLS certificate")
}

// addOutputFlags registers the output format flags.
func addOutputFlags(cmd *cobra.Command, defaultFormat string) {
	cmd.Flags().StringP("output", "o", defaultFormat, "Output format (table, yaml, json)")
	cmd.Flags().Bool("no-headers", false, "Omit headers in table output")
}

// outputOptions reads the output flags of cmd.
func outputOptions(cmd *cobra.Command) (output.Options, error) {
	format, _ := cmd.Flags().GetString("output")
	if err := output.ValidateFormat(format); err != nil {
		return output.Options{}, err
	}
	noHeaders, _ := cmd.Flags().GetBool("no-headers")
	return output.Options{Format: output.Format(format), NoHeaders: noHeaders}, nil
}

func setupLogger(debug bool) error {
	log, err := logging.Setup(logging.Options{Debug: debug, Format: logFormat})
	if err != nil {
		return err
	}
	logger = logging.WithRunID(log)
	return nil
}

// loadConfig builds the configuration from the config file, the
// environment and changed flags, in increasing order of precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnvironment(os.LookupEnv)

	f := cmd.Flags()
	if f.Changed("api-host") {
		cfg.APIHost = apiHost
	}
	if f.Changed("api-port") {
		cfg.APIPort = apiPort
	}
	if f.Changed("api-user") {
		cfg.APIUser = apiUser
	}
	if f.Changed("api-password") {
		cfg.APIPassword = apiPassword
	}
	if f.Changed("api-token-id") {
		cfg.APITokenID = apiTokenID
	}
	if f.Changed("api-token-secret") {
		cfg.APITokenSecret = apiTokenSecret
	}
	if f.Changed("validate-certs") {
		cfg.ValidateCerts = validateCerts
	}
	if f.Changed("vmid") {
		cfg.VMID = waitVMID
	}
	if f.Changed("timeout") {
		cfg.Timeout = waitTimeout
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Debug && !debug {
		if err := setupLogger(true); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// connect loads the configuration and prepares an API session.
func connect(cmd *cobra.Command) (*proxmox.Client, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	client, err := proxmox.Connect(cfg.ProxmoxOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to proxmox: %w", err)
	}
	return client, cfg, nil
}
