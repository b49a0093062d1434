package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const defaultAPIURL = "http://localhost:8080"

var (
	cfgFile   string
	apiURL    string
	tenantID  string
	verbose   bool
	outputFmt string
)

// Config holds CLI configuration
type Config struct {
	APIURL   string `mapstructure:"api_url" yaml:"api_url"`
	TenantID string `mapstructure:"tenant_id" yaml:"tenant_id"`
	Output   string `mapstructure:"output" yaml:"output"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "courier-cli",
		Short: "Courier CLI - queue emails and inspect tenant quotas",
		Long: `Courier CLI provides command-line access to the courier email API.
Queue emails, check per-tenant daily quotas and monitor service health from the terminal.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initConfig()
			if verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "API URL: %s\n", apiURL)
				fmt.Fprintf(cmd.ErrOrStderr(), "Tenant ID: %s\n", tenantID)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.courier-cli.yaml)")
	pf.StringVar(&apiURL, "api-url", "", "Courier API base URL")
	pf.StringVar(&tenantID, "tenant", "", "Tenant ID for operations")
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.StringVarP(&outputFmt, "output", "o", "", "output format (table, json, yaml)")

	_ = viper.BindPFlag("api_url", pf.Lookup("api-url"))
	_ = viper.BindPFlag("tenant_id", pf.Lookup("tenant"))
	_ = viper.BindPFlag("output", pf.Lookup("output"))

	root.AddCommand(newSendCmd(), newQuotaCmd(), newHealthCmd(), newConfigCmd())
	return root
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".courier-cli")
	}

	viper.SetEnvPrefix("COURIER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}

	if apiURL == "" {
		apiURL = viper.GetString("api_url")
	}
	if tenantID == "" {
		tenantID = viper.GetString("tenant_id")
	}
	if outputFmt == "" {
		outputFmt = viper.GetString("output")
	}

	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if outputFmt == "" {
		outputFmt = "table"
	}
}

func newSendCmd() *cobra.Command {
	var req SendRequest
	var bodyFile string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Queue an email",
		Long:  "Queue an email for background delivery. The body is HTML and may be read from a file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if bodyFile != "" {
				b, err := readBody(cmd.InOrStdin(), bodyFile)
				if err != nil {
					return err
				}
				req.Body = b
			}
			req.TenantID = tenantID
			if req.TenantID == "" {
				return fmt.Errorf("tenant is required (--tenant or tenant_id in config)")
			}
			res, err := NewClient(apiURL).SendEmail(cmd.Context(), req)
			if err != nil {
				return err
			}
			return formatOutput(cmd.OutOrStdout(), res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.ToAddress, "to", "", "recipient address")
	f.StringVar(&req.FromAddress, "from", "", "sender address")
	f.StringVar(&req.Subject, "subject", "", "subject line")
	f.StringVar(&req.Body, "body", "", "HTML body")
	f.StringVar(&bodyFile, "body-file", "", "read the HTML body from a file ('-' for stdin)")
	f.StringVar(&req.UserID, "user", "", "user ID recorded on the email")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("subject")
	cmd.MarkFlagsMutuallyExclusive("body", "body-file")
	return cmd
}

func readBody(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read body file: %w", err)
	}
	return string(b), nil
}

func newQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota [tenant-id]",
		Short: "Show a tenant's daily quota",
		Long:  "Show today's quota ceiling, remaining sends and sends used for a tenant",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := tenantID
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				return fmt.Errorf("tenant is required (argument, --tenant or tenant_id in config)")
			}
			res, err := NewClient(apiURL).Quota(cmd.Context(), id)
			if err != nil {
				return err
			}
			return formatOutput(cmd.OutOrStdout(), res)
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check service health",
		Long:  "Check the queue store and tenant directory as seen by the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := NewClient(apiURL).Health(cmd.Context())
			if err != nil {
				return err
			}
			if err := formatOutput(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if res.Status == "down" {
				return fmt.Errorf("service is down")
			}
			return nil
		},
	}
}

// Configuration commands
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "Manage CLI configuration settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Initialize configuration",
		Long:  "Initialize CLI configuration with interactive prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initializeConfig(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}, &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display current CLI configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.OutOrStdout())
		},
	})
	return cmd
}

func initializeConfig(in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Courier CLI Configuration Setup")
	fmt.Fprintln(out, "===============================")

	sc := bufio.NewScanner(in)
	prompt := func(label, def string) string {
		if def != "" {
			fmt.Fprintf(out, "%s [%s]: ", label, def)
		} else {
			fmt.Fprintf(out, "%s: ", label)
		}
		if !sc.Scan() {
			return def
		}
		if v := strings.TrimSpace(sc.Text()); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		APIURL:   prompt("Courier API URL", defaultAPIURL),
		TenantID: prompt("Default Tenant ID (optional)", ""),
		Output:   prompt("Output format (table, json, yaml)", "table"),
	}

	viper.Set("api_url", cfg.APIURL)
	viper.Set("tenant_id", cfg.TenantID)
	viper.Set("output", cfg.Output)

	path := cfgFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, ".courier-cli.yaml")
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(out, "Configuration saved to %s\n", path)
	return nil
}

func showConfig(out io.Writer) error {
	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintf(out, "API URL: %s\n", apiURL)
	fmt.Fprintf(out, "Default Tenant ID: %s\n", tenantID)
	fmt.Fprintf(out, "Output: %s\n", outputFmt)
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	}
	return nil
}

// Output formatting helpers
func formatOutput(w io.Writer, data any) error {
	switch outputFmt {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		b, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return formatTable(w, data)
	}
}

func formatTable(w io.Writer, data any) error {
	table := tablewriter.NewWriter(w)
	switch v := data.(type) {
	case SendResponse:
		table.Header("ID", "Message")
		if err := table.Append([]string{v.ID, v.Message}); err != nil {
			return err
		}
	case QuotaResponse:
		table.Header("Daily", "Remaining", "Used")
		if err := table.Append([]string{strconv.Itoa(v.DailyQuota), strconv.Itoa(v.RemainingQuota), strconv.Itoa(v.UsedQuota)}); err != nil {
			return err
		}
	case HealthResponse:
		depth := "-"
		if v.QueueDepth != nil {
			depth = strconv.FormatInt(*v.QueueDepth, 10)
		}
		table.Header("Status", "Queue", "Depth", "Directory", "Time")
		if err := table.Append([]string{v.Status, v.Queue, depth, v.Directory, v.Time}); err != nil {
			return err
		}
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
	return table.Render()
}

func logVerbose(format string, args ...any) {
	if verbose {
		log.Printf("[VERBOSE] "+format, args...)
	}
}
