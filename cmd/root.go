package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iksnae/hospital-console/internal"
	"github.com/iksnae/hospital-console/internal/api"
	"github.com/iksnae/hospital-console/internal/app"
	"github.com/iksnae/hospital-console/internal/chat"
	"github.com/iksnae/hospital-console/internal/config"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	cfgFile string
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"

	// cfg is resolved before any subcommand runs.
	cfg *config.Config
)

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"base-url":  "base_url",
	"token":     "token",
	"timeout":   "timeout",
	"pdf-dir":   "pdf_dir",
	"log-level": "log_level",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hospital-console",
	Short: "Administer a hospital backend from the terminal",
	Long: `A console for the hospital administration API.

Manage users, wards, beds and system logs, and talk to the hospital
assistant chatbot.

Configuration is read from --config, $HOME/.hospital-console.yaml and
HOSPITAL_* environment variables (HOSPITAL_BASE_URL, HOSPITAL_TOKEN, ...).
Flags win over the environment, which wins over the file.

Quick Start:
  hospital-console sandbox                    # Run a local demo backend
  hospital-console wards list                 # List wards
  hospital-console beds list --status available
  hospital-console chat send "How many beds are free?"
  hospital-console chat tui                   # Interactive chat`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// resolveConfig is the root PersistentPreRunE. It is attached in init to
// avoid an initialization cycle through loadConfig.
func resolveConfig(cmd *cobra.Command, args []string) error {
	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = loaded
	internal.SetLogLevel(internal.ParseLogLevel(cfg.LogLevel))
	if verbose {
		internal.SetVerbose(true)
	}
	if cfg.File != "" {
		internal.LogDebug("using config file %s", cfg.File)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		internal.PrintError("Error: %v", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = resolveConfig

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&cfgFile, "config", "", "Config file (default $HOME/"+config.DefaultFileName+")")
	flags.String("base-url", "", "Backend base URL (default http://localhost:8000)")
	flags.String("token", "", "Bearer token for the backend")
	flags.Duration("timeout", 0, "Request timeout (default 30s)")
	flags.String("pdf-dir", "", "Keep fetched PDFs as files in this directory instead of memory")
	flags.String("log-level", "", "Log level: error, warn, info, debug")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig resolves the configuration with flags taking precedence.
func loadConfig() (*config.Config, error) {
	v := config.New()
	for name, key := range flagKeys {
		if f := rootCmd.PersistentFlags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	return config.Load(v, cfgFile)
}

// newApp builds the client and containers for a command.
func newApp() (*app.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	client := api.NewClient(cfg.BaseURL,
		api.WithTimeout(cfg.Timeout),
		api.WithUserAgent("hospital-console/"+version),
	)

	var opts []chat.Option
	if cfg.PDFDir != "" {
		if err := os.MkdirAll(cfg.PDFDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create pdf directory: %w", err)
		}
		opts = append(opts, chat.WithHandles(chat.TempFileHandles(cfg.PDFDir)))
	}
	return app.New(client, cfg.Token, opts...), nil
}

// withApp runs fn with a fresh App and tears it down afterwards.
func withApp(fn func(cmd *cobra.Command, args []string, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				internal.LogWarn("failed to release resources: %v", err)
			}
		}()
		return fn(cmd, args, a)
	}
}

// requestContext bounds a single command by the configured timeout on top
// of the command's own context.
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout := 30 * time.Second
	if cfg != nil && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}
	return context.WithTimeout(cmd.Context(), timeout)
}
