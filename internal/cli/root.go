// Package cli provides the command-line interface for rescale-space.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rescale/rescale-space/internal/config"
	"github.com/rescale/rescale-space/internal/logging"
	"github.com/rescale/rescale-space/internal/version"
)

var (
	// Global flags
	cfgFile string
	logFile string
	verbose bool
	debug   bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rescale-space",
		Short: "Rescale Space - pannable, zoomable file browser",
		Long: `Rescale Space ` + version.Version + ` - Built: ` + version.BuildTime + `
Browse a directory as a 2-D space you can pan and zoom. Only the items near
the viewport are drawn, so directories with tens of thousands of entries stay
responsive.

Frontends:
  browse  - terminal browser
  gui     - desktop window

Diagnostics:
  stats   - headless render sweep with per-pass statistics`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default ~/.config/rescale/space.conf)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output and per-pass render logs")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for rescale-space.

QUICK TEST (temporary, current session only):
  source <(rescale-space completion bash)
  source <(rescale-space completion zsh)
  rescale-space completion fish | source`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletion(out)
			default:
				return fmt.Errorf("unsupported shell %q", args[0])
			}
		},
	}
	rootCmd.AddCommand(completionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, shutting down...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)
	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newGUICmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// setupLogger points the global logger at --log-file or stderr and applies
// the level flags.
func setupLogger(stderr io.Writer) error {
	var out io.Writer = stderr
	if logFile != "" {
		path, err := homedir.Expand(logFile)
		if err != nil {
			return fmt.Errorf("invalid --log-file: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
	}
	logger = logging.NewLogger(out)
	if verbose || debug {
		logging.SetGlobalLevel(zerolog.DebugLevel)
	}
	return nil
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// configPath returns --config with ~ expanded, or "" for the default location.
func configPath() (string, error) {
	if cfgFile == "" {
		return "", nil
	}
	return homedir.Expand(cfgFile)
}

// loadConfig reads the engine configuration and applies --debug.
func loadConfig() (config.Config, error) {
	path, err := configPath()
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

// dirArg returns the directory argument with ~ expanded, defaulting to ".".
func dirArg(args []string) (string, error) {
	if len(args) == 0 {
		return ".", nil
	}
	dir, err := homedir.Expand(args[0])
	if err != nil {
		return "", fmt.Errorf("invalid directory %q: %w", args[0], err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}
	return dir, nil
}
