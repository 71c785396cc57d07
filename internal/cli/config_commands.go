package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rescale/rescale-space/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage rescale-space configuration",
		Long: `Configuration management commands for rescale-space.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// resolvedConfigPath returns --config or the default location.
func resolvedConfigPath() (string, error) {
	path, err := configPath()
	if err != nil || path != "" {
		return path, err
	}
	return config.DefaultPath()
}

// prompter reads answers line by line, falling back to the default shown in brackets.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func (p *prompter) ask(label, def string) string {
	fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	input, _ := p.in.ReadString('\n')
	if input = strings.TrimSpace(input); input == "" {
		return def
	}
	return input
}

func (p *prompter) float(label string, def float64) float64 {
	for {
		raw := p.ask(label, strconv.FormatFloat(def, 'g', -1, 64))
		v, err := strconv.ParseFloat(raw, 64)
		if err == nil && v > 0 {
			return v
		}
		fmt.Fprintf(p.out, "  Error: %q is not a positive number\n", raw)
	}
}

func (p *prompter) int(label string, def int) int {
	for {
		raw := p.ask(label, strconv.Itoa(def))
		v, err := strconv.Atoi(raw)
		if err == nil && v >= 0 {
			return v
		}
		fmt.Fprintf(p.out, "  Error: %q is not a whole number\n", raw)
	}
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for rescale-space.

The configuration will be saved to ~/.config/rescale/space.conf, or to --config.

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := GetLogger()
			out := cmd.OutOrStdout()

			path, err := resolvedConfigPath()
			if err != nil {
				return fmt.Errorf("failed to determine config path: %w", err)
			}

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Fprintln(out, "Rescale Space Configuration Setup")
			fmt.Fprintln(out, "=================================")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Press Enter to keep the value in brackets.")
			fmt.Fprintln(out)

			p := &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: out}
			cfg := config.Default()

			fmt.Fprintln(out, "Items")
			fmt.Fprintln(out, "-----")
			cfg.ItemWidth = p.float("Item width", cfg.ItemWidth)
			cfg.ItemHeight = p.float("Item height", cfg.ItemHeight)
			cfg.ItemMargin = p.float("Item margin", cfg.ItemMargin)

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Rendering")
			fmt.Fprintln(out, "---------")
			cfg.RenderMargin = p.float("Render margin", cfg.RenderMargin)
			cfg.BatchSize = p.int("Batch size", cfg.BatchSize)
			cfg.RecycleThreshold = p.int("Idle handles kept per kind", cfg.RecycleThreshold)
			cfg.BinSize = p.float("Index bin size", cfg.BinSize)

			debugInput := strings.ToLower(p.ask("Log per-pass statistics? y/N", "n"))
			cfg.Debug = debugInput == "y" || debugInput == "yes"

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			logger.Info().Str("path", path).Msg("Configuration saved")

			fmt.Fprintln(out)
			fmt.Fprintf(out, "✓ Configuration saved to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

Values come from the configuration file over the built-in defaults;
--debug turns on per-pass logging regardless of the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path, err := resolvedConfigPath()
			if err != nil {
				return fmt.Errorf("failed to determine config path: %w", err)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			thresholds := make([]string, len(cfg.LODThresholds))
			for i, th := range cfg.LODThresholds {
				thresholds[i] = strconv.FormatFloat(th, 'g', -1, 64)
			}

			fmt.Fprintln(out, "Current Configuration")
			fmt.Fprintln(out, "=====================")
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Items:")
			fmt.Fprintf(out, "  Size:   %g x %g\n", cfg.ItemWidth, cfg.ItemHeight)
			fmt.Fprintf(out, "  Margin: %g\n", cfg.ItemMargin)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Rendering:")
			fmt.Fprintf(out, "  Render Margin:     %g\n", cfg.RenderMargin)
			fmt.Fprintf(out, "  Batch Size:        %d\n", cfg.BatchSize)
			fmt.Fprintf(out, "  Recycle Threshold: %d\n", cfg.RecycleThreshold)
			fmt.Fprintf(out, "  Pool Batch:        %d\n", cfg.PoolBatch)
			fmt.Fprintf(out, "  Scale Range:       %g .. %g\n", cfg.MinScale, cfg.MaxScale)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Level of Detail:")
			fmt.Fprintf(out, "  Thresholds: %s\n", strings.Join(thresholds, ", "))
			fmt.Fprintf(out, "  Distance:   %g\n", cfg.LODDistance)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Index:")
			fmt.Fprintf(out, "  Bin Size: %g\n", cfg.BinSize)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Debug:")
			fmt.Fprintf(out, "  Per-pass Logs: %t\n", cfg.Debug)
			fmt.Fprintf(out, "  Stats Events:  %t\n", cfg.CollectStats)
			fmt.Fprintln(out)

			fmt.Fprintf(out, "Configuration file: %s\n", path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist - using defaults)")
			}
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path, err := resolvedConfigPath()
			if err != nil {
				return fmt.Errorf("failed to determine config path: %w", err)
			}
			if cfgFile == "" {
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}
			fmt.Fprintf(out, "  %s\n", path)

			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist)")
			} else {
				fmt.Fprintln(out, "  (file exists)")
			}
			return nil
		},
	}

	return cmd
}
