// Package cli exposes the settlement engine as the settler command line.
// Every command except serve performs exactly one engine operation against
// the configured store and exits.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/speedrun-hq/speedrun-settler/pkg/config"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
)

// ValidFormats defines the allowed output formats
var ValidFormats = []string{"text", "json"}

// RootOptions holds global flags for all commands
type RootOptions struct {
	Format string
	Caller string

	// LoadConfig reads the configuration, config.LoadConfig when nil
	LoadConfig func() (*config.Config, error)
}

// NewRootCommand creates the root command for the settler CLI
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around existing options
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settler",
		Short: "Cross-chain intent settlement engine",
		Long: `Settler records cross-chain swap intents, prices them against the
price oracle and settles them, optionally burning wrapped tokens on the
EVM token factory so they can be released on the target chain.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Caller, "caller", "", "identity invoking the operation (defaults to OWNER_IDENTITY)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewIntentCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.LoadConfig == nil {
		return config.LoadConfig()
	}
	return o.LoadConfig()
}

// caller resolves the --caller flag, falling back to the configured owner
func (o *RootOptions) caller(cfg *config.Config) models.Identity {
	caller := models.Identity(o.Caller).Normalize()
	if caller.IsZero() {
		return cfg.OwnerIdentity
	}
	return caller
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Execute runs the settler command line and returns the process exit code
func Execute() int {
	opts := &RootOptions{LoadConfig: config.LoadConfig}
	cmd := NewRootCommandWithOptions(opts)
	if err := cmd.Execute(); err != nil {
		format := opts.Format
		if !isValidFormat(format) {
			format = "text"
		}
		out := &OutputFormatter{Format: format, Writer: cmd.ErrOrStderr()}
		_ = out.Error(err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
