package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// InitOptions holds flags for the init command
type InitOptions struct {
	*RootOptions
	Oracle       string
	TokenFactory string
}

// NewInitCommand creates the init command
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the settlement engine with the caller as owner",
		Long: `Initialize the settlement engine. The caller becomes the owner and the
only identity allowed to change settings. Initialization can happen once.

Example:
  settler init --caller account-hash-owner --oracle hash-oracle`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app, out *OutputFormatter) error {
				oracleAddress := opts.Oracle
				if oracleAddress == "" {
					oracleAddress = a.cfg.OracleAddress
				}
				factory := opts.TokenFactory
				if factory == "" {
					factory = a.cfg.TokenFactory.Address
				}

				caller := rootOpts.caller(a.cfg)
				if err := a.engine.Initialize(ctx, caller, oracleAddress, factory); err != nil {
					return err
				}

				settings, err := a.engine.Settings(ctx)
				if err != nil {
					return err
				}
				return out.Success(settings, func(w io.Writer) {
					fmt.Fprintf(w, "Initialized settler, owner %s\n", settings.Owner)
					printSettings(w, settings)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.Oracle, "oracle", "", "price oracle address (defaults to ORACLE_ADDRESS)")
	cmd.Flags().StringVar(&opts.TokenFactory, "token-factory", "", "token factory contract address (defaults to TOKEN_FACTORY_ADDRESS)")

	return cmd
}

// withApp opens the app for the duration of a one-shot command
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app, out *OutputFormatter) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, opts, cmd.ErrOrStderr(), nil)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a, &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()})
}
