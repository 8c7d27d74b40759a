package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/speedrun-hq/speedrun-settler/pkg/chains"
	"github.com/speedrun-hq/speedrun-settler/pkg/models"
)

// NewConfigCommand creates the config command group. Every setter is owner only.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and change engine settings",
	}

	cmd.AddCommand(newConfigShowCommand(rootOpts))
	cmd.AddCommand(newSetterCommand(rootOpts, "set-oracle <address>", "Change the price oracle address",
		func(ctx context.Context, a *app, arg string, caller models.Identity) error {
			return a.engine.SetOracleAddress(ctx, arg, caller)
		}))
	cmd.AddCommand(newSetterCommand(rootOpts, "set-token-factory <address>", "Change the token factory contract address",
		func(ctx context.Context, a *app, arg string, caller models.Identity) error {
			return a.engine.SetTokenFactoryAddress(ctx, arg, caller)
		}))
	cmd.AddCommand(newSetterCommand(rootOpts, "set-slippage <bps>", "Change the slippage tolerance in basis points",
		func(ctx context.Context, a *app, arg string, caller models.Identity) error {
			bps, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid slippage", err)
			}
			return a.engine.SetSlippage(ctx, bps, caller)
		}))
	cmd.AddCommand(newSetterCommand(rootOpts, "set-bridge-fee <wei>", "Change the fee sent with every burn",
		func(ctx context.Context, a *app, arg string, caller models.Identity) error {
			fee, err := parseAmount("fee", arg)
			if err != nil {
				return err
			}
			return a.engine.SetBridgeFee(ctx, fee, caller)
		}))
	cmd.AddCommand(newSetterCommand(rootOpts, "set-target-chain <chain-id>", "Change the EVM chain burned tokens are released on",
		func(ctx context.Context, a *app, arg string, caller models.Identity) error {
			chainID, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid chain id", err)
			}
			return a.engine.SetTargetChainID(ctx, chainID, caller)
		}))
	cmd.AddCommand(newSetterCommand(rootOpts, "set-strict <true|false>", "Enable or disable strict status transitions",
		func(ctx context.Context, a *app, arg string, caller models.Identity) error {
			strict, err := strconv.ParseBool(arg)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid strict flag", err)
			}
			return a.engine.SetStrictTransitions(ctx, strict, caller)
		}))
	cmd.AddCommand(newSetterCommand(rootOpts, "transfer-ownership <identity>", "Hand the owner role to another identity",
		func(ctx context.Context, a *app, arg string, caller models.Identity) error {
			return a.engine.TransferOwnership(ctx, models.Identity(arg), caller)
		}))

	return cmd
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the engine settings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app, out *OutputFormatter) error {
				settings, err := a.engine.Settings(ctx)
				if err != nil {
					return err
				}
				return out.Success(settings, func(w io.Writer) {
					printSettings(w, settings)
				})
			})
		},
	}
}

// newSetterCommand builds a single argument command that applies set and prints the new settings
func newSetterCommand(rootOpts *RootOptions, use, short string, set func(ctx context.Context, a *app, arg string, caller models.Identity) error) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := set(ctx, a, args[0], rootOpts.caller(a.cfg)); err != nil {
					return err
				}
				settings, err := a.engine.Settings(ctx)
				if err != nil {
					return err
				}
				return out.Success(settings, func(w io.Writer) {
					printSettings(w, settings)
				})
			})
		},
	}
}

func printSettings(w io.Writer, s *models.Settings) {
	factory := s.TokenFactoryAddress
	if factory == "" {
		factory = "(not set)"
	}
	fmt.Fprintf(w, "Owner:              %s\n", s.Owner)
	fmt.Fprintf(w, "Oracle:             %s\n", s.OracleAddress)
	fmt.Fprintf(w, "Token factory:      %s\n", factory)
	fmt.Fprintf(w, "Slippage:           %d bps\n", s.SlippageBps)
	fmt.Fprintf(w, "Bridge fee:         %s wei\n", s.BridgeFee)
	fmt.Fprintf(w, "Target chain:       %s\n", chains.Describe(s.TargetChainID))
	fmt.Fprintf(w, "Strict transitions: %t\n", s.StrictTransitions)
	fmt.Fprintf(w, "Total intents:      %d\n", s.TotalIntents())
}
