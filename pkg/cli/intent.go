package cli

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/speedrun-hq/speedrun-settler/pkg/models"
	"github.com/speedrun-hq/speedrun-settler/pkg/settler"
)

// DefaultListLimit caps intent list output
const DefaultListLimit = 50

// NewIntentCommand creates the intent command group
func NewIntentCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intent",
		Short: "Create, price, execute and inspect intents",
	}

	cmd.AddCommand(newIntentCreateCommand(rootOpts))
	cmd.AddCommand(newIntentPriceCommand(rootOpts))
	cmd.AddCommand(newIntentExecuteCommand(rootOpts))
	cmd.AddCommand(newIntentBurnCommand(rootOpts))
	cmd.AddCommand(newIntentCompleteCommand(rootOpts))
	cmd.AddCommand(newIntentShowCommand(rootOpts))
	cmd.AddCommand(newIntentListCommand(rootOpts))
	cmd.AddCommand(newIntentCountCommand(rootOpts))

	return cmd
}

type intentCreateOptions struct {
	SourceChain string
	DestChain   string
	TokenIn     string
	TokenOut    string
	Amount      string
}

func newIntentCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &intentCreateOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a new intent owned by the caller",
		Long: `Record a new intent owned by the caller. Amounts are integers in the
smallest unit of the input token.

Example:
  settler intent create --caller alice --source-chain casper --dest-chain ethereum \
    --token-in WBTC --token-out WETH --amount 100000000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount("amount", opts.Amount)
			if err != nil {
				return err
			}

			return withApp(cmd, rootOpts, func(ctx context.Context, a *app, out *OutputFormatter) error {
				id, err := a.engine.CreateIntent(ctx, settler.CreateIntentRequest{
					SourceChain: opts.SourceChain,
					DestChain:   opts.DestChain,
					TokenIn:     opts.TokenIn,
					TokenOut:    opts.TokenOut,
					AmountIn:    amount,
				}, rootOpts.caller(a.cfg))
				if err != nil {
					return err
				}
				return out.Success(map[string]uint64{"intent_id": id}, func(w io.Writer) {
					fmt.Fprintf(w, "Created intent %d\n", id)
				})
			})
		},
	}

	cmd.Flags().StringVar(&opts.SourceChain, "source-chain", "", "chain the input token is held on")
	cmd.Flags().StringVar(&opts.DestChain, "dest-chain", "", "chain the output token is delivered on")
	cmd.Flags().StringVar(&opts.TokenIn, "token-in", "", "input token symbol")
	cmd.Flags().StringVar(&opts.TokenOut, "token-out", "", "output token symbol")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "input amount in base units")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// quoteView is the printable result of pricing an intent
type quoteView struct {
	IntentID     uint64   `json:"intent_id"`
	ValueUSD     *big.Int `json:"value_usd"`
	ExpectedOut  *big.Int `json:"expected_out"`
	MinAmountOut *big.Int `json:"min_amount_out"`
}

func newIntentPriceCommand(rootOpts *RootOptions) *cobra.Command {
	var priceIn, priceOut string

	cmd := &cobra.Command{
		Use:   "price <intent-id>",
		Short: "Record oracle prices for an intent and compute its minimum output",
		Long: `Record the USD prices of both tokens, scaled by 1e8, and compute the
minimum output amount after slippage.

Example:
  settler intent price 1 --price-in 6000000000000 --price-out 300000000000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parseAmount("price-in", priceIn)
			if err != nil {
				return err
			}
			out, err := parseAmount("price-out", priceOut)
			if err != nil {
				return err
			}

			return withApp(cmd, rootOpts, func(ctx context.Context, a *app, f *OutputFormatter) error {
				id, err := settler.ParseIntentID(settler.OpSetIntentPrices, args[0])
				if err != nil {
					return err
				}
				quote, err := a.engine.SetIntentPrices(ctx, id, in, out, rootOpts.caller(a.cfg))
				if err != nil {
					return err
				}

				view := quoteView{
					IntentID:     id,
					ValueUSD:     quote.ValueUSD,
					ExpectedOut:  quote.ExpectedOut,
					MinAmountOut: quote.MinAmountOut,
				}
				return f.Success(view, func(w io.Writer) {
					fmt.Fprintf(w, "Priced intent %d: expected out %s, min amount out %s\n",
						id, quote.ExpectedOut, quote.MinAmountOut)
				})
			})
		},
	}

	cmd.Flags().StringVar(&priceIn, "price-in", "", "input token USD price scaled by 1e8")
	cmd.Flags().StringVar(&priceOut, "price-out", "", "output token USD price scaled by 1e8")
	_ = cmd.MarkFlagRequired("price-in")
	_ = cmd.MarkFlagRequired("price-out")

	return cmd
}

func newIntentExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	var recipient string

	cmd := &cobra.Command{
		Use:           "execute <intent-id>",
		Short:         "Mark an intent executing and notify relayers without burning",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.engine.ExecuteIntent(ctx, args[0], recipient, rootOpts.caller(a.cfg)); err != nil {
					return err
				}
				return showIntent(ctx, a, out, args[0], "Intent %s executing\n")
			})
		},
	}

	cmd.Flags().StringVar(&recipient, "recipient", "", "EVM address receiving the output")
	_ = cmd.MarkFlagRequired("recipient")

	return cmd
}

// burnView is the printable result of an execution with burn
type burnView struct {
	IntentID string `json:"intent_id"`
	TxHash   string `json:"tx_hash"`
}

func newIntentBurnCommand(rootOpts *RootOptions) *cobra.Command {
	var token, recipient string

	cmd := &cobra.Command{
		Use:   "burn <intent-id>",
		Short: "Mark an intent executing and burn its input through the token factory",
		Long: `Mark an intent executing and burn its input amount through the token
factory. The intent stays untouched if the burn fails.

Example:
  settler intent burn 1 --token 0x... --recipient 0x742d35Cc6634C0532925a3b844Bc454e4438f44e`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app, out *OutputFormatter) error {
				receipt, err := a.engine.ExecuteIntentWithBurn(ctx, args[0], token, recipient, rootOpts.caller(a.cfg))
				if err != nil {
					return err
				}
				view := burnView{IntentID: args[0], TxHash: receipt.TxHash.Hex()}
				return out.Success(view, func(w io.Writer) {
					fmt.Fprintf(w, "Intent %s executing, burn tx %s\n", view.IntentID, view.TxHash)
				})
			})
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "wrapped token address to burn")
	cmd.Flags().StringVar(&recipient, "recipient", "", "EVM address receiving the released tokens")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("recipient")

	return cmd
}

func newIntentCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "complete <intent-id>",
		Short:         "Mark an executing intent completed",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app, out *OutputFormatter) error {
				id, err := settler.ParseIntentID(settler.OpCompleteIntent, args[0])
				if err != nil {
					return err
				}
				if err := a.engine.CompleteIntent(ctx, id, rootOpts.caller(a.cfg)); err != nil {
					return err
				}
				return showIntent(ctx, a, out, args[0], "Intent %s completed\n")
			})
		},
	}
}

func newIntentShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <intent-id>",
		Short:         "Print a stored intent",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app, out *OutputFormatter) error {
				return showIntent(ctx, a, out, args[0], "")
			})
		},
	}
}

func newIntentListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List intents in ascending id order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *models.Status
			if status != "" {
				parsed, err := models.ParseStatus(status)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --status", err)
				}
				filter = &parsed
			}

			return withApp(cmd, rootOpts, func(ctx context.Context, a *app, out *OutputFormatter) error {
				intents, err := a.engine.ListIntents(ctx, filter, limit)
				if err != nil {
					return err
				}
				return out.Render(intents, func(w io.Writer) error {
					return renderIntents(w, intents)
				})
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only list intents in this state (created|priced|executing|completed)")
	cmd.Flags().IntVar(&limit, "limit", DefaultListLimit, "maximum number of intents, 0 for all")

	return cmd
}

func newIntentCountCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "count",
		Short:         "Print the number of intents ever created",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app, out *OutputFormatter) error {
				total, err := a.engine.GetTotalIntents(ctx)
				if err != nil {
					return err
				}
				return out.Success(map[string]uint64{"total_intents": total}, func(w io.Writer) {
					fmt.Fprintln(w, total)
				})
			})
		},
	}
}

// showIntent prints the intent, prefixed by header in text mode when set
func showIntent(ctx context.Context, a *app, out *OutputFormatter, idArg, header string) error {
	id, err := settler.ParseIntentID(settler.OpGetIntent, idArg)
	if err != nil {
		return err
	}
	intent, err := a.engine.GetIntent(ctx, id)
	if err != nil {
		return err
	}
	return out.Success(intent, func(w io.Writer) {
		if header != "" {
			fmt.Fprintf(w, header, idArg)
		}
		printIntent(w, intent)
	})
}

func printIntent(w io.Writer, intent *models.Intent) {
	fmt.Fprintf(w, "ID:             %d\n", intent.ID)
	fmt.Fprintf(w, "User:           %s\n", intent.User)
	fmt.Fprintf(w, "Route:          %s -> %s\n", intent.SourceChain, intent.DestChain)
	fmt.Fprintf(w, "Pair:           %s -> %s\n", intent.TokenIn, intent.TokenOut)
	fmt.Fprintf(w, "Amount in:      %s\n", intent.AmountIn)
	fmt.Fprintf(w, "Min amount out: %s\n", intent.MinAmountOut)
	fmt.Fprintf(w, "Prices:         %s / %s\n", intent.PriceIn, intent.PriceOut)
	fmt.Fprintf(w, "Timestamp:      %d\n", intent.Timestamp)
	fmt.Fprintf(w, "Status:         %s\n", intent.Status)
}

func renderIntents(w io.Writer, intents []*models.Intent) error {
	if len(intents) == 0 {
		_, err := fmt.Fprintln(w, "No intents found")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "User", "Route", "Pair", "Amount In", "Min Out", "Status")
	for _, intent := range intents {
		err := table.Append([]string{
			fmt.Sprintf("%d", intent.ID),
			intent.User.String(),
			intent.SourceChain + " -> " + intent.DestChain,
			intent.TokenIn + " -> " + intent.TokenOut,
			intent.AmountIn.String(),
			intent.MinAmountOut.String(),
			strings.ToUpper(intent.Status.String()),
		})
		if err != nil {
			return fmt.Errorf("failed to add intent %d to table: %w", intent.ID, err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render intents: %w", err)
	}
	return nil
}

// parseAmount reads a base-10 integer flag; range checks are left to the engine
func parseAmount(flag, value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("invalid --%s value %q: must be an integer", flag, value)}
	}
	return amount, nil
}
