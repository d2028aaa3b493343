package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/sketch/pkg/cli"
	"mercator-hq/sketch/pkg/usage"
)

type ledgerView struct {
	usage.Ledger
}

func (v ledgerView) RenderText(w io.Writer) error {
	last := "never"
	if !v.LastUsedAt.IsZero() {
		last = v.LastUsedAt.Local().Format(time.RFC3339)
	}

	fmt.Fprintf(w, "Generations:    %d (%d succeeded, %d failed)\n", v.TotalGenerations, v.SuccessCount, v.FailureCount)
	fmt.Fprintf(w, "Tokens:         %d\n", v.TotalTokens)
	fmt.Fprintf(w, "Estimated cost: $%.4f\n", v.EstimatedCost)
	fmt.Fprintf(w, "Last used:      %s\n", last)

	if len(v.PerProvider) == 0 {
		return nil
	}

	ids := make([]string, 0, len(v.PerProvider))
	for id := range v.PerProvider {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintln(w)
	t := cli.NewTable(w, "PROVIDER", "COUNT", "LAST USED")
	for _, id := range ids {
		p := v.PerProvider[id]
		t.Row(id, strconv.Itoa(p.Count), p.LastUsedAt.Local().Format(time.RFC3339))
	}
	return t.Flush()
}

func newUsageCmd(global *globalFlags) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show the usage ledger",
		Long: `Show cumulative generation counts, tokens and estimated cost.

With --reset the ledger is zeroed. Quota windows are not affected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if reset {
				a.orchestrator.ResetLedger(ctx)
				if a.format == cli.FormatText {
					fmt.Fprintln(cmd.OutOrStdout(), "Usage ledger reset.")
					return nil
				}
			}
			return a.print(cmd.OutOrStdout(), ledgerView{a.orchestrator.LedgerSnapshot(ctx)})
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "zero the ledger")
	return cmd
}
