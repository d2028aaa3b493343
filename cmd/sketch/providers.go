package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/sketch/pkg/cli"
	"mercator-hq/sketch/pkg/limits/ratelimit"
	"mercator-hq/sketch/pkg/registry"
	"mercator-hq/sketch/pkg/security/secrets"
)

// providerRow is one line of "sketch providers".
type providerRow struct {
	registry.Descriptor
	Status    ratelimit.Status `json:"status"`
	KeySource string           `json:"key_source,omitempty"`
}

type providerList []providerRow

func (l providerList) RenderText(w io.Writer) error {
	t := cli.NewTable(w, "ID", "NAME", "DEFAULT MODEL", "QUOTA", "REMAINING", "KEY")
	for _, p := range l {
		key := p.KeySource
		if key == "" {
			key = "-"
		}
		t.Row(p.ID, p.DisplayName, p.DefaultModel(),
			fmt.Sprintf("%d/%dm", p.Quota.MaxRequests, p.Quota.WindowMinutes),
			strconv.Itoa(p.Status.Remaining), key)
	}
	return t.Flush()
}

func newProvidersCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List providers, their models and remaining quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var out providerList
			for _, d := range a.registry.List() {
				out = append(out, providerRow{
					Descriptor: d,
					Status:     a.orchestrator.QuotaStatus(ctx, d.ID),
					KeySource:  a.secrets.Source(ctx, secrets.KeyName(d.ID)),
				})
			}
			return a.print(cmd.OutOrStdout(), out)
		},
	}
}

type quotaList []ratelimit.Status

func (l quotaList) RenderText(w io.Writer) error {
	t := cli.NewTable(w, "PROVIDER", "LIMIT", "REMAINING", "RESETS")
	for _, s := range l {
		t.Row(s.Provider, strconv.Itoa(s.Limit), strconv.Itoa(s.Remaining), resetText(s.ResetAt, time.Now()))
	}
	return t.Flush()
}

func resetText(at, now time.Time) string {
	if at.IsZero() || !now.Before(at) {
		return "-"
	}
	return "in " + at.Sub(now).Round(time.Second).String()
}

func newQuotaCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "quota [provider...]",
		Short: "Show remaining local quota",
		Long: `Show the requests left in each provider's current quota window and
when the window resets. With no arguments every provider is listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ids := args
			if len(ids) == 0 {
				ids = a.registry.IDs()
			}

			ctx := cmd.Context()
			out := make(quotaList, 0, len(ids))
			for _, id := range ids {
				id = strings.ToLower(strings.TrimSpace(id))
				if _, err := a.registry.Get(id); err != nil {
					return err
				}
				out = append(out, a.orchestrator.QuotaStatus(ctx, id))
			}
			return a.print(cmd.OutOrStdout(), out)
		},
	}
}
