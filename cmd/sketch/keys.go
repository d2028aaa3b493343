package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/sketch/pkg/cli"
	"mercator-hq/sketch/pkg/security/secrets"
)

// Key check outcomes.
const (
	keyOK      = "ok"
	keyMissing = "missing"
	keyInvalid = "invalid"
	keyError   = "error"
)

type keyStatus struct {
	Provider string `json:"provider"`
	Status   string `json:"status"`
	Source   string `json:"source,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

type keyReport []keyStatus

func (r keyReport) RenderText(w io.Writer) error {
	t := cli.NewTable(w, "PROVIDER", "STATUS", "SOURCE", "DETAIL")
	for _, k := range r {
		source := k.Source
		if source == "" {
			source = "-"
		}
		t.Row(k.Provider, k.Status, source, k.Detail)
	}
	return t.Flush()
}

// failed reports whether any configured key is malformed or unreadable.
// Missing keys are not failures.
func (r keyReport) failed() bool {
	for _, k := range r {
		if k.Status == keyInvalid || k.Status == keyError {
			return true
		}
	}
	return false
}

func newKeysCmd(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect provider API keys",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Check which provider keys are set and well-formed",
		Long: `Resolve every provider's API key from the environment, the .env file and
the secrets directory, and check it has the provider's key prefix. No
request is sent to any provider. Exits non-zero when a key is present but
malformed or unreadable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := checkKeys(cmd, a)
			if err != nil {
				return err
			}
			if err := a.print(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.failed() {
				return errors.New("one or more provider keys are invalid")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List key names visible to the configured secret sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(global, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.secrets.ListSecrets(cmd.Context())
			if err != nil {
				return err
			}
			if a.format == cli.FormatJSON {
				return a.print(cmd.OutOrStdout(), names)
			}
			t := cli.NewTable(cmd.OutOrStdout(), "NAME")
			for _, n := range names {
				t.Row(n)
			}
			return t.Flush()
		},
	})

	return cmd
}

// checkKeys resolves every provider's key concurrently.
func checkKeys(cmd *cobra.Command, a *app) (keyReport, error) {
	ids := a.registry.IDs()
	report := make(keyReport, len(ids))

	progress := cli.NewProgress(cmd.ErrOrStderr(), "checking keys", a.format == cli.FormatText)
	progress.Start(len(ids))
	defer progress.Finish()

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(4)

	for i, id := range ids {
		g.Go(func() error {
			status := keyStatus{Provider: id}

			key, err := a.secrets.ProviderKey(ctx, id)
			switch {
			case errors.Is(err, secrets.ErrNotFound):
				status.Status = keyMissing
			case err != nil:
				if ctx.Err() != nil {
					return ctx.Err()
				}
				status.Status = keyError
				status.Detail = err.Error()
			default:
				status.Source = a.secrets.Source(ctx, secrets.KeyName(id))
				if err := a.registry.ValidateKey(id, key); err != nil {
					status.Status = keyInvalid
					status.Detail = err.Error()
				} else {
					status.Status = keyOK
				}
			}

			report[i] = status
			progress.Done(status.Status != keyInvalid && status.Status != keyError)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}
