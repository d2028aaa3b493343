package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/sketch/pkg/cli"
	"mercator-hq/sketch/pkg/orchestrator"
	"mercator-hq/sketch/pkg/security/secrets"
)

type generateFlags struct {
	provider string
	model    string
	key      string
}

func newGenerateCmd(global *globalFlags) *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate a Mermaid diagram from a prompt",
		Long: `Generate a Mermaid diagram from a natural-language prompt.

The prompt is taken from the arguments, or read from stdin when no
arguments are given or the only argument is "-". The diagram source is
printed to stdout with any markdown fences removed.

Examples:
  sketch generate --provider openai "checkout flow with payment retry"
  sketch generate -p anthropic -m claude-sonnet-4-20250514 "ER model for a blog"
  echo "CI pipeline stages" | sketch generate -p groq -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, global, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.provider, "provider", "p", "openai", "provider id")
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "model id (default: the provider's first model)")
	cmd.Flags().StringVar(&flags.key, "key", "", "API key (default: from the environment or secrets dir)")

	return cmd
}

func runGenerate(cmd *cobra.Command, global *globalFlags, flags *generateFlags, args []string) error {
	prompt, err := readPrompt(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	a, err := newApp(global, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	secret := flags.key
	if secret == "" {
		secret, err = a.secrets.ProviderKey(ctx, flags.provider)
		if err != nil && !errors.Is(err, secrets.ErrNotFound) {
			return cli.NewCommandError("generate", err)
		}
	}

	res := a.orchestrator.Generate(ctx, orchestrator.Request{
		Prompt:     prompt,
		ProviderID: flags.provider,
		ModelID:    flags.model,
		Secret:     secret,
	})

	if a.format == cli.FormatJSON {
		if err := a.print(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	}

	if !res.OK() {
		return &cli.GenerationError{
			Provider: res.Failure.Provider,
			Kind:     string(res.Failure.Kind),
			Message:  res.Failure.Message,
		}
	}

	if res.IsEmpty() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s returned no diagram text\n", res.Success.Provider)
	}
	if a.format == cli.FormatText {
		fmt.Fprintln(cmd.OutOrStdout(), res.Success.DiagramText)
	}
	return nil
}

func readPrompt(stdin io.Reader, args []string) (string, error) {
	var prompt string
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
		}
		prompt = string(data)
	} else {
		prompt = strings.Join(args, " ")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt is empty")
	}
	return prompt, nil
}
