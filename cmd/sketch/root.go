package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mercator-hq/sketch/pkg/cli"
)

// DefaultEnvFile is loaded when present and --env-file is not given.
const DefaultEnvFile = ".env"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
	logLevel   string
	output     string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "sketch",
		Short: "Sketch - multi-provider diagram generation",
		Long: `Sketch turns natural-language prompts into Mermaid diagrams using OpenAI,
Anthropic, Gemini, OpenRouter, Mistral or Groq.

Each provider has a local request quota that is enforced before any network
call, and every generation attempt is recorded in a persistent usage ledger.
API keys are read from the environment (OPENAI_API_KEY, ...), from a .env
file, or from a secrets directory.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cli.ParseFormat(flags.output); err != nil {
				return err
			}
			return loadEnvFile(flags.envFile, cmd.Flags().Changed("env-file"))
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "config file path (default: built-in defaults)")
	pf.StringVar(&flags.envFile, "env-file", DefaultEnvFile, "dotenv file with provider keys")
	pf.StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	pf.StringVarP(&flags.output, "output", "o", "text", "output format: text, json")

	cmd.AddCommand(
		newGenerateCmd(flags),
		newProvidersCmd(flags),
		newQuotaCmd(flags),
		newUsageCmd(flags),
		newKeysCmd(flags),
		newServeCmd(flags),
		newVersionCmd(),
	)

	return cmd
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing default file is ignored.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return cli.NewConfigError("env-file", fmt.Sprintf("failed to load %s: %v", path, err))
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}
