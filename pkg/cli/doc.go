/*
Package cli provides helpers shared by the sketch commands.

Results print as text or indented JSON:

	format, err := cli.ParseFormat(flagValue)
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
		return err
	}

Types implementing TextRenderer control their own text form, typically
through a Table:

	t := cli.NewTable(w, "PROVIDER", "REMAINING")
	t.Row("openai", "10")
	t.Flush()

Concurrent checks report on one line with Progress, and ExitCode maps a
command error, including a GenerationError, to the process exit status.
*/
package cli
