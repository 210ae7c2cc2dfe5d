package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute runs the stageflow CLI until the command finishes or ctx is
// cancelled.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//
// Example:
//
//	func main() {
//	    ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	    defer cancel()
//	    if err := cli.Execute(ctx, cli.New(os.Stderr, cli.LogInfo)); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context, c *CLI) error {
	var verbose bool

	root := c.RootCommand()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := LogInfo
		if verbose {
			level = LogDebug
		}
		c.SetLogLevel(level)
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	}

	return root.ExecuteContext(ctx)
}
