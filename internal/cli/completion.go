package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCommand creates the shell completion command.
func (c *CLI) completionCommand() *cobra.Command {
	var noDesc bool

	cmd := &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for your shell and load it.

  bash:        source <(stageflow completion bash)
  zsh:         stageflow completion zsh > "${fpath[1]}/_stageflow"
  fish:        stageflow completion fish | source
  powershell:  stageflow completion powershell | Out-String | Invoke-Expression

Workflow ids complete from the configured catalog.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), os.Stdout
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, !noDesc)
			case "zsh":
				if noDesc {
					return root.GenZshCompletionNoDesc(out)
				}
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, !noDesc)
			default:
				if noDesc {
					return root.GenPowerShellCompletion(out)
				}
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}

	cmd.Flags().BoolVar(&noDesc, "no-descriptions", false, "omit completion descriptions")
	return cmd
}

// completeWorkflowIDs offers the ids of the configured catalog.
func (c *CLI) completeWorkflowIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}
	p, _, err := cfg.Catalog.Open()
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}
	list, err := p.List(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveDefault
	}
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID+"\t"+s.Title)
	}
	// Files stay completable since workflow files are accepted too.
	return ids, cobra.ShellCompDirectiveDefault
}
