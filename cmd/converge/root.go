package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose  bool
	dryRun   bool
	jsonLogs bool
	runList  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "converge",
		Short:         "converge brings hosts to the state declared in recipes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Preview execution without making changes")
	cmd.PersistentFlags().BoolVar(&flags.jsonLogs, "json-logs", false, "Emit structured JSON logs")
	cmd.PersistentFlags().StringVarP(&flags.runList, "runlist", "r", "", "Run-list file naming recipes in order")

	cmd.AddCommand(newApplyCmd(flags))
	cmd.AddCommand(newVerifyCmd(flags))
	cmd.AddCommand(newPlanCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
