package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlanCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [recipe...]",
		Short: "Print the ordered resources and guards without evaluating them",
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := loadPlan(sourceOptions{Recipes: args, RunList: root.runList})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), plan.String())
			return nil
		},
	}
}
