package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(ctx *commandContext) *cobra.Command {
	root := &cobra.Command{
		Use:   "storyloom",
		Short: "Generate illustrated children's stories",
		Long: "storyloom drafts a story for a topic and reader age, refines it until a critic\n" +
			"approves, splits it into pages and renders an illustration and narration per page.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
	}
	root.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")

	root.AddGroup(
		&cobra.Group{ID: "stories", Title: "Story commands:"},
		&cobra.Group{ID: "system", Title: "System commands:"},
	)
	for _, cmd := range []*cobra.Command{
		newGenerateCommand(ctx),
		newRetryCommand(ctx),
		newListCommand(ctx),
		newShowCommand(ctx),
		newArchiveCommand(ctx),
		newDeleteCommand(ctx),
	} {
		cmd.GroupID = "stories"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newStatusCommand(ctx), newConfigCommand(ctx)} {
		cmd.GroupID = "system"
		root.AddCommand(cmd)
	}
	return root
}
