package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"storyloom/internal/store"
	"storyloom/internal/workflow"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var age float64
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "Write, illustrate and narrate a new story",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			topic := strings.Join(args, " ")
			story, runErr := orch.Run(cmd.Context(), workflow.Request{Topic: topic, Age: age})
			if story == nil {
				return runErr
			}
			if err := reportStory(cmd, ctx, story, jsonOut); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().Float64VarP(&age, "age", "a", 6, "Target reader age in years")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Resume a failed story",
		Long: "Resume a failed story. Stories that never reached pages are regenerated\n" +
			"from scratch; otherwise only missing images and narration are produced.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			story, runErr := orch.Retry(cmd.Context(), args[0])
			if story == nil {
				return runErr
			}
			if err := reportStory(cmd, ctx, story, jsonOut); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// reportStory prints the outcome of a generation run. It still runs after an
// interrupt, so the failure summary and retry hint reach the user.
func reportStory(cmd *cobra.Command, ctx *commandContext, story *store.Story, jsonOut bool) error {
	st, err := ctx.openStore()
	if err != nil {
		return err
	}
	graph, err := st.LoadGraph(context.WithoutCancel(cmd.Context()), story.ID)
	if err != nil {
		return err
	}
	if graph == nil {
		graph = &store.Graph{Story: story}
	}
	con := newConsole(cmd)
	if jsonOut {
		return con.json(newGraphView(graph))
	}

	ready, failed := graph.AssetCounts()
	con.printf("Story %s: %s\n", shortID(story.ID), con.status(graph.Story.Status))
	if graph.Story.Title != "" {
		con.printf("Title:   %s\n", graph.Story.Title)
	}
	con.printf("Pages:   %d\n", len(graph.Pages))
	con.printf("Assets:  %d ready, %d failed\n", ready, failed)
	if graph.Story.Status == store.StatusFailed {
		con.printf("Failure: %s: %s\n", graph.Story.FailureKind, graph.Story.FailureReason)
		con.printf("Run 'storyloom retry %s' to resume.\n", shortID(story.ID))
	}
	return nil
}
