package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"storyloom/internal/services"
	"storyloom/internal/store"
	"storyloom/internal/textutil"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored stories, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseStatuses(statuses)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			stories, err := st.ListStories(cmd.Context(), limit, filters...)
			if err != nil {
				return err
			}
			con := newConsole(cmd)
			if jsonOut {
				views := make([]storyView, 0, len(stories))
				for _, story := range stories {
					views = append(views, newStoryView(story))
				}
				return con.json(views)
			}
			if len(stories) == 0 {
				con.printf("No stories found\n")
				return nil
			}
			con.table(storyColumns, storyRows(con, stories))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (draft, generating, completed, failed, archived)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of stories (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func parseStatuses(values []string) ([]store.Status, error) {
	var out []store.Status
	for _, value := range values {
		status, ok := store.ParseStatus(strings.ToLower(strings.TrimSpace(value)))
		if !ok {
			return nil, fmt.Errorf("unknown status %q", value)
		}
		out = append(out, status)
	}
	return out, nil
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var full bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a story with its pages and assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			story, err := st.FindStory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if story == nil {
				return services.Wrap(services.ErrNotFound, "cli", "show", fmt.Sprintf("story %q not found", args[0]), nil)
			}
			graph, err := st.LoadGraph(cmd.Context(), story.ID)
			if err != nil {
				return err
			}
			if graph == nil {
				return services.Wrap(services.ErrNotFound, "cli", "show", fmt.Sprintf("story %q not found", args[0]), nil)
			}
			con := newConsole(cmd)
			if jsonOut {
				return con.json(newGraphView(graph))
			}
			renderGraph(con, graph, full)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&full, "full", false, "Print full page text instead of a preview")
	return cmd
}

var pageColumns = []column{{title: "Page", numeric: true}, {title: "Text"}, {title: "Image"}, {title: "Audio"}}

func renderGraph(con *console, graph *store.Graph, full bool) {
	story := graph.Story
	con.section(textutil.FirstNonEmpty(story.Title, story.Topic))
	con.printf("ID:        %s\n", story.ID)
	con.printf("Status:    %s\n", con.status(story.Status))
	con.printf("Topic:     %s (age %s)\n", story.Topic, formatAge(story.TargetAge))
	if story.StructureMode != "" {
		con.printf("Structure: %s after %d refinement(s)\n", story.StructureMode, story.RefineIterations)
	}
	if story.FailureKind != "" {
		con.printf("Failure:   %s: %s\n", story.FailureKind, story.FailureReason)
	}
	if len(graph.Pages) == 0 {
		con.printf("No pages\n")
		return
	}

	rows := make([][]string, 0, len(graph.Pages))
	for _, page := range graph.Pages {
		text := page.Page.Text
		if !full {
			text = textutil.Truncate(text, 50, "...")
		}
		rows = append(rows, []string{
			strconv.Itoa(page.Page.Index + 1),
			text,
			assetCell(page, store.AssetKindImage),
			assetCell(page, store.AssetKindAudio),
		})
	}
	con.table(pageColumns, rows)
}

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a completed or failed story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.managementOrchestrator()
			if err != nil {
				return err
			}
			story, err := orch.Archive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Story %s archived\n", shortID(story.ID))
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a story, its pages and its asset files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := ctx.managementOrchestrator()
			if err != nil {
				return err
			}
			if err := orch.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Story %s deleted\n", args[0])
			return nil
		},
	}
}
