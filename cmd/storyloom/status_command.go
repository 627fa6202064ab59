package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"storyloom/internal/preflight"
	"storyloom/internal/store"
)

type statusReport struct {
	Checks  []checkView    `json:"checks"`
	Stories map[string]int `json:"stories"`
	Total   int            `json:"total"`
}

type checkView struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration health and story counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}

			results := []preflight.Result{
				preflight.CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
				preflight.CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
				preflight.CheckDatabase(cmd.Context(), st),
			}
			if !offline {
				results = append(results, preflight.CheckGeneration(cmd.Context(), cfg))
			}

			counts, err := st.CountByStatus(cmd.Context())
			if err != nil {
				return err
			}
			report := statusReport{Stories: map[string]int{}}
			for _, status := range store.AllStatuses() {
				report.Stories[string(status)] = counts[status]
				report.Total += counts[status]
			}
			for _, r := range results {
				report.Checks = append(report.Checks, checkView{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
			}
			con := newConsole(cmd)
			if jsonOut {
				return con.json(report)
			}

			con.section("System")
			for _, r := range results {
				t := toneGood
				if !r.Passed {
					t = toneBad
				}
				con.check(r.Name, t, r.Detail)
			}
			if offline {
				con.check("Generation API", toneInfo, "Skipped (--offline)")
			}
			con.printf("\n")
			con.section("Stories")
			for _, status := range store.AllStatuses() {
				con.check(string(status), statusTone(status), strconv.Itoa(counts[status]))
			}
			con.printf("  %-*s %d\n", checkLabelWidth, "total:", report.Total)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the generation API check")
	return cmd
}
