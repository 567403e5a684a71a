package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
)

type analyzeOptions struct {
	skipReviewed bool
	showReviewed bool
	limit        int
	entities     []string
	json         bool
}

func newAnalyzeCmd(g *globalOptions) *cobra.Command {
	var o analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show the canonical identifier for each entity",
		Long: `Analyze resolves every entity (or those named with --entity) and prints
its current identifier next to the proposed one. Nothing is changed.

Usage:
  entitymanager analyze
  entitymanager analyze --skip-reviewed --limit 20
  entitymanager analyze --entity light.kitchen_1 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), g, appOptions{logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.Close()

			analysis, err := a.svc.AnalyzeEntities(cmd.Context(), review.AnalyzeOptions{
				SkipReviewed: o.skipReviewed,
				ShowReviewed: o.showReviewed,
				Limit:        o.limit,
				Identifiers:  o.entities,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if o.json {
				return printJSON(out, analysis)
			}

			tw := newTable(out)
			fmt.Fprintln(tw, "CURRENT\tPROPOSED\tFRIENDLY NAME\tREVIEWED")
			for _, p := range analysis.Proposals {
				proposed := p.NewID
				if !p.Changed() {
					proposed = "(unchanged)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.OldID, proposed, p.FriendlyName, yesNo(p.Reviewed))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d entities, %d to rename\n", analysis.Len(), len(analysis.Changed()))
			for _, id := range analysis.Missing {
				fmt.Fprintf(out, "not found: %s\n", id)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&o.skipReviewed, "skip-reviewed", false, "Leave out entities already marked reviewed")
	f.BoolVar(&o.showReviewed, "show-reviewed", false, "Only include entities already marked reviewed")
	f.IntVar(&o.limit, "limit", 0, "Stop after this many entities (0 for no limit)")
	f.StringSliceVar(&o.entities, "entity", nil, "Only analyse these entity IDs (repeatable)")
	f.BoolVar(&o.json, "json", false, "Print the analysis as JSON")
	cmd.MarkFlagsMutuallyExclusive("skip-reviewed", "show-reviewed")
	return cmd
}
