package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-entity-manager/internal/history"
	"github.com/nerrad567/gray-logic-entity-manager/internal/references"
	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
)

// historyPageSize is the largest page the history repository returns.
const historyPageSize = 200

type rewriteOptions struct {
	dir     string
	runID   string
	from    []string
	to      []string
	mapFile string
	dryRun  bool
	json    bool
}

func newRewriteRefsCmd(g *globalOptions) *cobra.Command {
	var o rewriteOptions

	cmd := &cobra.Command{
		Use:   "rewrite-refs",
		Short: "Rewrite renamed entity IDs inside YAML configuration",
		Long: `Rewrite-refs replaces old entity IDs with new ones in every .yaml and .yml
file below --dir. Hidden directories such as .storage are skipped.

The replacements come from the renames recorded for a run (--run-id), from
a YAML map of old to new IDs (--map), or from paired --from/--to flags.
Sources can be combined.

Files are re-encoded, so comments and formatting in a rewritten file are
normalised. Use --dry-run first and keep a backup.

Usage:
  entitymanager rewrite-refs --dir /config --run-id 6f1c... --dry-run
  entitymanager rewrite-refs --dir /config --from light.kitchen_1 --to light.kitchen_ceiling_light`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(o.from) != len(o.to) {
				return fmt.Errorf("--from and --to must be given the same number of times")
			}

			mapping := make(map[string]string)
			for i := range o.from {
				mapping[o.from[i]] = o.to[i]
			}
			if o.mapFile != "" {
				if err := loadMapping(o.mapFile, mapping); err != nil {
					return err
				}
			}
			if o.runID != "" {
				if err := loadRunMapping(cmd, g, o.runID, mapping); err != nil {
					return err
				}
			}

			rw := references.NewRewriter(mapping)
			if rw.Len() == 0 {
				return fmt.Errorf("no renames to apply: give --run-id, --map or --from/--to")
			}

			report, err := rw.RewriteTree(o.dir, o.dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if o.json {
				return printJSON(out, report)
			}

			tw := newTable(out)
			fmt.Fprintln(tw, "FILE\tREPLACEMENTS\tERROR")
			for _, f := range report.Files {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", f.Path, f.Replacements, f.Error)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			verb := "replaced"
			if report.DryRun {
				verb = "would replace"
			}
			fmt.Fprintf(out, "\n%s %d references to %d identifiers\n", verb, report.Replacements, rw.Len())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.dir, "dir", ".", "Home Assistant configuration directory")
	f.StringVar(&o.runID, "run-id", "", "Use the renames recorded for this apply run")
	f.StringSliceVar(&o.from, "from", nil, "Old entity ID (pair with --to, repeatable)")
	f.StringSliceVar(&o.to, "to", nil, "New entity ID (pair with --from, repeatable)")
	f.StringVar(&o.mapFile, "map", "", "YAML file mapping old entity IDs to new ones")
	f.BoolVar(&o.dryRun, "dry-run", false, "Count replacements without writing files")
	f.BoolVar(&o.json, "json", false, "Print the report as JSON")
	return cmd
}

func loadMapping(path string, into map[string]string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return fmt.Errorf("reading rename map: %w", err)
	}
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parsing rename map %s: %w", path, err)
	}
	for oldID, newID := range m {
		into[oldID] = newID
	}
	return nil
}

func loadRunMapping(cmd *cobra.Command, g *globalOptions, runID string, into map[string]string) error {
	a, err := openLocal(cmd, g)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := renamesForRun(cmd.Context(), a.history, runID, into)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s has no recorded renames", runID)
	}
	return nil
}

// renamesForRun adds the successful renames of a run to into and returns
// how many it found.
func renamesForRun(ctx context.Context, repo history.Repository, runID string, into map[string]string) (int, error) {
	found := 0
	for offset := 0; ; offset += historyPageSize {
		page, err := repo.List(ctx, history.Filter{
			RunID:   runID,
			Outcome: string(review.OutcomeProcessed),
			Limit:   historyPageSize,
			Offset:  offset,
		})
		if err != nil {
			return found, fmt.Errorf("listing history for run %s: %w", runID, err)
		}
		for _, e := range page.Entries {
			if e.Changed {
				into[e.OldID] = e.NewID
				found++
			}
		}
		if len(page.Entries) < historyPageSize || offset+len(page.Entries) >= page.Total {
			return found, nil
		}
	}
}
