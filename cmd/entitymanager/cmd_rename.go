package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-entity-manager/internal/manager"
	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
)

type renameOptions struct {
	apply        bool
	skipReviewed bool
	showReviewed bool
	limit        int
	entities     []string
	json         bool
}

func newRenameCmd(g *globalOptions) *cobra.Command {
	var o renameOptions

	cmd := &cobra.Command{
		Use:   "rename",
		Short: "Rename entities to their canonical identifiers",
		Long: `Rename analyses entities and applies the proposed identifiers, marking
each processed entity as reviewed. Without --apply it is a dry run.

When the limit flag is not given or is 0, the configured
batch.default_limit bounds the run. With --entity, a limit of 0 renames
every listed entity.

Usage:
  entitymanager rename                 # dry run over unreviewed entities
  entitymanager rename --apply
  entitymanager rename --apply --limit 0 --entity light.kitchen_1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), g, appOptions{publish: true, logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.Close()

			opts := a.svc.DefaultBulkOptions()
			opts.DryRun = !o.apply
			opts.SkipReviewed = o.skipReviewed
			opts.ShowReviewed = o.showReviewed
			opts.Identifiers = o.entities
			if cmd.Flags().Changed("limit") {
				opts.Limit = o.limit
			}
			if opts.ShowReviewed && !cmd.Flags().Changed("skip-reviewed") {
				opts.SkipReviewed = false
			}

			result, err := a.svc.RenameBulk(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if !opts.DryRun && len(result.Processed) > 0 {
				if err := a.saveOffline(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if o.json {
				return printJSON(out, result)
			}
			printReport(out, result)
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d of %d entities failed", len(result.Errors), result.Total)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&o.apply, "apply", false, "Apply the renames (default is a dry run)")
	f.BoolVar(&o.skipReviewed, "skip-reviewed", true, "Leave out entities already marked reviewed")
	f.BoolVar(&o.showReviewed, "show-reviewed", false, "Only include entities already marked reviewed")
	f.IntVar(&o.limit, "limit", 0, "Stop after this many entities (0 for the configured default)")
	f.StringSliceVar(&o.entities, "entity", nil, "Only rename these entity IDs (repeatable)")
	f.BoolVar(&o.json, "json", false, "Print the report as JSON")
	return cmd
}

func printReport(w io.Writer, result *manager.BulkResult) {
	mode := "applied"
	if result.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(w, "Run %s (%s)\n", result.RunID, mode)

	tw := newTable(w)
	fmt.Fprintln(tw, "STATUS\tCURRENT\tNEW\tDETAIL")
	for _, group := range [][]review.Result{result.Processed, result.Skipped, result.Errors} {
		for _, res := range group {
			detail := res.Reason
			if res.Error != "" {
				detail = res.Error
			} else if res.Outcome == review.OutcomeProcessed && !res.Changed {
				detail = "marked reviewed"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", res.Outcome, res.OldID, res.NewID, detail)
		}
	}
	tw.Flush() //nolint:errcheck // writer errors surface on the next write

	fmt.Fprintf(w, "\n%d processed, %d skipped, %d errors\n",
		len(result.Processed), len(result.Skipped), len(result.Errors))
	if result.Cancelled {
		fmt.Fprintln(w, "run was cancelled before all entities were handled")
	}
	for _, id := range result.Missing {
		fmt.Fprintf(w, "not found: %s\n", id)
	}
}

func newRenameEntityCmd(g *globalOptions) *cobra.Command {
	var (
		dryRun  bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "rename-entity <entity-id>",
		Short: "Rename a single entity to its canonical identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), g, appOptions{publish: true, logOutput: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.svc.RenameEntity(cmd.Context(), args[0], dryRun)
			if err != nil && !errors.Is(err, manager.ErrRenameFailed) {
				return err
			}
			if err == nil && result.Changed && !dryRun {
				if saveErr := a.saveOffline(); saveErr != nil {
					return saveErr
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if printErr := printJSON(out, result); printErr != nil {
					return printErr
				}
				return err
			}
			switch {
			case err != nil:
				fmt.Fprintf(out, "%s -> %s failed: %s\n", result.OldID, result.NewID, result.Error)
			case result.Message != "":
				fmt.Fprintf(out, "%s: %s\n", result.OldID, result.Message)
			case dryRun:
				fmt.Fprintf(out, "%s -> %s (%s) [dry run]\n", result.OldID, result.NewID, result.FriendlyName)
			default:
				fmt.Fprintf(out, "%s -> %s (%s)\n", result.OldID, result.NewID, result.FriendlyName)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the new identifier without renaming")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	return cmd
}
