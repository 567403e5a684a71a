package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-entity-manager/internal/overrides"
)

func newOverrideCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "override",
		Aliases: []string{"overrides"},
		Short:   "Manage naming overrides",
		Long: `Naming overrides change the name used for an area, device or entity when
building identifiers, without renaming anything in Home Assistant.

Areas and devices are keyed by their registry ID. Entities are keyed by
their registry entry ID, which survives renames.`,
	}
	cmd.AddCommand(
		newOverrideListCmd(g),
		newOverrideSetCmd(g),
		newOverrideRemoveCmd(g),
		newOverrideClearCmd(g),
	)
	return cmd
}

func openLocal(cmd *cobra.Command, g *globalOptions) (*app, error) {
	return openApp(cmd.Context(), g, appOptions{local: true, logOutput: cmd.ErrOrStderr()})
}

func newOverrideListCmd(g *globalOptions) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every naming override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openLocal(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			doc := a.store.All()
			out := cmd.OutOrStdout()
			if jsonOut {
				return printJSON(out, doc)
			}

			tw := newTable(out)
			fmt.Fprintln(tw, "KIND\tID\tNAME\tTYPE")
			for _, kind := range overrides.AllKinds() {
				section := doc.Section(kind)
				for _, id := range slices.Sorted(maps.Keys(section)) {
					rec := section[id]
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", kind, id, rec.Name, rec.Type)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the overrides as JSON")
	return cmd
}

func newOverrideSetCmd(g *globalOptions) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "set <area|device|entity> <id> <name>",
		Short: "Set the name override for an area, device or entity",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := overrides.ParseKind(args[0])
			if err != nil {
				return err
			}

			a, err := openLocal(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Set(cmd.Context(), kind, args[1], overrides.Record{Name: args[2], Type: typ}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "set %s override %s = %q\n", kind, args[1], args[2])
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Type token override (entities only)")
	return cmd
}

func newOverrideRemoveCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <area|device|entity> <id>",
		Aliases: []string{"rm"},
		Short:   "Remove one naming override",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := overrides.ParseKind(args[0])
			if err != nil {
				return err
			}

			a, err := openLocal(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			removed, err := a.store.Remove(cmd.Context(), kind, args[1])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no %s override for %s", kind, args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s override %s\n", kind, args[1])
			return nil
		},
	}
}

func newOverrideClearCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every naming override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openLocal(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.ClearAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared all naming overrides")
			return nil
		},
	}
}
