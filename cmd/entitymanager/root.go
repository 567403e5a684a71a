package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

// defaultConfigPath is used when neither --config nor ENTITYMANAGER_CONFIG
// is set and the file exists.
const defaultConfigPath = "configs/config.yaml"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
}

// newRootCmd builds the command tree. Each call returns a fresh tree so
// tests can run commands independently.
func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "entitymanager",
		Short: "Canonical entity naming for Home Assistant",
		Long: `entitymanager proposes and applies canonical entity identifiers of the
form domain.area_device_type, derived from the area, device and entity type
of each entity in the Home Assistant registry.

Renamed entities are labelled "maintained" so later runs can skip them.
Naming overrides let you change how an area, device or entity is spelled
without renaming it in Home Assistant.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Config file (default: $ENTITYMANAGER_CONFIG or "+defaultConfigPath+")")
	pf.StringVar(&g.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(g),
		newAnalyzeCmd(g),
		newRenameCmd(g),
		newRenameEntityCmd(g),
		newOverrideCmd(g),
		newRewriteRefsCmd(g),
		newVersionCmd(),
	)
	return root
}

// resolveConfigPath picks the config file. An empty result means defaults
// plus environment overrides only.
func (g *globalOptions) resolveConfigPath() string {
	if g.configPath != "" {
		return g.configPath
	}
	if path := os.Getenv("ENTITYMANAGER_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); !errors.Is(err, fs.ErrNotExist) {
		return defaultConfigPath
	}
	return ""
}
