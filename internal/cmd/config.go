package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ghbridge/internal/config"
)

func (a *app) configCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:         "config",
		Short:       "Manage the ghbridge configuration",
		Annotations: map[string]string{skipServices: "true"},
		Long: `View and change the configuration file.

Values are resolved in this order, later wins:
  1. config file (--config, $GHBRIDGE_CONFIG or $XDG_CONFIG_HOME/ghbridge/config.yaml)
  2. environment: GHBRIDGE_LOG_LEVEL, GHBRIDGE_CLIENT_ID, GHBRIDGE_STATE_DIR
  3. flags: --log-level, --log-file, --workspace

Keys: ` + strings.Join(config.Keys(), ", "),
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "view",
			Short: "Show the effective configuration",
			Args:  cobra.NoArgs,
			RunE:  a.runConfigView,
		},
		&cobra.Command{
			Use:       "get <key>",
			Short:     "Print one configuration value",
			Args:      cobra.ExactArgs(1),
			ValidArgs: config.Keys(),
			RunE:      a.runConfigGet,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one value in the config file",
			Long: `Change one value in the config file. "workspaces" takes a comma
separated list of folders.`,
			Args: cobra.ExactArgs(2),
			RunE: a.runConfigSet,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return a.output(a.cfgPath)
			},
		},
	)
	return configCmd
}

func (a *app) runConfigView(*cobra.Command, []string) error {
	return a.output(a.cfg)
}

func (a *app) runConfigGet(_ *cobra.Command, args []string) error {
	v, err := a.cfg.Get(args[0])
	if err != nil {
		return err
	}
	return a.output(v)
}

// runConfigSet edits the file contents, not the effective configuration,
// so environment and flag overrides are never persisted.
func (a *app) runConfigSet(_ *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := config.Save(cfg, a.cfgPath); err != nil {
		return err
	}
	return a.output(fmt.Sprintf("Set %s in %s", args[0], a.cfgPath))
}
