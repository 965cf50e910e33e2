// Package cli implements the tabgroup command, which groups URL lists offline with
// the same rules the daemon applies to live tabs.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/tab_grouper/internal/grouping"
)

const envPrefix = "TABGROUP"

// NewRootCmd builds the command tree. Each call gets its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "tabgroup",
		Short: "Group URLs the way tab_grouper groups browser tabs",
		Long: `tabgroup derives keys from URLs and prints the grouped arrangement
without a browser. Grouping settings come from flags, TABGROUP_* environment
variables or the tab_grouper settings file, in that order.`,
		SilenceUsage: true,
	}

	defaults := grouping.DefaultSettings()
	flags := root.PersistentFlags()
	flags.String("settings", "tab_grouper.yaml", "settings file")
	flags.Int("min", defaults.MinTabsInGroup, "smallest bucket that becomes a group")
	flags.Int("max", defaults.MaxTabsInGroup, "groups above this size are split when possible")
	flags.String("location", string(defaults.GroupsLocation), "where groups are placed (top, bottom, none)")
	flags.String("sort", string(defaults.Sort), "what is sorted by key (all, groups, none)")

	_ = v.BindPFlag("settings", flags.Lookup("settings"))
	_ = v.BindPFlag("min_tabs_in_group", flags.Lookup("min"))
	_ = v.BindPFlag("max_tabs_in_group", flags.Lookup("max"))
	_ = v.BindPFlag("groups_location", flags.Lookup("location"))
	_ = v.BindPFlag("sort", flags.Lookup("sort"))

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	root.AddCommand(newPlanCmd(v), newKeyCmd())
	return root
}

// loadSettings resolves grouping settings. A missing settings file is only an
// error when it was named explicitly.
func loadSettings(cmd *cobra.Command, v *viper.Viper) (grouping.Settings, error) {
	path := v.GetString("settings")
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			explicit := cmd.Flags().Changed("settings") || os.Getenv(envPrefix+"_SETTINGS") != ""
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return grouping.Settings{}, fmt.Errorf("read settings %s: %w", path, err)
			}
		}
	}

	cfg := grouping.Settings{
		MinTabsInGroup: v.GetInt("min_tabs_in_group"),
		MaxTabsInGroup: v.GetInt("max_tabs_in_group"),
		GroupsLocation: grouping.Location(strings.ToLower(v.GetString("groups_location"))),
		Sort:           grouping.SortMode(strings.ToLower(v.GetString("sort"))),
	}
	if err := cfg.Validate(); err != nil {
		return grouping.Settings{}, err
	}
	return cfg, nil
}
