package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/tab_grouper/internal/controller"
	"github.com/dgnsrekt/tab_grouper/internal/tabkey"
)

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key <url>...",
		Short: "Print the key, label and color derived from each URL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var factory tabkey.Factory
			out := cmd.OutOrStdout()
			for _, raw := range args {
				k := factory.Key(raw)
				color := controller.GroupColor(k)
				fmt.Fprintln(out, raw)
				fmt.Fprintf(out, "  key:   %s\n", k)
				fmt.Fprintf(out, "  label: %s\n", groupStyle(color).Render(k.DisplayLabel()))
				fmt.Fprintf(out, "  color: %s\n", color)
			}
			return nil
		},
	}
}
