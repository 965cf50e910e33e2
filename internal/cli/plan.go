package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/tab_grouper/internal/controller"
)

func newPlanCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [file]",
		Short: "Print the grouped arrangement of a URL list",
		Long:  `Reads one URL per line from file, or from stdin when file is "-" or omitted.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd, v)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			urls, err := readLines(in)
			if err != nil {
				return err
			}

			plan, err := controller.NewService(nil, nil, nil).Preview(urls, cfg)
			if err != nil {
				return err
			}
			renderPlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read urls: %w", err)
	}
	return out, nil
}
