package main

import (
	"os"

	"github.com/dgnsrekt/tab_grouper/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
