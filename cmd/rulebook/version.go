package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rulebook-dev/rulebook/pkg/presenter"
	"github.com/rulebook-dev/rulebook/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := version.Get()

		if jsonOutput, err := cmd.Flags().GetBool("json"); err == nil && jsonOutput {
			out, err := info.JSON()
			if err != nil {
				presenter.Error(err, "Failed to encode version")
				os.Exit(1)
			}
			fmt.Println(out)
			return
		}

		fmt.Println(info.String())
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Output version information as JSON")
}
