package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rulebook-dev/rulebook/pkg/presenter"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List discovered skill packages",
	Long: `List every skill package found under the configured skill roots.
Repo-local ./skills is scanned first, then ~/.rulebook/skills; roots can
be overridden with the skill_dirs configuration key.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		discovery, err := newDiscovery()
		if err != nil {
			presenter.Error(err, "Failed to initialize skill discovery")
			os.Exit(1)
		}

		skills, err := discovery.DiscoverSkills()
		if err != nil {
			presenter.Error(err, "Failed to discover skills")
			os.Exit(1)
		}

		if len(skills) == 0 {
			presenter.Info("No skills found")
			return
		}

		names, err := discovery.ListSkillNames()
		if err != nil {
			presenter.Error(err, "Failed to list skills")
			os.Exit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION\tPATH")
		for _, name := range names {
			skill := skills[name]
			fmt.Fprintf(w, "%s\t%s\t%s\n", skill.Name, skill.Description, skill.Path)
		}
		w.Flush()
	},
}
