package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rulebook-dev/rulebook/pkg/presenter"
	"github.com/rulebook-dev/rulebook/pkg/validate"
)

// ValidateConfig holds configuration for the validate command
type ValidateConfig struct {
	Strict bool
}

func NewValidateConfig() *ValidateConfig {
	return &ValidateConfig{}
}

var validateCmd = &cobra.Command{
	Use:   "validate <skill>",
	Short: "Check every rule file of a skill against the structural contracts",
	Long: `Validate a skill's rule files: required frontmatter keys, the mandatory
incorrect/correct example contrast, trailing reference links, and
prefix/impact consistency with the section manifest.

Unlike build, validation keeps going past broken files so one run reports
the whole corpus. Error-level violations exit non-zero for CI; warnings do
not unless --strict is set. Severity grading is adjustable per skill
through its _policy.yaml file.

Examples:
  rulebook validate mongodb-schema-design
  rulebook validate ./skills/mongodb-schema-design --strict`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getValidateConfigFromFlags(cmd)
		skill := resolveSkill(args[0])

		report, err := validate.Skill(cmd.Context(), skill.Path)
		if err != nil {
			presenter.Error(err, "Validation aborted")
			os.Exit(1)
		}

		if len(report.Violations) > 0 {
			presenter.Section("Violations")
			for _, v := range report.Violations {
				if v.Severity == validate.SeverityError {
					presenter.Error(fmt.Errorf("%s: %s", v.Check, v.Detail), v.Path)
				} else {
					presenter.Warning(v.String())
				}
			}
			presenter.Separator()
		}

		presenter.Info(fmt.Sprintf("%d files checked: %d errors, %d warnings",
			report.Files, report.Errors(), report.Warnings()))

		if report.Fatal() || (config.Strict && report.Warnings() > 0) {
			os.Exit(1)
		}
		presenter.Success("Validation passed")
	},
}

func init() {
	defaults := NewValidateConfig()
	validateCmd.Flags().Bool("strict", defaults.Strict, "Treat warnings as fatal")
}

func getValidateConfigFromFlags(cmd *cobra.Command) *ValidateConfig {
	config := NewValidateConfig()
	if strict, err := cmd.Flags().GetBool("strict"); err == nil {
		config.Strict = strict
	}
	return config
}
