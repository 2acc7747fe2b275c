package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rulebook-dev/rulebook/pkg/extract"
	"github.com/rulebook-dev/rulebook/pkg/presenter"
	"github.com/rulebook-dev/rulebook/pkg/rules"
)

// ExtractTestsConfig holds configuration for the extract-tests command
type ExtractTestsConfig struct {
	Output string
	Schema bool
}

func NewExtractTestsConfig() *ExtractTestsConfig {
	return &ExtractTestsConfig{}
}

var extractTestsCmd = &cobra.Command{
	Use:   "extract-tests <skill>",
	Short: "Derive machine-readable test cases from a skill's rules",
	Long: `Extract test cases from the incorrect/correct example pairs of a skill's
rule files. Each pair becomes one JSON test case carrying the rule id,
title, tags, a scenario drawn from the rule's introduction, and the
expected behavior drawn from the correct example.

Rules whose body has no example pair contribute no cases; that is not an
error. Ids match the compiled reference document built from the same
rule files.

Examples:
  rulebook extract-tests mongodb-schema-design
  rulebook extract-tests mongodb-schema-design -o eval/cases.json
  rulebook extract-tests --schema`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getExtractTestsConfigFromFlags(cmd)

		if config.Schema {
			schema, err := extract.Schema()
			if err != nil {
				presenter.Error(err, "Failed to generate schema")
				os.Exit(1)
			}
			fmt.Println(string(schema))
			return
		}

		if len(args) != 1 {
			presenter.Error(fmt.Errorf("a skill argument is required unless --schema is set"), "Invalid arguments")
			os.Exit(1)
		}
		skill := resolveSkill(args[0])

		reg, err := rules.LoadManifest(skill.ManifestPath())
		if err != nil {
			presenter.Error(err, "Extraction failed")
			os.Exit(1)
		}
		set, err := rules.Collect(skill.RulesDir(), reg)
		if err != nil {
			presenter.Error(err, "Extraction failed")
			os.Exit(1)
		}

		cases := extract.FromRuleSet(set)

		output := config.Output
		if output == "" {
			output = filepath.Join(skill.Path, extract.DefaultFileName)
		}

		if err := extract.WriteFile(output, cases); err != nil {
			presenter.Error(err, "Failed to write test cases")
			os.Exit(1)
		}

		presenter.Success(fmt.Sprintf("Extracted %d test cases from %d rules to %s",
			len(cases), set.Len(), output))
	},
}

func init() {
	defaults := NewExtractTestsConfig()
	extractTestsCmd.Flags().StringP("output", "o", defaults.Output, "Output file (default: testcases.json inside the skill directory)")
	extractTestsCmd.Flags().Bool("schema", defaults.Schema, "Print the JSON schema of the test-case format and exit")
}

func getExtractTestsConfigFromFlags(cmd *cobra.Command) *ExtractTestsConfig {
	config := NewExtractTestsConfig()
	if output, err := cmd.Flags().GetString("output"); err == nil {
		config.Output = output
	}
	if schema, err := cmd.Flags().GetBool("schema"); err == nil {
		config.Schema = schema
	}
	return config
}
