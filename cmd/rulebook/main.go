// Command rulebook compiles, validates, and extracts evaluation test
// cases from skill packages of best-practice rule documents.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rulebook-dev/rulebook/pkg/logger"
	"github.com/rulebook-dev/rulebook/pkg/presenter"
	"github.com/rulebook-dev/rulebook/pkg/skills"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("RULEBOOK")
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.rulebook")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var rootCmd = &cobra.Command{
	Use:   "rulebook",
	Short: "Build pipeline for skill packages of best-practice rules",
	Long: `Rulebook discovers rule documents inside skill packages, validates their
structure, compiles them into a single canonical reference file, and
extracts machine-readable test cases for automated evaluation.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			presenter.Warning(fmt.Sprintf("Invalid log level %q, using default", viper.GetString("log_level")))
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		presenter.SetQuiet(viper.GetBool("quiet"))
	},
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
		os.Exit(1)
	},
}

// newDiscovery builds skill discovery from configuration, falling back to
// the default roots.
func newDiscovery() (*skills.Discovery, error) {
	if dirs := viper.GetStringSlice("skill_dirs"); len(dirs) > 0 {
		return skills.NewDiscovery(skills.WithSkillDirs(dirs...))
	}
	return skills.NewDiscovery()
}

// resolveSkill turns the CLI argument into a skill package, accepting
// either a directory path or a discovered skill name.
func resolveSkill(nameOrPath string) *skills.Skill {
	discovery, err := newDiscovery()
	if err != nil {
		presenter.Error(err, "Failed to initialize skill discovery")
		os.Exit(1)
	}

	skill, err := discovery.Resolve(nameOrPath)
	if err != nil {
		presenter.Error(err, "Failed to resolve skill")
		os.Exit(1)
	}

	return skill
}

func main() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "Log format (fmt, json)")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress non-essential output")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(extractTestsCmd)
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
