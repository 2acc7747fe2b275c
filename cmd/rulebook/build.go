package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rulebook-dev/rulebook/pkg/compile"
	"github.com/rulebook-dev/rulebook/pkg/logger"
	"github.com/rulebook-dev/rulebook/pkg/presenter"
	"github.com/rulebook-dev/rulebook/pkg/rules"
	"github.com/rulebook-dev/rulebook/pkg/skills"
)

// BuildConfig holds configuration for the build command
type BuildConfig struct {
	Output string
	Check  bool
	Watch  bool
}

func NewBuildConfig() *BuildConfig {
	return &BuildConfig{}
}

var buildCmd = &cobra.Command{
	Use:   "build <skill>",
	Short: "Compile a skill's rules into its reference document",
	Long: `Compile every rule file of a skill into the single canonical reference
document: ordered sections, stable rule ids, and a table of contents.

The output file is fully rewritten on every build; hand edits are
destroyed. With --check, nothing is written: the on-disk document is
compared against a fresh render and a unified diff is printed when it is
stale (exit code 1), which makes the flag suitable as a CI gate.

Examples:
  rulebook build mongodb-schema-design
  rulebook build ./skills/mongodb-schema-design --check
  rulebook build mongodb-schema-design --watch`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getBuildConfigFromFlags(cmd)
		if config.Check && config.Watch {
			presenter.Error(errors.New("--check and --watch are mutually exclusive"), "Invalid flags")
			os.Exit(1)
		}
		skill := resolveSkill(args[0])

		if config.Watch {
			if err := watchAndBuild(cmd.Context(), skill, config); err != nil {
				presenter.Error(err, "Watch failed")
				os.Exit(1)
			}
			return
		}

		if err := runBuild(cmd.Context(), skill, config); err != nil {
			presenter.Error(err, "Build failed")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewBuildConfig()
	buildCmd.Flags().StringP("output", "o", defaults.Output, "Output file (default: REFERENCE.md inside the skill directory)")
	buildCmd.Flags().Bool("check", defaults.Check, "Verify the compiled document is up to date instead of writing it")
	buildCmd.Flags().Bool("watch", defaults.Watch, "Rebuild whenever rule files change")
}

func getBuildConfigFromFlags(cmd *cobra.Command) *BuildConfig {
	config := NewBuildConfig()
	if output, err := cmd.Flags().GetString("output"); err == nil {
		config.Output = output
	}
	if check, err := cmd.Flags().GetBool("check"); err == nil {
		config.Check = check
	}
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	return config
}

// compileSkill runs the full collection and compilation for one skill.
func compileSkill(skill *skills.Skill) (*compile.Document, error) {
	reg, err := rules.LoadManifest(skill.ManifestPath())
	if err != nil {
		return nil, err
	}

	set, err := rules.Collect(skill.RulesDir(), reg)
	if err != nil {
		// No partial document: a single broken file aborts the build
		// rather than silently dropping content.
		return nil, err
	}

	return compile.New(skill.Name, set), nil
}

func buildOutputPath(skill *skills.Skill, config *BuildConfig) string {
	if config.Output != "" {
		return config.Output
	}
	return filepath.Join(skill.Path, compile.DefaultFileName)
}

func runBuild(ctx context.Context, skill *skills.Skill, config *BuildConfig) error {
	log := logger.G(ctx).WithField("skill", skill.Name)

	doc, err := compileSkill(skill)
	if err != nil {
		return err
	}

	output := buildOutputPath(skill, config)

	if config.Check {
		diff, stale, err := doc.CheckFile(output)
		if err != nil {
			return err
		}
		if stale {
			presenter.Warning(fmt.Sprintf("%s is stale, run 'rulebook build' to regenerate", output))
			presenter.Info(diff)
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("%s is up to date", output))
		return nil
	}

	if err := doc.WriteFile(output); err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"rules":    doc.RuleCount,
		"sections": len(doc.Sections),
		"output":   output,
	}).Info("compiled skill")

	presenter.Success(fmt.Sprintf("Compiled %d rules across %d sections to %s",
		doc.RuleCount, len(doc.Sections), output))
	return nil
}

// watchAndBuild rebuilds the skill whenever a markdown file under it
// changes. Events are debounced so editor save bursts trigger one build.
func watchAndBuild(ctx context.Context, skill *skills.Skill, config *BuildConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	for _, dir := range []string{skill.Path, skill.RulesDir()} {
		if err := watcher.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
	}

	rebuild := func() {
		if err := runBuild(ctx, skill, config); err != nil {
			presenter.Error(err, "Build failed, waiting for changes")
		}
	}
	rebuild()

	presenter.Info(fmt.Sprintf("Watching %s for changes (ctrl-c to stop)", skill.Path))

	debounce := time.NewTimer(time.Hour)
	if !debounce.Stop() {
		<-debounce.C
	}

	output := buildOutputPath(skill, config)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Ignore the artifact we write ourselves.
			if filepath.Ext(event.Name) != ".md" || event.Name == output {
				continue
			}
			debounce.Reset(300 * time.Millisecond)
		case <-debounce.C:
			rebuild()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Warn("watcher error")
		}
	}
}
