package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/aicodebase/internal/deps"
	"github.com/rohankatakam/aicodebase/internal/discovery"
	"github.com/rohankatakam/aicodebase/internal/errors"
	"github.com/rohankatakam/aicodebase/internal/output"
	"github.com/rohankatakam/aicodebase/internal/pipeline"
)

var (
	depsJSON        bool
	depsProjectRefs bool
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "List the libraries every workspace requires",
	Long: `Read the workspaces and targets of every group and print, per project,
the libraries it declares. Libraries with no directory under the sources root
are marked NOT FOUND.`,
	Args: cobra.NoArgs,
	RunE: runDeps,
}

func init() {
	depsCmd.Flags().BoolVar(&depsJSON, "json", false, "print the report as JSON")
	depsCmd.Flags().BoolVar(&depsProjectRefs, "project-refs", false, "also read library references from target project sections")
}

func runDeps(cmd *cobra.Command, args []string) error {
	if cfg.Roots.Mirror == "" {
		return errors.MissingRootf("roots.mirror is not set")
	}

	var opts []deps.Option
	if depsProjectRefs {
		opts = append(opts, deps.WithProjectRefs())
	}
	resolver, err := deps.NewResolver(logger, deps.DefaultMemoSize, opts...)
	if err != nil {
		return err
	}

	popts := pipeline.OptionsFromConfig(cfg)
	var reports []output.DependencyReport
	for _, group := range cfg.Groups {
		paths := popts.Paths(group)
		if _, err := os.Stat(paths.Mirror); err != nil {
			continue
		}

		graph, err := resolver.Resolve(context.Background(), paths.Mirror)
		if err != nil {
			return err
		}
		available := func(stem string) bool {
			return hasSources(filepath.Join(paths.Sources, stem), popts.Extensions)
		}
		reports = append(reports, output.DependencyReport{
			Group:    group,
			Projects: graph.Report(available),
			Warnings: graph.Warnings,
		})
	}

	if len(reports) == 0 {
		return errors.ErrNothingToDo
	}
	if depsJSON {
		return output.WriteJSON(cmd.OutOrStdout(), reports)
	}
	return output.WriteDependencies(cmd.OutOrStdout(), reports)
}

// hasSources matches what build treats as found: at least one exported object.
func hasSources(dir string, patterns []string) bool {
	files, err := discovery.Collect(dir, patterns)
	return err == nil && len(files) > 0
}
