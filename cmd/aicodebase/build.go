package main

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/aicodebase/internal/errors"
	"github.com/rohankatakam/aicodebase/internal/output"
	"github.com/rohankatakam/aicodebase/internal/pipeline"
)

var (
	buildWorkers  int
	buildCopy     bool
	buildJSON     bool
	buildWarnings bool
	buildGroups   []string
)

var buildCmd = &cobra.Command{
	Use:   "build [mirror_root sources_root output_root]",
	Short: "Rebuild changed library caches and assemble project trees",
	Long: `Run one incremental build for every configured group.

For each group found under the mirror root:
1. Workspaces (.pbw) and their targets (.pbt) are read to learn which libraries
   every project needs
2. Outputs no longer backed by the mirror are removed
3. Libraries whose files changed (path, size, mtime) are split again into
   <output>/<group>/.pblcache/<library>/<object>/
4. Each project gets <output>/<group>/<project>/<library> as a link to the cache,
   or a copy where links are unavailable

Exit status: 0 success, 2 missing root directory, 3 no group to process.

Examples:
  aicodebase build
  aicodebase build D:\Mirror D:\Sources D:\Extraction\AICodebase
  aicodebase build --group 12.5 --workers 8 --warnings`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 3 {
			return errors.ValidationErrorf("build takes no roots or all three (got %d)", len(args))
		}
		return nil
	},
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().IntVarP(&buildWorkers, "workers", "w", 0, "concurrent library rebuilds (default from config)")
	buildCmd.Flags().BoolVar(&buildCopy, "copy", false, "copy libraries into projects instead of linking")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "print the run summary as JSON")
	buildCmd.Flags().BoolVar(&buildWarnings, "warnings", false, "list diagnostics after the summary")
	buildCmd.Flags().StringSliceVarP(&buildGroups, "group", "g", nil, "only process these groups")
}

func runBuild(cmd *cobra.Command, args []string) error {
	if len(args) == 3 {
		cfg.Roots.Mirror, cfg.Roots.Sources, cfg.Roots.Output = args[0], args[1], args[2]
	}
	if buildWorkers > 0 {
		cfg.Workers = buildWorkers
	}
	if buildCopy {
		cfg.LinkMode = "copy"
	}
	if len(buildGroups) > 0 {
		cfg.Groups = buildGroups
	}

	if cfg.Roots.Mirror == "" || cfg.Roots.Sources == "" || cfg.Roots.Output == "" {
		return errors.MissingRootf("mirror, sources and output roots are required (set roots.* or pass them as arguments)")
	}

	result := cfg.Validate()
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	if result.HasErrors() {
		return errors.ConfigErrorf("%s", result.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p, err := pipeline.New(pipeline.OptionsFromConfig(cfg), logger)
	if err != nil {
		return err
	}
	summary, runErr := p.Run(ctx)

	format := "text"
	if buildJSON {
		format = "json"
	}
	formatter := output.NewFormatter(format, output.Options{
		Decorate: output.IsTerminal(cmd.OutOrStdout()),
		Warnings: buildWarnings || cfg.Diagnostics.Enabled,
	})
	if summary != nil && (runErr == nil || stderrors.Is(runErr, errors.ErrNothingToDo)) {
		if err := formatter.Format(summary, cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	return runErr
}
