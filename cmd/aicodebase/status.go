package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/aicodebase/internal/manifest"
	"github.com/rohankatakam/aicodebase/internal/output"
	"github.com/rohankatakam/aicodebase/internal/pipeline"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the last build recorded for each group",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	popts := pipeline.OptionsFromConfig(cfg)

	var groups []output.GroupStatus
	for _, group := range cfg.Groups {
		paths := popts.Paths(group)
		if _, err := os.Stat(paths.Cache); err != nil {
			continue
		}

		store, err := manifest.Open(cfg.Manifest.Backend, paths.Cache, logger)
		if err != nil {
			return err
		}
		m, err := store.Load(ctx)
		store.Close()
		if err != nil {
			return err
		}
		groups = append(groups, output.GroupStatus{Group: group, Manifest: store.Path(), State: m})
	}

	if statusJSON {
		return output.WriteJSON(cmd.OutOrStdout(), groups)
	}
	return output.WriteStatus(cmd.OutOrStdout(), groups)
}
