package main

import (
	"github.com/spf13/cobra"

	"github.com/rohankatakam/aicodebase/internal/discovery"
	"github.com/rohankatakam/aicodebase/internal/fingerprint"
	"github.com/rohankatakam/aicodebase/internal/output"
)

var fingerprintFiles bool

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <dir>",
	Short: "Print the change-detection fingerprint of a library directory",
	Long: `Print the fingerprint the build uses to decide whether a library needs a
rebuild. It covers relative path, size and modification time of every exported
object; file contents are not read.`,
	Args: cobra.ExactArgs(1),
	RunE: runFingerprint,
}

func init() {
	fingerprintCmd.Flags().BoolVar(&fingerprintFiles, "files", false, "also list the fingerprinted files")
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	files, err := discovery.Collect(args[0], cfg.Extensions)
	if err != nil {
		return err
	}
	fp := fingerprint.FromFiles(files)

	w := cmd.OutOrStdout()
	if fingerprintFiles {
		for _, f := range files {
			output.Linef(w, "%s|%d|%d", f.RelPath, f.Size, f.ModTimeNs)
		}
	}
	return output.WriteJSON(w, fp)
}
