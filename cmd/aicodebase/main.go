package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/aicodebase/internal/config"
	"github.com/rohankatakam/aicodebase/internal/errors"
	"github.com/rohankatakam/aicodebase/internal/logging"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config

	logCloser io.Closer
)

func main() {
	err := rootCmd.Execute()
	if logCloser != nil {
		logCloser.Close()
	}
	if err != nil {
		if !stderrors.Is(err, errors.ErrNothingToDo) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(errors.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "aicodebase",
	Short: "Member-level cache and per-project trees for exported 4GL sources",
	Long: `aicodebase splits exported PowerBuilder objects into one file per
function, subroutine and event, keeps the result in a shared per-library cache,
and assembles one tree per workspace out of links (or copies) into that cache.

Only libraries whose sources changed since the last run are rebuilt.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, _, err = logging.New(logging.DefaultConfig(verbose))
		if err != nil {
			return err
		}

		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		logCfg := logging.DefaultConfig(verbose)
		if !verbose {
			logCfg.Level = cfg.Logging.Level
		}
		logCfg.Format = cfg.Logging.Format
		logCfg.OutputFile = cfg.Logging.File

		logger, logCloser, err = logging.New(logCfg)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "aicodebase %s\nBuild time: %s\nGit commit: %s\n", Version, BuildTime, GitCommit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .aicodebase/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`aicodebase {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(fingerprintCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
