package cli

import (
	"github.com/spf13/cobra"

	"snapstore/pkg/checkpoint"
	cfgpkg "snapstore/pkg/config"
	"snapstore/pkg/lockfile"
	"snapstore/pkg/logx"
)

var (
	configPath string
	projectDir string
	linearMode bool
	verbose    bool
	useLock    bool
)

// NewRootCmd builds the checkpointctl command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "checkpointctl",
		Short:         "Content-addressed checkpoints for a working directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a checkpoint.yaml/.json config file")
	cmd.PersistentFlags().StringVarP(&projectDir, "project", "p", ".", "project directory to checkpoint")
	cmd.PersistentFlags().BoolVar(&linearMode, "linear", false, "use linear mode (single-parent, detached HEAD) instead of branching mode")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&useLock, "lock", false, "hold an advisory file lock for the duration of mutating commands, enforcing exclusion across processes instead of relying on the single-writer contract")

	cmd.AddCommand(
		newCreateCmd(),
		newCheckoutCmd(),
		newLogCmd(),
		newLsCmd(),
		newShowCmd(),
		newDiffCmd(),
		newGCCmd(),
		newStatsCmd(),
		newResetCmd(),
		newDeleteLatestCmd(),
		newBranchCmd(),
	)

	return cmd
}

// buildEngine loads configuration and constructs an Engine per the
// global --config/--linear flags.
func buildEngine() (*checkpoint.Engine, error) {
	cfg, err := cfgpkg.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := zerologLevel()
	log := logx.New(nil, level)

	mode := checkpoint.Branching
	if linearMode {
		mode = checkpoint.Linear
	}
	return checkpoint.NewEngine(cfg, mode, log), nil
}

// withOptionalLock runs fn, wrapped in an advisory lock on the
// project's lock file when --lock was passed. Without --lock it runs
// fn directly, relying on the engine's documented single-writer
// contract.
func withOptionalLock(engine *checkpoint.Engine, fn func() error) error {
	if !useLock {
		return fn()
	}
	path, err := engine.LockFilePath(projectDir)
	if err != nil {
		return err
	}
	l, err := lockfile.Acquire(path)
	if err != nil {
		return err
	}
	defer l.Release()
	return fn()
}
