package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cmdtutor/internal/config"
	"cmdtutor/internal/lesson"
	"cmdtutor/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// Logger
	logger *zap.Logger

	// Loaded once per process; tests reset it.
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Interactive Linux command tutor",
	Long: `tutor walks a learner through hands-on Linux command exercises.

Every command is run in a real shell and checked against the exercise.
Verified progress earns short codes the learner submits to an LMS; the
instructor can regenerate every code offline as an answer key.

Run without arguments to start a learner session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The learner session owns the terminal; keep stderr quiet unless asked.
		if cmd == cmd.Root() && !verbose {
			logger = zap.NewNop()
		} else {
			zcfg := zap.NewProductionConfig()
			if verbose {
				zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = zcfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
		}

		c, err := loadConfig()
		if err != nil {
			return err
		}
		lc := c.Logging.Verbose(verbose)
		o := logging.Options{DebugMode: lc.DebugMode, Level: lc.Level, Categories: lc.Categories}
		if err := logging.Initialize(resolveWorkspace(), o); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		logging.Boot("%s %s starting (%s)", c.Name, c.Version, cmd.CommandPath())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.Sync()
	},
	RunE: runTutor,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <workspace>/.tutor/config.yaml)")

	// Session flags
	rootCmd.Flags().BoolVar(&watchRoster, "watch-roster", false, "Reload the configured roster when the file changes")
	rootCmd.Flags().BoolVar(&noSeed, "no-seed", false, "Do not create practice files before each run")

	// Code flags
	codeCmd.Flags().StringVarP(&codeKey, "key", "k", "", "Assignment key (default: config default_key)")
	codeCmd.Flags().StringVarP(&codeStudent, "student", "s", "", "Student ID to resolve the group from")
	codeCmd.Flags().IntVarP(&codeGroup, "group", "g", 0, "Group number (instead of --student)")
	codeCmd.Flags().IntVarP(&codeCount, "count", "n", 0, "Exercise count (default: list the whole schedule)")
	codeCmd.Flags().BoolVar(&codeFinal, "final", false, "Derive the FINAL code for --count")
	codeCmd.Flags().IntVar(&codeMax, "max", 20, "Exercises in the run when listing the schedule")

	// Group flags
	groupCmd.Flags().IntVar(&groupCount, "groups", 0, "Number of groups (default: config group_count)")

	// Keys flags
	keysCmd.Flags().StringVarP(&keysKey, "key", "k", "", "Assignment key (default: config default_key)")
	keysCmd.Flags().IntVar(&keysMax, "max", 20, "Exercises in the run")
	keysCmd.Flags().StringVarP(&keysOut, "out", "o", "", "Output directory (default: workspace)")
	keysCmd.Flags().IntVar(&groupCount, "groups", 0, "Number of groups (default: config group_count)")

	// Roster flags
	rosterCmd.Flags().StringVarP(&rosterOut, "out", "o", "student_groups.csv", "Grouping CSV to write")
	rosterCmd.Flags().IntVar(&groupCount, "groups", 0, "Number of groups (default: config group_count)")
	sampleRosterCmd.Flags().StringVarP(&sampleOut, "out", "o", "sample_students.txt", "Student list to write")

	// Workspace flags
	workspaceCmd.Flags().BoolVar(&workspaceReset, "reset", false, "Remove files created by earlier exercises first")

	// Config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	// Add commands to root
	rootCmd.AddCommand(codeCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(rosterCmd)
	rootCmd.AddCommand(sampleRosterCmd)
	rootCmd.AddCommand(workspaceCmd)
	rootCmd.AddCommand(lessonsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveWorkspace() string {
	if workspace != "" {
		return workspace
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

func defaultConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return filepath.Join(resolveWorkspace(), ".tutor", "config.yaml")
}

// loadConfig loads and validates the config once per process.
func loadConfig() (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := config.Load(defaultConfigPath())
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

// resolveWorkDir returns the directory learner commands run in. A relative
// working_directory is taken relative to the workspace.
func resolveWorkDir(c *config.Config) string {
	dir := c.Execution.WorkingDirectory
	if dir == "" {
		dir = "."
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(resolveWorkspace(), dir)
}

func loadCatalog(c *config.Config) (*lesson.Catalog, error) {
	if c.Tutor.LessonsPath == "" {
		return lesson.Default()
	}
	path := c.Tutor.LessonsPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(resolveWorkspace(), path)
	}
	return lesson.LoadCatalog(path)
}

func groupsFlag(c *config.Config) int {
	if groupCount > 0 {
		return groupCount
	}
	return c.Tutor.GroupCount
}

// commandContext returns the command's context, or a background context
// when the command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
