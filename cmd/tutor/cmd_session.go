package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cmdtutor/internal/admin"
	"cmdtutor/internal/cohort"
	"cmdtutor/internal/logging"
	"cmdtutor/internal/session"
	"cmdtutor/internal/shell"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchRoster bool
	noSeed      bool
)

// interruptGrace is how long an interrupted session gets to return on its
// own before the process exits. A read from the terminal cannot be canceled.
const interruptGrace = 2 * time.Second

// runTutor starts a learner session on stdin/stdout.
func runTutor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := loadCatalog(c)
	if err != nil {
		return fmt.Errorf("failed to load lessons: %w", err)
	}
	assigner, err := cohort.NewAssigner(c.Tutor.GroupCount)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	workDir := resolveWorkDir(c)
	console := admin.NewConsole(assigner, out, admin.Options{
		OutputDir: resolveWorkspace(),
		Interval:  c.Tutor.CheckpointInterval,
	})

	if path := c.Tutor.RosterPath; path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(resolveWorkspace(), path)
		}
		if err := console.Reload(path); err != nil {
			logger.Warn("Roster not loaded", zap.String("path", path), zap.Error(err))
			logging.BootWarn("Roster %s not loaded: %v", path, err)
		}
		if watchRoster {
			rw, err := console.Watch(ctx, path)
			if err != nil {
				logger.Warn("Roster watcher not started", zap.String("path", path), zap.Error(err))
			} else {
				defer rw.Stop()
			}
		}
	}

	runner := shell.NewRunner(shell.Config{
		Shell:            c.Execution.Shell,
		DefaultTimeout:   c.GetExecutionTimeout(),
		MaxOutputBytes:   c.Execution.MaxOutputBytes,
		WorkingDirectory: workDir,
	})

	s, err := session.New(cmd.InOrStdin(), out, session.Options{
		Catalog:          cat,
		Assigner:         assigner,
		Runner:           runner,
		Console:          console,
		WorkDir:          workDir,
		Timeout:          c.GetExecutionTimeout(),
		Interval:         c.Tutor.CheckpointInterval,
		PrepareWorkspace: !noSeed,
		UI:               c.UI,
	})
	if err != nil {
		return err
	}
	logger.Info("Starting session",
		zap.String("session", s.ID()),
		zap.String("catalog", cat.Source()),
		zap.String("workdir", workDir))

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		return err
	case <-sigCh:
		logger.Info("Received shutdown signal")
		cancel()
		lock := console.OutputLock()
		lock.Lock()
		fmt.Fprintln(out, "\n\nTutorial interrupted. Goodbye!")
		lock.Unlock()
		select {
		case <-done:
		case <-time.After(interruptGrace):
		}
		return nil
	}
}
