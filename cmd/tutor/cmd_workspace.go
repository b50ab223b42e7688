package main

import (
	"fmt"
	"os"

	"cmdtutor/internal/config"
	"cmdtutor/internal/lesson"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var workspaceReset bool

// workspaceCmd prepares the practice files
var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Create the practice files the exercises use",
	Long: `Creates the Documents directory and the hidden file the exercises work
with, inside the configured working directory. Existing files are left
alone. With --reset, files created by earlier exercises are removed first
so every exercise can be done again.`,
	RunE: runWorkspace,
}

// lessonsCmd lists the lesson catalog
var lessonsCmd = &cobra.Command{
	Use:   "lessons",
	Short: "List the lessons and their exercise counts",
	RunE:  runLessons,
}

// configCmd groups configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the tutor configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

func runWorkspace(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	dir := resolveWorkDir(c)
	out := cmd.OutOrStdout()

	if workspaceReset {
		cat, err := loadCatalog(c)
		if err != nil {
			return err
		}
		if err := lesson.ResetWorkspace(dir, cat.Artifacts()); err != nil {
			return err
		}
		fmt.Fprintf(out, "🧹 Removed files from earlier exercises in %s\n", dir)
	}

	written, err := lesson.SeedWorkspace(dir)
	if err != nil {
		return err
	}
	if len(written) == 0 {
		fmt.Fprintf(out, "✅  Practice files already present in %s\n", dir)
		return nil
	}
	fmt.Fprintf(out, "📁  Created %d practice files in %s\n", len(written), dir)
	for _, p := range written {
		fmt.Fprintf(out, "  • %s\n", p)
	}
	return nil
}

func runLessons(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := loadCatalog(c)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "📚  Lessons (%s):\n", cat.Source())
	for i, l := range cat.Lessons() {
		fmt.Fprintf(out, "  %d. %s (%d exercises)\n", i+1, l.Title, len(l.Exercises))
		fmt.Fprintf(out, "     %s\n", l.Description)
	}
	fmt.Fprintf(out, "Total: %d exercises\n", cat.TotalExercises())
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := defaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️  %s already exists; leaving it unchanged\n", path)
		return nil
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✅  Wrote default configuration to %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
