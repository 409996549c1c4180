package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/scribeflow/scribeflow/internal/utils"

	"github.com/spf13/cobra"
)

var (
	cleanupDir     string
	keepLatest     int
	olderThanDays  int
	cleanupDryRun  bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up old workflow output directories",
	Long:  `Remove old workflow run folders based on age or count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cleanupDir); os.IsNotExist(err) {
			return fmt.Errorf("output directory %s does not exist", cleanupDir)
		}

		entries, err := os.ReadDir(cleanupDir)
		if err != nil {
			return fmt.Errorf("failed to read output directory: %w", err)
		}

		// Run directories are named <workflow>-YYYYMMDD-HHMMSS
		var runDirs []string
		for _, entry := range entries {
			if entry.IsDir() && runTimestamp(entry.Name()) != "" {
				runDirs = append(runDirs, entry.Name())
			}
		}
		if len(runDirs) == 0 {
			utils.LogInfo("No workflow run directories found")
			return nil
		}

		// Timestamps sort lexicographically, newest last
		sort.Slice(runDirs, func(i, j int) bool {
			return runTimestamp(runDirs[i]) < runTimestamp(runDirs[j])
		})

		toDelete := make(map[string]bool)
		if keepLatest > 0 && len(runDirs) > keepLatest {
			for _, dir := range runDirs[:len(runDirs)-keepLatest] {
				toDelete[dir] = true
			}
		}
		if olderThanDays > 0 {
			cutoff := time.Now().AddDate(0, 0, -olderThanDays)
			for _, dir := range runDirs {
				ts, err := time.ParseInLocation("20060102-150405", runTimestamp(dir), time.Local)
				if err == nil && ts.Before(cutoff) {
					toDelete[dir] = true
				}
			}
		}

		if len(toDelete) == 0 {
			utils.LogInfo("No directories to delete")
			return nil
		}

		utils.LogInfo("Found %d directories to delete:", len(toDelete))
		for _, dir := range runDirs {
			if toDelete[dir] {
				utils.LogInfo("- %s", dir)
			}
		}

		if cleanupDryRun {
			utils.LogInfo("Dry run, no directories were deleted")
			return nil
		}

		for _, dir := range runDirs {
			if !toDelete[dir] {
				continue
			}
			fullPath := filepath.Join(cleanupDir, dir)
			utils.LogVerbose("Deleting %s", fullPath)
			if err := os.RemoveAll(fullPath); err != nil {
				utils.LogError("Error deleting %s: %v", fullPath, err)
			}
		}

		utils.LogSuccess("Cleanup completed")
		return nil
	},
}

// runTimestamp extracts the YYYYMMDD-HHMMSS suffix of a run directory name,
// or returns "" when the name does not match
func runTimestamp(name string) string {
	parts := strings.Split(name, "-")
	if len(parts) < 3 {
		return ""
	}
	date := parts[len(parts)-2]
	clock := parts[len(parts)-1]
	if len(date) != 8 || len(clock) != 6 {
		return ""
	}
	return date + "-" + clock
}

func init() {
	cleanupCmd.Flags().StringVarP(&cleanupDir, "dir", "d", "", "Output directory to clean up (required)")
	cleanupCmd.Flags().IntVarP(&keepLatest, "keep-latest", "k", 0, "Keep this many latest directories")
	cleanupCmd.Flags().IntVarP(&olderThanDays, "older-than", "o", 0, "Delete directories older than this many days")
	cleanupCmd.Flags().BoolVarP(&cleanupDryRun, "dry-run", "n", false, "Show what would be deleted without actually deleting")

	_ = cleanupCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(cleanupCmd)
}
