package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/scribeflow/scribeflow/internal/utils"
	"github.com/scribeflow/scribeflow/internal/workflow"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	watchDir          string
	watchWorkflowPath string
	watchSettleSec    int
)

// watchedExtensions are the media files the watcher reacts to
var watchedExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".webm": true,
	".wav": true, ".mp3": true, ".m4a": true, ".aac": true, ".flac": true,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and process new media files",
	Long: `Watch a directory for new media files and run the given workflow on
each one. Files are picked up once writes have settled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, manager, err := newRuntime()
		if err != nil {
			return err
		}
		defer manager.ReleaseAll()

		registry, err := newRegistry(manager)
		if err != nil {
			return err
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer func() {
			if err := watcher.Close(); err != nil {
				utils.LogDebug("Watcher close error: %v", err)
			}
		}()

		if err := watcher.Add(watchDir); err != nil {
			return err
		}
		utils.LogInfo("Watching %s for new media files", watchDir)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		settle := time.Duration(watchSettleSec) * time.Second

		// One timer per file; each write event resets it so the workflow
		// only starts once the file stops growing
		var mu sync.Mutex
		timers := make(map[string]*time.Timer)

		process := func(path string) {
			mu.Lock()
			delete(timers, path)
			mu.Unlock()

			utils.LogInfo("Processing %s", path)
			wf, err := workflow.LoadFromFile(watchWorkflowPath, registry)
			if err != nil {
				utils.LogError("Failed to load workflow: %v", err)
				return
			}
			wf.SetInputPath(path)
			if err := wf.Execute(ctx); err != nil {
				utils.LogError("Workflow failed for %s: %v", path, err)
			}
		}

		for {
			select {
			case <-ctx.Done():
				utils.LogInfo("Stopping watcher")
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				ext := strings.ToLower(filepath.Ext(event.Name))
				if !watchedExtensions[ext] {
					continue
				}

				path := event.Name
				mu.Lock()
				if timer, ok := timers[path]; ok {
					timer.Reset(settle)
				} else {
					timers[path] = time.AfterFunc(settle, func() { process(path) })
				}
				mu.Unlock()
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				utils.LogWarning("Watcher error: %v", err)
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "Directory to watch (required)")
	watchCmd.Flags().StringVarP(&watchWorkflowPath, "workflow", "w", "", "Workflow to run on new files (required)")
	watchCmd.Flags().IntVarP(&watchSettleSec, "settle", "s", 5, "Seconds a file must stay unchanged before processing")
	_ = watchCmd.MarkFlagRequired("dir")
	_ = watchCmd.MarkFlagRequired("workflow")
	rootCmd.AddCommand(watchCmd)
}
