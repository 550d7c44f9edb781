package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/lockfile"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/paths"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/ui"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Re-validate the planning root whenever its files change",
		GroupID: "views",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("debounce") {
				debounce = a.settings.WatchDebounce
			}
			dir := paths.LocatePlanningDir(a.root)
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				return fmt.Errorf("planning root %s does not exist", a.rel(dir))
			}

			validate := func() {
				report, err := a.store.Validate(ctx)
				if report == nil {
					fmt.Fprintf(a.errOut, "Error: %v\n", err)
					return
				}
				if a.jsonOutput() {
					_ = outputJSON(a.out, report)
					return
				}
				a.printReport(report, err)
				if err != nil {
					fmt.Fprintln(a.out, ui.RenderFail(err.Error()))
				}
			}

			validate()
			fmt.Fprintf(a.errOut, "\nWatching %s for changes... (Press Ctrl+C to exit)\n", a.rel(dir))
			return watchTree(ctx, dir, debounce, a.log, func() {
				validate()
				fmt.Fprintf(a.errOut, "\nWatching for changes... (Press Ctrl+C to exit)\n")
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before re-validating")
	return cmd
}

// watchTree calls onChange once per burst of changes to object files under
// dir, after debounce has passed without further events. Directories created
// while watching are added. It returns nil when ctx ends.
func watchTree(ctx context.Context, dir string, debounce time.Duration, log *slog.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := addTree(w, dir); err != nil {
		return err
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(w, event.Name); err != nil {
						log.Warn("watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			if !relevantEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		}
	}
}

// relevantEvent skips the lock file and editor droppings.
func relevantEvent(e fsnotify.Event) bool {
	if e.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(e.Name)
	if base == lockfile.FileName || strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return strings.HasSuffix(base, ".md") || filepath.Ext(base) == "" || e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename)
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}
