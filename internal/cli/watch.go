package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/treelang/treelang"
	"github.com/treelang/treelang/internal/config"
	"github.com/treelang/treelang/internal/presentation/tui"
	"github.com/treelang/treelang/pkg/tree"
)

// settleDelay absorbs the burst of events an editor emits for one save.
const settleDelay = 100 * time.Millisecond

// Watch evaluates the document, then re-evaluates it after every change
// until interrupted. Editors replace files on save rather than writing
// in place, so the watch is registered on the directory and filtered by
// name.
func Watch(parent *SignalContext, cfg config.Config, opts EvalOptions) error {
	if opts.Path == "" || opts.Path == "-" {
		return fmt.Errorf("watch mode needs a file, not stdin")
	}

	logger := createLogger(cfg.Debug)
	tui.PrintBanner(treelang.Version)

	path, err := filepath.Abs(opts.Path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", opts.Path, err)
	}

	engine, cleanup, err := BuildEngine(parent, cfg, logger, EngineOptions{})
	if err != nil {
		return err
	}
	defer cleanup()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	logger.Info("Starting watcher", "path", path)
	printSystemMessage(opts.Out, "Watching '%s'.", opts.Path)

	evaluate := func() {
		wire, err := readSource(opts.Path)
		if err != nil {
			printSystemMessage(opts.Out, "error: %v", err)
			return
		}
		if opts.Repr {
			t, err := tree.ParseAny(wire)
			if err != nil {
				printSystemMessage(opts.Out, "error: invalid tree: %v", err)
				return
			}
			fmt.Fprintln(opts.Out, tree.Repr(t))
			printSystemMessage(opts.Out, "Waiting for changes...")
			return
		}
		result, err := engine.Eval(parent, wire)
		if err != nil {
			if isInterrupted(err) {
				return
			}
			logger.Error("Evaluation failed", "err", err)
			printSystemMessage(opts.Out, "error: %v", err)
			return
		}
		fmt.Fprintln(opts.Out, formatValue(result))
		printSystemMessage(opts.Out, "Waiting for changes...")
	}

	evaluate()

	var settle <-chan time.Time
	for {
		select {
		case <-parent.Done():
			logger.Info("Stopping watcher (signal received)", "signal", parent.Signal())
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path || !event.Op.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			logger.Info("Change detected, triggering reload", "event", event.String())
			settle = time.After(settleDelay)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error", "err", werr)
		case <-settle:
			settle = nil
			printSystemMessage(opts.Out, "Change detected in '%s'.", opts.Path)
			evaluate()
		}
	}
}
