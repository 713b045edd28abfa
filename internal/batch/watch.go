// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"archivist/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for a burst of file events to
// settle before it rescans.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	MaxDepth  int
	OutputDir string
	Debounce  time.Duration
	// OnRun is called after every run that processed at least one archive.
	OnRun func(*Summary)
}

// Watch processes every archive under root, then keeps watching the tree
// and reprocesses archives whose files change. It returns when ctx is done.
func (p *Processor) Watch(ctx context.Context, root string, opts WatchOptions) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, root, opts.MaxDepth); err != nil {
		return err
	}

	seen := map[string]string{}
	if err := p.runChanged(ctx, root, opts, seen); err != nil {
		return err
	}

	timer := time.NewTimer(opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignoreEvent(event) {
				continue
			}
			p.logger.Debug("file event", logging.String("name", event.Name), logging.String("op", event.Op.String()))
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name, opts.MaxDepth); err != nil {
						p.logger.Warn("could not watch new folder", logging.String("path", event.Name), logging.Error(err))
					}
				}
			}
			timer.Reset(opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Error("fsnotify error", logging.Error(err))

		case <-timer.C:
			if err := p.runChanged(ctx, root, opts, seen); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				p.logger.Error("watch run failed", logging.Error(err))
			}
		}
	}
}

// runChanged scans root and processes the archives whose fingerprint
// differs from the one recorded in seen.
func (p *Processor) runChanged(ctx context.Context, root string, opts WatchOptions, seen map[string]string) error {
	archives, err := Scan(root, opts.MaxDepth)
	if err != nil {
		return err
	}
	var changed []Archive
	for _, a := range archives {
		fp := fingerprint(a.Dir)
		if seen[a.Name] == fp {
			continue
		}
		seen[a.Name] = fp
		changed = append(changed, a)
	}
	if len(changed) == 0 {
		return nil
	}
	summary, err := p.Run(ctx, changed, opts.OutputDir)
	if summary != nil && opts.OnRun != nil {
		opts.OnRun(summary)
	}
	return err
}

// fingerprint summarizes the names, sizes and modification times of the
// files directly inside dir.
func fingerprint(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%s:%d:%d;", e.Name(), info.Size(), info.ModTime().UnixNano())
	}
	return b.String()
}

func ignoreEvent(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return true
	}
	return event.Op == fsnotify.Chmod
}

// addTree watches dir and its non-hidden sub-folders down to depth levels.
func addTree(watcher *fsnotify.Watcher, dir string, depth int) error {
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if depth <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			if err := addTree(watcher, filepath.Join(dir, e.Name()), depth-1); err != nil {
				return err
			}
		}
	}
	return nil
}
