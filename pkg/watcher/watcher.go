package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/siteflow/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeTypeFlowFile is an exported site-flow document (*.flow.json)
	ChangeTypeFlowFile ChangeType = iota
	// ChangeTypeConfigFile is the siteflow.toml configuration file
	ChangeTypeConfigFile
)

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches a workspace directory for edits to exported flow
// documents, so flows changed outside the editor can be reloaded live.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	workspace string
	events    chan ChangeEvent
	done      chan struct{}
	mu        sync.Mutex
}

// NewFileWatcher creates a new file system watcher for a workspace directory
func NewFileWatcher(workspace string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:   watcher,
		workspace: workspace,
		events:    make(chan ChangeEvent, 100),
		done:      make(chan struct{}),
	}

	return fw, nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	if err := fw.watchFlowDirs(); err != nil {
		logging.Warn("failed to watch flow directories", "error", err)
	}

	logging.Info("started watching workspace", "path", fw.workspace)

	// Process events
	go fw.processEvents(ctx)

	return nil
}

// watchFlowDirs finds and watches every directory containing a flow export
// plus the workspace root itself (for siteflow.toml and new exports).
func (fw *FileWatcher) watchFlowDirs() error {
	flowDirs := map[string]bool{fw.workspace: true}

	err := filepath.Walk(fw.workspace, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}

		// Skip hidden directories such as .git
		if info.IsDir() && strings.HasPrefix(info.Name(), ".") && path != fw.workspace {
			return filepath.SkipDir
		}

		if !info.IsDir() && strings.HasSuffix(info.Name(), ".flow.json") {
			flowDirs[filepath.Dir(path)] = true
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to walk workspace: %w", err)
	}

	// Add all directories to watcher
	for dir := range flowDirs {
		if err := fw.watcher.Add(dir); err != nil {
			logging.Warn("failed to watch directory", "path", dir, "error", err)
		}
	}

	logging.Info("monitoring directories for flow exports", "count", len(flowDirs))
	return nil
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	// Batch events to avoid sending one event per file
	var flowFiles []string
	var configFiles []string

	flushTimer := time.NewTimer(100 * time.Millisecond)
	flushTimer.Stop()

	flush := func() {
		if len(configFiles) > 0 {
			fw.events <- ChangeEvent{
				Type:      ChangeTypeConfigFile,
				Paths:     configFiles,
				Timestamp: time.Now(),
			}
			configFiles = nil
		}
		if len(flowFiles) > 0 {
			fw.events <- ChangeEvent{
				Type:      ChangeTypeFlowFile,
				Paths:     flowFiles,
				Timestamp: time.Now(),
			}
			flowFiles = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			fw.watcher.Close()
			close(fw.events)
			close(fw.done)
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// Filter to only relevant file types
			name := filepath.Base(event.Name)

			if name == "siteflow.toml" {
				configFiles = append(configFiles, event.Name)
				flushTimer.Reset(100 * time.Millisecond)
			} else if strings.HasSuffix(name, ".flow.json") {
				flowFiles = append(flowFiles, event.Name)
				flushTimer.Reset(100 * time.Millisecond)
			}

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	close(fw.done)
	return fw.watcher.Close()
}
