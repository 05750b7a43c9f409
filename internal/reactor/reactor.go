// Package reactor turns filesystem notifications into generation passes.
// Changes are debounced and coalesced per path, classified by scope, and
// handed to the driver on a single goroutine so passes never overlap.
package reactor

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/routegen/routegen/errors"
	"github.com/routegen/routegen/internal/config"
	"github.com/routegen/routegen/internal/driver"
	"github.com/routegen/routegen/internal/workspace"
	"github.com/routegen/routegen/logger"
)

// debounceInterval batches rapid-fire editor events into one pass.
const debounceInterval = 500 * time.Millisecond

// ChangeKind classifies one changed path.
type ChangeKind int

const (
	// ChangeIgnored is a path generation never reads.
	ChangeIgnored ChangeKind = iota
	// ChangeSource is a Go source file.
	ChangeSource
	// ChangeConfig is a project config file; its scope needs full
	// re-analysis.
	ChangeConfig
)

// Classify maps a changed path to its reaction class.
func Classify(path string) ChangeKind {
	base := filepath.Base(path)
	switch {
	case base == config.FileName:
		return ChangeConfig
	case filepath.Ext(base) == ".go":
		return ChangeSource
	default:
		return ChangeIgnored
	}
}

// Options tune reactor behavior. The zero value selects the defaults.
type Options struct {
	// Debounce overrides the event batching interval.
	Debounce time.Duration

	// PassesPerSecond caps pass frequency; 0 means 2/s.
	PassesPerSecond float64

	// OnResult is called after every completed pass.
	OnResult func(*driver.Result)
}

// Reactor owns the watcher loop for one scan root.
type Reactor struct {
	root     string
	cache    *workspace.Cache
	driver   *driver.Driver
	limiter  *rate.Limiter
	debounce time.Duration
	onResult func(*driver.Result)
}

// New creates a reactor over root, driving passes through d.
func New(root string, cache *workspace.Cache, d *driver.Driver, opts Options) *Reactor {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = debounceInterval
	}
	perSecond := opts.PassesPerSecond
	if perSecond <= 0 {
		perSecond = 2
	}
	return &Reactor{
		root:     root,
		cache:    cache,
		driver:   d,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		debounce: debounce,
		onResult: opts.OnResult,
	}
}

// Run watches the root until the context is canceled. Pass failures are
// logged and watching continues; only watcher breakage ends the loop.
func (r *Reactor) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer watcher.Close()

	if err := r.watchTree(watcher, r.root); err != nil {
		return err
	}
	logger.Infow("Watching for changes", logger.FieldDir, r.root)

	pending := make(map[string]fsnotify.Op)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := r.watchTree(watcher, event.Name); err != nil {
						logger.Warnw("Failed to watch new directory",
							logger.FieldDir, event.Name,
							logger.FieldError, err)
					}
					continue
				}
			}
			if Classify(event.Name) == ChangeIgnored {
				continue
			}
			pending[event.Name] |= event.Op
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			logger.Warnw("Watcher error", logger.FieldError, err)

		case <-fire:
			batch := pending
			pending = make(map[string]fsnotify.Op)
			fire = nil
			if err := r.Process(ctx, batch); err != nil {
				return err
			}
		}
	}
}

// Process classifies one coalesced batch and runs at most one pass for it.
// Exported so a single-shot caller can feed changes without a watcher.
func (r *Reactor) Process(ctx context.Context, batch map[string]fsnotify.Op) error {
	var changed []string
	full := false

	for path, op := range batch {
		switch Classify(path) {
		case ChangeConfig:
			governed := r.cache.InvalidateConfig(path)
			// Any in-flight pass ran under the old options.
			r.driver.Supersede()
			full = true
			logger.Infow("Config changed, full re-analysis scheduled",
				logger.FieldConfig, path,
				logger.FieldCount, len(governed))

		case ChangeSource:
			if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
				r.cache.RemoveFile(path)
				changed = append(changed, path)
				continue
			}
			contentChanged, err := r.cache.Touch(path)
			if err != nil {
				// Written then deleted within one batch.
				r.cache.RemoveFile(path)
				changed = append(changed, path)
				continue
			}
			if contentChanged {
				changed = append(changed, path)
			}
		}
	}

	if !full && len(changed) == 0 {
		return nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	var res *driver.Result
	var err error
	if full {
		res, err = r.driver.Run(ctx)
	} else {
		res, err = r.driver.RunChanged(ctx, changed)
	}
	if err != nil {
		logger.Errorw("Pass failed", logger.FieldError, err)
		return nil
	}
	if r.onResult != nil {
		r.onResult(res)
	}
	return nil
}

// watchTree subscribes to dir and every non-hidden subdirectory.
func (r *Reactor) watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if path != dir && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		return nil
	})
}
