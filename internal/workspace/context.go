// Package workspace holds the long-lived per-directory caches shared across
// generation passes: file membership, import resolution memoization, and the
// link from each directory to its governing config resolution.
//
// The caches are process-wide and mutated only through explicit invalidation
// entry points; the generation driver and change reactor receive the Cache
// explicitly rather than reaching for ambient globals.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/routegen/routegen/errors"
	"github.com/routegen/routegen/internal/config"
	"github.com/routegen/routegen/logger"
)

// importCacheSize bounds the per-directory import resolution cache.
const importCacheSize = 512

// FileRecord tracks one source file across passes.
type FileRecord struct {
	Path string

	// Included marks files transitively reachable from at least one valid
	// route. Diagnostics are only surfaced for included files.
	Included bool

	// Imports are the specifiers this file imports, recorded at last analysis.
	Imports []string

	// Digest is the content hash at last analysis, Version a monotonic
	// counter bumped on every recorded change. Both serve staleness checks.
	Digest  string
	Version int
}

// DirContext is the per-directory cache entry: file membership, the import
// resolution cache, and a back-reference to the governing config.
type DirContext struct {
	Dir string

	// Config is nil for directories with no applicable config.
	Config *config.Resolution

	files   map[string]*FileRecord
	imports *lru.Cache[string, Resolution]
	seen    map[string]struct{}
}

// Files returns the member file paths, sorted.
func (d *DirContext) Files() []string {
	out := make([]string, 0, len(d.files))
	for f := range d.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// SeenSpecifiers returns how many distinct specifiers this context has
// resolved since its cache was last dropped.
func (d *DirContext) SeenSpecifiers() int {
	return len(d.seen)
}

// dropImportCache clears resolutions and the seen-specifier set. Called when
// the governing config changes: stale resolutions may depend on changed
// options such as build tags.
func (d *DirContext) dropImportCache() {
	d.imports.Purge()
	d.seen = make(map[string]struct{})
}

// Cache is the process-wide directory context cache.
type Cache struct {
	mu       sync.Mutex
	dirs     map[string]*DirContext
	resolver *config.Resolver
	version  int
}

// NewCache creates an empty cache backed by the given config resolver.
func NewCache(resolver *config.Resolver) *Cache {
	return &Cache{
		dirs:     make(map[string]*DirContext),
		resolver: resolver,
	}
}

// Context returns the DirContext for a directory, creating it on demand.
func (c *Cache) Context(dir string) *DirContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contextLocked(dir)
}

func (c *Cache) contextLocked(dir string) *DirContext {
	if d, ok := c.dirs[dir]; ok {
		return d
	}

	imports, err := lru.New[string, Resolution](importCacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(errors.Wrap(err, "import cache"))
	}
	d := &DirContext{
		Dir:     dir,
		Config:  c.resolver.ResolveDir(dir),
		files:   make(map[string]*FileRecord),
		imports: imports,
		seen:    make(map[string]struct{}),
	}
	c.dirs[dir] = d
	logger.Debugw("Directory context created", logger.FieldDir, dir)
	return d
}

// AddFile attributes a file to its directory context, creating the record if
// needed, and clears cached resolution failures for relative specifiers that
// the new file might now satisfy.
func (c *Cache) AddFile(path string) *FileRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := c.contextLocked(filepath.Dir(path))
	rec, ok := d.files[path]
	if !ok {
		rec = &FileRecord{Path: path}
		d.files[path] = rec
		c.dropRelativeFailuresLocked()
	}
	return rec
}

// Record returns the file record for path, if it exists.
func (c *Cache) Record(path string) (*FileRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.dirs[filepath.Dir(path)]
	if !ok {
		return nil, false
	}
	rec, ok := d.files[path]
	return rec, ok
}

// Touch bumps a file's version and re-digests its content. Returns true when
// the content actually changed since the last recorded digest.
func (c *Cache) Touch(path string) (changed bool, err error) {
	rec := c.AddFile(path)

	digest, err := DigestFile(path)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if rec.Digest == digest {
		return false, nil
	}
	c.version++
	rec.Digest = digest
	rec.Version = c.version
	return true, nil
}

// RemoveFile drops a file from its directory's membership. When membership
// becomes empty the context is evicted entirely.
func (c *Cache) RemoveFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := filepath.Dir(path)
	d, ok := c.dirs[dir]
	if !ok {
		return
	}
	delete(d.files, path)
	if len(d.files) == 0 {
		delete(c.dirs, dir)
		c.resolver.Detach(dir)
		logger.Debugw("Directory context evicted", logger.FieldDir, dir)
	}
}

// InvalidateConfig handles a changed config file: the config resolution is
// dropped, every dependent context loses its import cache and seen-specifier
// set (membership is preserved), and contexts are re-linked to freshly
// resolved configs. Returns the affected directories.
func (c *Cache) InvalidateConfig(configPath string) []string {
	governed := c.resolver.Invalidate(configPath)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, dir := range governed {
		d, ok := c.dirs[dir]
		if !ok {
			continue
		}
		d.dropImportCache()
		d.Config = c.resolver.ResolveDir(dir)
	}
	return governed
}

// IncludedFiles returns all files currently flagged as included, sorted.
func (c *Cache) IncludedFiles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for _, d := range c.dirs {
		for path, rec := range d.files {
			if rec.Included {
				out = append(out, path)
			}
		}
	}
	sort.Strings(out)
	return out
}

// SetIncluded replaces the included flag across all records from a pass's
// computed reachability set.
func (c *Cache) SetIncluded(included map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range c.dirs {
		for path, rec := range d.files {
			_, ok := included[path]
			rec.Included = ok
		}
	}
}

// dropRelativeFailuresLocked clears cached resolution failures for relative
// specifiers in every context. A newly added file may satisfy them.
func (c *Cache) dropRelativeFailuresLocked() {
	for _, d := range c.dirs {
		for _, spec := range d.imports.Keys() {
			if !isRelative(spec) {
				continue
			}
			if res, ok := d.imports.Peek(spec); ok && res.Err != nil {
				d.imports.Remove(spec)
			}
		}
	}
}

// DigestFile returns the hex sha256 of a file's content.
func DigestFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to digest %s", path)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
