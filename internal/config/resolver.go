package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"github.com/routegen/routegen/errors"
	"github.com/routegen/routegen/logger"
)

// Resolution is the parsed, verified configuration governing one or more
// directories. Identified by the absolute path of its config file; multiple
// directories may share one Resolution.
type Resolution struct {
	// Path is the absolute path of the config file.
	Path string
	// Dir is the directory containing the config file. Include/Exclude globs
	// are interpreted relative to it.
	Dir string

	Options Options

	// Malformed marks a config that failed to parse. Governed directories
	// fall back to default options; a diagnostic is recorded on the resolver.
	Malformed bool

	// Verified confirms the include/exclude rules were checked against every
	// governed directory.
	Verified bool

	dirs map[string]struct{}
}

// Covers reports whether files in dir are inside this config's include set.
// A malformed config covers everything under its directory (default options).
func (r *Resolution) Covers(dir string) bool {
	rel, err := filepath.Rel(r.Dir, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	// Probe with a representative source file so that file-level globs such
	// as "api/*.go" also count as covering the directory.
	probe := "_.go"
	if rel != "." {
		probe = filepath.ToSlash(rel) + "/_.go"
	}

	for _, pattern := range r.Options.Exclude {
		if ok, _ := doublestar.Match(pattern, probe); ok {
			return false
		}
	}
	if len(r.Options.Include) == 0 {
		return true
	}
	for _, pattern := range r.Options.Include {
		if ok, _ := doublestar.Match(pattern, probe); ok {
			return true
		}
	}
	return false
}

// CoversFile reports whether a single source file is inside the include set.
func (r *Resolution) CoversFile(file string) bool {
	rel, err := filepath.Rel(r.Dir, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range r.Options.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	if len(r.Options.Include) == 0 {
		return true
	}
	for _, pattern := range r.Options.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// Dirs returns the directories currently attributed to this resolution, sorted.
func (r *Resolution) Dirs() []string {
	out := make([]string, 0, len(r.dirs))
	for d := range r.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Diagnostic is a non-fatal problem attributed to a config file.
type Diagnostic struct {
	Path    string
	Message string
}

// Resolver locates and caches the governing Resolution for directories.
// It is the process-wide config cache; invalidation happens only through
// Invalidate.
type Resolver struct {
	mu     sync.Mutex
	byPath map[string]*Resolution
	diags  []Diagnostic
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{byPath: make(map[string]*Resolution)}
}

// ResolveFile returns the Resolution governing the file's directory, or nil.
func (r *Resolver) ResolveFile(file string) *Resolution {
	return r.ResolveDir(filepath.Dir(file))
}

// ResolveDir searches ancestor directories upward from dir for a config file
// that covers dir. A found config that does not cover dir is skipped and the
// search continues upward: a config must target the directory it governs.
// When two ancestor configs both cover dir, the nearest ancestor wins.
// Returns nil when no governing config exists.
func (r *Resolver) ResolveDir(dir string) *Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := dir
	for {
		candidate := filepath.Join(cur, FileName)
		if _, err := os.Stat(candidate); err == nil {
			res := r.load(candidate)
			if res.Covers(dir) {
				res.dirs[dir] = struct{}{}
				res.Verified = true
				return res
			}
			logger.Debugw("Config does not cover directory, continuing ancestor search",
				logger.FieldConfig, candidate,
				logger.FieldDir, dir)
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return nil
		}
		cur = parent
	}
}

// Invalidate drops the cached Resolution for a config file and returns the
// directories it governed. Callers re-resolve those directories and re-link
// their contexts.
func (r *Resolver) Invalidate(configPath string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.byPath[configPath]
	if !ok {
		return nil
	}
	delete(r.byPath, configPath)
	return res.Dirs()
}

// Detach removes a directory from whatever resolution governs it. Used when
// a directory context is evicted.
func (r *Resolver) Detach(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.byPath {
		delete(res.dirs, dir)
	}
}

// Verify re-checks every governed directory against its config's
// include/exclude rules and re-resolves misattributed directories against
// ancestor configs. Returns the directories that moved.
func (r *Resolver) Verify() []string {
	r.mu.Lock()
	var stale []string
	for _, res := range r.byPath {
		for d := range res.dirs {
			if !res.Covers(d) {
				delete(res.dirs, d)
				stale = append(stale, d)
			}
		}
		res.Verified = true
	}
	r.mu.Unlock()

	sort.Strings(stale)
	for _, d := range stale {
		r.ResolveDir(d)
	}
	return stale
}

// Diagnostics drains the accumulated config diagnostics.
func (r *Resolver) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.diags
	r.diags = nil
	return out
}

// load parses a config file, caching by path. Malformed files surface as a
// diagnostic and govern with default options rather than failing resolution.
func (r *Resolver) load(path string) *Resolution {
	if res, ok := r.byPath[path]; ok {
		return res
	}

	res := &Resolution{
		Path: path,
		Dir:  filepath.Dir(path),
		dirs: make(map[string]struct{}),
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		r.recordMalformed(res, errors.Wrapf(err, "failed to read config file %s", path))
	} else if err := v.Unmarshal(&res.Options); err != nil {
		r.recordMalformed(res, errors.Wrapf(err, "failed to unmarshal config from %s", path))
	}

	r.byPath[path] = res
	return res
}

func (r *Resolver) recordMalformed(res *Resolution, err error) {
	res.Malformed = true
	res.Options = Default()
	r.diags = append(r.diags, Diagnostic{Path: res.Path, Message: err.Error()})
	logger.Warnw("Malformed config, using defaults",
		logger.FieldConfig, res.Path,
		logger.FieldError, err)
}
