package workspace

import (
	"go/build"
	"strings"

	"github.com/routegen/routegen/logger"
)

// Resolution is a memoized specifier lookup result. A failed resolution is
// cached too (Err non-nil) so repeated lookups of a missing import stay cheap;
// failure entries are dropped when the owning config changes or a newly added
// file might satisfy a relative specifier.
type Resolution struct {
	// Specifier as written in the importing file.
	Specifier string
	// Dir is the resolved package directory on disk.
	Dir string
	// PkgPath is the canonical import path.
	PkgPath string

	Err error
}

// Resolve memoizes specifier resolution per (directory context, specifier)
// pair for the lifetime of the context's cache.
func (d *DirContext) Resolve(spec string) Resolution {
	if res, ok := d.imports.Get(spec); ok {
		return res
	}

	d.seen[spec] = struct{}{}
	res := resolveImport(spec, d.Dir, d.buildTags())
	d.imports.Add(spec, res)

	if res.Err != nil {
		logger.Debugw("Import resolution failed",
			logger.FieldSpecifier, spec,
			logger.FieldDir, d.Dir,
			logger.FieldError, res.Err)
	}
	return res
}

func (d *DirContext) buildTags() []string {
	if d.Config == nil {
		return nil
	}
	return d.Config.Options.BuildTags
}

// resolveImport locates the package a specifier refers to, relative to the
// importing directory. Build tags come from the governing config since
// path resolution can depend on them.
func resolveImport(spec, fromDir string, tags []string) Resolution {
	ctxt := build.Default
	ctxt.BuildTags = append(ctxt.BuildTags[:len(ctxt.BuildTags):len(ctxt.BuildTags)], tags...)

	pkg, err := ctxt.Import(spec, fromDir, build.FindOnly)
	res := Resolution{Specifier: spec, Err: err}
	if pkg != nil {
		res.Dir = pkg.Dir
		res.PkgPath = pkg.ImportPath
	}
	return res
}

func isRelative(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}
