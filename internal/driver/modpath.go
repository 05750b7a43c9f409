package driver

import (
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"

	"github.com/routegen/routegen/errors"
)

// modulePath reads the module path from the go.mod governing root, walking
// ancestors the way the go tool does.
func modulePath(root string) (string, error) {
	dir := root
	for {
		path := filepath.Join(dir, "go.mod")
		data, err := os.ReadFile(path)
		if err == nil {
			mf, err := modfile.ParseLax(path, data, nil)
			if err != nil {
				return "", errors.Wrapf(err, "failed to parse %s", path)
			}
			if mf.Module == nil || mf.Module.Mod.Path == "" {
				return "", errors.Newf("%s has no module declaration", path)
			}
			return mf.Module.Mod.Path, nil
		}
		if !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "failed to read %s", path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.Newf("no go.mod found above %s", root)
		}
		dir = parent
	}
}
