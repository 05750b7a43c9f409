package driver

import (
	"os"
	"path/filepath"

	"github.com/routegen/routegen/errors"
)

// stageWrite writes content to a temp file next to path and returns the temp
// name. The caller renames it into place once every sibling document staged
// successfully, so a crashed or partly failed pass never leaves a
// half-written or unpaired document behind.
func stageWrite(path, content string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp output")
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.Wrapf(err, "failed to write %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.Wrapf(err, "failed to close %s", tmpName)
	}
	return tmpName, nil
}
