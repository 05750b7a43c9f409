package driver

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/routegen/routegen/errors"
)

// manifestDir and manifestName locate the persisted pass manifest under the
// scan root.
const (
	manifestDir  = ".routegen"
	manifestName = "manifest.yaml"
)

// Manifest is the persisted record of the last completed pass. It warms the
// included-file set on startup so the first watch-mode change can be
// classified without a prior in-process pass.
type Manifest struct {
	PassID     string    `yaml:"pass_id"`
	ModulePath string    `yaml:"module_path"`
	Generated  time.Time `yaml:"generated"`

	Routes int `yaml:"routes"`
	Types  int `yaml:"types"`

	// Included lists the files reachable from at least one valid route at
	// the time of the pass.
	Included []string `yaml:"included"`

	// Outputs maps generator name to the written file path.
	Outputs map[string]string `yaml:"outputs"`
}

func manifestPath(root string) string {
	return filepath.Join(root, manifestDir, manifestName)
}

// LoadManifest reads the manifest under root. A missing manifest is not an
// error; the first pass simply runs cold.
func LoadManifest(root string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to read pass manifest")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to parse pass manifest")
	}
	return &m, nil
}

// SaveManifest writes the manifest under root, creating the state directory
// if needed.
func SaveManifest(root string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "failed to encode pass manifest")
	}

	dir := filepath.Join(root, manifestDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}
	if err := os.WriteFile(manifestPath(root), data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write pass manifest")
	}
	return nil
}
