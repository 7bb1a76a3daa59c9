package loader

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlLoaderBackendImpl decodes rigs from YAML. Unknown fields are rejected so that typos in a
// rig file surface as errors instead of silently dropped settings.
type yamlLoaderBackendImpl struct{}

var _ loaderBackend = &yamlLoaderBackendImpl{}

// newYAMLLoaderBackend creates a new YAML loader backend.
//
// Returns:
//   - loaderBackend: the loader backend for YAML rig files
func newYAMLLoaderBackend() loaderBackend {
	return &yamlLoaderBackendImpl{}
}

func (b *yamlLoaderBackendImpl) Load(path string) (*Rig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return b.LoadReader(f)
}

func (b *yamlLoaderBackendImpl) LoadReader(r io.Reader) (*Rig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var rig Rig
	if err := dec.Decode(&rig); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty rig document")
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &rig, nil
}
