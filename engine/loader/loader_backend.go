package loader

import "io"

// loaderBackend defines the generic interface for decoding rigs from files or streams.
// Concrete implementations (e.g., yamlLoaderBackendImpl) handle format-specific details.
// Backends only decode; validation happens in the loader.
type loaderBackend interface {
	// Load decodes a rig from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *Rig: the decoded rig
	//   - error: error if reading or decoding fails
	Load(path string) (*Rig, error)

	// LoadReader decodes a rig from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing rig data
	//
	// Returns:
	//   - *Rig: the decoded rig
	//   - error: error if decoding fails
	LoadReader(r io.Reader) (*Rig, error)
}
