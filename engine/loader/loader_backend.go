package loader

import (
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
)

// loaderBackend defines the generic interface for importing models from in-memory file contents.
// Concrete implementations (e.g., gltfLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Extensions returns the lower-case file extensions (with dot) the backend accepts.
	//
	// Returns:
	//   - []string: the accepted extensions
	Extensions() []string

	// Load performs a full model import from file contents.
	//
	// Parameters:
	//   - data: the file contents
	//   - name: the model name
	//
	// Returns:
	//   - *model.ImportedModel: the imported model data
	//   - error: error if loading fails
	Load(data []byte, name string) (*model.ImportedModel, error)
}
