package loader

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-glb/engine/model"
	"github.com/Carmen-Shannon/oxy-glb/engine/profiler"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// ErrUnsupportedFormat is returned for a path whose extension no backend accepts.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	modelCache map[string]model.Model

	backend  loaderBackend
	registry ExtensionRegistry
	profiler *profiler.Profiler

	smoothNormals    bool
	generateTangents bool
	workers          int
	debug            bool
}

// Loader defines the public-facing interface for loading and caching 3D models.
// It abstracts the file format (glTF, GLB, etc.) behind a generic backend and
// manages a cache of previously loaded models.
type Loader interface {
	// Load imports a model file and caches the result.
	// If the model is already cached (by file path), the cached version is returned.
	// The backend is selected based on the file extension (.gltf/.glb → glTF backend).
	//
	// Parameters:
	//   - path: the file path to the model file
	//
	// Returns:
	//   - model.Model: the loaded and cached model
	//   - error: error if loading fails
	Load(path string) (model.Model, error)

	// LoadBytes imports a model from in-memory file contents and caches it by the given name,
	// replacing any model previously cached under that name. Nothing is cached on failure.
	//
	// Parameters:
	//   - name: the cache key and model name
	//   - data: the GLB or glTF JSON contents
	//
	// Returns:
	//   - model.Model: the loaded model
	//   - error: error if loading fails
	LoadBytes(name string, data []byte) (model.Model, error)

	// LoadAll loads several model files in parallel on a bounded worker pool.
	// Every path is attempted; results keep the order of paths with nil entries for failures.
	//
	// Parameters:
	//   - paths: the file paths to load
	//
	// Returns:
	//   - []model.Model: one entry per path
	//   - error: the error of the first failed path, in path order
	LoadAll(paths []string) ([]model.Model, error)

	// Get retrieves a cached model by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - model.Model: the cached model or nil
	Get(name string) model.Model

	// Models returns a copy of the model cache.
	//
	// Returns:
	//   - map[string]model.Model: all cached models keyed by name
	Models() map[string]model.Model

	// Evict removes a model from the cache.
	//
	// Parameters:
	//   - name: the cache key
	//
	// Returns:
	//   - bool: true if a model was removed
	Evict(name string) bool

	// Registry returns the extension registry used for imports.
	//
	// Returns:
	//   - ExtensionRegistry: the registry
	Registry() ExtensionRegistry
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:         sync.RWMutex{},
		modelCache: make(map[string]model.Model),
		workers:    4,
	}

	for _, option := range options {
		option(l)
	}

	if l.registry == nil {
		l.registry = NewDefaultExtensionRegistry()
	}
	if l.workers < 1 {
		l.workers = 1
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(newGLTFImporter(l.registry, l.smoothNormals, l.generateTangents))
	}
	return l
}

func (l *loader) Load(path string) (model.Model, error) {
	l.mu.RLock()
	if cached, ok := l.modelCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m, err := l.importModel(backend, data, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.mu.Lock()
	l.modelCache[path] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) LoadBytes(name string, data []byte) (model.Model, error) {
	m, err := l.importModel(l.backend, data, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", name, err)
	}

	l.mu.Lock()
	l.modelCache[name] = m
	l.mu.Unlock()

	return m, nil
}

func (l *loader) LoadAll(paths []string) ([]model.Model, error) {
	results := make([]model.Model, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	errs := make([]error, len(paths))
	pool := worker.NewDynamicWorkerPool(min(l.workers, len(paths)), len(paths), time.Second)
	defer pool.Stop()

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		idx, p := i, path
		pool.SubmitTask(worker.Task{
			ID:      idx,
			Payload: p,
			Do: func() (any, error) {
				defer wg.Done()
				results[idx], errs[idx] = l.Load(p)
				return results[idx], errs[idx]
			},
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (l *loader) Get(name string) model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.modelCache[name]
}

func (l *loader) Models() map[string]model.Model {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.Model, len(l.modelCache))
	for k, v := range l.modelCache {
		result[k] = v
	}
	return result
}

func (l *loader) Evict(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.modelCache[name]
	delete(l.modelCache, name)
	return ok
}

func (l *loader) Registry() ExtensionRegistry {
	return l.registry
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Currently only glTF/GLB is supported.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if l.backend == nil || !slices.Contains(l.backend.Extensions(), ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return l.backend, nil
}

// importModel runs the backend import and wraps the result in a Model.
func (l *loader) importModel(backend loaderBackend, data []byte, name string) (model.Model, error) {
	if backend == nil {
		return nil, ErrUnsupportedFormat
	}

	var sample profiler.Sample
	if l.profiler != nil {
		sample = l.profiler.Start()
	}

	imported, err := backend.Load(data, name)

	if l.profiler != nil {
		l.profiler.Record(name, len(data), sample, err)
	}
	if err != nil {
		return nil, err
	}

	if l.debug {
		vertices := 0
		for i := range imported.Meshes {
			vertices += len(imported.Meshes[i].Vertices)
		}
		log.Printf("[Loader] imported %q: %d meshes, %d vertices, %d materials, %d nodes",
			imported.Name, len(imported.Meshes), vertices, len(imported.Materials), len(imported.Nodes))
	}

	return model.NewModel(model.WithImportedModel(imported)), nil
}
