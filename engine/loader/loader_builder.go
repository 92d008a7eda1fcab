package loader

import (
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
	"github.com/Carmen-Shannon/oxy-glb/engine/profiler"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithExtensionRegistry is an option builder that sets the extension registry used for imports.
// Defaults to NewDefaultExtensionRegistry.
//
// Parameters:
//   - registry: the extension registry
//
// Returns:
//   - LoaderBuilderOption: a function that applies the registry option to a loader
func WithExtensionRegistry(registry ExtensionRegistry) LoaderBuilderOption {
	return func(l *loader) {
		l.registry = registry
	}
}

// WithSmoothNormals is an option builder that enables smooth normal generation for triangle
// primitives without a NORMAL attribute. When disabled such vertices get the up normal (0,1,0).
//
// Parameters:
//   - enabled: whether to generate normals
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithSmoothNormals(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.smoothNormals = enabled
	}
}

// WithGenerateTangents is an option builder that enables tangent generation for triangle
// primitives without a TANGENT attribute.
//
// Parameters:
//   - enabled: whether to generate tangents
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithGenerateTangents(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.generateTangents = enabled
	}
}

// WithWorkers is an option builder that sets the maximum number of parallel imports in LoadAll.
//
// Parameters:
//   - n: the worker count (at least 1)
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = n
	}
}

// WithProfiler is an option builder that records every import on a Profiler.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - LoaderBuilderOption: a function that applies the profiler option to a loader
func WithProfiler(p *profiler.Profiler) LoaderBuilderOption {
	return func(l *loader) {
		l.profiler = p
	}
}

// WithDebug is an option builder that logs a summary line for every import.
//
// Parameters:
//   - enabled: whether to log import summaries
//
// Returns:
//   - LoaderBuilderOption: a function that applies the debug option to a loader
func WithDebug(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.debug = enabled
	}
}

// WithModel is an option builder that pre-populates the model cache with a model.
//
// Parameters:
//   - key: the cache key for the model
//   - model: the model to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the model option to a loader
func WithModel(key string, model model.Model) LoaderBuilderOption {
	return func(l *loader) {
		l.modelCache[key] = model
	}
}
