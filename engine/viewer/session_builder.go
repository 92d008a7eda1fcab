package viewer

import (
	"github.com/Carmen-Shannon/oxy-glb/engine/loader"
	"github.com/Carmen-Shannon/oxy-glb/status"
)

// SessionBuilderOption is a functional option for configuring a Session via NewSession.
type SessionBuilderOption func(*session)

// WithLoader is an option builder that sets the loader the session imports models with.
//
// Parameters:
//   - l: the loader
//
// Returns:
//   - SessionBuilderOption: a function that applies the loader option to a session
func WithLoader(l loader.Loader) SessionBuilderOption {
	return func(s *session) {
		s.loader = l
	}
}

// WithStatus is an option builder that sets the hub load progress and failures are reported on.
//
// Parameters:
//   - hub: the status hub
//
// Returns:
//   - SessionBuilderOption: a function that applies the status option to a session
func WithStatus(hub status.Hub) SessionBuilderOption {
	return func(s *session) {
		s.hub = hub
	}
}

// WithDefaultModel is an option builder that sets the file LoadDefault loads.
//
// Parameters:
//   - path: the model file path
//
// Returns:
//   - SessionBuilderOption: a function that applies the default model option to a session
func WithDefaultModel(path string) SessionBuilderOption {
	return func(s *session) {
		s.defaultModel = path
	}
}
