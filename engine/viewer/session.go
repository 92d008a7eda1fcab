// Package viewer holds the state of a running model viewer.
package viewer

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-glb/engine/loader"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
	"github.com/Carmen-Shannon/oxy-glb/status"

	"github.com/google/uuid"
)

// Snapshot is the model a session displays, stamped with the load that produced it.
type Snapshot struct {
	// Revision changes on every successful load, including reloads of the same file.
	Revision uuid.UUID

	// Model is the displayed model.
	Model model.Model

	// Source is the upload name or file path the model came from.
	Source string

	// LoadedAt is when the load finished.
	LoadedAt time.Time
}

// session is the implementation of the Session interface.
type session struct {
	mu      sync.RWMutex
	current *Snapshot
	// upload is the loader cache key of the current model when it came from Load, "" otherwise.
	upload string

	loader       loader.Loader
	hub          status.Hub
	defaultModel string
}

// Session owns the model currently shown by the viewer.
// Loads are all-or-nothing: a failed load leaves the previous model in place and reports the
// failure on the status hub.
type Session interface {
	// Load imports model file contents and makes the result current.
	//
	// Parameters:
	//   - name: the upload name, used as model name and cache key
	//   - data: GLB or glTF JSON contents
	//
	// Returns:
	//   - Snapshot: the new current snapshot
	//   - error: the import error; the current model is unchanged
	Load(name string, data []byte) (Snapshot, error)

	// LoadFile imports a model file from disk and makes the result current.
	//
	// Parameters:
	//   - path: the file path
	//
	// Returns:
	//   - Snapshot: the new current snapshot
	//   - error: the import error; the current model is unchanged
	LoadFile(path string) (Snapshot, error)

	// LoadDefault loads the configured default model. Without one configured it does nothing.
	// A failure is logged and leaves the session as it was.
	//
	// Returns:
	//   - error: the import error
	LoadDefault() error

	// Current returns the displayed snapshot.
	//
	// Returns:
	//   - Snapshot: the snapshot
	//   - bool: false when no model has been loaded
	Current() (Snapshot, bool)

	// Clear drops the current model.
	Clear()

	// Loader returns the loader backing the session.
	Loader() loader.Loader
}

var _ Session = &session{}

// NewSession creates an empty Session with the specified options applied.
// Without WithLoader the session uses a glTF loader with default settings; without WithStatus
// it reports to a hub nobody listens to.
//
// Parameters:
//   - options: a variadic list of SessionBuilderOption functions
//
// Returns:
//   - Session: the session
func NewSession(options ...SessionBuilderOption) Session {
	s := &session{}
	for _, opt := range options {
		opt(s)
	}
	if s.loader == nil {
		s.loader = loader.NewLoader(loader.BackendTypeGLTF)
	}
	if s.hub == nil {
		s.hub = status.NewHub()
	}
	return s
}

func (s *session) Load(name string, data []byte) (Snapshot, error) {
	s.hub.Progress(0, "Loading %s (%d bytes)", name, len(data))
	m, err := s.loader.LoadBytes(name, data)
	return s.commit(name, true, m, err)
}

func (s *session) LoadFile(path string) (Snapshot, error) {
	s.hub.Progress(0, "Loading %s", path)
	m, err := s.loader.Load(path)
	return s.commit(path, false, m, err)
}

func (s *session) LoadDefault() error {
	if s.defaultModel == "" {
		return nil
	}
	if _, err := s.LoadFile(s.defaultModel); err != nil {
		log.Printf("[Viewer] Failed to load default model %q: %v", s.defaultModel, err)
		return err
	}
	return nil
}

// commit makes m current, or reports err and keeps the current model.
// Uploaded models are only cached while they are displayed; files stay cached for reloads.
func (s *session) commit(source string, uploaded bool, m model.Model, err error) (Snapshot, error) {
	if err == nil {
		var revision uuid.UUID
		if revision, err = uuid.NewRandom(); err == nil {
			snap := Snapshot{Revision: revision, Model: m, Source: source, LoadedAt: time.Now()}
			s.mu.Lock()
			s.current = &snap
			if s.upload != "" && (!uploaded || s.upload != source) {
				s.loader.Evict(s.upload)
			}
			s.upload = ""
			if uploaded {
				s.upload = source
			}
			s.mu.Unlock()

			s.hub.Info("Loaded %s: %d meshes, %d materials", source, m.MeshCount(), len(m.ImportedMaterials()))
			return snap, nil
		}
		err = fmt.Errorf("failed to create revision: %w", err)
	}

	s.hub.Error("Failed to load %s: %v", source, err)
	return Snapshot{}, err
}

func (s *session) Current() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Snapshot{}, false
	}
	return *s.current, true
}

func (s *session) Clear() {
	s.mu.Lock()
	s.current = nil
	if s.upload != "" {
		s.loader.Evict(s.upload)
		s.upload = ""
	}
	s.mu.Unlock()
	s.hub.Info("Model cleared")
}

func (s *session) Loader() loader.Loader {
	return s.loader
}
