package web

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/exporter"
	"github.com/Carmen-Shannon/oxy-glb/engine/gltf"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
	"github.com/Carmen-Shannon/oxy-glb/engine/viewer"
	"github.com/Carmen-Shannon/oxy-glb/webutils"

	"github.com/gorilla/mux"
	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrNoModel is reported when the session has nothing loaded.
	ErrNoModel = errors.New("no model loaded")

	// ErrUnknownSlot is reported for a texture slot name that does not exist or is empty.
	ErrUnknownSlot = errors.New("no texture in slot")
)

// statusOf maps an error to the HTTP status it is reported with.
func statusOf(err error) int {
	var formatErr *gltf.FormatError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &formatErr):
		return http.StatusBadRequest
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrNoModel),
		errors.Is(err, ErrUnknownSlot),
		errors.Is(err, model.ErrMeshOutOfRange),
		errors.Is(err, model.ErrMaterialOutOfRange),
		errors.Is(err, common.ErrNoImageData):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	webutils.WriteError(w, statusOf(err), err)
}

func (s *server) current() (viewer.Snapshot, error) {
	snap, ok := s.session.Current()
	if !ok {
		return snap, ErrNoModel
	}
	return snap, nil
}

func (s *server) handleModel(w http.ResponseWriter, r *http.Request) {
	snap, err := s.current()
	if err != nil {
		writeError(w, err)
		return
	}
	webutils.WriteJson(w, newModelJSON(snap))
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, name, err := webutils.ReadFormFile(w, r, "file", s.cfg.MaxUploadSize)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, err)
		} else {
			webutils.WriteError(w, http.StatusBadRequest, err)
		}
		return
	}

	snap, err := s.session.Load(name, data)
	if err != nil {
		writeError(w, pkgerrors.Wrapf(err, "Failed to load %q", name))
		return
	}
	webutils.WriteJson(w, newModelJSON(snap))
}

func (s *server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.session.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.current()
	if err != nil {
		writeError(w, err)
		return
	}

	var buffer bytes.Buffer
	if err := exporter.ExportGLB(&buffer, snap.Model.Imported()); err != nil {
		writeError(w, pkgerrors.Wrapf(err, "Failed to export %q", snap.Model.Name()))
		return
	}
	name := strings.TrimSuffix(filepath.Base(snap.Model.Name()), filepath.Ext(snap.Model.Name())) + ".glb"
	webutils.WriteFile(w, &buffer, name, "model/gltf-binary")
}

// meshBuffer serves one of a mesh's GPU buffers.
func (s *server) meshBuffer(w http.ResponseWriter, r *http.Request, read func(m model.Model, mesh int) ([]byte, error)) {
	snap, err := s.current()
	if err != nil {
		writeError(w, err)
		return
	}
	mesh, err := strconv.Atoi(mux.Vars(r)["mesh"])
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, fmt.Errorf("mesh %q is not an integer", mux.Vars(r)["mesh"]))
		return
	}

	data, err := read(snap.Model, mesh)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("X-Model-Revision", snap.Revision.String())
	webutils.WriteBinary(w, data, "application/octet-stream")
}

func (s *server) handleVertices(w http.ResponseWriter, r *http.Request) {
	s.meshBuffer(w, r, func(m model.Model, mesh int) ([]byte, error) {
		w.Header().Set("X-Vertex-Stride", strconv.Itoa(model.GPUVertexSize))
		return m.VertexData(mesh)
	})
}

func (s *server) handleIndices(w http.ResponseWriter, r *http.Request) {
	s.meshBuffer(w, r, func(m model.Model, mesh int) ([]byte, error) {
		return m.IndexData(mesh)
	})
}

func (s *server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	snap, err := s.current()
	if err != nil {
		writeError(w, err)
		return
	}

	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["material"])
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, fmt.Errorf("material %q is not an integer", vars["material"]))
		return
	}
	materials := snap.Model.ImportedMaterials()
	if index < 0 || index >= len(materials) {
		writeError(w, fmt.Errorf("%w: %d (have %d)", model.ErrMaterialOutOfRange, index, len(materials)))
		return
	}

	// The texture is copied so decoding does not write dimensions into the shared model.
	tex := materials[index].TextureSlot(vars["slot"])
	if tex == nil {
		writeError(w, fmt.Errorf("%w %q of material %d", ErrUnknownSlot, vars["slot"], index))
		return
	}
	texCopy := *tex

	img, err := texCopy.Thumbnail(s.cfg.ThumbnailSize)
	if err != nil {
		writeError(w, pkgerrors.Wrapf(err, "Failed to decode %q", texCopy.Name))
		return
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		writeError(w, pkgerrors.Wrapf(err, "Failed to encode thumbnail"))
		return
	}
	webutils.WriteBinary(w, buffer.Bytes(), "image/png")
}

func (s *server) handleExtensions(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, s.session.Loader().Registry().Names())
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	last, ok := s.hub.Last()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	webutils.WriteJson(w, last)
}
