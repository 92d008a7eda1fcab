package viewer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-glb/engine/exporter"
	"github.com/Carmen-Shannon/oxy-glb/engine/gltf"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
	"github.com/Carmen-Shannon/oxy-glb/status"
)

// quadGLB returns a GLB holding one quad made of two triangles.
func quadGLB(t *testing.T, name string) []byte {
	t.Helper()
	vertices := []model.GPUVertex{
		{Position: [3]float32{0, 0, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{1, 0, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{1, 1, 0}, Normal: [3]float32{0, 0, 1}},
		{Position: [3]float32{0, 1, 0}, Normal: [3]float32{0, 0, 1}},
	}
	imported := &model.ImportedModel{
		Name: name,
		Meshes: []model.ImportedMesh{{
			Name:          "quad",
			Mode:          4,
			Vertices:      vertices,
			Indices:       []uint32{0, 1, 2, 0, 2, 3},
			MaterialIndex: -1,
		}},
	}
	var buf bytes.Buffer
	if err := exporter.ExportGLB(&buf, imported); err != nil {
		t.Fatalf("ExportGLB: %v", err)
	}
	return buf.Bytes()
}

func TestSession_LoadReplaces(t *testing.T) {
	hub := status.NewHub()
	s := NewSession(WithStatus(hub))

	if _, ok := s.Current(); ok {
		t.Fatal("new session has a current model")
	}

	first, err := s.Load("one.glb", quadGLB(t, "one"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.Model.Name() != "one.glb" || first.Model.IndexCount(0) != 6 || first.Source != "one.glb" {
		t.Errorf("snapshot = %+v", first)
	}
	if last, _ := hub.Last(); last.Type != status.INFO {
		t.Errorf("last status = %+v, want INFO", last)
	}

	second, err := s.Load("one.glb", quadGLB(t, "one"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if second.Revision == first.Revision {
		t.Error("reload kept the revision")
	}
	if cur, ok := s.Current(); !ok || cur.Revision != second.Revision {
		t.Errorf("Current = %+v, want the second load", cur)
	}
}

func TestSession_FailedLoadKeepsCurrent(t *testing.T) {
	hub := status.NewHub()
	s := NewSession(WithStatus(hub))

	good, err := s.Load("good.glb", quadGLB(t, "good"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		data []byte
		kind gltf.FormatErrorKind
	}{
		{name: "truncated", data: []byte("glTF\x02\x00\x00\x00"), kind: gltf.KindStructural},
		{name: "bad json", data: []byte("{"), kind: gltf.KindSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Load(tt.name, tt.data)
			if !gltf.IsKind(err, tt.kind) {
				t.Fatalf("err = %v, want kind %v", err, tt.kind)
			}
			cur, ok := s.Current()
			if !ok || cur.Revision != good.Revision {
				t.Error("failed load replaced the current model")
			}
			if last, _ := hub.Last(); last.Type != status.ERROR {
				t.Errorf("last status = %+v, want ERROR", last)
			}
		})
	}
}

func TestSession_LoadDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.glb")
	if err := os.WriteFile(path, quadGLB(t, "default"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := NewSession(WithDefaultModel(path))
	if err := s.LoadDefault(); err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	cur, ok := s.Current()
	if !ok || cur.Model.Name() != "default" || cur.Source != path {
		t.Errorf("Current = %+v, %v", cur, ok)
	}

	s.Clear()
	if _, ok := s.Current(); ok {
		t.Error("Clear kept the model")
	}

	missing := NewSession(WithDefaultModel(filepath.Join(dir, "missing.glb")))
	if err := missing.LoadDefault(); err == nil {
		t.Error("LoadDefault of a missing file succeeded")
	}
	if _, ok := missing.Current(); ok {
		t.Error("failed default load left a model")
	}

	if err := NewSession().LoadDefault(); err != nil {
		t.Errorf("LoadDefault without a default = %v", err)
	}
}

func TestSession_UploadsDoNotAccumulate(t *testing.T) {
	s := NewSession()
	cached := func() map[string]model.Model { return s.Loader().Models() }

	for _, name := range []string{"a.glb", "b.glb", "b.glb", "c.glb"} {
		if _, err := s.Load(name, quadGLB(t, name)); err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		if got := cached(); len(got) != 1 || got[name] == nil {
			t.Fatalf("after %s cache holds %d models", name, len(got))
		}
	}

	if _, err := s.Load("broken.glb", []byte("{")); err == nil {
		t.Fatal("broken upload loaded")
	}
	if got := cached(); len(got) != 1 || got["c.glb"] == nil {
		t.Errorf("failed upload changed the cache: %d models", len(got))
	}

	path := filepath.Join(t.TempDir(), "file.glb")
	if err := os.WriteFile(path, quadGLB(t, "file"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := s.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := cached(); len(got) != 1 || got[path] == nil {
		t.Errorf("after LoadFile cache holds %d models", len(got))
	}

	if _, err := s.Load("d.glb", quadGLB(t, "d")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cached()) != 2 {
		t.Errorf("file model evicted by an upload: %d models", len(cached()))
	}
	s.Clear()
	if got := cached(); len(got) != 1 || got[path] == nil {
		t.Errorf("after Clear cache holds %d models", len(got))
	}
}
