package model

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-glb/common"

	"github.com/go-gl/mathgl/mgl32"
)

func testImported() *ImportedModel {
	vertices := []GPUVertex{
		{Position: [3]float32{-1, 0, 0}, Normal: [3]float32{0, 1, 0}, TexCoord: [2]float32{0.25, 0.75}, Color: [4]float32{1, 1, 1, 1}, Tangent: [4]float32{1, 0, 0, -1}},
		{Position: [3]float32{1, 0, 0}},
		{Position: [3]float32{0, 2, 0}},
	}
	return &ImportedModel{
		Name: "imported",
		Meshes: []ImportedMesh{
			{Name: "a", Vertices: vertices, Indices: []uint32{0, 1, 2}, MaterialIndex: 0},
			{Name: "b", Vertices: vertices, Indices: []uint32{2, 1, 0}, MaterialIndex: -1},
			{Name: "c", Vertices: vertices, Indices: []uint32{0}, MaterialIndex: 4},
		},
		Materials: []common.ImportedMaterial{common.DefaultImportedMaterial("paint")},
		Bounds:    common.BoundsOf([][3]float32{{-1, 0, 0}, {1, 2, 0}}),
	}
}

func TestNewModel_Empty(t *testing.T) {
	m := NewModel()
	if m.Name() != "" || m.MeshCount() != 0 || m.Imported() == nil {
		t.Errorf("empty model = %q, %d meshes", m.Name(), m.MeshCount())
	}
	if m.FitTransform() != mgl32.Ident4() {
		t.Error("empty model fit is not identity")
	}
	if m.Imported().Scene != -1 || !m.Bounds().IsEmpty() {
		t.Errorf("empty model imported = %+v", m.Imported())
	}
}

func TestModel_Options(t *testing.T) {
	fit := mgl32.Scale3D(3, 3, 3)
	m := NewModel(WithImportedModel(testImported()), WithName("renamed"), WithFitTransform(fit))
	if m.Name() != "renamed" {
		t.Errorf("Name = %q", m.Name())
	}
	if m.FitTransform() != fit {
		t.Error("WithFitTransform did not override the derived fit")
	}

	if NewModel(WithImportedModel(testImported())).Name() != "imported" {
		t.Error("name not taken from the imported model")
	}
	if NewModel(WithImportedModel(nil)).Imported() == nil {
		t.Error("nil imported model replaced the empty one")
	}
}

func TestModel_MeshesAndMaterials(t *testing.T) {
	m := NewModel(WithImportedModel(testImported()))

	tests := []struct {
		mesh    int
		want    string
		wantErr error
	}{
		{mesh: 0, want: "paint"},
		{mesh: 1, want: "default"},
		{mesh: 2, wantErr: ErrMaterialOutOfRange},
		{mesh: 3, wantErr: ErrMeshOutOfRange},
		{mesh: -1, wantErr: ErrMeshOutOfRange},
	}
	for _, tt := range tests {
		mat, err := m.Material(tt.mesh)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Material(%d) err = %v, want %v", tt.mesh, err, tt.wantErr)
			}
			continue
		}
		if err != nil || mat.Name != tt.want {
			t.Errorf("Material(%d) = %q, %v; want %q", tt.mesh, mat.Name, err, tt.want)
		}
	}

	if m.IndexCount(0) != 3 || m.IndexCount(2) != 1 || m.IndexCount(9) != 0 {
		t.Error("IndexCount mismatch")
	}
	if _, err := m.VertexData(5); !errors.Is(err, ErrMeshOutOfRange) {
		t.Errorf("VertexData(5) err = %v", err)
	}
	if _, err := m.IndexData(5); !errors.Is(err, ErrMeshOutOfRange) {
		t.Errorf("IndexData(5) err = %v", err)
	}
}

func TestModel_Buffers(t *testing.T) {
	m := NewModel(WithImportedModel(testImported()))

	vb, err := m.VertexData(0)
	if err != nil {
		t.Fatalf("VertexData: %v", err)
	}
	if len(vb) != 3*GPUVertexSize {
		t.Fatalf("vertex bytes = %d", len(vb))
	}
	f := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(vb[offset:]))
	}
	// position @0, normal @12, uv @24, color @32, tangent @48
	if f(0) != -1 || f(16) != 1 || f(24) != 0.25 || f(28) != 0.75 || f(44) != 1 || f(60) != -1 {
		t.Errorf("vertex layout mismatch: % x", vb[:GPUVertexSize])
	}
	if f(GPUVertexSize) != 1 {
		t.Errorf("second vertex x = %v", f(GPUVertexSize))
	}

	ib, err := m.IndexData(1)
	if err != nil {
		t.Fatalf("IndexData: %v", err)
	}
	if len(ib) != 12 || binary.LittleEndian.Uint32(ib) != 2 || binary.LittleEndian.Uint32(ib[8:]) != 0 {
		t.Errorf("index bytes = % x", ib)
	}
}

func TestModel_BoundsAndFit(t *testing.T) {
	m := NewModel(WithImportedModel(testImported()))

	if r := m.BoundingRadius(); math.Abs(float64(r)-math.Sqrt2) > 1e-6 {
		t.Errorf("BoundingRadius = %v, want sqrt(2)", r)
	}

	// Bounds (-1,0,0)-(1,2,0) have a largest extent of 2: the fit keeps scale 1 and lifts nothing.
	fit := m.FitTransform()
	if p := mgl32.TransformCoordinate(mgl32.Vec3{1, 2, 0}, fit); !vecNear(p, mgl32.Vec3{1, 2, 0}) {
		t.Errorf("fit max corner = %v", p)
	}
	if p := mgl32.TransformCoordinate(mgl32.Vec3{-1, 0, 0}, fit); !vecNear(p, mgl32.Vec3{-1, 0, 0}) {
		t.Errorf("fit min corner = %v", p)
	}
}

func TestGPUVertex_Size(t *testing.T) {
	var v GPUVertex
	if v.Size() != GPUVertexSize || len(v.Marshal()) != GPUVertexSize {
		t.Errorf("Size = %d, Marshal = %d bytes", v.Size(), len(v.Marshal()))
	}
}

// vecNear compares with an absolute tolerance; mgl32's relative comparison is too strict near zero.
func vecNear(a, b mgl32.Vec3) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-5 {
			return false
		}
	}
	return true
}
