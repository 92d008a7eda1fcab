package loader

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/Carmen-Shannon/oxy-glb/engine/gltf"
)

func TestMeshExtractor_Defaults(t *testing.T) {
	a := newTestAsset()
	a.addTriangle("")

	meshes, prims, err := newGLTFMeshExtractor(a.resolver(t), NewDefaultExtensionRegistry(), false, false).ExtractAllMeshes()
	if err != nil {
		t.Fatalf("ExtractAllMeshes: %v", err)
	}
	if len(meshes) != 1 || !reflect.DeepEqual(prims, [][]int{{0}}) {
		t.Fatalf("got %d meshes, primitives %v", len(meshes), prims)
	}

	m := meshes[0]
	if m.Name != "Mesh_0" {
		t.Errorf("Name = %q, want Mesh_0", m.Name)
	}
	if m.MaterialIndex != -1 {
		t.Errorf("MaterialIndex = %d, want -1", m.MaterialIndex)
	}
	if m.Mode != gltf.PrimitiveModeTriangles {
		t.Errorf("Mode = %d", m.Mode)
	}
	if m.HasNormals || m.HasTexCoords || m.HasColors || m.HasTangents {
		t.Errorf("unexpected attribute flags: %+v", m)
	}
	for i, v := range m.Vertices {
		if v.Normal != upNormal {
			t.Errorf("vertex %d normal = %v, want %v", i, v.Normal, upNormal)
		}
		if v.TexCoord != [2]float32{} {
			t.Errorf("vertex %d texcoord = %v, want zero", i, v.TexCoord)
		}
		if v.Color != [4]float32{1, 1, 1, 1} {
			t.Errorf("vertex %d color = %v, want white", i, v.Color)
		}
	}
	if !reflect.DeepEqual(m.Indices, []uint32{0, 1, 2}) {
		t.Errorf("Indices = %v", m.Indices)
	}
	if m.Bounds.Min != [3]float32{0, 0, 0} || m.Bounds.Max != [3]float32{1, 1, 0} {
		t.Errorf("Bounds = %+v", m.Bounds)
	}
}

func TestMeshExtractor_AllAttributes(t *testing.T) {
	a := newTestAsset()
	pos := a.addFloats(gltf.AccessorTypeVec3, 0, 0, 0, 1, 0, 0, 0, 1, 0)
	nrm := a.addFloats(gltf.AccessorTypeVec3, 0, 0, 1, 0, 0, 1, 0, 0, 1)
	uv := a.addAccessor([]byte{0, 0, 0, 0, 0xFF, 0xFF, 0, 0, 0, 0, 0xFF, 0xFF}, gltf.ComponentTypeUnsignedShort, gltf.AccessorTypeVec2, 3, true)
	col := a.addAccessor([]byte{255, 0, 0, 255, 0, 255, 0, 255, 0, 0, 255, 0}, gltf.ComponentTypeUnsignedByte, gltf.AccessorTypeVec4, 3, true)
	tan := a.addFloats(gltf.AccessorTypeVec4, 1, 0, 0, 1, 1, 0, 0, 1, 1, 0, 0, -1)
	a.doc.Materials = append(a.doc.Materials, gltf.Material{Name: "mat"})
	a.addMesh("tri", gltf.Primitive{
		Attributes: map[string]int{
			gltf.AttributePosition:  pos,
			gltf.AttributeNormal:    nrm,
			gltf.AttributeTexCoord0: uv,
			gltf.AttributeColor0:    col,
			gltf.AttributeTangent:   tan,
		},
		Material: intPtr(0),
	})

	meshes, err := newGLTFMeshExtractor(a.resolver(t), NewDefaultExtensionRegistry(), true, true).ExtractMesh(0)
	if err != nil {
		t.Fatalf("ExtractMesh: %v", err)
	}
	m := meshes[0]
	if !m.HasNormals || !m.HasTexCoords || !m.HasColors || !m.HasTangents {
		t.Fatalf("attribute flags not set: %+v", m)
	}
	if m.MaterialIndex != 0 || m.Name != "tri" {
		t.Errorf("MaterialIndex = %d, Name = %q", m.MaterialIndex, m.Name)
	}
	if m.Vertices[1].TexCoord != [2]float32{1, 0} || m.Vertices[2].TexCoord != [2]float32{0, 1} {
		t.Errorf("texcoords = %v %v", m.Vertices[1].TexCoord, m.Vertices[2].TexCoord)
	}
	if m.Vertices[0].Color != [4]float32{1, 0, 0, 1} || m.Vertices[2].Color != [4]float32{0, 0, 1, 0} {
		t.Errorf("colors = %v %v", m.Vertices[0].Color, m.Vertices[2].Color)
	}
	if m.Vertices[2].Tangent != [4]float32{1, 0, 0, -1} {
		t.Errorf("tangent = %v, file tangents must not be regenerated", m.Vertices[2].Tangent)
	}
	if !reflect.DeepEqual(m.Indices, []uint32{0, 1, 2}) {
		t.Errorf("sequential indices = %v", m.Indices)
	}
}

func TestMeshExtractor_GeneratedNormalsAndTangents(t *testing.T) {
	a := newTestAsset()
	pos := a.addFloats(gltf.AccessorTypeVec3, 0, 0, 0, 1, 0, 0, 0, 1, 0)
	uv := a.addFloats(gltf.AccessorTypeVec2, 0, 0, 1, 0, 0, 1)
	a.addMesh("tri", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos, gltf.AttributeTexCoord0: uv}})

	meshes, err := newGLTFMeshExtractor(a.resolver(t), NewDefaultExtensionRegistry(), true, true).ExtractMesh(0)
	if err != nil {
		t.Fatalf("ExtractMesh: %v", err)
	}
	for i, v := range meshes[0].Vertices {
		if !approx(v.Normal[0], 0) || !approx(v.Normal[1], 0) || !approx(v.Normal[2], 1) {
			t.Errorf("vertex %d normal = %v, want (0,0,1)", i, v.Normal)
		}
		if !approx(v.Tangent[0], 1) || !approx(v.Tangent[1], 0) || !approx(v.Tangent[2], 0) || v.Tangent[3] != 1 {
			t.Errorf("vertex %d tangent = %v, want (1,0,0,1)", i, v.Tangent)
		}
	}
}

func TestMeshExtractor_NonTriangleModeKeepsUpNormals(t *testing.T) {
	a := newTestAsset()
	pos := a.addFloats(gltf.AccessorTypeVec3, 0, 0, 0, 1, 0, 0, 0, 1, 0)
	a.addMesh("points", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}, Mode: intPtr(gltf.PrimitiveModePoints)})

	meshes, err := newGLTFMeshExtractor(a.resolver(t), NewDefaultExtensionRegistry(), true, true).ExtractMesh(0)
	if err != nil {
		t.Fatalf("ExtractMesh: %v", err)
	}
	if meshes[0].Mode != gltf.PrimitiveModePoints {
		t.Errorf("Mode = %d", meshes[0].Mode)
	}
	if meshes[0].Vertices[0].Normal != upNormal || meshes[0].Vertices[0].Tangent != [4]float32{} {
		t.Errorf("vertex = %+v", meshes[0].Vertices[0])
	}
}

func TestMeshExtractor_SkipsPrimitiveWithoutPosition(t *testing.T) {
	a := newTestAsset()
	nrm := a.addFloats(gltf.AccessorTypeVec3, 0, 1, 0)
	pos := a.addFloats(gltf.AccessorTypeVec3, 0, 0, 0)
	a.addMesh("m",
		gltf.Primitive{Attributes: map[string]int{gltf.AttributeNormal: nrm}},
		gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}, Mode: intPtr(gltf.PrimitiveModePoints)},
	)

	meshes, prims, err := newGLTFMeshExtractor(a.resolver(t), NewDefaultExtensionRegistry(), false, false).ExtractAllMeshes()
	if err != nil {
		t.Fatalf("ExtractAllMeshes: %v", err)
	}
	if len(meshes) != 1 || meshes[0].PrimitiveIndex != 1 || meshes[0].Name != "m_prim1" {
		t.Fatalf("meshes = %+v", meshes)
	}
	if !reflect.DeepEqual(prims, [][]int{{0}}) {
		t.Errorf("primitives = %v", prims)
	}
}

func TestMeshExtractor_Quantization(t *testing.T) {
	build := func(declare bool) *testAsset {
		a := newTestAsset()
		raw := make([]byte, 0, 24)
		for _, v := range []uint16{0, 0, 0, 2, 0, 0, 0, 2, 0} {
			raw = binary.LittleEndian.AppendUint16(raw, v)
		}
		pos := a.addAccessor(raw, gltf.ComponentTypeUnsignedShort, gltf.AccessorTypeVec3, 3, false)
		a.addMesh("q", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}})
		if declare {
			a.doc.ExtensionsUsed = []string{ExtMeshQuantization}
		}
		return a
	}

	_, err := newGLTFMeshExtractor(build(false).resolver(t), NewDefaultExtensionRegistry(), false, false).ExtractMesh(0)
	if !gltf.IsKind(err, gltf.KindLayout) {
		t.Fatalf("undeclared quantization: err = %v, want layout error", err)
	}

	meshes, err := newGLTFMeshExtractor(build(true).resolver(t), NewDefaultExtensionRegistry(), false, false).ExtractMesh(0)
	if err != nil {
		t.Fatalf("declared quantization: %v", err)
	}
	if meshes[0].Vertices[1].Position != [3]float32{2, 0, 0} {
		t.Errorf("position = %v", meshes[0].Vertices[1].Position)
	}
}

func TestMeshExtractor_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func(a *testAsset)
		kind  gltf.FormatErrorKind
	}{
		{
			name: "normal count mismatch",
			build: func(a *testAsset) {
				pos := a.addFloats(gltf.AccessorTypeVec3, 0, 0, 0, 1, 0, 0, 0, 1, 0)
				nrm := a.addFloats(gltf.AccessorTypeVec3, 0, 1, 0)
				a.addMesh("", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos, gltf.AttributeNormal: nrm}})
			},
			kind: gltf.KindReference,
		},
		{
			name: "position is VEC2",
			build: func(a *testAsset) {
				pos := a.addFloats(gltf.AccessorTypeVec2, 0, 0, 1, 0)
				a.addMesh("", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}})
			},
			kind: gltf.KindLayout,
		},
		{
			name: "index exceeds vertex count",
			build: func(a *testAsset) {
				pos := a.addFloats(gltf.AccessorTypeVec3, 0, 0, 0, 1, 0, 0, 0, 1, 0)
				idx := a.addIndices(0, 1, 7)
				a.addMesh("", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}, Indices: &idx})
			},
			kind: gltf.KindReference,
		},
		{
			name: "material out of range",
			build: func(a *testAsset) {
				pos := a.addFloats(gltf.AccessorTypeVec3, 0, 0, 0)
				a.addMesh("", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}, Material: intPtr(3)})
			},
			kind: gltf.KindReference,
		},
		{
			name: "unnormalized color",
			build: func(a *testAsset) {
				pos := a.addFloats(gltf.AccessorTypeVec3, 0, 0, 0)
				col := a.addAccessor([]byte{1, 2, 3, 4}, gltf.ComponentTypeUnsignedByte, gltf.AccessorTypeVec4, 1, false)
				a.addMesh("", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos, gltf.AttributeColor0: col}})
			},
			kind: gltf.KindLayout,
		},
		{
			name: "accessor out of range",
			build: func(a *testAsset) {
				a.addMesh("", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: 9}})
			},
			kind: gltf.KindReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAsset()
			tt.build(a)
			_, err := newGLTFMeshExtractor(a.resolver(t), NewDefaultExtensionRegistry(), false, false).ExtractMesh(0)
			if !gltf.IsKind(err, tt.kind) {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestMeshExtractor_DracoRejected(t *testing.T) {
	a := newTestAsset()
	pos := a.addFloats(gltf.AccessorTypeVec3, 0, 0, 0)
	a.addMesh("", gltf.Primitive{
		Attributes: map[string]int{gltf.AttributePosition: pos},
		Extensions: gltf.Extensions{ExtDracoMeshCompression: json.RawMessage(`{"bufferView":0,"attributes":{}}`)},
	})

	_, err := newGLTFMeshExtractor(a.resolver(t), NewDefaultExtensionRegistry(), false, false).ExtractMesh(0)
	if !errors.Is(err, ErrDracoUnsupported) {
		t.Fatalf("err = %v, want ErrDracoUnsupported", err)
	}
}

func TestGenerateNormals_SharedVertexAveraged(t *testing.T) {
	a := newTestAsset()
	// Two triangles folded along the X axis: one in the XY plane, one in the XZ plane.
	pos := a.addFloats(gltf.AccessorTypeVec3, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, -1)
	idx := a.addIndices(0, 1, 2, 0, 1, 3)
	a.addMesh("", gltf.Primitive{Attributes: map[string]int{gltf.AttributePosition: pos}, Indices: &idx})

	meshes, err := newGLTFMeshExtractor(a.resolver(t), NewDefaultExtensionRegistry(), true, false).ExtractMesh(0)
	if err != nil {
		t.Fatalf("ExtractMesh: %v", err)
	}
	n := meshes[0].Vertices[0].Normal
	const h = 0.70710677
	if !approx(n[0], 0) || !approx(n[1], h) || !approx(n[2], h) {
		t.Errorf("shared normal = %v, want (0, %v, %v)", n, h, h)
	}
}
