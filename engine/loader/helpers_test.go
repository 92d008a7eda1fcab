package loader

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-glb/engine/gltf"
)

// testAsset assembles a glTF document and its single BIN chunk for import tests.
type testAsset struct {
	doc gltf.Document
	bin []byte
}

func newTestAsset() *testAsset {
	return &testAsset{doc: gltf.Document{Asset: gltf.Asset{Version: "2.0", Generator: "loader-test"}}}
}

// addView appends data to the BIN chunk at a 4-byte aligned offset and returns the new bufferView index.
func (a *testAsset) addView(data []byte) int {
	for len(a.bin)%4 != 0 {
		a.bin = append(a.bin, 0)
	}
	a.doc.BufferViews = append(a.doc.BufferViews, gltf.BufferView{
		Buffer:     0,
		ByteOffset: len(a.bin),
		ByteLength: len(data),
	})
	a.bin = append(a.bin, data...)
	return len(a.doc.BufferViews) - 1
}

// addAccessor appends data as a tightly packed accessor and returns its index.
func (a *testAsset) addAccessor(data []byte, ct gltf.ComponentType, typ gltf.AccessorType, count int, normalized bool) int {
	view := a.addView(data)
	a.doc.Accessors = append(a.doc.Accessors, gltf.Accessor{
		BufferView:    &view,
		ComponentType: ct,
		Type:          typ,
		Count:         count,
		Normalized:    normalized,
	})
	return len(a.doc.Accessors) - 1
}

func (a *testAsset) addFloats(typ gltf.AccessorType, values ...float32) int {
	return a.addAccessor(float32Bytes(values...), gltf.ComponentTypeFloat, typ, len(values)/typ.ComponentCount(), false)
}

func (a *testAsset) addIndices(values ...uint16) int {
	out := make([]byte, 0, len(values)*2)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	return a.addAccessor(out, gltf.ComponentTypeUnsignedShort, gltf.AccessorTypeScalar, len(values), false)
}

// addMesh appends a mesh with the given primitives and returns its index.
func (a *testAsset) addMesh(name string, prims ...gltf.Primitive) int {
	a.doc.Meshes = append(a.doc.Meshes, gltf.Mesh{Name: name, Primitives: prims})
	return len(a.doc.Meshes) - 1
}

// addTriangle appends a single-primitive mesh over a unit right triangle in the XY plane.
func (a *testAsset) addTriangle(name string) int {
	pos := a.addFloats(gltf.AccessorTypeVec3, 0, 0, 0, 1, 0, 0, 0, 1, 0)
	idx := a.addIndices(0, 1, 2)
	return a.addMesh(name, gltf.Primitive{
		Attributes: map[string]int{gltf.AttributePosition: pos},
		Indices:    &idx,
	})
}

// addImage embeds encoded image bytes through a bufferView and returns the image index.
func (a *testAsset) addImage(data []byte, mimeType string) int {
	view := a.addView(data)
	a.doc.Images = append(a.doc.Images, gltf.Image{BufferView: &view, MimeType: mimeType})
	return len(a.doc.Images) - 1
}

func (a *testAsset) addTexture(image int, sampler *int) int {
	a.doc.Textures = append(a.doc.Textures, gltf.Texture{Source: &image, Sampler: sampler})
	return len(a.doc.Textures) - 1
}

// glb encodes the asset as a GLB stream.
func (a *testAsset) glb(t *testing.T) []byte {
	t.Helper()

	for len(a.bin)%4 != 0 {
		a.bin = append(a.bin, 0)
	}
	doc := a.doc
	if len(a.bin) > 0 {
		doc.Buffers = []gltf.Buffer{{ByteLength: len(a.bin)}}
	}
	text, err := json.Marshal(&doc)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	for len(text)%4 != 0 {
		text = append(text, ' ')
	}

	out := make([]byte, 12, 12+8+len(text)+8+len(a.bin))
	binary.LittleEndian.PutUint32(out[0:4], gltf.GLBMagic)
	binary.LittleEndian.PutUint32(out[4:8], 2)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(text)))
	out = binary.LittleEndian.AppendUint32(out, gltf.GLBChunkJSON)
	out = append(out, text...)
	if len(a.bin) > 0 {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(a.bin)))
		out = binary.LittleEndian.AppendUint32(out, gltf.GLBChunkBIN)
		out = append(out, a.bin...)
	}
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(out)))
	return out
}

// resolver parses the asset and returns a resolver over it.
func (a *testAsset) resolver(t *testing.T) gltf.AccessorResolver {
	t.Helper()
	c, err := gltf.ParseContainer(a.glb(t))
	if err != nil {
		t.Fatalf("ParseContainer: %v", err)
	}
	return gltf.NewAccessorResolver(c)
}

func float32Bytes(values ...float32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// pngBytes encodes a w x h image filled with c.
func pngBytes(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func intPtr(v int) *int {
	return &v
}

func float32Ptr(v float32) *float32 {
	return &v
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}
