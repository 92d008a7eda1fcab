// Package exporter re-encodes an imported model as a self-contained GLB container.
package exporter

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Generator is written to asset.generator of every exported file.
const Generator = "oxy-glb exporter"

// ErrNilModel is returned when there is nothing to export.
var ErrNilModel = errors.New("exporter: nil model")

// ExportGLB writes imported as a binary glTF container.
// Meshes, materials, embedded textures and the displayed scene are written; every node is a scene
// root carrying its world transform.
//
// Parameters:
//   - w: the destination
//   - imported: the model to export
//
// Returns:
//   - error: error if the document cannot be built or written
func ExportGLB(w io.Writer, imported *model.ImportedModel) error {
	doc, err := BuildDocument(imported)
	if err != nil {
		return err
	}

	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode GLB: %w", err)
	}
	return nil
}

// BuildDocument converts an imported model to a glTF document whose data lives in buffer 0.
//
// Parameters:
//   - imported: the model to convert
//
// Returns:
//   - *gltf.Document: the document
//   - error: ErrNilModel, or an error if an embedded image cannot be written
func BuildDocument(imported *model.ImportedModel) (*gltf.Document, error) {
	if imported == nil {
		return nil, ErrNilModel
	}

	b := &documentBuilder{
		doc:      gltf.NewDocument(),
		textures: make(map[*common.ImportedTexture]uint32),
	}
	b.doc.Asset.Generator = Generator
	b.doc.Scenes[0].Name = imported.Name

	for i := range imported.Materials {
		if err := b.writeMaterial(&imported.Materials[i]); err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
	}

	meshOf := b.writeMeshes(imported)
	b.writeNodes(imported, meshOf)
	return b.doc, nil
}

// documentBuilder accumulates one exported document.
type documentBuilder struct {
	doc      *gltf.Document
	textures map[*common.ImportedTexture]uint32
}

func (b *documentBuilder) writeMaterial(mat *common.ImportedMaterial) error {
	baseColor := mat.BaseColor
	out := &gltf.Material{
		Name:           mat.Name,
		DoubleSided:    mat.DoubleSided,
		EmissiveFactor: mat.Emissive,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &baseColor,
			MetallicFactor:  float32Ptr(mat.Metallic),
			RoughnessFactor: float32Ptr(mat.Roughness),
		},
	}

	switch mat.AlphaMode {
	case common.AlphaModeMask:
		out.AlphaMode = gltf.AlphaMask
		out.AlphaCutoff = float32Ptr(mat.AlphaCutoff)
	case common.AlphaModeBlend:
		out.AlphaMode = gltf.AlphaBlend
	default:
		out.AlphaMode = gltf.AlphaOpaque
	}

	var err error
	if out.PBRMetallicRoughness.BaseColorTexture, err = b.textureInfo(mat.DiffuseTexture); err != nil {
		return err
	}
	if out.PBRMetallicRoughness.MetallicRoughnessTexture, err = b.textureInfo(mat.MetallicRoughnessTexture); err != nil {
		return err
	}
	if out.EmissiveTexture, err = b.textureInfo(mat.EmissiveTexture); err != nil {
		return err
	}

	b.doc.Materials = append(b.doc.Materials, out)
	return nil
}

// textureInfo writes tex once and returns a reference to it, or nil for an empty slot.
func (b *documentBuilder) textureInfo(tex *common.ImportedTexture) (*gltf.TextureInfo, error) {
	if tex == nil {
		return nil, nil
	}
	if index, ok := b.textures[tex]; ok {
		return &gltf.TextureInfo{Index: index, TexCoord: uint32(tex.TexCoord)}, nil
	}

	var source uint32
	if tex.Embedded() {
		var err error
		source, err = modeler.WriteImage(b.doc, tex.Name, common.Coalesce(tex.MimeType, "image/png"), bytes.NewReader(tex.Data))
		if err != nil {
			return nil, fmt.Errorf("failed to write image %q: %w", tex.Name, err)
		}
	} else {
		source = uint32(len(b.doc.Images))
		b.doc.Images = append(b.doc.Images, &gltf.Image{Name: tex.Name, URI: tex.URI, MimeType: tex.MimeType})
	}

	texture := &gltf.Texture{Name: tex.Name, Source: gltf.Index(source)}
	if tex.SamplerData != nil {
		texture.Sampler = gltf.Index(uint32(len(b.doc.Samplers)))
		b.doc.Samplers = append(b.doc.Samplers, samplerFromStagingData(tex.SamplerData))
	}

	index := uint32(len(b.doc.Textures))
	b.doc.Textures = append(b.doc.Textures, texture)
	b.textures[tex] = index
	return &gltf.TextureInfo{Index: index, TexCoord: uint32(tex.TexCoord)}, nil
}

// writeMeshes writes one glTF mesh per source mesh and returns, per imported mesh, the glTF mesh holding it.
func (b *documentBuilder) writeMeshes(imported *model.ImportedModel) []uint32 {
	groups := imported.MeshPrimitives
	if len(groups) == 0 {
		groups = make([][]int, len(imported.Meshes))
		for i := range imported.Meshes {
			groups[i] = []int{i}
		}
	}

	meshOf := make([]uint32, len(imported.Meshes))
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		index := uint32(len(b.doc.Meshes))
		out := &gltf.Mesh{Name: imported.Meshes[group[0]].Name}
		for _, i := range group {
			out.Primitives = append(out.Primitives, b.writePrimitive(&imported.Meshes[i]))
			meshOf[i] = index
		}
		b.doc.Meshes = append(b.doc.Meshes, out)
	}
	return meshOf
}

func (b *documentBuilder) writePrimitive(mesh *model.ImportedMesh) *gltf.Primitive {
	n := len(mesh.Vertices)
	positions := make([][3]float32, n)
	normals := make([][3]float32, n)
	for i, v := range mesh.Vertices {
		positions[i] = v.Position
		normals[i] = v.Normal
	}

	attributes := map[string]uint32{
		gltf.POSITION: modeler.WritePosition(b.doc, positions),
		gltf.NORMAL:   modeler.WriteNormal(b.doc, normals),
	}

	if mesh.HasTexCoords {
		uvs := make([][2]float32, n)
		for i, v := range mesh.Vertices {
			uvs[i] = v.TexCoord
		}
		attributes[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(b.doc, uvs)
	}

	if mesh.HasColors {
		colors := make([][4]uint8, n)
		for i, v := range mesh.Vertices {
			for c := range v.Color {
				colors[i][c] = unorm8(v.Color[c])
			}
		}
		attributes[gltf.COLOR_0] = modeler.WriteColor(b.doc, colors)
	}

	prim := &gltf.Primitive{
		Attributes: attributes,
		Indices:    gltf.Index(modeler.WriteIndices(b.doc, mesh.Indices)),
		Mode:       primitiveMode(mesh.Mode),
	}
	if mesh.MaterialIndex >= 0 {
		prim.Material = gltf.Index(uint32(mesh.MaterialIndex))
	}
	return prim
}

// writeNodes writes the scene. A model without nodes gets one identity node per glTF mesh.
func (b *documentBuilder) writeNodes(imported *model.ImportedModel, meshOf []uint32) {
	scene := b.doc.Scenes[0]

	if len(imported.Nodes) == 0 {
		for i, mesh := range b.doc.Meshes {
			scene.Nodes = append(scene.Nodes, uint32(len(b.doc.Nodes)))
			b.doc.Nodes = append(b.doc.Nodes, &gltf.Node{
				Name:   mesh.Name,
				Mesh:   gltf.Index(uint32(i)),
				Matrix: [16]float32(mgl32.Ident4()),
			})
		}
		return
	}

	for _, node := range imported.Nodes {
		out := &gltf.Node{
			Name:   node.Name,
			Matrix: [16]float32(node.World),
		}
		if len(node.Meshes) > 0 && node.Meshes[0] < len(meshOf) {
			out.Mesh = gltf.Index(meshOf[node.Meshes[0]])
		}
		scene.Nodes = append(scene.Nodes, uint32(len(b.doc.Nodes)))
		b.doc.Nodes = append(b.doc.Nodes, out)
	}
}

func primitiveMode(mode int) gltf.PrimitiveMode {
	switch mode {
	case 0:
		return gltf.PrimitivePoints
	case 1:
		return gltf.PrimitiveLines
	case 2:
		return gltf.PrimitiveLineLoop
	case 3:
		return gltf.PrimitiveLineStrip
	case 5:
		return gltf.PrimitiveTriangleStrip
	case 6:
		return gltf.PrimitiveTriangleFan
	default:
		return gltf.PrimitiveTriangles
	}
}

// samplerFromStagingData inverts the importer's glTF sampler to WebGPU mapping.
func samplerFromStagingData(s *common.SamplerStagingData) *gltf.Sampler {
	out := &gltf.Sampler{
		WrapS: wrapMode(s.AddressModeU),
		WrapT: wrapMode(s.AddressModeV),
	}

	if s.MagFilter == wgpu.FilterModeNearest {
		out.MagFilter = gltf.MagNearest
	} else {
		out.MagFilter = gltf.MagLinear
	}

	nearest := s.MinFilter == wgpu.FilterModeNearest
	mipNearest := s.MipmapFilter == wgpu.MipmapFilterModeNearest
	switch {
	case s.LodMaxClamp == 0 && nearest:
		out.MinFilter = gltf.MinNearest
	case s.LodMaxClamp == 0:
		out.MinFilter = gltf.MinLinear
	case nearest && mipNearest:
		out.MinFilter = gltf.MinNearestMipMapNearest
	case nearest:
		out.MinFilter = gltf.MinNearestMipMapLinear
	case mipNearest:
		out.MinFilter = gltf.MinLinearMipMapNearest
	default:
		out.MinFilter = gltf.MinLinearMipMapLinear
	}
	return out
}

func wrapMode(mode wgpu.AddressMode) gltf.WrappingMode {
	switch mode {
	case wgpu.AddressModeClampToEdge:
		return gltf.WrapClampToEdge
	case wgpu.AddressModeMirrorRepeat:
		return gltf.WrapMirroredRepeat
	default:
		return gltf.WrapRepeat
	}
}

func unorm8(v float32) uint8 {
	v = min(max(v, 0), 1)
	return uint8(v*255 + 0.5)
}

func float32Ptr(v float32) *float32 {
	return &v
}
