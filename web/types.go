package web

import (
	"time"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
	"github.com/Carmen-Shannon/oxy-glb/engine/viewer"
)

// BoundsJSON is an axis-aligned box.
type BoundsJSON struct {
	Min [3]float32 `json:"min"`
	Max [3]float32 `json:"max"`
}

// MeshJSON describes one drawable mesh; its buffers are fetched separately.
type MeshJSON struct {
	Name           string     `json:"name"`
	MeshIndex      int        `json:"meshIndex"`
	PrimitiveIndex int        `json:"primitiveIndex"`
	Mode           int        `json:"mode"`
	VertexCount    int        `json:"vertexCount"`
	IndexCount     int        `json:"indexCount"`
	VertexStride   int        `json:"vertexStride"`
	Material       int        `json:"material"`
	Bounds         BoundsJSON `json:"bounds"`
	HasNormals     bool       `json:"hasNormals"`
	HasTexCoords   bool       `json:"hasTexCoords"`
	HasColors      bool       `json:"hasColors"`
	HasTangents    bool       `json:"hasTangents"`
}

// TextureJSON describes a material texture slot.
type TextureJSON struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
	Embedded bool   `json:"embedded"`
	TexCoord int    `json:"texCoord"`
}

// MaterialJSON carries the material factors and its texture slots keyed by slot name.
type MaterialJSON struct {
	Name              string                 `json:"name"`
	BaseColor         [4]float32             `json:"baseColor"`
	Metallic          float32                `json:"metallic"`
	Roughness         float32                `json:"roughness"`
	Emissive          [3]float32             `json:"emissive"`
	EmissiveStrength  float32                `json:"emissiveStrength"`
	AlphaMode         string                 `json:"alphaMode"`
	AlphaCutoff       float32                `json:"alphaCutoff"`
	DoubleSided       bool                   `json:"doubleSided"`
	NormalScale       float32                `json:"normalScale"`
	OcclusionStrength float32                `json:"occlusionStrength"`
	Unlit             bool                   `json:"unlit"`
	Transmission      float32                `json:"transmission"`
	Extensions        []string               `json:"extensions,omitempty"`
	Textures          map[string]TextureJSON `json:"textures"`
}

// NodeJSON is one scene node with its world transform in column-major order.
type NodeJSON struct {
	Name   string      `json:"name"`
	Parent int         `json:"parent"`
	Meshes []int       `json:"meshes"`
	World  [16]float32 `json:"world"`
}

// ModelJSON is the GET /api/model response.
type ModelJSON struct {
	Revision       string         `json:"revision"`
	Name           string         `json:"name"`
	Source         string         `json:"source"`
	LoadedAt       time.Time      `json:"loadedAt"`
	Generator      string         `json:"generator,omitempty"`
	ExtensionsUsed []string       `json:"extensionsUsed,omitempty"`
	Bounds         BoundsJSON     `json:"bounds"`
	Radius         float32        `json:"radius"`
	Fit            [16]float32    `json:"fit"`
	Meshes         []MeshJSON     `json:"meshes"`
	Materials      []MaterialJSON `json:"materials"`
	Nodes          []NodeJSON     `json:"nodes"`
}

var textureSlots = []string{
	common.SlotBaseColor,
	common.SlotMetallicRoughness,
	common.SlotNormal,
	common.SlotOcclusion,
	common.SlotEmissive,
}

func boundsJSON(b common.Bounds) BoundsJSON {
	if b.IsEmpty() {
		return BoundsJSON{}
	}
	return BoundsJSON{Min: b.Min, Max: b.Max}
}

func newModelJSON(snap viewer.Snapshot) ModelJSON {
	m := snap.Model
	imported := m.Imported()
	out := ModelJSON{
		Revision:       snap.Revision.String(),
		Name:           m.Name(),
		Source:         snap.Source,
		LoadedAt:       snap.LoadedAt,
		Generator:      imported.Generator,
		ExtensionsUsed: imported.ExtensionsUsed,
		Bounds:         boundsJSON(m.Bounds()),
		Radius:         m.BoundingRadius(),
		Fit:            [16]float32(m.FitTransform()),
		Meshes:         make([]MeshJSON, 0, len(imported.Meshes)),
		Materials:      make([]MaterialJSON, 0, len(imported.Materials)),
		Nodes:          make([]NodeJSON, 0, len(imported.Nodes)),
	}

	for i := range imported.Meshes {
		out.Meshes = append(out.Meshes, newMeshJSON(&imported.Meshes[i]))
	}
	for i := range imported.Materials {
		out.Materials = append(out.Materials, newMaterialJSON(&imported.Materials[i]))
	}
	for _, n := range imported.Nodes {
		out.Nodes = append(out.Nodes, NodeJSON{Name: n.Name, Parent: n.Parent, Meshes: n.Meshes, World: [16]float32(n.World)})
	}
	return out
}

func newMeshJSON(mesh *model.ImportedMesh) MeshJSON {
	return MeshJSON{
		Name:           mesh.Name,
		MeshIndex:      mesh.MeshIndex,
		PrimitiveIndex: mesh.PrimitiveIndex,
		Mode:           mesh.Mode,
		VertexCount:    len(mesh.Vertices),
		IndexCount:     len(mesh.Indices),
		VertexStride:   model.GPUVertexSize,
		Material:       mesh.MaterialIndex,
		Bounds:         boundsJSON(mesh.Bounds),
		HasNormals:     mesh.HasNormals,
		HasTexCoords:   mesh.HasTexCoords,
		HasColors:      mesh.HasColors,
		HasTangents:    mesh.HasTangents,
	}
}

func newMaterialJSON(mat *common.ImportedMaterial) MaterialJSON {
	out := MaterialJSON{
		Name:              mat.Name,
		BaseColor:         mat.BaseColor,
		Metallic:          mat.Metallic,
		Roughness:         mat.Roughness,
		Emissive:          mat.Emissive,
		EmissiveStrength:  mat.EmissiveStrength,
		AlphaMode:         mat.AlphaMode,
		AlphaCutoff:       mat.AlphaCutoff,
		DoubleSided:       mat.DoubleSided,
		NormalScale:       mat.NormalScale,
		OcclusionStrength: mat.OcclusionStrength,
		Unlit:             mat.Unlit,
		Transmission:      mat.Transmission,
		Extensions:        mat.Extensions,
		Textures:          make(map[string]TextureJSON),
	}
	for _, slot := range textureSlots {
		tex := mat.TextureSlot(slot)
		if tex == nil {
			continue
		}
		out.Textures[slot] = TextureJSON{
			Name:     tex.Name,
			MimeType: tex.MimeType,
			URI:      tex.URI,
			Embedded: tex.Embedded(),
			TexCoord: tex.TexCoord,
		}
	}
	return out
}
