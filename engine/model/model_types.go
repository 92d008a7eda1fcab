package model

import (
	"github.com/Carmen-Shannon/oxy-glb/common"

	"github.com/go-gl/mathgl/mgl32"
)

// --- Import Types ---

// ImportedModel represents a 3D model loaded from a glTF or GLB file.
// It owns all of its data; nothing aliases the source bytes.
type ImportedModel struct {
	// Name is the model identifier.
	Name string

	// Generator is the asset.generator string of the source file.
	Generator string

	// Meshes contains one entry per glTF primitive, flattened across all glTF meshes.
	Meshes []ImportedMesh

	// MeshPrimitives maps a glTF mesh index to the indices in Meshes of its primitives.
	// Primitives that were skipped (no POSITION) have no entry.
	MeshPrimitives [][]int

	// Materials are the model's materials, indexed by ImportedMesh.MaterialIndex.
	Materials []common.ImportedMaterial

	// Nodes are the nodes of the displayed scene with their resolved world transforms.
	Nodes []ImportedNode

	// Scene is the index of the scene Nodes were taken from (-1 when the file has no scenes).
	Scene int

	// Bounds encloses every mesh instance in model space.
	Bounds common.Bounds

	// ExtensionsUsed lists the extensions the source file declares.
	ExtensionsUsed []string
}

// ImportedMesh represents a single glTF primitive within an imported model.
type ImportedMesh struct {
	// Name is the mesh identifier.
	Name string

	// MeshIndex is the glTF mesh the primitive belongs to.
	MeshIndex int

	// PrimitiveIndex is the primitive's index within its glTF mesh.
	PrimitiveIndex int

	// Mode is the glTF primitive topology (4 = triangles).
	Mode int

	// Vertices are the interleaved mesh vertices.
	Vertices []GPUVertex

	// Indices index Vertices. Sequential when the primitive has no index accessor.
	Indices []uint32

	// MaterialIndex references ImportedModel.Materials, or -1 for the default material.
	MaterialIndex int

	// Bounds is the axis-aligned bounding box of the vertex positions.
	Bounds common.Bounds

	// HasNormals, HasTexCoords, HasColors and HasTangents record which attributes came from the file
	// rather than being synthesized.
	HasNormals, HasTexCoords, HasColors, HasTangents bool
}

// ImportedNode is one node of the displayed scene.
type ImportedNode struct {
	// Name is the node name.
	Name string

	// NodeIndex is the glTF node index.
	NodeIndex int

	// Parent is the glTF node index of the parent, or -1 for a root node.
	Parent int

	// Meshes are indices into ImportedModel.Meshes instantiated by this node.
	Meshes []int

	// World is the node's model-space transform.
	World mgl32.Mat4
}
