package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-glb/common"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrMeshOutOfRange is returned when a mesh index does not address a mesh of the model.
var ErrMeshOutOfRange = errors.New("mesh index out of range")

// ErrMaterialOutOfRange is returned when a material index does not address a material of the model.
var ErrMaterialOutOfRange = errors.New("material index out of range")

// model is the implementation of the Model interface.
type model struct {
	name     string
	imported *ImportedModel
	fit      mgl32.Mat4
}

// Model defines the interface for a loaded 3D model.
// A Model is a read-only view over an ImportedModel that serves the data a renderer needs:
// per-mesh vertex and index buffers, materials, scene nodes and the transform that fits the
// model into the viewer's unit volume.
// It is produced by the Loader after importing a model file.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Imported returns the CPU-side import data backing this model.
	//
	// Returns:
	//   - *ImportedModel: the imported model (never nil)
	Imported() *ImportedModel

	// MeshCount returns the number of meshes (glTF primitives).
	//
	// Returns:
	//   - int: the mesh count
	MeshCount() int

	// Mesh returns one mesh by index.
	//
	// Parameters:
	//   - mesh: the mesh index
	//
	// Returns:
	//   - *ImportedMesh: the mesh
	//   - error: ErrMeshOutOfRange for a bad index
	Mesh(mesh int) (*ImportedMesh, error)

	// ImportedMaterials retrieves the material properties imported from the model file.
	//
	// Returns:
	//   - []common.ImportedMaterial: the imported materials
	ImportedMaterials() []common.ImportedMaterial

	// Material returns the material used by a mesh, or the glTF default material when the mesh has none.
	//
	// Parameters:
	//   - mesh: the mesh index
	//
	// Returns:
	//   - common.ImportedMaterial: the material
	//   - error: ErrMeshOutOfRange or ErrMaterialOutOfRange
	Material(mesh int) (common.ImportedMaterial, error)

	// Nodes returns the nodes of the displayed scene.
	//
	// Returns:
	//   - []ImportedNode: the scene nodes
	Nodes() []ImportedNode

	// Bounds returns the model-space bounding box.
	//
	// Returns:
	//   - common.Bounds: the bounds
	Bounds() common.Bounds

	// BoundingRadius returns the radius of the sphere circumscribing Bounds.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32

	// FitTransform returns the matrix that scales the model to a largest extent of 2 and places it
	// centered on the origin, resting on Y=0.
	//
	// Returns:
	//   - mgl32.Mat4: the fit transform
	FitTransform() mgl32.Mat4

	// VertexData returns the interleaved GPUVertex buffer for a mesh.
	//
	// Parameters:
	//   - mesh: the mesh index
	//
	// Returns:
	//   - []byte: the vertex data (GPUVertexSize bytes per vertex)
	//   - error: ErrMeshOutOfRange for a bad index
	VertexData(mesh int) ([]byte, error)

	// IndexData returns the little-endian uint32 index buffer for a mesh.
	//
	// Parameters:
	//   - mesh: the mesh index
	//
	// Returns:
	//   - []byte: the index data
	//   - error: ErrMeshOutOfRange for a bad index
	IndexData(mesh int) ([]byte, error)

	// IndexCount returns the number of indices of a mesh, or 0 for a bad index.
	//
	// Parameters:
	//   - mesh: the mesh index
	//
	// Returns:
	//   - int: the index count
	IndexCount(mesh int) int
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
// A model built without WithImportedModel is empty.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{
		imported: &ImportedModel{Scene: -1, Bounds: common.EmptyBounds()},
		fit:      mgl32.Ident4(),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.name == "" {
		m.name = m.imported.Name
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Imported() *ImportedModel {
	return m.imported
}

func (m *model) MeshCount() int {
	return len(m.imported.Meshes)
}

func (m *model) Mesh(mesh int) (*ImportedMesh, error) {
	if mesh < 0 || mesh >= len(m.imported.Meshes) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrMeshOutOfRange, mesh, len(m.imported.Meshes))
	}
	return &m.imported.Meshes[mesh], nil
}

func (m *model) ImportedMaterials() []common.ImportedMaterial {
	return m.imported.Materials
}

func (m *model) Material(mesh int) (common.ImportedMaterial, error) {
	msh, err := m.Mesh(mesh)
	if err != nil {
		return common.ImportedMaterial{}, err
	}
	if msh.MaterialIndex < 0 {
		return common.DefaultImportedMaterial("default"), nil
	}
	if msh.MaterialIndex >= len(m.imported.Materials) {
		return common.ImportedMaterial{}, fmt.Errorf("%w: %d (have %d)", ErrMaterialOutOfRange, msh.MaterialIndex, len(m.imported.Materials))
	}
	return m.imported.Materials[msh.MaterialIndex], nil
}

func (m *model) Nodes() []ImportedNode {
	return m.imported.Nodes
}

func (m *model) Bounds() common.Bounds {
	return m.imported.Bounds
}

func (m *model) BoundingRadius() float32 {
	return m.imported.Bounds.Size().Len() / 2
}

func (m *model) FitTransform() mgl32.Mat4 {
	return m.fit
}

func (m *model) VertexData(mesh int) ([]byte, error) {
	msh, err := m.Mesh(mesh)
	if err != nil {
		return nil, err
	}
	return MarshalVertices(msh.Vertices), nil
}

func (m *model) IndexData(mesh int) ([]byte, error) {
	msh, err := m.Mesh(mesh)
	if err != nil {
		return nil, err
	}
	return MarshalIndices(msh.Indices), nil
}

func (m *model) IndexCount(mesh int) int {
	msh, err := m.Mesh(mesh)
	if err != nil {
		return 0
	}
	return len(msh.Indices)
}
