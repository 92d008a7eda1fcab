package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/gltf"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
)

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct {
	registry         ExtensionRegistry
	smoothNormals    bool
	generateTangents bool
}

// gltfImporter defines the interface for orchestrating a full glTF/GLB import.
// It combines the container parser and all extractors to produce a complete ImportedModel.
type gltfImporter interface {
	// Import parses a GLB or glTF JSON byte slice and extracts meshes, materials and the scene.
	// The import is all-or-nothing: any error discards every partial result.
	//
	// Parameters:
	//   - data: the complete file contents
	//   - name: the model name; when empty the default scene's name is used
	//
	// Returns:
	//   - *model.ImportedModel: the fully populated imported model
	//   - error: error if import fails
	Import(data []byte, name string) (*model.ImportedModel, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Parameters:
//   - registry: the extension registry used by every extractor
//   - smoothNormals: generate smooth normals for primitives without NORMAL
//   - generateTangents: generate tangents for primitives without TANGENT
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter(registry ExtensionRegistry, smoothNormals, generateTangents bool) gltfImporter {
	if registry == nil {
		registry = NewDefaultExtensionRegistry()
	}
	return &gltfImporterImpl{
		registry:         registry,
		smoothNormals:    smoothNormals,
		generateTangents: generateTangents,
	}
}

func (imp *gltfImporterImpl) Import(data []byte, name string) (*model.ImportedModel, error) {
	container, err := gltf.ParseContainer(data)
	if err != nil {
		return nil, err
	}
	doc := container.Document
	imp.registry.CheckRequired(doc)

	resolver := gltf.NewAccessorResolver(container)

	meshes, primitives, err := newGLTFMeshExtractor(resolver, imp.registry, imp.smoothNormals, imp.generateTangents).ExtractAllMeshes()
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}

	materials, err := newGLTFMaterialExtractor(resolver, imp.registry).ExtractAllMaterials()
	if err != nil {
		return nil, fmt.Errorf("material extraction failed: %w", err)
	}

	scene, err := newGLTFSceneExtractor(doc).ExtractScene(meshes, primitives)
	if err != nil {
		return nil, fmt.Errorf("scene extraction failed: %w", err)
	}

	return &model.ImportedModel{
		Name:           gltfExtractModelName(doc, scene.index, name),
		Generator:      doc.Asset.Generator,
		Meshes:         meshes,
		MeshPrimitives: primitives,
		Materials:      materials,
		Nodes:          scene.nodes,
		Scene:          scene.index,
		Bounds:         scene.bounds,
		ExtensionsUsed: doc.ExtensionsUsed,
	}, nil
}

// gltfExtractModelName derives a model name from the caller's name, falling back to the scene name.
func gltfExtractModelName(doc *gltf.Document, scene int, name string) string {
	var sceneName string
	if scene >= 0 && scene < len(doc.Scenes) {
		sceneName = doc.Scenes[scene].Name
	}
	return common.Coalesce(name, sceneName, "unnamed_model")
}
