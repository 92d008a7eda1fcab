package loader

import (
	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/gltf"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"

	"github.com/go-gl/mathgl/mgl32"
)

// gltfScene is the flattened node hierarchy of the displayed scene.
type gltfScene struct {
	// index is the scene index, or -1 when the document declares no scenes.
	index  int
	nodes  []model.ImportedNode
	bounds common.Bounds
}

// gltfSceneExtractorImpl is the implementation of the gltfSceneExtractor interface.
type gltfSceneExtractorImpl struct {
	doc *gltf.Document
}

// gltfSceneExtractor defines the interface for resolving a document's node hierarchy into world transforms.
type gltfSceneExtractor interface {
	// ExtractScene walks the default scene and resolves every node's world transform.
	// The default scene is document.scene, else scene 0; without scenes every root node is walked.
	//
	// Parameters:
	//   - meshes: the extracted meshes, used to compute instance bounds
	//   - primitives: the flat mesh indices per glTF mesh, as returned by the mesh extractor
	//
	// Returns:
	//   - *gltfScene: the flattened scene
	//   - error: a Reference FormatError for bad indices or cycles
	ExtractScene(meshes []model.ImportedMesh, primitives [][]int) (*gltfScene, error)
}

var _ gltfSceneExtractor = &gltfSceneExtractorImpl{}

// newGLTFSceneExtractor creates a new scene extractor for a document.
//
// Parameters:
//   - doc: the parsed document
//
// Returns:
//   - gltfSceneExtractor: the scene extractor
func newGLTFSceneExtractor(doc *gltf.Document) gltfSceneExtractor {
	return &gltfSceneExtractorImpl{doc: doc}
}

func (e *gltfSceneExtractorImpl) ExtractScene(meshes []model.ImportedMesh, primitives [][]int) (*gltfScene, error) {
	roots, sceneIndex, err := e.roots()
	if err != nil {
		return nil, err
	}

	result := &gltfScene{index: sceneIndex, bounds: common.EmptyBounds()}
	visited := make(map[int]bool, len(e.doc.Nodes))

	var walk func(node, parent int, parentWorld mgl32.Mat4) error
	walk = func(node, parent int, parentWorld mgl32.Mat4) error {
		if node < 0 || node >= len(e.doc.Nodes) {
			return gltf.NewFormatError(gltf.KindReference, "node out of range (have %d)", len(e.doc.Nodes)).AtIndex(node)
		}
		if visited[node] {
			return gltf.NewFormatError(gltf.KindReference, "node is reachable more than once (cycle or shared child)").AtIndex(node)
		}
		visited[node] = true

		n := &e.doc.Nodes[node]
		world := parentWorld.Mul4(localTransform(n))
		imported := model.ImportedNode{
			Name:      n.Name,
			NodeIndex: node,
			Parent:    parent,
			World:     world,
		}

		if n.Mesh != nil {
			if *n.Mesh < 0 || *n.Mesh >= len(primitives) {
				return gltf.NewFormatError(gltf.KindReference, "node %d references mesh out of range (have %d)", node, len(primitives)).AtIndex(*n.Mesh)
			}
			for _, flat := range primitives[*n.Mesh] {
				imported.Meshes = append(imported.Meshes, flat)
				result.bounds = result.bounds.Union(meshes[flat].Bounds.Transform(world))
			}
		}
		result.nodes = append(result.nodes, imported)

		for _, child := range n.Children {
			if err := walk(child, node, world); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := walk(root, -1, mgl32.Ident4()); err != nil {
			return nil, err
		}
	}

	// Nothing instantiated: fall back to the meshes in their own space.
	if result.bounds.IsEmpty() {
		for i := range meshes {
			result.bounds = result.bounds.Union(meshes[i].Bounds)
		}
	}

	return result, nil
}

// roots returns the root nodes to walk and the index of the scene they came from.
func (e *gltfSceneExtractorImpl) roots() ([]int, int, error) {
	if len(e.doc.Scenes) > 0 {
		scene := 0
		if e.doc.Scene != nil {
			scene = *e.doc.Scene
		}
		if scene < 0 || scene >= len(e.doc.Scenes) {
			return nil, 0, gltf.NewFormatError(gltf.KindReference, "default scene out of range (have %d)", len(e.doc.Scenes)).AtIndex(scene)
		}
		return e.doc.Scenes[scene].Nodes, scene, nil
	}

	isChild := make([]bool, len(e.doc.Nodes))
	for i := range e.doc.Nodes {
		for _, child := range e.doc.Nodes[i].Children {
			if child >= 0 && child < len(isChild) {
				isChild[child] = true
			}
		}
	}

	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots, -1, nil
}

// localTransform returns a node's matrix, or T*R*S composed from its TRS properties.
func localTransform(n *gltf.Node) mgl32.Mat4 {
	if n.Matrix != nil {
		// glTF matrices are column-major, as is mgl32.Mat4.
		return mgl32.Mat4(*n.Matrix)
	}

	m := mgl32.Ident4()
	if n.Translation != nil {
		t := n.Translation
		m = m.Mul4(mgl32.Translate3D(t[0], t[1], t[2]))
	}
	if n.Rotation != nil {
		r := n.Rotation
		q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
		m = m.Mul4(q.Normalize().Mat4())
	}
	if n.Scale != nil {
		s := n.Scale
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}
