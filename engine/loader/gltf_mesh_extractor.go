package loader

import (
	"fmt"
	"log"
	"math"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/gltf"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
)

// upNormal is the normal given to every vertex of a primitive without a NORMAL attribute.
var upNormal = [3]float32{0, 1, 0}

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	resolver         gltf.AccessorResolver
	registry         ExtensionRegistry
	smoothNormals    bool
	generateTangents bool
	quantized        bool
}

// gltfMeshExtractor defines the interface for extracting mesh data from a parsed glTF document.
// It converts decoded accessor arrays into engine-ready ImportedMesh structs.
type gltfMeshExtractor interface {
	// ExtractMesh extracts a single mesh by index.
	// Returns one ImportedMesh per primitive (glTF meshes can have multiple primitives).
	// Primitives without a POSITION attribute are skipped.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh to extract
	//
	// Returns:
	//   - []model.ImportedMesh: one ImportedMesh per extracted primitive
	//   - error: error if extraction fails
	ExtractMesh(meshIndex int) ([]model.ImportedMesh, error)

	// ExtractAllMeshes extracts all meshes from the document.
	// Returns a flattened slice with one ImportedMesh per primitive across all meshes, and for every
	// glTF mesh the indices of its primitives in that slice.
	//
	// Returns:
	//   - []model.ImportedMesh: all meshes (flattened, one per primitive)
	//   - [][]int: flat indices per glTF mesh
	//   - error: error if extraction fails
	ExtractAllMeshes() ([]model.ImportedMesh, [][]int, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a new mesh extractor over a resolver.
//
// Parameters:
//   - resolver: the accessor resolver for the document's container
//   - registry: the extension registry consulted for primitive extensions
//   - smoothNormals: generate smooth normals from triangles instead of up normals when NORMAL is absent
//   - generateTangents: generate tangents from UVs when TANGENT is absent
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(resolver gltf.AccessorResolver, registry ExtensionRegistry, smoothNormals, generateTangents bool) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{
		resolver:         resolver,
		registry:         registry,
		smoothNormals:    smoothNormals,
		generateTangents: generateTangents,
		quantized:        registry.Enabled(resolver.Document(), ExtMeshQuantization),
	}
}

func (e *gltfMeshExtractorImpl) ExtractMesh(meshIndex int) ([]model.ImportedMesh, error) {
	doc := e.resolver.Document()
	if meshIndex < 0 || meshIndex >= len(doc.Meshes) {
		return nil, gltf.NewFormatError(gltf.KindReference, "mesh out of range (have %d)", len(doc.Meshes)).AtIndex(meshIndex)
	}

	mesh := &doc.Meshes[meshIndex]
	var result []model.ImportedMesh

	for primIdx := range mesh.Primitives {
		prim := &mesh.Primitives[primIdx]
		if _, ok := prim.Attributes[gltf.AttributePosition]; !ok {
			log.Printf("[Loader] mesh %d primitive %d has no POSITION attribute, skipping", meshIndex, primIdx)
			continue
		}

		imported, err := e.extractPrimitive(prim, meshIndex, mesh.Name, primIdx)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", meshIndex, primIdx, err)
		}
		result = append(result, *imported)
	}

	return result, nil
}

func (e *gltfMeshExtractorImpl) ExtractAllMeshes() ([]model.ImportedMesh, [][]int, error) {
	doc := e.resolver.Document()

	var allMeshes []model.ImportedMesh
	primitives := make([][]int, len(doc.Meshes))
	for i := range doc.Meshes {
		meshes, err := e.ExtractMesh(i)
		if err != nil {
			return nil, nil, err
		}
		for _, m := range meshes {
			primitives[i] = append(primitives[i], len(allMeshes))
			allMeshes = append(allMeshes, m)
		}
	}

	return allMeshes, primitives, nil
}

// extractPrimitive extracts a single primitive as an ImportedMesh.
func (e *gltfMeshExtractorImpl) extractPrimitive(prim *gltf.Primitive, meshIndex int, meshName string, primIndex int) (*model.ImportedMesh, error) {
	doc := e.resolver.Document()
	ctx := &ExtensionContext{Document: doc, Resolver: e.resolver}
	if err := e.registry.ParsePrimitive(ctx, prim); err != nil {
		return nil, err
	}

	positions, err := e.readVec3(prim.Attributes[gltf.AttributePosition], e.quantized)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions: %w", err)
	}

	// Initialize vertices with positions
	vertexCount := len(positions)
	vertices := make([]model.GPUVertex, vertexCount)
	for i, pos := range positions {
		vertices[i].Position = pos
		vertices[i].Color = [4]float32{1, 1, 1, 1}
	}

	result := &model.ImportedMesh{
		MeshIndex:      meshIndex,
		PrimitiveIndex: primIndex,
		Mode:           prim.ModeOrDefault(),
		Vertices:       vertices,
		MaterialIndex:  -1,
		Bounds:         common.BoundsOf(positions),
	}

	if accessor, ok := prim.Attributes[gltf.AttributeNormal]; ok {
		normals, err := e.readVec3(accessor, e.quantized)
		if err != nil {
			return nil, fmt.Errorf("failed to read normals: %w", err)
		}
		if err := checkCount(gltf.AttributeNormal, accessor, len(normals), vertexCount); err != nil {
			return nil, err
		}
		for i := range normals {
			vertices[i].Normal = normals[i]
		}
		result.HasNormals = true
	}

	if accessor, ok := prim.Attributes[gltf.AttributeTexCoord0]; ok {
		texCoords, err := e.readTexCoords(accessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read texcoords: %w", err)
		}
		if err := checkCount(gltf.AttributeTexCoord0, accessor, len(texCoords), vertexCount); err != nil {
			return nil, err
		}
		for i := range texCoords {
			vertices[i].TexCoord = texCoords[i]
		}
		result.HasTexCoords = true
	}

	if accessor, ok := prim.Attributes[gltf.AttributeColor0]; ok {
		if err := e.checkColorLayout(accessor); err != nil {
			return nil, fmt.Errorf("failed to read colors: %w", err)
		}
		colors, err := e.resolver.ReadColors(accessor)
		if err != nil {
			return nil, fmt.Errorf("failed to read colors: %w", err)
		}
		if err := checkCount(gltf.AttributeColor0, accessor, len(colors), vertexCount); err != nil {
			return nil, err
		}
		for i := range colors {
			vertices[i].Color = colors[i]
		}
		result.HasColors = true
	}

	// glTF TANGENT is VEC4: xyz = tangent direction, w = handedness (±1).
	if accessor, ok := prim.Attributes[gltf.AttributeTangent]; ok {
		arr, err := e.resolveFloat(accessor, e.quantized, gltf.AccessorTypeVec4)
		if err != nil {
			return nil, fmt.Errorf("failed to read tangents: %w", err)
		}
		if err := checkCount(gltf.AttributeTangent, accessor, arr.Count, vertexCount); err != nil {
			return nil, err
		}
		flat := arr.Float32s()
		for i := range arr.Count {
			copy(vertices[i].Tangent[:], flat[i*4:i*4+4])
		}
		result.HasTangents = true
	}

	if prim.Indices != nil {
		indices, err := e.resolver.ReadIndices(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("failed to read indices: %w", err)
		}
		for i, idx := range indices {
			if int64(idx) >= int64(vertexCount) {
				return nil, gltf.NewFormatError(gltf.KindReference, "index %d at position %d exceeds vertex count %d", idx, i, vertexCount).AtIndex(*prim.Indices)
			}
		}
		result.Indices = indices
	} else {
		// Generate sequential indices if none provided
		result.Indices = make([]uint32, vertexCount)
		for i := range result.Indices {
			result.Indices[i] = uint32(i)
		}
	}

	triangles := result.Mode == gltf.PrimitiveModeTriangles && len(result.Indices) >= 3
	if !result.HasNormals {
		if e.smoothNormals && triangles {
			generateNormals(vertices, result.Indices)
		} else {
			for i := range vertices {
				vertices[i].Normal = upNormal
			}
		}
	}

	// Must run after normals exist because tangents are orthonormalized against them.
	if !result.HasTangents && e.generateTangents && triangles {
		generateTangents(vertices, result.Indices)
	}

	if prim.Material != nil {
		if *prim.Material < 0 || *prim.Material >= len(doc.Materials) {
			return nil, gltf.NewFormatError(gltf.KindReference, "material out of range (have %d)", len(doc.Materials)).AtIndex(*prim.Material)
		}
		result.MaterialIndex = *prim.Material
	}

	// Build mesh name
	name := meshName
	if name == "" {
		name = fmt.Sprintf("Mesh_%d", meshIndex)
	}
	if primIndex > 0 {
		name = fmt.Sprintf("%s_prim%d", name, primIndex)
	}
	result.Name = name

	return result, nil
}

// resolveFloat resolves an accessor of one of the accepted element types whose components are FLOAT,
// or, when quantized is set, any component type (widened per the normalization rules).
func (e *gltfMeshExtractorImpl) resolveFloat(accessor int, quantized bool, accepted ...gltf.AccessorType) (*gltf.AccessorArray, error) {
	arr, err := e.resolver.Resolve(accessor)
	if err != nil {
		return nil, err
	}

	typeOK := false
	for _, t := range accepted {
		typeOK = typeOK || arr.Type == t
	}
	if !typeOK {
		return nil, gltf.NewFormatError(gltf.KindLayout, "accessor type %s, expected %v", arr.Type, accepted).AtIndex(accessor)
	}
	if arr.ComponentType != gltf.ComponentTypeFloat && !quantized {
		return nil, gltf.NewFormatError(gltf.KindLayout, "component type %s, expected FLOAT", arr.ComponentType).AtIndex(accessor)
	}
	return arr, nil
}

// readVec3 reads a VEC3 attribute as float triples.
func (e *gltfMeshExtractorImpl) readVec3(accessor int, quantized bool) ([][3]float32, error) {
	arr, err := e.resolveFloat(accessor, quantized, gltf.AccessorTypeVec3)
	if err != nil {
		return nil, err
	}
	flat := arr.Float32s()
	out := make([][3]float32, arr.Count)
	for i := range out {
		copy(out[i][:], flat[i*3:i*3+3])
	}
	return out, nil
}

// readTexCoords reads TEXCOORD_0, which may be FLOAT or normalized UNSIGNED_BYTE/UNSIGNED_SHORT.
func (e *gltfMeshExtractorImpl) readTexCoords(accessor int) ([][2]float32, error) {
	acc, err := e.accessor(accessor)
	if err != nil {
		return nil, err
	}
	if !e.quantized && acc.ComponentType != gltf.ComponentTypeFloat && !(acc.Normalized && acc.ComponentType.Unsigned() && acc.ComponentType != gltf.ComponentTypeUnsignedInt) {
		return nil, gltf.NewFormatError(gltf.KindLayout, "texcoord component type %s is not FLOAT or normalized unsigned", acc.ComponentType).AtIndex(accessor)
	}
	return e.resolver.ReadVec2(accessor)
}

// checkColorLayout accepts FLOAT or normalized UNSIGNED_BYTE/UNSIGNED_SHORT colors.
func (e *gltfMeshExtractorImpl) checkColorLayout(accessor int) error {
	acc, err := e.accessor(accessor)
	if err != nil {
		return err
	}
	switch acc.ComponentType {
	case gltf.ComponentTypeFloat:
		return nil
	case gltf.ComponentTypeUnsignedByte, gltf.ComponentTypeUnsignedShort:
		if acc.Normalized {
			return nil
		}
	}
	return gltf.NewFormatError(gltf.KindLayout, "color component type %s is not FLOAT or normalized unsigned", acc.ComponentType).AtIndex(accessor)
}

func (e *gltfMeshExtractorImpl) accessor(index int) (*gltf.Accessor, error) {
	doc := e.resolver.Document()
	if index < 0 || index >= len(doc.Accessors) {
		return nil, gltf.NewFormatError(gltf.KindReference, "accessor out of range (have %d)", len(doc.Accessors)).AtIndex(index)
	}
	return &doc.Accessors[index], nil
}

// checkCount verifies a vertex attribute has one element per position.
func checkCount(attribute string, accessor, got, want int) error {
	if got != want {
		return gltf.NewFormatError(gltf.KindReference, "%s has %d elements, POSITION has %d", attribute, got, want).AtIndex(accessor)
	}
	return nil
}

// generateNormals computes smooth vertex normals from the triangle geometry when the
// glTF file does not provide a NORMAL attribute. For each triangle, the face normal is
// computed as the cross product of its two edges, then accumulated (area-weighted) onto
// every vertex of that triangle. All vertex normals are normalized at the end to produce
// smooth shading across shared vertices.
//
// Parameters:
//   - vertices: the vertex slice to write normal data into
//   - indices: the triangle index buffer (must be a multiple of 3)
func generateNormals(vertices []model.GPUVertex, indices []uint32) {
	n := len(vertices)
	accum := make([][3]float32, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}

		p0, p1, p2 := vertices[i0].Position, vertices[i1].Position, vertices[i2].Position

		edge1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		edge2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}

		// Cross product: face normal (length proportional to triangle area)
		faceNormal := [3]float32{
			edge1[1]*edge2[2] - edge1[2]*edge2[1],
			edge1[2]*edge2[0] - edge1[0]*edge2[2],
			edge1[0]*edge2[1] - edge1[1]*edge2[0],
		}

		for _, idx := range []uint32{i0, i1, i2} {
			accum[idx][0] += faceNormal[0]
			accum[idx][1] += faceNormal[1]
			accum[idx][2] += faceNormal[2]
		}
	}

	for i := range n {
		length := float32(math.Sqrt(float64(accum[i][0]*accum[i][0] + accum[i][1]*accum[i][1] + accum[i][2]*accum[i][2])))
		if length < 1e-6 {
			// Degenerate or unreferenced
			vertices[i].Normal = upNormal
			continue
		}
		invLen := 1.0 / length
		vertices[i].Normal = [3]float32{
			accum[i][0] * invLen,
			accum[i][1] * invLen,
			accum[i][2] * invLen,
		}
	}
}

// generateTangents computes per-vertex tangent vectors from triangle topology using the
// UV-gradient method. For each triangle the tangent and bitangent are derived from the UV
// coordinate differences, accumulated per-vertex, and then orthonormalized against the
// vertex normal. The W component stores handedness (±1).
//
// Parameters:
//   - vertices: the vertex slice to write tangent data into
//   - indices: the triangle index buffer (must be a multiple of 3)
func generateTangents(vertices []model.GPUVertex, indices []uint32) {
	n := len(vertices)
	tan := make([][3]float32, n)
	btan := make([][3]float32, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if int(i0) >= n || int(i1) >= n || int(i2) >= n {
			continue
		}

		p0, p1, p2 := vertices[i0].Position, vertices[i1].Position, vertices[i2].Position
		uv0, uv1, uv2 := vertices[i0].TexCoord, vertices[i1].TexCoord, vertices[i2].TexCoord

		edge1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		edge2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}

		duv1 := [2]float32{uv1[0] - uv0[0], uv1[1] - uv0[1]}
		duv2 := [2]float32{uv2[0] - uv0[0], uv2[1] - uv0[1]}

		det := duv1[0]*duv2[1] - duv1[1]*duv2[0]
		if det == 0 {
			continue
		}
		invDet := 1.0 / det

		t := [3]float32{
			invDet * (duv2[1]*edge1[0] - duv1[1]*edge2[0]),
			invDet * (duv2[1]*edge1[1] - duv1[1]*edge2[1]),
			invDet * (duv2[1]*edge1[2] - duv1[1]*edge2[2]),
		}
		b := [3]float32{
			invDet * (-duv2[0]*edge1[0] + duv1[0]*edge2[0]),
			invDet * (-duv2[0]*edge1[1] + duv1[0]*edge2[1]),
			invDet * (-duv2[0]*edge1[2] + duv1[0]*edge2[2]),
		}

		for _, idx := range []uint32{i0, i1, i2} {
			tan[idx][0] += t[0]
			tan[idx][1] += t[1]
			tan[idx][2] += t[2]
			btan[idx][0] += b[0]
			btan[idx][1] += b[1]
			btan[idx][2] += b[2]
		}
	}

	for i := 0; i < n; i++ {
		normal := vertices[i].Normal
		t := tan[i]

		// Gram-Schmidt: T' = normalize(T - N * dot(N, T))
		nDotT := normal[0]*t[0] + normal[1]*t[1] + normal[2]*t[2]
		ortho := [3]float32{
			t[0] - normal[0]*nDotT,
			t[1] - normal[1]*nDotT,
			t[2] - normal[2]*nDotT,
		}

		length := float32(math.Sqrt(float64(ortho[0]*ortho[0] + ortho[1]*ortho[1] + ortho[2]*ortho[2])))
		if length < 1e-6 {
			vertices[i].Tangent = [4]float32{1, 0, 0, 1}
			continue
		}
		invLen := 1.0 / length
		ortho[0] *= invLen
		ortho[1] *= invLen
		ortho[2] *= invLen

		cross := [3]float32{
			normal[1]*ortho[2] - normal[2]*ortho[1],
			normal[2]*ortho[0] - normal[0]*ortho[2],
			normal[0]*ortho[1] - normal[1]*ortho[0],
		}
		w := float32(1.0)
		if cross[0]*btan[i][0]+cross[1]*btan[i][1]+cross[2]*btan[i][2] < 0 {
			w = -1.0
		}

		vertices[i].Tangent = [4]float32{ortho[0], ortho[1], ortho[2], w}
	}
}
