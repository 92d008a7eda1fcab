package gltf

// AccessorResolver decodes accessors of a single Container into typed Go slices.
// Every method is a pure read over the container's resident bytes.
type AccessorResolver interface {
	// Resolve decodes accessor index into its raw typed array.
	//
	// Parameters:
	//   - index: the accessor index
	//
	// Returns:
	//   - *AccessorArray: the decoded components
	//   - error: a *FormatError if the accessor cannot be decoded
	Resolve(index int) (*AccessorArray, error)

	// ReadScalar decodes a SCALAR accessor widened to float32.
	ReadScalar(index int) ([]float32, error)

	// ReadVec2 decodes a VEC2 accessor widened to float32 (normalized integers are mapped to [0,1] or [-1,1]).
	ReadVec2(index int) ([][2]float32, error)

	// ReadVec3 decodes a VEC3 accessor widened to float32.
	ReadVec3(index int) ([][3]float32, error)

	// ReadVec4 decodes a VEC4 accessor widened to float32.
	ReadVec4(index int) ([][4]float32, error)

	// ReadIndices decodes a SCALAR unsigned integer accessor widened to uint32.
	ReadIndices(index int) ([]uint32, error)

	// ReadColors decodes a VEC3 or VEC4 color accessor as RGBA; VEC3 colors get alpha 1.
	ReadColors(index int) ([][4]float32, error)

	// BufferViewBytes returns the raw bytes of a buffer view, aliasing the container's chunk.
	//
	// Parameters:
	//   - index: the bufferView index
	//
	// Returns:
	//   - []byte: the view bytes
	//   - error: a *FormatError if the view is out of range, unavailable or out of bounds
	BufferViewBytes(index int) ([]byte, error)

	// Document returns the document the resolver reads from.
	Document() *Document
}

// accessorResolverImpl is the implementation of the AccessorResolver interface.
type accessorResolverImpl struct {
	doc    *Document
	chunks [][]byte
}

var _ AccessorResolver = &accessorResolverImpl{}

// NewAccessorResolver creates an AccessorResolver over the given container.
//
// Parameters:
//   - c: the parsed container
//
// Returns:
//   - AccessorResolver: the resolver
func NewAccessorResolver(c *Container) AccessorResolver {
	return &accessorResolverImpl{
		doc:    c.Document,
		chunks: c.BinaryChunks,
	}
}

func (r *accessorResolverImpl) Document() *Document {
	return r.doc
}

func (r *accessorResolverImpl) Resolve(index int) (*AccessorArray, error) {
	return ResolveAccessor(r.doc, r.chunks, index)
}

// resolveShape resolves an accessor and checks its element type against the accepted set.
func (r *accessorResolverImpl) resolveShape(index int, accepted ...AccessorType) (*AccessorArray, error) {
	arr, err := r.Resolve(index)
	if err != nil {
		return nil, err
	}
	for _, t := range accepted {
		if arr.Type == t {
			return arr, nil
		}
	}
	return nil, NewFormatError(KindLayout, "accessor type %s, expected %v", arr.Type, accepted).AtIndex(index)
}

func (r *accessorResolverImpl) ReadScalar(index int) ([]float32, error) {
	arr, err := r.resolveShape(index, AccessorTypeScalar)
	if err != nil {
		return nil, err
	}
	return arr.Float32s(), nil
}

func (r *accessorResolverImpl) ReadVec2(index int) ([][2]float32, error) {
	arr, err := r.resolveShape(index, AccessorTypeVec2)
	if err != nil {
		return nil, err
	}
	flat := arr.Float32s()
	out := make([][2]float32, arr.Count)
	for i := range out {
		copy(out[i][:], flat[i*2:i*2+2])
	}
	return out, nil
}

func (r *accessorResolverImpl) ReadVec3(index int) ([][3]float32, error) {
	arr, err := r.resolveShape(index, AccessorTypeVec3)
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

func (r *accessorResolverImpl) ReadVec4(index int) ([][4]float32, error) {
	arr, err := r.resolveShape(index, AccessorTypeVec4)
	if err != nil {
		return nil, err
	}
	flat := arr.Float32s()
	out := make([][4]float32, arr.Count)
	for i := range out {
		copy(out[i][:], flat[i*4:i*4+4])
	}
	return out, nil
}

func (r *accessorResolverImpl) ReadIndices(index int) ([]uint32, error) {
	arr, err := r.resolveShape(index, AccessorTypeScalar)
	if err != nil {
		return nil, err
	}
	out, err := arr.Uint32s()
	if err != nil {
		return nil, err.(*FormatError).AtIndex(index)
	}
	return out, nil
}

func (r *accessorResolverImpl) ReadColors(index int) ([][4]float32, error) {
	arr, err := r.resolveShape(index, AccessorTypeVec3, AccessorTypeVec4)
	if err != nil {
		return nil, err
	}
	n := arr.ComponentCount()
	flat := arr.Float32s()
	out := make([][4]float32, arr.Count)
	for i := range out {
		out[i][3] = 1
		copy(out[i][:n], flat[i*n:i*n+n])
	}
	return out, nil
}

func (r *accessorResolverImpl) BufferViewBytes(index int) ([]byte, error) {
	if index < 0 || index >= len(r.doc.BufferViews) {
		return nil, NewFormatError(KindReference, "bufferView out of range (have %d)", len(r.doc.BufferViews)).AtIndex(index)
	}
	view := &r.doc.BufferViews[index]
	if view.Buffer < 0 || view.Buffer >= len(r.chunks) {
		return nil, NewFormatError(KindAvailability, "missing buffer data for buffer %d (external buffers are not loaded)", view.Buffer).AtIndex(index)
	}
	chunk := r.chunks[view.Buffer]
	if view.ByteOffset < 0 || view.ByteLength < 0 {
		return nil, NewFormatError(KindBounds, "negative bufferView offset or length").AtIndex(index)
	}
	start := int64(view.ByteOffset)
	end := start + int64(view.ByteLength)
	if end > int64(len(chunk)) {
		return nil, NewFormatError(KindBounds, "bufferView of %d bytes exceeds buffer %d length %d", view.ByteLength, view.Buffer, len(chunk)).AtOffset(start).AtIndex(index)
	}
	return chunk[start:end:end], nil
}
