package gltf

import (
	"encoding/binary"
	"math"
)

// AccessorArray is the decoded content of one accessor: a flat, row-major array of
// Count * ComponentCount() components. Exactly one of the typed slices is populated,
// selected by ComponentType.
type AccessorArray struct {
	ComponentType ComponentType
	Type          AccessorType
	Count         int
	Normalized    bool

	Int8    []int8
	Uint8   []uint8
	Int16   []int16
	Uint16  []uint16
	Uint32  []uint32
	Float32 []float32
}

// ComponentCount returns the number of components per element.
func (a *AccessorArray) ComponentCount() int {
	return a.Type.ComponentCount()
}

// Len returns the total number of components (Count * ComponentCount()).
func (a *AccessorArray) Len() int {
	switch a.ComponentType {
	case ComponentTypeByte:
		return len(a.Int8)
	case ComponentTypeUnsignedByte:
		return len(a.Uint8)
	case ComponentTypeShort:
		return len(a.Int16)
	case ComponentTypeUnsignedShort:
		return len(a.Uint16)
	case ComponentTypeUnsignedInt:
		return len(a.Uint32)
	case ComponentTypeFloat:
		return len(a.Float32)
	default:
		return 0
	}
}

// Float32s returns the components widened to float32. When the accessor is normalized, integer
// components are mapped per the glTF rules (unsigned c/max, signed max(c/max, -1)).
// Float data is returned as-is without copying.
//
// Returns:
//   - []float32: the widened components
func (a *AccessorArray) Float32s() []float32 {
	if a.ComponentType == ComponentTypeFloat {
		return a.Float32
	}

	out := make([]float32, a.Len())
	switch a.ComponentType {
	case ComponentTypeByte:
		for i, v := range a.Int8 {
			out[i] = widen(float32(v), math.MaxInt8, a.Normalized, true)
		}
	case ComponentTypeUnsignedByte:
		for i, v := range a.Uint8 {
			out[i] = widen(float32(v), math.MaxUint8, a.Normalized, false)
		}
	case ComponentTypeShort:
		for i, v := range a.Int16 {
			out[i] = widen(float32(v), math.MaxInt16, a.Normalized, true)
		}
	case ComponentTypeUnsignedShort:
		for i, v := range a.Uint16 {
			out[i] = widen(float32(v), math.MaxUint16, a.Normalized, false)
		}
	case ComponentTypeUnsignedInt:
		for i, v := range a.Uint32 {
			out[i] = widen(float32(v), math.MaxUint32, a.Normalized, false)
		}
	}
	return out
}

func widen(v, max float32, normalized, signed bool) float32 {
	if !normalized {
		return v
	}
	n := v / max
	if signed && n < -1 {
		return -1
	}
	return n
}

// Uint32s returns unsigned integer components widened to uint32. Index buffers use this.
//
// Returns:
//   - []uint32: the widened components
//   - error: a *FormatError if the component type is signed or floating point
func (a *AccessorArray) Uint32s() ([]uint32, error) {
	switch a.ComponentType {
	case ComponentTypeUnsignedByte:
		out := make([]uint32, len(a.Uint8))
		for i, v := range a.Uint8 {
			out[i] = uint32(v)
		}
		return out, nil
	case ComponentTypeUnsignedShort:
		out := make([]uint32, len(a.Uint16))
		for i, v := range a.Uint16 {
			out[i] = uint32(v)
		}
		return out, nil
	case ComponentTypeUnsignedInt:
		return a.Uint32, nil
	default:
		return nil, NewFormatError(KindLayout, "component type %s is not an unsigned integer type", a.ComponentType)
	}
}

// ResolveAccessor decodes accessor accessorIndex of doc from the given binary chunks.
// The chunk for a buffer view is chunks[bufferView.buffer]; a missing chunk (bare JSON glTF that
// references an external .bin) is reported as an availability error. The resolver never fabricates
// data: accessors without a buffer view, sparse accessors and interleaved views are rejected.
//
// Parameters:
//   - doc: the parsed document
//   - chunks: the container's binary chunks
//   - accessorIndex: the index into doc.Accessors
//
// Returns:
//   - *AccessorArray: the decoded components
//   - error: a *FormatError describing the first violated constraint
func ResolveAccessor(doc *Document, chunks [][]byte, accessorIndex int) (*AccessorArray, error) {
	if doc == nil {
		return nil, NewFormatError(KindReference, "no document")
	}
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, NewFormatError(KindReference, "accessor out of range (have %d)", len(doc.Accessors)).AtIndex(accessorIndex)
	}

	acc := &doc.Accessors[accessorIndex]
	if acc.Sparse != nil {
		return nil, NewFormatError(KindLayout, "sparse accessors are not supported").AtIndex(accessorIndex)
	}
	if acc.BufferView == nil {
		if len(chunks) == 0 {
			return nil, NewFormatError(KindAvailability, "missing buffer data: accessor has no bufferView and no binary chunk is resident").AtIndex(accessorIndex)
		}
		return nil, NewFormatError(KindReference, "accessor has no bufferView").AtIndex(accessorIndex)
	}

	width := acc.ComponentType.ByteWidth()
	if width == 0 {
		return nil, NewFormatError(KindLayout, "unknown component type %d", int(acc.ComponentType)).AtIndex(accessorIndex)
	}
	components := acc.Type.ComponentCount()
	if components == 0 {
		return nil, NewFormatError(KindLayout, "unknown accessor type %q", string(acc.Type)).AtIndex(accessorIndex)
	}

	viewIndex := *acc.BufferView
	if viewIndex < 0 || viewIndex >= len(doc.BufferViews) {
		return nil, NewFormatError(KindReference, "accessor %d references bufferView out of range (have %d)", accessorIndex, len(doc.BufferViews)).AtIndex(viewIndex)
	}
	view := &doc.BufferViews[viewIndex]

	elementSize := components * width
	if view.ByteStride != nil && *view.ByteStride != elementSize {
		return nil, NewFormatError(KindLayout, "unsupported interleaved layout: bufferView %d stride %d, element size %d", viewIndex, *view.ByteStride, elementSize).AtIndex(accessorIndex)
	}

	if view.Buffer < 0 || view.Buffer >= len(chunks) {
		return nil, NewFormatError(KindAvailability, "missing buffer data for buffer %d (external buffers are not loaded)", view.Buffer).AtIndex(accessorIndex)
	}
	chunk := chunks[view.Buffer]

	if view.ByteOffset < 0 || acc.ByteOffset < 0 || acc.Count < 0 || view.ByteLength < 0 {
		return nil, NewFormatError(KindBounds, "negative offset, length or count").AtIndex(accessorIndex)
	}
	start := int64(view.ByteOffset) + int64(acc.ByteOffset)
	// Checked before multiplying so a huge count cannot wrap the byte total.
	if start > int64(len(chunk)) || int64(acc.Count) > (int64(len(chunk))-start)/int64(elementSize) {
		return nil, NewFormatError(KindBounds, "accessor of %d elements of %d bytes exceeds buffer %d length %d", acc.Count, elementSize, view.Buffer, len(chunk)).AtOffset(start).AtIndex(accessorIndex)
	}
	total := int64(acc.Count) * int64(elementSize)
	end := start + total
	if end > int64(len(chunk)) {
		return nil, NewFormatError(KindBounds, "read of %d bytes exceeds buffer %d length %d", total, view.Buffer, len(chunk)).AtOffset(start).AtIndex(accessorIndex)
	}
	if end > int64(view.ByteOffset)+int64(view.ByteLength) {
		return nil, NewFormatError(KindBounds, "read of %d bytes exceeds bufferView %d length %d", total, viewIndex, view.ByteLength).AtOffset(start).AtIndex(accessorIndex)
	}

	out := &AccessorArray{
		ComponentType: acc.ComponentType,
		Type:          acc.Type,
		Count:         acc.Count,
		Normalized:    acc.Normalized,
	}
	decodeComponents(out, chunk[start:end], acc.Count*components)

	return out, nil
}

// decodeComponents fills the typed slice of out from little-endian bytes.
func decodeComponents(out *AccessorArray, src []byte, n int) {
	switch out.ComponentType {
	case ComponentTypeByte:
		out.Int8 = make([]int8, n)
		for i := range out.Int8 {
			out.Int8[i] = int8(src[i])
		}
	case ComponentTypeUnsignedByte:
		out.Uint8 = make([]uint8, n)
		copy(out.Uint8, src)
	case ComponentTypeShort:
		out.Int16 = make([]int16, n)
		for i := range out.Int16 {
			out.Int16[i] = int16(binary.LittleEndian.Uint16(src[i*2:]))
		}
	case ComponentTypeUnsignedShort:
		out.Uint16 = make([]uint16, n)
		for i := range out.Uint16 {
			out.Uint16[i] = binary.LittleEndian.Uint16(src[i*2:])
		}
	case ComponentTypeUnsignedInt:
		out.Uint32 = make([]uint32, n)
		for i := range out.Uint32 {
			out.Uint32[i] = binary.LittleEndian.Uint32(src[i*4:])
		}
	case ComponentTypeFloat:
		out.Float32 = make([]float32, n)
		for i := range out.Float32 {
			out.Float32[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
		}
	}
}
