package gltf

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"log"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Container is the result of parsing a .glb or .gltf byte stream: the decoded document plus the
// binary chunks that accessors index through bufferView.buffer.
// A Container is never mutated after ParseContainer returns; loading another file produces a new one.
type Container struct {
	// Document is the decoded JSON scene description.
	Document *Document

	// BinaryChunks holds the payload of each BIN chunk in encounter order. Empty for bare JSON input.
	// Each entry aliases the input slice.
	BinaryChunks [][]byte

	// IsGLB reports whether the input carried the GLB magic.
	IsGLB bool

	// Version is the GLB header version (read, never validated). Zero for bare JSON.
	Version uint32

	// DeclaredLength is the total length stated in the GLB header. Zero for bare JSON.
	DeclaredLength uint32
}

// IsGLB reports whether data starts with the GLB magic number.
//
// Parameters:
//   - data: the raw file bytes
//
// Returns:
//   - bool: true when the first four bytes decode (little-endian) to 0x46546C67
func IsGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == GLBMagic
}

// ParseContainer splits a GLB byte stream into its JSON document and binary chunks, or decodes a bare
// glTF JSON document when the GLB magic is absent. It performs no I/O and does not validate
// cross-references between document objects; the accessor resolver does that on demand.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
//
// Parameters:
//   - data: the complete contents of a .glb or .gltf file
//
// Returns:
//   - *Container: the parsed container
//   - error: a *FormatError if the input is malformed
func ParseContainer(data []byte) (*Container, error) {
	if !IsGLB(data) {
		doc, err := decodeDocument(data, 0)
		if err != nil {
			return nil, err
		}
		return &Container{Document: doc}, nil
	}

	return parseGLB(data)
}

// parseGLB walks the chunk list of a GLB stream.
func parseGLB(data []byte) (*Container, error) {
	size := int64(len(data))
	if size < glbHeaderSize {
		return nil, NewFormatError(KindStructural, "GLB header truncated: need %d bytes, have %d", glbHeaderSize, size).AtOffset(size)
	}

	c := &Container{
		IsGLB:          true,
		Version:        binary.LittleEndian.Uint32(data[4:8]),
		DeclaredLength: binary.LittleEndian.Uint32(data[8:12]),
	}
	if int64(c.DeclaredLength) != size {
		log.Printf("[GLTF] GLB header declares %d bytes, input has %d", c.DeclaredLength, size)
	}

	var jsonStart, jsonEnd int64 = -1, -1
	offset := int64(glbHeaderSize)
	for chunkIndex := 0; offset < size; chunkIndex++ {
		if size-offset < glbChunkSize {
			return nil, NewFormatError(KindStructural, "chunk header truncated: %d bytes left", size-offset).AtOffset(offset).AtIndex(chunkIndex)
		}

		chunkLength := int64(binary.LittleEndian.Uint32(data[offset : offset+4]))
		chunkType := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		start := offset + glbChunkSize
		end := start + chunkLength
		if end > size {
			return nil, NewFormatError(KindStructural, "chunk payload of %d bytes runs past end of input (%d bytes)", chunkLength, size).AtOffset(offset).AtIndex(chunkIndex)
		}

		if chunkIndex == 0 && chunkType != GLBChunkJSON {
			return nil, NewFormatError(KindStructural, "first chunk is not JSON (type 0x%08X)", chunkType).AtOffset(offset).AtIndex(chunkIndex)
		}

		switch chunkType {
		case GLBChunkJSON:
			if jsonStart >= 0 {
				return nil, NewFormatError(KindStructural, "duplicate JSON chunk").AtOffset(offset).AtIndex(chunkIndex)
			}
			jsonStart, jsonEnd = start, end
		case GLBChunkBIN:
			c.BinaryChunks = append(c.BinaryChunks, data[start:end:end])
		}

		offset = end
	}

	if jsonStart < 0 {
		return nil, NewFormatError(KindStructural, "GLB has no JSON chunk").AtOffset(glbHeaderSize)
	}

	doc, err := decodeDocument(data[jsonStart:jsonEnd], jsonStart)
	if err != nil {
		return nil, err
	}
	c.Document = doc

	return c, nil
}

// utf8BOM is the byte-order mark some exporters leave in front of the JSON text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeDocument decodes UTF-8 JSON text into a Document. base is the absolute offset of text within
// the original input and is added to decoder offsets in error reports.
func decodeDocument(text []byte, base int64) (*Document, error) {
	bomLen := int64(0)
	if bytes.HasPrefix(text, utf8BOM) {
		bomLen = int64(len(utf8BOM))
	}

	// The decoder substitutes U+FFFD for invalid bytes, which would shift decoder offsets.
	if bad := invalidUTF8Offset(text); bad >= 0 {
		return nil, NewFormatError(KindSyntax, "JSON text is not valid UTF-8").AtOffset(base + int64(bad))
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), text)
	if err != nil {
		return nil, NewFormatError(KindSyntax, "failed to decode JSON text").AtOffset(base).Wrap(err)
	}

	var doc Document
	if err := json.Unmarshal(decoded, &doc); err != nil {
		return nil, NewFormatError(KindSyntax, "failed to decode glTF JSON").AtOffset(base + bomLen + jsonErrorOffset(err)).Wrap(err)
	}

	return &doc, nil
}

// invalidUTF8Offset returns the offset of the first byte that does not start a valid UTF-8 sequence,
// or -1 when text is valid.
func invalidUTF8Offset(text []byte) int {
	if utf8.Valid(text) {
		return -1
	}
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRune(text[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

// jsonErrorOffset extracts the input offset carried by encoding/json errors.
func jsonErrorOffset(err error) int64 {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Offset
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeErr.Offset
	}
	return 0
}
