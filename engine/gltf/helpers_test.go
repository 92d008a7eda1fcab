package gltf

import (
	"encoding/binary"
	"math"
	"testing"
)

// testChunk is one raw chunk for buildGLB.
type testChunk struct {
	typ     uint32
	payload []byte
}

// buildGLB assembles a GLB stream from chunks. JSON payloads are padded with spaces and
// everything else with zeros, to a 4-byte boundary.
func buildGLB(t *testing.T, chunks ...testChunk) []byte {
	t.Helper()

	out := make([]byte, glbHeaderSize)
	for _, c := range chunks {
		payload := append([]byte(nil), c.payload...)
		pad := byte(0)
		if c.typ == GLBChunkJSON {
			pad = ' '
		}
		for len(payload)%4 != 0 {
			payload = append(payload, pad)
		}
		out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
		out = binary.LittleEndian.AppendUint32(out, c.typ)
		out = append(out, payload...)
	}

	binary.LittleEndian.PutUint32(out[0:4], GLBMagic)
	binary.LittleEndian.PutUint32(out[4:8], 2)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(out)))
	return out
}

func jsonChunk(text string) testChunk {
	return testChunk{typ: GLBChunkJSON, payload: []byte(text)}
}

func binChunk(payload []byte) testChunk {
	return testChunk{typ: GLBChunkBIN, payload: payload}
}

func float32Bytes(values ...float32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func uint16Bytes(values ...uint16) []byte {
	out := make([]byte, 0, len(values)*2)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	return out
}

func intPtr(v int) *int {
	return &v
}

// mustParse parses data and fails the test on error.
func mustParse(t *testing.T, data []byte) *Container {
	t.Helper()
	c, err := ParseContainer(data)
	if err != nil {
		t.Fatalf("ParseContainer: %v", err)
	}
	return c
}

// wantKind fails the test unless err is a FormatError of the given kind.
func wantKind(t *testing.T, err error, kind FormatErrorKind) *FormatError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !IsKind(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
	return err.(*FormatError)
}
