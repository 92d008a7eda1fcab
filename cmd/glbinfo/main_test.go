package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-glb/engine/exporter"
	"github.com/Carmen-Shannon/oxy-glb/engine/gltf"
	"github.com/Carmen-Shannon/oxy-glb/engine/model"
)

func lineGLB(t *testing.T, points int) []byte {
	t.Helper()
	mesh := model.ImportedMesh{Name: "line", Mode: 3, MaterialIndex: -1}
	for i := 0; i < points; i++ {
		mesh.Vertices = append(mesh.Vertices, model.GPUVertex{Position: [3]float32{float32(i), 0, 0}, Normal: [3]float32{0, 1, 0}})
		mesh.Indices = append(mesh.Indices, uint32(i))
	}
	var buf bytes.Buffer
	if err := exporter.ExportGLB(&buf, &model.ImportedModel{Name: "line", Meshes: []model.ImportedMesh{mesh}}); err != nil {
		t.Fatalf("ExportGLB: %v", err)
	}
	return buf.Bytes()
}

func TestPrintSummaryAndAccessor(t *testing.T) {
	c, err := gltf.ParseContainer(lineGLB(t, 12))
	if err != nil {
		t.Fatalf("ParseContainer: %v", err)
	}

	var out bytes.Buffer
	printSummary(&out, "line.glb", c)
	for _, want := range []string{"GLB version 2", "1 BIN chunk", "meshes 1", exporter.Generator} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, out.String())
		}
	}

	pos := c.Document.Meshes[0].Primitives[0].Attributes[gltf.AttributePosition]
	out.Reset()
	if err := printAccessor(&out, c, pos, false); err != nil {
		t.Fatalf("printAccessor: %v", err)
	}
	if s := out.String(); !strings.Contains(s, "VEC3") || !strings.Contains(s, "[7] [7 0 0]") || !strings.Contains(s, "... 4 more") {
		t.Errorf("accessor output:\n%s", s)
	}

	if err := printAccessor(&out, c, 99, false); !gltf.IsKind(err, gltf.KindReference) {
		t.Errorf("err = %v, want reference error", err)
	}
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.glb")
	if err := exportFile("line.glb", lineGLB(t, 3), out); err != nil {
		t.Fatalf("exportFile: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !gltf.IsGLB(data) {
		t.Error("exported file is not GLB")
	}

	if err := exportFile("bad.glb", []byte("{"), out); err == nil {
		t.Error("exportFile accepted malformed input")
	}
}
