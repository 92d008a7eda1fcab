package loader

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/Carmen-Shannon/oxy-glb/common"
	"github.com/Carmen-Shannon/oxy-glb/engine/gltf"
)

func TestExtensionRegistry_Defaults(t *testing.T) {
	r := NewDefaultExtensionRegistry()
	want := []string{
		ExtTextureWebP,
		ExtDracoMeshCompression,
		ExtMaterialsEmissiveStrength,
		ExtMaterialsSpecularGlossiness,
		ExtMaterialsTransmission,
		ExtMaterialsUnlit,
		ExtMeshQuantization,
		ExtTextureBasisu,
	}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}

	doc := &gltf.Document{ExtensionsUsed: []string{ExtMeshQuantization, "VENDOR_x"}}
	if !r.Enabled(doc, ExtMeshQuantization) {
		t.Error("quantization should be enabled when declared and registered")
	}
	if r.Enabled(doc, "VENDOR_x") {
		t.Error("unregistered extension must not be enabled")
	}
	if r.Enabled(&gltf.Document{}, ExtMeshQuantization) {
		t.Error("undeclared extension must not be enabled")
	}
}

func TestExtensionRegistry_CheckRequired(t *testing.T) {
	r := NewDefaultExtensionRegistry()
	doc := &gltf.Document{ExtensionsRequired: []string{ExtMaterialsUnlit, "VENDOR_required"}}
	if got := r.CheckRequired(doc); !reflect.DeepEqual(got, []string{"VENDOR_required"}) {
		t.Errorf("CheckRequired = %v", got)
	}
}

func TestExtensionRegistry_CustomHandler(t *testing.T) {
	r := NewExtensionRegistry()
	errBoom := errors.New("boom")
	r.Register("VENDOR_tint", ExtensionHandler{
		ParseMaterial: func(_ *ExtensionContext, raw json.RawMessage, mat *common.ImportedMaterial) error {
			var ext struct {
				Fail bool `json:"fail"`
			}
			if err := json.Unmarshal(raw, &ext); err != nil {
				return err
			}
			if ext.Fail {
				return errBoom
			}
			mat.BaseColor = [4]float32{1, 0, 0, 1}
			return nil
		},
	})

	mat := common.DefaultImportedMaterial("m")
	if err := r.ParseMaterial(nil, gltf.Extensions{"VENDOR_tint": json.RawMessage(`{}`)}, &mat); err != nil {
		t.Fatalf("ParseMaterial: %v", err)
	}
	if mat.BaseColor != [4]float32{1, 0, 0, 1} || !reflect.DeepEqual(mat.Extensions, []string{"VENDOR_tint"}) {
		t.Errorf("material = %+v", mat)
	}

	err := r.ParseMaterial(nil, gltf.Extensions{"VENDOR_tint": json.RawMessage(`{"fail":true}`)}, &mat)
	if !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want handler error", err)
	}

	r.Unregister("VENDOR_tint")
	if r.Supported("VENDOR_tint") {
		t.Error("handler still registered after Unregister")
	}
}

func TestLoadSourceOverride(t *testing.T) {
	ctx := &ExtensionContext{Document: &gltf.Document{Images: make([]gltf.Image, 2)}}
	tests := []struct {
		raw     string
		want    int
		wantOK  bool
		wantErr bool
	}{
		{raw: `{"source":1}`, want: 1, wantOK: true},
		{raw: `{}`},
		{raw: `{"source":5}`, wantErr: true},
		{raw: `[`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok, err := loadSourceOverride(ctx, json.RawMessage(tt.raw), &gltf.Texture{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("got %d %v, want %d %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
