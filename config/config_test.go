package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		check   func(t *testing.T, c Config)
		wantErr string
	}{
		{
			name: "empty file keeps defaults",
			yaml: "",
			check: func(t *testing.T, c Config) {
				if !reflect.DeepEqual(c, Default()) {
					t.Errorf("config = %+v, want defaults", c)
				}
			},
		},
		{
			name: "overrides",
			yaml: "addr: 127.0.0.1:9000\nworkers: 8\nsmooth_normals: true\ndisabled_extensions: [KHR_texture_basisu]\nshutdown_grace: 2s\n",
			check: func(t *testing.T, c Config) {
				if c.Addr != "127.0.0.1:9000" || c.Workers != 8 || !c.SmoothNormals {
					t.Errorf("config = %+v", c)
				}
				if c.ShutdownGrace != 2*time.Second {
					t.Errorf("ShutdownGrace = %v", c.ShutdownGrace)
				}
				if len(c.DisabledExtensions) != 1 || c.DisabledExtensions[0] != "KHR_texture_basisu" {
					t.Errorf("DisabledExtensions = %v", c.DisabledExtensions)
				}
				if c.DefaultModel != DefaultModel || c.ThumbnailSize != DefaultThumbnailSize {
					t.Error("unset fields lost their defaults")
				}
			},
		},
		{
			name:    "unknown key",
			yaml:    "adress: :80\n",
			wantErr: "field adress not found",
		},
		{
			name:    "malformed",
			yaml:    "addr: [\n",
			wantErr: "Failed to unmarshal yaml",
		},
		{
			name:    "zero workers",
			yaml:    "workers: 0\n",
			wantErr: "workers must be at least 1",
		},
		{
			name:    "empty addr",
			yaml:    "addr: \"\"\n",
			wantErr: "addr must not be empty",
		},
		{
			name:    "negative grace",
			yaml:    "shutdown_grace: -1s\n",
			wantErr: "shutdown_grace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Decode(strings.NewReader(tt.yaml))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			tt.check(t, c)
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	if err != nil || !reflect.DeepEqual(c, Default()) {
		t.Errorf("Load(\"\") = %+v, %v", c, err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !os.IsNotExist(errors.Cause(err)) {
		t.Errorf("missing file: err = %v", err)
	}

	want := Default()
	want.Debug = true
	want.Preload = []string{"a.glb", "b.glb"}
	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
}
