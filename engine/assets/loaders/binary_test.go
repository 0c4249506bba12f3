package loaders

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spaghettifunk/anima-toon/engine/renderer/metadata"
)

func TestBytesToBytecode(t *testing.T) {
	got := BytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00, 0xff})
	want := []uint32{0x07230203, 0x00010000}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BytesToBytecode() = %#x, want %#x", got, want)
	}
}

func TestBinaryLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toon.spv")
	if err := os.WriteFile(path, []byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}

	bl := &BinaryLoader{}
	res, err := bl.Load(path, metadata.ResourceTypeBinary, map[string]string{"name": "toon"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Name != "toon" || res.DataSize != 8 {
		t.Errorf("Load() = %s/%d, want toon/8", res.Name, res.DataSize)
	}
	words, ok := res.Data.([]uint32)
	if !ok || len(words) != 2 || words[0] != 0x07230203 {
		t.Errorf("Load().Data = %v, want SPIR-V words", res.Data)
	}
	if err := bl.Unload(res); err != nil || res.Data != nil {
		t.Errorf("Unload() = %v, data %v", err, res.Data)
	}

	tests := []struct {
		name      string
		content   []byte
		assetType metadata.ResourceType
	}{
		{"odd size", []byte{1, 2, 3}, metadata.ResourceTypeBinary},
		{"empty", nil, metadata.ResourceTypeBinary},
		{"wrong type", []byte{1, 2, 3, 4}, metadata.ResourceTypeShadingConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(dir, tt.name+".spv")
			if err := os.WriteFile(p, tt.content, 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := bl.Load(p, tt.assetType, nil); err == nil {
				t.Errorf("Load() error = nil, want error")
			}
		})
	}
	if _, err := bl.Load(filepath.Join(dir, "missing.spv"), metadata.ResourceTypeBinary, nil); err == nil {
		t.Errorf("Load(missing) error = nil, want error")
	}
}
