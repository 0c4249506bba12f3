package toon

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spaghettifunk/anima-toon/engine/core"
)

const spirvMagic = 0x07230203

func TestEmbeddedShaderSources(t *testing.T) {
	tests := []struct {
		name     string
		contains []string
	}{
		{ShaderFullscreen, []string{"@vertex", "fn vs_main", "vertex_index"}},
		{ShaderGBuffer, []string{"@fragment", "fn fs_main", "var<push_constant>", "@location(2)"}},
		{ShaderGBufferMesh, []string{"@vertex", "@fragment", "fn vs_main", "fn fs_main", "mvp"}},
		{ShaderToon, []string{"@fragment", "fn fs_main", "@binding(4)", "texture_2d<u32>", "array<vec4<f32>, 24>", "discard"}},
		{ShaderOutline, []string{"@vertex", "@fragment", "fn vs_main", "fn fs_main", "width"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := WGSL(tt.name)
			if err != nil {
				t.Fatalf("WGSL(%q) error = %v", tt.name, err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(src, want) {
					t.Errorf("WGSL(%q) does not contain %q", tt.name, want)
				}
			}
		})
	}
	if len(ShaderNames) != len(tests) {
		t.Errorf("len(ShaderNames) = %d, want %d", len(ShaderNames), len(tests))
	}
}

func TestWGSLUnknown(t *testing.T) {
	if _, err := WGSL("missing"); !errors.Is(err, core.ErrShaderModule) {
		t.Errorf("WGSL(missing) error = %v, want ErrShaderModule", err)
	}
	if _, err := (&EmbeddedShaders{}).SPIRV("missing"); !errors.Is(err, core.ErrShaderModule) {
		t.Errorf("SPIRV(missing) error = %v, want ErrShaderModule", err)
	}
}

func TestCompileEmbedded(t *testing.T) {
	shaders := &EmbeddedShaders{}
	for _, name := range ShaderNames {
		t.Run(name, func(t *testing.T) {
			code, err := shaders.SPIRV(name)
			if err != nil {
				t.Fatalf("SPIRV(%q) error = %v", name, err)
			}
			if len(code) < 5 || code[0] != spirvMagic {
				t.Fatalf("SPIRV(%q) does not start with the SPIR-V magic number", name)
			}
			again, err := shaders.SPIRV(name)
			if err != nil {
				t.Fatalf("SPIRV(%q) error = %v", name, err)
			}
			if &again[0] != &code[0] {
				t.Errorf("second SPIRV(%q) recompiled instead of reusing the words", name)
			}
		})
	}
}

func TestCompileWGSLInvalid(t *testing.T) {
	if _, err := CompileWGSL("fn broken( {"); err == nil {
		t.Errorf("CompileWGSL() on invalid source returned no error")
	}
}

func TestDirShaders(t *testing.T) {
	dir := t.TempDir()
	words := []uint32{spirvMagic, 0x00010000, 0, 1, 0}
	raw := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(raw[i*4:], w)
	}
	if err := os.WriteFile(filepath.Join(dir, ShaderToon+".spv"), raw, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ShaderOutline+".spv"), raw[:6], 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewDirShaders(dir)
	got, err := src.SPIRV(ShaderToon)
	if err != nil {
		t.Fatalf("SPIRV(%q) error = %v", ShaderToon, err)
	}
	if len(got) != len(words) || got[0] != spirvMagic {
		t.Errorf("SPIRV(%q) = %x, want %x", ShaderToon, got, words)
	}

	for _, name := range []string{ShaderOutline, ShaderGBuffer} {
		if _, err := src.SPIRV(name); !errors.Is(err, core.ErrShaderModule) {
			t.Errorf("SPIRV(%q) error = %v, want ErrShaderModule", name, err)
		}
	}
}

func TestStageConfigs(t *testing.T) {
	stages := stageConfigs(ShaderFullscreen, ShaderToon)
	if len(stages) != 2 {
		t.Fatalf("len(stageConfigs()) = %d, want 2", len(stages))
	}
	if stages[0].Name != ShaderFullscreen || stages[0].EntryPoint != "vs_main" {
		t.Errorf("vertex stage = %+v", stages[0])
	}
	if stages[1].Name != ShaderToon || stages[1].EntryPoint != "fs_main" {
		t.Errorf("fragment stage = %+v", stages[1])
	}
}
