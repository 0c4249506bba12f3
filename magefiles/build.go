//go:build mage

package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/spaghettifunk/anima-toon/engine/renderer/toon"
)

const (
	binaryPath = "bin/anima-toon"
	shaderDir  = "build/shaders"
)

type Build mg.Namespace

// Compiles the embedded WGSL shaders to build/shaders/<name>.spv.
func (Build) Shaders() error {
	return buildShaders()
}

// Tidies the module and builds the binary into bin/.
func (Build) Binary() error {
	if err := goTidy(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "-o", binaryPath, "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	if err := os.MkdirAll(shaderDir, 0o755); err != nil {
		return err
	}
	for _, name := range toon.ShaderNames {
		src, err := toon.WGSL(name)
		if err != nil {
			return err
		}
		words, err := toon.CompileWGSL(src)
		if err != nil {
			return fmt.Errorf("compiling %s: %w", name, err)
		}
		raw := make([]byte, len(words)*4)
		for i, w := range words {
			binary.LittleEndian.PutUint32(raw[i*4:], w)
		}
		path := filepath.Join(shaderDir, name+".spv")
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return err
		}
		fmt.Printf("Compiled %s (%d words)\n", path, len(words))
	}
	return nil
}
