//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

const sampleConfig = "assets/config/toon.toml"

type Run mg.Namespace

// Renders the sample configuration with the precompiled shaders.
func (Run) Render() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run render...")
	if _, err := executeCmd("go", withArgs("run", ".", "render", "--config", sampleConfig, "--shader-dir", shaderDir, "--out", "toon.png"), withStream()); err != nil {
		return err
	}
	return nil
}

// Prints the style table of the sample configuration.
func (Run) Style() error {
	if _, err := executeCmd("go", withArgs("run", ".", "style", "--config", sampleConfig), withStream()); err != nil {
		return err
	}
	return nil
}

type Test mg.Namespace

// Runs every test; GPU tests skip themselves without a Vulkan device.
func (Test) Unit() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the GPU-backed packages with the race detector and validation logs.
func (Test) GPU() error {
	if _, err := executeCmd("go", withArgs("test", "-race", "-v", "./engine/renderer/..."), withStream()); err != nil {
		return err
	}
	return nil
}
