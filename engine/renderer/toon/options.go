package toon

import (
	"github.com/spaghettifunk/anima-toon/engine/math"
	"github.com/spaghettifunk/anima-toon/engine/renderer/vulkan"
)

// DefaultOutlinePx is the stroke width used when none is given.
const DefaultOutlinePx float32 = 2

// Material ids written when the caller does not choose one.
const (
	defaultMaterialFullscreen uint8 = 0
	defaultMaterialMesh       uint8 = SlotCloth
)

var (
	defaultAlbedo       = math.NewVec4(0.86, 0.62, 0.52, 1)
	defaultOutlineColor = math.NewVec4(0.07, 0.05, 0.08, 1)
)

type renderOptions struct {
	mesh         *math.MeshData
	materialID   *uint8
	outlinePx    *float32
	skipOutline  bool
	override     *StyleSlot
	shaders      ShaderSource
	strategy     vulkan.MemoryStrategy
	rowPitch     vulkan.RowPitchMode
	albedo       math.Vec4
	outlineColor math.Vec4
}

// RenderOption customizes a render call.
type RenderOption func(*renderOptions)

func newRenderOptions(opts []RenderOption) renderOptions {
	o := renderOptions{
		shaders:      DefaultShaders(),
		strategy:     vulkan.MemoryFirstFit,
		rowPitch:     vulkan.RowPitchTight,
		albedo:       defaultAlbedo,
		outlineColor: defaultOutlineColor,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMesh draws mesh into the G-buffer instead of the placeholder primitive
// and enables the outline pass.
func WithMesh(mesh *math.MeshData) RenderOption {
	return func(o *renderOptions) {
		o.mesh = mesh
	}
}

// WithMaterialID sets the material id written to covered pixels and used to
// clear the material attachment.
func WithMaterialID(id uint8) RenderOption {
	return func(o *renderOptions) {
		o.materialID = &id
	}
}

// WithOutlinePx sets the outline width in pixels. Zero keeps the pass but
// draws nothing.
func WithOutlinePx(px float32) RenderOption {
	return func(o *renderOptions) {
		o.outlinePx = &px
	}
}

// WithoutOutline skips the outline pass entirely.
func WithoutOutline() RenderOption {
	return func(o *renderOptions) {
		o.skipOutline = true
	}
}

// WithOverride replaces the style slot of every pixel with slot.
func WithOverride(slot StyleSlot) RenderOption {
	return func(o *renderOptions) {
		s := slot.AsOverride()
		o.override = &s
	}
}

func WithShaders(src ShaderSource) RenderOption {
	return func(o *renderOptions) {
		o.shaders = src
	}
}

func WithMemoryStrategy(strategy vulkan.MemoryStrategy) RenderOption {
	return func(o *renderOptions) {
		o.strategy = strategy
	}
}

func WithRowPitch(mode vulkan.RowPitchMode) RenderOption {
	return func(o *renderOptions) {
		o.rowPitch = mode
	}
}

// WithAlbedo sets the base colour of the rendered geometry.
func WithAlbedo(c math.Vec4) RenderOption {
	return func(o *renderOptions) {
		o.albedo = c
	}
}

func WithOutlineColor(c math.Vec4) RenderOption {
	return func(o *renderOptions) {
		o.outlineColor = c
	}
}

func (o renderOptions) resolvedMaterialID() uint8 {
	if o.materialID != nil {
		return *o.materialID
	}
	if o.mesh != nil {
		return defaultMaterialMesh
	}
	return defaultMaterialFullscreen
}

func (o renderOptions) resolvedOutlinePx() float32 {
	if o.outlinePx != nil {
		return *o.outlinePx
	}
	return DefaultOutlinePx
}

func (o renderOptions) outlineEnabled() bool {
	return o.mesh != nil && !o.skipOutline
}

func (o renderOptions) overrideSlot() StyleSlot {
	if o.override != nil {
		return *o.override
	}
	return StyleSlot{}
}
