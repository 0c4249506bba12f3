package toon

import (
	"bytes"
	"encoding/binary"

	"github.com/spaghettifunk/anima-toon/engine/assets"
)

const (
	// StyleSlots is the number of material classes a style describes.
	StyleSlots = 8
	// SlotFloats is the number of scalars in one slot.
	SlotFloats = 12
	// StyleSize is the byte size of the uniform buffer holding a style.
	StyleSize = StyleSlots * SlotFloats * 4
	// OverrideSize is the byte size of the push constant override block.
	OverrideSize = SlotFloats * 4
)

// Material classes. Slots 3 to 7 mirror cloth.
const (
	SlotSkin uint8 = iota
	SlotHair
	SlotCloth
)

// Mid-band threshold used when at least three bands are requested; the
// disabled sentinel is any negative value.
const (
	midBandThreshold = 0.75
	midBandDisabled  = -1.0
)

// StyleSlot is the shading parameter set of one material class. The field
// order is the memory layout read by the toon shader.
type StyleSlot struct {
	ShadowThreshold float32
	MidThreshold    float32
	RimStrength     float32
	RimWidth        float32
	BandSoftness    float32
	HueShiftShadow  float32
	HueShiftLight   float32
	SatScaleShadow  float32
	SatScaleLight   float32
	SpecThreshold   float32
	SpecIntensity   float32
	// Zero in the style table; set to 1 in an override block to activate it.
	Padding float32
}

// ToonStyle is the per-material shading table of a render call.
type ToonStyle struct {
	Slots [StyleSlots]StyleSlot
}

// DeriveStyle builds the style table from a shading configuration. Skin gets
// the face threshold, every other slot the cloth threshold; the remaining
// parameters are shared by all slots.
func DeriveStyle(cfg assets.ShadingConfig) ToonStyle {
	mid := float32(midBandDisabled)
	if cfg.Bands >= 3 {
		mid = midBandThreshold
	}
	base := StyleSlot{
		ShadowThreshold: cfg.ClothShadowThreshold,
		MidThreshold:    mid,
		RimStrength:     cfg.RimStrength,
		RimWidth:        cfg.RimWidth,
		BandSoftness:    cfg.BandSoftness,
		HueShiftShadow:  cfg.HueShiftShadowDeg,
		HueShiftLight:   cfg.HueShiftLightDeg,
		SatScaleShadow:  cfg.SatScaleShadow,
		SatScaleLight:   cfg.SatScaleLight,
		SpecThreshold:   cfg.SpecThreshold,
		SpecIntensity:   cfg.SpecIntensity,
	}

	var style ToonStyle
	for i := range style.Slots {
		style.Slots[i] = base
	}
	style.Slots[SlotSkin].ShadowThreshold = cfg.FaceShadowThreshold
	return style
}

// DefaultStyle derives the style of the default shading configuration.
func DefaultStyle() ToonStyle {
	return DeriveStyle(assets.DefaultShadingConfig())
}

// Slot returns the slot for a material id; ids past the table use the last slot.
func (s ToonStyle) Slot(id uint8) StyleSlot {
	if int(id) >= StyleSlots {
		id = StyleSlots - 1
	}
	return s.Slots[id]
}

// Bytes is the uniform buffer image of the table.
func (s ToonStyle) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, StyleSize))
	// Fixed-size array of float32 fields; Write cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, s.Slots)
	return buf.Bytes()
}

func (s StyleSlot) Values() [SlotFloats]float32 {
	return [SlotFloats]float32{
		s.ShadowThreshold, s.MidThreshold, s.RimStrength, s.RimWidth,
		s.BandSoftness, s.HueShiftShadow, s.HueShiftLight, s.SatScaleShadow,
		s.SatScaleLight, s.SpecThreshold, s.SpecIntensity, s.Padding,
	}
}

// Active reports whether the slot, used as an override block, replaces the
// table entry.
func (s StyleSlot) Active() bool {
	return s.Padding > 0.5
}

// AsOverride returns the slot marked as an active override.
func (s StyleSlot) AsOverride() StyleSlot {
	s.Padding = 1
	return s
}

func (s StyleSlot) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, OverrideSize))
	// Twelve float32 fields; Write cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, s)
	return buf.Bytes()
}
