package math

// RGBToHSV converts a linear [0,1] colour to hue (turns, [0,1)), saturation and value.
func RGBToHSV(c Vec3) Vec3 {
	maxC := Max(c.X, Max(c.Y, c.Z))
	minC := Min(c.X, Min(c.Y, c.Z))
	delta := maxC - minC

	hsv := Vec3{Z: maxC}
	if maxC > 0 {
		hsv.Y = delta / maxC
	}
	if delta <= 0 {
		return hsv
	}

	var h float32
	switch maxC {
	case c.X:
		h = (c.Y - c.Z) / delta
	case c.Y:
		h = 2 + (c.Z-c.X)/delta
	default:
		h = 4 + (c.X-c.Y)/delta
	}
	hsv.X = Fract(h / 6)
	return hsv
}

// HSVToRGB is the inverse of RGBToHSV. Hue wraps.
func HSVToRGB(c Vec3) Vec3 {
	h, s, v := Fract(c.X), c.Y, c.Z
	if s <= 0 {
		return Vec3{v, v, v}
	}

	h = h * 6.0
	i := int(h)
	f := h - float32(i)
	p := v * (1.0 - s)
	q := v * (1.0 - s*f)
	t := v * (1.0 - s*(1.0-f))

	switch i % 6 {
	case 0:
		return Vec3{v, t, p}
	case 1:
		return Vec3{q, v, p}
	case 2:
		return Vec3{p, v, t}
	case 3:
		return Vec3{p, q, v}
	case 4:
		return Vec3{t, p, v}
	default:
		return Vec3{v, p, q}
	}
}

// ShiftHueSaturation rotates the hue of c by `degrees` and scales its saturation,
// clamping saturation to [0,1].
func ShiftHueSaturation(c Vec3, degrees, satScale float32) Vec3 {
	hsv := RGBToHSV(c)
	hsv.X = Fract(hsv.X + degrees/360.0)
	hsv.Y = Clamp(hsv.Y*satScale, 0, 1)
	return HSVToRGB(hsv)
}
