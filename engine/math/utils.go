package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Mix linearly interpolates between a and b.
func Mix[T constraints.Float](a, b, t T) T {
	return a + (b-a)*t
}

// Smoothstep is the Hermite step between edge0 and edge1, matching the shading language builtin.
// Equal edges degrade to a hard step at edge0.
func Smoothstep[T constraints.Float](edge0, edge1, x T) T {
	if edge1 == edge0 {
		if x < edge0 {
			return 0
		}
		return 1
	}
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// Fract returns the fractional part of x, always in [0,1).
func Fract(x float32) float32 {
	return x - kfloor(x)
}
