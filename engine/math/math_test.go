package math

import (
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name         string
		f, low, high float32
		want         float32
	}{
		{"inside", 0.5, 0, 1, 0.5},
		{"below", -2, 0, 1, 0},
		{"above", 3, 0, 1, 1},
		{"edge", 1, 0, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.f, tt.low, tt.high); got != tt.want {
				t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.f, tt.low, tt.high, got, tt.want)
			}
		})
	}
	if got := Clamp(7, 1, 5); got != 5 {
		t.Errorf("Clamp(int) = %v, want 5", got)
	}
}

func TestSmoothstep(t *testing.T) {
	tests := []struct {
		name            string
		e0, e1, x, want float32
	}{
		{"below", 0.4, 0.6, 0.1, 0},
		{"above", 0.4, 0.6, 0.9, 1},
		{"midpoint", 0.4, 0.6, 0.5, 0.5},
		{"hard step low", 0.5, 0.5, 0.49, 0},
		{"hard step high", 0.5, 0.5, 0.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Smoothstep(tt.e0, tt.e1, tt.x)
			if Abs(got-tt.want) > 1e-6 {
				t.Errorf("Smoothstep(%v, %v, %v) = %v, want %v", tt.e0, tt.e1, tt.x, got, tt.want)
			}
		})
	}
}

func TestSmoothstepMonotonic(t *testing.T) {
	prev := float32(-1)
	for i := 0; i <= 100; i++ {
		x := float32(i) / 100
		got := Smoothstep(float32(0.3), float32(0.7), x)
		if got < prev {
			t.Fatalf("Smoothstep not monotonic at x=%v: %v < %v", x, got, prev)
		}
		prev = got
	}
}

func TestMat4Mul(t *testing.T) {
	a := NewMat4Translation(NewVec3(1, 2, 3))
	b := NewMat4Translation(NewVec3(-1, 0, 5))
	got := a.Mul(b).MulVec4(NewVec4(0, 0, 0, 1))
	want := NewVec4(0, 2, 8, 1)
	if got != want {
		t.Errorf("translation composition = %v, want %v", got, want)
	}

	id := NewMat4Identity()
	if a.Mul(id) != a {
		t.Errorf("a * identity != a")
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	proj := NewMat4Perspective(K_PI/4, 1, 0.1, 100)
	tests := []struct {
		name  string
		z     float32
		depth float32
	}{
		{"near plane", -0.1, 0},
		{"far plane", -100, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := proj.MulVec4(NewVec4(0, 0, tt.z, 1))
			if d := clip.Z / clip.W; Abs(d-tt.depth) > 1e-4 {
				t.Errorf("depth at z=%v = %v, want %v", tt.z, d, tt.depth)
			}
		})
	}

	up := proj.MulVec4(NewVec4(0, 1, -1, 1))
	if up.Y >= 0 {
		t.Errorf("clip y of a point above the axis = %v, want negative (Vulkan y-down)", up.Y)
	}
}

func TestGenerateUVSphere(t *testing.T) {
	const rings, segments = 16, 32
	mesh, err := GenerateUVSphere(rings, segments, 1.5)
	if err != nil {
		t.Fatalf("GenerateUVSphere() error = %v", err)
	}
	if got, want := len(mesh.Vertices), (rings+1)*(segments+1); got != want {
		t.Errorf("len(Vertices) = %d, want %d", got, want)
	}
	if got, want := len(mesh.Indices), (rings-1)*segments*6; got != want {
		t.Errorf("len(Indices) = %d, want %d", got, want)
	}
	for i, v := range mesh.Vertices {
		if l := v.Normal.Length(); Abs(l-1) > 1e-4 {
			t.Fatalf("vertex %d normal length = %v, want 1", i, l)
		}
		if l := v.Position.Length(); Abs(l-1.5) > 1e-4 {
			t.Fatalf("vertex %d radius = %v, want 1.5", i, l)
		}
	}
	for i := 0; i < len(mesh.Indices); i += 3 {
		p0 := mesh.Vertices[mesh.Indices[i]].Position
		p1 := mesh.Vertices[mesh.Indices[i+1]].Position
		p2 := mesh.Vertices[mesh.Indices[i+2]].Position
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		centroid := p0.Add(p1).Add(p2)
		if n.Dot(centroid) <= 0 {
			t.Fatalf("triangle %d winds clockwise from outside", i/3)
		}
	}
}

func TestGenerateNormalsMatchesSphere(t *testing.T) {
	mesh, err := GenerateUVSphere(16, 32, 1)
	if err != nil {
		t.Fatalf("GenerateUVSphere() error = %v", err)
	}

	// Unshare the vertices so every triangle keeps its own face normal.
	flat := make([]MeshVertex, len(mesh.Indices))
	indices := make([]uint32, len(mesh.Indices))
	for i, idx := range mesh.Indices {
		flat[i] = MeshVertex{Position: mesh.Vertices[idx].Position}
		indices[i] = uint32(i)
	}
	GenerateNormals(flat, indices)

	for i, idx := range mesh.Indices {
		face := flat[i].Normal
		if l := face.Length(); Abs(l-1) > 1e-4 {
			t.Fatalf("triangle %d face normal length = %v, want 1", i/3, l)
		}
		if d := face.Dot(mesh.Vertices[idx].Normal); d < 0.9 {
			t.Fatalf("triangle %d face normal . vertex normal = %v, want >= 0.9", i/3, d)
		}
	}
}

func TestGenerateUVSphereInvalid(t *testing.T) {
	tests := []struct {
		name        string
		rings, segs uint32
		radius      float32
	}{
		{"too few rings", 1, 8, 1},
		{"too few segments", 8, 2, 1},
		{"zero radius", 8, 8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := GenerateUVSphere(tt.rings, tt.segs, tt.radius); err == nil {
				t.Errorf("GenerateUVSphere(%d, %d, %v) error = nil, want error", tt.rings, tt.segs, tt.radius)
			}
		})
	}
}

func TestHSVRoundTrip(t *testing.T) {
	colors := []Vec3{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{0.9, 0.7, 0.6}, {0.2, 0.3, 0.8}, {0.5, 0.5, 0.5}, {0, 0, 0},
	}
	for _, c := range colors {
		got := HSVToRGB(RGBToHSV(c))
		if !got.Compare(c, 1e-5) {
			t.Errorf("HSVToRGB(RGBToHSV(%v)) = %v", c, got)
		}
	}
}

func TestShiftHueSaturation(t *testing.T) {
	red := NewVec3(1, 0, 0)
	if got := ShiftHueSaturation(red, 120, 1); !got.Compare(NewVec3(0, 1, 0), 1e-5) {
		t.Errorf("ShiftHueSaturation(red, 120, 1) = %v, want green", got)
	}
	if got := ShiftHueSaturation(red, -120, 1); !got.Compare(NewVec3(0, 0, 1), 1e-5) {
		t.Errorf("ShiftHueSaturation(red, -120, 1) = %v, want blue", got)
	}
	if got := ShiftHueSaturation(red, 0, 0); !got.Compare(NewVec3(1, 1, 1), 1e-5) {
		t.Errorf("ShiftHueSaturation(red, 0, 0) = %v, want grey at value 1", got)
	}
	if got := ShiftHueSaturation(red, 0, 4); !got.Compare(red, 1e-5) {
		t.Errorf("ShiftHueSaturation(red, 0, 4) = %v, want saturation clamped", got)
	}
}
