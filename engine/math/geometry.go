package math

import "fmt"

// GenerateUVSphere builds a UV-sphere centred on the origin with `rings` latitude bands and
// `segments` longitude bands. Normals are unit length and triangles wind counter-clockwise
// when seen from outside.
func GenerateUVSphere(rings, segments uint32, radius float32) (*MeshData, error) {
	if rings < 2 || segments < 3 {
		return nil, fmt.Errorf("uv sphere needs at least 2 rings and 3 segments, got %d/%d", rings, segments)
	}
	if radius <= 0 {
		return nil, fmt.Errorf("uv sphere radius must be positive, got %f", radius)
	}

	mesh := &MeshData{
		Vertices: make([]MeshVertex, 0, (rings+1)*(segments+1)),
		Indices:  make([]uint32, 0, rings*segments*6),
	}

	for r := uint32(0); r <= rings; r++ {
		phi := K_PI * float32(r) / float32(rings)
		sinPhi, cosPhi := ksin(phi), kcos(phi)
		for s := uint32(0); s <= segments; s++ {
			theta := K_PI_2 * float32(s) / float32(segments)
			n := Vec3{
				X: sinPhi * kcos(theta),
				Y: cosPhi,
				Z: -sinPhi * ksin(theta),
			}
			mesh.Vertices = append(mesh.Vertices, MeshVertex{
				Position: n.MulScalar(radius),
				Normal:   n,
			})
		}
	}

	stride := segments + 1
	for r := uint32(0); r < rings; r++ {
		for s := uint32(0); s < segments; s++ {
			a := r*stride + s
			b := a + stride
			// Pole rows collapse to a point; skip the zero-area half.
			if r != 0 {
				mesh.Indices = append(mesh.Indices, a, b, a+1)
			}
			if r != rings-1 {
				mesh.Indices = append(mesh.Indices, a+1, b, b+1)
			}
		}
	}

	return mesh, nil
}

// GenerateNormals assigns each triangle's face normal to its three vertices.
func GenerateNormals(vertices []MeshVertex, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)
		normal := edge1.Cross(edge2).Normalize()

		// NOTE: This just generates a face normal. Smoothing out should be done in a separate pass if desired.
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}
