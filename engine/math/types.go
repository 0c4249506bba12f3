package math

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/**
 * @brief a 4x4 matrix stored column-major, the layout expected by
 * shaders receiving it through push constants.
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief A vertex of a lit mesh: position and unit normal, tightly
 * packed as six float32 values.
 */
type MeshVertex struct {
	Position Vec3
	Normal   Vec3
}

/** @brief Indexed triangle list with counter-clockwise front faces. */
type MeshData struct {
	Vertices []MeshVertex
	Indices  []uint32
}
