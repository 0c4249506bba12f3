package toon

import (
	"bytes"
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-toon/engine/core"
	"github.com/spaghettifunk/anima-toon/engine/math"
	"github.com/spaghettifunk/anima-toon/engine/renderer/vulkan"
)

// Sphere tessellation and camera of the mesh path.
const (
	sphereRings    = 24
	sphereSegments = 48
	sphereRadius   = 1.0

	cameraDistance = 3.0
	cameraFov      = math.K_PI / 4
	cameraNear     = 0.1
	cameraFar      = 100.0
)

const meshVertexStride = 24

// DefaultSphere is the procedural mesh of the mesh path.
func DefaultSphere() (*math.MeshData, error) {
	return math.GenerateUVSphere(sphereRings, sphereSegments, sphereRadius)
}

// MeshMVP places the mesh in front of a fixed camera looking down -Z.
func MeshMVP(width, height uint32) math.Mat4 {
	projection := math.NewMat4Perspective(cameraFov, float32(width)/float32(height), cameraNear, cameraFar)
	view := math.NewMat4Translation(math.NewVec3(0, 0, -cameraDistance))
	return projection.Mul(view)
}

type gpuMesh struct {
	Vertices   *vulkan.VulkanBuffer
	Indices    *vulkan.VulkanBuffer
	IndexCount uint32
}

func meshVertexAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
	}
}

// uploadMesh copies the mesh into host-visible vertex and index buffers owned by arena.
func uploadMesh(context *vulkan.VulkanContext, arena *vulkan.Arena, data *math.MeshData, strategy vulkan.MemoryStrategy) (*gpuMesh, error) {
	if len(data.Vertices) == 0 || len(data.Indices) == 0 {
		return nil, fmt.Errorf("%w: empty mesh", core.ErrResourceCreation)
	}

	vertexBytes := new(bytes.Buffer)
	if err := binary.Write(vertexBytes, binary.LittleEndian, data.Vertices); err != nil {
		return nil, err
	}
	indexBytes := new(bytes.Buffer)
	if err := binary.Write(indexBytes, binary.LittleEndian, data.Indices); err != nil {
		return nil, err
	}

	vb, err := arena.Buffer("mesh.vertices", uint64(vertexBytes.Len()), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), vulkan.HostVisible, strategy)
	if err != nil {
		return nil, err
	}
	if err := vb.Upload(context, vertexBytes.Bytes()); err != nil {
		return nil, err
	}
	ib, err := arena.Buffer("mesh.indices", uint64(indexBytes.Len()), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit), vulkan.HostVisible, strategy)
	if err != nil {
		return nil, err
	}
	if err := ib.Upload(context, indexBytes.Bytes()); err != nil {
		return nil, err
	}
	return &gpuMesh{Vertices: vb, Indices: ib, IndexCount: uint32(len(data.Indices))}, nil
}

func (m *gpuMesh) draw(commandBuffer *vulkan.VulkanCommandBuffer) {
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{m.Vertices.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, m.Indices.Handle, 0, vk.IndexTypeUint32)
	vk.CmdDrawIndexed(commandBuffer.Handle, m.IndexCount, 1, 0, 0, 0)
}
