package osrevk

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f32"
)

// MatrixType names a transform slot of a render batch.
type MatrixType int

const (
	Model MatrixType = iota
	View
	Projection
	numMatrixTypes
)

func (t MatrixType) String() string {
	switch t {
	case Model:
		return "model"
	case View:
		return "view"
	case Projection:
		return "projection"
	}
	return fmt.Sprintf("matrix(%d)", int(t))
}

func (t MatrixType) valid() bool {
	return t >= 0 && t < numMatrixTypes
}

// Identity is the 4x4 identity matrix.
var Identity = f32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// VulkanClip maps OpenGL style clip space to Vulkan's: Y points down and
// depth runs from 0 to 1 instead of -1 to 1. Row-major like f32.Mat4.
var VulkanClip = f32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0.5,
	0, 0, 0, 1,
}

// VulkanProjection converts a GL style projection matrix for Vulkan.
func VulkanProjection(proj f32.Mat4) f32.Mat4 {
	return MulMat4(VulkanClip, proj)
}

// MulMat4 returns a*b for row-major matrices.
func MulMat4(a, b f32.Mat4) f32.Mat4 {
	var m f32.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[r*4+k] * b[k*4+c]
			}
			m[r*4+c] = sum
		}
	}
	return m
}

// RotationZ returns a rotation of angle radians about the Z axis.
func RotationZ(angle float64) f32.Mat4 {
	s, c := float32(math.Sin(angle)), float32(math.Cos(angle))
	return f32.Mat4{
		c, -s, 0, 0,
		s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}
