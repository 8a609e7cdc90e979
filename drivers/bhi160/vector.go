package bhi160

import (
	"math"

	"golang.org/x/exp/constraints"

	"sensorhub-go/x/mathx"
)

// Number is any element type a Vector can hold.
type Number interface {
	constraints.Integer | constraints.Float
}

// Vector is a three-axis sample.
type Vector[T Number] [3]T

func (v Vector[T]) X() T { return v[0] }
func (v Vector[T]) Y() T { return v[1] }
func (v Vector[T]) Z() T { return v[2] }

func (v Vector[T]) Add(o Vector[T]) Vector[T] { return Vector[T]{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }
func (v Vector[T]) Sub(o Vector[T]) Vector[T] { return Vector[T]{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }
func (v Vector[T]) Mul(o Vector[T]) Vector[T] { return Vector[T]{v[0] * o[0], v[1] * o[1], v[2] * o[2]} }

// Div divides element-wise. Integer division by zero panics as usual.
func (v Vector[T]) Div(o Vector[T]) Vector[T] { return Vector[T]{v[0] / o[0], v[1] / o[1], v[2] / o[2]} }

func (v Vector[T]) Scale(k T) Vector[T] { return Vector[T]{v[0] * k, v[1] * k, v[2] * k} }

// ConvertVector changes the element type.
func ConvertVector[U, T Number](v Vector[T]) Vector[U] {
	return Vector[U]{U(v[0]), U(v[1]), U(v[2])}
}

// Quaternion is an orientation as reported by the rotation vector sensors.
type Quaternion[T Number] struct {
	X, Y, Z, W T
}

func (q Quaternion[T]) Scale(k T) Quaternion[T] {
	return Quaternion[T]{q.X * k, q.Y * k, q.Z * k, q.W * k}
}

// ConvertQuaternion changes the element type.
func ConvertQuaternion[U, T Number](q Quaternion[T]) Quaternion[U] {
	return Quaternion[U]{U(q.X), U(q.Y), U(q.Z), U(q.W)}
}

// QuaternionScale converts the fixed-point rotation vector payload to a unit
// quaternion (2^-14 per LSB).
const QuaternionScale = 1.0 / 16384

// Euler returns roll, pitch and yaw in radians for a unit quaternion.
func Euler[T constraints.Float](q Quaternion[T]) Vector[T] {
	x, y, z, w := float64(q.X), float64(q.Y), float64(q.Z), float64(q.W)

	roll := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	pitch := math.Asin(mathx.Clamp(2*(w*y-z*x), -1, 1))
	yaw := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return Vector[T]{T(roll), T(pitch), T(yaw)}
}
