package nuscenes

import (
	"gonum.org/v1/gonum/num/quat"
)

// YawRotation returns the unit quaternion for a rotation of yaw radians
// about +z.
func YawRotation(yaw float64) Quaternion {
	q := quat.Exp(quat.Number{Kmag: yaw / 2})
	return Quaternion{q.Real, q.Imag, q.Jmag, q.Kmag}
}

// SwapLengthWidth converts a (length, width, height) extent to the
// (width, length, height) order of sample_annotation.size.
func SwapLengthWidth(size [3]float64) Vec3 {
	return Vec3{size[1], size[0], size[2]}
}
