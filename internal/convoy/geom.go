package convoy

import "math"

// Vec3 is a world position; Y is up.
type Vec3 struct {
	X, Y, Z float64
}

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Len() float64         { return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z) }
func (a Vec3) Dist(b Vec3) float64  { return a.Sub(b).Len() }
func (a Vec3) Up(h float64) Vec3    { return Vec3{a.X, a.Y + h, a.Z} }

// Normalized returns the unit vector, or the zero vector for zero length.
func (a Vec3) Normalized() Vec3 {
	l := a.Len()
	if l == 0 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// onCircle returns the point at yaw angle (radians, clockwise from +Z) and
// distance d from center on the horizontal plane.
func onCircle(center Vec3, angle, d float64) Vec3 {
	return Vec3{
		X: center.X + math.Sin(angle)*d,
		Y: center.Y,
		Z: center.Z + math.Cos(angle)*d,
	}
}
