package motion

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Body axes. Forward is +X, right is +Y, up is +Z. Positive yaw turns
// forward toward right, positive pitch raises the nose.
var (
	AxisForward = r3.Vector{X: 1}
	AxisRight   = r3.Vector{Y: 1}
	AxisUp      = r3.Vector{Z: 1}
)

// Rotator is an orientation in degrees.
type Rotator struct {
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Roll  float64 `json:"roll" yaml:"roll"`
}

type Pose struct {
	Position r3.Vector
	Rotation Rotator
}

// NormalizeAxis maps an angle in degrees into (-180, 180].
func NormalizeAxis(deg float64) float64 {
	a := math.Mod(deg, 360)
	if a <= -180 {
		a += 360
	} else if a > 180 {
		a -= 360
	}
	return a
}

func (r Rotator) Normalize() Rotator {
	return Rotator{
		Pitch: NormalizeAxis(r.Pitch),
		Yaw:   NormalizeAxis(r.Yaw),
		Roll:  NormalizeAxis(r.Roll),
	}
}

func (r Rotator) Add(d Rotator) Rotator {
	return Rotator{
		Pitch: r.Pitch + d.Pitch,
		Yaw:   r.Yaw + d.Yaw,
		Roll:  r.Roll + d.Roll,
	}.Normalize()
}

// Quat returns the unit quaternion yaw(Z) * pitch(Y) * roll(X).
func (r Rotator) Quat() quat.Number {
	yaw := axisAngle(AxisUp, radians(r.Yaw))
	pitch := axisAngle(AxisRight, -radians(r.Pitch))
	roll := axisAngle(AxisForward, radians(r.Roll))
	return quat.Mul(quat.Mul(yaw, pitch), roll)
}

// RotatorFromQuat is the inverse of Rotator.Quat.
func RotatorFromQuat(q quat.Number) Rotator {
	q = normalizeQuat(q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	roll := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	pitch := math.Asin(clamp(2*(w*y-z*x), -1, 1))
	yaw := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return Rotator{
		Pitch: -degrees(pitch),
		Yaw:   degrees(yaw),
		Roll:  degrees(roll),
	}.Normalize()
}

// Rotate applies the orientation to a body-frame vector.
func (r Rotator) Rotate(v r3.Vector) r3.Vector {
	q := r.Quat()
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	out := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: out.Imag, Y: out.Jmag, Z: out.Kmag}
}

// LookAt returns the roll-free orientation whose forward axis points along dir.
func LookAt(dir r3.Vector) Rotator {
	return Rotator{
		Pitch: degrees(math.Atan2(dir.Z, math.Hypot(dir.X, dir.Y))),
		Yaw:   degrees(math.Atan2(dir.Y, dir.X)),
	}
}

// AngleBetween is the rotation angle in degrees that takes a onto b along the
// shortest arc.
func AngleBetween(a, b Rotator) float64 {
	d := math.Abs(dot(a.Quat(), b.Quat()))
	return degrees(2 * math.Acos(clamp(d, -1, 1)))
}

// StepToward rotates from toward to along the shortest arc by at most
// maxStepDeg degrees. When the remaining angle fits in the step the result is
// exactly to.
func StepToward(from, to Rotator, maxStepDeg float64) Rotator {
	if maxStepDeg <= 0 {
		return from
	}

	q0 := from.Quat()
	q1 := to.Quat()
	d := dot(q0, q1)
	if d < 0 {
		q1 = quat.Scale(-1, q1)
		d = -d
	}
	d = clamp(d, -1, 1)

	remaining := degrees(2 * math.Acos(d))
	if remaining <= maxStepDeg {
		return to.Normalize()
	}

	t := maxStepDeg / remaining
	omega := math.Acos(d)
	sinOmega := math.Sin(omega)
	s0 := math.Sin((1-t)*omega) / sinOmega
	s1 := math.Sin(t*omega) / sinOmega

	return RotatorFromQuat(quat.Add(quat.Scale(s0, q0), quat.Scale(s1, q1)))
}

func axisAngle(axis r3.Vector, rad float64) quat.Number {
	s := math.Sin(rad / 2)
	return quat.Number{
		Real: math.Cos(rad / 2),
		Imag: axis.X * s,
		Jmag: axis.Y * s,
		Kmag: axis.Z * s,
	}
}

func normalizeQuat(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

func dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
