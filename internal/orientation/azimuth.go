package orientation

import "math"

// Normalize reduces an angle in degrees to the half circle [0, 180).
func Normalize(deg float64) float64 {
	a := math.Mod(deg, 180)
	if a < 0 {
		a += 180
	}
	// A tiny negative remainder plus 180 rounds to exactly 180.
	if a >= 180 {
		a = 0
	}
	return a
}

// FromVector returns the azimuth of the direction (dx, dy) given in image
// coordinates, where dy grows downward.
//
// The azimuth is π/2 − atan2(−dy, dx), converted to degrees and reduced
// to [0, 180). A zero vector yields 0.
func FromVector(dx, dy float64) float64 {
	return Normalize((math.Pi/2 - math.Atan2(-dy, dx)) * 180 / math.Pi)
}

// SegmentAzimuth returns the azimuth of the line through two image points.
// Swapping the endpoints gives the same result.
func SegmentAzimuth(x1, y1, x2, y2 float64) float64 {
	return FromVector(x2-x1, y2-y1)
}

// AxisAzimuth converts a mathematical axis angle phi, in radians
// counter-clockwise from +x with y pointing up, into an azimuth.
func AxisAzimuth(phi float64) float64 {
	return Normalize(90 - phi*180/math.Pi)
}
