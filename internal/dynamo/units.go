package dynamo

import "math"

// RadToDeg converts an angle in radians to degrees wrapped into [0, 360).
func RadToDeg(rad float64) float64 {
	return WrapDegrees(rad * 180 / math.Pi)
}

// WrapDegrees wraps an angle in degrees into [0, 360).
func WrapDegrees(deg float64) float64 {
	w := math.Mod(deg, 360)
	if w < 0 {
		w += 360
	}
	// tiny negative angles round up to exactly 360
	if w >= 360 {
		w = 0
	}
	return w
}

// RadsToRPM converts an angular velocity in rad/s to revolutions per minute.
func RadsToRPM(rads float64) float64 {
	return rads * 60 / (2 * math.Pi)
}

// RPMToRads converts revolutions per minute to rad/s.
func RPMToRads(rpm float64) float64 {
	return rpm * 2 * math.Pi / 60
}
