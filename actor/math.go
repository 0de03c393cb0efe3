package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

// Epsilon is the length under which a vector is considered degenerate
const Epsilon = 1e-9

// SafeNormalize returns v normalized, or (zero, false) when v is too short
// to carry a direction.
func SafeNormalize(v mgl64.Vec3) (mgl64.Vec3, bool) {
	length := v.Len()
	if length < Epsilon || math.IsNaN(length) || math.IsInf(length, 0) {
		return mgl64.Vec3{}, false
	}

	return v.Mul(1.0 / length), true
}

// NormalizeOr returns v normalized, falling back to fallback for degenerate input
func NormalizeOr(v, fallback mgl64.Vec3) mgl64.Vec3 {
	if n, ok := SafeNormalize(v); ok {
		return n
	}

	return fallback
}

// Clamp restricts value to [low, high]
func Clamp[T constraints.Float](value, low, high T) T {
	if value < low {
		return low
	}
	if value > high {
		return high
	}

	return value
}

// ClampLength scales v down so that its length does not exceed limit
func ClampLength(v mgl64.Vec3, limit float64) mgl64.Vec3 {
	if limit <= 0 || math.IsInf(limit, 1) {
		return v
	}
	lenSqr := v.LenSqr()
	if lenSqr <= limit*limit {
		return v
	}

	return v.Mul(limit / math.Sqrt(lenSqr))
}

func isFiniteVec(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}

	return true
}
