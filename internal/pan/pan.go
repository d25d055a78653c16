// Package pan implements the per-voice panner: direction ->
// ambisonic coefficients -> spread weighting -> device
// channel gains, plus the distance attenuation, cone, and doppler
// models that feed into a voice's target gain vector each slice.
package pan

import (
	"math"

	"github.com/kcat/openal-soft-sub004/internal/ambisonic"
)

// Vec3 is a plain 3-component vector; callers normalize directions
// before calling into this package.
type Vec3 struct{ X, Y, Z float32 }

func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l < 1e-8 {
		return Vec3{0, 0, -1}
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

func (a Vec3) Dot(b Vec3) float32 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// realSH evaluates the real, N3D-normalized spherical
// harmonic Y_l^m at direction dir (unit vector, ambisonics convention:
// X = front, Y = left, Z = up).
func realSH(l, m int, dir Vec3) float32 {
	// sin(elevation) == Z for a unit vector in this convention.
	sinEl := float64(dir.Z)
	cosEl := math.Sqrt(math.Max(0, 1-sinEl*sinEl))
	az := math.Atan2(float64(dir.Y), float64(dir.X))

	am := m
	if am < 0 {
		am = -am
	}
	p := assocLegendre(l, am, sinEl)

	var trig float64
	if m >= 0 {
		trig = math.Cos(float64(m) * az)
	} else {
		trig = math.Sin(float64(am) * az)
	}

	// N3D normalization: sqrt((2l+1) * (2-delta(m,0)) * (l-|m|)!/(l+|m|)!)
	delta := 0.0
	if m == 0 {
		delta = 1.0
	}
	norm := math.Sqrt(float64(2*l+1) * (2 - delta) * factorial(l-am) / factorial(l+am))

	// cosEl^|m| folds the associated-Legendre's (1-x^2)^(m/2) factor in
	// through assocLegendre already operating on sinEl as its argument;
	// no further elevation scaling needed here.
	_ = cosEl

	return float32(norm * p * trig)
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

// assocLegendre evaluates the associated Legendre function P_l^m(x)
// (no Condon-Shortley phase, matching common ambisonics convention)
// via the standard upward recurrence.
func assocLegendre(l, m int, x float64) float64 {
	pmm := 1.0
	if m > 0 {
		somx2 := math.Sqrt(math.Max(0, (1-x)*(1+x)))
		fact := 1.0
		for i := 1; i <= m; i++ {
			pmm *= fact * somx2
			fact += 2
		}
	}
	if l == m {
		return pmm
	}
	pmmp1 := x * float64(2*m+1) * pmm
	if l == m+1 {
		return pmmp1
	}
	var pll float64
	for ll := m + 2; ll <= l; ll++ {
		pll = (x*float64(2*ll-1)*pmmp1 - float64(ll+m-1)*pmm) / float64(ll-m)
		pmm = pmmp1
		pmmp1 = pll
	}
	return pll
}

// acnIndex returns the ACN channel number l(l+1)+m.
func acnIndex(l, m int) int { return l*(l+1) + m }

// SHCoeffs computes the order-3 (16 channel) ACN/N3D spherical
// harmonic coefficient vector for a normalized direction.
func SHCoeffs(dir Vec3) [ambisonic.MaxAmbiChannels]float32 {
	var out [ambisonic.MaxAmbiChannels]float32
	for l := 0; l <= 3; l++ {
		for m := -l; m <= l; m++ {
			out[acnIndex(l, m)] = realSH(l, m, dir)
		}
	}
	return out
}

// ApplySpread scales each ambisonic-order block of coeffs by
// cos^(2l+1)(spread/2): a spatial lowpass that widens the apparent
// source as spread grows towards 2*pi.
func ApplySpread(coeffs *[ambisonic.MaxAmbiChannels]float32, spread float32) {
	half := spread / 2
	cosHalf := float64(math.Cos(float64(half)))
	for l := 0; l <= 3; l++ {
		weight := float32(math.Pow(cosHalf, float64(2*l+1)))
		for m := -l; m <= l; m++ {
			coeffs[acnIndex(l, m)] *= weight
		}
	}
}

// DistanceModel selects the distance-attenuation curve.
type DistanceModel int

const (
	DistanceNone DistanceModel = iota
	DistanceInverse
	DistanceInverseClamped
	DistanceLinear
	DistanceLinearClamped
	DistanceExponent
	DistanceExponentClamped
)

// Attenuation computes the distance-model gain factor.
func Attenuation(model DistanceModel, dist, ref, maxDist, rolloff float32) float32 {
	switch model {
	case DistanceNone:
		return 1

	case DistanceInverse, DistanceInverseClamped:
		d := dist
		if model == DistanceInverseClamped {
			d = clamp(dist, ref, maxDist)
		}
		if ref == 0 {
			return 1
		}
		denom := ref + rolloff*(d-ref)
		if denom <= 0 {
			return 1
		}
		return ref / denom

	case DistanceLinear, DistanceLinearClamped:
		d := dist
		if model == DistanceLinearClamped {
			d = clamp(dist, ref, maxDist)
		}
		denom := maxDist - ref
		if denom <= 0 {
			return 1
		}
		g := 1 - rolloff*(d-ref)/denom
		if g < 0 {
			g = 0
		}
		return g

	case DistanceExponent, DistanceExponentClamped:
		d := dist
		if model == DistanceExponentClamped {
			d = clamp(dist, ref, maxDist)
		}
		if ref == 0 || d == 0 {
			return 1
		}
		return float32(math.Pow(float64(d)/float64(ref), float64(-rolloff)))
	}
	return 1
}

func clamp(v, lo, hi float32) float32 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ConeGain computes the cone attenuation for a directional source:
// 1.0 when the listener falls within the inner cone, outerGain beyond
// the outer cone, and a linear ramp between, based on the angle
// between the source's facing direction and the source-to-listener
// vector.
func ConeGain(sourceDir, sourceToListener Vec3, innerAngle, outerAngle, outerGain float32) float32 {
	if innerAngle >= 2*math.Pi && outerAngle >= 2*math.Pi {
		return 1
	}
	sd := sourceDir.Normalized()
	sl := sourceToListener.Normalized()
	cosAngle := clamp(sd.Dot(sl), -1, 1)
	angle := float32(math.Acos(float64(cosAngle)))

	half := func(a float32) float32 { return a / 2 }
	innerHalf, outerHalf := half(innerAngle), half(outerAngle)

	switch {
	case angle <= innerHalf:
		return 1
	case angle >= outerHalf:
		return outerGain
	default:
		t := (angle - innerHalf) / (outerHalf - innerHalf)
		return 1 + t*(outerGain-1)
	}
}

// Doppler computes the doppler-shifted pitch multiplier. u is the unit
// vector from source to listener; listenerVel/sourceVel are projected
// onto u. Degenerate denominators (<=0) collapse to maxPitch.
func Doppler(pitch, speedOfSound, dopplerFactor float32, listenerVel, sourceVel, u Vec3, minPitch, maxPitch float32) float32 {
	c := speedOfSound
	vl := listenerVel.Dot(u) * dopplerFactor
	vs := sourceVel.Dot(u) * dopplerFactor

	denom := c - vs
	if denom <= 0 {
		return maxPitch
	}
	p := pitch * (c - vl) / denom
	return clamp(p, minPitch, maxPitch)
}

// DirectChannelRoute maps source channel index -> device channel
// index for direct-channels mode: each source channel routes to the
// identically-named output channel, matching the WFX channel names in
// sourceChannelNames against deviceChannelNames; routes with no
// matching device channel are dropped (return -1).
func DirectChannelRoute(sourceChannelNames []string, deviceChannelNames []string) []int {
	route := make([]int, len(sourceChannelNames))
	for i, name := range sourceChannelNames {
		route[i] = -1
		for j, dn := range deviceChannelNames {
			if dn == name {
				route[i] = j
				break
			}
		}
	}
	return route
}
