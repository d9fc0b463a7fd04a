// Package simulator builds forward price and volume paths from volatility-calibrated random walks.
// Every call takes its random source explicitly; nothing here holds global state.
package simulator

import "math/rand/v2"

const (
	// PriceFloor is the lowest price a return-chained path may reach.
	PriceFloor = 0.01
	// VolumeFloorRatio bounds every simulated volume from below as a fraction of the starting volume.
	VolumeFloorRatio = 0.1
)

// Rand is the uniform [0,1) source a simulation draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns an independently seeded source for one request.
func NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// ReturnChained walks n prices from p0, each step multiplying by 1 + (U-0.5)*2*sigma + mu.
// Prices never drop below PriceFloor.
func ReturnChained(r Rand, p0 float64, n int, sigma, mu float64) []float64 {
	if n < 1 {
		return nil
	}
	out := make([]float64, n)
	out[0] = max(p0, PriceFloor)
	for i := 1; i < n; i++ {
		drift := (r.Float64()-0.5)*2*sigma + mu
		out[i] = max(out[i-1]*(1+drift), PriceFloor)
	}
	return out
}

// AbsoluteStep walks n prices from p0 in steps of (U-0.5)*p0*sigma, bounded below by floor.
// A non-positive floor is raised to PriceFloor.
func AbsoluteStep(r Rand, p0 float64, n int, sigma, floor float64) []float64 {
	if n < 1 {
		return nil
	}
	if floor < PriceFloor {
		floor = PriceFloor
	}
	out := make([]float64, n)
	out[0] = max(p0, floor)
	for i := 1; i < n; i++ {
		step := (r.Float64() - 0.5) * p0 * sigma
		out[i] = max(out[i-1]+step, floor)
	}
	return out
}

// VolumeRange10to40 draws the per-request volume volatility for the "10-40%" variant.
func VolumeRange10to40(r Rand) float64 { return r.Float64()*0.3 + 0.1 }

// VolumeRange30 draws the per-request volume volatility for the "30%" variant.
func VolumeRange30(r Rand) float64 { return r.Float64() * 0.3 }

// Volumes walks n volumes from v0 with relative steps of (U-0.5)*volRange.
// volRange is drawn once per request by the caller. Volumes never fall below v0*VolumeFloorRatio.
func Volumes(r Rand, v0 float64, n int, volRange float64) []float64 {
	if n < 1 {
		return nil
	}
	if v0 < 0 {
		v0 = 0
	}
	floor := v0 * VolumeFloorRatio
	out := make([]float64, n)
	out[0] = v0
	for i := 1; i < n; i++ {
		change := (r.Float64() - 0.5) * volRange
		out[i] = max(out[i-1]*(1+change), floor)
	}
	return out
}
