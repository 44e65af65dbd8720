package journey

// Rand is the subset of *math/rand.Rand the simulator draws from.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// uniform returns a value in [lo, hi).
func uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
