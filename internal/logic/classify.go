package logic

// Classify returns the bucket index of value for N boundaries describing N+1
// buckets. Boundaries are checked from the last to the first with a strict
// greater-than and the first match wins, so the last boundary is expected to
// be the largest. No sorting or validation is performed.
func Classify(value float64, boundaries []float64) int {
	for i := len(boundaries) - 1; i >= 0; i-- {
		if value > boundaries[i] {
			return i + 1
		}
	}
	return 0
}

// Thresholds holds the CO2 ppm boundaries between alert levels.
// The intended ordering is VeryHigh > High > Mid but it is not enforced.
type Thresholds struct {
	VeryHigh int
	High     int
	Mid      int
}

// DefaultThresholds returns the factory boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{VeryHigh: 2500, High: 2000, Mid: 1500}
}

// Level classifies a CO2 concentration.
func (t Thresholds) Level(co2 float64) AlertLevel {
	return AlertLevel(Classify(co2, []float64{float64(t.Mid), float64(t.High), float64(t.VeryHigh)}))
}

// Ordered reports whether the boundaries are strictly descending from
// VeryHigh to Mid.
func (t Thresholds) Ordered() bool {
	return t.VeryHigh > t.High && t.High > t.Mid
}
