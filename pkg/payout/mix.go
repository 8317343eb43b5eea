package payout

// RBounds constrain a user's salary ratio. Admins narrow these per user; the
// mix calculation clamps rather than rejects so a stale client slider can
// never push compensation outside the contract.
type RBounds struct {
	Min float64 `json:"r_min"`
	Max float64 `json:"r_max"`
}

// ClampR returns r forced into the bounds. Degenerate bounds (Min > Max)
// collapse to Min.
func (b RBounds) ClampR(r float64) float64 {
	if b.Min > b.Max {
		return b.Min
	}
	if r < b.Min {
		return b.Min
	}
	if r > b.Max {
		return b.Max
	}
	return r
}

// MixResult is a salary projection under a given R-ratio.
type MixResult struct {
	R           float64 `json:"r"`
	Fixed       float64 `json:"fixed"`
	Performance float64 `json:"performance"`
	Total       float64 `json:"total"`
}

// Mix computes the compensation split for ratio r within bounds: r of the
// base salary is paid fixed, and (1-r) scales the performance earnings.
func Mix(r float64, bounds RBounds, baseSalary, performanceEarnings float64) MixResult {
	clamped := bounds.ClampR(r)
	fixed := roundCents(clamped * baseSalary)
	performance := roundCents((1 - clamped) * performanceEarnings)
	return MixResult{
		R:           clamped,
		Fixed:       fixed,
		Performance: performance,
		Total:       roundCents(fixed + performance),
	}
}
