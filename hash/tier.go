package hash

// Tier is the discrete match-quality bucket for a similarity score.
type Tier string

const (
	TierExact           Tier = "exact"
	TierVerySimilar     Tier = "very_similar"
	TierSimilar         Tier = "similar"
	TierSomewhatSimilar Tier = "somewhat_similar"
)

// Thresholds are the policy constants mapping similarity scores to tiers.
// They are configuration, not derived values.
type Thresholds struct {
	Exact       int
	VerySimilar int
	Similar     int
}

// DefaultThresholds returns the stock tier boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Exact: 98, VerySimilar: 90, Similar: 80}
}

// Tier buckets a 0-100 similarity score.
func (t Thresholds) Tier(similarity int) Tier {
	switch {
	case similarity >= t.Exact:
		return TierExact
	case similarity >= t.VerySimilar:
		return TierVerySimilar
	case similarity >= t.Similar:
		return TierSimilar
	default:
		return TierSomewhatSimilar
	}
}
