package service

import "github.com/knograph/veracity/internal/domain"

// EffectiveWeight combines an evidence item's intrinsic weight, confidence,
// temporal relevance, its source's credibility, and the peer-review outcome
// into one effective weight in [0,1]. Pure function, monotonic in every
// positive factor.
func EffectiveWeight(e *domain.Evidence, sourceCredibility float64) float64 {
	w := e.BaseWeight *
		e.Confidence *
		e.TemporalRelevance *
		sourceCredibility *
		e.PeerReviewStatus.Multiplier()
	return clamp01(w)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
