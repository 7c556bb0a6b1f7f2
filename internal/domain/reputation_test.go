package domain

import "testing"

func TestComputeTier(t *testing.T) {
	tests := []struct {
		name  string
		score int
		want  ReputationTier
	}{
		{"novice - 0", 0, TierNovice},
		{"novice - 99", 99, TierNovice},
		{"contributor - 100", 100, TierContributor},
		{"contributor - 499", 499, TierContributor},
		{"trusted - 500", 500, TierTrusted},
		{"trusted - 1999", 1999, TierTrusted},
		{"expert - 2000", 2000, TierExpert},
		{"expert - 9999", 9999, TierExpert},
		{"authority - 10000", 10000, TierAuthority},
		{"authority - 50000", 50000, TierAuthority},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTier(tt.score)
			if got != tt.want {
				t.Errorf("ComputeTier(%d) = %v, want %v", tt.score, got, tt.want)
			}
		})
	}
}

func TestVoteWeightByScore(t *testing.T) {
	tests := []struct {
		score int
		want  float64
	}{
		{50, 1.0},
		{300, 1.5},
		{1500, 2.0},
		{8000, 3.0},
		{50000, 5.0},
	}

	for _, tt := range tests {
		u := &UserReputation{ReputationScore: tt.score}
		if got := u.VoteWeight(); got != tt.want {
			t.Errorf("VoteWeight for score %d = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestAccuracyRate(t *testing.T) {
	u := &UserReputation{ChallengesSubmitted: 4, ChallengesAccepted: 3}
	if got := u.AccuracyRate(); got != 0.75 {
		t.Errorf("AccuracyRate = %v, want 0.75", got)
	}

	empty := &UserReputation{}
	if got := empty.AccuracyRate(); got != 0 {
		t.Errorf("AccuracyRate with no challenges = %v, want 0", got)
	}
}

func TestPeerReviewMultiplier(t *testing.T) {
	tests := []struct {
		status PeerReviewStatus
		want   float64
	}{
		{PeerReviewAccepted, 1.2},
		{PeerReviewDisputed, 0.8},
		{PeerReviewRejected, 0.5},
		{PeerReviewNone, 1.0},
	}

	for _, tt := range tests {
		if got := tt.status.Multiplier(); got != tt.want {
			t.Errorf("Multiplier(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
