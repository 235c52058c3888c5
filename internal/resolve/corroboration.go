package resolve

import (
	"strings"

	"github.com/ydhoon/policy-ranker/internal/policy"
)

// Tier labels how well independent secondary sources agree on a policy.
type Tier string

const (
	TierCorroborated   Tier = "corroborated"
	TierWeak           Tier = "weak"
	TierUncorroborated Tier = "uncorroborated"
)

// DefaultQuorum is the number of agreeing secondary sources required for the
// corroborated tier.
const DefaultQuorum = 3

// incomeTolerance is the relative tolerance used when comparing income
// ceilings between sources.
const incomeTolerance = 0.10

// Corroborate counts distinct secondary sources whose key fields agree with
// the merged record and maps the count to a tier. It applies only to groups
// with no authoritative contributor; verified records report a zero count and
// the corroborated tier by construction.
func Corroborate(record *policy.MergedRecord, contributors []*policy.Candidate, quorum int) (int, Tier) {
	if quorum <= 0 {
		quorum = DefaultQuorum
	}

	if record.Verified() {
		return 0, TierCorroborated
	}

	count := 0
	seen := make(map[string]bool, len(contributors))
	for _, candidate := range contributors {
		if candidate.SourceTier != policy.TierSecondary || seen[candidate.ID] {
			continue
		}
		seen[candidate.ID] = true
		if agrees(record, candidate) {
			count++
		}
	}

	switch {
	case count >= quorum:
		return count, TierCorroborated
	case count == 2:
		return count, TierWeak
	default:
		return count, TierUncorroborated
	}
}

// agrees reports whether a candidate matches the merged record on the key
// fields: category, plus at least one quantitative eligibility field.
func agrees(record *policy.MergedRecord, candidate *policy.Candidate) bool {
	if !strings.EqualFold(record.Category, candidate.Category) {
		return false
	}

	if candidate.AgeMin == record.AgeMin && candidate.AgeMax == record.AgeMax {
		return true
	}

	if record.HasIncomeLimit && candidate.HasIncomeLimit &&
		withinTolerance(record.IncomeLimit, candidate.IncomeLimit, incomeTolerance) {
		return true
	}

	return false
}

func withinTolerance(a, b int64, tolerance float64) bool {
	if a == b {
		return true
	}
	base := a
	if base == 0 {
		base = b
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) <= tolerance*abs64(base)
}

func abs64(v int64) float64 {
	if v < 0 {
		return float64(-v)
	}
	return float64(v)
}
