// Package score assigns the categorical confidence tier for a validated
// policy. The scoring table is deliberately a single pure function over an
// explicit input struct so it can be audited and tested in isolation.
package score

import "github.com/ydhoon/policy-ranker/internal/resolve"

// Confidence is the engine's trust label for a validated outcome.
type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Inputs carries the independent signals the scorer combines.
type Inputs struct {
	// HasAuthoritative is true when at least one authoritative source
	// contributed to the record.
	HasAuthoritative bool
	// Corroboration is the agreement tier among secondary-only sources.
	Corroboration resolve.Tier
	// Stale is the recency penalty flag from screening.
	Stale bool
}

// Score maps the signals to exactly one of high, medium, low.
//
// Base tier: authoritative present wins "high" outright; otherwise the
// corroboration tier decides (corroborated or weak secondary agreement earns
// "medium", anything less "low"). Weak corroboration is capped at "medium"
// and can never be promoted. The stale flag then demotes one tier with a
// floor at "low". Documentation completeness never changes the tier; it only
// breaks ordering ties between records scored the same.
func Score(in Inputs) Confidence {
	tier := base(in)
	if in.Stale {
		tier = demote(tier)
	}
	return tier
}

func base(in Inputs) Confidence {
	if in.HasAuthoritative {
		return High
	}
	switch in.Corroboration {
	case resolve.TierCorroborated, resolve.TierWeak:
		return Medium
	default:
		return Low
	}
}

func demote(tier Confidence) Confidence {
	switch tier {
	case High:
		return Medium
	default:
		return Low
	}
}

// Rank orders confidence tiers for sorting, highest first.
func Rank(tier Confidence) int {
	switch tier {
	case High:
		return 0
	case Medium:
		return 1
	default:
		return 2
	}
}
