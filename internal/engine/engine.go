// Package engine sequences the validation stages: normalization, screening,
// grouping, conflict resolution, corroboration, eligibility and scoring. A
// run is a pure synchronous computation over the input batch; nothing is kept
// between runs.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ydhoon/policy-ranker/internal/eligibility"
	"github.com/ydhoon/policy-ranker/internal/policy"
	"github.com/ydhoon/policy-ranker/internal/resolve"
	"github.com/ydhoon/policy-ranker/internal/score"
	"github.com/ydhoon/policy-ranker/internal/screening"
)

// DefaultRecencyFloorYears is how far below the target year a publish year
// may fall before the record is flagged stale.
const DefaultRecencyFloorYears = 2

// Config carries the recognized engine options. It is read-only during a
// run; concurrent runs must each get their own copy or share it untouched.
type Config struct {
	ClosureKeywords     []string
	RecencyFloorYears   int
	CorroborationQuorum int
	// MaxLogLength truncates candidate content in debug logs.
	MaxLogLength int
	// Blocklist optionally lists policy names to drop unconditionally.
	Blocklist *policy.BlockedPolicies
}

func (c Config) withDefaults() Config {
	if c.RecencyFloorYears <= 0 {
		c.RecencyFloorYears = DefaultRecencyFloorYears
	}
	if c.CorroborationQuorum <= 0 {
		c.CorroborationQuorum = resolve.DefaultQuorum
	}
	return c
}

// Engine evaluates retrieved candidates against a user profile.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg.withDefaults(), logger: logger}
}

// Evaluate runs the full pipeline. The reference date is supplied by the
// caller so temporal comparisons stay reproducible; it is never read from the
// system clock here.
func (e *Engine) Evaluate(ctx context.Context, raws []policy.RawCandidate, profile *policy.UserProfile, referenceDate time.Time) (*Result, error) {
	if profile == nil {
		return nil, &policy.ProfileError{Field: "profile"}
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	// The run id ties log lines together; it never enters the result, which
	// must stay byte-identical across identical runs.
	log := e.logger.With(zap.String("run_id", uuid.NewString()))

	referenceDate = referenceDate.Truncate(24 * time.Hour)

	candidates := &policy.Candidates{Items: make([]*policy.Candidate, 0, len(raws))}
	for _, raw := range raws {
		candidates.Items = append(candidates.Items, policy.Normalize(raw))
	}

	summary := Summary{
		ReferenceDate:   referenceDate.Format("2006-01-02"),
		TotalCandidates: candidates.Len(),
	}
	for _, candidate := range candidates.Items {
		if candidate.SourceTier == policy.TierAuthoritative {
			summary.Authoritative++
		} else {
			summary.Secondary++
		}
	}

	// Discovery order of each policy name, for ordering the excluded list.
	discovery := make(map[string]int, candidates.Len())
	for i, candidate := range candidates.Items {
		if _, seen := discovery[candidate.GroupKey()]; !seen {
			discovery[candidate.GroupKey()] = i
		}
	}

	pipeline := screening.New([]screening.Filter{
		screening.NewTemporal(&screening.TemporalConfig{
			ReferenceDate:     referenceDate,
			TargetYear:        profile.TargetYear,
			RecencyFloorYears: e.cfg.RecencyFloorYears,
		}),
		screening.NewClosure(&screening.ClosureConfig{
			Keywords:      e.cfg.ClosureKeywords,
			ReferenceDate: referenceDate,
			TargetYear:    profile.TargetYear,
			MaxLogLength:  e.cfg.MaxLogLength,
		}, log),
		screening.NewBlocklist(e.cfg.Blocklist),
	}, log)

	survivors, screenedOut, err := pipeline.Run(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("screening: %w", err)
	}

	groups := survivors.GroupByName()
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	resolver := resolve.New(log)

	var validated []*Validated
	groupExcluded := make(map[string]*Excluded)
	validatedNames := make(map[string]bool)

	for _, key := range keys {
		contributors := groups[key]
		record := resolver.Resolve(contributors)
		if len(record.ContributorIDs) == 0 {
			return nil, &InvariantError{Policy: record.PolicyName, Detail: "merged record has no contributors"}
		}

		count, tier := resolve.Corroborate(record, contributors, e.cfg.CorroborationQuorum)

		match := eligibility.Match(profile, record)
		if !match.Eligible {
			groupExcluded[key] = &Excluded{
				PolicyName: record.PolicyName,
				Reason:     "eligibility mismatch: " + match.FailedPredicate,
				Detail:     firstOrEmpty(match.Explanations),
			}
			continue
		}

		confidence := score.Score(score.Inputs{
			HasAuthoritative: record.Verified(),
			Corroboration:    tier,
			Stale:            record.Stale,
		})

		notes := contributorNotes(contributors)
		notes = append(notes, match.Notes...)
		if record.Unverified {
			notes = append(notes, fmt.Sprintf("corroboration: %s (%d agreeing sources)", tier, count))
		}

		validated = append(validated, &Validated{
			Record:      record,
			Confidence:  confidence,
			Eligibility: match.Explanations,
			Notes:       notes,
		})
		validatedNames[key] = true
	}

	excluded := assembleExcluded(screenedOut, groupExcluded, validated, validatedNames, discovery)

	sortValidated(validated)

	for _, entry := range excluded {
		if validatedNames[policy.NormalizeName(entry.PolicyName)] {
			return nil, &InvariantError{Policy: entry.PolicyName, Detail: "present in both validated and excluded"}
		}
	}

	summary.Validated = len(validated)
	summary.Excluded = len(excluded)
	for _, outcome := range validated {
		switch outcome.Confidence {
		case score.High:
			summary.Confidence.High++
		case score.Medium:
			summary.Confidence.Medium++
		case score.Low:
			summary.Confidence.Low++
		}
	}

	log.Info("evaluation finished",
		zap.Int("total", summary.TotalCandidates),
		zap.Int("validated", summary.Validated),
		zap.Int("excluded", summary.Excluded),
		zap.Int("high", summary.Confidence.High),
		zap.Int("medium", summary.Confidence.Medium),
		zap.Int("low", summary.Confidence.Low),
	)

	return &Result{
		Validated: orEmptyValidated(validated),
		Excluded:  orEmptyExcluded(excluded),
		Summary:   summary,
	}, nil
}

// assembleExcluded merges per-candidate screening exclusions with group-level
// eligibility exclusions into one list keyed by policy, ordered by the
// policy's first appearance in the input.
//
// A policy whose other sources survived and validated is not excluded; the
// dropped source becomes a note on the validated outcome instead, so no name
// ever appears on both lists.
func assembleExcluded(
	screenedOut []screening.Exclusion,
	groupExcluded map[string]*Excluded,
	validated []*Validated,
	validatedNames map[string]bool,
	discovery map[string]int,
) []*Excluded {
	byName := make(map[string]*Excluded)

	for key, entry := range groupExcluded {
		byName[key] = entry
	}

	validatedByKey := make(map[string]*Validated, len(validated))
	for _, outcome := range validated {
		validatedByKey[policy.NormalizeName(outcome.Record.PolicyName)] = outcome
	}

	for _, exclusion := range screenedOut {
		key := exclusion.Candidate.GroupKey()

		if validatedNames[key] {
			outcome := validatedByKey[key]
			outcome.Notes = append(outcome.Notes, fmt.Sprintf(
				"source %s dropped during screening (%s: %s)",
				exclusion.Candidate.ID, exclusion.Reason, exclusion.Detail,
			))
			continue
		}

		// Group-stage reasons describe the merged record and win over a
		// single screened source; otherwise first screening reason sticks.
		if _, seen := byName[key]; seen {
			continue
		}
		byName[key] = &Excluded{
			PolicyName: exclusion.Candidate.PolicyName,
			Reason:     exclusion.Reason,
			Detail:     exclusion.Detail,
		}
	}

	keys := make([]string, 0, len(byName))
	for key := range byName {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return discovery[keys[i]] < discovery[keys[j]]
	})

	excluded := make([]*Excluded, 0, len(keys))
	for _, key := range keys {
		excluded = append(excluded, byName[key])
	}
	return excluded
}

// sortValidated orders outcomes by confidence tier, then similarity
// descending, then documentation completeness, then policy name for
// determinism.
func sortValidated(validated []*Validated) {
	sort.SliceStable(validated, func(i, j int) bool {
		a, b := validated[i], validated[j]
		if ra, rb := score.Rank(a.Confidence), score.Rank(b.Confidence); ra != rb {
			return ra < rb
		}
		if a.Record.Similarity != b.Record.Similarity {
			return a.Record.Similarity > b.Record.Similarity
		}
		da, db := len(a.Record.RequiredDocuments) > 0, len(b.Record.RequiredDocuments) > 0
		if da != db {
			return da
		}
		return policy.NormalizeName(a.Record.PolicyName) < policy.NormalizeName(b.Record.PolicyName)
	})
}

func contributorNotes(contributors []*policy.Candidate) []string {
	var notes []string
	seen := make(map[string]bool)
	for _, candidate := range contributors {
		for _, note := range candidate.Notes {
			if seen[note] {
				continue
			}
			seen[note] = true
			notes = append(notes, note)
		}
	}
	return notes
}

func firstOrEmpty(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[0]
}

func orEmptyValidated(v []*Validated) []*Validated {
	if v == nil {
		return []*Validated{}
	}
	return v
}

func orEmptyExcluded(v []*Excluded) []*Excluded {
	if v == nil {
		return []*Excluded{}
	}
	return v
}
