package screening

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ydhoon/policy-ranker/internal/policy"
)

// TemporalConfig carries the caller-supplied reference date and the recency
// floor. The reference date is never taken from the system clock so that two
// runs over the same input are directly comparable.
type TemporalConfig struct {
	ReferenceDate     time.Time
	TargetYear        int
	RecencyFloorYears int
}

type temporalFilter struct {
	cfg *TemporalConfig
}

// NewTemporal creates the filter that drops candidates whose policy ended
// before the reference date and flags candidates older than the recency
// floor. A missing end date always passes.
func NewTemporal(cfg *TemporalConfig) Filter {
	return &temporalFilter{cfg: cfg}
}

func (f *temporalFilter) Name() string { return "temporal" }

func (f *temporalFilter) Disable(string) {}

func (f *temporalFilter) IsEnabled() bool { return true }

func (f *temporalFilter) Apply(_ context.Context, c *policy.Candidates) (*policy.Candidates, []Exclusion, Step, error) {
	initial := c.Len()
	floor := f.cfg.TargetYear - f.cfg.RecencyFloorYears

	var exclusions []Exclusion
	kept := c.Keep(func(candidate *policy.Candidate) bool {
		if !candidate.NoExpiry && candidate.EndDate.Before(f.cfg.ReferenceDate) {
			exclusions = append(exclusions, Exclusion{
				Candidate: candidate,
				Reason:    ReasonExpired,
				Detail:    fmt.Sprintf("policy ended %s", candidate.EndDate.Format("2006-01-02")),
			})
			return false
		}

		// Stale but still open: keep, penalize confidence later.
		if candidate.PublishYear != 0 && candidate.PublishYear < floor {
			candidate.Stale = true
			candidate.AddNote(fmt.Sprintf("published %d, older than recency floor %d", candidate.PublishYear, floor))
		}
		return true
	})

	return kept, exclusions, Step{Initial: initial, Dropped: len(exclusions), Left: kept.Len()}, nil
}

func (f *temporalFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{
			"reference_date":      f.cfg.ReferenceDate.Format("2006-01-02"),
			"recency_floor_years": strconv.Itoa(f.cfg.RecencyFloorYears),
		},
	}
}
