// Package screening implements the per-candidate pre-filters applied before
// candidates are grouped by policy: the temporal window check, the closure
// keyword scan and the operator blocklist.
package screening

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ydhoon/policy-ranker/internal/policy"
)

// Exclusion reason tokens. This taxonomy is closed: downstream consumers
// switch on these values.
const (
	ReasonExpired     = "expired"
	ReasonClosure     = "closure keyword"
	ReasonBlocklisted = "blocklisted"
)

// Exclusion records a candidate removed by a screening step, with the reason
// token and a human-readable detail (matched keyword, end date).
type Exclusion struct {
	Candidate *policy.Candidate
	Reason    string
	Detail    string
}

// Filter represents a single screening step applied to candidates.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Apply(ctx context.Context, c *policy.Candidates) (*policy.Candidates, []Exclusion, Step, error)
}

// Step describes the result of executing a screening step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// Pipeline executes screening filters sequentially.
type Pipeline struct {
	steps  []Filter
	logger *zap.Logger
}

// New creates a screening pipeline over the provided steps.
func New(steps []Filter, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{steps: steps, logger: logger}
}

// Run executes the filters in order, returning the surviving candidates and
// every exclusion in the order it was made.
func (p *Pipeline) Run(ctx context.Context, c *policy.Candidates) (*policy.Candidates, []Exclusion, error) {
	var exclusions []Exclusion

	for _, step := range p.steps {
		if !step.IsEnabled() {
			p.logger.Info("screening step disabled", zap.String("name", step.Name()))
			continue
		}

		next, dropped, info, err := step.Apply(ctx, c)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		p.logger.Info("screening step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		c = next
		exclusions = append(exclusions, dropped...)
	}

	return c, exclusions, nil
}

// Describe returns status entries for the pipeline's filters.
func (p *Pipeline) Describe() []Status {
	statuses := make([]Status, 0, len(p.steps))
	for _, step := range p.steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}
