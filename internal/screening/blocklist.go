package screening

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/ydhoon/policy-ranker/internal/policy"
)

type blocklistFilter struct {
	names    map[string]bool
	disabled bool
	reason   string
}

// NewBlocklist creates the filter that drops candidates whose policy name is
// on the operator blocklist. With no blocked names the filter disables
// itself.
func NewBlocklist(blocked *policy.BlockedPolicies) Filter {
	f := &blocklistFilter{names: make(map[string]bool)}
	if blocked != nil {
		for _, name := range blocked.Names() {
			f.names[name] = true
		}
	}
	if len(f.names) == 0 {
		f.disabled = true
		f.reason = "no blocked policies configured"
	}
	return f
}

func (f *blocklistFilter) Name() string { return "blocklist" }

func (f *blocklistFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *blocklistFilter) IsEnabled() bool { return !f.disabled }

func (f *blocklistFilter) Apply(_ context.Context, c *policy.Candidates) (*policy.Candidates, []Exclusion, Step, error) {
	initial := c.Len()

	var exclusions []Exclusion
	kept := c.Keep(func(candidate *policy.Candidate) bool {
		if !f.names[candidate.GroupKey()] {
			return true
		}
		exclusions = append(exclusions, Exclusion{
			Candidate: candidate,
			Reason:    ReasonBlocklisted,
			Detail:    "policy name on operator blocklist",
		})
		return false
	})

	return kept, exclusions, Step{Initial: initial, Dropped: len(exclusions), Left: kept.Len()}, nil
}

func (f *blocklistFilter) Status() Status {
	names := make([]string, 0, len(f.names))
	for name := range f.names {
		names = append(names, name)
	}
	// Status is informational only, but keep it stable anyway.
	sort.Strings(names)

	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{
			"blocked_count": strconv.Itoa(len(f.names)),
			"blocked":       strings.Join(names, ","),
		},
	}
}
