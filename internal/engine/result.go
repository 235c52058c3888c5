package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ydhoon/policy-ranker/internal/policy"
	"github.com/ydhoon/policy-ranker/internal/score"
)

// Validated wraps a merged record the user is eligible for.
type Validated struct {
	Record      *policy.MergedRecord `json:"record"`
	Confidence  score.Confidence     `json:"confidence"`
	Eligibility []string             `json:"eligibility"`
	Notes       []string             `json:"notes,omitempty"`
}

// Excluded names a policy removed from the recommendation set and why.
type Excluded struct {
	PolicyName string `json:"policy_name"`
	Reason     string `json:"reason"`
	Detail     string `json:"detail,omitempty"`
}

// ConfidenceHistogram counts validated outcomes per tier.
type ConfidenceHistogram struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Summary aggregates one evaluation run.
type Summary struct {
	ReferenceDate   string              `json:"reference_date"`
	TotalCandidates int                 `json:"total_candidates"`
	Authoritative   int                 `json:"authoritative"`
	Secondary       int                 `json:"secondary"`
	Validated       int                 `json:"validated"`
	Excluded        int                 `json:"excluded"`
	Confidence      ConfidenceHistogram `json:"confidence"`
}

// Result is the engine's complete output for one run. It is stable: the same
// input and configuration always serialize to the same bytes.
type Result struct {
	Validated []*Validated `json:"validated"`
	Excluded  []*Excluded  `json:"excluded"`
	Summary   Summary      `json:"summary"`
}

// DumpToTmpFile writes the result as indented JSON to a temporary file and
// returns its name.
func (r *Result) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "outcomes_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ExcludedNames returns the policy names on the excluded list.
func (r *Result) ExcludedNames() []string {
	names := make([]string, 0, len(r.Excluded))
	for _, excluded := range r.Excluded {
		names = append(names, excluded.PolicyName)
	}
	return names
}

// ReportByCategory digests the validated outcomes per category for the
// interactive report prompt.
func (r *Result) ReportByCategory() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, validated := range r.Validated {
		record := validated.Record
		entry := map[string]string{
			"policy_name": record.PolicyName,
			"confidence":  string(validated.Confidence),
			"age_range":   fmt.Sprintf("%d-%d", record.AgeMin, record.AgeMax),
		}
		if record.HasIncomeLimit {
			entry["income_limit"] = fmt.Sprintf("%d", record.IncomeLimit)
		}
		if record.OfficialLink != "" {
			entry["official_link"] = record.OfficialLink
		}
		if record.Unverified {
			entry["unverified"] = "true"
		}
		report[record.Category] = append(report[record.Category], entry)
	}
	return report
}

// InvariantError reports an internal consistency breach in the engine's own
// output. It always signals a defect in the grouping or merge logic, never
// bad input, so callers should abort rather than use the result.
type InvariantError struct {
	Policy string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("engine invariant violated for policy %q: %s", e.Policy, e.Detail)
}
