package policy

import (
	"strings"
	"time"
)

// SourceTier classifies the official standing of the record's origin.
type SourceTier string

const (
	// TierAuthoritative marks government or official channels.
	TierAuthoritative SourceTier = "authoritative"
	// TierSecondary marks everything else: blogs, forums, news.
	TierSecondary SourceTier = "secondary"
)

// Location wildcards accepted in candidate metadata. Both mean the policy
// applies regardless of the user's region.
const (
	NationwideKR = "전국"
	NationwideEN = "nationwide"
)

// MaxAge is the upper bound applied when a candidate carries no age limit.
const MaxAge = 200

// RawCandidate is a retrieved record exactly as the search layer hands it
// over. Optional fields stay nil when the source did not provide them;
// normalization fills the defaults.
type RawCandidate struct {
	ID                string   `json:"id"`
	Content           string   `json:"content"`
	SourceTier        string   `json:"source_tier,omitempty"`
	PublishYear       int      `json:"publish_year,omitempty"`
	EndDate           string   `json:"end_date,omitempty"`
	PolicyName        string   `json:"policy_name"`
	Category          string   `json:"category,omitempty"`
	AgeMin            *int     `json:"age_min,omitempty"`
	AgeMax            *int     `json:"age_max,omitempty"`
	IncomeLimit       *int64   `json:"income_limit,omitempty"`
	Locations         []string `json:"locations,omitempty"`
	OfficialLink      string   `json:"official_link,omitempty"`
	RequiredDocuments []string `json:"required_documents,omitempty"`
	Similarity        float64  `json:"similarity,omitempty"`
}

// Candidate is the normalized working record. The raw input is never touched
// after normalization; flags and notes accumulated by later stages live here.
type Candidate struct {
	ID                string     `json:"id"`
	Content           string     `json:"content"`
	SourceTier        SourceTier `json:"source_tier"`
	PublishYear       int        `json:"publish_year"`
	EndDate           time.Time  `json:"-"`
	EndDateISO        string     `json:"end_date,omitempty"`
	NoExpiry          bool       `json:"no_expiry,omitempty"`
	PolicyName        string     `json:"policy_name"`
	Category          string     `json:"category"`
	AgeMin            int        `json:"age_min"`
	AgeMax            int        `json:"age_max"`
	IncomeLimit       int64      `json:"income_limit,omitempty"`
	HasIncomeLimit    bool       `json:"has_income_limit"`
	Locations         []string   `json:"locations"`
	OfficialLink      string     `json:"official_link,omitempty"`
	RequiredDocuments []string   `json:"required_documents,omitempty"`
	Similarity        float64    `json:"similarity"`

	// Stale is set by screening when the record looks older than the
	// configured recency floor. It demotes confidence, never excludes.
	Stale bool `json:"stale,omitempty"`
	// Notes records every default applied and every soft flag raised.
	Notes []string `json:"notes,omitempty"`
}

// GroupKey returns the key candidates are grouped under: the policy name
// trimmed, inner whitespace collapsed and lowercased.
func (c *Candidate) GroupKey() string {
	return NormalizeName(c.PolicyName)
}

// NormalizeName collapses whitespace and case so that cosmetic differences in
// policy names do not split a group.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// AddNote appends a note, skipping empty strings.
func (c *Candidate) AddNote(note string) {
	if note == "" {
		return
	}
	c.Notes = append(c.Notes, note)
}

// Candidates is a mutable batch of normalized candidates.
type Candidates struct {
	Items []*Candidate
}

func (c *Candidates) Len() int {
	return len(c.Items)
}

func (c *Candidates) FindByID(id string) *Candidate {
	for _, candidate := range c.Items {
		if candidate.ID == id {
			return candidate
		}
	}
	return nil
}

// Keep returns a new batch containing only candidates for which keep returned
// true, preserving order.
func (c *Candidates) Keep(keep func(*Candidate) bool) *Candidates {
	kept := make([]*Candidate, 0, len(c.Items))
	for _, candidate := range c.Items {
		if keep(candidate) {
			kept = append(kept, candidate)
		}
	}
	return &Candidates{Items: kept}
}

// GroupByName buckets candidates under their normalized policy name,
// preserving input order inside each bucket.
func (c *Candidates) GroupByName() map[string][]*Candidate {
	groups := make(map[string][]*Candidate)
	for _, candidate := range c.Items {
		key := candidate.GroupKey()
		groups[key] = append(groups[key], candidate)
	}
	return groups
}

