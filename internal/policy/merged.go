package policy

import "time"

// MergedRecord is the single record produced for a distinct policy after
// conflict resolution. Attribute values are the ones selected by the
// resolver; Provenance explains every resolved disagreement.
type MergedRecord struct {
	PolicyName        string    `json:"policy_name"`
	Category          string    `json:"category"`
	AgeMin            int       `json:"age_min"`
	AgeMax            int       `json:"age_max"`
	IncomeLimit       int64     `json:"income_limit,omitempty"`
	HasIncomeLimit    bool      `json:"has_income_limit"`
	Locations         []string  `json:"locations"`
	OfficialLink      string    `json:"official_link,omitempty"`
	RequiredDocuments []string  `json:"required_documents,omitempty"`
	EndDate           time.Time `json:"-"`
	EndDateISO        string    `json:"end_date,omitempty"`
	NoExpiry          bool      `json:"no_expiry,omitempty"`

	// Tier composition of the contributing candidates.
	AuthoritativeCount int `json:"authoritative_count"`
	SecondaryCount     int `json:"secondary_count"`

	// Unverified marks policies assembled from secondary sources only.
	Unverified bool `json:"unverified,omitempty"`
	// Stale is set when no contributor passed the recency floor.
	Stale bool `json:"stale,omitempty"`

	// Similarity is the best similarity score among contributors, used only
	// for ordering ties in the final output.
	Similarity float64 `json:"similarity"`

	ContributorIDs []string `json:"contributor_ids"`
	Provenance     []string `json:"provenance,omitempty"`
}

// Verified reports whether at least one authoritative source contributed.
func (m *MergedRecord) Verified() bool {
	return m.AuthoritativeCount > 0
}
