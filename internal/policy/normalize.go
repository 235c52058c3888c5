package policy

import (
	"fmt"
	"strings"
	"time"
)

// DefaultCategory is the catch-all bucket for candidates without a category.
const DefaultCategory = "기타"

// Date layouts accepted in candidate metadata. Sources are inconsistent, so
// both ISO and the dotted form crawlers emit are recognized.
var dateLayouts = []string{"2006-01-02", "2006.01.02", "2006/01/02"}

// ParseDate parses a metadata date string. Empty input and parse failures
// report ok=false; a date that cannot be read is treated as absent, not as an
// error.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalize coerces a raw retrieved record into a Candidate, filling defaults
// for every missing field. It never fails: absence of a field only reduces
// specificity, and each applied default leaves a note.
func Normalize(raw RawCandidate) *Candidate {
	candidate := &Candidate{
		ID:                raw.ID,
		Content:           raw.Content,
		PublishYear:       raw.PublishYear,
		PolicyName:        strings.TrimSpace(raw.PolicyName),
		OfficialLink:      strings.TrimSpace(raw.OfficialLink),
		RequiredDocuments: raw.RequiredDocuments,
		Similarity:        raw.Similarity,
	}

	switch strings.ToLower(strings.TrimSpace(raw.SourceTier)) {
	case string(TierAuthoritative), "tier 1", "tier1":
		candidate.SourceTier = TierAuthoritative
	case string(TierSecondary), "tier 2", "tier2":
		candidate.SourceTier = TierSecondary
	case "":
		candidate.SourceTier = TierSecondary
		candidate.AddNote("source tier missing, assumed secondary")
	default:
		candidate.SourceTier = TierSecondary
		candidate.AddNote(fmt.Sprintf("unknown source tier %q, assumed secondary", raw.SourceTier))
	}

	if candidate.PolicyName == "" {
		candidate.PolicyName = raw.ID
		candidate.AddNote("policy name missing, using record id")
	}

	candidate.Category = strings.TrimSpace(raw.Category)
	if candidate.Category == "" {
		candidate.Category = DefaultCategory
		candidate.AddNote("category missing, assigned " + DefaultCategory)
	}

	candidate.AgeMin = 0
	candidate.AgeMax = MaxAge
	if raw.AgeMin != nil {
		candidate.AgeMin = *raw.AgeMin
	}
	if raw.AgeMax != nil {
		candidate.AgeMax = *raw.AgeMax
	}
	if raw.AgeMin == nil && raw.AgeMax == nil {
		candidate.AddNote("age bounds missing, open to all ages")
	}

	if raw.IncomeLimit != nil {
		candidate.IncomeLimit = *raw.IncomeLimit
		candidate.HasIncomeLimit = true
	} else {
		candidate.AddNote("income limit missing, no ceiling applied")
	}

	candidate.Locations = normalizeLocations(raw.Locations)
	if len(candidate.Locations) == 0 {
		candidate.Locations = []string{NationwideKR}
		candidate.AddNote("locations missing, assumed nationwide")
	}

	if end, ok := ParseDate(raw.EndDate); ok {
		candidate.EndDate = end
		candidate.EndDateISO = end.Format("2006-01-02")
	} else {
		candidate.NoExpiry = true
		if strings.TrimSpace(raw.EndDate) != "" {
			candidate.AddNote(fmt.Sprintf("unparseable end date %q, treated as no expiry", raw.EndDate))
		} else {
			candidate.AddNote("end date missing, treated as no expiry")
		}
	}

	return candidate
}

func normalizeLocations(locations []string) []string {
	result := make([]string, 0, len(locations))
	for _, location := range locations {
		location = strings.TrimSpace(location)
		if location == "" {
			continue
		}
		result = append(result, location)
	}
	return result
}

// IsNationwide reports whether the location set contains a wildcard entry.
func IsNationwide(locations []string) bool {
	for _, location := range locations {
		if location == NationwideKR || strings.EqualFold(location, NationwideEN) {
			return true
		}
	}
	return false
}
