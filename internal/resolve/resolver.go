// Package resolve merges the candidates of one policy into a single record.
// Authoritative sources always win field-level conflicts; secondary-only
// groups merge by majority and stay marked unverified.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ydhoon/policy-ranker/internal/logger"
	"github.com/ydhoon/policy-ranker/internal/policy"
)

// Resolver merges grouped candidates into MergedRecords.
type Resolver struct {
	logger *zap.Logger
}

func New(log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{logger: log}
}

// Resolve produces the merged record for one policy group. Contributors must
// be in input discovery order; tie-breaks depend on it.
func (r *Resolver) Resolve(contributors []*policy.Candidate) *policy.MergedRecord {
	authoritative := make([]*policy.Candidate, 0, len(contributors))
	for _, candidate := range contributors {
		if candidate.SourceTier == policy.TierAuthoritative {
			authoritative = append(authoritative, candidate)
		}
	}

	var record *policy.MergedRecord
	if len(authoritative) > 0 {
		record = r.resolveAuthoritative(authoritative)
	} else {
		record = r.resolveSecondary(contributors)
	}

	record.AuthoritativeCount = len(authoritative)
	record.SecondaryCount = len(contributors) - len(authoritative)
	if record.AuthoritativeCount > 0 && record.SecondaryCount > 0 {
		record.Provenance = append(record.Provenance, fmt.Sprintf(
			"%d secondary source(s) ignored for attribute selection", record.SecondaryCount,
		))
	}
	for _, candidate := range contributors {
		record.ContributorIDs = append(record.ContributorIDs, candidate.ID)
		if candidate.Similarity > record.Similarity {
			record.Similarity = candidate.Similarity
		}
	}

	r.logger.Debug("resolved policy group",
		append(logger.PolicyFields(record.PolicyName, ""),
			zap.Int("authoritative", record.AuthoritativeCount),
			zap.Int("secondary", record.SecondaryCount),
			zap.Int("provenance_notes", len(record.Provenance)),
		)...,
	)

	return record
}

// resolveAuthoritative takes every attribute from the authoritative
// contributor with the latest publish year (first encountered on a tie) and
// records disagreements between authoritative sources in provenance.
// Secondary contributors never influence attribute values here.
func (r *Resolver) resolveAuthoritative(authoritative []*policy.Candidate) *policy.MergedRecord {
	primary := authoritative[0]
	for _, candidate := range authoritative[1:] {
		if candidate.PublishYear > primary.PublishYear {
			primary = candidate
		}
	}

	record := recordFrom(primary)

	// A contributor group is stale only when no authoritative source passed
	// the recency floor.
	record.Stale = allStale(authoritative)

	for _, other := range authoritative {
		if other == primary {
			continue
		}
		for _, conflict := range fieldConflicts(primary, other) {
			record.Provenance = append(record.Provenance, fmt.Sprintf(
				"%s: authoritative sources disagree (%s from %s vs %s from %s), kept value published %d",
				conflict.field, conflict.primary, primary.ID, conflict.other, other.ID, primary.PublishYear,
			))
		}
	}

	return record
}

// resolveSecondary merges by majority value per field, ties broken by the
// latest publish year, and marks the record unverified.
func (r *Resolver) resolveSecondary(contributors []*policy.Candidate) *policy.MergedRecord {
	record := &policy.MergedRecord{
		PolicyName: contributors[0].PolicyName,
		Stale:      allStale(contributors),
		Unverified: true,
		Provenance: []string{"unverified by authoritative source"},
	}

	pick := func(field string, encode func(*policy.Candidate) string) *policy.Candidate {
		winner, disputed := majority(contributors, encode)
		if disputed {
			record.Provenance = append(record.Provenance, fmt.Sprintf(
				"%s: secondary sources disagree, kept majority value %s (published %d)",
				field, encode(winner), winner.PublishYear,
			))
		}
		return winner
	}

	record.Category = pick("category", func(c *policy.Candidate) string {
		return strings.ToLower(c.Category)
	}).Category

	ageWinner := pick("age_bounds", func(c *policy.Candidate) string {
		return fmt.Sprintf("%d-%d", c.AgeMin, c.AgeMax)
	})
	record.AgeMin = ageWinner.AgeMin
	record.AgeMax = ageWinner.AgeMax

	incomeWinner := pick("income_limit", encodeIncome)
	record.IncomeLimit = incomeWinner.IncomeLimit
	record.HasIncomeLimit = incomeWinner.HasIncomeLimit

	record.Locations = pick("locations", encodeLocations).Locations

	record.OfficialLink = pick("official_link", func(c *policy.Candidate) string {
		return c.OfficialLink
	}).OfficialLink

	record.RequiredDocuments = pick("required_documents", func(c *policy.Candidate) string {
		return strings.Join(c.RequiredDocuments, "|")
	}).RequiredDocuments

	endWinner := pick("end_date", encodeEndDate)
	record.EndDate = endWinner.EndDate
	record.EndDateISO = endWinner.EndDateISO
	record.NoExpiry = endWinner.NoExpiry

	return record
}

// majority returns the contributor holding the most common encoded value.
// Ties go to the latest publish year among the tied values, then to input
// order. disputed reports whether more than one distinct value was seen.
func majority(contributors []*policy.Candidate, encode func(*policy.Candidate) string) (*policy.Candidate, bool) {
	counts := make(map[string]int, len(contributors))
	bestYear := make(map[string]int, len(contributors))
	holder := make(map[string]*policy.Candidate, len(contributors))
	order := make([]string, 0, len(contributors))

	for _, candidate := range contributors {
		key := encode(candidate)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
		if candidate.PublishYear > bestYear[key] || holder[key] == nil {
			bestYear[key] = candidate.PublishYear
			holder[key] = candidate
		}
	}

	winner := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[winner] {
			winner = key
			continue
		}
		if counts[key] == counts[winner] && bestYear[key] > bestYear[winner] {
			winner = key
		}
	}

	return holder[winner], len(order) > 1
}

type conflict struct {
	field   string
	primary string
	other   string
}

func fieldConflicts(primary, other *policy.Candidate) []conflict {
	fields := []struct {
		name   string
		encode func(*policy.Candidate) string
	}{
		{"category", func(c *policy.Candidate) string { return strings.ToLower(c.Category) }},
		{"age_bounds", func(c *policy.Candidate) string { return fmt.Sprintf("%d-%d", c.AgeMin, c.AgeMax) }},
		{"income_limit", encodeIncome},
		{"locations", encodeLocations},
		{"official_link", func(c *policy.Candidate) string { return c.OfficialLink }},
		{"end_date", encodeEndDate},
	}

	var conflicts []conflict
	for _, field := range fields {
		left, right := field.encode(primary), field.encode(other)
		if left != right {
			conflicts = append(conflicts, conflict{field: field.name, primary: left, other: right})
		}
	}
	return conflicts
}

func encodeIncome(c *policy.Candidate) string {
	if !c.HasIncomeLimit {
		return "none"
	}
	return fmt.Sprintf("%d", c.IncomeLimit)
}

func encodeLocations(c *policy.Candidate) string {
	locations := make([]string, 0, len(c.Locations))
	for _, location := range c.Locations {
		locations = append(locations, strings.ToLower(location))
	}
	sort.Strings(locations)
	return strings.Join(locations, ",")
}

func encodeEndDate(c *policy.Candidate) string {
	if c.NoExpiry {
		return "none"
	}
	return c.EndDateISO
}

func recordFrom(c *policy.Candidate) *policy.MergedRecord {
	return &policy.MergedRecord{
		PolicyName:        c.PolicyName,
		Category:          c.Category,
		AgeMin:            c.AgeMin,
		AgeMax:            c.AgeMax,
		IncomeLimit:       c.IncomeLimit,
		HasIncomeLimit:    c.HasIncomeLimit,
		Locations:         c.Locations,
		OfficialLink:      c.OfficialLink,
		RequiredDocuments: c.RequiredDocuments,
		EndDate:           c.EndDate,
		EndDateISO:        c.EndDateISO,
		NoExpiry:          c.NoExpiry,
	}
}

func allStale(contributors []*policy.Candidate) bool {
	for _, candidate := range contributors {
		if !candidate.Stale {
			return false
		}
	}
	return len(contributors) > 0
}
