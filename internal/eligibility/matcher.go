// Package eligibility checks a user profile against a merged policy record.
// Failing a predicate routes the policy to the excluded list; missing data on
// either side passes with an explanatory note instead.
package eligibility

import (
	"fmt"
	"strings"

	"github.com/ydhoon/policy-ranker/internal/policy"
)

// Predicate names used in exclusion reasons. The taxonomy is closed.
const (
	PredicateAge      = "age-bounds"
	PredicateIncome   = "income"
	PredicateLocation = "location"
)

// Result reports the eligibility decision for one record.
type Result struct {
	Eligible bool
	// FailedPredicate holds the first predicate that failed, empty when
	// eligible.
	FailedPredicate string
	// Explanations describes each predicate that was actually checked.
	Explanations []string
	// Notes records predicates skipped because data was missing.
	Notes []string
}

// Match evaluates the three eligibility predicates in a fixed order:
// age bounds, income, location. All must hold.
func Match(profile *policy.UserProfile, record *policy.MergedRecord) Result {
	result := Result{Eligible: true}

	if profile.Age < record.AgeMin || profile.Age > record.AgeMax {
		return failed(PredicateAge, fmt.Sprintf(
			"age %d outside range %d-%d", profile.Age, record.AgeMin, record.AgeMax,
		))
	}
	result.Explanations = append(result.Explanations, fmt.Sprintf(
		"age %d within range %d-%d", profile.Age, record.AgeMin, record.AgeMax,
	))

	switch {
	case profile.Income == nil && record.HasIncomeLimit:
		result.Notes = append(result.Notes, "profile income not supplied, income ceiling not checked")
	case !record.HasIncomeLimit:
		result.Notes = append(result.Notes, "no income ceiling on record")
	case *profile.Income > record.IncomeLimit:
		return failed(PredicateIncome, fmt.Sprintf(
			"income %d above ceiling %d", *profile.Income, record.IncomeLimit,
		))
	default:
		result.Explanations = append(result.Explanations, fmt.Sprintf(
			"income %d within ceiling %d", *profile.Income, record.IncomeLimit,
		))
	}

	location := strings.TrimSpace(profile.Location)
	switch {
	case policy.IsNationwide(record.Locations):
		result.Explanations = append(result.Explanations, "policy applies nationwide")
	case location == "":
		result.Notes = append(result.Notes, "profile location not supplied, location requirement not checked")
	case containsFold(record.Locations, location):
		result.Explanations = append(result.Explanations, fmt.Sprintf("location %s covered", profile.Location))
	default:
		return failed(PredicateLocation, fmt.Sprintf(
			"location %s not in %s", profile.Location, strings.Join(record.Locations, ","),
		))
	}

	return result
}

func failed(predicate, explanation string) Result {
	return Result{
		Eligible:        false,
		FailedPredicate: predicate,
		Explanations:    []string{explanation},
	}
}

func containsFold(haystack []string, needle string) bool {
	for _, item := range haystack {
		if strings.EqualFold(strings.TrimSpace(item), needle) {
			return true
		}
	}
	return false
}
