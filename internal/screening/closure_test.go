package screening

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ydhoon/policy-ranker/internal/policy"
)

func newClosureForTest(keywords []string) Filter {
	return NewClosure(&ClosureConfig{
		Keywords:      keywords,
		ReferenceDate: date("2025-01-17"),
		TargetYear:    2025,
	}, zap.NewNop())
}

func applyClosure(t *testing.T, f Filter, candidates ...*policy.Candidate) (*policy.Candidates, []Exclusion) {
	t.Helper()
	kept, exclusions, _, err := f.Apply(context.Background(), &policy.Candidates{Items: candidates})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return kept, exclusions
}

func TestClosureExcludesClosedContent(t *testing.T) {
	filter := newClosureForTest(nil)

	kept, exclusions := applyClosure(t, filter,
		&policy.Candidate{ID: "closed", PolicyName: "A", Content: "This program's application closed last month."},
	)

	if kept.Len() != 0 || len(exclusions) != 1 {
		t.Fatalf("expected the candidate to be excluded")
	}
	if exclusions[0].Reason != ReasonClosure {
		t.Fatalf("unexpected reason: %s", exclusions[0].Reason)
	}
	if exclusions[0].Detail != "application closed" {
		t.Fatalf("exclusion must name the matched keyword, got %q", exclusions[0].Detail)
	}
}

func TestClosureFutureDateException(t *testing.T) {
	filter := newClosureForTest([]string{"application closed", "접수 마감"})

	kept, exclusions := applyClosure(t, filter,
		&policy.Candidate{ID: "future", PolicyName: "A", Content: "접수 마감: 2025-12-31까지 신청 가능합니다."},
	)

	if len(exclusions) != 0 || kept.Len() != 1 {
		t.Fatalf("closure phrase with a future date must not exclude, got %v", exclusions)
	}

	noted := false
	for _, note := range kept.Items[0].Notes {
		if strings.Contains(note, "2025-12-31") {
			noted = true
		}
	}
	if !noted {
		t.Fatalf("expected a note naming the future closure date, got %v", kept.Items[0].Notes)
	}
}

func TestClosureKoreanDateFormat(t *testing.T) {
	filter := newClosureForTest([]string{"모집 마감"})

	kept, exclusions := applyClosure(t, filter,
		&policy.Candidate{ID: "kr", PolicyName: "A", Content: "모집 마감 2025년 6월 30일"},
	)

	if len(exclusions) != 0 || kept.Len() != 1 {
		t.Fatalf("Korean future date must neutralize the closure phrase")
	}
}

func TestClosurePastDateStillExcludes(t *testing.T) {
	filter := newClosureForTest([]string{"접수 마감"})

	_, exclusions := applyClosure(t, filter,
		&policy.Candidate{ID: "past", PolicyName: "A", Content: "2024-06-30 접수 마감되었습니다."},
	)

	if len(exclusions) != 1 {
		t.Fatalf("closure phrase with only a past date must exclude")
	}
}

func TestClosureStaleYearIsSoftFlag(t *testing.T) {
	filter := newClosureForTest([]string{"terminated"})

	kept, exclusions := applyClosure(t, filter,
		&policy.Candidate{ID: "old", PolicyName: "A", Content: "2022년 기준 지원 내용입니다."},
	)

	if len(exclusions) != 0 || kept.Len() != 1 {
		t.Fatalf("stale year alone must not exclude")
	}
	if !kept.Items[0].Stale {
		t.Fatalf("expected stale flag from old year mention")
	}
}

func TestClosureIgnoresYearsInsideAmounts(t *testing.T) {
	filter := newClosureForTest([]string{"terminated"})

	kept, exclusions := applyClosure(t, filter,
		&policy.Candidate{ID: "amount", PolicyName: "A", Content: "지원 한도는 1200000원입니다."},
	)

	if len(exclusions) != 0 || kept.Len() != 1 {
		t.Fatalf("amounts must not be read as years, got %v", exclusions)
	}
	if kept.Items[0].Stale {
		t.Fatalf("digit runs inside amounts must not set the stale flag, notes: %v", kept.Items[0].Notes)
	}
}

func TestClosureDeferredKeywordWithStaleYearExcludes(t *testing.T) {
	filter := newClosureForTest([]string{"접수 마감"})

	_, exclusions := applyClosure(t, filter,
		&policy.Candidate{ID: "mixed", PolicyName: "A", Content: "접수 마감: 2025-12-31 (2022년 공고 기준)"},
	)

	if len(exclusions) != 1 {
		t.Fatalf("closure phrase plus stale year mention must exclude")
	}
	if !strings.Contains(exclusions[0].Detail, "2022") {
		t.Fatalf("exclusion must name the stale year, got %q", exclusions[0].Detail)
	}
}

func TestClosureChecksEveryOccurrence(t *testing.T) {
	filter := newClosureForTest([]string{"접수 마감"})

	// The second occurrence sits far from the future date and has none of
	// its own.
	content := "접수 마감: 2025-12-31 " + strings.Repeat("가", 300) + " 접수 마감되었습니다."
	_, exclusions := applyClosure(t, filter,
		&policy.Candidate{ID: "twice", PolicyName: "A", Content: content},
	)

	if len(exclusions) != 1 {
		t.Fatalf("a later occurrence without a future date must exclude")
	}
}

func TestClosureMatchesAfterCaseFoldingRunes(t *testing.T) {
	filter := newClosureForTest([]string{"application closed"})

	// Lowercasing İ grows the string, shifting byte offsets.
	content := strings.Repeat("İ", 200) + " application closed"
	_, exclusions := applyClosure(t, filter,
		&policy.Candidate{ID: "fold", PolicyName: "A", Content: content},
	)

	if len(exclusions) != 1 {
		t.Fatalf("keyword after case-folding runes must still match")
	}
}

func TestClosureCaseInsensitive(t *testing.T) {
	filter := newClosureForTest([]string{"terminated"})

	_, exclusions := applyClosure(t, filter,
		&policy.Candidate{ID: "caps", PolicyName: "A", Content: "This program was TERMINATED."},
	)

	if len(exclusions) != 1 {
		t.Fatalf("keyword matching must ignore case")
	}
}

func TestBlocklistFilter(t *testing.T) {
	blocked := &policy.BlockedPolicies{Items: []*policy.BlockedPolicy{
		{Name: "Youth Bridge Loan"},
	}}
	filter := NewBlocklist(blocked)

	if !filter.IsEnabled() {
		t.Fatalf("filter with blocked names must be enabled")
	}

	kept, exclusions := applyClosure(t, filter,
		&policy.Candidate{ID: "blocked", PolicyName: "youth bridge loan"},
		&policy.Candidate{ID: "free", PolicyName: "Youth Savings"},
	)

	if kept.Len() != 1 || kept.Items[0].ID != "free" {
		t.Fatalf("expected only the unblocked candidate to survive")
	}
	if exclusions[0].Reason != ReasonBlocklisted {
		t.Fatalf("unexpected reason: %s", exclusions[0].Reason)
	}
}

func TestBlocklistDisabledWhenEmpty(t *testing.T) {
	if NewBlocklist(nil).IsEnabled() {
		t.Fatalf("empty blocklist must disable the filter")
	}
}
