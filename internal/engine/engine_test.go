package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ydhoon/policy-ranker/internal/policy"
	"github.com/ydhoon/policy-ranker/internal/score"
)

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }

func refDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, ok := policy.ParseDate(s)
	if !ok {
		t.Fatalf("bad test date %q", s)
	}
	return d
}

func bridgeLoanAuthoritative() policy.RawCandidate {
	return policy.RawCandidate{
		ID:          "gov-1",
		PolicyName:  "Youth Bridge Loan",
		Category:    "금융",
		Content:     "만 19세부터 34세까지 신청 가능한 청년 대출 상품입니다.",
		SourceTier:  "authoritative",
		PublishYear: 2024,
		EndDate:     "2025-12-31",
		AgeMin:      intp(19),
		AgeMax:      intp(34),
		IncomeLimit: int64p(50000000),
		Similarity:  0.91,
	}
}

func bridgeLoanBlog() policy.RawCandidate {
	return policy.RawCandidate{
		ID:          "blog-1",
		PolicyName:  "youth bridge loan",
		Category:    "금융",
		Content:     "최대 소득 7천만원까지 가능하다고 합니다.",
		SourceTier:  "secondary",
		PublishYear: 2025,
		EndDate:     "2025-12-31",
		AgeMin:      intp(19),
		AgeMax:      intp(34),
		IncomeLimit: int64p(70000000),
		Similarity:  0.84,
	}
}

func savingsSecondary(id string, similarity float64) policy.RawCandidate {
	return policy.RawCandidate{
		ID:          id,
		PolicyName:  "Youth Savings Account",
		Category:    "금융",
		Content:     "청년 저축 계좌 지원 안내",
		SourceTier:  "secondary",
		PublishYear: 2025,
		AgeMin:      intp(19),
		AgeMax:      intp(34),
		IncomeLimit: int64p(60000000),
		Similarity:  similarity,
	}
}

func seoulProfile() *policy.UserProfile {
	return &policy.UserProfile{
		Age:        29,
		Income:     int64p(40000000),
		Location:   "Seoul",
		TargetYear: 2025,
	}
}

func evaluate(t *testing.T, raws []policy.RawCandidate, profile *policy.UserProfile) *Result {
	t.Helper()
	result, err := New(Config{}, zap.NewNop()).Evaluate(context.Background(), raws, profile, refDate(t, "2025-01-17"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

func TestAuthoritativeValueSurvivesSecondaryConflict(t *testing.T) {
	result := evaluate(t, []policy.RawCandidate{bridgeLoanAuthoritative(), bridgeLoanBlog()}, seoulProfile())

	if len(result.Validated) != 1 {
		t.Fatalf("expected exactly one validated outcome, got %d", len(result.Validated))
	}

	outcome := result.Validated[0]
	if outcome.Record.PolicyName != "Youth Bridge Loan" {
		t.Fatalf("unexpected policy: %s", outcome.Record.PolicyName)
	}
	if outcome.Record.IncomeLimit != 50000000 {
		t.Fatalf("authoritative income limit must win, got %d", outcome.Record.IncomeLimit)
	}
	if outcome.Confidence != score.High {
		t.Fatalf("expected high confidence, got %s", outcome.Confidence)
	}
	if len(result.Excluded) != 0 {
		t.Fatalf("nothing should be excluded, got %v", result.Excluded)
	}
	if result.Summary.Authoritative != 1 || result.Summary.Secondary != 1 {
		t.Fatalf("unexpected tier counts: %+v", result.Summary)
	}
}

func TestSecondaryOnlyCorroboration(t *testing.T) {
	raws := []policy.RawCandidate{
		savingsSecondary("blog-a", 0.8),
		savingsSecondary("blog-b", 0.7),
		savingsSecondary("cafe-c", 0.6),
	}

	result := evaluate(t, raws, seoulProfile())

	if len(result.Validated) != 1 {
		t.Fatalf("expected one validated outcome, got %d", len(result.Validated))
	}

	outcome := result.Validated[0]
	if outcome.Confidence != score.Medium {
		t.Fatalf("corroborated secondary-only policy must score medium, got %s", outcome.Confidence)
	}
	if !outcome.Record.Unverified {
		t.Fatalf("record must stay marked unverified")
	}

	corroborated := false
	for _, note := range outcome.Notes {
		if strings.Contains(note, "corroborated (3 agreeing sources)") {
			corroborated = true
		}
	}
	if !corroborated {
		t.Fatalf("expected corroboration note, got %v", outcome.Notes)
	}
}

func TestClosurePhraseExcludesRegardlessOfTier(t *testing.T) {
	closed := bridgeLoanAuthoritative()
	closed.Content = "본 상품은 접수 마감되었습니다."

	result := evaluate(t, []policy.RawCandidate{closed}, seoulProfile())

	if len(result.Validated) != 0 {
		t.Fatalf("closed policy must not validate")
	}
	if len(result.Excluded) != 1 {
		t.Fatalf("expected one exclusion, got %d", len(result.Excluded))
	}

	excluded := result.Excluded[0]
	if excluded.Reason != "closure keyword" {
		t.Fatalf("unexpected reason: %s", excluded.Reason)
	}
	if !strings.Contains(excluded.Detail, "접수 마감") {
		t.Fatalf("exclusion must name the keyword, got %q", excluded.Detail)
	}
}

func TestFutureClosureDateIsKept(t *testing.T) {
	open := bridgeLoanAuthoritative()
	open.Content = "접수 마감: 2025-12-31, 서둘러 신청하세요."

	result := evaluate(t, []policy.RawCandidate{open}, seoulProfile())

	if len(result.Validated) != 1 {
		t.Fatalf("future closure date must not exclude, got %v", result.Excluded)
	}
}

func TestEligibilityMismatchRoutesToExcluded(t *testing.T) {
	profile := seoulProfile()
	profile.Age = 35

	result := evaluate(t, []policy.RawCandidate{bridgeLoanAuthoritative()}, profile)

	if len(result.Validated) != 0 || len(result.Excluded) != 1 {
		t.Fatalf("expected a single exclusion, got %d/%d", len(result.Validated), len(result.Excluded))
	}
	if result.Excluded[0].Reason != "eligibility mismatch: age-bounds" {
		t.Fatalf("unexpected reason: %s", result.Excluded[0].Reason)
	}
}

func TestNoPolicyAppearsInBothLists(t *testing.T) {
	// One source of the policy is screened out, the other validates.
	closed := bridgeLoanBlog()
	closed.Content = "이 상품은 접수 마감되었습니다."

	result := evaluate(t, []policy.RawCandidate{bridgeLoanAuthoritative(), closed}, seoulProfile())

	if len(result.Validated) != 1 {
		t.Fatalf("expected the policy to validate on the surviving source")
	}
	for _, excluded := range result.Excluded {
		if policy.NormalizeName(excluded.PolicyName) == "youth bridge loan" {
			t.Fatalf("policy must not appear in both lists")
		}
	}

	dropped := false
	for _, note := range result.Validated[0].Notes {
		if strings.Contains(note, "dropped during screening") {
			dropped = true
		}
	}
	if !dropped {
		t.Fatalf("expected a note about the screened-out source, got %v", result.Validated[0].Notes)
	}
}

func TestValidatedOrdering(t *testing.T) {
	raws := []policy.RawCandidate{
		savingsSecondary("blog-a", 0.9),
		savingsSecondary("blog-b", 0.9),
		savingsSecondary("cafe-c", 0.9),
		bridgeLoanAuthoritative(),
	}

	result := evaluate(t, raws, seoulProfile())

	if len(result.Validated) != 2 {
		t.Fatalf("expected two validated outcomes, got %d", len(result.Validated))
	}
	if result.Validated[0].Confidence != score.High || result.Validated[1].Confidence != score.Medium {
		t.Fatalf("validated outcomes must be in descending confidence order")
	}
}

func TestIdempotence(t *testing.T) {
	raws := []policy.RawCandidate{
		bridgeLoanAuthoritative(),
		bridgeLoanBlog(),
		savingsSecondary("blog-a", 0.8),
		savingsSecondary("blog-b", 0.7),
	}

	first := evaluate(t, raws, seoulProfile())
	second := evaluate(t, raws, seoulProfile())

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if !bytes.Equal(a, b) {
		t.Fatalf("two runs over identical input must serialize identically")
	}
}

func TestInvalidProfileRejectsRun(t *testing.T) {
	profile := seoulProfile()
	profile.Age = -1

	_, err := New(Config{}, zap.NewNop()).Evaluate(context.Background(), nil, profile, refDate(t, "2025-01-17"))

	var profileErr *policy.ProfileError
	if !errors.As(err, &profileErr) {
		t.Fatalf("expected a profile error, got %v", err)
	}
	if profileErr.Field != "age" {
		t.Fatalf("error must name the offending field, got %q", profileErr.Field)
	}
}

func TestBlocklistedPolicyExcluded(t *testing.T) {
	blocked := &policy.BlockedPolicies{}
	blocked.Add([]string{"Youth Bridge Loan"}, "operator review", time.Unix(0, 0).UTC())

	eng := New(Config{Blocklist: blocked}, zap.NewNop())
	result, err := eng.Evaluate(context.Background(), []policy.RawCandidate{bridgeLoanAuthoritative()}, seoulProfile(), refDate(t, "2025-01-17"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Excluded) != 1 || result.Excluded[0].Reason != "blocklisted" {
		t.Fatalf("expected a blocklist exclusion, got %+v", result.Excluded)
	}
}

func TestSummaryCounts(t *testing.T) {
	expired := savingsSecondary("old", 0.5)
	expired.PolicyName = "Expired Grant"
	expired.EndDate = "2024-01-01"

	raws := []policy.RawCandidate{bridgeLoanAuthoritative(), expired}
	result := evaluate(t, raws, seoulProfile())

	s := result.Summary
	if s.TotalCandidates != 2 || s.Validated != 1 || s.Excluded != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Confidence.High != 1 || s.Confidence.Medium != 0 || s.Confidence.Low != 0 {
		t.Fatalf("unexpected confidence histogram: %+v", s.Confidence)
	}
	if s.ReferenceDate != "2025-01-17" {
		t.Fatalf("summary must carry the reference date, got %q", s.ReferenceDate)
	}
}
