package screening

import (
	"context"
	"testing"
	"time"

	"github.com/ydhoon/policy-ranker/internal/policy"
)

func date(s string) time.Time {
	d, ok := policy.ParseDate(s)
	if !ok {
		panic("bad test date: " + s)
	}
	return d
}

func TestTemporalExcludesExpired(t *testing.T) {
	filter := NewTemporal(&TemporalConfig{
		ReferenceDate:     date("2025-01-17"),
		TargetYear:        2025,
		RecencyFloorYears: 2,
	})

	batch := &policy.Candidates{Items: []*policy.Candidate{
		{ID: "expired", PolicyName: "A", EndDate: date("2024-12-31"), EndDateISO: "2024-12-31"},
		{ID: "open", PolicyName: "B", EndDate: date("2025-12-31"), EndDateISO: "2025-12-31"},
		{ID: "boundary", PolicyName: "C", EndDate: date("2025-01-17"), EndDateISO: "2025-01-17"},
		{ID: "forever", PolicyName: "D", NoExpiry: true},
	}}

	kept, exclusions, step, err := filter.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if step.Dropped != 1 || kept.Len() != 3 {
		t.Fatalf("expected 1 drop and 3 kept, got %d/%d", step.Dropped, kept.Len())
	}
	if exclusions[0].Candidate.ID != "expired" || exclusions[0].Reason != ReasonExpired {
		t.Fatalf("unexpected exclusion: %+v", exclusions[0])
	}
	if kept.FindByID("boundary") == nil {
		t.Fatalf("end date equal to reference date must be kept")
	}
	if kept.FindByID("forever") == nil {
		t.Fatalf("no-expiry candidates must always be kept")
	}
}

func TestTemporalFlagsStaleButKeeps(t *testing.T) {
	filter := NewTemporal(&TemporalConfig{
		ReferenceDate:     date("2025-01-17"),
		TargetYear:        2025,
		RecencyFloorYears: 2,
	})

	batch := &policy.Candidates{Items: []*policy.Candidate{
		{ID: "stale", PolicyName: "A", NoExpiry: true, PublishYear: 2022},
		{ID: "fresh", PolicyName: "B", NoExpiry: true, PublishYear: 2024},
	}}

	kept, _, _, err := filter.Apply(context.Background(), batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if kept.Len() != 2 {
		t.Fatalf("stale candidates must not be excluded, got %d left", kept.Len())
	}

	stale := kept.FindByID("stale")
	if !stale.Stale {
		t.Fatalf("expected stale flag for publish year below the floor")
	}
	if len(stale.Notes) == 0 {
		t.Fatalf("expected a note explaining the stale flag")
	}

	if kept.FindByID("fresh").Stale {
		t.Fatalf("fresh candidate must not be flagged")
	}
}
