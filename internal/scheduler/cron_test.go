package scheduler

import (
	"testing"
	"time"

	"github.com/rovesti/fabrica/internal/domain"
)

func TestCalculateNextDue_Cron(t *testing.T) {
	sched := &domain.Schedule{
		CronExpr: "0 9 * * *",
		Timezone: "UTC",
	}

	from := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue: %v", err)
	}

	want := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestCalculateNextDue_CronHonorsTimezone(t *testing.T) {
	sched := &domain.Schedule{
		CronExpr: "0 9 * * *",
		Timezone: "Europe/Berlin",
	}

	// 08:30 UTC in winter is 09:30 Berlin, so the next 09:00 Berlin
	// fire is the following day.
	from := time.Date(2026, 1, 10, 8, 30, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue: %v", err)
	}

	want := time.Date(2026, 1, 11, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestCalculateNextDue_Interval(t *testing.T) {
	sched := &domain.Schedule{
		IntervalSec: 300,
		Timezone:    "UTC",
	}

	from := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue: %v", err)
	}

	if got := next.Sub(from); got != 5*time.Minute {
		t.Errorf("interval advance = %v, want 5m", got)
	}
}

func TestCalculateNextDue_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	sched := &domain.Schedule{
		CronExpr: "*/5 * * * *",
		Timezone: "Mars/Olympus",
	}

	from := time.Date(2026, 3, 10, 8, 2, 0, 0, time.UTC)
	next, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue: %v", err)
	}

	want := time.Date(2026, 3, 10, 8, 5, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestCalculateNextDue_NeitherCronNorInterval(t *testing.T) {
	sched := &domain.Schedule{Timezone: "UTC"}

	if _, err := CalculateNextDue(sched, time.Now()); err == nil {
		t.Fatal("expected error for schedule without cron_expr or interval_sec")
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("*/15 * * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	if err := ValidateCronExpr("not a cron"); err == nil {
		t.Error("invalid expression accepted")
	}
}
