package server

import (
	"testing"
	"time"
)

func TestIsDue_EmptySpecNeverFires(t *testing.T) {
	if isDue("", nil) {
		t.Fatal("empty spec must disable the sweep")
	}
}

func TestIsDue_NeverRunIsDue(t *testing.T) {
	for _, spec := range []string{"@daily", "@hourly", "*/5 * * * *"} {
		if !isDue(spec, nil) {
			t.Fatalf("%q with no prior sweep must be due", spec)
		}
	}
}

func TestIsDue_Daily(t *testing.T) {
	recent := time.Now().Add(-1 * time.Hour)
	if isDue("@daily", &recent) {
		t.Fatal("swept an hour ago, daily must not be due")
	}
	old := time.Now().Add(-25 * time.Hour)
	if !isDue("@daily", &old) {
		t.Fatal("swept 25h ago, daily must be due")
	}
}

func TestIsDue_Hourly(t *testing.T) {
	recent := time.Now().Add(-30 * time.Minute)
	if isDue("@hourly", &recent) {
		t.Fatal("swept 30m ago, hourly must not be due")
	}
	old := time.Now().Add(-90 * time.Minute)
	if !isDue("@hourly", &old) {
		t.Fatal("swept 90m ago, hourly must be due")
	}
}

func TestIsDue_CronExpression(t *testing.T) {
	old := time.Now().Add(-10 * time.Minute)
	if !isDue("*/5 * * * *", &old) {
		t.Fatal("next 5-minute boundary has passed, must be due")
	}
}

func TestIsDue_InvalidSpecFallsBackToDaily(t *testing.T) {
	recent := time.Now().Add(-1 * time.Hour)
	if isDue("not a cron spec", &recent) {
		t.Fatal("invalid spec falls back to daily, must not be due after 1h")
	}
	old := time.Now().Add(-25 * time.Hour)
	if !isDue("not a cron spec", &old) {
		t.Fatal("invalid spec falls back to daily, must be due after 25h")
	}
}

func TestExcerpt_TruncatesRuneSafe(t *testing.T) {
	long := ""
	for i := 0; i < 250; i++ {
		long += "あ"
	}
	got := excerpt(long, 200)
	runes := []rune(got)
	if len(runes) != 203 {
		t.Fatalf("expected 200 runes plus ellipsis, got %d", len(runes))
	}
	short := "fits"
	if excerpt(short, 200) != "fits" {
		t.Fatalf("short text must pass through unchanged")
	}
}
