package instance

import "testing"

func TestGetIDPrefersExplicitInstance(t *testing.T) {
	t.Setenv("PAYOUTS_INSTANCE_ID", "cron-2")
	t.Setenv("DYNO", "worker.1")
	if got := GetID(); got != "cron-2" {
		t.Fatalf("expected cron-2, got %q", got)
	}
}

func TestGetIDFallsBackToDyno(t *testing.T) {
	t.Setenv("PAYOUTS_INSTANCE_ID", "")
	t.Setenv("DYNO", "web.3")
	if got := GetID(); got != "web.3" {
		t.Fatalf("expected web.3, got %q", got)
	}
}

func TestGetIDNeverEmpty(t *testing.T) {
	t.Setenv("PAYOUTS_INSTANCE_ID", "")
	t.Setenv("DYNO", "")
	if GetID() == "" {
		t.Fatal("expected a non-empty instance id")
	}
}
