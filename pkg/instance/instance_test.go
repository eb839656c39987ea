package instance

import "testing"

func TestIDFromEnv(t *testing.T) {
	t.Setenv("LUZIMARKET_WORKER_ID", "cron-worker-2")
	if got := ID(); got != "cron-worker-2" {
		t.Fatalf("expected configured id, got %q", got)
	}
}

func TestIDFallback(t *testing.T) {
	t.Setenv("LUZIMARKET_WORKER_ID", "")
	if got := ID(); got == "" {
		t.Fatal("expected non-empty fallback id")
	}
}
