package env

import "testing"

func TestGet(t *testing.T) {
	t.Setenv("LENDINGLOOP_ENV_TEST", "set")
	if got := Get("LENDINGLOOP_ENV_TEST", "fallback"); got != "set" {
		t.Fatalf("expected set value, got %q", got)
	}

	t.Setenv("LENDINGLOOP_ENV_TEST", "")
	if got := Get("LENDINGLOOP_ENV_TEST", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for empty value, got %q", got)
	}

	if got := Get("LENDINGLOOP_ENV_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for unset variable, got %q", got)
	}
}
