package fingerprint

import "testing"

func TestScopedPerBoard(t *testing.T) {
	c := New()
	c.Set("bd-1", "v1")

	if got := c.Get("bd-1"); got != "v1" {
		t.Fatalf("Get(bd-1) = %q, want v1", got)
	}
	// A different board must not see bd-1's token.
	if got := c.Get("bd-2"); got != "" {
		t.Fatalf("Get(bd-2) = %q, want empty", got)
	}
}

func TestSetIgnoresEmpty(t *testing.T) {
	c := New()
	c.Set("bd-1", "v1")
	c.Set("bd-1", "")

	if got := c.Get("bd-1"); got != "v1" {
		t.Fatalf("Get(bd-1) = %q, want v1 after empty set", got)
	}
}

func TestForget(t *testing.T) {
	c := New()
	c.Set("bd-1", "v1")
	c.Forget("bd-1")

	if got := c.Get("bd-1"); got != "" {
		t.Fatalf("Get(bd-1) = %q, want empty after forget", got)
	}
}
