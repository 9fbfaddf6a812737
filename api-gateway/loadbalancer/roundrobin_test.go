package loadbalancer

import (
	"testing"

	"github.com/tair/storefront/pkg/logger"
)

func init() {
	logger.Nop()
}

func TestNextCycles(t *testing.T) {
	rr := NewRoundRobin("catalog", []string{"a", "b", "c"})
	want := []string{"a", "b", "c", "a", "b"}
	for i, w := range want {
		if got := rr.Next(); got != w {
			t.Fatalf("Next #%d = %q, want %q", i, got, w)
		}
	}
}

func TestNextEmpty(t *testing.T) {
	rr := NewRoundRobin("cart", nil)
	if got := rr.Next(); got != "" {
		t.Fatalf("Next = %q, want empty", got)
	}
	if rr.Len() != 0 {
		t.Fatalf("Len = %d, want 0", rr.Len())
	}
}
