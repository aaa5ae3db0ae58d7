package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestMarkAndIs(t *testing.T) {
	t.Parallel()

	root := errors.New("status row missing")
	marked := Mark(root)
	if !Is(marked) {
		t.Fatalf("expected marked error to be unavailable")
	}
	if !errors.Is(marked, root) {
		t.Fatalf("expected marker to unwrap root cause")
	}
	if !Is(fmt.Errorf("evaluate: %w", marked)) {
		t.Fatalf("expected wrapped marker to be detected")
	}
	if Is(root) || Is(nil) {
		t.Fatalf("plain errors must not be unavailable")
	}
	if Mark(nil) != nil {
		t.Fatalf("mark(nil) must stay nil")
	}
}
