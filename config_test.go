package stackalloc

import "testing"

func TestConfigClassifyBoundaries(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		size uintptr
		want sizeCategory
	}{
		{0, categoryNone},
		{1, categoryVerySmall},
		{7, categoryVerySmall},
		{8, categorySmall},
		{63, categorySmall},
		{64, categoryMedium},
		{511, categoryMedium},
		{512, categoryLarge},
		{4095, categoryLarge},
		{4096, categoryVeryLarge},
		{262144, categoryVeryLarge},
		{262145, categoryNone},
	}
	for _, c := range cases {
		if got := cfg.classify(c.size); got != c.want {
			t.Fatalf("classify(%d) = %v, want %v", c.size, got, c.want)
		}
	}
}

func TestConfigParentChain(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.parent(categoryVerySmall) != categoryMedium {
		t.Fatalf("very-small should borrow from medium")
	}
	if cfg.parent(categorySmall) != categoryLarge {
		t.Fatalf("small should borrow from large")
	}
	if cfg.parent(categoryMedium) != categoryVeryLarge {
		t.Fatalf("medium should borrow from very-large")
	}
	if cfg.parent(categoryLarge) != categoryVeryLarge {
		t.Fatalf("large should borrow from very-large")
	}
}
