package rank

import (
	"errors"
	"math/rand"
	"sort"
	"testing"
)

func TestBetween_OpenBounds(t *testing.T) {
	k := Initial()
	if err := Validate(k); err != nil {
		t.Fatalf("initial key invalid: %v", err)
	}
	after, err := After(k)
	if err != nil {
		t.Fatalf("After: %v", err)
	}
	if !(k < after) {
		t.Fatalf("expected %q < %q", k, after)
	}
	before, err := Before(k)
	if err != nil {
		t.Fatalf("Before: %v", err)
	}
	if !(before < k) {
		t.Fatalf("expected %q < %q", before, k)
	}
}

func TestBetween_InvalidRange(t *testing.T) {
	for _, tc := range [][2]string{{"m", "m"}, {"t", "m"}} {
		_, err := Between(tc[0], tc[1])
		var rangeErr *InvalidRangeError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("Between(%q, %q): expected InvalidRangeError, got %v", tc[0], tc[1], err)
		}
	}
}

func TestBetween_RejectsTrailingZeroKeys(t *testing.T) {
	_, err := Between("y0", "")
	var keyErr *InvalidKeyError
	if !errors.As(err, &keyErr) {
		t.Fatalf("expected InvalidKeyError, got %v", err)
	}
}

func TestBetween_PrefixAdjacent_HasSpace(t *testing.T) {
	// "y" < "y1" share a prefix and differ by the minimum step; a key must still fit.
	k, err := Between("y", "y1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !("y" < k && k < "y1") {
		t.Fatalf("expected y < %q < y1", k)
	}
	if Validate(k) != nil {
		t.Fatalf("generated invalid key %q", k)
	}
}

func TestBetween_RepeatedInsertionAtSamePoint_NeverCollides(t *testing.T) {
	// Always insert right after "a": the upper bound keeps shrinking towards it.
	lower := "a"
	upper := "b"
	seen := map[string]bool{lower: true, upper: true}
	for i := 0; i < 500; i++ {
		k, err := Between(lower, upper)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if !(lower < k && k < upper) {
			t.Fatalf("iteration %d: %q not between %q and %q", i, k, lower, upper)
		}
		if seen[k] {
			t.Fatalf("iteration %d: duplicate key %q", i, k)
		}
		seen[k] = true
		upper = k
	}
}

func TestBetween_RandomPairs(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	keys := []string{Initial()}
	for i := 0; i < 2000; i++ {
		// Pick a random gap in the sorted key list and split it.
		sorted := append([]string{}, keys...)
		sort.Strings(sorted)
		gap := r.Intn(len(sorted) + 1)
		lower, upper := "", ""
		if gap > 0 {
			lower = sorted[gap-1]
		}
		if gap < len(sorted) {
			upper = sorted[gap]
		}
		k, err := Between(lower, upper)
		if err != nil {
			t.Fatalf("Between(%q, %q): %v", lower, upper, err)
		}
		if lower != "" && !(lower < k) {
			t.Fatalf("Between(%q, %q) = %q: not above lower", lower, upper, k)
		}
		if upper != "" && !(k < upper) {
			t.Fatalf("Between(%q, %q) = %q: not below upper", lower, upper, k)
		}
		if err := Validate(k); err != nil {
			t.Fatalf("Between(%q, %q) = %q: %v", lower, upper, k, err)
		}
		keys = append(keys, k)
	}
}

func TestBetween_SameBoundsRepeatedly_ReturnsDistinctKeys(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		k, err := Between("a", "b")
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		if !("a" < k && k < "b") || Validate(k) != nil {
			t.Fatalf("iteration %d: bad key %q", i, k)
		}
		if seen[k] {
			t.Fatalf("iteration %d: Between returned %q twice for the same bounds", i, k)
		}
		seen[k] = true
	}
}

func TestBetween_MidpointPrefixOfUpper_StaysBelowUpper(t *testing.T) {
	// The midpoint of ("a", "b5") is "b", a prefix of the upper bound.
	for _, tc := range [][2]string{{"a", "b5"}, {"a", "b001"}, {"", "01"}} {
		for i := 0; i < 50; i++ {
			k, err := Between(tc[0], tc[1])
			if err != nil {
				t.Fatalf("Between(%q, %q): %v", tc[0], tc[1], err)
			}
			if !(tc[0] < k && k < tc[1]) || Validate(k) != nil {
				t.Fatalf("Between(%q, %q) = %q", tc[0], tc[1], k)
			}
		}
	}
}
