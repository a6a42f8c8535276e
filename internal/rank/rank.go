package rank

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const base = len(alphabet)

// InvalidRangeError is returned when lower does not sort strictly before upper.
// It always indicates a caller bug.
type InvalidRangeError struct {
	Lower string
	Upper string
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("rank: invalid range: %q must sort before %q", e.Lower, e.Upper)
}

type InvalidKeyError struct {
	Key    string
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("rank: invalid key %q: %s", e.Key, e.Reason)
}

func digit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'z':
		return 10 + int(c-'a'), true
	default:
		return 0, false
	}
}

// Normalize lowercases and trims a key.
func Normalize(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// Validate reports whether k is a well-formed key. Keys are non-empty base36
// strings that never end in '0'; the trailing-digit rule is what keeps the
// order dense ("y" < "y0" would otherwise leave no room between them).
func Validate(k string) error {
	if k == "" {
		return &InvalidKeyError{Key: k, Reason: "empty"}
	}
	for i := 0; i < len(k); i++ {
		if _, ok := digit(k[i]); !ok {
			return &InvalidKeyError{Key: k, Reason: "character outside [0-9a-z]"}
		}
	}
	if k[len(k)-1] == '0' {
		return &InvalidKeyError{Key: k, Reason: "trailing zero"}
	}
	return nil
}

// Between returns a key strictly between lower and upper.
// lower may be empty (no lower bound) and upper may be empty (no upper bound).
//
// Ordering is purely lexicographic. The midpoint of the bounds gets a short
// suffix drawn from a per-process sequence with a random start, so repeated
// calls with the same bounds, here or in another process, yield different
// keys.
func Between(lower, upper string) (string, error) {
	lower = Normalize(lower)
	upper = Normalize(upper)
	if lower != "" {
		if err := Validate(lower); err != nil {
			return "", err
		}
	}
	if upper != "" {
		if err := Validate(upper); err != nil {
			return "", err
		}
	}
	if lower != "" && upper != "" && lower >= upper {
		return "", &InvalidRangeError{Lower: lower, Upper: upper}
	}
	m := midpoint(lower, upper)
	return m + suffixBelow(m, upper), nil
}

// jitterSeq starts at a random point so separate processes draw different
// suffixes; within a process it never repeats before jitterPeriod calls.
var jitterSeq atomic.Uint64

const jitterPeriod = 36 * 36 * 35

func init() {
	id := ulid.Make()
	jitterSeq.Store(binary.BigEndian.Uint64(id[8:]))
}

// jitter returns three digits, the last one non-zero.
func jitter() string {
	n := jitterSeq.Add(1) % jitterPeriod
	return string([]byte{
		alphabet[n%36],
		alphabet[(n/36)%36],
		alphabet[1+n/(36*36)],
	})
}

// suffixBelow returns a suffix s with m < m+s < upper. When m is a prefix of
// upper, zeros are put first so the suffix sorts below the rest of upper.
func suffixBelow(m, upper string) string {
	if upper == "" || !strings.HasPrefix(upper, m) {
		return jitter()
	}
	rest := upper[len(m):]
	zeros := len(rest) - len(strings.TrimLeft(rest, "0"))
	return strings.Repeat("0", zeros+1) + jitter()
}

// midpoint assumes lower < upper (or either bound open) and both valid.
func midpoint(lower, upper string) string {
	if upper != "" {
		// Shared prefix, treating a missing lower digit as '0'.
		n := 0
		for n < len(upper) {
			lc := byte('0')
			if n < len(lower) {
				lc = lower[n]
			}
			if lc != upper[n] {
				break
			}
			n++
		}
		if n > 0 {
			rest := ""
			if n < len(lower) {
				rest = lower[n:]
			}
			return upper[:n] + midpoint(rest, upper[n:])
		}
	}

	dl := 0
	if lower != "" {
		dl, _ = digit(lower[0])
	}
	du := base
	if upper != "" {
		du, _ = digit(upper[0])
	}
	if du-dl > 1 {
		return string(alphabet[(dl+du+1)/2])
	}

	// Adjacent leading digits.
	if len(upper) > 1 {
		return upper[:1]
	}
	rest := ""
	if len(lower) > 1 {
		rest = lower[1:]
	}
	return string(alphabet[dl]) + midpoint(rest, "")
}

// Initial is the bare midpoint of the key space; keys from Between("", "")
// extend it.
func Initial() string { return midpoint("", "") }

func After(k string) (string, error)  { return Between(k, "") }
func Before(k string) (string, error) { return Between("", k) }

// BetweenUnique returns a key between lower and upper that is not already
// present in existing. Existing keys should be normalized.
//
// Collisions only arise when a sibling set already holds keys inside the
// bounds (data written by another client). Each retry tightens the lower
// bound to the colliding key, so the loop always makes progress.
func BetweenUnique(existing map[string]bool, lower, upper string) (string, error) {
	curLower := Normalize(lower)
	upper = Normalize(upper)
	for i := 0; i < 256; i++ {
		k, err := Between(curLower, upper)
		if err != nil {
			return "", err
		}
		if !existing[k] {
			return k, nil
		}
		curLower = k
	}
	return "", fmt.Errorf("rank: unable to find unique key between %q and %q", lower, upper)
}
