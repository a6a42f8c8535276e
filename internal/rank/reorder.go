package rank

import (
	"errors"
	"sort"
	"strings"
)

// Entry is one member of an ordered container as seen by the key planner.
type Entry struct {
	ID  string
	Key string
}

// Result describes the key updates needed to realize an index-based placement.
// KeyByID includes only entries whose keys should change.
type Result struct {
	KeyByID      map[string]string
	WindowIDs    []string // IDs whose keys were (re)assigned in the fallback path (in final order)
	UsedFallback bool
}

// Sort orders entries in place by key, then ID.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Compare(entries[i], entries[j]) < 0
	})
}

// Compare orders by key and falls back to ID so duplicate keys still render stably.
func Compare(a, b Entry) int {
	ka, kb := Normalize(a.Key), Normalize(b.Key)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}

// Plan plans key updates for placing movedID at insertAt.
//
// Inputs:
//   - entries: the target container (may or may not already contain movedID)
//   - movedID: the entry being placed
//   - insertAt: the index in the container *after removing movedID*
//
// Behavior:
//   - Prefer changing only the moved entry's key (fast path).
//   - If the immediate neighbor bounds are not usable (duplicate or invalid
//     keys), rebalance the smallest contiguous window around the insertion
//     point that yields valid outer bounds.
func Plan(entries []Entry, movedID string, insertAt int) (Result, error) {
	movedID = strings.TrimSpace(movedID)
	if movedID == "" {
		return Result{}, errors.New("rank: missing moved id")
	}

	cur := append([]Entry{}, entries...)
	Sort(cur)

	movedIdx := -1
	for i := range cur {
		if strings.TrimSpace(cur[i].ID) == movedID {
			movedIdx = i
			break
		}
	}
	moved := Entry{ID: movedID}
	rest := make([]Entry, 0, len(cur))
	for i := range cur {
		if i == movedIdx {
			moved = cur[i]
			continue
		}
		rest = append(rest, cur[i])
	}

	if insertAt < 0 {
		insertAt = 0
	}
	if insertAt > len(rest) {
		insertAt = len(rest)
	}

	// Same position is a no-op for entries already in the container.
	if movedIdx >= 0 && insertAt == movedIdx && validNeighbors(rest, insertAt, moved.Key) {
		return Result{KeyByID: map[string]string{}}, nil
	}
	preferRight := movedIdx >= 0 && insertAt < movedIdx

	final := make([]Entry, 0, len(rest)+1)
	final = append(final, rest[:insertAt]...)
	final = append(final, moved)
	final = append(final, rest[insertAt:]...)

	existing := existingKeysExcluding(final, map[string]bool{movedID: true})
	if k, ok := keyBetweenNeighbors(existing, final, insertAt); ok {
		if Normalize(moved.Key) == k {
			return Result{KeyByID: map[string]string{}}, nil
		}
		return Result{KeyByID: map[string]string{movedID: k}}, nil
	}

	lo, hi := minimalValidWindow(final, insertAt, preferRight)

	lower := ""
	upper := ""
	if lo > 0 {
		lower = Normalize(final[lo-1].Key)
	}
	if hi+1 < len(final) {
		upper = Normalize(final[hi+1].Key)
	}

	excl := map[string]bool{}
	for i := lo; i <= hi; i++ {
		excl[strings.TrimSpace(final[i].ID)] = true
	}
	existing = existingKeysExcluding(final, excl)

	res := Result{
		KeyByID:      map[string]string{},
		WindowIDs:    make([]string, 0, hi-lo+1),
		UsedFallback: true,
	}
	curLower := lower
	for i := lo; i <= hi; i++ {
		id := strings.TrimSpace(final[i].ID)
		k, err := BetweenUnique(existing, curLower, upper)
		if err != nil {
			return Result{}, err
		}
		existing[k] = true
		res.KeyByID[id] = k
		res.WindowIDs = append(res.WindowIDs, id)
		curLower = k
	}
	return res, nil
}

// validNeighbors reports whether key already sits strictly between the
// neighbors at idx in the list that excludes it.
func validNeighbors(rest []Entry, idx int, key string) bool {
	key = Normalize(key)
	if Validate(key) != nil {
		return false
	}
	if idx > 0 && !(Normalize(rest[idx-1].Key) < key) {
		return false
	}
	if idx < len(rest) && !(key < Normalize(rest[idx].Key)) {
		return false
	}
	return true
}

func existingKeysExcluding(entries []Entry, excludeIDs map[string]bool) map[string]bool {
	existing := map[string]bool{}
	for _, e := range entries {
		if excludeIDs[strings.TrimSpace(e.ID)] {
			continue
		}
		if k := Normalize(e.Key); k != "" {
			existing[k] = true
		}
	}
	return existing
}

// keyBetweenNeighbors computes a key for the entry at idx using its immediate
// neighbors. ok=false when the bounds are unusable.
func keyBetweenNeighbors(existing map[string]bool, final []Entry, idx int) (key string, ok bool) {
	lower := ""
	upper := ""
	if idx > 0 {
		lower = Normalize(final[idx-1].Key)
	}
	if idx+1 < len(final) {
		upper = Normalize(final[idx+1].Key)
	}
	k, err := BetweenUnique(existing, lower, upper)
	if err != nil {
		return "", false
	}
	return k, true
}

// minimalValidWindow finds the smallest contiguous window [lo, hi] containing idx such that
// the outer bounds (key before lo, key after hi) are open-ended or strictly increasing.
//
// preferRight breaks ties between equally small windows in favor of expanding right.
func minimalValidWindow(final []Entry, idx int, preferRight bool) (lo, hi int) {
	if idx < 0 || idx >= len(final) {
		return 0, len(final) - 1
	}

	valid := func(lo, hi int) bool {
		lower := ""
		upper := ""
		if lo > 0 {
			lower = Normalize(final[lo-1].Key)
			if Validate(lower) != nil {
				return false
			}
		}
		if hi+1 < len(final) {
			upper = Normalize(final[hi+1].Key)
			if Validate(upper) != nil {
				return false
			}
		}
		if lower == "" || upper == "" {
			return true
		}
		return lower < upper
	}

	for size := 1; size <= len(final); size++ {
		startMin := idx - (size - 1)
		if startMin < 0 {
			startMin = 0
		}
		startMax := idx
		if startMax+size > len(final) {
			startMax = len(final) - size
		}
		if preferRight {
			for lo := startMax; lo >= startMin; lo-- {
				if valid(lo, lo+size-1) {
					return lo, lo + size - 1
				}
			}
		} else {
			for lo := startMin; lo <= startMax; lo++ {
				if valid(lo, lo+size-1) {
					return lo, lo + size - 1
				}
			}
		}
	}
	return 0, len(final) - 1
}
