package rank

import "strings"

// AppendKey returns a key that sorts after every entry of the container.
func AppendKey(entries []Entry) (string, error) {
	return InsertKeyAt(entries, len(entries))
}

// InsertKeyAt returns a key for a new entry placed at index, i.e. between the
// entries currently at index-1 and index.
func InsertKeyAt(entries []Entry, index int) (string, error) {
	cur := append([]Entry{}, entries...)
	Sort(cur)
	if index < 0 {
		index = 0
	}
	if index > len(cur) {
		index = len(cur)
	}
	lower := ""
	upper := ""
	if index > 0 {
		lower = cur[index-1].Key
	}
	if index < len(cur) {
		upper = cur[index].Key
	}
	return BetweenUnique(existingKeysExcluding(cur, nil), lower, upper)
}

// MoveKey returns the new key for movedID placed at newIndex. Neighbors are
// taken from the container's order with the moved entry excluded.
func MoveKey(entries []Entry, movedID string, newIndex int) (string, error) {
	movedID = strings.TrimSpace(movedID)
	rest := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.ID) == movedID {
			continue
		}
		rest = append(rest, e)
	}
	return InsertKeyAt(rest, newIndex)
}
