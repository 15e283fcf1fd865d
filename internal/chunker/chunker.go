// Package chunker enforces size bounds on ordered sequences of segments.
// It knows nothing about documents: callers supply how to measure and
// combine their own segment type.
package chunker

// Split breaks items into consecutive groups whose combined size stays
// within limit. A group's size is the sum of its members plus sep for each
// join between them. The cut is made before the item that would overflow;
// an item larger than limit on its own becomes a single-item group.
// A non-positive limit returns one group holding everything.
func Split[T any](items []T, limit int, size func(T) int, sep int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if limit <= 0 {
		return [][]T{items}
	}

	var groups [][]T
	var current []T
	currentSize := 0
	for _, it := range items {
		n := size(it)
		if len(current) > 0 && currentSize+sep+n > limit {
			groups = append(groups, current)
			current = nil
			currentSize = 0
		}
		if len(current) > 0 {
			currentSize += sep
		}
		current = append(current, it)
		currentSize += n
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// MergeSmall walks items in order and holds back any item for which small
// reports true. A held item is combined with its successor when join
// accepts the pair; the result stays held while it is still small. When the
// successor is not accepted the held item is emitted on its own.
func MergeSmall[T any](items []T, small func(T) bool, join func(a, b T) (T, bool)) []T {
	out := make([]T, 0, len(items))
	var pending T
	held := false
	for _, it := range items {
		if held {
			if merged, ok := join(pending, it); ok {
				it = merged
			} else {
				out = append(out, pending)
			}
			held = false
		}
		if small(it) {
			pending, held = it, true
			continue
		}
		out = append(out, it)
	}
	if held {
		out = append(out, pending)
	}
	return out
}
