package history

// DefaultMaxLength bounds the total content length of one history.
const DefaultMaxLength = 4096

// TotalLength sums the content length of turns.
func TotalLength(turns []Turn) int {
	total := 0
	for _, t := range turns {
		total += t.Len()
	}
	return total
}

// Trim evicts turns from the front until the total length is within maxLength.
// The last remaining turn is never evicted, even when it alone exceeds the
// bound. A non-positive maxLength disables trimming. The result shares the
// backing array of turns.
func Trim(turns []Turn, maxLength int) []Turn {
	if maxLength <= 0 {
		return turns
	}

	total := TotalLength(turns)
	start := 0
	for total > maxLength && len(turns)-start > 1 {
		total -= turns[start].Len()
		start++
	}
	return turns[start:]
}

func clone(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
