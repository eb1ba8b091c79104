// Package poller schedules continuous multi-sensor polling over the
// single-flight communication gate.
package poller

// Priority assigns a PID to a weight class.
type Priority int

const (
	High Priority = iota
	Medium
	Low
)

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Medium:
		return "medium"
	case Low:
		return "low"
	}
	return "unknown"
}

const sequenceSegments = 5

// BuildSequence lays out one polling cycle. High PIDs appear in every
// segment so they recur roughly every fifth of the cycle instead of
// clustering, plus one emphasis repetition at the end; Medium PIDs land
// in two segments, Low in one. The sequence is intentionally not
// deduplicated.
func BuildSequence(high, medium, low []string) []string {
	var seq []string
	for i := 0; i < sequenceSegments; i++ {
		seq = append(seq, high...)
		if i == 1 || i == 3 {
			seq = append(seq, medium...)
		}
		if i == 2 {
			seq = append(seq, low...)
		}
	}
	seq = append(seq, high...)
	return seq
}
