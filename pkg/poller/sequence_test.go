package poller

import "testing"

func countOccurrences(seq []string) map[string]int {
	counts := make(map[string]int)
	for _, pid := range seq {
		counts[pid]++
	}
	return counts
}

func TestBuildSequenceWeights(t *testing.T) {
	seq := BuildSequence(
		[]string{"0C", "0D"},
		[]string{"05", "11"},
		[]string{"2F"},
	)
	counts := countOccurrences(seq)

	// every segment plus the emphasis repetition
	for _, pid := range []string{"0C", "0D"} {
		if counts[pid] != sequenceSegments+1 {
			t.Errorf("high PID %s appears %d times, want %d", pid, counts[pid], sequenceSegments+1)
		}
	}
	for _, pid := range []string{"05", "11"} {
		if counts[pid] != 2 {
			t.Errorf("medium PID %s appears %d times, want 2", pid, counts[pid])
		}
	}
	if counts["2F"] != 1 {
		t.Errorf("low PID 2F appears %d times, want 1", counts["2F"])
	}
}

func TestBuildSequenceHighSpread(t *testing.T) {
	seq := BuildSequence([]string{"0C"}, []string{"05", "11", "04"}, []string{"2F", "0F"})

	// high PIDs recur throughout the cycle rather than clustering: no
	// two consecutive occurrences further apart than a full segment's
	// worth of other PIDs
	var positions []int
	for i, pid := range seq {
		if pid == "0C" {
			positions = append(positions, i)
		}
	}
	if len(positions) != sequenceSegments+1 {
		t.Fatalf("high PID occurs %d times, want %d", len(positions), sequenceSegments+1)
	}
	for i := 1; i < len(positions); i++ {
		if gap := positions[i] - positions[i-1]; gap > 4 {
			t.Errorf("high PID gap of %d between occurrences %d and %d", gap, i-1, i)
		}
	}
}

func TestBuildSequenceEmpty(t *testing.T) {
	if seq := BuildSequence(nil, nil, nil); len(seq) != 0 {
		t.Errorf("empty input produced %v", seq)
	}

	seq := BuildSequence(nil, []string{"05"}, nil)
	counts := countOccurrences(seq)
	if counts["05"] != 2 {
		t.Errorf("medium-only sequence = %v", seq)
	}
}
