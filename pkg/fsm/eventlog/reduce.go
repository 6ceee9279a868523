package eventlog

import "fmt"

// Replay reduces a chronological record sequence to its initial state (the
// first record's from_state), final state (the last record's to_state), count
// and the ordered transitions themselves.
func Replay(records []Record) ReplayResult {
	result := ReplayResult{
		Count:       len(records),
		Transitions: records,
	}
	if len(records) == 0 {
		return result
	}
	result.InitialState = records[0].FromState
	result.FinalState = records[len(records)-1].ToState
	return result
}

// Validate checks that each record's from_state equals the previous record's
// to_state. The first record is exempt: its from_state is the machine's
// starting point.
func Validate(records []Record) ValidationResult {
	result := ValidationResult{Valid: true}
	for i := 1; i < len(records); i++ {
		prev := records[i-1].ToState
		from := records[i].FromState
		if from == nil || *from != prev {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"record %d: from_state %s does not match previous to_state %q",
				i, renderState(from), prev,
			))
		}
	}
	return result
}

// Stats computes state and transition frequencies over a record sequence.
func Stats(records []Record) Statistics {
	stats := Statistics{
		Total:               len(records),
		StateFrequency:      make(map[string]int),
		TransitionFrequency: make(map[string]int),
	}
	for _, rec := range records {
		if rec.FromState != nil {
			stats.StateFrequency[*rec.FromState]++
		}
		stats.StateFrequency[rec.ToState]++
		stats.TransitionFrequency[renderState(rec.FromState)+" -> "+rec.ToState]++
	}
	stats.UniqueStates = len(stats.StateFrequency)
	return stats
}

func renderState(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}
