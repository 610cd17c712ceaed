package speech

// Merge concatenates batches in order and drops repeated speech IDs, keeping the
// first occurrence in place. Records without an ID cannot be deduplicated and are kept.
//
// Callers pass batches ordered by keyword index, then speaker index.
func Merge(batches ...[]Record) []Record {
	total := 0
	for _, b := range batches {
		total += len(b)
	}

	seen := make(map[string]struct{}, total)
	out := make([]Record, 0, total)
	for _, b := range batches {
		for _, r := range b {
			if r.SpeechID != "" {
				if _, dup := seen[r.SpeechID]; dup {
					continue
				}
				seen[r.SpeechID] = struct{}{}
			}
			out = append(out, r)
		}
	}
	return out
}
