package eventsearch

// FilterByDistance keeps the candidates whose distance is <= maxDistance, preserving
// order. A nil maxDistance returns candidates unchanged. Candidates without a distance
// cannot satisfy a threshold and are dropped when one is set.
func FilterByDistance(candidates []Candidate, maxDistance *float64) []Candidate {
	if maxDistance == nil {
		return candidates
	}
	limit := *maxDistance
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Distance != nil && *c.Distance <= limit {
			kept = append(kept, c)
		}
	}
	return kept
}
