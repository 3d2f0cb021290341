package match

// SelectBest scores every candidate and returns the highest scoring one.
// Ties go to the earliest candidate, since providers return results in
// relevance order. The second return value is false when candidates is
// empty or the best score is below AcceptScore.
func SelectBest(track Track, candidates []Candidate) (Result, bool) {
	if len(candidates) == 0 {
		return Result{}, false
	}

	best := Result{Candidate: candidates[0], Score: Score(track, candidates[0])}
	for _, c := range candidates[1:] {
		if s := Score(track, c); s > best.Score {
			best = Result{Candidate: c, Score: s}
		}
	}

	if best.Score < AcceptScore {
		return Result{}, false
	}
	return best, true
}
