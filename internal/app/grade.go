package app

import (
	"sort"

	"puzzler-quiz-service/internal/domain"
)

// Grade compares a submission against a puzzle's answer key by set equality.
// Duplicate indices in the submission collapse before the comparison. The
// function is pure and safe for any number of concurrent callers; it assumes
// indices were range-checked upstream.
func Grade(p domain.Puzzle, indices []int) domain.Verdict {
	submitted := dedupeSorted(indices)
	key := dedupeSorted(p.Correct)
	if len(submitted) != len(key) {
		return domain.VerdictIncorrect
	}
	for i := range key {
		if submitted[i] != key[i] {
			return domain.VerdictIncorrect
		}
	}
	return domain.VerdictCorrect
}

// checkIndices rejects submissions referencing a non-existent choice before
// they reach grading or session state.
func checkIndices(p domain.Puzzle, indices []int) error {
	for _, i := range indices {
		if i < 0 || i >= len(p.Choices) {
			return domain.ErrInvalidChoice
		}
	}
	return nil
}

func dedupeSorted(indices []int) []int {
	out := make([]int, len(indices))
	copy(out, indices)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}
