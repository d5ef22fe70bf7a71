package memory

import (
	"context"

	"puzzler-quiz-service/internal/domain"
)

// PuzzleSource fetches raw puzzle records from a backing store
// (file pack, document DB, etc).
type PuzzleSource interface {
	LoadPuzzles(ctx context.Context) ([]domain.Puzzle, error)
}

// StaticPuzzleSource serves a fixed record slice (useful for tests/demos).
// A slice rather than a map: catalog order is insertion order.
type StaticPuzzleSource struct {
	puzzles []domain.Puzzle
}

func NewStaticPuzzleSource(puzzles []domain.Puzzle) *StaticPuzzleSource {
	return &StaticPuzzleSource{puzzles: puzzles}
}

func (s *StaticPuzzleSource) LoadPuzzles(_ context.Context) ([]domain.Puzzle, error) {
	out := make([]domain.Puzzle, len(s.puzzles))
	copy(out, s.puzzles)
	return out, nil
}
