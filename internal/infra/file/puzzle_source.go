package file

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"puzzler-quiz-service/internal/domain"
)

// PuzzleSource reads a YAML puzzle pack from disk. The pack is re-read on
// every load; callers put a catalog cache in front of it.
type PuzzleSource struct {
	path string
}

func NewPuzzleSource(path string) *PuzzleSource {
	return &PuzzleSource{path: path}
}

type pack struct {
	Puzzles []domain.Puzzle `yaml:"puzzles"`
}

func (s *PuzzleSource) LoadPuzzles(_ context.Context) ([]domain.Puzzle, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read puzzle pack: %w", err)
	}
	var p pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse puzzle pack: %w", err)
	}
	return p.Puzzles, nil
}
