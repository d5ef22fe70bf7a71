package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"puzzler-quiz-service/internal/domain"
)

// PuzzleSource loads puzzle records from a Postgres JSONB table. Rows are
// ordered by position so catalog insertion order survives the round trip.
type PuzzleSource struct {
	pool *pgxpool.Pool
}

func NewPuzzleSource(pool *pgxpool.Pool) *PuzzleSource {
	return &PuzzleSource{pool: pool}
}

func (s *PuzzleSource) LoadPuzzles(ctx context.Context) ([]domain.Puzzle, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM puzzles ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("load puzzles: %w", err)
	}
	defer rows.Close()

	var puzzles []domain.Puzzle
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan puzzle: %w", err)
		}
		var p domain.Puzzle
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal puzzle: %w", err)
		}
		puzzles = append(puzzles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load puzzles: %w", err)
	}
	return puzzles, nil
}
