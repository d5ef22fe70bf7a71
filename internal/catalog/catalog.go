package catalog

import (
	"sort"

	"puzzler-quiz-service/internal/domain"
)

// Catalog is an immutable index of puzzles. It is built once by Load and
// never mutated; lookups are safe from any number of goroutines.
type Catalog struct {
	puzzles map[string]domain.Puzzle
	order   []string
}

// Load validates every record and builds a catalog. A single bad record
// fails the whole load; callers never see a partially built catalog.
func Load(defs []domain.Puzzle) (*Catalog, error) {
	puzzles := make(map[string]domain.Puzzle, len(defs))
	order := make([]string, 0, len(defs))

	for _, p := range defs {
		if err := validate(p); err != nil {
			return nil, err
		}
		if _, dup := puzzles[p.ID]; dup {
			return nil, &domain.ValidationError{PuzzleID: p.ID, Reason: "duplicate puzzle id"}
		}
		p.Correct = normalizeKey(p.Correct)
		puzzles[p.ID] = p
		order = append(order, p.ID)
	}
	return &Catalog{puzzles: puzzles, order: order}, nil
}

// Lookup returns the puzzle for id.
func (c *Catalog) Lookup(id string) (domain.Puzzle, error) {
	p, ok := c.puzzles[id]
	if !ok {
		return domain.Puzzle{}, domain.ErrPuzzleNotFound
	}
	return p, nil
}

// ListIDs returns puzzle ids in insertion order. A non-empty category
// narrows the result to puzzles in that category, order preserved.
func (c *Catalog) ListIDs(category string) []string {
	ids := make([]string, 0, len(c.order))
	for _, id := range c.order {
		if category != "" && c.puzzles[id].Category != category {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Len reports the number of puzzles in the catalog.
func (c *Catalog) Len() int {
	return len(c.order)
}

func validate(p domain.Puzzle) error {
	fail := func(reason string) error {
		return &domain.ValidationError{PuzzleID: p.ID, Reason: reason}
	}

	if p.ID == "" {
		return fail("missing id")
	}
	if len(p.Choices) < 2 {
		return fail("needs at least two choices")
	}
	seen := make(map[string]struct{}, len(p.Choices))
	for _, label := range p.Choices {
		if _, dup := seen[label]; dup {
			return fail("duplicate choice label " + label)
		}
		seen[label] = struct{}{}
	}
	if len(p.Correct) == 0 {
		return fail("empty answer key")
	}
	indexSeen := make(map[int]struct{}, len(p.Correct))
	for _, i := range p.Correct {
		if i < 0 || i >= len(p.Choices) {
			return fail("answer key index out of range")
		}
		if _, dup := indexSeen[i]; dup {
			return fail("duplicate answer key index")
		}
		indexSeen[i] = struct{}{}
	}
	if !p.MultiSelect && len(p.Correct) != 1 {
		return fail("single-select puzzle must have exactly one correct choice")
	}
	return nil
}

// normalizeKey returns a sorted copy so grading can compare keys positionally.
func normalizeKey(indices []int) []int {
	key := make([]int, len(indices))
	copy(key, indices)
	sort.Ints(key)
	return key
}
