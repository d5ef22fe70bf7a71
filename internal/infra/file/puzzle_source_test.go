package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPuzzlesFromPack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puzzles.yaml")
	pack := `puzzles:
  - id: smart-cast
    category: concurrency
    prompt: |
      var obj: Any = "Kotlin"
      if (obj is String) { ... println(obj.length) }
    choices: ["prints 6", "throws ClassCastException", "prints 42", "will not compile"]
    correct: [3]
    explanation: the smart cast is rejected because obj escapes to another thread
  - id: operator-overload
    category: operators
    prompt: which declarations are valid operator functions?
    choices: ["plus", "minus", "times"]
    correct: [0, 2]
    multiSelect: true
`
	if err := os.WriteFile(path, []byte(pack), 0o600); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	puzzles, err := NewPuzzleSource(path).LoadPuzzles(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(puzzles) != 2 {
		t.Fatalf("expected 2 puzzles, got %d", len(puzzles))
	}
	if puzzles[0].ID != "smart-cast" || puzzles[0].Correct[0] != 3 {
		t.Fatalf("unexpected first puzzle: %+v", puzzles[0])
	}
	if !puzzles[1].MultiSelect || len(puzzles[1].Correct) != 2 {
		t.Fatalf("multi-select fields lost: %+v", puzzles[1])
	}
}

func TestLoadPuzzlesMissingFile(t *testing.T) {
	_, err := NewPuzzleSource(filepath.Join(t.TempDir(), "nope.yaml")).LoadPuzzles(context.Background())
	if err == nil {
		t.Fatalf("expected error for missing pack")
	}
}
