package domain

import "time"

// Verdict is the grading outcome for one submitted answer.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	VerdictSkipped   Verdict = "skipped"
)

// SessionState tracks a session's lifecycle. Transitions are forward-only:
// Active -> Completed or Active -> Expired, never back.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionCompleted SessionState = "completed"
	SessionExpired   SessionState = "expired"
)

// Puzzle is a single multiple-choice question about a code snippet.
// The prompt is opaque text; the engine never executes it.
type Puzzle struct {
	ID          string   `json:"id" yaml:"id"`
	Category    string   `json:"category" yaml:"category"`
	Prompt      string   `json:"prompt" yaml:"prompt"`
	Choices     []string `json:"choices" yaml:"choices"`
	Correct     []int    `json:"correct" yaml:"correct"`
	MultiSelect bool     `json:"multiSelect" yaml:"multiSelect"`
	Explanation string   `json:"explanation" yaml:"explanation"`
}

// PuzzleView is the client-facing projection of a puzzle: no answer key,
// no explanation.
type PuzzleView struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Prompt   string   `json:"prompt"`
	Choices  []string `json:"choices"`
}

// View strips everything a client must not see before grading.
func (p Puzzle) View() PuzzleView {
	return PuzzleView{
		ID:       p.ID,
		Category: p.Category,
		Prompt:   p.Prompt,
		Choices:  p.Choices,
	}
}

// CategoryCount is the per-category slice of a summary.
type CategoryCount struct {
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
}

// Summary is a score report derived from a session's recorded verdicts.
// It is recomputed on demand and never stored as a source of truth.
type Summary struct {
	SessionID     string                   `json:"sessionId"`
	State         SessionState             `json:"state"`
	TotalAnswered int                      `json:"totalAnswered"`
	TotalCorrect  int                      `json:"totalCorrect"`
	PerCategory   map[string]CategoryCount `json:"perCategory"`
	UpdatedAt     time.Time                `json:"updatedAt"`
}
