package app

import (
	"sync"
	"time"

	"puzzler-quiz-service/internal/catalog"
	"puzzler-quiz-service/internal/domain"
)

// Session is one user's ordered attempt through a set of puzzles. All
// mutable fields are guarded by the session's own mutex so unrelated
// sessions never serialize on each other.
type Session struct {
	id          string
	puzzleOrder []string
	createdAt   time.Time
	now         func() time.Time

	mu           sync.Mutex
	cursor       int
	answers      map[string][]int
	answerOrder  []string
	verdicts     map[string]domain.Verdict
	state        domain.SessionState
	lastActivity time.Time
}

// NewSession is exported for stores that need to seed sessions.
func NewSession(id string, puzzleOrder []string) *Session {
	return newSessionWithClock(id, puzzleOrder, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id string, puzzleOrder []string, now func() time.Time) *Session {
	return newSessionWithClock(id, puzzleOrder, now)
}

func newSessionWithClock(id string, puzzleOrder []string, now func() time.Time) *Session {
	order := make([]string, len(puzzleOrder))
	copy(order, puzzleOrder)

	s := &Session{
		id:           id,
		puzzleOrder:  order,
		createdAt:    now(),
		now:          now,
		answers:      make(map[string][]int),
		verdicts:     make(map[string]domain.Verdict),
		state:        domain.SessionActive,
		lastActivity: now(),
	}
	// An empty order has nothing to answer; the session is born complete.
	if len(order) == 0 {
		s.state = domain.SessionCompleted
	}
	return s
}

// ID returns the session token.
func (s *Session) ID() string { return s.id }

// PuzzleOrder returns a copy of the ordered puzzle ids for this attempt.
func (s *Session) PuzzleOrder() []string {
	order := make([]string, len(s.puzzleOrder))
	copy(order, s.puzzleOrder)
	return order
}

// State reports the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cursor reports how many puzzles have been answered or skipped.
func (s *Session) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// LastActivity reports the timestamp of the last mutating operation.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// RecordedAnswer pairs a puzzle with its submitted choice set.
type RecordedAnswer struct {
	PuzzleID string
	Choices  []int
}

// Answers returns submitted answers in the order they were given. Skipped
// puzzles have a verdict but no answer, so they do not appear here.
func (s *Session) Answers() []RecordedAnswer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RecordedAnswer, 0, len(s.answerOrder))
	for _, id := range s.answerOrder {
		choices := make([]int, len(s.answers[id]))
		copy(choices, s.answers[id])
		out = append(out, RecordedAnswer{PuzzleID: id, Choices: choices})
	}
	return out
}

// CurrentPuzzleID returns the id the session expects an answer for next.
func (s *Session) CurrentPuzzleID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() (string, error) {
	if s.state != domain.SessionActive || s.cursor >= len(s.puzzleOrder) {
		return "", domain.ErrSessionComplete
	}
	return s.puzzleOrder[s.cursor], nil
}

// Submit grades an answer for the session's current puzzle and advances the
// cursor. The operation is all-or-nothing: on any error nothing is recorded
// and the cursor does not move.
func (s *Session) Submit(p domain.Puzzle, indices []int) (domain.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.SessionActive {
		return "", domain.ErrSessionClosed
	}
	current := s.puzzleOrder[s.cursor]
	if p.ID != current {
		return "", domain.ErrOutOfOrder
	}
	if err := checkIndices(p, indices); err != nil {
		return "", err
	}

	verdict := Grade(p, indices)
	s.answers[current] = dedupeSorted(indices)
	s.answerOrder = append(s.answerOrder, current)
	s.recordLocked(current, verdict)
	return verdict, nil
}

// Skip records a Skipped verdict for the current puzzle and advances. It
// returns the id of the puzzle that was skipped.
func (s *Session) Skip() (string, domain.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.SessionActive {
		return "", "", domain.ErrSessionClosed
	}
	current := s.puzzleOrder[s.cursor]
	s.recordLocked(current, domain.VerdictSkipped)
	return current, domain.VerdictSkipped, nil
}

func (s *Session) recordLocked(puzzleID string, verdict domain.Verdict) {
	s.verdicts[puzzleID] = verdict
	s.cursor++
	s.lastActivity = s.now()
	if s.cursor == len(s.puzzleOrder) {
		s.state = domain.SessionCompleted
	}
}

// Expire forces the session into the Expired state. Terminal sessions stay
// terminal; redundant calls report ErrAlreadyTerminal.
func (s *Session) Expire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.SessionActive {
		return domain.ErrAlreadyTerminal
	}
	s.state = domain.SessionExpired
	return nil
}

// ExpireIfIdle expires the session when it has been inactive longer than
// timeout. It reports whether the state changed, so sweeps stay idempotent.
func (s *Session) ExpireIfIdle(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.SessionActive {
		return false
	}
	if now.Sub(s.lastActivity) <= timeout {
		return false
	}
	s.state = domain.SessionExpired
	return true
}

// Summary recomputes the scoreboard from recorded verdicts. It stays valid
// after the session turns terminal and is idempotent on an unchanged session.
func (s *Session) Summary(cat *catalog.Catalog) domain.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := domain.Summary{
		SessionID:   s.id,
		State:       s.state,
		PerCategory: make(map[string]domain.CategoryCount),
		UpdatedAt:   s.lastActivity,
	}
	for _, id := range s.puzzleOrder {
		verdict, ok := s.verdicts[id]
		if !ok {
			continue
		}
		category := ""
		if p, err := cat.Lookup(id); err == nil {
			category = p.Category
		}
		counts := summary.PerCategory[category]
		counts.Answered++
		summary.TotalAnswered++
		if verdict == domain.VerdictCorrect {
			counts.Correct++
			summary.TotalCorrect++
		}
		summary.PerCategory[category] = counts
	}
	return summary
}
