package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"puzzler-quiz-service/internal/catalog"
	"puzzler-quiz-service/internal/domain"
)

// SessionRepository abstracts how sessions are stored (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	All() []*Session
}

// CatalogRepository serves the current puzzle catalog (from cache/backing store).
type CatalogRepository interface {
	Catalog(ctx context.Context) (*catalog.Catalog, error)
}

// SubmitResult is the outcome of answering or skipping one puzzle.
type SubmitResult struct {
	PuzzleID    string         `json:"puzzleId"`
	Verdict     domain.Verdict `json:"verdict"`
	Explanation string         `json:"explanation,omitempty"`
	NextPuzzle  string         `json:"nextPuzzle,omitempty"`
	Completed   bool           `json:"completed"`
}

// QuizService contains the core quiz-engine use cases.
type QuizService struct {
	sessions          SessionRepository
	catalogs          CatalogRepository
	inactivityTimeout time.Duration
	now               func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewQuizService wires the engine. The rand source is supplied by the caller
// so shuffled orders are reproducible in tests; nil falls back to a
// time-seeded source.
func NewQuizService(store SessionRepository, catalogs CatalogRepository, inactivityTimeout time.Duration, rnd *rand.Rand) *QuizService {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &QuizService{
		sessions:          store,
		catalogs:          catalogs,
		inactivityTimeout: inactivityTimeout,
		now:               time.Now,
		rnd:               rnd,
	}
}

// WithClock overrides the service clock for deterministic timestamps in tests.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// ListPuzzleIDs returns catalog ids, optionally narrowed to a category.
func (s *QuizService) ListPuzzleIDs(ctx context.Context, category string) ([]string, error) {
	cat, err := s.catalogs.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.ListIDs(category), nil
}

// StartSession registers a new session over the given puzzle order. Every id
// must exist in the catalog. With shuffle set, the order is a random
// permutation of the given ids.
func (s *QuizService) StartSession(ctx context.Context, puzzleIDs []string, shuffle bool) (*Session, error) {
	cat, err := s.catalogs.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	order := make([]string, len(puzzleIDs))
	copy(order, puzzleIDs)
	for _, id := range order {
		if _, err := cat.Lookup(id); err != nil {
			return nil, err
		}
	}
	if shuffle {
		s.rndMu.Lock()
		s.rnd.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		s.rndMu.Unlock()
	}

	session := newSessionWithClock(uuid.NewString(), order, s.now)
	s.sessions.Put(session)
	return session, nil
}

// GetSession looks a session up by its token.
func (s *QuizService) GetSession(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// CurrentPuzzle returns the client view of the session's next puzzle.
func (s *QuizService) CurrentPuzzle(ctx context.Context, sessionID string) (domain.PuzzleView, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return domain.PuzzleView{}, err
	}
	puzzleID, err := session.CurrentPuzzleID()
	if err != nil {
		return domain.PuzzleView{}, err
	}
	cat, err := s.catalogs.Catalog(ctx)
	if err != nil {
		return domain.PuzzleView{}, err
	}
	p, err := cat.Lookup(puzzleID)
	if err != nil {
		return domain.PuzzleView{}, err
	}
	return p.View(), nil
}

// SubmitAnswer grades the submission against the session's current puzzle.
// The explanation is revealed only here, after grading.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID, puzzleID string, indices []int) (SubmitResult, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return SubmitResult{}, err
	}
	cat, err := s.catalogs.Catalog(ctx)
	if err != nil {
		return SubmitResult{}, err
	}
	p, err := cat.Lookup(puzzleID)
	if err != nil {
		return SubmitResult{}, err
	}

	verdict, err := session.Submit(p, indices)
	if err != nil {
		return SubmitResult{}, err
	}
	result := SubmitResult{
		PuzzleID:    puzzleID,
		Verdict:     verdict,
		Explanation: p.Explanation,
	}
	s.fillNext(session, &result)
	return result, nil
}

// Skip records a Skipped verdict for the session's current puzzle.
func (s *QuizService) Skip(_ context.Context, sessionID string) (SubmitResult, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return SubmitResult{}, err
	}
	skipped, verdict, err := session.Skip()
	if err != nil {
		return SubmitResult{}, err
	}
	result := SubmitResult{PuzzleID: skipped, Verdict: verdict}
	s.fillNext(session, &result)
	return result, nil
}

func (s *QuizService) fillNext(session *Session, result *SubmitResult) {
	next, err := session.CurrentPuzzleID()
	if err != nil {
		result.Completed = true
		return
	}
	result.NextPuzzle = next
}

// Summary recomputes the session's scoreboard. Valid for terminal sessions too.
func (s *QuizService) Summary(ctx context.Context, sessionID string) (domain.Summary, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return domain.Summary{}, err
	}
	cat, err := s.catalogs.Catalog(ctx)
	if err != nil {
		return domain.Summary{}, err
	}
	return session.Summary(cat), nil
}

// Expire forces a session into the Expired state.
func (s *QuizService) Expire(sessionID string) error {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}
	return session.Expire()
}

// SweepExpired expires every active session idle past the inactivity
// timeout. Each session is locked individually while scanning, so the sweep
// never stalls submits on unrelated sessions. Re-sweeping is a no-op.
func (s *QuizService) SweepExpired(now time.Time) int {
	expired := 0
	for _, session := range s.sessions.All() {
		if session.ExpireIfIdle(now, s.inactivityTimeout) {
			expired++
		}
	}
	return expired
}
