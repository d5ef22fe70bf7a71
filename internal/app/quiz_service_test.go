package app_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"puzzler-quiz-service/internal/app"
	"puzzler-quiz-service/internal/domain"
	"puzzler-quiz-service/internal/infra/memory"
)

func testPuzzles() []domain.Puzzle {
	return []domain.Puzzle{
		{
			ID:          "p1",
			Category:    "basics",
			Prompt:      "What does this print?",
			Choices:     []string{"A", "B"},
			Correct:     []int{0},
			Explanation: "A wins",
		},
		{
			ID:       "p2",
			Category: "basics",
			Prompt:   "And this?",
			Choices:  []string{"yes", "no"},
			Correct:  []int{1},
		},
		{
			ID:          "p3",
			Category:    "concurrency",
			Prompt:      "Pick all data races",
			Choices:     []string{"r1", "r2", "r3"},
			Correct:     []int{0, 2},
			MultiSelect: true,
		},
	}
}

func newTestService(rnd *rand.Rand) *app.QuizService {
	store := memory.NewSessionStore()
	catalogs := memory.NewCatalogCache(memory.NewStaticPuzzleSource(testPuzzles()), 5*time.Minute)
	return app.NewQuizService(store, catalogs, 30*time.Minute, rnd)
}

func TestFullSessionFlow(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)

	session, err := service.StartSession(ctx, []string{"p1", "p2"}, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	view, err := service.CurrentPuzzle(ctx, session.ID())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if view.ID != "p1" || len(view.Choices) != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}

	result, err := service.SubmitAnswer(ctx, session.ID(), "p1", []int{0})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Verdict != domain.VerdictCorrect || result.Explanation != "A wins" {
		t.Fatalf("expected correct with explanation, got %+v", result)
	}
	if result.NextPuzzle != "p2" || result.Completed {
		t.Fatalf("expected p2 next, got %+v", result)
	}

	result, err = service.Skip(ctx, session.ID())
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if result.Verdict != domain.VerdictSkipped || !result.Completed {
		t.Fatalf("expected skip to complete session, got %+v", result)
	}

	summary, err := service.Summary(ctx, session.ID())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.State != domain.SessionCompleted || summary.TotalAnswered != 2 || summary.TotalCorrect != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestStartSessionRejectsUnknownPuzzle(t *testing.T) {
	service := newTestService(nil)

	if _, err := service.StartSession(context.Background(), []string{"p1", "ghost"}, false); err != domain.ErrPuzzleNotFound {
		t.Fatalf("expected puzzle not found, got %v", err)
	}
}

func TestSubmitToUnknownSession(t *testing.T) {
	service := newTestService(nil)

	if _, err := service.SubmitAnswer(context.Background(), "ghost", "p1", []int{0}); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestShuffleUsesSuppliedSource(t *testing.T) {
	ctx := context.Background()
	ids := []string{"p1", "p2", "p3"}

	a, err := newTestService(rand.New(rand.NewSource(42))).StartSession(ctx, ids, true)
	if err != nil {
		t.Fatalf("start a: %v", err)
	}
	b, err := newTestService(rand.New(rand.NewSource(42))).StartSession(ctx, ids, true)
	if err != nil {
		t.Fatalf("start b: %v", err)
	}

	orderA, orderB := a.PuzzleOrder(), b.PuzzleOrder()
	for i := range orderA {
		if orderA[i] != orderB[i] {
			t.Fatalf("same seed produced different orders: %v vs %v", orderA, orderB)
		}
	}

	seen := map[string]bool{}
	for _, id := range orderA {
		seen[id] = true
	}
	if len(seen) != 3 {
		t.Fatalf("shuffle is not a permutation: %v", orderA)
	}
}

func TestListPuzzleIDsByCategory(t *testing.T) {
	service := newTestService(nil)

	ids, err := service.ListPuzzleIDs(context.Background(), "basics")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 || ids[0] != "p1" || ids[1] != "p2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestSweepExpiredOnlyIdleSessions(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := start
	clock := func() time.Time { return current }

	store := memory.NewSessionStore()
	catalogs := memory.NewCatalogCache(memory.NewStaticPuzzleSource(testPuzzles()), 5*time.Minute)
	service := app.NewQuizService(store, catalogs, 10*time.Minute, nil).WithClock(clock)

	idle, err := service.StartSession(ctx, []string{"p1"}, false)
	if err != nil {
		t.Fatalf("start idle: %v", err)
	}
	busy, err := service.StartSession(ctx, []string{"p1", "p2"}, false)
	if err != nil {
		t.Fatalf("start busy: %v", err)
	}

	// The busy session answers just before the sweep; the idle one does not.
	current = start.Add(9 * time.Minute)
	if _, err := service.SubmitAnswer(ctx, busy.ID(), "p1", []int{0}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	expired := service.SweepExpired(start.Add(15 * time.Minute))
	if expired != 1 {
		t.Fatalf("expected 1 expiry, got %d", expired)
	}
	if idle.State() != domain.SessionExpired {
		t.Fatalf("expected idle session expired, got %s", idle.State())
	}
	if busy.State() != domain.SessionActive {
		t.Fatalf("expected busy session active, got %s", busy.State())
	}

	// Idempotent: nothing left to expire at the same instant.
	if again := service.SweepExpired(start.Add(15 * time.Minute)); again != 0 {
		t.Fatalf("re-sweep expired %d sessions", again)
	}

	// Terminal sessions still answer summary queries.
	summary, err := service.Summary(ctx, idle.ID())
	if err != nil || summary.State != domain.SessionExpired {
		t.Fatalf("summary on expired session: %+v err=%v", summary, err)
	}

	// And reject mutation.
	if _, err := service.SubmitAnswer(ctx, idle.ID(), "p1", []int{0}); err != domain.ErrSessionClosed {
		t.Fatalf("expected session closed, got %v", err)
	}
}

func TestConcurrentSessionsDoNotInterfere(t *testing.T) {
	ctx := context.Background()
	service := newTestService(nil)

	const workers = 16
	sessions := make([]*app.Session, workers)
	for i := range sessions {
		session, err := service.StartSession(ctx, []string{"p1", "p2", "p3"}, false)
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		sessions[i] = session
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i, session := range sessions {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			// Even sessions answer everything correctly; odd ones skip p2.
			if _, err := service.SubmitAnswer(ctx, id, "p1", []int{0}); err != nil {
				errs <- err
				return
			}
			if i%2 == 0 {
				if _, err := service.SubmitAnswer(ctx, id, "p2", []int{1}); err != nil {
					errs <- err
					return
				}
			} else {
				if _, err := service.Skip(ctx, id); err != nil {
					errs <- err
					return
				}
			}
			if _, err := service.SubmitAnswer(ctx, id, "p3", []int{0, 2}); err != nil {
				errs <- err
			}
		}(i, session.ID())
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent flow: %v", err)
	}

	for i, session := range sessions {
		summary, err := service.Summary(ctx, session.ID())
		if err != nil {
			t.Fatalf("summary %d: %v", i, err)
		}
		wantCorrect := 3
		if i%2 == 1 {
			wantCorrect = 2
		}
		if summary.TotalAnswered != 3 || summary.TotalCorrect != wantCorrect {
			t.Fatalf("session %d contaminated: %+v", i, summary)
		}
	}
}
