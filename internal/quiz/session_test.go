package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"flashmind-backend/internal/models"
)

type stubFetcher struct {
	mu          sync.Mutex
	distractors []string
	err         error
	gate        chan struct{} // when non-nil, each call blocks until released
	calls       int
}

func (f *stubFetcher) GenerateDistractors(ctx context.Context, question, answer string) ([]string, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	distractors := f.distractors
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return distractors, nil
}

func (f *stubFetcher) set(distractors []string, err error) {
	f.mu.Lock()
	f.distractors = distractors
	f.err = err
	f.mu.Unlock()
}

func testCards(n int) []models.Flashcard {
	cards := make([]models.Flashcard, n)
	for i := range cards {
		cards[i] = models.Flashcard{
			ID:       uuid.New(),
			Question: fmt.Sprintf("question %d", i),
			Answer:   fmt.Sprintf("answer %d", i),
		}
	}
	return cards
}

func waitForOptions(t *testing.T, s *Session, state string) models.QuizView {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		v := s.View()
		if v.OptionsState == state {
			return v
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for options state %q (current: %q)", state, s.View().OptionsState)
	return models.QuizView{}
}

func TestSession_StartWithNoCards(t *testing.T) {
	s := NewSession(&stubFetcher{}, nil, time.Second)
	if err := s.Start(); !errors.Is(err, ErrNoCards) {
		t.Fatalf("Expected ErrNoCards, got %v", err)
	}
}

func TestSession_StartWhileRunning(t *testing.T) {
	f := &stubFetcher{distractors: []string{"a", "b", "c"}}
	s := NewSession(f, testCards(2), time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("Expected ErrAlreadyRunning, got %v", err)
	}
}

func TestSession_OptionSetHasFourMembersWithAnswer(t *testing.T) {
	cards := testCards(1)
	f := &stubFetcher{distractors: []string{"wrong 1", "wrong 2", "wrong 3"}}
	s := NewSession(f, cards, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	v := waitForOptions(t, s, OptionsReady)
	if len(v.Options) != 4 {
		t.Fatalf("Expected 4 options, got %d: %v", len(v.Options), v.Options)
	}

	found := false
	for _, opt := range v.Options {
		if opt == cards[0].Answer {
			found = true
		}
	}
	if !found {
		t.Errorf("Correct answer %q missing from options %v", cards[0].Answer, v.Options)
	}
}

func TestSession_ThreeCardsTwoCorrectOneWrong(t *testing.T) {
	cards := testCards(3)
	f := &stubFetcher{distractors: []string{"w1", "w2", "w3"}}
	s := NewSession(f, cards, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	answers := []string{cards[0].Answer, "w1", cards[2].Answer}
	for i, a := range answers {
		waitForOptions(t, s, OptionsReady)

		v := s.View()
		if v.Index != i {
			t.Fatalf("Expected index %d before answer, got %d", i, v.Index)
		}
		if err := s.Answer(a); err != nil {
			t.Fatalf("Answer %d failed: %v", i, err)
		}
	}

	v := s.View()
	if !v.Finished {
		t.Fatal("Expected session to be finished after 3 answers")
	}
	if v.Score != 2 {
		t.Errorf("Expected score 2, got %d", v.Score)
	}
}

func TestSession_SingleCardFinishesOnFirstAnswer(t *testing.T) {
	cards := testCards(1)
	f := &stubFetcher{distractors: []string{"w1", "w2", "w3"}}
	s := NewSession(f, cards, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitForOptions(t, s, OptionsReady)
	if err := s.Answer("wrong"); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	v := s.View()
	if !v.Finished || v.Score != 0 {
		t.Errorf("Expected finished with score 0, got finished=%v score=%d", v.Finished, v.Score)
	}
}

func TestSession_AnswerRejectedWhileLoading(t *testing.T) {
	f := &stubFetcher{distractors: []string{"w1", "w2", "w3"}, gate: make(chan struct{})}
	s := NewSession(f, testCards(1), time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := s.Answer("anything"); !errors.Is(err, ErrOptionsNotReady) {
		t.Fatalf("Expected ErrOptionsNotReady while loading, got %v", err)
	}

	close(f.gate)
}

func TestSession_FetchFailureOffersRetry(t *testing.T) {
	f := &stubFetcher{err: errors.New("gateway down")}
	cards := testCards(1)
	s := NewSession(f, cards, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitForOptions(t, s, OptionsFailed)

	if err := s.Answer("anything"); !errors.Is(err, ErrOptionsNotReady) {
		t.Fatalf("Expected ErrOptionsNotReady on failed options, got %v", err)
	}

	f.set([]string{"w1", "w2", "w3"}, nil)
	if err := s.Retry(); err != nil {
		t.Fatalf("Retry failed: %v", err)
	}

	v := waitForOptions(t, s, OptionsReady)
	if len(v.Options) != 4 {
		t.Errorf("Expected 4 options after retry, got %d", len(v.Options))
	}
}

func TestSession_SkipAdvancesWithoutScoring(t *testing.T) {
	f := &stubFetcher{err: errors.New("gateway down")}
	cards := testCards(2)
	s := NewSession(f, cards, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitForOptions(t, s, OptionsFailed)
	if err := s.Skip(); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}

	v := s.View()
	if v.Index != 1 || v.Score != 0 {
		t.Errorf("Expected index 1 score 0 after skip, got index=%d score=%d", v.Index, v.Score)
	}

	// Skipping the last question ends the session.
	waitForOptions(t, s, OptionsFailed)
	if err := s.Skip(); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	if !s.View().Finished {
		t.Error("Expected session to finish after skipping last question")
	}
}

func TestSession_SkipRequiresFailedOptions(t *testing.T) {
	f := &stubFetcher{distractors: []string{"w1", "w2", "w3"}}
	s := NewSession(f, testCards(2), time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitForOptions(t, s, OptionsReady)
	if err := s.Skip(); !errors.Is(err, ErrOptionsNotFailed) {
		t.Fatalf("Expected ErrOptionsNotFailed, got %v", err)
	}
}

func TestSession_StaleFetchDiscardedAfterCancel(t *testing.T) {
	f := &stubFetcher{distractors: []string{"w1", "w2", "w3"}, gate: make(chan struct{})}
	s := NewSession(f, testCards(1), time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	s.Cancel()
	close(f.gate) // let the in-flight fetch land now

	time.Sleep(50 * time.Millisecond)
	v := s.View()
	if v.OptionsState != "" || len(v.Options) != 0 {
		t.Errorf("Stale fetch mutated cancelled session: state=%q options=%v", v.OptionsState, v.Options)
	}
}

func TestSession_RestartAfterFinish(t *testing.T) {
	cards := testCards(1)
	f := &stubFetcher{distractors: []string{"w1", "w2", "w3"}}
	s := NewSession(f, cards, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitForOptions(t, s, OptionsReady)
	if err := s.Answer(cards[0].Answer); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if v := s.View(); !v.Finished || v.Score != 1 {
		t.Fatalf("Expected finished with score 1, got %+v", v)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	v := s.View()
	if v.Finished || v.Index != 0 || v.Score != 0 {
		t.Errorf("Restart did not reset session: %+v", v)
	}
}

func TestSession_IndexAdvancesByOnePerAnswer(t *testing.T) {
	const n = 5
	cards := testCards(n)
	f := &stubFetcher{distractors: []string{"w1", "w2", "w3"}}
	s := NewSession(f, cards, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for k := 1; k <= n; k++ {
		waitForOptions(t, s, OptionsReady)
		if err := s.Answer(cards[s.View().Index].Answer); err != nil {
			t.Fatalf("Answer %d failed: %v", k, err)
		}

		v := s.View()
		wantIdx := k
		if wantIdx > n-1 {
			wantIdx = n - 1
		}
		if v.Index != wantIdx {
			t.Errorf("After %d answers expected index %d, got %d", k, wantIdx, v.Index)
		}
		if v.Score != k {
			t.Errorf("After %d correct answers expected score %d, got %d", k, k, v.Score)
		}
	}

	if !s.View().Finished {
		t.Errorf("Expected session finished after %d answers", n)
	}
}

func TestManager_StartReplacesExistingSession(t *testing.T) {
	f := &stubFetcher{distractors: []string{"w1", "w2", "w3"}}
	m := NewManager(f, time.Second)
	userID := uuid.New()

	first, err := m.Start(userID, testCards(2))
	if err != nil {
		t.Fatalf("First start failed: %v", err)
	}

	second, err := m.Start(userID, testCards(3))
	if err != nil {
		t.Fatalf("Second start failed: %v", err)
	}
	if first == second {
		t.Fatal("Expected a fresh session on restart")
	}

	got, ok := m.Get(userID)
	if !ok || got != second {
		t.Error("Manager did not track the replacement session")
	}

	m.Cancel(userID)
	if _, ok := m.Get(userID); ok {
		t.Error("Expected session to be gone after cancel")
	}
}
