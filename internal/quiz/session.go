package quiz

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"flashmind-backend/internal/models"
)

// DistractorFetcher produces exactly three incorrect options for a card.
// Satisfied by services.GeminiService.
type DistractorFetcher interface {
	GenerateDistractors(ctx context.Context, question, answer string) ([]string, error)
}

const (
	OptionsLoading = "loading"
	OptionsReady   = "ready"
	OptionsFailed  = "failed"
)

var (
	ErrNoCards          = errors.New("quiz requires at least one flashcard")
	ErrAlreadyRunning   = errors.New("quiz session already in progress")
	ErrNotRunning       = errors.New("no quiz session in progress")
	ErrOptionsNotReady  = errors.New("answer options are not ready")
	ErrOptionsNotFailed = errors.New("answer options have not failed")
)

// Session is a single user's in-memory quiz over a fixed snapshot of cards.
// It never touches the store: external card mutations do not affect a running
// session. All methods are safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	fetcher DistractorFetcher
	timeout time.Duration

	cards    []models.Flashcard
	idx      int
	score    int
	started  bool
	finished bool

	optionsState string
	options      []string

	// gen is bumped on every prepare and on cancel. An async distractor
	// fetch carries the gen it was issued under and its result is dropped
	// if the session has moved on (stale-response rule).
	gen uint64
}

func NewSession(fetcher DistractorFetcher, cards []models.Flashcard, timeout time.Duration) *Session {
	snapshot := make([]models.Flashcard, len(cards))
	copy(snapshot, cards)
	return &Session{
		fetcher: fetcher,
		timeout: timeout,
		cards:   snapshot,
	}
}

// Start begins the quiz, or restarts it after a finish.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cards) == 0 {
		return ErrNoCards
	}
	if s.started && !s.finished {
		return ErrAlreadyRunning
	}

	s.started = true
	s.finished = false
	s.idx = 0
	s.score = 0
	s.prepareLocked()
	return nil
}

// Answer submits the selected option for the current question. Exactly
// len(cards) accepted answers move the session from start to finished.
func (s *Session) Answer(selected string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.finished {
		return ErrNotRunning
	}
	if s.optionsState != OptionsReady {
		return ErrOptionsNotReady
	}

	if selected == s.cards[s.idx].Answer {
		s.score++
	}
	s.advanceLocked()
	return nil
}

// Retry refetches options for the current question after a failed fetch.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.finished {
		return ErrNotRunning
	}
	if s.optionsState != OptionsFailed {
		return ErrOptionsNotFailed
	}
	s.prepareLocked()
	return nil
}

// Skip moves past a question whose options could not be fetched. The skipped
// question scores nothing.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.finished {
		return ErrNotRunning
	}
	if s.optionsState != OptionsFailed {
		return ErrOptionsNotFailed
	}
	s.advanceLocked()
	return nil
}

// Cancel tears the session down from any state. In-flight fetches are not
// aborted; their results are discarded when they land.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.started = false
	s.finished = false
	s.options = nil
	s.optionsState = ""
}

// View returns the client-facing snapshot of the session.
func (s *Session) View() models.QuizView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := models.QuizView{
		OptionsState: s.optionsState,
		Index:        s.idx,
		Total:        len(s.cards),
		Score:        s.score,
		Finished:     s.finished,
	}
	if s.started && !s.finished {
		v.Question = s.cards[s.idx].Question
		v.Options = append([]string(nil), s.options...)
	}
	return v
}

func (s *Session) advanceLocked() {
	if s.idx+1 < len(s.cards) {
		s.idx++
		s.prepareLocked()
		return
	}
	s.finished = true
	s.options = nil
	s.optionsState = ""
}

// prepareLocked kicks off the async distractor fetch for the current card.
// Caller holds s.mu.
func (s *Session) prepareLocked() {
	s.gen++
	gen := s.gen
	card := s.cards[s.idx]

	s.options = nil
	s.optionsState = OptionsLoading

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		distractors, err := s.fetcher.GenerateDistractors(ctx, card.Question, card.Answer)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen != gen {
			return // superseded by an answer, retry, or cancel
		}
		if err != nil {
			s.optionsState = OptionsFailed
			return
		}

		options := append(append([]string(nil), distractors...), card.Answer)
		rand.Shuffle(len(options), func(i, j int) {
			options[i], options[j] = options[j], options[i]
		})
		s.options = options
		s.optionsState = OptionsReady
	}()
}
