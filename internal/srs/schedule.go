package srs

import (
	"fmt"
	"time"
)

// Grade is the difficulty feedback a user gives after flipping a card.
type Grade string

const (
	GradeHard   Grade = "hard"
	GradeMedium Grade = "medium"
	GradeEasy   Grade = "easy"
)

// ParseGrade validates user input at the boundary so Schedule never sees an
// out-of-domain value.
func ParseGrade(s string) (Grade, error) {
	switch Grade(s) {
	case GradeHard, GradeMedium, GradeEasy:
		return Grade(s), nil
	}
	return "", fmt.Errorf("unknown grade %q", s)
}

// Schedule maps a review grade to the next review time and a mastery delta.
// Mastery is cumulative (callers increment, never overwrite); the next review
// is always computed relative to now, never to the prior due date.
func Schedule(grade Grade, now time.Time) (nextReviewAt time.Time, masteryDelta int) {
	switch grade {
	case GradeEasy:
		return now.Add(4 * 24 * time.Hour), 30
	case GradeMedium:
		return now.Add(24 * time.Hour), 15
	default: // GradeHard
		return now.Add(time.Hour), 5
	}
}
