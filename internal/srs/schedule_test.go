package srs

import (
	"testing"
	"time"
)

func TestSchedule_PolicyTable(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		grade     Grade
		wantNext  time.Time
		wantDelta int
	}{
		{"easy is +4 days +30", GradeEasy, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 30},
		{"medium is +1 day +15", GradeMedium, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 15},
		{"hard is +1 hour +5", GradeHard, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, delta := Schedule(tc.grade, now)
			if !next.Equal(tc.wantNext) {
				t.Errorf("Expected next review %v, got %v", tc.wantNext, next)
			}
			if delta != tc.wantDelta {
				t.Errorf("Expected delta %d, got %d", tc.wantDelta, delta)
			}
		})
	}
}

func TestSchedule_NextReviewAlwaysInFuture(t *testing.T) {
	times := []time.Time{
		time.Unix(0, 0),
		time.Now(),
		time.Date(2100, 6, 15, 23, 59, 59, 0, time.UTC),
	}

	for _, now := range times {
		for _, g := range []Grade{GradeHard, GradeMedium, GradeEasy} {
			next, delta := Schedule(g, now)
			if !next.After(now) {
				t.Errorf("Schedule(%s, %v): next review %v is not after now", g, now, next)
			}
			if delta <= 0 {
				t.Errorf("Schedule(%s, %v): delta %d is not positive", g, now, delta)
			}
		}
	}
}

func TestSchedule_DeltaOrderedByGrade(t *testing.T) {
	now := time.Now()
	_, hard := Schedule(GradeHard, now)
	_, medium := Schedule(GradeMedium, now)
	_, easy := Schedule(GradeEasy, now)

	if !(hard < medium && medium < easy) {
		t.Errorf("Expected hard < medium < easy, got %d, %d, %d", hard, medium, easy)
	}
}

func TestParseGrade(t *testing.T) {
	tests := []struct {
		input   string
		want    Grade
		wantErr bool
	}{
		{"easy", GradeEasy, false},
		{"medium", GradeMedium, false},
		{"hard", GradeHard, false},
		{"Easy", "", true},
		{"again", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		t.Run("input "+tc.input, func(t *testing.T) {
			got, err := ParseGrade(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got grade %q", tc.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error for %q: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}
