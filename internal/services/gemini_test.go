package services

import (
	"strings"
	"testing"
)

func TestParseFlashcardResponse_ValidFiveCards(t *testing.T) {
	raw := "```json\n" + `[
		{"question": "q1", "answer": "a1"},
		{"question": "q2", "answer": "a2"},
		{"question": "q3", "answer": "a3"},
		{"question": "q4", "answer": "a4"},
		{"question": "q5", "answer": "a5"}
	]` + "\n```"

	pairs, err := parseFlashcardResponse(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(pairs) != 5 {
		t.Fatalf("Expected 5 pairs, got %d", len(pairs))
	}
	if pairs[0].Question != "q1" || pairs[4].Answer != "a5" {
		t.Errorf("Pairs parsed out of order: %+v", pairs)
	}
}

func TestParseFlashcardResponse_ArraySalvageFromPreamble(t *testing.T) {
	raw := `Here are your flashcards: [{"question":"q1","answer":"a1"},{"question":"q2","answer":"a2"},{"question":"q3","answer":"a3"},{"question":"q4","answer":"a4"},{"question":"q5","answer":"a5"}] Enjoy!`

	pairs, err := parseFlashcardResponse(raw)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(pairs) != 5 {
		t.Errorf("Expected 5 pairs, got %d", len(pairs))
	}
}

func TestParseFlashcardResponse_RejectsPartialResults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"too few cards", `[{"question":"q1","answer":"a1"}]`},
		{"too many cards", `[{"question":"q","answer":"a"},{"question":"q","answer":"a"},{"question":"q","answer":"a"},{"question":"q","answer":"a"},{"question":"q","answer":"a"},{"question":"q","answer":"a"}]`},
		{"empty answer", `[{"question":"q1","answer":""},{"question":"q2","answer":"a2"},{"question":"q3","answer":"a3"},{"question":"q4","answer":"a4"},{"question":"q5","answer":"a5"}]`},
		{"not json", "I could not generate flashcards for this content."},
		{"empty response", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseFlashcardResponse(tc.raw); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestParseDistractorResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{"exactly three", `["a", "b", "c"]`, 3, false},
		{"fenced", "```json\n[\"a\", \"b\", \"c\"]\n```", 3, false},
		{"two is failure", `["a", "b"]`, 0, true},
		{"four is failure", `["a", "b", "c", "d"]`, 0, true},
		{"blank option is failure", `["a", " ", "c"]`, 0, true},
		{"garbage is failure", "sorry, no", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseDistractorResponse(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != tc.want {
				t.Errorf("Expected %d distractors, got %d", tc.want, len(got))
			}
		})
	}
}

func TestBuildFlashcardPrompt(t *testing.T) {
	prompt := buildFlashcardPrompt("The mitochondria is the powerhouse of the cell.", false)

	if !strings.Contains(prompt, "exactly 5 flashcards") {
		t.Error("Prompt does not pin the card count")
	}
	if !strings.Contains(prompt, "mitochondria") {
		t.Error("Prompt does not include the source text")
	}
	if strings.Contains(prompt, "image of handwritten") {
		t.Error("Text-only prompt should not mention an attached image")
	}

	withImage := buildFlashcardPrompt("", true)
	if !strings.Contains(withImage, "image of handwritten") {
		t.Error("Image prompt should direct the model to the attachment")
	}
}

func TestBuildDistractorPrompt(t *testing.T) {
	prompt := buildDistractorPrompt("What is the capital of France?", "Paris")

	if !strings.Contains(prompt, "exactly 3 distractors") {
		t.Error("Prompt does not pin the distractor count")
	}
	if !strings.Contains(prompt, "QUESTION: What is the capital of France?") {
		t.Error("Prompt missing the question")
	}
	if !strings.Contains(prompt, "CORRECT ANSWER: Paris") {
		t.Error("Prompt missing the correct answer")
	}
}
