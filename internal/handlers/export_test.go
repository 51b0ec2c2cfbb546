package handlers

import (
	"bytes"
	"encoding/csv"
	"testing"

	"flashmind-backend/internal/models"
)

func TestAnkiCSV_Layout(t *testing.T) {
	cards := []models.Flashcard{
		{Question: "What is Go?", Answer: "A programming language"},
		{Question: "Capital of France?", Answer: "Paris"},
	}

	got := string(ankiCSV(cards))
	want := "\"What is Go?\",\"A programming language\"\n\"Capital of France?\",\"Paris\"\n"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestAnkiCSV_RoundTrip(t *testing.T) {
	cards := []models.Flashcard{
		{Question: `He said "hello"`, Answer: `She replied "hi"`},
		{Question: "Plain question", Answer: "Plain answer"},
		{Question: `"""`, Answer: `a"b`},
		{Question: "Comma, inside", Answer: "Newline stays out"},
	}

	records, err := csv.NewReader(bytes.NewReader(ankiCSV(cards))).ReadAll()
	if err != nil {
		t.Fatalf("Exported CSV does not parse: %v", err)
	}

	if len(records) != len(cards) {
		t.Fatalf("Expected %d rows, got %d", len(cards), len(records))
	}

	for i, rec := range records {
		if len(rec) != 2 {
			t.Fatalf("Row %d: expected 2 columns, got %d", i, len(rec))
		}
		if rec[0] != cards[i].Question || rec[1] != cards[i].Answer {
			t.Errorf("Row %d: expected (%q, %q), got (%q, %q)",
				i, cards[i].Question, cards[i].Answer, rec[0], rec[1])
		}
	}
}

func TestAnkiCSV_Empty(t *testing.T) {
	if got := ankiCSV(nil); len(got) != 0 {
		t.Errorf("Expected empty export for no cards, got %q", got)
	}
}
