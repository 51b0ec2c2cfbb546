package handlers

import (
	"strings"

	"flashmind-backend/internal/models"
)

// ankiCSV renders cards in the exact layout Anki imports: two always-quoted
// columns, embedded double quotes doubled, no header, one row per card in
// display order.
func ankiCSV(cards []models.Flashcard) []byte {
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(`"`)
		b.WriteString(strings.ReplaceAll(c.Question, `"`, `""`))
		b.WriteString(`","`)
		b.WriteString(strings.ReplaceAll(c.Answer, `"`, `""`))
		b.WriteString("\"\n")
	}
	return []byte(b.String())
}
