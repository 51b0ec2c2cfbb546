package models

type AnswerRequest struct {
	Answer string `json:"answer"`
}

// QuizView is the client-facing snapshot of an in-memory quiz session.
type QuizView struct {
	Question     string   `json:"question,omitempty"`
	Options      []string `json:"options,omitempty"`
	OptionsState string   `json:"options_state"` // "loading" | "ready" | "failed"
	Index        int      `json:"index"`
	Total        int      `json:"total"`
	Score        int      `json:"score"`
	Finished     bool     `json:"finished"`
}
