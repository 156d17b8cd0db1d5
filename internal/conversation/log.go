// Package conversation holds the in-process chat memory: an append-only,
// mutex-guarded log of question/answer turns with stats, clear, and export.
//
// The log is process-local by design. It is injected into its consumers
// explicitly; nothing in the package touches globals.
package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Kind distinguishes model answers from recorded pipeline failures.
type Kind string

const (
	// KindAnswer is a normal model answer.
	KindAnswer Kind = "answer"

	// KindError marks a turn whose answer is a failure message, so errors
	// are never stored indistinguishably from real answers.
	KindError Kind = "error"
)

// Turn is one question/answer exchange. Turns are immutable once appended.
type Turn struct {
	Timestamp time.Time `json:"timestamp"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Sources   []string  `json:"sources,omitempty"`
	Kind      Kind      `json:"kind"`
}

// Stats summarizes the log. All fields are zero on an empty log.
type Stats struct {
	TotalTurns        int     `json:"total_questions"`
	TotalChars        int     `json:"total_chars"`
	AvgQuestionLength float64 `json:"avg_question_length"`
	AvgAnswerLength   float64 `json:"avg_answer_length"`
}

// ClearedMessage is the confirmation returned after clearing the log.
const ClearedMessage = "Η μνήμη της συνομιλίας διαγράφηκε."

// Log is an append-only conversation log safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	turns []Turn
}

// NewLog creates an empty conversation log.
func NewLog() *Log {
	return &Log{}
}

// Append records a turn. A zero timestamp is filled with the current time.
func (l *Log) Append(t Turn) {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	if t.Kind == "" {
		t.Kind = KindAnswer
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, t)
}

// History returns an ordered copy of all turns, oldest first.
func (l *Log) History() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Recent returns up to n most recent turns, oldest first.
func (l *Log) Recent(n int) []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || len(l.turns) == 0 {
		return nil
	}
	if n > len(l.turns) {
		n = len(l.turns)
	}
	out := make([]Turn, n)
	copy(out, l.turns[len(l.turns)-n:])
	return out
}

// Clear empties the log and returns a Greek confirmation message.
// Safe to call on an already empty log.
func (l *Log) Clear() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = nil
	return ClearedMessage
}

// Stats computes aggregate statistics. Lengths are in runes so Greek text
// counts characters, not bytes. An empty log yields zero values, no error.
func (l *Log) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{TotalTurns: len(l.turns)}
	if s.TotalTurns == 0 {
		return s
	}

	var questionChars, answerChars int
	for _, t := range l.turns {
		questionChars += utf8.RuneCountInString(t.Question)
		answerChars += utf8.RuneCountInString(t.Answer)
	}
	s.TotalChars = questionChars + answerChars
	s.AvgQuestionLength = float64(questionChars) / float64(s.TotalTurns)
	s.AvgAnswerLength = float64(answerChars) / float64(s.TotalTurns)
	return s
}

// Summary returns a Greek digest of the conversation, truncating each
// question and answer to 50 runes.
func (l *Log) Summary() string {
	turns := l.History()
	if len(turns) == 0 {
		return "Δεν υπάρχει ιστορικό συνομιλίας."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Συνομιλία με %d ερωτήσεις:\n", len(turns))
	for i, t := range turns {
		fmt.Fprintf(&b, "%d. Ερώτηση: %s...\n", i+1, truncateRunes(t.Question, 50))
		fmt.Fprintf(&b, "   Απάντηση: %s...\n", truncateRunes(t.Answer, 50))
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
