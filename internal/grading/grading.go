// Package grading scores objective answers and renders the per-question
// breakdown shown in result details.
package grading

import (
	"fmt"
	"math"
	"strings"

	"lingualink/internal/protocol"
	"lingualink/pkg/types"
)

// MaxScore is the score of a fully correct submission.
const MaxScore = 10.0

// Per-question statuses shown in result details.
const (
	QuestionCorrect   = "correct"
	QuestionIncorrect = "incorrect"
	QuestionPending   = "pending"
	QuestionReviewed  = "reviewed"
)

// PendingFeedback is returned for submissions that wait for a teacher.
const PendingFeedback = "Submission received. Awaiting teacher review."

// Outcome is the grading verdict for one submission.
type Outcome struct {
	Status   string
	Score    float64
	Feedback string
	Correct  int
	Total    int
	Details  string
}

// Normalize collapses runs of whitespace and trims both ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Equal compares two answers case-sensitively after whitespace
// normalization.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// SplitAnswers separates a multi-question answer string.
func SplitAnswers(raw string) protocol.Fields {
	return protocol.Split(raw, protocol.QuestionSep)
}

func Feedback(k, n int) string {
	return fmt.Sprintf("You got %d out of %d correct.", k, n)
}

// Score is (correct / total) x 10 rounded to two decimals.
func Score(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(MaxScore*float64(correct)/float64(total)*100) / 100
}

// AutoGradable reports whether every question can be scored by comparison.
func AutoGradable(questions []types.Question, fallback string) bool {
	if len(questions) == 0 {
		return false
	}
	for _, q := range questions {
		if !types.IsAutoGraded(types.QuestionType(q, fallback)) {
			return false
		}
	}
	return true
}

// Grade scores rawAnswer against questions. Targets with any free-form
// question stay pending with a zero score.
func Grade(questions []types.Question, fallback, rawAnswer string) Outcome {
	if !AutoGradable(questions, fallback) {
		return Outcome{Status: types.StatusPending, Feedback: PendingFeedback, Total: len(questions)}
	}

	answers := SplitAnswers(rawAnswer)
	per := MaxScore / float64(len(questions))
	entries := make([]DetailEntry, len(questions))
	correct := 0
	for i, q := range questions {
		if Equal(answers.Get(i), q.Answer) {
			correct++
			entries[i] = DetailEntry{Score: protocol.FormatScore(per), Comment: QuestionCorrect}
		} else {
			entries[i] = DetailEntry{Score: "0", Comment: QuestionIncorrect}
		}
	}
	return Outcome{
		Status:   types.StatusGraded,
		Score:    Score(correct, len(questions)),
		Feedback: Feedback(correct, len(questions)),
		Correct:  correct,
		Total:    len(questions),
		Details:  FormatDetails(entries),
	}
}
