package grading

import (
	"strings"

	"lingualink/internal/protocol"
	"lingualink/pkg/types"
)

// DetailEntry is the per-question score and comment stored in a result's
// grading_details column as "score,comment|score,comment".
type DetailEntry struct {
	Score   string
	Comment string
}

func FormatDetails(entries []DetailEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = strings.TrimSpace(e.Score) + protocol.SubItemSep +
			protocol.Scrub(e.Comment, protocol.FieldSep, protocol.ItemSep, protocol.SubItemSep)
	}
	return strings.Join(parts, protocol.ItemSep)
}

// ParseDetails is the inverse of FormatDetails. Comments may not contain
// commas; anything after the first comma is kept as the comment.
func ParseDetails(s string) []DetailEntry {
	var entries []DetailEntry
	for _, raw := range protocol.Split(s, protocol.ItemSep) {
		f := protocol.SplitN(raw, protocol.SubItemSep, 2)
		entries = append(entries, DetailEntry{Score: strings.TrimSpace(f.Get(0)), Comment: f.Get(1)})
	}
	return entries
}

// Breakdown composes the per-question outcomes of a result. Objective
// questions are re-checked against the stored answer; free-form questions
// show the teacher's entry once one exists.
func Breakdown(questions []types.Question, fallback string, r types.Result) []protocol.QuestionOutcome {
	answers := SplitAnswers(r.UserAnswer)
	details := ParseDetails(r.GradingDetails)
	out := make([]protocol.QuestionOutcome, len(questions))
	for i, q := range questions {
		o := protocol.QuestionOutcome{Question: q.Text, UserAnswer: answers.Get(i)}
		var entry *DetailEntry
		if i < len(details) {
			entry = &details[i]
		}

		if types.IsAutoGraded(types.QuestionType(q, fallback)) {
			o.Correct = q.Answer
			if Equal(o.UserAnswer, q.Answer) {
				o.Status, o.Score = QuestionCorrect, protocol.FormatScore(MaxScore/float64(len(questions)))
			} else {
				o.Status, o.Score = QuestionIncorrect, "0"
			}
			if entry != nil && entry.Score != "" {
				o.Score = entry.Score
			}
		} else {
			o.Status = QuestionPending
			if entry != nil && entry.Score != "" {
				o.Status, o.Score = QuestionReviewed, entry.Score
			}
		}
		if entry != nil && entry.Comment != QuestionCorrect && entry.Comment != QuestionIncorrect {
			o.Comment = entry.Comment
		}
		out[i] = o
	}
	return out
}
