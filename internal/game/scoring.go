// Package game scores mini-game submissions and prepares game data for
// clients.
package game

import (
	"encoding/json"
	"fmt"
	"strings"

	"lingualink/internal/grading"
	"lingualink/pkg/types"
)

// PointsPerItem is awarded for every correctly matched question item.
const PointsPerItem = 10

var descriptions = map[string]string{
	types.GameSentenceMatch: "Put the words in order to build the sentence",
	types.GameWordMatch:     "Match each word with its meaning",
	types.GameImageMatch:    "Match each picture with its word",
}

// Description is the GAME_LIST blurb of a game type.
func Description(gameType string) string {
	if d, ok := descriptions[gameType]; ok {
		return d
	}
	return strings.ReplaceAll(gameType, "_", " ")
}

type item struct {
	CorrectSentence string `json:"correct_sentence"`
	Word            string `json:"word"`
	Meaning         string `json:"meaning"`
}

// Answer is one entry of a submission. Fields unused by a game type are
// ignored.
type Answer struct {
	Sentence string `json:"sentence"`
	Word     string `json:"word"`
	Meaning  string `json:"meaning"`
	Image    string `json:"image"`
}

// Result is the server-side verdict for one submission.
type Result struct {
	Correct int
	Total   int
	Score   float64
}

func (r Result) Message() string {
	return fmt.Sprintf("You got %d out of %d correct.", r.Correct, r.Total)
}

// ParseAnswers accepts {"answers": [...]} or a bare array.
func ParseAnswers(raw string) ([]Answer, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var answers []Answer
		if err := json.Unmarshal([]byte(raw), &answers); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAnswers, err)
		}
		return answers, nil
	}
	var wrapped struct {
		Answers []Answer `json:"answers"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnswers, err)
	}
	return wrapped.Answers, nil
}

// Score checks answers against the question set of a game. Each question
// item counts at most once however many answers match it.
func Score(gameType, questionJSON, answersJSON string) (Result, error) {
	if !types.IsGameType(gameType) {
		return Result{}, ErrUnknownType
	}
	var items []item
	if err := json.Unmarshal([]byte(questionJSON), &items); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidQuestions, err)
	}
	answers, err := ParseAnswers(answersJSON)
	if err != nil {
		return Result{}, err
	}

	used := make([]bool, len(items))
	correct := 0
	for _, a := range answers {
		i := match(gameType, items, used, a)
		if i < 0 {
			continue
		}
		used[i] = true
		correct++
	}
	return Result{Correct: correct, Total: len(items), Score: float64(correct * PointsPerItem)}, nil
}

// match returns the index of the unused item a answers correctly, or -1.
func match(gameType string, items []item, used []bool, a Answer) int {
	for i, it := range items {
		if used[i] {
			continue
		}
		switch gameType {
		case types.GameSentenceMatch:
			if it.CorrectSentence != "" && grading.Equal(a.Sentence, it.CorrectSentence) {
				return i
			}
		case types.GameWordMatch:
			if grading.Equal(a.Word, it.Word) && grading.Equal(a.Meaning, it.Meaning) {
				return i
			}
		case types.GameImageMatch:
			if grading.Equal(a.Word, it.Word) && grading.Equal(a.Image, it.Word) {
				return i
			}
		}
	}
	return -1
}
