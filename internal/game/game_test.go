package game

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingualink/internal/logger"
	"lingualink/pkg/types"
)

const words = `[{"word": "cat", "meaning": "a small pet"}, {"word": "sun", "meaning": "a star"},
	{"word": "book", "meaning": "you read it"}, {"word": "bill", "meaning": "what you pay"},
	{"word": "menu", "meaning": "list of dishes"}]`

func TestScore_WordMatch(t *testing.T) {
	answers := `{"answers": [
		{"word": "cat", "meaning": "a small pet"},
		{"word": "sun", "meaning": "a  star "},
		{"word": "book", "meaning": "you read it"},
		{"word": "bill", "meaning": "list of dishes"},
		{"word": "menu", "meaning": "what you pay"}]}`

	res, err := Score(types.GameWordMatch, words, answers)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Correct)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 30.0, res.Score)
	assert.Contains(t, res.Message(), "3 out of 5")
}

func TestScore_ItemsCountOnce(t *testing.T) {
	answers := `[{"word": "cat", "meaning": "a small pet"}, {"word": "cat", "meaning": "a small pet"}]`
	res, err := Score(types.GameWordMatch, words, answers)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Correct)
}

func TestScore_SentenceMatch(t *testing.T) {
	qs := `[{"correct_sentence": "I would like the soup", "words": ["soup", "I"]},
		{"correct_sentence": "We are going to Kyoto", "words": []}]`
	res, err := Score(types.GameSentenceMatch, qs, `[{"sentence": "We are going  to Kyoto"}, {"sentence": "I like soup"}]`)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 10.0, res.Score)
}

func TestScore_ImageMatch(t *testing.T) {
	qs := `[{"word": "apple", "image_url": "apple.png"}, {"word": "dog", "image_url": "dog.png"}]`
	res, err := Score(types.GameImageMatch, qs,
		`{"answers": [{"word": "apple", "image": "apple"}, {"word": "dog", "image": "apple"}]}`)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Correct)
}

func TestScore_Errors(t *testing.T) {
	_, err := Score("crossword", words, "[]")
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Score(types.GameWordMatch, "{", "[]")
	assert.ErrorIs(t, err, ErrInvalidQuestions)

	_, err = Score(types.GameWordMatch, words, "not json")
	assert.ErrorIs(t, err, ErrInvalidAnswers)
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "Match each word with its meaning", Description(types.GameWordMatch))
	assert.Equal(t, "memory cards", Description("memory_cards"))
}

func TestInliner_Prepare(t *testing.T) {
	dir := t.TempDir()
	png := []byte{0x89, 'P', 'N', 'G'}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "apple.png"), png, 0o600))

	in := NewInliner(dir, logger.Nop())
	g := &types.GameItem{
		ID:           4,
		Type:         types.GameImageMatch,
		QuestionJSON: `[{"word": "apple", "image_url": "images/apple.png"}, {"word": "dog", "image_url": "dog.png"}]`,
	}

	out, err := in.Prepare(g)
	require.NoError(t, err)
	assert.Contains(t, out, `"image_url":"data:image/png;base64,`+base64.StdEncoding.EncodeToString(png)+`"`)
	assert.Contains(t, out, `"image_url":"dog.png"`)
	assert.Equal(t, 1, strings.Count(out, "data:image/png"))

	word := &types.GameItem{Type: types.GameWordMatch, QuestionJSON: words}
	same, err := in.Prepare(word)
	require.NoError(t, err)
	assert.Equal(t, words, same)

	_, err = in.Prepare(&types.GameItem{Type: types.GameImageMatch, QuestionJSON: "nope"})
	assert.ErrorIs(t, err, ErrInvalidQuestions)
}
