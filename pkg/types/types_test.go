package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCredentials(t *testing.T) {
	assert.NoError(t, ValidateCredentials("alice", "pass1234"))
	assert.NoError(t, ValidateCredentials("bob", "1234"))
	assert.ErrorIs(t, ValidateCredentials("al", "pass1234"), ErrUsernameTooShort)
	assert.ErrorIs(t, ValidateCredentials("alice", "abc"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidateCredentials("ali;ce", "pass1234"), ErrUsernameInvalid)
	assert.ErrorIs(t, ValidateCredentials("ali ce", "pass1234"), ErrUsernameInvalid)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Teacher ")
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, r)

	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("guest").Valid())
}

func TestKindPredicates(t *testing.T) {
	for _, k := range []string{ExerciseMultipleChoice, ExerciseFillIn, ExerciseSentenceOrder} {
		assert.True(t, IsAutoGraded(k), k)
		assert.True(t, IsExerciseType(k), k)
	}
	for _, k := range []string{ExerciseRewriteSentence, ExerciseWriteParagraph, ExerciseSpeakingTopic} {
		assert.False(t, IsAutoGraded(k), k)
		assert.True(t, IsExerciseType(k), k)
	}
	assert.False(t, IsExerciseType("essay"))

	assert.True(t, IsGameType(GameWordMatch))
	assert.False(t, IsGameType("chess"))
	assert.Equal(t, "word_match_game", GameTarget(GameWordMatch))

	assert.True(t, IsLessonKind(LessonFull))
	assert.False(t, IsLessonKind("podcast"))
	assert.True(t, IsChatKind(ChatAudio))
	assert.False(t, IsChatKind(ChatSystem))
}

func TestGameItemValidate(t *testing.T) {
	g := &GameItem{Type: GameWordMatch, QuestionJSON: `[{"word":"cat","meaning":"a pet"}]`}
	assert.NoError(t, g.Validate())

	g.Type = "chess"
	assert.ErrorIs(t, g.Validate(), ErrUnknownGameType)

	g.Type = GameWordMatch
	g.QuestionJSON = `{"word":"cat"}`
	assert.ErrorIs(t, g.Validate(), ErrInvalidGameJSON)
}

func TestQuestionType(t *testing.T) {
	assert.Equal(t, ExerciseFillIn, QuestionType(Question{}, ExerciseFillIn))
	assert.Equal(t, ExerciseSpeakingTopic, QuestionType(Question{Type: ExerciseSpeakingTopic}, ExerciseFillIn))
}
