package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingualink/internal/protocol"
)

func TestLessonList(t *testing.T) {
	h := newHarness(t)
	c, token := h.login("alice", "secret")

	reply := h.do(c, protocol.LessonListRequest, join(token))
	require.Equal(t, protocol.LessonListSuccess, reply.Opcode)
	f := protocol.Split(string(reply.Payload), protocol.FieldSep)
	assert.Equal(t, 3, f.Int(0))

	reply = h.do(c, protocol.LessonListRequest, join(token, "food", ""))
	require.Equal(t, protocol.LessonListSuccess, reply.Opcode)
	f = protocol.Split(string(reply.Payload), protocol.FieldSep)
	require.Equal(t, 1, f.Int(0))
	var l protocol.LessonSummary
	l.Decode(f.Get(1))
	assert.Equal(t, "At the Restaurant", l.Title)
	assert.Equal(t, "A2", l.Level)
}

func TestStudyLesson(t *testing.T) {
	h := newHarness(t)
	c, token := h.login("alice", "secret")

	reply := h.do(c, protocol.StudyLessonRequest, join(token, "1", "vocabulary"))
	require.Equal(t, protocol.StudyLessonSuccess, reply.Opcode)
	var p protocol.LessonProjection
	p.Decode(string(reply.Payload))
	assert.Equal(t, "Greetings", p.Title)
	assert.Equal(t, "vocabulary", p.Kind)
	assert.Len(t, protocol.Split(p.Content, protocol.ItemSep), 3)

	reply = h.do(c, protocol.StudyLessonRequest, join(token, "3"))
	require.Equal(t, protocol.StudyLessonSuccess, reply.Opcode)
	var full protocol.LessonFull
	full.Decode(string(reply.Payload))
	assert.Equal(t, "Travel Plans", full.Title)
	assert.Equal(t, "videos/travel.mp4", full.VideoURL)
	assert.Len(t, full.Grammar, 2)

	reply = h.do(c, protocol.StudyLessonRequest, join(token, "1", "smell"))
	assert.Equal(t, protocol.StudyLessonFailure, reply.Opcode)

	reply = h.do(c, protocol.StudyLessonRequest, join(token, "99", "text"))
	assert.Equal(t, protocol.StudyLessonFailure, reply.Opcode)
	assert.Equal(t, "Lesson not found", string(reply.Payload))
}

func TestExerciseFetch(t *testing.T) {
	h := newHarness(t)
	c, token := h.login("alice", "secret")

	reply := h.do(c, protocol.ExerciseListRequest, join(token, "fill_in"))
	require.Equal(t, protocol.ExerciseListSuccess, reply.Opcode)
	assert.Equal(t, 1, protocol.Split(string(reply.Payload), protocol.FieldSep).Int(0))

	reply = h.do(c, protocol.ExerciseListRequest, join(token, "crossword"))
	assert.Equal(t, protocol.ExerciseListFailure, reply.Opcode)

	reply = h.do(c, protocol.FillInRequest, join(token, "2"))
	require.Equal(t, protocol.FillInSuccess, reply.Opcode)
	var d protocol.ContentDetail
	d.Decode(string(reply.Payload))
	assert.Equal(t, "Complete the sentence", d.Title)
	require.Len(t, d.Questions, 2)
	assert.Equal(t, 1, d.Questions[0].Index)
	assert.Equal(t, "I ___ a student.", d.Questions[0].Text)
	assert.NotContains(t, string(reply.Payload), "am|")

	reply = h.do(c, protocol.MultipleChoiceRequest, join(token, "2"))
	assert.Equal(t, protocol.MultipleChoiceFailure, reply.Opcode)
	assert.Equal(t, "Exercise 2 is not a multiple_choice exercise", string(reply.Payload))

	reply = h.do(c, protocol.StudyExerciseRequest, join(token, "1"))
	require.Equal(t, protocol.StudyExerciseSuccess, reply.Opcode)
	d.Decode(string(reply.Payload))
	assert.Equal(t, []string{"hello", "table", "run"}, d.Questions[0].Options)

	reply = h.do(c, protocol.StudyExerciseRequest, join(token, "42"))
	assert.Equal(t, "Exercise not found", string(reply.Payload))
}

func TestExamTakenOnce(t *testing.T) {
	h := newHarness(t)
	c, token := h.login("alice", "secret")

	reply := h.do(c, protocol.ExamRequest, join(token, "1"))
	require.Equal(t, protocol.ExamSuccess, reply.Opcode)

	reply = h.do(c, protocol.SubmitAnswerRequest, join(token, "exam", "1", "greeting^meet"))
	require.Equal(t, protocol.SubmitAnswerSuccess, reply.Opcode)
	assert.Equal(t, "graded;10;You got 2 out of 2 correct.", string(reply.Payload))

	reply = h.do(c, protocol.ExamRequest, join(token, "1"))
	assert.Equal(t, protocol.ExamAlreadyTaken, reply.Opcode)
	assert.Equal(t, "You have already taken this exam", string(reply.Payload))

	reply = h.do(c, protocol.ExamReviewRequest, join(token, "1"))
	assert.Equal(t, protocol.ExamFailure, reply.Opcode)
	assert.Equal(t, "Unauthorized", string(reply.Payload))

	teacher, ttoken := h.login("teacher", "teacher123")
	reply = h.do(teacher, protocol.ExamReviewRequest, join(ttoken, "1"))
	assert.Equal(t, protocol.ExamSuccess, reply.Opcode)
}

func TestExamList(t *testing.T) {
	h := newHarness(t)
	c, token := h.login("alice", "secret")

	reply := h.do(c, protocol.ExamListRequest, join(token))
	require.Equal(t, protocol.ExamListSuccess, reply.Opcode)
	f := protocol.Split(string(reply.Payload), protocol.FieldSep)
	require.Equal(t, 2, f.Int(0))
	var s protocol.ContentSummary
	s.Decode(f.Get(2))
	assert.Equal(t, "Travel midterm", s.Title)
	assert.Equal(t, "mixed", s.Type)
}
