package controller

import (
	"context"
	"fmt"

	"lingualink/internal/protocol"
	"lingualink/internal/router"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

// exerciseTypeOf maps the per-type fetch opcodes to the exercise type
// they serve.
var exerciseTypeOf = map[protocol.Opcode]string{
	protocol.MultipleChoiceRequest:  types.ExerciseMultipleChoice,
	protocol.FillInRequest:          types.ExerciseFillIn,
	protocol.SentenceOrderRequest:   types.ExerciseSentenceOrder,
	protocol.RewriteSentenceRequest: types.ExerciseRewriteSentence,
	protocol.WriteParagraphRequest:  types.ExerciseWriteParagraph,
	protocol.SpeakingTopicRequest:   types.ExerciseSpeakingTopic,
}

type Exercises struct {
	base
	exercises interfaces.ExerciseRepository
}

func NewExercises(d Deps) *Exercises {
	return &Exercises{base: newBase(d, "exercises"), exercises: d.Repos.Exercises}
}

func (e *Exercises) Routes() Routes {
	routes := Routes{
		protocol.ExerciseListRequest:  e.List,
		protocol.StudyExerciseRequest: e.Fetch,
	}
	for op := range exerciseTypeOf {
		routes[op] = e.Fetch
	}
	return routes
}

func (e *Exercises) List(ctx context.Context, req *router.Request) error {
	var q protocol.ContentListQuery
	q.Decode(req.Payload())
	if _, ok := e.session(req, q.Token); !ok {
		return req.Fail(reasonInvalidSession)
	}
	if q.Type != "" && !types.IsExerciseType(q.Type) {
		return req.Fail("Invalid exercise type: " + q.Type)
	}

	list, err := e.exercises.List(ctx, types.ContentFilter{Type: q.Type, Level: q.Level, LessonID: q.LessonID})
	if err != nil {
		return fmt.Errorf("list exercises: %w", err)
	}
	out := make([]protocol.ContentSummary, len(list))
	for i, ex := range list {
		out[i] = protocol.ContentSummary{ID: ex.ID, LessonID: ex.LessonID, Title: ex.Title, Type: ex.Type, Level: ex.Level}
	}
	return req.Succeed(protocol.EncodeList(out))
}

// Fetch serves STUDY_EXERCISE for any type and the per-type requests,
// which only match exercises of their own type.
func (e *Exercises) Fetch(ctx context.Context, req *router.Request) error {
	var q protocol.ItemQuery
	q.Decode(req.Payload())
	if _, ok := e.session(req, q.Token); !ok {
		return req.Fail(reasonInvalidSession)
	}

	ex, err := e.exercises.Get(ctx, q.ID)
	if isNotFound(err) {
		return req.Fail("Exercise not found")
	}
	if err != nil {
		return fmt.Errorf("get exercise %d: %w", q.ID, err)
	}
	if want, typed := exerciseTypeOf[req.Opcode()]; typed && ex.Type != want {
		return req.Fail(fmt.Sprintf("Exercise %d is not a %s exercise", ex.ID, want))
	}
	return req.Succeed(detail(ex.ID, ex.LessonID, ex.Title, ex.Type, ex.Level, ex.Questions).Encode())
}

type Exams struct {
	base
	exams   interfaces.ExamRepository
	results interfaces.ResultRepository
}

func NewExams(d Deps) *Exams {
	return &Exams{base: newBase(d, "exams"), exams: d.Repos.Exams, results: d.Repos.Results}
}

func (e *Exams) Routes() Routes {
	return Routes{
		protocol.ExamListRequest:   e.List,
		protocol.ExamRequest:       e.Take,
		protocol.ExamReviewRequest: e.Review,
	}
}

func (e *Exams) List(ctx context.Context, req *router.Request) error {
	var q protocol.ContentListQuery
	q.Decode(req.Payload())
	if _, ok := e.session(req, q.Token); !ok {
		return req.Fail(reasonInvalidSession)
	}

	list, err := e.exams.List(ctx, types.ContentFilter{Type: q.Type, Level: q.Level, LessonID: q.LessonID})
	if err != nil {
		return fmt.Errorf("list exams: %w", err)
	}
	out := make([]protocol.ContentSummary, len(list))
	for i, ex := range list {
		out[i] = protocol.ContentSummary{ID: ex.ID, LessonID: ex.LessonID, Title: ex.Title, Type: ex.Type, Level: ex.Level}
	}
	return req.Succeed(protocol.EncodeList(out))
}

// Take serves an exam to a learner once. Any stored result for the exam
// answers EXAM_ALREADY_TAKEN.
func (e *Exams) Take(ctx context.Context, req *router.Request) error {
	var q protocol.ItemQuery
	q.Decode(req.Payload())
	s, ok := e.session(req, q.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}

	exam, err := e.exams.Get(ctx, q.ID)
	if isNotFound(err) {
		return req.Fail("Exam not found")
	}
	if err != nil {
		return fmt.Errorf("get exam %d: %w", q.ID, err)
	}

	taken, err := e.results.HasResult(ctx, s.UserID, types.TargetExam, exam.ID)
	if err != nil {
		return fmt.Errorf("check exam %d result: %w", exam.ID, err)
	}
	if taken {
		return req.Reply(protocol.ExamAlreadyTaken, "You have already taken this exam")
	}
	return req.Succeed(detail(exam.ID, exam.LessonID, exam.Title, exam.Type, exam.Level, exam.Questions).Encode())
}

// Review serves an exam to staff without the one-attempt gate.
func (e *Exams) Review(ctx context.Context, req *router.Request) error {
	var q protocol.ItemQuery
	q.Decode(req.Payload())
	if _, ok := e.session(req, q.Token); !ok {
		return req.Fail(reasonInvalidSession)
	}

	exam, err := e.exams.Get(ctx, q.ID)
	if isNotFound(err) {
		return req.Fail("Exam not found")
	}
	if err != nil {
		return fmt.Errorf("get exam %d: %w", q.ID, err)
	}
	return req.Succeed(detail(exam.ID, exam.LessonID, exam.Title, exam.Type, exam.Level, exam.Questions).Encode())
}

// detail renders questions without their answer keys.
func detail(id, lessonID int64, title, kind, level string, questions []types.Question) protocol.ContentDetail {
	views := make([]protocol.QuestionView, len(questions))
	for i, q := range questions {
		views[i] = protocol.QuestionView{
			Index:   i + 1,
			Type:    types.QuestionType(q, kind),
			Text:    q.Text,
			Options: q.Options,
		}
	}
	return protocol.ContentDetail{ID: id, LessonID: lessonID, Title: title, Type: kind, Level: level, Questions: views}
}
