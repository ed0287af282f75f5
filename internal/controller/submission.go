package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lingualink/internal/grading"
	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/router"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

// Submission grades and stores answers to exercises and exams.
type Submission struct {
	base
	exercises interfaces.ExerciseRepository
	exams     interfaces.ExamRepository
	results   interfaces.ResultRepository
}

func NewSubmission(d Deps) *Submission {
	return &Submission{
		base:      newBase(d, "submission"),
		exercises: d.Repos.Exercises,
		exams:     d.Repos.Exams,
		results:   d.Repos.Results,
	}
}

func (s *Submission) Routes() Routes {
	return Routes{protocol.SubmitAnswerRequest: s.Submit}
}

// Submit inserts a new result row for every submission; earlier rows for
// the same target stay as attempt history.
func (s *Submission) Submit(ctx context.Context, req *router.Request) error {
	var a protocol.SubmitAnswer
	a.Decode(req.Payload())
	sess, ok := s.session(req, a.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}
	if strings.TrimSpace(a.Answer) == "" {
		return req.Fail("Answer is required")
	}

	questions, kind, err := s.target(ctx, a.TargetType, a.TargetID)
	switch {
	case errors.Is(err, errUnknownTarget):
		return req.Fail("Invalid target type: " + a.TargetType)
	case isNotFound(err):
		return req.Fail(fmt.Sprintf("%s %d not found", a.TargetType, a.TargetID))
	case err != nil:
		return err
	}

	outcome := grading.Grade(questions, kind, a.Answer)
	now := s.now().UTC()
	result := &types.Result{
		UserID:         sess.UserID,
		TargetType:     a.TargetType,
		TargetID:       a.TargetID,
		Score:          outcome.Score,
		UserAnswer:     a.Answer,
		GradingDetails: outcome.Details,
		Status:         outcome.Status,
		SubmittedAt:    now,
	}
	if outcome.Status == types.StatusGraded {
		result.Feedback = outcome.Feedback
		result.GradedAt = &now
	}
	id, err := s.results.Insert(ctx, result)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	s.logger.Info("answer submitted",
		logger.Int64("user_id", sess.UserID),
		logger.Int64("result_id", id),
		logger.String("target", a.TargetType),
		logger.Int64("target_id", a.TargetID),
		logger.String("status", outcome.Status))
	return req.Succeed(protocol.SubmitReply{Status: outcome.Status, Score: outcome.Score, Feedback: outcome.Feedback}.Encode())
}

func (s *Submission) target(ctx context.Context, targetType string, id int64) ([]types.Question, string, error) {
	switch targetType {
	case types.TargetExercise:
		ex, err := s.exercises.Get(ctx, id)
		if err != nil {
			return nil, "", err
		}
		return ex.Questions, ex.Type, nil
	case types.TargetExam:
		exam, err := s.exams.Get(ctx, id)
		if err != nil {
			return nil, "", err
		}
		return exam.Questions, exam.Type, nil
	}
	return nil, "", errUnknownTarget
}
