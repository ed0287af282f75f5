package controller

import (
	"context"
	"fmt"
	"strings"

	"lingualink/internal/grading"
	"lingualink/internal/protocol"
	"lingualink/internal/repository"
	"lingualink/internal/router"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

// Results serves a learner's own results.
type Results struct {
	base
	results   interfaces.ResultRepository
	exercises interfaces.ExerciseRepository
	exams     interfaces.ExamRepository
	games     interfaces.GameRepository
}

func NewResults(d Deps) *Results {
	return &Results{
		base:      newBase(d, "results"),
		results:   d.Repos.Results,
		exercises: d.Repos.Exercises,
		exams:     d.Repos.Exams,
		games:     d.Repos.Games,
	}
}

func (r *Results) Routes() Routes {
	return Routes{
		protocol.ResultListRequest:   r.List,
		protocol.ResultDetailRequest: r.Detail,
	}
}

// List returns the latest result per target.
func (r *Results) List(ctx context.Context, req *router.Request) error {
	var q protocol.ResultListQuery
	q.Decode(req.Payload())
	s, ok := r.session(req, q.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}

	rows, err := r.results.ListByUser(ctx, s.UserID, q.TargetType)
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}
	latest := repository.LatestPerTarget(rows)
	out := make([]protocol.ResultSummary, len(latest))
	for i, res := range latest {
		out[i] = protocol.ResultSummary{
			ID:          res.ID,
			TargetType:  res.TargetType,
			TargetID:    res.TargetID,
			Score:       res.Score,
			Status:      res.Status,
			SubmittedAt: protocol.FormatTime(res.SubmittedAt),
		}
	}
	return req.Succeed(protocol.EncodeList(out))
}

// Detail composes the latest attempt for one target with its per-question
// breakdown and the full attempt history.
func (r *Results) Detail(ctx context.Context, req *router.Request) error {
	var q protocol.ResultDetailQuery
	q.Decode(req.Payload())
	s, ok := r.session(req, q.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}

	attempts, err := r.results.Attempts(ctx, s.UserID, q.TargetType, q.TargetID)
	if err != nil {
		return fmt.Errorf("list attempts: %w", err)
	}
	if len(attempts) == 0 {
		return req.Fail("No result found")
	}
	latest := attempts[0]

	title, questions, kind, err := r.describe(ctx, q.TargetType, q.TargetID)
	if err != nil {
		return err
	}

	out := protocol.ResultDetail{
		TargetType:  latest.TargetType,
		TargetID:    latest.TargetID,
		Title:       title,
		Status:      latest.Status,
		Score:       latest.Score,
		Feedback:    latest.Feedback,
		SubmittedAt: protocol.FormatTime(latest.SubmittedAt),
		Questions:   grading.Breakdown(questions, kind, latest),
	}
	for _, a := range attempts {
		out.Attempts = append(out.Attempts, protocol.Attempt{
			ID: a.ID, Score: a.Score, Status: a.Status, SubmittedAt: protocol.FormatTime(a.SubmittedAt),
		})
	}
	return req.Succeed(out.Encode())
}

// describe loads the title and questions of a target. A target deleted
// since the submission yields an empty title.
func (r *Results) describe(ctx context.Context, targetType string, id int64) (string, []types.Question, string, error) {
	var err error
	switch {
	case targetType == types.TargetExercise:
		var ex *types.Exercise
		if ex, err = r.exercises.Get(ctx, id); err == nil {
			return ex.Title, ex.Questions, ex.Type, nil
		}
	case targetType == types.TargetExam:
		var exam *types.Exam
		if exam, err = r.exams.Get(ctx, id); err == nil {
			return exam.Title, exam.Questions, exam.Type, nil
		}
	case strings.HasSuffix(targetType, types.GameSuffix):
		var g *types.GameItem
		if g, err = r.games.Get(ctx, id); err == nil {
			return fmt.Sprintf("%s level %s", strings.ReplaceAll(g.Type, "_", " "), g.Level), nil, g.Type, nil
		}
	default:
		return "", nil, "", nil
	}
	if isNotFound(err) {
		return "", nil, "", nil
	}
	return "", nil, "", fmt.Errorf("load %s %d: %w", targetType, id, err)
}
