package controller

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"lingualink/internal/grading"
	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/registry"
	"lingualink/internal/router"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

// AudioPrefix marks an audio entry inside a feedback column.
const AudioPrefix = "[AUDIO]"

// Feedback serves the teacher grading workflow. Access is restricted by
// the role gate.
type Feedback struct {
	base
	results  interfaces.ResultRepository
	registry *registry.Registry
}

func NewFeedback(d Deps) *Feedback {
	return &Feedback{base: newBase(d, "feedback"), results: d.Repos.Results, registry: d.Registry}
}

func (f *Feedback) Routes() Routes {
	return Routes{
		protocol.GradeSubmissionRequest:    f.Grade,
		protocol.AddFeedbackRequest:        f.AddFeedback,
		protocol.PendingSubmissionsRequest: f.Pending,
	}
}

// Grade sets score, feedback and per-question details on an existing
// result and tells the learner.
func (f *Feedback) Grade(ctx context.Context, req *router.Request) error {
	var g protocol.GradeSubmission
	g.Decode(req.Payload())
	s, ok := f.session(req, g.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}
	if !protocol.HasScore(req.Payload()) {
		return req.Fail("Invalid score")
	}
	if g.Score < 0 || g.Score > grading.MaxScore {
		return req.Fail(fmt.Sprintf("Score must be between 0 and %s", protocol.FormatScore(grading.MaxScore)))
	}

	result, err := f.load(ctx, g.ResultID, g.UserID)
	switch {
	case isNotFound(err):
		return req.Fail("Submission not found")
	case errors.Is(err, interfaces.ErrNotOwner):
		return req.Fail("Submission belongs to another user")
	case err != nil:
		return err
	}

	details := grading.FormatDetails(grading.ParseDetails(g.Details))
	if err := f.results.Grade(ctx, result.ID, g.Score, g.Feedback, details, f.now().UTC()); err != nil {
		return fmt.Errorf("grade result %d: %w", result.ID, err)
	}

	f.registry.PushTo(result.UserID, protocol.NotificationPush, protocol.Notification{
		Kind: protocol.NotifyGraded, ResultID: result.ID, Score: protocol.FormatScore(g.Score),
	}.Encode())
	f.logger.Info("submission graded",
		logger.Int64("result_id", result.ID), logger.Int64("grader_id", s.UserID), logger.Any("score", g.Score))
	return req.Succeed("Submission graded")
}

// AddFeedback appends a text or audio note without touching the score.
func (f *Feedback) AddFeedback(ctx context.Context, req *router.Request) error {
	var a protocol.AddFeedback
	a.Decode(req.Payload())
	s, ok := f.session(req, a.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}
	content := strings.TrimSpace(a.Content)
	if content == "" {
		return req.Fail("Feedback content is required")
	}

	var entry string
	switch strings.ToLower(a.Kind) {
	case "", "text":
		entry = strings.ReplaceAll(content, "\n", " ")
	case "audio":
		if _, err := base64.StdEncoding.DecodeString(content); err != nil {
			return req.Fail("Audio feedback must be base64 encoded")
		}
		entry = AudioPrefix + content
	default:
		return req.Fail("Feedback kind must be text or audio")
	}

	result, err := f.load(ctx, a.ResultID, 0)
	if isNotFound(err) {
		return req.Fail("Submission not found")
	}
	if err != nil {
		return err
	}
	if err := f.results.AppendFeedback(ctx, result.ID, entry); err != nil {
		return fmt.Errorf("append feedback %d: %w", result.ID, err)
	}

	f.registry.PushTo(result.UserID, protocol.NotificationPush,
		protocol.Notification{Kind: protocol.NotifyFeedback, ResultID: result.ID}.Encode())
	f.logger.Info("feedback added", logger.Int64("result_id", result.ID), logger.Int64("author_id", s.UserID))
	return req.Succeed("Feedback added")
}

// Pending lists submissions for review, newest first. An empty status
// lists every submission.
func (f *Feedback) Pending(ctx context.Context, req *router.Request) error {
	var q protocol.PendingQuery
	q.Decode(req.Payload())
	if _, ok := f.session(req, q.Token); !ok {
		return req.Fail(reasonInvalidSession)
	}
	status := strings.ToLower(q.Status)
	if status != "" && status != types.StatusPending && status != types.StatusGraded {
		return req.Fail("Invalid status: " + q.Status)
	}

	subs, err := f.results.Submissions(ctx, status)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}
	out := make([]protocol.SubmissionSummary, len(subs))
	for i, sub := range subs {
		out[i] = protocol.SubmissionSummary{
			ResultID:    sub.ID,
			Username:    sub.Username,
			TargetType:  sub.TargetType,
			TargetID:    sub.TargetID,
			Status:      sub.Status,
			SubmittedAt: protocol.FormatTime(sub.SubmittedAt),
			UserAnswer:  sub.UserAnswer,
		}
	}
	return req.Succeed(protocol.EncodeList(out))
}

// load fetches a result and, when userID is set, checks it belongs to
// that learner.
func (f *Feedback) load(ctx context.Context, id, userID int64) (*types.Result, error) {
	r, err := f.results.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != 0 && r.UserID != userID {
		return nil, interfaces.ErrNotOwner
	}
	return r, nil
}
