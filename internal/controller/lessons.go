package controller

import (
	"context"
	"fmt"
	"strings"

	"lingualink/internal/protocol"
	"lingualink/internal/router"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

type Lessons struct {
	base
	lessons interfaces.LessonRepository
}

func NewLessons(d Deps) *Lessons {
	return &Lessons{base: newBase(d, "lessons"), lessons: d.Repos.Lessons}
}

func (l *Lessons) Routes() Routes {
	return Routes{
		protocol.LessonListRequest:  l.List,
		protocol.StudyLessonRequest: l.Study,
	}
}

func (l *Lessons) List(ctx context.Context, req *router.Request) error {
	var q protocol.LessonListQuery
	q.Decode(req.Payload())
	if _, ok := l.session(req, q.Token); !ok {
		return req.Fail(reasonInvalidSession)
	}

	lessons, err := l.lessons.List(ctx, q.Topic, q.Level)
	if err != nil {
		return fmt.Errorf("list lessons: %w", err)
	}
	out := make([]protocol.LessonSummary, len(lessons))
	for i, ls := range lessons {
		out[i] = protocol.LessonSummary{ID: ls.ID, Title: ls.Title, Topic: ls.Topic, Level: ls.Level}
	}
	return req.Succeed(protocol.EncodeList(out))
}

// Study returns one projection of a lesson, or all of it for kind "full".
func (l *Lessons) Study(ctx context.Context, req *router.Request) error {
	var q protocol.StudyLessonQuery
	q.Decode(req.Payload())
	if _, ok := l.session(req, q.Token); !ok {
		return req.Fail(reasonInvalidSession)
	}
	kind := strings.ToLower(strings.TrimSpace(q.Kind))
	if kind == "" {
		kind = types.LessonFull
	}
	if !types.IsLessonKind(kind) {
		return req.Fail("Invalid lesson kind: " + q.Kind)
	}

	lesson, err := l.lessons.Get(ctx, q.LessonID)
	if isNotFound(err) {
		return req.Fail("Lesson not found")
	}
	if err != nil {
		return fmt.Errorf("get lesson %d: %w", q.LessonID, err)
	}

	if kind == types.LessonFull {
		return req.Succeed(protocol.LessonFull{
			ID: lesson.ID, Title: lesson.Title, Topic: lesson.Topic, Level: lesson.Level,
			VideoURL: lesson.VideoURL, AudioURL: lesson.AudioURL, Text: lesson.Text,
			Vocabulary: lesson.Vocabulary, Grammar: lesson.Grammar,
		}.Encode())
	}
	return req.Succeed(protocol.LessonProjection{
		ID: lesson.ID, Title: lesson.Title, Kind: kind, Content: projection(lesson, kind),
	}.Encode())
}

func projection(l *types.Lesson, kind string) string {
	switch kind {
	case types.LessonVideo:
		return l.VideoURL
	case types.LessonAudio:
		return l.AudioURL
	case types.LessonText:
		return l.Text
	case types.LessonVocabulary:
		return joinItems(l.Vocabulary)
	case types.LessonGrammar:
		return joinItems(l.Grammar)
	}
	return ""
}

func joinItems(items []string) string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = protocol.Scrub(it, protocol.ItemSep)
	}
	return strings.Join(out, protocol.ItemSep)
}
