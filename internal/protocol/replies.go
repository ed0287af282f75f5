package protocol

import (
	"strconv"
	"strings"
)

// LoginReply is the LOGIN_SUCCESS body.
type LoginReply struct {
	Token string
	Role  string
}

func (r LoginReply) Encode() string {
	return "session_id=" + r.Token + FieldSep + "role=" + r.Role
}

func (r *LoginReply) Decode(s string) {
	for _, kv := range Split(s, FieldSep) {
		k, v, _ := strings.Cut(kv, "=")
		switch k {
		case "session_id":
			r.Token = v
		case "role":
			r.Role = v
		}
	}
}

type LessonSummary struct {
	ID    int64
	Title string
	Topic string
	Level string
}

func (l LessonSummary) Encode() string {
	return Join(ItemSep, FormatID(l.ID), clean(l.Title), clean(l.Topic), clean(l.Level))
}

func (l *LessonSummary) Decode(s string) {
	f := Split(s, ItemSep)
	l.ID, l.Title, l.Topic, l.Level = f.Int64(0), f.Get(1), f.Get(2), f.Get(3)
}

// LessonProjection is a single-kind STUDY_LESSON reply. Vocabulary and
// grammar content is ItemSep-joined.
type LessonProjection struct {
	ID      int64
	Title   string
	Kind    string
	Content string
}

func (p LessonProjection) Encode() string {
	return Join(FieldSep, FormatID(p.ID), Scrub(p.Title, FieldSep), p.Kind, p.Content)
}

func (p *LessonProjection) Decode(s string) {
	f := SplitN(s, FieldSep, 4)
	p.ID, p.Title, p.Kind, p.Content = f.Int64(0), f.Get(1), f.Get(2), f.Get(3)
}

// LessonFull is the STUDY_LESSON reply for kind "full".
type LessonFull struct {
	ID         int64
	Title      string
	Topic      string
	Level      string
	VideoURL   string
	AudioURL   string
	Text       string
	Vocabulary []string
	Grammar    []string
}

func (l LessonFull) Encode() string {
	return Join(FieldSep,
		FormatID(l.ID), Scrub(l.Title, FieldSep), Scrub(l.Topic, FieldSep), Scrub(l.Level, FieldSep),
		Scrub(l.VideoURL, FieldSep), Scrub(l.AudioURL, FieldSep), Scrub(l.Text, FieldSep),
		strconv.Itoa(len(l.Vocabulary)), joinItems(l.Vocabulary),
		strconv.Itoa(len(l.Grammar)), joinItems(l.Grammar),
	)
}

func (l *LessonFull) Decode(s string) {
	f := Split(s, FieldSep)
	l.ID, l.Title, l.Topic, l.Level = f.Int64(0), f.Get(1), f.Get(2), f.Get(3)
	l.VideoURL, l.AudioURL, l.Text = f.Get(4), f.Get(5), f.Get(6)
	l.Vocabulary = Split(f.Get(8), ItemSep)
	l.Grammar = Split(f.Get(10), ItemSep)
}

// ContentSummary is one EXERCISE_LIST or EXAM_LIST record.
type ContentSummary struct {
	ID       int64
	LessonID int64
	Title    string
	Type     string
	Level    string
}

func (c ContentSummary) Encode() string {
	return Join(ItemSep, FormatID(c.ID), FormatID(c.LessonID), clean(c.Title), c.Type, clean(c.Level))
}

func (c *ContentSummary) Decode(s string) {
	f := Split(s, ItemSep)
	c.ID, c.LessonID, c.Title, c.Type, c.Level = f.Int64(0), f.Int64(1), f.Get(2), f.Get(3), f.Get(4)
}

// QuestionView is a question as shown to the learner; no answer key.
type QuestionView struct {
	Index   int
	Type    string
	Text    string
	Options []string
}

func (q QuestionView) Encode() string {
	opts := make([]string, len(q.Options))
	for i, o := range q.Options {
		opts[i] = Scrub(o, FieldSep, ItemSep, QuestionSep, SubItemSep)
	}
	return Join(ItemSep, strconv.Itoa(q.Index), q.Type,
		Scrub(q.Text, FieldSep, ItemSep, QuestionSep), strings.Join(opts, SubItemSep))
}

func (q *QuestionView) Decode(s string) {
	f := Split(s, ItemSep)
	q.Index, q.Type, q.Text = f.Int(0), f.Get(1), f.Get(2)
	q.Options = Split(f.Get(3), SubItemSep)
}

// ContentDetail is the exercise or exam DTO: header, question count and
// QuestionSep-joined questions.
type ContentDetail struct {
	ID        int64
	LessonID  int64
	Title     string
	Type      string
	Level     string
	Questions []QuestionView
}

func (c ContentDetail) Encode() string {
	qs := make([]string, len(c.Questions))
	for i, q := range c.Questions {
		qs[i] = q.Encode()
	}
	return Join(FieldSep, FormatID(c.ID), FormatID(c.LessonID), Scrub(c.Title, FieldSep), c.Type,
		Scrub(c.Level, FieldSep), strconv.Itoa(len(c.Questions)), strings.Join(qs, QuestionSep))
}

func (c *ContentDetail) Decode(s string) {
	f := Split(s, FieldSep)
	c.ID, c.LessonID, c.Title, c.Type, c.Level = f.Int64(0), f.Int64(1), f.Get(2), f.Get(3), f.Get(4)
	c.Questions = nil
	for _, raw := range Split(f.Get(6), QuestionSep) {
		var q QuestionView
		q.Decode(raw)
		c.Questions = append(c.Questions, q)
	}
}

// SubmitReply is the SUBMIT_ANSWER_SUCCESS body.
type SubmitReply struct {
	Status   string
	Score    float64
	Feedback string
}

func (r SubmitReply) Encode() string {
	return Join(FieldSep, r.Status, FormatScore(r.Score), r.Feedback)
}

func (r *SubmitReply) Decode(s string) {
	f := SplitN(s, FieldSep, 3)
	r.Status, r.Score, r.Feedback = f.Get(0), f.Float(1), f.Get(2)
}

type ResultSummary struct {
	ID          int64
	TargetType  string
	TargetID    int64
	Score       float64
	Status      string
	SubmittedAt string
}

func (r ResultSummary) Encode() string {
	return Join(ItemSep, FormatID(r.ID), r.TargetType, FormatID(r.TargetID),
		FormatScore(r.Score), r.Status, r.SubmittedAt)
}

func (r *ResultSummary) Decode(s string) {
	f := Split(s, ItemSep)
	r.ID, r.TargetType, r.TargetID = f.Int64(0), f.Get(1), f.Int64(2)
	r.Score, r.Status, r.SubmittedAt = f.Float(3), f.Get(4), f.Get(5)
}

// QuestionOutcome is one graded question inside a result detail.
type QuestionOutcome struct {
	Question   string
	UserAnswer string
	Correct    string
	Status     string
	Score      string
	Comment    string
}

func (q QuestionOutcome) Encode() string {
	seps := []string{FieldSep, ItemSep, QuestionSep, "\n"}
	return Join(QuestionSep,
		Scrub(q.Question, seps...), Scrub(q.UserAnswer, seps...), Scrub(q.Correct, seps...),
		q.Status, q.Score, Scrub(q.Comment, seps...))
}

func (q *QuestionOutcome) Decode(s string) {
	f := Split(s, QuestionSep)
	q.Question, q.UserAnswer, q.Correct = f.Get(0), f.Get(1), f.Get(2)
	q.Status, q.Score, q.Comment = f.Get(3), f.Get(4), f.Get(5)
}

// Attempt is one prior submission for the same target.
type Attempt struct {
	ID          int64
	Score       float64
	Status      string
	SubmittedAt string
}

func (a Attempt) Encode() string {
	return Join(SubItemSep, FormatID(a.ID), FormatScore(a.Score), a.Status, a.SubmittedAt)
}

func (a *Attempt) Decode(s string) {
	f := Split(s, SubItemSep)
	a.ID, a.Score, a.Status, a.SubmittedAt = f.Int64(0), f.Float(1), f.Get(2), f.Get(3)
}

// ResultDetail is the RESULT_DETAIL_SUCCESS body: header fields, the
// per-question outcomes and the attempt history.
type ResultDetail struct {
	TargetType  string
	TargetID    int64
	Title       string
	Status      string
	Score       float64
	Feedback    string
	SubmittedAt string
	Questions   []QuestionOutcome
	Attempts    []Attempt
}

func (r ResultDetail) Encode() string {
	qs := make([]string, len(r.Questions))
	for i, q := range r.Questions {
		qs[i] = q.Encode()
	}
	as := make([]string, len(r.Attempts))
	for i, a := range r.Attempts {
		as[i] = a.Encode()
	}
	return Join(FieldSep, r.TargetType, FormatID(r.TargetID), Scrub(r.Title, FieldSep), r.Status,
		FormatScore(r.Score), Scrub(r.Feedback, FieldSep, "\n"), r.SubmittedAt,
		strings.Join(qs, ItemSep), strings.Join(as, AttemptSep))
}

func (r *ResultDetail) Decode(s string) {
	f := Split(s, FieldSep)
	r.TargetType, r.TargetID, r.Title, r.Status = f.Get(0), f.Int64(1), f.Get(2), f.Get(3)
	r.Score, r.Feedback, r.SubmittedAt = f.Float(4), f.Get(5), f.Get(6)
	r.Questions, r.Attempts = nil, nil
	for _, raw := range Split(f.Get(7), ItemSep) {
		var q QuestionOutcome
		q.Decode(raw)
		r.Questions = append(r.Questions, q)
	}
	for _, raw := range Split(f.Get(8), AttemptSep) {
		var a Attempt
		a.Decode(raw)
		r.Attempts = append(r.Attempts, a)
	}
}

// SubmissionSummary is one PENDING_SUBMISSIONS record.
type SubmissionSummary struct {
	ResultID    int64
	Username    string
	TargetType  string
	TargetID    int64
	Status      string
	SubmittedAt string
	UserAnswer  string
}

func (s SubmissionSummary) Encode() string {
	return Join(ItemSep, FormatID(s.ResultID), s.Username, s.TargetType, FormatID(s.TargetID),
		s.Status, s.SubmittedAt, Scrub(s.UserAnswer, FieldSep, ItemSep))
}

func (s *SubmissionSummary) Decode(raw string) {
	f := SplitN(raw, ItemSep, 7)
	s.ResultID, s.Username, s.TargetType, s.TargetID = f.Int64(0), f.Get(1), f.Get(2), f.Int64(3)
	s.Status, s.SubmittedAt, s.UserAnswer = f.Get(4), f.Get(5), f.Get(6)
}

// ChatEntry is one CHAT_HISTORY record.
type ChatEntry struct {
	Sender    string
	Kind      string
	Timestamp string
	Content   string
}

func (c ChatEntry) Encode() string {
	return Join(ItemSep, c.Sender, c.Kind, c.Timestamp, Scrub(c.Content, FieldSep, ItemSep))
}

func (c *ChatEntry) Decode(s string) {
	f := SplitN(s, ItemSep, 4)
	c.Sender, c.Kind, c.Timestamp, c.Content = f.Get(0), f.Get(1), f.Get(2), f.Get(3)
}

// ConversationSummary is one RECENT_CHATS record.
type ConversationSummary struct {
	OtherID     int64
	Username    string
	LastMessage string
	Timestamp   string
}

func (c ConversationSummary) Encode() string {
	return Join(ItemSep, FormatID(c.OtherID), c.Username, Scrub(c.LastMessage, FieldSep, ItemSep), c.Timestamp)
}

func (c *ConversationSummary) Decode(s string) {
	f := Split(s, ItemSep)
	c.OtherID, c.Username, c.LastMessage, c.Timestamp = f.Int64(0), f.Get(1), f.Get(2), f.Get(3)
}

// ChatDelivery is the CHAT_PRIVATE_RECEIVE body "<senderId>:<content>".
type ChatDelivery struct {
	SenderID int64
	Content  string
}

func (c ChatDelivery) Encode() string { return FormatID(c.SenderID) + ":" + c.Content }

func (c *ChatDelivery) Decode(s string) {
	id, content, _ := strings.Cut(s, ":")
	c.SenderID, _ = strconv.ParseInt(id, 10, 64)
	c.Content = content
}

// CallIncomingNotice is pushed to a call receiver.
type CallIncomingNotice struct {
	CallerID int64
	Caller   string
}

func (n CallIncomingNotice) Encode() string { return Join(FieldSep, FormatID(n.CallerID), n.Caller) }

func (n *CallIncomingNotice) Decode(s string) {
	f := Split(s, FieldSep)
	n.CallerID, n.Caller = f.Int64(0), f.Get(1)
}

// Call outcomes carried by CALL_ENDED.
const (
	OutcomeDeclined = "declined"
	OutcomeNoAnswer = "no answer"
	OutcomeCanceled = "canceled"
	OutcomeEnded    = "ended"
	OutcomeBusy     = "busy"
)

type CallEndedNotice struct {
	Outcome string
	Peer    string
}

func (n CallEndedNotice) Encode() string { return Join(FieldSep, n.Outcome, n.Peer) }

func (n *CallEndedNotice) Decode(s string) {
	f := Split(s, FieldSep)
	n.Outcome, n.Peer = f.Get(0), f.Get(1)
}

// Notification kinds pushed with NOTIFICATION_PUSH.
const (
	NotifyGraded   = "graded"
	NotifyFeedback = "feedback"
)

// Notification is "kind;resultId[;score]".
type Notification struct {
	Kind     string
	ResultID int64
	Score    string
}

func (n Notification) Encode() string {
	if n.Score == "" {
		return Join(FieldSep, n.Kind, FormatID(n.ResultID))
	}
	return Join(FieldSep, n.Kind, FormatID(n.ResultID), n.Score)
}

func (n *Notification) Decode(s string) {
	f := Split(s, FieldSep)
	n.Kind, n.ResultID, n.Score = f.Get(0), f.Int64(1), f.Get(2)
}

type GameSummary struct {
	Type        string
	Description string
}

func (g GameSummary) Encode() string { return Join(ItemSep, g.Type, clean(g.Description)) }

func (g *GameSummary) Decode(s string) {
	f := Split(s, ItemSep)
	g.Type, g.Description = f.Get(0), f.Get(1)
}

const (
	LevelCompleted = "completed"
	LevelUnlocked  = "unlocked"
)

type GameLevel struct {
	ID     int64
	Level  string
	Status string
}

func (g GameLevel) Encode() string { return Join(ItemSep, FormatID(g.ID), clean(g.Level), g.Status) }

func (g *GameLevel) Decode(s string) {
	f := Split(s, ItemSep)
	g.ID, g.Level, g.Status = f.Int64(0), f.Get(1), f.Get(2)
}

// GameData is "id|type|level|questionJson"; the JSON is the free tail.
type GameData struct {
	ID           int64
	Type         string
	Level        string
	QuestionJSON string
}

func (g GameData) Encode() string {
	return Join(ItemSep, FormatID(g.ID), g.Type, clean(g.Level), g.QuestionJSON)
}

func (g *GameData) Decode(s string) {
	f := SplitN(s, ItemSep, 4)
	g.ID, g.Type, g.Level, g.QuestionJSON = f.Int64(0), f.Get(1), f.Get(2), f.Get(3)
}

type GameSubmitReply struct {
	Score   float64
	Message string
}

func (g GameSubmitReply) Encode() string { return Join(FieldSep, FormatScore(g.Score), g.Message) }

func (g *GameSubmitReply) Decode(s string) {
	f := SplitN(s, FieldSep, 2)
	g.Score, g.Message = f.Float(0), f.Get(1)
}

// EncodeList renders a counted list of records.
func EncodeList[T interface{ Encode() string }](items []T) string {
	records := make([]string, len(items))
	for i, it := range items {
		records[i] = it.Encode()
	}
	return CountedList(records)
}

func clean(s string) string { return Scrub(s, FieldSep, ItemSep) }

func joinItems(items []string) string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = clean(it)
	}
	return strings.Join(out, ItemSep)
}
