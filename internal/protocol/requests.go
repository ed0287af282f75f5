package protocol

import "strconv"

// Request payloads. Each type encodes to the positional form the server
// parses and decodes tolerantly: missing fields are empty, extra fields
// are ignored. The token is always field 0 for authenticated requests.

// Credentials is the LOGIN and REGISTER payload.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Encode() string { return Join(FieldSep, c.Username, c.Password) }

func (c *Credentials) Decode(s string) {
	f := SplitN(s, FieldSep, 2)
	c.Username, c.Password = f.Get(0), f.Get(1)
}

// TokenOnly carries just the session token (LOGOUT, HEARTBEAT, RECENT_CHATS, GAME_LIST).
type TokenOnly struct {
	Token string
}

func (t TokenOnly) Encode() string { return t.Token }

func (t *TokenOnly) Decode(s string) { t.Token = Split(s, FieldSep).Get(0) }

type LessonListQuery struct {
	Token string
	Topic string
	Level string
}

func (q LessonListQuery) Encode() string { return Join(FieldSep, q.Token, q.Topic, q.Level) }

func (q *LessonListQuery) Decode(s string) {
	f := Split(s, FieldSep)
	q.Token, q.Topic, q.Level = f.Get(0), f.Get(1), f.Get(2)
}

type StudyLessonQuery struct {
	Token    string
	LessonID int64
	Kind     string
}

func (q StudyLessonQuery) Encode() string {
	return Join(FieldSep, q.Token, FormatID(q.LessonID), q.Kind)
}

func (q *StudyLessonQuery) Decode(s string) {
	f := Split(s, FieldSep)
	q.Token, q.LessonID, q.Kind = f.Get(0), f.Int64(1), f.Get(2)
}

// ContentListQuery filters EXERCISE_LIST and EXAM_LIST.
type ContentListQuery struct {
	Token    string
	Type     string
	Level    string
	LessonID int64
}

func (q ContentListQuery) Encode() string {
	lesson := ""
	if q.LessonID > 0 {
		lesson = FormatID(q.LessonID)
	}
	return Join(FieldSep, q.Token, q.Type, q.Level, lesson)
}

func (q *ContentListQuery) Decode(s string) {
	f := Split(s, FieldSep)
	q.Token, q.Type, q.Level, q.LessonID = f.Get(0), f.Get(1), f.Get(2), f.Int64(3)
}

// ItemQuery addresses one record by id: exercise fetches, EXAM, EXAM_REVIEW,
// GAME_DATA and GAME_DELETE.
type ItemQuery struct {
	Token string
	ID    int64
}

func (q ItemQuery) Encode() string { return Join(FieldSep, q.Token, FormatID(q.ID)) }

func (q *ItemQuery) Decode(s string) {
	f := Split(s, FieldSep)
	q.Token, q.ID = f.Get(0), f.Int64(1)
}

// SubmitAnswer carries the answer as the final free-text field; answers to
// multi-question targets are separated by QuestionSep.
type SubmitAnswer struct {
	Token      string
	TargetType string
	TargetID   int64
	Answer     string
}

func (a SubmitAnswer) Encode() string {
	return Join(FieldSep, a.Token, a.TargetType, FormatID(a.TargetID), a.Answer)
}

func (a *SubmitAnswer) Decode(s string) {
	f := SplitN(s, FieldSep, 4)
	a.Token, a.TargetType, a.TargetID, a.Answer = f.Get(0), f.Get(1), f.Int64(2), f.Get(3)
}

type ResultListQuery struct {
	Token      string
	TargetType string
}

func (q ResultListQuery) Encode() string { return Join(FieldSep, q.Token, q.TargetType) }

func (q *ResultListQuery) Decode(s string) {
	f := Split(s, FieldSep)
	q.Token, q.TargetType = f.Get(0), f.Get(1)
}

type ResultDetailQuery struct {
	Token      string
	TargetType string
	TargetID   int64
}

func (q ResultDetailQuery) Encode() string {
	return Join(FieldSep, q.Token, q.TargetType, FormatID(q.TargetID))
}

func (q *ResultDetailQuery) Decode(s string) {
	f := Split(s, FieldSep)
	q.Token, q.TargetType, q.TargetID = f.Get(0), f.Get(1), f.Int64(2)
}

// GradeSubmission is sent by teachers. Details is "score,comment|score,comment"
// per question and may be empty.
type GradeSubmission struct {
	Token    string
	ResultID int64
	UserID   int64
	Score    float64
	Feedback string
	Details  string
}

func (g GradeSubmission) Encode() string {
	return Join(FieldSep, g.Token, FormatID(g.ResultID), FormatID(g.UserID),
		FormatScore(g.Score), Scrub(g.Feedback, FieldSep), g.Details)
}

func (g *GradeSubmission) Decode(s string) {
	f := SplitN(s, FieldSep, 6)
	g.Token, g.ResultID, g.UserID = f.Get(0), f.Int64(1), f.Int64(2)
	g.Score, g.Feedback, g.Details = f.Float(3), f.Get(4), f.Get(5)
}

// HasScore reports whether the raw score field of a GRADE_SUBMISSION
// payload is numeric.
func HasScore(raw string) bool {
	_, err := strconv.ParseFloat(Split(raw, FieldSep).Get(3), 64)
	return err == nil
}

type AddFeedback struct {
	Token    string
	ResultID int64
	Kind     string
	Content  string
}

func (a AddFeedback) Encode() string {
	return Join(FieldSep, a.Token, FormatID(a.ResultID), a.Kind, a.Content)
}

func (a *AddFeedback) Decode(s string) {
	f := SplitN(s, FieldSep, 4)
	a.Token, a.ResultID, a.Kind, a.Content = f.Get(0), f.Int64(1), f.Get(2), f.Get(3)
}

type PendingQuery struct {
	Token  string
	Status string
}

func (q PendingQuery) Encode() string { return Join(FieldSep, q.Token, q.Status) }

func (q *PendingQuery) Decode(s string) {
	f := Split(s, FieldSep)
	q.Token, q.Status = f.Get(0), f.Get(1)
}

type PrivateMessage struct {
	Token     string
	Recipient string
	Kind      string
	Content   string
}

func (m PrivateMessage) Encode() string {
	return Join(FieldSep, m.Token, m.Recipient, m.Kind, m.Content)
}

func (m *PrivateMessage) Decode(s string) {
	f := SplitN(s, FieldSep, 4)
	m.Token, m.Recipient, m.Kind, m.Content = f.Get(0), f.Get(1), f.Get(2), f.Get(3)
}

type ChatHistoryQuery struct {
	Token  string
	Other  string
	Limit  int
	Offset int
}

func (q ChatHistoryQuery) Encode() string {
	return Join(FieldSep, q.Token, q.Other, strconv.Itoa(q.Limit), strconv.Itoa(q.Offset))
}

func (q *ChatHistoryQuery) Decode(s string) {
	f := Split(s, FieldSep)
	q.Token, q.Other, q.Limit, q.Offset = f.Get(0), f.Get(1), f.Int(2), f.Int(3)
}

// CallRequest names the other party: the receiver for CALL_INITIATE, the
// caller for CALL_ANSWER and CALL_DECLINE, the peer for CALL_END.
type CallRequest struct {
	Token string
	Peer  string
}

func (c CallRequest) Encode() string { return Join(FieldSep, c.Token, c.Peer) }

func (c *CallRequest) Decode(s string) {
	f := Split(s, FieldSep)
	c.Token, c.Peer = f.Get(0), f.Get(1)
}

type GameLevelQuery struct {
	Token string
	Type  string
}

func (q GameLevelQuery) Encode() string { return Join(FieldSep, q.Token, q.Type) }

func (q *GameLevelQuery) Decode(s string) {
	f := Split(s, FieldSep)
	q.Token, q.Type = f.Get(0), f.Get(1)
}

// GameSubmit carries an optional client score and the answers JSON.
type GameSubmit struct {
	Token   string
	GameID  int64
	Score   string
	Details string
}

func (g GameSubmit) Encode() string {
	return Join(FieldSep, g.Token, FormatID(g.GameID), g.Score, g.Details)
}

func (g *GameSubmit) Decode(s string) {
	f := SplitN(s, FieldSep, 4)
	g.Token, g.GameID, g.Score, g.Details = f.Get(0), f.Int64(1), f.Get(2), f.Get(3)
}

type GameCreate struct {
	Token        string
	Type         string
	Level        string
	QuestionJSON string
}

func (g GameCreate) Encode() string {
	return Join(FieldSep, g.Token, g.Type, g.Level, g.QuestionJSON)
}

func (g *GameCreate) Decode(s string) {
	f := SplitN(s, FieldSep, 4)
	g.Token, g.Type, g.Level, g.QuestionJSON = f.Get(0), f.Get(1), f.Get(2), f.Get(3)
}

type GameUpdate struct {
	Token        string
	ID           int64
	Type         string
	Level        string
	QuestionJSON string
}

func (g GameUpdate) Encode() string {
	return Join(FieldSep, g.Token, FormatID(g.ID), g.Type, g.Level, g.QuestionJSON)
}

func (g *GameUpdate) Decode(s string) {
	f := SplitN(s, FieldSep, 5)
	g.Token, g.ID, g.Type, g.Level, g.QuestionJSON = f.Get(0), f.Int64(1), f.Get(2), f.Get(3), f.Get(4)
}
