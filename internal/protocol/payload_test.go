package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type codec interface {
	Encode() string
}

func TestRequests_RoundTrip(t *testing.T) {
	check := func(t *testing.T, in codec, out interface{ Decode(string) }, want any) {
		t.Helper()
		out.Decode(in.Encode())
		assert.Equal(t, want, out)
	}

	creds := Credentials{Username: "alice", Password: "pa;ss"}
	check(t, creds, &Credentials{}, &creds)

	lq := LessonListQuery{Token: "tok", Topic: "travel", Level: "A1"}
	check(t, lq, &LessonListQuery{}, &lq)

	sl := StudyLessonQuery{Token: "tok", LessonID: 3, Kind: "vocabulary"}
	check(t, sl, &StudyLessonQuery{}, &sl)

	cl := ContentListQuery{Token: "tok", Type: "fill_in", Level: "B1", LessonID: 9}
	check(t, cl, &ContentListQuery{}, &cl)

	iq := ItemQuery{Token: "tok", ID: 7}
	check(t, iq, &ItemQuery{}, &iq)

	sa := SubmitAnswer{Token: "tok", TargetType: "exercise", TargetID: 4, Answer: "a^b; with semicolon^c"}
	check(t, sa, &SubmitAnswer{}, &sa)

	rq := ResultDetailQuery{Token: "tok", TargetType: "exam", TargetID: 7}
	check(t, rq, &ResultDetailQuery{}, &rq)

	gs := GradeSubmission{Token: "tok", ResultID: 5, UserID: 2, Score: 8.5, Feedback: "Nice work", Details: "8,good|9,great"}
	check(t, gs, &GradeSubmission{}, &gs)

	af := AddFeedback{Token: "tok", ResultID: 5, Kind: "text", Content: "see; line two"}
	check(t, af, &AddFeedback{}, &af)

	pm := PrivateMessage{Token: "tok", Recipient: "u2", Kind: "TEXT", Content: "hi; how are you"}
	check(t, pm, &PrivateMessage{}, &pm)

	ch := ChatHistoryQuery{Token: "tok", Other: "u2", Limit: 50, Offset: 10}
	check(t, ch, &ChatHistoryQuery{}, &ch)

	cr := CallRequest{Token: "tok", Peer: "u2"}
	check(t, cr, &CallRequest{}, &cr)

	gsub := GameSubmit{Token: "tok", GameID: 3, Score: "", Details: `{"answers":[{"word":"a;b"}]}`}
	check(t, gsub, &GameSubmit{}, &gsub)

	gc := GameCreate{Token: "tok", Type: "word_match", Level: "1", QuestionJSON: `[{"word":"cat"}]`}
	check(t, gc, &GameCreate{}, &gc)

	gu := GameUpdate{Token: "tok", ID: 4, Type: "image_match", Level: "2", QuestionJSON: `[]`}
	check(t, gu, &GameUpdate{}, &gu)
}

func TestRequests_TolerateShortAndLongPayloads(t *testing.T) {
	var q LessonListQuery
	q.Decode("tok")
	assert.Equal(t, LessonListQuery{Token: "tok"}, q)

	q.Decode("tok;topic;level;extra;more")
	assert.Equal(t, LessonListQuery{Token: "tok", Topic: "topic", Level: "level"}, q)

	var item ItemQuery
	item.Decode("tok;notanumber")
	assert.Zero(t, item.ID)

	var creds Credentials
	creds.Decode("")
	assert.Equal(t, Credentials{}, creds)
}

func TestReplies_RoundTrip(t *testing.T) {
	lr := LoginReply{Token: "0123456789abcdef0123456789abcdef", Role: "student"}
	assert.Equal(t, "session_id=0123456789abcdef0123456789abcdef;role=student", lr.Encode())
	var lr2 LoginReply
	lr2.Decode(lr.Encode())
	assert.Equal(t, lr, lr2)

	full := LessonFull{ID: 1, Title: "Greetings", Topic: "daily", Level: "A1", VideoURL: "v.mp4",
		AudioURL: "a.mp3", Text: "Hello there", Vocabulary: []string{"hello", "bye"}, Grammar: []string{"to be"}}
	assert.Equal(t, "1;Greetings;daily;A1;v.mp4;a.mp3;Hello there;2;hello|bye;1;to be", full.Encode())
	var full2 LessonFull
	full2.Decode(full.Encode())
	assert.Equal(t, full, full2)

	detail := ContentDetail{ID: 2, LessonID: 1, Title: "Colors", Type: "multiple_choice", Level: "A1",
		Questions: []QuestionView{
			{Index: 1, Type: "multiple_choice", Text: "Sky is?", Options: []string{"blue", "red"}},
			{Index: 2, Type: "multiple_choice", Text: "Grass is?", Options: []string{"green", "pink"}},
		}}
	assert.Equal(t, "2;1;Colors;multiple_choice;A1;2;1|multiple_choice|Sky is?|blue,red^2|multiple_choice|Grass is?|green,pink", detail.Encode())
	var detail2 ContentDetail
	detail2.Decode(detail.Encode())
	assert.Equal(t, detail, detail2)

	rd := ResultDetail{TargetType: "exercise", TargetID: 2, Title: "Colors", Status: "graded", Score: 5,
		Feedback: "You got 1 out of 2 correct.", SubmittedAt: "2026-01-02 03:04:05",
		Questions: []QuestionOutcome{{Question: "Sky is?", UserAnswer: "blue", Correct: "blue", Status: "correct", Score: "5", Comment: ""}},
		Attempts:  []Attempt{{ID: 9, Score: 5, Status: "graded", SubmittedAt: "2026-01-02 03:04:05"}, {ID: 3, Score: 0, Status: "graded", SubmittedAt: "2026-01-01 00:00:00"}},
	}
	var rd2 ResultDetail
	rd2.Decode(rd.Encode())
	assert.Equal(t, rd, rd2)

	rs := ResultSummary{ID: 4, TargetType: "word_match_game", TargetID: 3, Score: 30, Status: "graded", SubmittedAt: "2026-01-02 03:04:05"}
	var rs2 ResultSummary
	rs2.Decode(rs.Encode())
	assert.Equal(t, rs, rs2)

	ss := SubmissionSummary{ResultID: 1, Username: "alice", TargetType: "exercise", TargetID: 2, Status: "pending", SubmittedAt: "x", UserAnswer: "a^b"}
	var ss2 SubmissionSummary
	ss2.Decode(ss.Encode())
	assert.Equal(t, ss, ss2)

	gd := GameData{ID: 3, Type: "word_match", Level: "1", QuestionJSON: `[{"word":"a|b"}]`}
	var gd2 GameData
	gd2.Decode(gd.Encode())
	assert.Equal(t, gd, gd2)

	cd := ChatDelivery{SenderID: 12, Content: "hello: world"}
	assert.Equal(t, "12:hello: world", cd.Encode())
	var cd2 ChatDelivery
	cd2.Decode(cd.Encode())
	assert.Equal(t, cd, cd2)

	sr := SubmitReply{Status: "graded", Score: 6.67, Feedback: "You got 2 out of 3 correct."}
	var sr2 SubmitReply
	sr2.Decode(sr.Encode())
	assert.Equal(t, sr, sr2)

	n := Notification{Kind: NotifyGraded, ResultID: 8, Score: "9"}
	var n2 Notification
	n2.Decode(n.Encode())
	assert.Equal(t, n, n2)

	ce := CallEndedNotice{Outcome: OutcomeNoAnswer, Peer: "u2"}
	var ce2 CallEndedNotice
	ce2.Decode(ce.Encode())
	assert.Equal(t, ce, ce2)
}

func TestEncodeList(t *testing.T) {
	assert.Equal(t, "0", EncodeList([]LessonSummary{}))
	got := EncodeList([]LessonSummary{
		{ID: 1, Title: "Greetings", Topic: "daily", Level: "A1"},
		{ID: 2, Title: "Food|Drink", Topic: "daily", Level: "A2"},
	})
	assert.Equal(t, "2;1|Greetings|daily|A1;2|Food/Drink|daily|A2", got)
	assert.Len(t, ParseCountedList(got), 2)
	assert.Nil(t, ParseCountedList("0"))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "10", FormatScore(10))
	assert.Equal(t, "7.5", FormatScore(7.5))
	assert.Equal(t, "6.67", FormatScore(20.0/3.0))
	assert.Equal(t, "0", FormatScore(0))
}

func TestScrub(t *testing.T) {
	assert.Equal(t, "a,b/c", Scrub("a;b|c", FieldSep, ItemSep))
	assert.Equal(t, "a b", Scrub("a;b", FieldSep, SubItemSep))
	assert.Equal(t, "plain", Scrub("plain", FieldSep))
}

func TestFields(t *testing.T) {
	f := Split("a;12;x;1.5", FieldSep)
	assert.Equal(t, "a", f.Get(0))
	assert.Equal(t, 12, f.Int(1))
	assert.Zero(t, f.Int(2))
	assert.Equal(t, 1.5, f.Float(3))
	assert.Equal(t, "", f.Get(9))
	assert.Empty(t, Split("", FieldSep))
	assert.Equal(t, Fields{"a", "b;c"}, SplitN("a;b;c", FieldSep, 2))
}
