package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpcode_WireNumbers(t *testing.T) {
	fixed := map[Opcode]uint16{
		MultipleChoiceRequest: 40, MultipleChoiceSuccess: 41, MultipleChoiceFailure: 43,
		FillInRequest: 50, SentenceOrderRequest: 60, RewriteSentenceRequest: 70,
		WriteParagraphRequest: 80, SpeakingTopicRequest: 90, SpeakingTopicFailure: 93,
		LoginRequest: 100, LoginSuccess: 101, LoginFailure: 103,
		LessonListRequest: 110, LessonListSuccess: 111, LessonListFailure: 113,
		StudyLessonRequest: 120, StudyLessonSuccess: 121, StudyLessonFailure: 123,
		NotificationPush: 140, ResultListRequest: 150, SubmitAnswerRequest: 160,
		LogoutRequest: 200, LogoutSuccess: 201,
		Heartbeat: 900, DisconnectRequest: 901, DisconnectAck: 902,
		GeneralFailure: 9993, UnknownCommandFailure: 9994,
	}
	for op, n := range fixed {
		assert.Equal(t, n, uint16(op), op.String())
	}
}

func TestOpcode_Families(t *testing.T) {
	assert.Equal(t, LoginSuccess, SuccessFor(LoginRequest))
	assert.Equal(t, LoginFailure, FailureFor(LoginRequest))
	assert.Equal(t, ExamSuccess, SuccessFor(ExamReviewRequest))
	assert.Equal(t, ExamFailure, FailureFor(ExamReviewRequest))
	assert.Equal(t, ChatMessageFailure, FailureFor(SendChatPrivateRequest))
	assert.Equal(t, PendingSubmissionsSuccess, SuccessFor(PendingSubmissionsRequest))
	assert.Equal(t, GameDeleteFailure, FailureFor(GameDeleteRequest))
	assert.Equal(t, GeneralFailure, FailureFor(Opcode(12345)))
	assert.Equal(t, GeneralFailure, FailureFor(Heartbeat))

	for req, fam := range familyOf {
		assert.True(t, req.Known(), req.String())
		assert.True(t, fam[0].Known(), fam[0].String())
		assert.True(t, fam[1].Known(), fam[1].String())
	}
}

func TestOpcode_String(t *testing.T) {
	assert.Equal(t, "LOGIN_REQUEST", LoginRequest.String())
	assert.Equal(t, "CALL_ENDED", CallEnded.String())
	assert.Equal(t, "OPCODE_7", Opcode(7).String())
	assert.False(t, Opcode(7).Known())
}

func TestOpcode_IsPush(t *testing.T) {
	for _, op := range []Opcode{NotificationPush, ChatPrivateReceive, CallIncoming, CallAccepted, CallEnded} {
		assert.True(t, op.IsPush(), op.String())
	}
	assert.False(t, LoginSuccess.IsPush())
	assert.False(t, GeneralFailure.IsPush())
	assert.False(t, DisconnectAck.IsPush())
}
