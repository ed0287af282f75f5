// Package protocol implements the framed binary wire format shared by the
// server, the websocket gateway and the terminal client: opcodes, the
// length-prefixed frame codec and the positional payload DTOs.
package protocol

import "strconv"

// Opcode identifies the kind of a frame. Numbers are wire-stable.
type Opcode uint16

const (
	MultipleChoiceRequest Opcode = 40
	MultipleChoiceSuccess Opcode = 41
	MultipleChoiceFailure Opcode = 43

	FillInRequest Opcode = 50
	FillInSuccess Opcode = 51
	FillInFailure Opcode = 53

	SentenceOrderRequest Opcode = 60
	SentenceOrderSuccess Opcode = 61
	SentenceOrderFailure Opcode = 63

	RewriteSentenceRequest Opcode = 70
	RewriteSentenceSuccess Opcode = 71
	RewriteSentenceFailure Opcode = 73

	WriteParagraphRequest Opcode = 80
	WriteParagraphSuccess Opcode = 81
	WriteParagraphFailure Opcode = 83

	SpeakingTopicRequest Opcode = 90
	SpeakingTopicSuccess Opcode = 91
	SpeakingTopicFailure Opcode = 93

	LoginRequest Opcode = 100
	LoginSuccess Opcode = 101
	LoginFailure Opcode = 103

	LessonListRequest Opcode = 110
	LessonListSuccess Opcode = 111
	LessonListFailure Opcode = 113

	StudyLessonRequest Opcode = 120
	StudyLessonSuccess Opcode = 121
	StudyLessonFailure Opcode = 123

	ExerciseListRequest Opcode = 130
	ExerciseListSuccess Opcode = 131
	ExerciseListFailure Opcode = 133

	NotificationPush Opcode = 140

	ResultListRequest Opcode = 150
	ResultListSuccess Opcode = 151
	ResultListFailure Opcode = 153

	SubmitAnswerRequest Opcode = 160
	SubmitAnswerSuccess Opcode = 161
	SubmitAnswerFailure Opcode = 163

	StudyExerciseRequest Opcode = 170
	StudyExerciseSuccess Opcode = 171
	StudyExerciseFailure Opcode = 173

	ExamListRequest Opcode = 180
	ExamListSuccess Opcode = 181
	ExamListFailure Opcode = 183

	ExamRequest       Opcode = 190
	ExamSuccess       Opcode = 191
	ExamFailure       Opcode = 193
	ExamAlreadyTaken  Opcode = 194
	ExamReviewRequest Opcode = 195

	LogoutRequest Opcode = 200
	LogoutSuccess Opcode = 201
	LogoutFailure Opcode = 203

	RegisterRequest Opcode = 210
	RegisterSuccess Opcode = 211
	RegisterFailure Opcode = 213

	ResultDetailRequest Opcode = 220
	ResultDetailSuccess Opcode = 221
	ResultDetailFailure Opcode = 223

	GradeSubmissionRequest Opcode = 230
	GradeSubmissionSuccess Opcode = 231
	GradeSubmissionFailure Opcode = 233

	AddFeedbackRequest Opcode = 240
	AddFeedbackSuccess Opcode = 241
	AddFeedbackFailure Opcode = 243

	PendingSubmissionsRequest Opcode = 250
	PendingSubmissionsSuccess Opcode = 251
	PendingSubmissionsFailure Opcode = 253

	SendChatPrivateRequest Opcode = 300
	ChatMessageSuccess     Opcode = 301
	ChatMessageFailure     Opcode = 303
	ChatPrivateReceive     Opcode = 304

	ChatHistoryRequest Opcode = 310
	ChatHistorySuccess Opcode = 311
	ChatHistoryFailure Opcode = 313

	RecentChatsRequest Opcode = 320
	RecentChatsSuccess Opcode = 321
	RecentChatsFailure Opcode = 323

	CallInitiateRequest Opcode = 400
	CallInitiateSuccess Opcode = 401
	CallInitiateFailure Opcode = 403
	CallIncoming        Opcode = 404

	CallAnswerRequest Opcode = 410
	CallAnswerSuccess Opcode = 411
	CallAnswerFailure Opcode = 413
	CallAccepted      Opcode = 414

	CallDeclineRequest Opcode = 420
	CallDeclineSuccess Opcode = 421
	CallDeclineFailure Opcode = 423

	CallEndRequest Opcode = 430
	CallEndSuccess Opcode = 431
	CallEndFailure Opcode = 433
	CallEnded      Opcode = 434

	GameListRequest Opcode = 500
	GameListSuccess Opcode = 501
	GameListFailure Opcode = 503

	GameLevelListRequest Opcode = 510
	GameLevelListSuccess Opcode = 511
	GameLevelListFailure Opcode = 513

	GameDataRequest Opcode = 520
	GameDataSuccess Opcode = 521
	GameDataFailure Opcode = 523

	GameSubmitRequest Opcode = 530
	GameSubmitSuccess Opcode = 531
	GameSubmitFailure Opcode = 533

	GameCreateRequest Opcode = 540
	GameCreateSuccess Opcode = 541
	GameCreateFailure Opcode = 543

	GameUpdateRequest Opcode = 550
	GameUpdateSuccess Opcode = 551
	GameUpdateFailure Opcode = 553

	GameDeleteRequest Opcode = 560
	GameDeleteSuccess Opcode = 561
	GameDeleteFailure Opcode = 563

	Heartbeat         Opcode = 900
	DisconnectRequest Opcode = 901
	DisconnectAck     Opcode = 902

	GeneralFailure        Opcode = 9993
	UnknownCommandFailure Opcode = 9994
)

var names = map[Opcode]string{
	MultipleChoiceRequest: "MULTIPLE_CHOICE_REQUEST", MultipleChoiceSuccess: "MULTIPLE_CHOICE_SUCCESS", MultipleChoiceFailure: "MULTIPLE_CHOICE_FAILURE",
	FillInRequest: "FILL_IN_REQUEST", FillInSuccess: "FILL_IN_SUCCESS", FillInFailure: "FILL_IN_FAILURE",
	SentenceOrderRequest: "SENTENCE_ORDER_REQUEST", SentenceOrderSuccess: "SENTENCE_ORDER_SUCCESS", SentenceOrderFailure: "SENTENCE_ORDER_FAILURE",
	RewriteSentenceRequest: "REWRITE_SENTENCE_REQUEST", RewriteSentenceSuccess: "REWRITE_SENTENCE_SUCCESS", RewriteSentenceFailure: "REWRITE_SENTENCE_FAILURE",
	WriteParagraphRequest: "WRITE_PARAGRAPH_REQUEST", WriteParagraphSuccess: "WRITE_PARAGRAPH_SUCCESS", WriteParagraphFailure: "WRITE_PARAGRAPH_FAILURE",
	SpeakingTopicRequest: "SPEAKING_TOPIC_REQUEST", SpeakingTopicSuccess: "SPEAKING_TOPIC_SUCCESS", SpeakingTopicFailure: "SPEAKING_TOPIC_FAILURE",
	LoginRequest: "LOGIN_REQUEST", LoginSuccess: "LOGIN_SUCCESS", LoginFailure: "LOGIN_FAILURE",
	LessonListRequest: "LESSON_LIST_REQUEST", LessonListSuccess: "LESSON_LIST_SUCCESS", LessonListFailure: "LESSON_LIST_FAILURE",
	StudyLessonRequest: "STUDY_LESSON_REQUEST", StudyLessonSuccess: "STUDY_LESSON_SUCCESS", StudyLessonFailure: "STUDY_LESSON_FAILURE",
	ExerciseListRequest: "EXERCISE_LIST_REQUEST", ExerciseListSuccess: "EXERCISE_LIST_SUCCESS", ExerciseListFailure: "EXERCISE_LIST_FAILURE",
	NotificationPush:  "NOTIFICATION_PUSH",
	ResultListRequest: "RESULT_LIST_REQUEST", ResultListSuccess: "RESULT_LIST_SUCCESS", ResultListFailure: "RESULT_LIST_FAILURE",
	SubmitAnswerRequest: "SUBMIT_ANSWER_REQUEST", SubmitAnswerSuccess: "SUBMIT_ANSWER_SUCCESS", SubmitAnswerFailure: "SUBMIT_ANSWER_FAILURE",
	StudyExerciseRequest: "STUDY_EXERCISE_REQUEST", StudyExerciseSuccess: "STUDY_EXERCISE_SUCCESS", StudyExerciseFailure: "STUDY_EXERCISE_FAILURE",
	ExamListRequest: "EXAM_LIST_REQUEST", ExamListSuccess: "EXAM_LIST_SUCCESS", ExamListFailure: "EXAM_LIST_FAILURE",
	ExamRequest: "EXAM_REQUEST", ExamSuccess: "EXAM_SUCCESS", ExamFailure: "EXAM_FAILURE",
	ExamAlreadyTaken: "EXAM_ALREADY_TAKEN", ExamReviewRequest: "EXAM_REVIEW_REQUEST",
	LogoutRequest: "LOGOUT_REQUEST", LogoutSuccess: "LOGOUT_SUCCESS", LogoutFailure: "LOGOUT_FAILURE",
	RegisterRequest: "REGISTER_REQUEST", RegisterSuccess: "REGISTER_SUCCESS", RegisterFailure: "REGISTER_FAILURE",
	ResultDetailRequest: "RESULT_DETAIL_REQUEST", ResultDetailSuccess: "RESULT_DETAIL_SUCCESS", ResultDetailFailure: "RESULT_DETAIL_FAILURE",
	GradeSubmissionRequest: "GRADE_SUBMISSION_REQUEST", GradeSubmissionSuccess: "GRADE_SUBMISSION_SUCCESS", GradeSubmissionFailure: "GRADE_SUBMISSION_FAILURE",
	AddFeedbackRequest: "ADD_FEEDBACK_REQUEST", AddFeedbackSuccess: "ADD_FEEDBACK_SUCCESS", AddFeedbackFailure: "ADD_FEEDBACK_FAILURE",
	PendingSubmissionsRequest: "PENDING_SUBMISSIONS_REQUEST", PendingSubmissionsSuccess: "PENDING_SUBMISSIONS_SUCCESS", PendingSubmissionsFailure: "PENDING_SUBMISSIONS_FAILURE",
	SendChatPrivateRequest: "SEND_CHAT_PRIVATE_REQUEST", ChatMessageSuccess: "CHAT_MESSAGE_SUCCESS", ChatMessageFailure: "CHAT_MESSAGE_FAILURE",
	ChatPrivateReceive: "CHAT_PRIVATE_RECEIVE",
	ChatHistoryRequest: "CHAT_HISTORY_REQUEST", ChatHistorySuccess: "CHAT_HISTORY_SUCCESS", ChatHistoryFailure: "CHAT_HISTORY_FAILURE",
	RecentChatsRequest: "RECENT_CHATS_REQUEST", RecentChatsSuccess: "RECENT_CHATS_SUCCESS", RecentChatsFailure: "RECENT_CHATS_FAILURE",
	CallInitiateRequest: "CALL_INITIATE_REQUEST", CallInitiateSuccess: "CALL_INITIATE_SUCCESS", CallInitiateFailure: "CALL_INITIATE_FAILURE",
	CallIncoming:      "CALL_INCOMING",
	CallAnswerRequest: "CALL_ANSWER_REQUEST", CallAnswerSuccess: "CALL_ANSWER_SUCCESS", CallAnswerFailure: "CALL_ANSWER_FAILURE",
	CallAccepted:       "CALL_ACCEPTED",
	CallDeclineRequest: "CALL_DECLINE_REQUEST", CallDeclineSuccess: "CALL_DECLINE_SUCCESS", CallDeclineFailure: "CALL_DECLINE_FAILURE",
	CallEndRequest: "CALL_END_REQUEST", CallEndSuccess: "CALL_END_SUCCESS", CallEndFailure: "CALL_END_FAILURE",
	CallEnded:       "CALL_ENDED",
	GameListRequest: "GAME_LIST_REQUEST", GameListSuccess: "GAME_LIST_SUCCESS", GameListFailure: "GAME_LIST_FAILURE",
	GameLevelListRequest: "GAME_LEVEL_LIST_REQUEST", GameLevelListSuccess: "GAME_LEVEL_LIST_SUCCESS", GameLevelListFailure: "GAME_LEVEL_LIST_FAILURE",
	GameDataRequest: "GAME_DATA_REQUEST", GameDataSuccess: "GAME_DATA_SUCCESS", GameDataFailure: "GAME_DATA_FAILURE",
	GameSubmitRequest: "GAME_SUBMIT_REQUEST", GameSubmitSuccess: "GAME_SUBMIT_SUCCESS", GameSubmitFailure: "GAME_SUBMIT_FAILURE",
	GameCreateRequest: "GAME_CREATE_REQUEST", GameCreateSuccess: "GAME_CREATE_SUCCESS", GameCreateFailure: "GAME_CREATE_FAILURE",
	GameUpdateRequest: "GAME_UPDATE_REQUEST", GameUpdateSuccess: "GAME_UPDATE_SUCCESS", GameUpdateFailure: "GAME_UPDATE_FAILURE",
	GameDeleteRequest: "GAME_DELETE_REQUEST", GameDeleteSuccess: "GAME_DELETE_SUCCESS", GameDeleteFailure: "GAME_DELETE_FAILURE",
	Heartbeat: "HEARTBEAT", DisconnectRequest: "DISCONNECT_REQUEST", DisconnectAck: "DISCONNECT_ACK",
	GeneralFailure: "GENERAL_FAILURE", UnknownCommandFailure: "UNKNOWN_COMMAND_FAILURE",
}

func (o Opcode) String() string {
	if n, ok := names[o]; ok {
		return n
	}
	return "OPCODE_" + strconv.Itoa(int(o))
}

// Known reports whether o is part of the protocol.
func (o Opcode) Known() bool {
	_, ok := names[o]
	return ok
}

// IsPush reports whether the server sends o unsolicited rather than as a
// reply.
func (o Opcode) IsPush() bool {
	switch o {
	case NotificationPush, ChatPrivateReceive, CallIncoming, CallAccepted, CallEnded:
		return true
	}
	return false
}

// familyOf maps each request onto its success and failure replies. The
// exam review request shares the exam replies.
var familyOf = map[Opcode][2]Opcode{
	MultipleChoiceRequest:     {MultipleChoiceSuccess, MultipleChoiceFailure},
	FillInRequest:             {FillInSuccess, FillInFailure},
	SentenceOrderRequest:      {SentenceOrderSuccess, SentenceOrderFailure},
	RewriteSentenceRequest:    {RewriteSentenceSuccess, RewriteSentenceFailure},
	WriteParagraphRequest:     {WriteParagraphSuccess, WriteParagraphFailure},
	SpeakingTopicRequest:      {SpeakingTopicSuccess, SpeakingTopicFailure},
	LoginRequest:              {LoginSuccess, LoginFailure},
	LessonListRequest:         {LessonListSuccess, LessonListFailure},
	StudyLessonRequest:        {StudyLessonSuccess, StudyLessonFailure},
	ExerciseListRequest:       {ExerciseListSuccess, ExerciseListFailure},
	ResultListRequest:         {ResultListSuccess, ResultListFailure},
	SubmitAnswerRequest:       {SubmitAnswerSuccess, SubmitAnswerFailure},
	StudyExerciseRequest:      {StudyExerciseSuccess, StudyExerciseFailure},
	ExamListRequest:           {ExamListSuccess, ExamListFailure},
	ExamRequest:               {ExamSuccess, ExamFailure},
	ExamReviewRequest:         {ExamSuccess, ExamFailure},
	LogoutRequest:             {LogoutSuccess, LogoutFailure},
	RegisterRequest:           {RegisterSuccess, RegisterFailure},
	ResultDetailRequest:       {ResultDetailSuccess, ResultDetailFailure},
	GradeSubmissionRequest:    {GradeSubmissionSuccess, GradeSubmissionFailure},
	AddFeedbackRequest:        {AddFeedbackSuccess, AddFeedbackFailure},
	PendingSubmissionsRequest: {PendingSubmissionsSuccess, PendingSubmissionsFailure},
	SendChatPrivateRequest:    {ChatMessageSuccess, ChatMessageFailure},
	ChatHistoryRequest:        {ChatHistorySuccess, ChatHistoryFailure},
	RecentChatsRequest:        {RecentChatsSuccess, RecentChatsFailure},
	CallInitiateRequest:       {CallInitiateSuccess, CallInitiateFailure},
	CallAnswerRequest:         {CallAnswerSuccess, CallAnswerFailure},
	CallDeclineRequest:        {CallDeclineSuccess, CallDeclineFailure},
	CallEndRequest:            {CallEndSuccess, CallEndFailure},
	GameListRequest:           {GameListSuccess, GameListFailure},
	GameLevelListRequest:      {GameLevelListSuccess, GameLevelListFailure},
	GameDataRequest:           {GameDataSuccess, GameDataFailure},
	GameSubmitRequest:         {GameSubmitSuccess, GameSubmitFailure},
	GameCreateRequest:         {GameCreateSuccess, GameCreateFailure},
	GameUpdateRequest:         {GameUpdateSuccess, GameUpdateFailure},
	GameDeleteRequest:         {GameDeleteSuccess, GameDeleteFailure},
	DisconnectRequest:         {DisconnectAck, GeneralFailure},
}

// SuccessFor returns the success reply of request o, or GeneralFailure
// when o has none.
func SuccessFor(o Opcode) Opcode {
	if f, ok := familyOf[o]; ok {
		return f[0]
	}
	return GeneralFailure
}

// FailureFor returns the family failure of request o, or GeneralFailure.
func FailureFor(o Opcode) Opcode {
	if f, ok := familyOf[o]; ok {
		return f[1]
	}
	return GeneralFailure
}
