package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"lingualink/internal/protocol"
)

// UI is the menu-driven terminal front end. Pushes are printed as they
// arrive, between prompts.
type UI struct {
	c     *Client
	store *Store
	addr  string
	in    *bufio.Reader

	outMu sync.Mutex
	out   io.Writer
}

type action struct {
	label string
	roles []string
	run   func(ctx context.Context) error
}

// NewUI builds a UI over c. store may be nil.
func NewUI(c *Client, store *Store, addr string, in io.Reader, out io.Writer) *UI {
	return &UI{c: c, store: store, addr: addr, in: bufio.NewReader(in), out: out}
}

// Run loops over the menus until the user exits, input ends or the
// connection drops.
func (u *UI) Run(ctx context.Context) error {
	go u.printPushes()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-u.c.Done():
			u.printf("\nConnection closed by server.\n")
			return u.c.Err()
		default:
		}

		var actions []action
		if u.c.Token() == "" {
			actions = u.guestActions()
		} else {
			actions = u.memberActions(u.c.Role())
		}

		u.printf("\n")
		for i, a := range actions {
			u.printf("%d. %s\n", i+1, a.label)
		}
		line, err := u.prompt("Choice")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(actions) {
			u.printf("Invalid choice.\n")
			continue
		}
		if err := actions[n-1].run(ctx); err != nil {
			if errors.Is(err, errExit) || errors.Is(err, io.EOF) {
				return nil
			}
			u.report(err)
			if errors.Is(err, ErrClosed) {
				return err
			}
		}
	}
}

var errExit = errors.New("exit")

func (u *UI) guestActions() []action {
	return []action{
		{label: "Login", run: u.login},
		{label: "Register", run: u.register},
		{label: "Exit", run: func(context.Context) error { return errExit }},
	}
}

func (u *UI) memberActions(role string) []action {
	all := []action{
		{label: "View lessons", run: u.lessons},
		{label: "Study lesson", run: u.studyLesson},
		{label: "View exercises", run: u.exercises},
		{label: "Do exercise", roles: []string{"student"}, run: u.doExercise},
		{label: "View exams", run: u.exams},
		{label: "Take exam", roles: []string{"student"}, run: u.takeExam},
		{label: "View results", run: u.results},
		{label: "Result detail", run: u.resultDetail},
		{label: "Pending submissions", roles: []string{"teacher", "admin"}, run: u.pending},
		{label: "Grade submission", roles: []string{"teacher", "admin"}, run: u.grade},
		{label: "Add feedback", roles: []string{"teacher", "admin"}, run: u.feedback},
		{label: "Send message", run: u.sendMessage},
		{label: "Chat history", run: u.history},
		{label: "Recent chats", run: u.recent},
		{label: "Call user", run: u.callOp(protocol.CallInitiateRequest, "Call whom")},
		{label: "Answer call", run: u.callOp(protocol.CallAnswerRequest, "Caller")},
		{label: "Decline call", run: u.callOp(protocol.CallDeclineRequest, "Caller")},
		{label: "End call", run: u.callOp(protocol.CallEndRequest, "Peer")},
		{label: "Games", run: u.games},
		{label: "Create game", roles: []string{"admin"}, run: u.createGame},
		{label: "Update game", roles: []string{"admin"}, run: u.updateGame},
		{label: "Delete game", roles: []string{"admin"}, run: u.deleteGame},
		{label: "Logout", run: u.logout},
		{label: "Exit", run: func(context.Context) error { return errExit }},
	}
	var out []action
	for _, a := range all {
		if a.roles == nil || contains(a.roles, role) {
			out = append(out, a)
		}
	}
	return out
}

func (u *UI) login(ctx context.Context) error {
	def := ""
	if u.store != nil {
		if p, ok, _ := u.store.Load(u.addr); ok {
			def = p.Username
		}
	}
	label := "Username"
	if def != "" {
		label = fmt.Sprintf("Username [%s]", def)
	}
	name, err := u.prompt(label)
	if err != nil {
		return err
	}
	if name == "" {
		name = def
	}
	pw, err := u.prompt("Password")
	if err != nil {
		return err
	}
	reply, err := u.c.Login(ctx, name, pw)
	if err != nil {
		return err
	}
	if u.store != nil {
		_ = u.store.Save(u.addr, Profile{Username: name, Token: reply.Token})
	}
	u.printf("Logged in as %s (%s).\n", name, reply.Role)
	return nil
}

func (u *UI) register(ctx context.Context) error {
	name, err := u.prompt("Username")
	if err != nil {
		return err
	}
	pw, err := u.prompt("Password")
	if err != nil {
		return err
	}
	if err := u.c.Register(ctx, name, pw); err != nil {
		return err
	}
	u.printf("Registration successful. You can log in now.\n")
	return nil
}

func (u *UI) logout(ctx context.Context) error {
	if err := u.c.Logout(ctx); err != nil {
		return err
	}
	if u.store != nil {
		_ = u.store.ForgetToken(u.addr)
	}
	u.printf("Logged out.\n")
	return nil
}

func (u *UI) lessons(ctx context.Context) error {
	vals, err := u.prompts("Topic (blank for all)", "Level (blank for all)")
	if err != nil {
		return err
	}
	body, err := u.c.Authed(ctx, protocol.LessonListRequest, vals...)
	if err != nil {
		return err
	}
	records := protocol.ParseCountedList(body)
	u.printf("%d lesson(s)\n", len(records))
	for _, r := range records {
		var l protocol.LessonSummary
		l.Decode(r)
		u.printf("  [%d] %s (%s, %s)\n", l.ID, l.Title, l.Topic, l.Level)
	}
	return nil
}

func (u *UI) studyLesson(ctx context.Context) error {
	vals, err := u.prompts("Lesson id", "Kind (full/video/audio/text/vocabulary/grammar)")
	if err != nil {
		return err
	}
	if vals[1] == "" {
		vals[1] = "full"
	}
	body, err := u.c.Authed(ctx, protocol.StudyLessonRequest, vals...)
	if err != nil {
		return err
	}
	if vals[1] == "full" {
		var l protocol.LessonFull
		l.Decode(body)
		u.printf("%s [%s, %s]\nVideo: %s\nAudio: %s\n\n%s\n", l.Title, l.Topic, l.Level, l.VideoURL, l.AudioURL, l.Text)
		u.printList("Vocabulary", l.Vocabulary)
		u.printList("Grammar", l.Grammar)
		return nil
	}
	var p protocol.LessonProjection
	p.Decode(body)
	u.printf("%s (%s)\n", p.Title, p.Kind)
	u.printList("", protocol.Split(p.Content, protocol.ItemSep))
	return nil
}

func (u *UI) exercises(ctx context.Context) error {
	return u.contentList(ctx, protocol.ExerciseListRequest, "exercise")
}

func (u *UI) exams(ctx context.Context) error {
	return u.contentList(ctx, protocol.ExamListRequest, "exam")
}

func (u *UI) contentList(ctx context.Context, op protocol.Opcode, noun string) error {
	vals, err := u.prompts("Type (blank for all)", "Level (blank for all)", "Lesson id (blank for all)")
	if err != nil {
		return err
	}
	body, err := u.c.Authed(ctx, op, vals...)
	if err != nil {
		return err
	}
	records := protocol.ParseCountedList(body)
	u.printf("%d %s(s)\n", len(records), noun)
	for _, r := range records {
		var c protocol.ContentSummary
		c.Decode(r)
		u.printf("  [%d] %s (%s, %s, lesson %d)\n", c.ID, c.Title, c.Type, c.Level, c.LessonID)
	}
	return nil
}

func (u *UI) doExercise(ctx context.Context) error {
	return u.answerContent(ctx, protocol.StudyExerciseRequest, "exercise")
}

func (u *UI) takeExam(ctx context.Context) error {
	return u.answerContent(ctx, protocol.ExamRequest, "exam")
}

// answerContent fetches an exercise or exam, asks every question and
// submits the joined answers.
func (u *UI) answerContent(ctx context.Context, fetch protocol.Opcode, target string) error {
	id, err := u.prompt(strings.ToUpper(target[:1]) + target[1:] + " id")
	if err != nil {
		return err
	}
	body, err := u.c.Authed(ctx, fetch, id)
	if err != nil {
		return err
	}
	var detail protocol.ContentDetail
	detail.Decode(body)
	u.printf("%s (%s, %s)\n", detail.Title, detail.Type, detail.Level)

	answers := make([]string, len(detail.Questions))
	for i, q := range detail.Questions {
		u.printf("\nQ%d. %s\n", i+1, q.Text)
		for j, o := range q.Options {
			if o != "" {
				u.printf("   %c) %s\n", 'a'+j, o)
			}
		}
		if answers[i], err = u.prompt("Answer"); err != nil {
			return err
		}
	}

	reply, err := u.c.Authed(ctx, protocol.SubmitAnswerRequest, target, id, strings.Join(answers, protocol.QuestionSep))
	if err != nil {
		return err
	}
	var r protocol.SubmitReply
	r.Decode(reply)
	u.printf("Status: %s  Score: %s\n%s\n", r.Status, protocol.FormatScore(r.Score), r.Feedback)
	return nil
}

func (u *UI) results(ctx context.Context) error {
	kind, err := u.prompt("Target type (exercise/exam, blank for all)")
	if err != nil {
		return err
	}
	body, err := u.c.Authed(ctx, protocol.ResultListRequest, kind)
	if err != nil {
		return err
	}
	records := protocol.ParseCountedList(body)
	u.printf("%d result(s)\n", len(records))
	for _, rec := range records {
		var r protocol.ResultSummary
		r.Decode(rec)
		u.printf("  [%d] %s %d  score %s  %s  %s\n", r.ID, r.TargetType, r.TargetID,
			protocol.FormatScore(r.Score), r.Status, r.SubmittedAt)
	}
	return nil
}

func (u *UI) resultDetail(ctx context.Context) error {
	vals, err := u.prompts("Target type", "Target id")
	if err != nil {
		return err
	}
	body, err := u.c.Authed(ctx, protocol.ResultDetailRequest, vals...)
	if err != nil {
		return err
	}
	var d protocol.ResultDetail
	d.Decode(body)
	u.printf("%s %d: %s\nStatus: %s  Score: %s  Submitted: %s\nFeedback: %s\n",
		d.TargetType, d.TargetID, d.Title, d.Status, protocol.FormatScore(d.Score), d.SubmittedAt, d.Feedback)
	for i, q := range d.Questions {
		u.printf("  Q%d %s\n     yours: %s  correct: %s  %s %s %s\n",
			i+1, q.Question, q.UserAnswer, q.Correct, q.Status, q.Score, q.Comment)
	}
	if len(d.Attempts) > 0 {
		u.printf("Attempts:\n")
		for _, a := range d.Attempts {
			u.printf("  #%d score %s %s %s\n", a.ID, protocol.FormatScore(a.Score), a.Status, a.SubmittedAt)
		}
	}
	return nil
}

func (u *UI) pending(ctx context.Context) error {
	status, err := u.prompt("Status (blank for pending)")
	if err != nil {
		return err
	}
	body, err := u.c.Authed(ctx, protocol.PendingSubmissionsRequest, status)
	if err != nil {
		return err
	}
	records := protocol.ParseCountedList(body)
	u.printf("%d submission(s)\n", len(records))
	for _, rec := range records {
		var s protocol.SubmissionSummary
		s.Decode(rec)
		u.printf("  [%d] %s  %s %d  %s  %s\n      %s\n", s.ResultID, s.Username, s.TargetType,
			s.TargetID, s.Status, s.SubmittedAt, s.UserAnswer)
	}
	return nil
}

func (u *UI) grade(ctx context.Context) error {
	vals, err := u.prompts("Result id", "Student user id", "Score (0-10)", "Feedback",
		"Per-question details (score,comment|..., optional)")
	if err != nil {
		return err
	}
	if _, err := u.c.Authed(ctx, protocol.GradeSubmissionRequest, vals...); err != nil {
		return err
	}
	u.printf("Submission graded.\n")
	return nil
}

func (u *UI) feedback(ctx context.Context) error {
	vals, err := u.prompts("Result id", "Kind (text/audio)", "Content")
	if err != nil {
		return err
	}
	if _, err := u.c.Authed(ctx, protocol.AddFeedbackRequest, vals...); err != nil {
		return err
	}
	u.printf("Feedback added.\n")
	return nil
}

func (u *UI) sendMessage(ctx context.Context) error {
	vals, err := u.prompts("To", "Message")
	if err != nil {
		return err
	}
	_, err = u.c.Authed(ctx, protocol.SendChatPrivateRequest, vals[0], "text", vals[1])
	if err != nil {
		return err
	}
	u.printf("Message sent.\n")
	return nil
}

func (u *UI) history(ctx context.Context) error {
	other, err := u.prompt("With")
	if err != nil {
		return err
	}
	body, err := u.c.Authed(ctx, protocol.ChatHistoryRequest, other, "50", "0")
	if err != nil {
		return err
	}
	for _, rec := range protocol.ParseCountedList(body) {
		var e protocol.ChatEntry
		e.Decode(rec)
		u.printf("  %s %s: %s\n", e.Timestamp, e.Sender, e.Content)
	}
	return nil
}

func (u *UI) recent(ctx context.Context) error {
	body, err := u.c.Authed(ctx, protocol.RecentChatsRequest)
	if err != nil {
		return err
	}
	records := protocol.ParseCountedList(body)
	u.printf("%d conversation(s)\n", len(records))
	for _, rec := range records {
		var c protocol.ConversationSummary
		c.Decode(rec)
		u.printf("  %s (%s): %s\n", c.Username, c.Timestamp, c.LastMessage)
	}
	return nil
}

func (u *UI) callOp(op protocol.Opcode, label string) func(context.Context) error {
	return func(ctx context.Context) error {
		peer, err := u.prompt(label)
		if err != nil {
			return err
		}
		body, err := u.c.Authed(ctx, op, peer)
		if err != nil {
			return err
		}
		u.printf("Call %s.\n", body)
		return nil
	}
}

func (u *UI) games(ctx context.Context) error {
	body, err := u.c.Authed(ctx, protocol.GameListRequest)
	if err != nil {
		return err
	}
	for _, rec := range protocol.ParseCountedList(body) {
		var g protocol.GameSummary
		g.Decode(rec)
		u.printf("  %s: %s\n", g.Type, g.Description)
	}
	kind, err := u.prompt("Game type (blank to go back)")
	if err != nil || kind == "" {
		return err
	}
	body, err = u.c.Authed(ctx, protocol.GameLevelListRequest, kind)
	if err != nil {
		return err
	}
	for _, rec := range protocol.ParseCountedList(body) {
		var l protocol.GameLevel
		l.Decode(rec)
		u.printf("  [%d] level %s (%s)\n", l.ID, l.Level, l.Status)
	}
	id, err := u.prompt("Game id (blank to go back)")
	if err != nil || id == "" {
		return err
	}
	body, err = u.c.Authed(ctx, protocol.GameDataRequest, id)
	if err != nil {
		return err
	}
	var data protocol.GameData
	data.Decode(body)
	u.printf("%s level %s\n%s\n", data.Type, data.Level, data.QuestionJSON)

	answers, err := u.prompt("Answers JSON")
	if err != nil {
		return err
	}
	body, err = u.c.Authed(ctx, protocol.GameSubmitRequest, id, "", answers)
	if err != nil {
		return err
	}
	var r protocol.GameSubmitReply
	r.Decode(body)
	u.printf("Score %s. %s\n", protocol.FormatScore(r.Score), r.Message)
	return nil
}

func (u *UI) createGame(ctx context.Context) error {
	vals, err := u.prompts("Type", "Level", "Questions JSON")
	if err != nil {
		return err
	}
	id, err := u.c.Authed(ctx, protocol.GameCreateRequest, vals...)
	if err != nil {
		return err
	}
	u.printf("Game %s created.\n", id)
	return nil
}

func (u *UI) updateGame(ctx context.Context) error {
	vals, err := u.prompts("Game id", "Type", "Level", "Questions JSON")
	if err != nil {
		return err
	}
	if _, err := u.c.Authed(ctx, protocol.GameUpdateRequest, vals...); err != nil {
		return err
	}
	u.printf("Game updated.\n")
	return nil
}

func (u *UI) deleteGame(ctx context.Context) error {
	id, err := u.prompt("Game id")
	if err != nil {
		return err
	}
	if _, err := u.c.Authed(ctx, protocol.GameDeleteRequest, id); err != nil {
		return err
	}
	u.printf("Game deleted.\n")
	return nil
}

func (u *UI) printPushes() {
	for f := range u.c.Pushes() {
		u.printf("\n%s\n", DescribePush(f))
	}
}

// DescribePush renders a pushed frame as one line for the terminal.
func DescribePush(f protocol.Frame) string {
	body := string(f.Payload)
	switch f.Opcode {
	case protocol.ChatPrivateReceive:
		var d protocol.ChatDelivery
		d.Decode(body)
		return fmt.Sprintf("[chat] user %d: %s", d.SenderID, d.Content)
	case protocol.CallIncoming:
		var n protocol.CallIncomingNotice
		n.Decode(body)
		return fmt.Sprintf("[call] incoming call from %s", n.Caller)
	case protocol.CallAccepted:
		return fmt.Sprintf("[call] %s accepted your call", body)
	case protocol.CallEnded:
		var n protocol.CallEndedNotice
		n.Decode(body)
		return fmt.Sprintf("[call] %s (%s)", n.Outcome, n.Peer)
	case protocol.NotificationPush:
		var n protocol.Notification
		n.Decode(body)
		if n.Kind == protocol.NotifyGraded {
			return fmt.Sprintf("[notice] result %d graded: %s", n.ResultID, n.Score)
		}
		return fmt.Sprintf("[notice] new %s on result %d", n.Kind, n.ResultID)
	}
	return fmt.Sprintf("[%s] %s", f.Opcode, body)
}

func (u *UI) prompt(label string) (string, error) {
	u.printf("%s: ", label)
	line, err := u.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (u *UI) prompts(labels ...string) ([]string, error) {
	out := make([]string, len(labels))
	for i, l := range labels {
		v, err := u.prompt(l)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (u *UI) printList(title string, items []string) {
	if title != "" {
		u.printf("%s:\n", title)
	}
	for _, it := range items {
		if it != "" {
			u.printf("  - %s\n", it)
		}
	}
}

func (u *UI) report(err error) {
	var re *ReplyError
	if errors.As(err, &re) {
		u.printf("Failed: %s\n", re.Reason)
		return
	}
	u.printf("Error: %v\n", err)
}

func (u *UI) printf(format string, args ...any) {
	u.outMu.Lock()
	defer u.outMu.Unlock()
	fmt.Fprintf(u.out, format, args...)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
