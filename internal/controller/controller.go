// Package controller implements the request handlers behind each opcode.
// Controllers are stateless apart from the shared stores they are given;
// replies go back through the router Request and pushes through the
// connection registry.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lingualink/internal/call"
	"lingualink/internal/game"
	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/registry"
	"lingualink/internal/repository"
	"lingualink/internal/router"
	"lingualink/internal/session"
	"lingualink/pkg/interfaces"
)

// Failure reasons shared by several families.
const (
	reasonInvalidSession = "Invalid session"
	reasonInternal       = "Internal error"
)

// Deps are the collaborators every controller draws from.
type Deps struct {
	Repos          *repository.Repositories
	Sessions       *session.Manager
	Registry       *registry.Registry
	Calls          *call.Manager
	Images         *game.Inliner
	PasswordPolicy string
	Logger         logger.Logger
	Now            func() time.Time
}

// base carries what every handler needs to authenticate and reply.
type base struct {
	sessions *session.Manager
	logger   logger.Logger
	now      func() time.Time
}

func newBase(d Deps, name string) base {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return base{sessions: d.Sessions, logger: d.Logger.With(logger.Component(name)), now: now}
}

// session returns the caller's session if token is the one bound to this
// connection, and extends it.
func (b *base) session(req *router.Request, token string) (session.Session, bool) {
	if req.Session == nil || token == "" || token != req.Session.Token {
		return session.Session{}, false
	}
	if !b.sessions.Touch(token) {
		return session.Session{}, false
	}
	return *req.Session, true
}

// Routes maps the opcodes a controller serves to their handlers.
type Routes map[protocol.Opcode]router.Handler

// Controllers is the full handler set plus the lifecycle hooks the
// server and scheduler call.
type Controllers struct {
	Auth       *Auth
	Lessons    *Lessons
	Exercises  *Exercises
	Exams      *Exams
	Submission *Submission
	Results    *Results
	Feedback   *Feedback
	Chat       *Chat
	Call       *Call
	Games      *Games

	registry *registry.Registry
	sessions *session.Manager
	logger   logger.Logger
}

func New(d Deps) *Controllers {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	calls := NewCall(d)
	c := &Controllers{
		Lessons:    NewLessons(d),
		Exercises:  NewExercises(d),
		Exams:      NewExams(d),
		Submission: NewSubmission(d),
		Results:    NewResults(d),
		Feedback:   NewFeedback(d),
		Chat:       NewChat(d),
		Call:       calls,
		Games:      NewGames(d),
		registry:   d.Registry,
		sessions:   d.Sessions,
		logger:     d.Logger.With(logger.Component("controller")),
	}
	c.Auth = NewAuth(d, c.userLeft)
	return c
}

// Register installs every handler on r.
func (c *Controllers) Register(r *router.Router) error {
	sets := []Routes{
		c.Auth.Routes(), c.Lessons.Routes(), c.Exercises.Routes(), c.Exams.Routes(),
		c.Submission.Routes(), c.Results.Routes(), c.Feedback.Routes(),
		c.Chat.Routes(), c.Call.Routes(), c.Games.Routes(),
	}
	for _, routes := range sets {
		for op, h := range routes {
			if err := r.Handle(op, h); err != nil {
				return fmt.Errorf("register %s: %w", op, err)
			}
		}
	}
	return nil
}

// ConnectionClosed drops the session and registry entry of a closed
// connection and tears down call state if the user has no other
// connection left.
func (c *Controllers) ConnectionClosed(ctx context.Context, connID uint32) {
	s, had := c.sessions.RemoveByConnection(ctx, connID)
	c.registry.Remove(connID)
	if had {
		c.userLeft(ctx, s)
	}
}

// SessionsExpired unbinds connections whose sessions were swept. The
// connections stay open but unauthenticated.
func (c *Controllers) SessionsExpired(ctx context.Context, expired []session.Session) {
	for _, s := range expired {
		c.registry.Unbind(s.ConnectionID)
		c.logger.Info("session expired",
			logger.Int64("user_id", s.UserID), logger.Uint32("conn_id", s.ConnectionID))
		c.userLeft(ctx, s)
	}
}

// CallTimeouts expires unanswered calls.
func (c *Controllers) CallTimeouts(ctx context.Context) {
	c.Call.SweepTimeouts(ctx)
}

func (c *Controllers) userLeft(ctx context.Context, s session.Session) {
	if c.registry.Online(s.UserID) {
		return
	}
	c.Call.Leave(ctx, call.Party{ID: s.UserID, Username: s.Username})
}

// isNotFound reports a missing record from any store.
func isNotFound(err error) bool {
	return errors.Is(err, interfaces.ErrNotFound)
}
