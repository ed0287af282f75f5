package controller

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"lingualink/internal/config"
	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/registry"
	"lingualink/internal/router"
	"lingualink/internal/session"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

const reasonBadCredentials = "Invalid username or password"

// Auth serves login, register, logout, heartbeat and disconnect.
type Auth struct {
	base
	users    interfaces.UserRepository
	registry *registry.Registry
	policy   string
	onLeave  func(context.Context, session.Session)
}

func NewAuth(d Deps, onLeave func(context.Context, session.Session)) *Auth {
	return &Auth{
		base:     newBase(d, "auth"),
		users:    d.Repos.Users,
		registry: d.Registry,
		policy:   d.PasswordPolicy,
		onLeave:  onLeave,
	}
}

func (a *Auth) Routes() Routes {
	return Routes{
		protocol.LoginRequest:      a.Login,
		protocol.RegisterRequest:   a.Register,
		protocol.LogoutRequest:     a.Logout,
		protocol.Heartbeat:         a.Heartbeat,
		protocol.DisconnectRequest: a.Disconnect,
	}
}

func (a *Auth) Login(ctx context.Context, req *router.Request) error {
	var creds protocol.Credentials
	creds.Decode(req.Payload())
	if creds.Username == "" || creds.Password == "" {
		return req.Fail("Username and password are required")
	}

	user, err := a.users.FindByUsername(ctx, creds.Username)
	if errors.Is(err, interfaces.ErrNotFound) {
		a.logger.Info("login failed", logger.Uint32("conn_id", req.ConnID()))
		return req.Fail(reasonBadCredentials)
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if !checkPassword(user.Password, creds.Password) {
		a.logger.Info("login failed", logger.Uint32("conn_id", req.ConnID()))
		return req.Fail(reasonBadCredentials)
	}

	// a second login on this connection replaces the session it holds
	prior, hadPrior := a.sessions.LookupByConnection(req.ConnID())
	token, err := a.sessions.Create(ctx, user.ID, user.Username, user.Role, req.ConnID())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if err := a.registry.Bind(user.ID, req.ConnID()); err != nil {
		a.sessions.Remove(ctx, token)
		return fmt.Errorf("bind connection: %w", err)
	}
	if hadPrior && prior.UserID != user.ID && a.onLeave != nil {
		a.onLeave(ctx, prior)
	}

	a.logger.Info("user logged in",
		logger.Int64("user_id", user.ID), logger.String("role", string(user.Role)), logger.Uint32("conn_id", req.ConnID()))
	return req.Succeed(protocol.LoginReply{Token: token, Role: string(user.Role)}.Encode())
}

func (a *Auth) Register(ctx context.Context, req *router.Request) error {
	var creds protocol.Credentials
	creds.Decode(req.Payload())
	if err := types.ValidateCredentials(creds.Username, creds.Password); err != nil {
		return req.Fail(err.Error())
	}

	stored := creds.Password
	if a.policy == config.PasswordBcrypt {
		hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		stored = string(hash)
	}

	id, err := a.users.Create(ctx, creds.Username, stored, types.RoleStudent)
	if errors.Is(err, interfaces.ErrDuplicate) {
		return req.Fail("Username already exists")
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	a.logger.Info("user registered", logger.Int64("user_id", id), logger.String("username", creds.Username))
	return req.Succeed("Registration successful")
}

func (a *Auth) Logout(ctx context.Context, req *router.Request) error {
	var q protocol.TokenOnly
	q.Decode(req.Payload())
	s, ok := a.session(req, q.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}

	a.sessions.Remove(ctx, s.Token)
	a.registry.Unbind(req.ConnID())
	if a.onLeave != nil {
		a.onLeave(ctx, s)
	}
	a.logger.Info("user logged out", logger.Int64("user_id", s.UserID), logger.Uint32("conn_id", req.ConnID()))
	return req.Succeed("Logged out")
}

// Heartbeat extends a live session. It never replies.
func (a *Auth) Heartbeat(_ context.Context, req *router.Request) error {
	var q protocol.TokenOnly
	q.Decode(req.Payload())
	if !a.sessions.Touch(q.Token) {
		a.logger.Debug("heartbeat for unknown session", logger.Uint32("conn_id", req.ConnID()))
	}
	return nil
}

func (a *Auth) Disconnect(_ context.Context, req *router.Request) error {
	req.CloseAfterReply()
	return req.Succeed("Goodbye")
}

// checkPassword accepts bcrypt hashes and plain stored passwords.
func checkPassword(stored, given string) bool {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
