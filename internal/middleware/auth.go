package middleware

import (
	"context"

	"lingualink/internal/protocol"
	"lingualink/internal/router"
	"lingualink/pkg/types"
)

// UnauthorizedLogin is the GENERAL_FAILURE body for requests without a
// live session.
const UnauthorizedLogin = "Unauthorized: Login required"

var publicOpcodes = map[protocol.Opcode]bool{
	protocol.LoginRequest:      true,
	protocol.RegisterRequest:   true,
	protocol.Heartbeat:         true,
	protocol.DisconnectRequest: true,
}

// AuthGate requires a live session for everything but login, register,
// heartbeat and disconnect.
type AuthGate struct{}

func NewAuthGate() *AuthGate { return &AuthGate{} }

func (a *AuthGate) Name() string { return "auth" }

func (a *AuthGate) Handle(_ context.Context, req *router.Request) router.Decision {
	if publicOpcodes[req.Opcode()] || req.Session != nil {
		return router.Allow()
	}
	return router.Deny(protocol.GeneralFailure, UnauthorizedLogin)
}

// RoleTable maps an opcode to the roles allowed to send it. Opcodes not
// listed are open to every logged-in user.
type RoleTable map[protocol.Opcode][]types.Role

// DefaultRoles restricts game administration to admins and grading
// workflows to teachers and admins.
func DefaultRoles() RoleTable {
	staff := []types.Role{types.RoleTeacher, types.RoleAdmin}
	admin := []types.Role{types.RoleAdmin}
	return RoleTable{
		protocol.GameCreateRequest:         admin,
		protocol.GameUpdateRequest:         admin,
		protocol.GameDeleteRequest:         admin,
		protocol.GradeSubmissionRequest:    staff,
		protocol.AddFeedbackRequest:        staff,
		protocol.ExamReviewRequest:         staff,
		protocol.PendingSubmissionsRequest: staff,
	}
}

// Allows reports whether role may send op.
func (t RoleTable) Allows(op protocol.Opcode, role types.Role) bool {
	allowed, restricted := t[op]
	if !restricted {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// RoleGate denies restricted opcodes with the family failure.
type RoleGate struct {
	table RoleTable
}

func NewRoleGate(table RoleTable) *RoleGate {
	if table == nil {
		table = DefaultRoles()
	}
	return &RoleGate{table: table}
}

func (g *RoleGate) Name() string { return "role" }

func (g *RoleGate) Handle(_ context.Context, req *router.Request) router.Decision {
	op := req.Opcode()
	if _, restricted := g.table[op]; !restricted {
		return router.Allow()
	}
	if req.Session == nil || !g.table.Allows(op, req.Session.Role) {
		return router.Deny(protocol.FailureFor(op), "Unauthorized")
	}
	return router.Allow()
}
