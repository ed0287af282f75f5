// Package middleware holds the request gates run by the router before a
// handler: logging, authentication, role checks and login throttling.
package middleware

import (
	"context"

	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/router"
)

// Logging records every frame and always allows it.
type Logging struct {
	logger logger.Logger
}

func NewLogging(log logger.Logger) *Logging {
	return &Logging{logger: log.With(logger.Component("request"))}
}

func (l *Logging) Name() string { return "logging" }

func (l *Logging) Handle(_ context.Context, req *router.Request) router.Decision {
	fields := []logger.Field{
		logger.String("opcode", req.Opcode().String()),
		logger.Int("size", protocol.HeaderSize+len(req.Frame.Payload)),
		logger.Uint32("conn_id", req.ConnID()),
	}
	if req.Session != nil {
		fields = append(fields, logger.Int64("user_id", req.Session.UserID))
	}
	if req.Opcode() == protocol.Heartbeat {
		l.logger.Debug("request", fields...)
	} else {
		l.logger.Info("request", fields...)
	}
	return router.Allow()
}
