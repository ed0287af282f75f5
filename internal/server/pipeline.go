package server

import (
	"context"

	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/registry"
)

// Dispatcher handles one frame and reports whether the connection should
// be closed afterwards.
type Dispatcher interface {
	Dispatch(ctx context.Context, conn registry.Handle, frame protocol.Frame) bool
}

// Pipeline turns a byte stream into frames for a Dispatcher. It is shared
// by the TCP server and the websocket gateway.
type Pipeline struct {
	dispatcher Dispatcher
	maxFrame   int
	log        logger.Logger
}

func NewPipeline(d Dispatcher, maxFrame int, log logger.Logger) *Pipeline {
	if maxFrame <= 0 {
		maxFrame = protocol.MaxFrameLength
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{dispatcher: d, maxFrame: maxFrame, log: log}
}

// MaxFrame is the largest length field Drain accepts.
func (p *Pipeline) MaxFrame() int { return p.maxFrame }

// Drain dispatches every complete frame at the front of buf in order and
// returns the unconsumed tail. The second result is true when the
// connection must be closed: the stream is malformed or a handler asked
// for it. A malformed stream gets one GENERAL_FAILURE first.
func (p *Pipeline) Drain(ctx context.Context, conn registry.Handle, buf []byte) ([]byte, bool) {
	for {
		frame, used, err := protocol.TryParseLimit(buf, p.maxFrame)
		if protocol.Incomplete(err) {
			return buf, false
		}
		if err != nil {
			p.log.Warn("bad frame, closing connection",
				logger.Uint32("conn_id", conn.ID()), logger.Int("buffered", len(buf)), logger.Err(err))
			_ = conn.Send(protocol.GeneralFailure, []byte("Malformed frame"))
			return nil, true
		}
		n := copy(buf, buf[used:])
		buf = buf[:n]
		if p.dispatcher.Dispatch(ctx, conn, frame) {
			return buf, true
		}
	}
}
