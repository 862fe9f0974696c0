package signal

import (
	"errors"

	"github.com/dkeye/Mall/internal/adapters/wsconn"
	"github.com/dkeye/Mall/internal/app/orch"
	"github.com/dkeye/Mall/internal/core"
	"github.com/rs/zerolog/log"
)

// Inbound event types.
const (
	TypeJoinRoom     = "join-room"
	TypeLeaveRoom    = "leave-room"
	TypeToggleAudio  = "toggle-audio"
	TypeToggleVideo  = "toggle-video"
	TypeOffer        = string(orch.SignalOffer)
	TypeAnswer       = string(orch.SignalAnswer)
	TypeICECandidate = string(orch.SignalICECandidate)
)

func (ctl *SignalWSController) handleSignal(sid core.ConnectionID, c *wsconn.Conn, data []byte) {
	typ, err := wsconn.ParseEnvelope(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		if errors.Is(err, wsconn.ErrMissingType) {
			ctl.sendError(c, wsconn.CodeUnknownType, "type")
			return
		}
		ctl.sendError(c, wsconn.CodeBadPayload, "")
		return
	}

	switch typ {
	case TypeJoinRoom:
		ctl.handleJoin(sid, c, data)
	case TypeLeaveRoom:
		ctl.handleLeave(sid, c)
	case TypeOffer, TypeAnswer, TypeICECandidate:
		ctl.handleRelay(sid, c, orch.SignalKind(typ), data)
	case TypeToggleAudio:
		ctl.handleToggleAudio(sid, c, data)
	case TypeToggleVideo:
		ctl.handleToggleVideo(sid, c, data)
	case wsconn.TypePing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", typ).Msg("unknown signal")
		ctl.sendError(c, wsconn.CodeUnknownType, "")
	}
}

func (ctl *SignalWSController) sendJSON(c *wsconn.Conn, v any) {
	if err := c.SendJSON(v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON")
	}
}

func (ctl *SignalWSController) sendError(c *wsconn.Conn, code, field string) {
	ctl.sendJSON(c, wsconn.NewError(code, field))
}
