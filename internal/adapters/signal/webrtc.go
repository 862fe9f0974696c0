package signal

import (
	"encoding/json"

	"github.com/dkeye/Mall/internal/adapters/wsconn"
	"github.com/dkeye/Mall/internal/app/orch"
	"github.com/dkeye/Mall/internal/core"
	"github.com/dkeye/Mall/internal/domain"
	"github.com/rs/zerolog/log"
)

type relayPayload struct {
	Offer          json.RawMessage `json:"offer"`
	Answer         json.RawMessage `json:"answer"`
	Candidate      json.RawMessage `json:"candidate"`
	TargetSocketID string          `json:"targetSocketId"`
	RoomID         string          `json:"roomId"`
}

func (p relayPayload) body(kind orch.SignalKind) (json.RawMessage, string) {
	switch kind {
	case orch.SignalOffer:
		return p.Offer, "offer"
	case orch.SignalAnswer:
		return p.Answer, "answer"
	default:
		return p.Candidate, "candidate"
	}
}

// handleRelay forwards offer, answer and ice-candidate messages. The SDP or
// candidate body is never inspected.
func (ctl *SignalWSController) handleRelay(
	sid core.ConnectionID,
	conn *wsconn.Conn,
	kind orch.SignalKind,
	data []byte,
) {
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", string(kind)).Msg("bad relay payload")
		ctl.sendError(conn, wsconn.CodeBadPayload, "")
		return
	}
	body, field := p.body(kind)
	switch {
	case wsconn.Empty(body):
		ctl.sendError(conn, wsconn.CodeMissingField, field)
		return
	case p.TargetSocketID == "":
		ctl.sendError(conn, wsconn.CodeMissingField, "targetSocketId")
		return
	case p.RoomID == "":
		ctl.sendError(conn, wsconn.CodeMissingField, "roomId")
		return
	}

	ctl.Orch.Relay(kind, body, sid, sidOf(p.TargetSocketID), domain.RoomID(p.RoomID))
}
