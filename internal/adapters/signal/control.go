package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Mall/internal/adapters/wsconn"
	"github.com/dkeye/Mall/internal/app/orch"
	"github.com/dkeye/Mall/internal/core"
	"github.com/dkeye/Mall/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(
	conn *wsconn.Conn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: wsconn.TypePong,
	}
	ctl.sendJSON(conn, resp)
}

func (ctl *SignalWSController) handleToggleAudio(sid core.ConnectionID, conn *wsconn.Conn, data []byte) {
	var p struct {
		IsMuted *bool  `json:"isMuted"`
		RoomID  string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, wsconn.CodeBadPayload, "")
		return
	}
	if p.IsMuted == nil {
		ctl.sendError(conn, wsconn.CodeMissingField, "isMuted")
		return
	}
	ctl.toggleMedia(sid, conn, domain.MediaAudio, *p.IsMuted, p.RoomID)
}

func (ctl *SignalWSController) handleToggleVideo(sid core.ConnectionID, conn *wsconn.Conn, data []byte) {
	var p struct {
		IsVideoOff *bool  `json:"isVideoOff"`
		RoomID     string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, wsconn.CodeBadPayload, "")
		return
	}
	if p.IsVideoOff == nil {
		ctl.sendError(conn, wsconn.CodeMissingField, "isVideoOff")
		return
	}
	ctl.toggleMedia(sid, conn, domain.MediaVideo, *p.IsVideoOff, p.RoomID)
}

func (ctl *SignalWSController) toggleMedia(sid core.ConnectionID, conn *wsconn.Conn, kind domain.MediaKind, off bool, room string) {
	if room == "" {
		ctl.sendError(conn, wsconn.CodeMissingField, "roomId")
		return
	}
	err := ctl.Orch.BroadcastMediaState(kind, off, sid, domain.RoomID(room))
	if errors.Is(err, orch.ErrNotInRoom) {
		log.Debug().Str("module", "signal").Str("sid", string(sid)).Str("room", room).Msg("media toggle outside room")
		ctl.sendError(conn, wsconn.CodeNotInRoom, "roomId")
	}
}
