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

type joinedRoomEvent struct {
	Type     string            `json:"type"`
	RoomID   domain.RoomID     `json:"roomId"`
	SocketID core.ConnectionID `json:"socketId"`
	UserID   domain.UserID     `json:"userId"`
	UserName string            `json:"userName"`
}

type roomUsersEvent struct {
	Type   string           `json:"type"`
	RoomID domain.RoomID    `json:"roomId"`
	Users  []core.MemberDTO `json:"users"`
}

type leftRoomEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId,omitempty"`
}

func (ctl *SignalWSController) handleJoin(
	sid core.ConnectionID,
	conn *wsconn.Conn,
	data []byte,
) {
	type joinPayload struct {
		RoomID   string `json:"roomId"`
		UserID   string `json:"userId"`
		UserName string `json:"userName"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, wsconn.CodeBadPayload, "")
		return
	}
	if p.RoomID == "" {
		ctl.sendError(conn, wsconn.CodeMissingField, "roomId")
		return
	}

	id, err := domain.NewIdentity(p.UserID, p.UserName)
	switch {
	case errors.Is(err, domain.ErrUserIDEmpty):
		ctl.sendError(conn, wsconn.CodeMissingField, "userId")
		return
	case errors.Is(err, domain.ErrUsernameEmpty):
		ctl.sendError(conn, wsconn.CodeMissingField, "userName")
		return
	case errors.Is(err, domain.ErrUserIDTooLong):
		ctl.sendError(conn, wsconn.CodeNameTooLong, "userId")
		return
	case errors.Is(err, domain.ErrUsernameTooLong):
		ctl.sendError(conn, wsconn.CodeNameTooLong, "userName")
		return
	}

	roomID := domain.RoomID(p.RoomID)
	others, err := ctl.Orch.Join(sid, roomID, id)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("join failed")
		return
	}
	if others == nil {
		others = []core.MemberDTO{}
	}

	ctl.sendJSON(conn, joinedRoomEvent{
		Type:     orch.EvtJoinedRoom,
		RoomID:   roomID,
		SocketID: sid,
		UserID:   id.UserID,
		UserName: id.UserName,
	})
	ctl.sendJSON(conn, roomUsersEvent{
		Type:   orch.EvtRoomUsers,
		RoomID: roomID,
		Users:  others,
	})
}

// handleLeave leaves the current room; the socket stays open.
func (ctl *SignalWSController) handleLeave(
	sid core.ConnectionID,
	conn *wsconn.Conn,
) {
	room, ok := ctl.Orch.Leave(sid)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(room)).Bool("was_member", ok).Msg("leave")
	ctl.sendJSON(conn, leftRoomEvent{Type: orch.EvtLeftRoom, RoomID: room})
}
