package orch

import (
	"encoding/json"

	"github.com/dkeye/Mall/internal/core"
	"github.com/dkeye/Mall/internal/domain"
	"github.com/rs/zerolog/log"
)

// Outbound event types.
const (
	EvtJoinedRoom       = "joined-room"
	EvtRoomUsers        = "room-users"
	EvtUserJoined       = "user-joined"
	EvtUserLeft         = "user-left"
	EvtLeftRoom         = "left-room"
	EvtUserAudioChanged = "user-audio-changed"
	EvtUserVideoChanged = "user-video-changed"
)

// SignalKind is one of the relayed WebRTC negotiation messages.
type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
)

type peerEvent struct {
	Type     string            `json:"type"`
	SocketID core.ConnectionID `json:"socketId"`
	UserID   domain.UserID     `json:"userId"`
	UserName string            `json:"userName"`
}

type relayEvent struct {
	Type      SignalKind        `json:"type"`
	From      core.ConnectionID `json:"from"`
	RoomID    domain.RoomID     `json:"roomId"`
	Offer     json.RawMessage   `json:"offer,omitempty"`
	Answer    json.RawMessage   `json:"answer,omitempty"`
	Candidate json.RawMessage   `json:"candidate,omitempty"`
}

type audioEvent struct {
	Type     string            `json:"type"`
	SocketID core.ConnectionID `json:"socketId"`
	UserID   domain.UserID     `json:"userId"`
	IsMuted  bool              `json:"isMuted"`
}

type videoEvent struct {
	Type       string            `json:"type"`
	SocketID   core.ConnectionID `json:"socketId"`
	UserID     domain.UserID     `json:"userId"`
	IsVideoOff bool              `json:"isVideoOff"`
}

func newPeerEvent(typ string, sid core.ConnectionID, id domain.Identity) peerEvent {
	return peerEvent{Type: typ, SocketID: sid, UserID: id.UserID, UserName: id.UserName}
}

func newRelayEvent(kind SignalKind, from core.ConnectionID, room domain.RoomID, payload json.RawMessage) relayEvent {
	ev := relayEvent{Type: kind, From: from, RoomID: room}
	switch kind {
	case SignalOffer:
		ev.Offer = payload
	case SignalAnswer:
		ev.Answer = payload
	case SignalICECandidate:
		ev.Candidate = payload
	}
	return ev
}

func encode(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("encode event")
		return nil
	}
	return b
}
