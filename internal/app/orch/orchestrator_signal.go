package orch

import (
	"encoding/json"

	"github.com/dkeye/Mall/internal/core"
	"github.com/dkeye/Mall/internal/domain"
	"github.com/rs/zerolog/log"
)

// Relay forwards payload verbatim to the target connection. Missing
// targets are dropped silently; the return value only reports delivery.
func (o *Orchestrator) Relay(kind SignalKind, payload json.RawMessage, from, to core.ConnectionID, room domain.RoomID) bool {
	target, ok := o.relayTarget(to, room)
	if !ok {
		log.Debug().Str("module", "orch").Str("kind", string(kind)).Str("from", string(from)).Str("to", string(to)).Str("room", string(room)).Msg("relay target not found")
		return false
	}

	err := target.Signal().TrySend(encode(newRelayEvent(kind, from, room, payload)))
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("kind", string(kind)).Str("to", string(to)).Msg("relay send failed")
		o.applyPolicy(core.PublishResult{Dropped: []core.MemberSession{target}})
		return false
	}
	log.Debug().Str("module", "orch").Str("kind", string(kind)).Str("from", string(from)).Str("to", string(to)).Msg("relayed")
	return true
}

func (o *Orchestrator) relayTarget(to core.ConnectionID, room domain.RoomID) (core.MemberSession, bool) {
	if o.StrictRooms {
		r, ok := o.Rooms.Get(room)
		if !ok {
			return nil, false
		}
		return r.Member(to)
	}
	signal, ok := o.Registry.Signal(to)
	if !ok {
		return nil, false
	}
	id, _ := o.Registry.Identity(to)
	return core.NewMemberSession(to, domain.NewMember(id), signal), true
}

// BroadcastMediaState records the new state on the sender and fans it out
// to the rest of the room. off means muted for audio and hidden for video.
func (o *Orchestrator) BroadcastMediaState(kind domain.MediaKind, off bool, from core.ConnectionID, room domain.RoomID) error {
	r, ok := o.Rooms.Get(room)
	if !ok {
		return ErrNotInRoom
	}
	dto, ok := r.SetMediaState(from, kind, off)
	if !ok {
		return ErrNotInRoom
	}

	var ev any
	switch kind {
	case domain.MediaAudio:
		ev = audioEvent{Type: EvtUserAudioChanged, SocketID: from, UserID: dto.UserID, IsMuted: off}
	default:
		ev = videoEvent{Type: EvtUserVideoChanged, SocketID: from, UserID: dto.UserID, IsVideoOff: off}
	}
	res := r.Broadcast(from, encode(ev))
	o.applyPolicy(res)
	return nil
}
