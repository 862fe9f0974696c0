package orch

import (
	"github.com/dkeye/Mall/internal/core"
	"github.com/dkeye/Mall/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join places sid in room under the given identity and returns the members
// that were already there. A connection in another room leaves it first.
func (o *Orchestrator) Join(sid core.ConnectionID, room domain.RoomID, id domain.Identity) ([]core.MemberDTO, error) {
	signal, ok := o.Registry.Signal(sid)
	if !ok {
		return nil, ErrUnknownConnection
	}
	if from, ok := o.Registry.RoomOf(sid); ok {
		o.Leave(sid)
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("from_room", string(from)).Msg("left previous room")
	}

	o.Registry.SetIdentity(sid, id)
	ms := core.NewMemberSession(sid, domain.NewMember(id), signal)
	others, res := o.Rooms.Join(room, ms, encode(newPeerEvent(EvtUserJoined, sid, id)))
	o.Registry.UpdateRoom(sid, room)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room)).Int("others", len(others)).Msg("added to room")

	o.applyPolicy(res)
	return others, nil
}

// Leave removes sid from its room and tells the remaining members.
// It reports the room left, if there was one.
func (o *Orchestrator) Leave(sid core.ConnectionID) (domain.RoomID, bool) {
	room, ok := o.Registry.RoomOf(sid)
	if !ok {
		return "", false
	}
	id, _ := o.Registry.Identity(sid)
	_, res, _ := o.Rooms.Leave(room, sid, encode(newPeerEvent(EvtUserLeft, sid, id)))
	o.Registry.RemoveRoom(sid)

	o.applyPolicy(res)
	return room, true
}

// Members returns the current snapshot of room, empty if it does not exist.
func (o *Orchestrator) Members(room domain.RoomID) []core.MemberDTO {
	r, ok := o.Rooms.Get(room)
	if !ok {
		return []core.MemberDTO{}
	}
	return r.MembersSnapshot()
}
