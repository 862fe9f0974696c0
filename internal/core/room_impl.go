package core

import (
	"sync"

	"github.com/dkeye/Mall/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room  *domain.Room
	mu    sync.RWMutex
	bySID map[ConnectionID]MemberSession
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room:  room,
		bySID: make(map[ConnectionID]MemberSession),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

func (r *roomImpl) Member(id ConnectionID) (MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms, ok := r.bySID[id]
	return ms, ok
}

func (r *roomImpl) AddMember(ms MemberSession) []MemberDTO {
	r.mu.Lock()
	defer r.mu.Unlock()
	others := r.snapshotLocked(ms.ID())
	r.bySID[ms.ID()] = ms
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(ms.ID())).Str("user", string(ms.Meta().Identity.UserID)).Msg("member added")
	return others
}

func (r *roomImpl) RemoveMember(id ConnectionID) (MemberSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.bySID[id]
	if !ok {
		return nil, false
	}
	delete(r.bySID, id)
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("sid", string(id)).Msg("member removed")
	return ms, true
}

func (r *roomImpl) SetMediaState(id ConnectionID, kind domain.MediaKind, off bool) (MemberDTO, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms, ok := r.bySID[id]
	if !ok {
		return MemberDTO{}, false
	}
	ms.Meta().SetMedia(kind, off)
	return toDTO(ms), true
}

func (r *roomImpl) Broadcast(from ConnectionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for sid, m := range r.bySID {
		if sid == from {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked("")
}

func (r *roomImpl) snapshotLocked(skip ConnectionID) []MemberDTO {
	out := make([]MemberDTO, 0, len(r.bySID))
	for sid, ms := range r.bySID {
		if sid == skip {
			continue
		}
		out = append(out, toDTO(ms))
	}
	return out
}

func toDTO(ms MemberSession) MemberDTO {
	m := ms.Meta()
	return MemberDTO{
		SocketID:   ms.ID(),
		UserID:     m.Identity.UserID,
		UserName:   m.Identity.UserName,
		IsMuted:    m.AudioMuted,
		IsVideoOff: m.VideoOff,
	}
}
