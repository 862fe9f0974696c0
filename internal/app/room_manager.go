package app

import (
	"sync"

	"github.com/dkeye/Mall/internal/core"
	"github.com/dkeye/Mall/internal/domain"
	"github.com/rs/zerolog/log"
)

type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomManager() core.RoomManager {
	return &RoomManagerImpl{rooms: make(map[domain.RoomID]core.RoomService)}
}

func (f *RoomManagerImpl) Join(id domain.RoomID, ms core.MemberSession, announce core.Frame) ([]core.MemberDTO, core.PublishResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		room = core.NewRoomService(&domain.Room{ID: id})
		f.rooms[id] = room
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room created")
	}
	others := room.AddMember(ms)
	var res core.PublishResult
	if announce != nil {
		res = room.Broadcast(ms.ID(), announce)
	}
	return others, res
}

func (f *RoomManagerImpl) Leave(id domain.RoomID, sid core.ConnectionID, farewell core.Frame) (core.MemberSession, core.PublishResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, core.PublishResult{}, false
	}
	ms, ok := room.RemoveMember(sid)
	if !ok {
		return nil, core.PublishResult{}, false
	}
	var res core.PublishResult
	if room.MemberCount() == 0 {
		delete(f.rooms, id)
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room removed")
	} else if farewell != nil {
		res = room.Broadcast(sid, farewell)
	}
	return ms, res, true
}

func (f *RoomManagerImpl) Get(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	return room, ok
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: r.MemberCount()})
	}
	return out
}
