package core

import (
	"github.com/dkeye/Mall/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SocketID   ConnectionID  `json:"socketId"`
	UserID     domain.UserID `json:"userId"`
	UserName   string        `json:"userName"`
	IsMuted    bool          `json:"isMuted"`
	IsVideoOff bool          `json:"isVideoOff"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	MembersSnapshot() []MemberDTO
	Member(id ConnectionID) (MemberSession, bool)

	// AddMember returns the members present before id was added.
	AddMember(ms MemberSession) []MemberDTO
	RemoveMember(id ConnectionID) (MemberSession, bool)
	SetMediaState(id ConnectionID, kind domain.MediaKind, off bool) (MemberDTO, bool)
	Broadcast(from ConnectionID, data Frame) PublishResult
}

type RoomInfo struct {
	ID          domain.RoomID `json:"roomId"`
	MemberCount int           `json:"memberCount"`
}

// RoomManager is the room directory. Join and Leave are atomic with
// respect to room creation and removal: a room exists exactly while it
// has members.
type RoomManager interface {
	// Join adds ms to the room, creating it if needed, and sends announce
	// to the members that were already there. It returns their snapshot.
	Join(id domain.RoomID, ms MemberSession, announce Frame) ([]MemberDTO, PublishResult)
	// Leave removes the member and sends farewell to those remaining.
	// The room is dropped once empty.
	Leave(id domain.RoomID, sid ConnectionID, farewell Frame) (MemberSession, PublishResult, bool)
	Get(id domain.RoomID) (RoomService, bool)
	List() []RoomInfo
}
