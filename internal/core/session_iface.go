package core

import "github.com/dkeye/Mall/internal/domain"

// ConnectionID is assigned by the transport on connect and never reused.
type ConnectionID string

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	ID() ConnectionID
	Meta() *domain.Member
	Signal() SignalConnection
}
