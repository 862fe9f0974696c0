package orch

import (
	"context"
	"errors"

	"github.com/dkeye/Mall/internal/app"
	"github.com/dkeye/Mall/internal/core"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotInRoom         = errors.New("not in room")
	ErrUnknownConnection = errors.New("unknown connection")
)

// Orchestrator owns the signaling state of one process: the connection
// registry and the room directory. Construct one per server; tests build
// their own.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	Policy   app.Policy
	// StrictRooms drops relayed messages whose target is not a member of
	// the stated room.
	StrictRooms bool
}

func New(policy app.Policy, strictRooms bool) *Orchestrator {
	return &Orchestrator{
		Registry:    app.NewRegistry(),
		Rooms:       app.NewRoomManager(),
		Policy:      policy,
		StrictRooms: strictRooms,
	}
}

func (o *Orchestrator) Connect(signal core.SignalConnection, cancel context.CancelFunc) core.ConnectionID {
	return o.Registry.Connect(signal, cancel)
}

// Disconnect is an implicit leave followed by forgetting the connection.
// Unknown ids are ignored.
func (o *Orchestrator) Disconnect(sid core.ConnectionID) {
	o.Leave(sid)
	o.Registry.Unbind(sid)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Msg("disconnected")
}

func (o *Orchestrator) applyPolicy(res core.PublishResult) {
	if o.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		if o.Policy.OnBackPressure(slow) != app.KickMember {
			continue
		}
		log.Warn().Str("module", "orch").Str("sid", string(slow.ID())).Msg("kicking slow member")
		o.Registry.Cancel(slow.ID())
		slow.Signal().Close()
	}
}
