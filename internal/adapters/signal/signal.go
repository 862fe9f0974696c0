// Package signal serves the room signaling WebSocket endpoint.
package signal

import (
	"context"

	"github.com/dkeye/Mall/internal/adapters/wsconn"
	"github.com/dkeye/Mall/internal/app/orch"
	"github.com/dkeye/Mall/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type SignalWSController struct {
	Orch *orch.Orchestrator
	Opts wsconn.Options
}

func NewSignalWSController(o *orch.Orchestrator, opts wsconn.Options) *SignalWSController {
	return &SignalWSController{Orch: o, Opts: opts}
}

// HandleSignal upgrades the request and serves the socket until it closes
// or ctx is done. Closing always runs the disconnect path exactly once.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := wsconn.Upgrade(c.Writer, c.Request)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	conn := wsconn.New(ws, ctl.Opts)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sid := ctl.Orch.Connect(conn, cancel)
	stop := context.AfterFunc(ctx, conn.Close)
	defer stop()

	logger := log.With().Str("module", "signal").Str("sid", string(sid)).Str("client", c.GetString("client_token")).Logger()
	logger.Info().Msg("new WS connection")

	go conn.WritePump(ctx)
	err = conn.ReadPump(func(data []byte) { ctl.handleSignal(sid, conn, data) })

	logger.Info().Err(err).Msg("readPump closing")
	ctl.Orch.Disconnect(sid)
	conn.Close()
}

func sidOf(s string) core.ConnectionID { return core.ConnectionID(s) }
