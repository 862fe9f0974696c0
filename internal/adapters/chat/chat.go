// Package chat serves the shopping-assistant WebSocket endpoint.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/dkeye/Mall/internal/adapters/wsconn"
	"github.com/dkeye/Mall/internal/bot"
	"github.com/dkeye/Mall/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	TypeAskAI          = "ask-ai"
	TypeClearHistory   = "clear-history"
	TypeAIResponse     = "ai-response"
	TypeHistoryCleared = "history-cleared"
)

type aiResponseEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	Text   string        `json:"text"`
}

type historyClearedEvent struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

type BotWSController struct {
	Store   *bot.Store
	Limiter *bot.RateLimiter
	Opts    wsconn.Options
}

func NewBotWSController(store *bot.Store, limiter *bot.RateLimiter, opts wsconn.Options) *BotWSController {
	return &BotWSController{Store: store, Limiter: limiter, Opts: opts}
}

type session struct {
	id     string
	conn   *wsconn.Conn
	ctx    context.Context
	logger zerolog.Logger
	wg     sync.WaitGroup
}

// HandleBot upgrades the request and serves it until the socket closes.
// Asks still in flight when the socket goes away are abandoned.
func (ctl *BotWSController) HandleBot(ctx context.Context, c *gin.Context) {
	ws, err := wsconn.Upgrade(c.Writer, c.Request)
	if err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("ws upgrade")
		return
	}
	conn := wsconn.New(ws, ctl.Opts)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, conn.Close)
	defer stop()

	s := &session{
		id:   uuid.NewString(),
		conn: conn,
		ctx:  ctx,
	}
	s.logger = log.With().Str("module", "chat").Str("sid", s.id).Str("client", c.GetString("client_token")).Logger()
	s.logger.Info().Msg("new WS connection")

	go conn.WritePump(ctx)
	err = conn.ReadPump(func(data []byte) { ctl.dispatch(s, data) })
	s.logger.Info().Err(err).Msg("readPump closing")

	// Waiters select on s.ctx, so this returns without waiting for running
	// completions; those finish inside the store.
	cancel()
	s.wg.Wait()
	if ctl.Limiter != nil {
		ctl.Limiter.Forget(s.id)
	}
	conn.Close()
}

func (ctl *BotWSController) dispatch(s *session, data []byte) {
	typ, err := wsconn.ParseEnvelope(data)
	if err != nil {
		if errors.Is(err, wsconn.ErrMissingType) {
			ctl.sendError(s, wsconn.CodeUnknownType, "type")
			return
		}
		ctl.sendError(s, wsconn.CodeBadPayload, "")
		return
	}

	switch typ {
	case TypeAskAI:
		ctl.handleAsk(s, data)
	case TypeClearHistory:
		ctl.handleClear(s, data)
	case wsconn.TypePing:
		ctl.send(s, struct {
			Type string `json:"type"`
		}{Type: wsconn.TypePong})
	default:
		s.logger.Warn().Str("type", typ).Msg("unknown message")
		ctl.sendError(s, wsconn.CodeUnknownType, "")
	}
}

func (ctl *BotWSController) handleAsk(s *session, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
		Text   string `json:"text"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(s, wsconn.CodeBadPayload, "")
		return
	}
	if p.RoomID == "" {
		ctl.sendError(s, wsconn.CodeMissingField, "roomId")
		return
	}
	if strings.TrimSpace(p.Text) == "" {
		ctl.sendError(s, wsconn.CodeMissingField, "text")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(s.id) {
		s.logger.Warn().Str("room", p.RoomID).Msg("ask rate limited")
		ctl.sendError(s, wsconn.CodeRateLimited, "")
		return
	}

	// Enqueue on the read goroutine so the room sees asks in socket order.
	room := domain.RoomID(p.RoomID)
	pending, err := ctl.Store.EnqueueAsk(s.ctx, room, p.Text)
	switch {
	case errors.Is(err, bot.ErrBusy):
		ctl.sendError(s, wsconn.CodeBotBusy, "")
		return
	case err != nil:
		s.logger.Warn().Err(err).Str("room", p.RoomID).Msg("ask rejected")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		reply, err := pending.Wait(s.ctx)
		if err != nil {
			s.logger.Debug().Err(err).Str("room", p.RoomID).Msg("ask abandoned")
			return
		}
		ctl.send(s, aiResponseEvent{Type: TypeAIResponse, RoomID: room, Text: reply})
	}()
}

func (ctl *BotWSController) handleClear(s *session, data []byte) {
	var p struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(s, wsconn.CodeBadPayload, "")
		return
	}
	if p.RoomID == "" {
		ctl.sendError(s, wsconn.CodeMissingField, "roomId")
		return
	}

	room := domain.RoomID(p.RoomID)
	pending, err := ctl.Store.EnqueueClear(s.ctx, room)
	if err != nil {
		s.logger.Warn().Err(err).Str("room", p.RoomID).Msg("clear rejected")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := pending.Wait(s.ctx); err != nil {
			s.logger.Warn().Err(err).Str("room", p.RoomID).Msg("clear failed")
			return
		}
		ctl.send(s, historyClearedEvent{Type: TypeHistoryCleared, RoomID: room})
	}()
}

func (ctl *BotWSController) send(s *session, v any) {
	if err := s.conn.SendJSON(v); err != nil {
		s.logger.Warn().Err(err).Msg("send")
	}
}

func (ctl *BotWSController) sendError(s *session, code, field string) {
	ctl.send(s, wsconn.NewError(code, field))
}
