package http

import (
	"context"

	"github.com/dkeye/Mall/internal/adapters/chat"
	"github.com/dkeye/Mall/internal/adapters/signal"
	"github.com/dkeye/Mall/internal/adapters/wsconn"
	"github.com/dkeye/Mall/internal/app/orch"
	"github.com/dkeye/Mall/internal/bot"
	"github.com/dkeye/Mall/internal/config"
	"github.com/dkeye/Mall/internal/logging"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sessionName    = "MallSessions"
	clientTokenKey = "ct"
)

// ClientTokenMiddleware gives every browser a stable anonymous token kept in
// the signed session cookie. It only correlates logs across sockets.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

type Deps struct {
	Orch    *orch.Orchestrator
	Bot     *bot.Store
	Limiter *bot.RateLimiter
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	switch cfg.Mode {
	case gin.ReleaseMode, gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.GinMiddleware())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &handlers{orch: deps.Orch, ice: iceServers(cfg.ICE)}
	r.GET("/healthz", h.health)

	api := r.Group("/api")
	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/:id", h.getRoom)
	api.GET("/ice-servers", h.iceServers)

	opts := wsconn.OptionsFrom(cfg.WS)
	signalCtl := signal.NewSignalWSController(deps.Orch, opts)
	api.GET("/ws/signal", func(c *gin.Context) {
		signalCtl.HandleSignal(ctx, c)
	})

	if deps.Bot != nil {
		botCtl := chat.NewBotWSController(deps.Bot, deps.Limiter, opts)
		api.GET("/ws/bot", func(c *gin.Context) {
			botCtl.HandleBot(ctx, c)
		})
	}

	return r
}
