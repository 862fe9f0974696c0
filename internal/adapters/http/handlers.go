package http

import (
	"net/http"

	"github.com/dkeye/Mall/internal/app/orch"
	"github.com/dkeye/Mall/internal/config"
	"github.com/dkeye/Mall/internal/core"
	"github.com/dkeye/Mall/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
)

type handlers struct {
	orch *orch.Orchestrator
	ice  []webrtc.ICEServer
}

type roomDetail struct {
	RoomID      domain.RoomID    `json:"roomId"`
	MemberCount int              `json:"memberCount"`
	Members     []core.MemberDTO `json:"members"`
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) listRooms(c *gin.Context) {
	rooms := h.orch.Rooms.List()
	if rooms == nil {
		rooms = []core.RoomInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *handlers) getRoom(c *gin.Context) {
	room, ok := h.orch.Rooms.Get(domain.RoomID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, roomDetail{
		RoomID:      room.Room().ID,
		MemberCount: room.MemberCount(),
		Members:     room.MembersSnapshot(),
	})
}

func (h *handlers) iceServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.ice})
}

func iceServers(cfg config.ICEConfig) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		if len(s.URLs) == 0 {
			continue
		}
		srv := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			srv.Username = s.Username
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}
