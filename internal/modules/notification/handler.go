package notification

import (
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"filmrental/internal/middleware"
	"filmrental/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// newUpgrader accepts same-host requests, requests without an Origin header and
// the configured frontend origins.
func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(strings.ToLower(o), "/")] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			if strings.EqualFold(u.Host, r.Host) {
				return true
			}
			return allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
		},
	}
}

type Handler struct {
	service  *Service
	hub      *Hub
	upgrader *websocket.Upgrader
}

func NewHandler(service *Service, hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{service: service, hub: hub, upgrader: newUpgrader(allowedOrigins)}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/notifications")
	{
		g.GET("", h.GetNotifications)
		g.PATCH("/:id/read", h.MarkAsRead)
		g.PATCH("/read-all", h.MarkAllAsRead)
		g.GET("/ws", h.WebSocket)
	}
}

func (h *Handler) GetNotifications(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}

	limit := 20
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
			if limit > 100 {
				limit = 100
			}
		}
	}

	list, unread, err := h.service.List(c.Request.Context(), actor, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to get notifications")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"notifications": list,
		"unread_count":  unread,
	})
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid notification ID")
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), actor, id); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "read"})
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}

	if err := h.service.MarkAllRead(c.Request.Context(), actor); err != nil {
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to mark as read")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "all_read"})
}

// WebSocket streams new notifications. Browsers cannot set headers on the
// upgrade request, so the token comes as ?access_token=.
func (h *Handler) WebSocket(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WARN] notification websocket upgrade failed: %v", err)
		return
	}
	h.hub.Register(conn, Recipients(actor)...)
	log.Printf("[INFO] %s connected to notifications", actor.ID)
	defer func() {
		h.hub.Unregister(conn)
		log.Printf("[INFO] %s disconnected from notifications", actor.ID)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	done := make(chan struct{})
	defer close(done)
	go pingLoop(conn, done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WARN] notification websocket for %s: %v", actor.ID, err)
			}
			return
		}
	}
}

func pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
