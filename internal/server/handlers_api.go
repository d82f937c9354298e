package server

import (
	"fmt"
	"net/http"
	"time"

	"trivia-rooms/internal/config"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

type createRoomRequest struct {
	MaxPlayers   int    `json:"maxPlayers" binding:"omitempty,min=1"`
	HostName     string `json:"hostName" binding:"omitempty,name"`
	TargetPoints int    `json:"targetPoints" binding:"omitempty,min=1"`
}

type joinRoomRequest struct {
	Name string `json:"name" binding:"required,name"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=256"`
}

type qrQuery struct {
	Size int `form:"size" binding:"omitempty,min=64,max=1024"`
}

type summaryPlayer struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type roomSummary struct {
	Code               string          `json:"code"`
	State              Phase           `json:"state"`
	HostName           string          `json:"hostName,omitempty"`
	HostID             int             `json:"hostId,omitempty"`
	MaxPlayers         int             `json:"maxPlayers"`
	TargetPoints       int             `json:"targetPoints,omitempty"`
	CurrentPlayerCount int             `json:"currentPlayerCount"`
	Category           string          `json:"category,omitempty"`
	QuestionNumber     int             `json:"questionNumber,omitempty"`
	Total              int             `json:"total,omitempty"`
	Players            []summaryPlayer `json:"players"`
	CreatedAt          time.Time       `json:"createdAt"`
	ExpiresAt          time.Time       `json:"expiresAt"`
}

var createRoomMessages = bindMessages{
	"MaxPlayers": {
		"min": "invalid_max_players",
	},
	"HostName": {
		"name": "invalid_name",
	},
	"TargetPoints": {
		"min": "invalid_target_points",
	},
}

var joinRoomMessages = bindMessages{
	"Name": {
		"required": "invalid_name",
		"name":     "invalid_name",
	},
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "rooms": s.rooms.Len()})
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	if !s.allowRequest(c, "create") {
		return
	}
	var req createRoomRequest
	if !bindJSON(c, &req, true, createRoomMessages) {
		return
	}
	if req.MaxPlayers > config.MaxPlayersCeiling() {
		writeError(c, ErrInvalidMaxPlayers)
		return
	}
	opts := RoomOptions{MaxPlayers: s.cfg.MaxPlayers, TargetPoints: s.cfg.TargetPoints}
	if req.MaxPlayers > 0 {
		opts.MaxPlayers = req.MaxPlayers
	}
	if req.TargetPoints > 0 {
		opts.TargetPoints = req.TargetPoints
	}
	if req.HostName != "" {
		opts.HostName = normalizeText(req.HostName)
	}
	room, err := s.rooms.Create(opts, s.now())
	if err != nil {
		s.logger.Warn("create room failed", "error", err)
		writeError(c, err)
		return
	}
	s.logger.Info("room created", "code", room.Code, "max_players", opts.MaxPlayers)
	c.JSON(http.StatusCreated, gin.H{
		"ok":           true,
		"code":         room.Code,
		"expiresAt":    room.ExpiresAt,
		"maxPlayers":   room.MaxPlayers,
		"targetPoints": room.TargetPoints,
	})
}

// handleJoinRoom checks that a seat is available. The seat itself is taken by
// the websocket join, since a player needs a live connection.
func (s *Server) handleJoinRoom(c *gin.Context) {
	if !s.allowRequest(c, "join") {
		return
	}
	code, ok := s.bindRoomCode(c)
	if !ok {
		return
	}
	var req joinRoomRequest
	if !bindJSON(c, &req, false, joinRoomMessages) {
		return
	}
	count := 0
	var seatErr error
	err := s.rooms.View(code, func(room *Room) {
		count = len(room.Players)
		seatErr = s.seatAvailable(room)
	})
	if err == nil {
		err = seatErr
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":                 true,
		"code":               code,
		"currentPlayerCount": count,
	})
}

func (s *Server) handleGetRoom(c *gin.Context) {
	code, ok := s.bindRoomCode(c)
	if !ok {
		return
	}
	var summary roomSummary
	if err := s.rooms.View(code, func(room *Room) {
		summary = summarizeRoom(room)
	}); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleRoomQR(c *gin.Context) {
	code, ok := s.bindRoomCode(c)
	if !ok {
		return
	}
	var query qrQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		writeError(c, ErrInvalidMessage)
		return
	}
	if query.Size == 0 {
		query.Size = 256
	}
	if _, exists := s.rooms.Get(code); !exists {
		writeError(c, ErrRoomNotFound)
		return
	}
	png, err := qrcode.Encode(joinURL(c.Request, code), qrcode.Medium, query.Size)
	if err != nil {
		s.logger.Error("encode qr failed", "code", code, "error", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// handleCategories lists the categories a host can pick before starting.
func (s *Server) handleCategories(c *gin.Context) {
	categories := []string{}
	if lister, ok := s.questions.(CategoryLister); ok {
		found, err := lister.Categories(c.Request.Context())
		if err != nil {
			s.logger.Error("list categories failed", "error", err)
			writeError(c, ErrNoQuestions)
			return
		}
		if found != nil {
			categories = found
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "categories": categories})
}

func (s *Server) handleLogin(c *gin.Context) {
	if !s.allowRequest(c, "login") {
		return
	}
	var req loginRequest
	if !bindJSON(c, &req, false, nil) {
		return
	}
	if err := s.verifyCredentials(c.Request.Context(), req.Username, req.Password); err != nil {
		writeError(c, err)
		return
	}
	s.logger.Info("login succeeded", "username", req.Username)
	c.JSON(http.StatusOK, gin.H{"ok": true, "username": req.Username})
}

func summarizeRoom(room *Room) roomSummary {
	players := make([]summaryPlayer, 0, len(room.Players))
	for _, player := range room.Players {
		players = append(players, summaryPlayer{ID: player.ID, Name: player.Name})
	}
	summary := roomSummary{
		Code:               room.Code,
		State:              room.Phase,
		HostName:           room.HostName,
		HostID:             room.HostID,
		MaxPlayers:         room.MaxPlayers,
		TargetPoints:       room.TargetPoints,
		CurrentPlayerCount: len(room.Players),
		Category:           room.Category,
		Players:            players,
		CreatedAt:          room.CreatedAt,
		ExpiresAt:          room.ExpiresAt,
	}
	if room.Phase != phaseLobby {
		summary.Total = len(room.Questions)
		summary.QuestionNumber = min(room.QuestionIndex+1, summary.Total)
	}
	return summary
}

func joinURL(r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/join/%s", scheme, r.Host, code)
}
