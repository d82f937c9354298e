package server

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync/atomic"
	"time"

	"trivia-rooms/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Options struct {
	Questions QuestionSource
	Verifier  CredentialVerifier
	Logger    *slog.Logger
	// Rand seeds room code allocation. Nil picks a time-based seed.
	Rand *rand.Rand
}

type Server struct {
	cfg       config.Config
	rooms     *Registry
	codes     *codeAllocator
	questions QuestionSource
	verifier  CredentialVerifier
	logger    *slog.Logger
	limiter   *rateLimiter
	now       func() time.Time
	playerSeq atomic.Int64
}

func New(cfg config.Config, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	questions := opts.Questions
	if questions == nil {
		questions = NewMemoryQuestions(DefaultQuestions(), nil)
	}
	codes := newCodeAllocator(cfg.CodeLength, cfg.CodeAttempts, opts.Rand)
	return &Server{
		cfg:       cfg,
		rooms:     NewRegistry(codes, cfg.RoomTTL),
		codes:     codes,
		questions: questions,
		verifier:  opts.Verifier,
		logger:    logger,
		limiter:   newRateLimiter(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), cors.New(s.corsConfig()))

	router.GET("/healthz", s.handleHealth)
	router.POST("/api/login", s.handleLogin)
	router.GET("/api/categories", s.handleCategories)
	router.POST("/api/rooms", s.handleCreateRoom)
	router.GET("/api/rooms/:code", s.handleGetRoom)
	router.POST("/api/rooms/:code/join", s.handleJoinRoom)
	router.GET("/api/rooms/:code/qr", s.handleRoomQR)
	router.GET("/ws", s.handleWebsocket)
	return router
}

// RunSweeper closes expired rooms every sweep interval until ctx is done.
func (s *Server) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Server) sweep() []string {
	expired := s.rooms.SweepExpired(s.now(), func(room *Room) {
		broadcast(room, signalMessage{Type: "room_expired"}, nil)
		closeRoomConns(room)
	})
	for _, code := range expired {
		s.logger.Info("room expired", "code", code)
	}
	s.limiter.prune(s.now())
	return expired
}

// Shutdown tells every open room it is going away and closes its connections.
func (s *Server) Shutdown() {
	for _, code := range s.rooms.Codes() {
		s.rooms.Delete(code, func(room *Room) {
			broadcast(room, signalMessage{Type: "room_expired"}, nil)
			closeRoomConns(room)
		})
	}
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if s.allowAllOrigins() {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	return cfg
}

func (s *Server) allowAllOrigins() bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, origin := range s.cfg.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
