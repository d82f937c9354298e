package server

import (
	"github.com/gin-gonic/gin"
)

func writeError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusForError(err), gin.H{
		"ok":    false,
		"error": errorReason(err),
	})
}

// allowRequest applies the per-IP limit for action.
func (s *Server) allowRequest(c *gin.Context, action string) bool {
	if s.limiter.allow(action, c.ClientIP(), s.now()) {
		return true
	}
	writeError(c, ErrRateLimited)
	return false
}
