package server

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type bindMessages map[string]map[string]string

// bindJSON binds and validates the request body. An empty body is allowed
// when optional is set, leaving req at its zero value.
func bindJSON(c *gin.Context, req any, optional bool, messages bindMessages) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	if optional && errors.Is(err, io.EOF) {
		return true
	}
	writeError(c, resolveBindError(err, messages))
	return false
}

type roomURI struct {
	Code string `uri:"code" binding:"required"`
}

// bindRoomCode resolves the :code path parameter to a normalized code.
func (s *Server) bindRoomCode(c *gin.Context) (string, bool) {
	var uri roomURI
	if err := c.ShouldBindUri(&uri); err != nil {
		writeError(c, ErrRoomNotFound)
		return "", false
	}
	code, ok := s.codes.normalize(uri.Code)
	if !ok {
		writeError(c, ErrRoomNotFound)
		return "", false
	}
	return code, true
}

func resolveBindError(err error, messages bindMessages) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if fieldErrs, ok := messages[verr.Field()]; ok {
				if reason, ok := fieldErrs[verr.Tag()]; ok {
					return &Error{Kind: KindMalformed, Reason: reason}
				}
			}
		}
		return ErrInvalidMessage
	}
	return ErrMalformed
}
