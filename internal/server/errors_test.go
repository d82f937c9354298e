package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	cases := map[error]int{
		ErrRoomNotFound:       http.StatusNotFound,
		ErrRoomFull:           http.StatusConflict,
		ErrGameInProgress:     http.StatusConflict,
		ErrAlreadyAnswered:    http.StatusConflict,
		ErrNotHost:            http.StatusForbidden,
		ErrInvalidCredentials: http.StatusUnauthorized,
		ErrMalformed:          http.StatusBadRequest,
		ErrRateLimited:        http.StatusTooManyRequests,
		ErrAuthUnavailable:    http.StatusServiceUnavailable,
		errors.New("boom"):    http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusForError(err), err.Error())
	}
}

func TestErrorReasonUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("join: %w", ErrRoomFull)
	assert.Equal(t, "room_full", errorReason(wrapped))
	assert.Equal(t, "server_error", errorReason(errors.New("boom")))
}
