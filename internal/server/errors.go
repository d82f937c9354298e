package server

import (
	"errors"
	"net/http"
)

type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindCapacity
	KindIllegalState
	KindUnauthorized
	KindDuplicate
	KindMalformed
	KindUnavailable
)

// Error is a recoverable per-request failure. Reason is the stable,
// client-facing identifier sent over the wire.
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

var (
	ErrRoomNotFound       = &Error{KindNotFound, "room_not_found"}
	ErrPlayerNotFound     = &Error{KindNotFound, "player_not_found"}
	ErrNotInRoom          = &Error{KindNotFound, "not_in_room"}
	ErrRoomFull           = &Error{KindCapacity, "room_full"}
	ErrCapacityExhausted  = &Error{KindCapacity, "capacity_exhausted"}
	ErrGameInProgress     = &Error{KindIllegalState, "game_in_progress"}
	ErrWrongPhase         = &Error{KindIllegalState, "wrong_phase"}
	ErrNoReadyPlayers     = &Error{KindIllegalState, "no_ready_players"}
	ErrAlreadyJoined      = &Error{KindIllegalState, "already_joined"}
	ErrNoQuestions        = &Error{KindUnavailable, "no_questions"}
	ErrNotHost            = &Error{KindUnauthorized, "not_host"}
	ErrInvalidCredentials = &Error{KindUnauthorized, "invalid_credentials"}
	ErrAlreadyAnswered    = &Error{KindDuplicate, "already_answered"}
	ErrMalformed          = &Error{KindMalformed, "invalid_json"}
	ErrUnknownType        = &Error{KindMalformed, "unknown_message_type"}
	ErrInvalidChoice      = &Error{KindMalformed, "invalid_choice"}
	ErrInvalidName        = &Error{KindMalformed, "invalid_name"}
	ErrInvalidCategory    = &Error{KindMalformed, "invalid_category"}
	ErrInvalidMessage     = &Error{KindMalformed, "invalid_message"}
	ErrInvalidMaxPlayers  = &Error{KindMalformed, "invalid_max_players"}
	ErrRateLimited        = &Error{KindCapacity, "rate_limited"}
	ErrAuthUnavailable    = &Error{KindUnavailable, "auth_unavailable"}
)

func errorReason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "server_error"
}

func statusForError(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	if e == ErrRateLimited {
		return http.StatusTooManyRequests
	}
	if e == ErrInvalidCredentials {
		return http.StatusUnauthorized
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindCapacity, KindIllegalState, KindDuplicate:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusForbidden
	case KindMalformed:
		return http.StatusBadRequest
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
