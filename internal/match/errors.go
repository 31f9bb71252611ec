package match

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidSessionCode = errors.New("invalid_session_code")
	ErrSessionFull        = errors.New("session_full")
	ErrSessionStarted     = errors.New("session_started")
	ErrSessionClosed      = errors.New("session_closed")
	ErrParticipantExists  = errors.New("participant_exists")
	ErrUnknownParticipant = errors.New("participant_not_found")
	ErrNoDestination      = errors.New("no_valid_destination")
	ErrSettlementDisabled = errors.New("settlement_disabled")
	ErrMatchNotPlaying    = errors.New("match_not_playing")
	errInvalidParticipant = errors.New("invalid_participant_id")
)

func MapSessionError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidSessionCode), errors.Is(err, errInvalidParticipant):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, ErrSessionFull):
		return http.StatusConflict, "session_full"
	case errors.Is(err, ErrSessionStarted):
		return http.StatusConflict, "session_started"
	case errors.Is(err, ErrSessionClosed):
		return http.StatusGone, "session_closed"
	case errors.Is(err, ErrParticipantExists):
		return http.StatusConflict, "participant_exists"
	case errors.Is(err, ErrUnknownParticipant):
		return http.StatusNotFound, "participant_not_found"
	case errors.Is(err, ErrMatchNotPlaying):
		return http.StatusConflict, "match_not_playing"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
