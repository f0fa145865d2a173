package api

import (
	"errors"
	"net/http"

	"pollpulse/internal/domain/room"
	"pollpulse/internal/domain/user"
	"pollpulse/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		slogLogger.Error("request failed", "code", appErr.Code, "error", appErr.Err)
	}
	appErr.Write(w)
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var roomErr *room.Error
	if errors.As(err, &roomErr) {
		return mapRoomError(roomErr)
	}

	switch {
	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid email or password", err)
	case errors.Is(err, user.ErrEmailTaken):
		return apperr.Conflict("email_taken", "an account with this email already exists", err)
	case errors.Is(err, user.ErrMissingFields):
		return apperr.BadRequest("missing_field", err.Error(), err)
	case errors.Is(err, user.ErrUserNotFound):
		return apperr.NotFound("user_not_found", "user not found", err)
	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}

func mapRoomError(e *room.Error) *apperr.AppError {
	code := e.Kind.String()
	switch e.Kind {
	case room.KindNotFound:
		return apperr.NotFound(code, e.Msg, e)
	case room.KindForbidden:
		return apperr.Forbidden(code, e.Msg, e)
	case room.KindAlreadyVoted:
		return apperr.Conflict(code, e.Msg, e)
	case room.KindVotingClosed, room.KindInvalidArgument, room.KindMissingField,
		room.KindTooFewOptions, room.KindTooManyOptions, room.KindPastDeadline:
		return apperr.BadRequest(code, e.Msg, e)
	default:
		return apperr.Internal(code, "storage failure", e)
	}
}
