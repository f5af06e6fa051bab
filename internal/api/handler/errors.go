package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/errors"
	"github.com/SteveWTK/neptunes-tribe-english-sub006/pkg/response"
)

// Business codes.
const (
	CodeValidation     = 10001
	CodeUnauthorized   = 10002
	CodeForbidden      = 10003
	CodeRateLimited    = 10004
	CodeBodyTooLarge   = 10005
	CodeNotFound       = 20001
	CodeAlreadyUsed    = 30001
	CodeExpired        = 30002
	CodeOptimisticLock = 40001
	CodeUpstream       = 50200
	CodeInternal       = 50000
)

// handleError maps a service error onto the response envelope.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, CodeValidation, pkgerrors.Message(err, "invalid request"))
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		response.Unauthorized(c, CodeUnauthorized, pkgerrors.Message(err, "not authenticated"))
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, CodeNotFound, pkgerrors.Message(err, "not found"))
	case errors.Is(err, pkgerrors.ErrAlreadyUsed):
		response.Conflict(c, CodeAlreadyUsed, pkgerrors.Message(err, "already used"))
	case errors.Is(err, pkgerrors.ErrExpired):
		response.Gone(c, CodeExpired, pkgerrors.Message(err, "expired"))
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Error(c, http.StatusConflict, CodeOptimisticLock, "the record changed concurrently, please retry")
	case errors.Is(err, pkgerrors.ErrUpstream):
		response.BadGateway(c, CodeUpstream, pkgerrors.Message(err, "an upstream service is unavailable"))
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// badRequest answers a binding failure.
func badRequest(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Error(c, http.StatusRequestEntityTooLarge, CodeBodyTooLarge, "request body too large")
		return
	}
	response.ErrorWithDetails(c, http.StatusBadRequest, CodeValidation, "invalid request", err.Error())
}
