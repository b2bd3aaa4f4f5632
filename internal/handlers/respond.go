package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Intruder289/maishaap-backend-sub002/internal/gateway"
	"github.com/Intruder289/maishaap-backend-sub002/internal/jobs"
	"github.com/Intruder289/maishaap-backend-sub002/internal/middleware"
	"github.com/Intruder289/maishaap-backend-sub002/internal/repository"
	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// respondError maps a service error onto a status code and a stable error
// code.
func respondError(c *gin.Context, err error) {
	var (
		verr     *services.ValidationError
		over     *services.OverpaymentError
		conflict *services.ConflictError
		trans    *services.TransitionError
	)

	switch {
	case errors.As(err, &verr):
		body := ErrorResponse{Error: "validation_error", Message: verr.Message}
		if verr.Field != "" {
			body.Details = map[string]any{"field": verr.Field}
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &over):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "overpayment_rejected",
			Message: over.Error(),
			Details: map[string]any{
				"allowed_amount":   over.Allowed,
				"requested_amount": over.Requested,
				"pending_amount":   over.Pending,
			},
		})
	case errors.As(err, &conflict):
		details := map[string]any{"property_id": conflict.PropertyID}
		if conflict.RoomNumber != nil {
			details["room_number"] = *conflict.RoomNumber
		}
		c.JSON(http.StatusConflict, ErrorResponse{Error: "booking_conflict", Message: conflict.Error(), Details: details})
	case errors.As(err, &trans):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "invalid_transition",
			Message: trans.Error(),
			Details: map[string]any{"from": trans.From, "action": trans.Action},
		})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "invalid_transition", Message: err.Error()})
	case errors.Is(err, services.ErrBookingConflict), errors.Is(err, services.ErrDuplicate), errors.Is(err, jobs.ErrLocked):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict", Message: err.Error()})
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrMissingContact):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: err.Error()})
	case errors.Is(err, services.ErrNotFound), repository.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "record not found"})
	case errors.Is(err, services.ErrPermissionDenied), errors.Is(err, services.ErrInactiveAccount):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "permission_denied", Message: err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken), errors.Is(err, gateway.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
	case errors.Is(err, services.ErrGateway), errors.Is(err, gateway.ErrNotConfigured):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "gateway_error", Message: err.Error()})
	default:
		requestID := middleware.RequestID(c)
		logger.Error("request failed", "request_id", requestID, "method", c.Request.Method, "path", c.FullPath(), "error", err)
		_ = c.Error(err)
		body := ErrorResponse{Error: "internal_error", Message: "internal server error"}
		if requestID != "" {
			body.Details = map[string]any{"request_id": requestID}
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}

// badRequest reports a body that could not be decoded.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: err.Error()})
}

// pathID parses a numeric path parameter, answering 404 when it is not one.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "record not found"})
		return 0, false
	}
	return uint(id), true
}

// optionalUint reads a numeric query parameter; blank or malformed is nil.
func optionalUint(c *gin.Context, name string) *uint {
	v, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil || v == 0 {
		return nil
	}
	id := uint(v)
	return &id
}

// listQuery reads paging, search, ordering and the named filters.
func listQuery(c *gin.Context, filters ...string) *repository.ListQuery {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if query.PerPage < 1 || query.PerPage > 100 {
		query.PerPage = 20
	}
	query.Search = c.Query("search")
	query.SetOrdering(c.Query("ordering"))
	for _, f := range filters {
		if v := c.Query(f); v != "" {
			query.Filters[f] = v
		}
	}
	return query
}

func pagination(query *repository.ListQuery, total int64) gin.H {
	return gin.H{
		"page":        query.Page,
		"per_page":    query.PerPage,
		"total":       total,
		"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
	}
}
