package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Intruder289/maishaap-backend-sub002/internal/gateway"
	"github.com/Intruder289/maishaap-backend-sub002/internal/jobs"
	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func render(t *testing.T, err error) (int, ErrorResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, err)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestRespondError(t *testing.T) {
	room := "101"
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.ValidationError{Field: "amount", Message: "must be positive"}, http.StatusBadRequest, "validation_error"},
		{"overpayment", &services.OverpaymentError{Allowed: decimal.NewFromInt(200), Requested: decimal.NewFromInt(300)}, http.StatusUnprocessableEntity, "overpayment_rejected"},
		{"conflict", &services.ConflictError{PropertyID: 4, RoomNumber: &room}, http.StatusConflict, "booking_conflict"},
		{"transition", &services.TransitionError{Entity: "booking", From: "completed", Action: "cancel"}, http.StatusConflict, "invalid_transition"},
		{"wrapped transition sentinel", fmt.Errorf("apply: %w", services.ErrInvalidTransition), http.StatusConflict, "invalid_transition"},
		{"job locked", jobs.ErrLocked, http.StatusConflict, "conflict"},
		{"duplicate", services.ErrDuplicate, http.StatusConflict, "conflict"},
		{"missing contact", services.ErrMissingContact, http.StatusBadRequest, "validation_error"},
		{"not found", services.ErrNotFound, http.StatusNotFound, "not_found"},
		{"gorm not found", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found"},
		{"permission", services.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
		{"inactive", services.ErrInactiveAccount, http.StatusForbidden, "permission_denied"},
		{"credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{"signature", gateway.ErrInvalidSignature, http.StatusUnauthorized, "unauthorized"},
		{"gateway", &services.GatewayError{Provider: "azampay", Op: "checkout", Err: errors.New("timeout")}, http.StatusBadGateway, "gateway_error"},
		{"unconfigured gateway", gateway.ErrNotConfigured, http.StatusBadGateway, "gateway_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := render(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestRespondError_Details(t *testing.T) {
	_, body := render(t, &services.OverpaymentError{
		Allowed:   decimal.NewFromInt(200),
		Requested: decimal.NewFromInt(300),
		Pending:   decimal.NewFromInt(100),
	})
	assert.Equal(t, "200", body.Details["allowed_amount"])
	assert.Equal(t, "300", body.Details["requested_amount"])
	assert.Contains(t, body.Message, "200")

	_, body = render(t, &services.ValidationError{Field: "check_out_date", Message: "must be after check_in_date"})
	assert.Equal(t, "check_out_date", body.Details["field"])

	_, body = render(t, errors.New("secret database detail"))
	assert.NotContains(t, body.Message, "secret")
}

func TestListQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3&per_page=500&search=sea&ordering=-check_in_date&status=confirmed&ignored=x", nil)

	query := listQuery(c, "status", "property")
	assert.Equal(t, 3, query.Page)
	assert.Equal(t, 20, query.PerPage, "oversized pages fall back to the default")
	assert.Equal(t, "sea", query.Search)
	assert.Equal(t, "check_in_date", query.SortBy)
	assert.Equal(t, "desc", query.SortDir)
	assert.Equal(t, "confirmed", query.Filter("status"))
	assert.Empty(t, query.Filter("property"))
	assert.Empty(t, query.Filter("ignored"))

	page := pagination(query, 41)
	assert.EqualValues(t, 3, page["total_pages"])
}

func TestPathID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/bookings/:booking_id", func(c *gin.Context) {
		id, ok := pathID(c, "booking_id")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	for path, status := range map[string]int{
		"/bookings/12":  http.StatusOK,
		"/bookings/0":   http.StatusNotFound,
		"/bookings/abc": http.StatusNotFound,
		"/bookings/-1":  http.StatusNotFound,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, w.Code, path)
	}
}
