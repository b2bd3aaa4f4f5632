package handlers

import (
	"net/http"

	"github.com/Intruder289/maishaap-backend-sub002/internal/middleware"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService *services.BookingService
}

func NewBookingHandler(bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// @Summary List Bookings
// @Description Bookings visible to the caller
// @Tags Bookings
// @Produce json
// @Param status query string false "Booking status"
// @Param payment_status query string false "Payment status"
// @Param property query int false "Property ID"
// @Param customer query int false "Customer ID"
// @Param search query string false "Booking reference or guest"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /bookings [get]
func (h *BookingHandler) Index(c *gin.Context) {
	query := listQuery(c, "status", "payment_status", "property", "customer")
	bookings, total, err := h.bookingService.List(c.Request.Context(), middleware.Viewer(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.BookingResponse, 0, len(bookings))
	for i := range bookings {
		responses = append(responses, bookings[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"bookings": responses, "pagination": pagination(query, total)})
}

// @Summary Create Booking
// @Description Books a stay; a hotel or lodge booking without a room number reserves the whole property
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body services.BookingInput true "Booking"
// @Success 201 {object} models.BookingResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req services.BookingInput
	if err := BindNestedOrFlat(c, "booking", &req); err != nil {
		badRequest(c, err)
		return
	}
	booking, err := h.bookingService.Create(c.Request.Context(), req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking.ToResponse()})
}

// @Summary Get Booking
// @Tags Bookings
// @Produce json
// @Param booking_id path int true "Booking ID"
// @Success 200 {object} models.BookingResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /bookings/{booking_id} [get]
func (h *BookingHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}
	booking, err := h.bookingService.Get(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking.ToResponse()})
}

// @Summary Update Booking
// @Description Edits dates, guests or requests of a pending booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param booking_id path int true "Booking ID"
// @Param request body services.BookingUpdateInput true "Changes"
// @Success 200 {object} models.BookingResponse
// @Security BearerAuth
// @Router /bookings/{booking_id} [patch]
func (h *BookingHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}
	var req services.BookingUpdateInput
	if err := BindNestedOrFlat(c, "booking", &req); err != nil {
		badRequest(c, err)
		return
	}
	booking, err := h.bookingService.Update(c.Request.Context(), id, req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking.ToResponse()})
}

// @Summary Delete Booking
// @Tags Bookings
// @Param booking_id path int true "Booking ID"
// @Success 204
// @Security BearerAuth
// @Router /bookings/{booking_id} [delete]
func (h *BookingHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}
	if err := h.bookingService.Delete(c.Request.Context(), id, middleware.Viewer(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Recompute Booking Total
// @Tags Bookings
// @Produce json
// @Param booking_id path int true "Booking ID"
// @Success 200 {object} models.BookingResponse
// @Security BearerAuth
// @Router /bookings/{booking_id}/recalculate [post]
func (h *BookingHandler) Recalculate(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}
	booking, err := h.bookingService.RecomputeTotal(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking.ToResponse()})
}

type TransitionRequest struct {
	Reason string `json:"reason"`
}

// Transition returns a handler running one lifecycle action.
//
// @Summary Booking Action
// @Description confirm, check-in, check-out, cancel or no-show
// @Tags Bookings
// @Accept json
// @Produce json
// @Param booking_id path int true "Booking ID"
// @Param request body TransitionRequest false "Reason (cancel)"
// @Success 200 {object} models.BookingResponse
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /bookings/{booking_id}/confirm [post]
// @Router /bookings/{booking_id}/check-in [post]
// @Router /bookings/{booking_id}/check-out [post]
// @Router /bookings/{booking_id}/cancel [post]
// @Router /bookings/{booking_id}/no-show [post]
func (h *BookingHandler) Transition(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "booking_id")
		if !ok {
			return
		}
		var req TransitionRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err)
				return
			}
		}
		booking, err := h.bookingService.Transition(c.Request.Context(), id, action, req.Reason, middleware.Viewer(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"booking": booking.ToResponse()})
	}
}

type CustomerHandler struct {
	customerService *services.CustomerService
}

func NewCustomerHandler(customerService *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// @Summary List Customers
// @Tags Customers
// @Produce json
// @Param search query string false "Name or email"
// @Param is_active query bool false "Active only"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /customers [get]
func (h *CustomerHandler) Index(c *gin.Context) {
	query := listQuery(c, "is_active")
	customers, total, err := h.customerService.List(c.Request.Context(), middleware.Viewer(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customers": customers, "pagination": pagination(query, total)})
}

// @Summary Create Customer
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body services.CustomerInput true "Customer"
// @Success 201 {object} models.Customer
// @Failure 409 {object} ErrorResponse
// @Security BearerAuth
// @Router /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req services.CustomerInput
	if err := BindNestedOrFlat(c, "customer", &req); err != nil {
		badRequest(c, err)
		return
	}
	customer, err := h.customerService.Create(c.Request.Context(), req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}

// @Summary Get Customer
// @Tags Customers
// @Produce json
// @Param customer_id path int true "Customer ID"
// @Success 200 {object} models.Customer
// @Security BearerAuth
// @Router /customers/{customer_id} [get]
func (h *CustomerHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "customer_id")
	if !ok {
		return
	}
	customer, err := h.customerService.FindByID(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"customer": customer})
}
