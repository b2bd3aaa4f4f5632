package handlers

import (
	"net/http"

	"github.com/Intruder289/maishaap-backend-sub002/internal/middleware"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
	"github.com/gin-gonic/gin"
)

type PropertyHandler struct {
	propertyService *services.PropertyService
	paymentService  *services.PaymentService
	gatewayService  *services.GatewayService
}

func NewPropertyHandler(propertyService *services.PropertyService, paymentService *services.PaymentService, gatewayService *services.GatewayService) *PropertyHandler {
	return &PropertyHandler{
		propertyService: propertyService,
		paymentService:  paymentService,
		gatewayService:  gatewayService,
	}
}

// @Summary List Properties
// @Description Approved listings for everyone; owners also see their own drafts
// @Tags Properties
// @Produce json
// @Param property_type query string false "house, hotel, lodge or venue"
// @Param status query string false "Status"
// @Param region query string false "Region"
// @Param owner_id query int false "Owner"
// @Param search query string false "Search title"
// @Param ordering query string false "Field, prefix with - for descending"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /properties [get]
func (h *PropertyHandler) Index(c *gin.Context) {
	query := listQuery(c, "property_type", "status", "region", "owner_id")
	properties, total, err := h.propertyService.List(c.Request.Context(), middleware.Viewer(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.PropertyResponse, 0, len(properties))
	for i := range properties {
		responses = append(responses, properties[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"properties": responses, "pagination": pagination(query, total)})
}

// @Summary Get Property
// @Tags Properties
// @Produce json
// @Param property_id path int true "Property ID"
// @Success 200 {object} models.PropertyResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /properties/{property_id} [get]
func (h *PropertyHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "property_id")
	if !ok {
		return
	}
	property, err := h.propertyService.Get(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"property": property.ToResponse()})
}

// @Summary Create Property
// @Description Owners list their own property; staff listings are approved at once
// @Tags Properties
// @Accept json
// @Produce json
// @Param request body services.PropertyInput true "Property"
// @Success 201 {object} models.PropertyResponse
// @Failure 400 {object} ErrorResponse
// @Security BearerAuth
// @Router /properties [post]
func (h *PropertyHandler) Create(c *gin.Context) {
	var req services.PropertyInput
	if err := BindNestedOrFlat(c, "property", &req); err != nil {
		badRequest(c, err)
		return
	}
	property, err := h.propertyService.Create(c.Request.Context(), req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"property": property.ToResponse()})
}

// @Summary Approve Property
// @Tags Properties
// @Produce json
// @Param property_id path int true "Property ID"
// @Success 200 {object} models.PropertyResponse
// @Security BearerAuth
// @Router /properties/{property_id}/approve [post]
func (h *PropertyHandler) Approve(c *gin.Context) {
	id, ok := pathID(c, "property_id")
	if !ok {
		return
	}
	property, err := h.propertyService.Approve(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"property": property.ToResponse()})
}

// @Summary List Rooms
// @Tags Rooms
// @Produce json
// @Param property_id path int true "Property ID"
// @Success 200 {array} models.Room
// @Security BearerAuth
// @Router /properties/{property_id}/rooms [get]
func (h *PropertyHandler) Rooms(c *gin.Context) {
	id, ok := pathID(c, "property_id")
	if !ok {
		return
	}
	rooms, err := h.propertyService.ListRooms(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// @Summary Create Room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param property_id path int true "Property ID"
// @Param request body services.RoomInput true "Room"
// @Success 201 {object} models.Room
// @Security BearerAuth
// @Router /properties/{property_id}/rooms [post]
func (h *PropertyHandler) CreateRoom(c *gin.Context) {
	id, ok := pathID(c, "property_id")
	if !ok {
		return
	}
	var req services.RoomInput
	if err := BindNestedOrFlat(c, "room", &req); err != nil {
		badRequest(c, err)
		return
	}
	room, err := h.propertyService.CreateRoom(c.Request.Context(), id, req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

type RoomStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// @Summary Set Room Status
// @Description Sets or clears maintenance and out_of_order; "available" re-syncs from bookings
// @Tags Rooms
// @Accept json
// @Produce json
// @Param room_id path int true "Room ID"
// @Param request body RoomStatusRequest true "Status"
// @Success 200 {object} models.Room
// @Security BearerAuth
// @Router /rooms/{room_id}/status [patch]
func (h *PropertyHandler) SetRoomStatus(c *gin.Context) {
	id, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	var req RoomStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	room, err := h.propertyService.SetRoomStatus(c.Request.Context(), id, req.Status, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// @Summary Sync Room Status
// @Description Recomputes every room of a hotel or lodge from its bookings (staff)
// @Tags Rooms
// @Produce json
// @Param property_id path int true "Property ID"
// @Param dry_run query bool false "Report without writing"
// @Success 200 {object} services.RoomSyncResult
// @Security BearerAuth
// @Router /properties/{property_id}/rooms/sync [post]
func (h *PropertyHandler) SyncRooms(c *gin.Context) {
	id, ok := pathID(c, "property_id")
	if !ok {
		return
	}
	result, err := h.propertyService.SyncRooms(c.Request.Context(), &id, c.Query("dry_run") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Pay for a house visit
// @Description Opens the visit payment and starts a gateway checkout
// @Tags Properties
// @Accept json
// @Produce json
// @Param property_id path int true "Property ID"
// @Param request body services.CheckoutInput false "Phone to charge"
// @Success 201 {object} services.Checkout
// @Security BearerAuth
// @Router /properties/{property_id}/visit-payment [post]
func (h *PropertyHandler) VisitPayment(c *gin.Context) {
	id, ok := pathID(c, "property_id")
	if !ok {
		return
	}
	var req services.CheckoutInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	checkout, err := h.gatewayService.InitiateVisitPayment(c.Request.Context(), id, req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, checkout)
}

// @Summary Visit access
// @Description Owner contact and exact location once the visit is paid
// @Tags Properties
// @Produce json
// @Param property_id path int true "Property ID"
// @Success 200 {object} services.VisitAccess
// @Security BearerAuth
// @Router /properties/{property_id}/visit-status [get]
func (h *PropertyHandler) VisitStatus(c *gin.Context) {
	id, ok := pathID(c, "property_id")
	if !ok {
		return
	}
	access, err := h.paymentService.VisitStatus(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, access)
}
