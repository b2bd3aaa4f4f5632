package handlers

import (
	"bufio"
	"io"
	"net/http"

	"github.com/Intruder289/maishaap-backend-sub002/internal/middleware"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
	"github.com/Intruder289/maishaap-backend-sub002/internal/storage"
	"github.com/Intruder289/maishaap-backend-sub002/pkg/logger"
	"github.com/gin-gonic/gin"
)

// webhookBodyLimit bounds a gateway callback body.
const webhookBodyLimit = 1 << 20

type PaymentHandler struct {
	paymentService *services.PaymentService
	gatewayService *services.GatewayService
}

func NewPaymentHandler(paymentService *services.PaymentService, gatewayService *services.GatewayService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, gatewayService: gatewayService}
}

// @Summary List Payments
// @Description Get a paginated list of payments visible to the caller
// @Tags Payments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status"
// @Param payment_type query string false "Filter by type"
// @Param payment_method query string false "Filter by method"
// @Param booking query int false "Booking ID"
// @Param rent_invoice query int false "Rent invoice ID"
// @Param lease query int false "Lease ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /payments [get]
func (h *PaymentHandler) Index(c *gin.Context) {
	query := listQuery(c, "status", "payment_type", "payment_method", "booking", "rent_invoice", "lease")
	payments, total, err := h.paymentService.List(c.Request.Context(), middleware.Viewer(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]models.PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, payments[i].ToResponse())
	}
	c.JSON(http.StatusOK, gin.H{"payments": responses, "pagination": pagination(query, total)})
}

// @Summary Get Payment
// @Tags Payments
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} models.PaymentResponse
// @Failure 404 {object} ErrorResponse
// @Security BearerAuth
// @Router /payments/{payment_id} [get]
func (h *PaymentHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
	if !ok {
		return
	}
	payment, err := h.paymentService.Get(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment.ToResponse()})
}

// @Summary Payment Status History
// @Tags Payments
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {array} models.PaymentAudit
// @Security BearerAuth
// @Router /payments/{payment_id}/audits [get]
func (h *PaymentHandler) Audits(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
	if !ok {
		return
	}
	audits, err := h.paymentService.Audits(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"audits": audits})
}

// @Summary Record Booking Payment
// @Description Records money against a booking; overpayment is rejected with the allowed amount
// @Tags Payments
// @Accept json
// @Produce json
// @Param booking_id path int true "Booking ID"
// @Param request body services.BookingPaymentInput true "Payment"
// @Success 201 {object} map[string]interface{}
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /bookings/{booking_id}/payments [post]
func (h *PaymentHandler) CreateForBooking(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}
	var req services.BookingPaymentInput
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		badRequest(c, err)
		return
	}
	booking, payment, err := h.paymentService.RecordBookingPayment(c.Request.Context(), id, req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking.ToResponse(), "payment": payment.ToResponse()})
}

// @Summary Record Rent Payment
// @Description Records rent against an invoice or directly against a lease
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body services.RentPaymentInput true "Payment"
// @Success 201 {object} models.PaymentResponse
// @Failure 422 {object} ErrorResponse
// @Security BearerAuth
// @Router /rent/payments [post]
func (h *PaymentHandler) CreateRent(c *gin.Context) {
	var req services.RentPaymentInput
	if err := BindNestedOrFlat(c, "payment", &req); err != nil {
		badRequest(c, err)
		return
	}
	payment, err := h.paymentService.RecordRentPayment(c.Request.Context(), req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": payment.ToResponse()})
}

type RefundRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// @Summary Refund Payment
// @Description Records a refund of a completed payment (staff or owner)
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Param request body RefundRequest true "Reason"
// @Success 201 {object} models.PaymentResponse
// @Security BearerAuth
// @Router /payments/{payment_id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
	if !ok {
		return
	}
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	refund, err := h.paymentService.Refund(c.Request.Context(), id, req.Reason, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payment": refund.ToResponse()})
}

// @Summary Upload Receipt
// @Description Attaches a PDF or image receipt to a cash payment
// @Tags Payments
// @Accept multipart/form-data
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Param receipt formData file true "Receipt File"
// @Success 200 {object} models.PaymentResponse
// @Security BearerAuth
// @Router /payments/{payment_id}/receipt [post]
func (h *PaymentHandler) UploadReceipt(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxReceiptSize+(64<<10))
	file, header, err := c.Request.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "receipt file is required", Details: map[string]any{"field": "receipt"}})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !storage.IsValidReceiptType(contentType) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "receipts must be PDF, JPEG or PNG", Details: map[string]any{"field": "receipt"}})
		return
	}

	payment, err := h.paymentService.UploadReceipt(c.Request.Context(), id, file, header.Filename, contentType, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment.ToResponse()})
}

// @Summary Download Receipt
// @Tags Payments
// @Produce octet-stream
// @Param payment_id path int true "Payment ID"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /payments/{payment_id}/receipt [get]
func (h *PaymentHandler) DownloadReceipt(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
	if !ok {
		return
	}
	rc, err := h.paymentService.OpenReceipt(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	head, _ := br.Peek(512)
	c.DataFromReader(http.StatusOK, -1, http.DetectContentType(head), br, nil)
}

// @Summary Start Gateway Checkout
// @Description Pushes a mobile-money checkout for a pending payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Param request body services.CheckoutInput false "Phone and network"
// @Success 200 {object} services.Checkout
// @Failure 502 {object} ErrorResponse
// @Security BearerAuth
// @Router /rent/payments/{payment_id}/initiate-gateway [post]
func (h *PaymentHandler) InitiateGateway(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
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
	checkout, err := h.gatewayService.Initiate(c.Request.Context(), id, req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkout)
}

// @Summary Verify Gateway Payment
// @Description Polls the gateway and applies the result to the ledger
// @Tags Payments
// @Produce json
// @Param payment_id path int true "Payment ID"
// @Success 200 {object} services.Verification
// @Security BearerAuth
// @Router /rent/payments/{payment_id}/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	id, ok := pathID(c, "payment_id")
	if !ok {
		return
	}
	result, err := h.gatewayService.Verify(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary AzamPay Webhook
// @Description Gateway callback; authenticated by the X-Signature header
// @Tags Payments
// @Accept json
// @Produce json
// @Param X-Signature header string true "HMAC-SHA256 of the body"
// @Success 200 {object} services.WebhookResult
// @Failure 401 {object} ErrorResponse
// @Router /payments/webhook/azam-pay [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, webhookBodyLimit))
	if err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.gatewayService.HandleWebhook(c.Request.Context(), body, c.GetHeader("X-Signature"))
	if err != nil {
		logger.Warn("webhook rejected", "remote", c.ClientIP(), "error", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
