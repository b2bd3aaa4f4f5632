package handlers

import (
	"net/http"

	"github.com/Intruder289/maishaap-backend-sub002/internal/middleware"
	"github.com/Intruder289/maishaap-backend-sub002/internal/models"
	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
	"github.com/gin-gonic/gin"
)

type RentHandler struct {
	invoiceService *services.InvoiceService
	leaseService   *services.LeaseService
	paymentService *services.PaymentService
}

func NewRentHandler(invoiceService *services.InvoiceService, leaseService *services.LeaseService, paymentService *services.PaymentService) *RentHandler {
	return &RentHandler{
		invoiceService: invoiceService,
		leaseService:   leaseService,
		paymentService: paymentService,
	}
}

// @Summary List Rent Invoices
// @Tags Rent
// @Produce json
// @Param status query string false "Invoice status"
// @Param lease query int false "Lease ID"
// @Param tenant query int false "Tenant user ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /rent/invoices [get]
func (h *RentHandler) Invoices(c *gin.Context) {
	query := listQuery(c, "status", "lease", "tenant")
	invoices, total, err := h.invoiceService.List(c.Request.Context(), middleware.Viewer(c), query)
	if err != nil {
		respondError(c, err)
		return
	}

	today := h.invoiceService.Today()
	responses := make([]models.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, invoices[i].ToResponse(today))
	}
	c.JSON(http.StatusOK, gin.H{"invoices": responses, "pagination": pagination(query, total)})
}

// @Summary Get Rent Invoice
// @Tags Rent
// @Produce json
// @Param invoice_id path int true "Invoice ID"
// @Success 200 {object} models.InvoiceResponse
// @Security BearerAuth
// @Router /rent/invoices/{invoice_id} [get]
func (h *RentHandler) Invoice(c *gin.Context) {
	id, ok := pathID(c, "invoice_id")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.Get(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": invoice.ToResponse(h.invoiceService.Today())})
}

type GenerateInvoicesRequest struct {
	Month  int  `json:"month"`
	Year   int  `json:"year"`
	Force  bool `json:"force"`
	DryRun bool `json:"dry_run"`
}

// @Summary Generate Monthly Invoices
// @Description Issues one invoice per active lease for the month (staff)
// @Tags Rent
// @Accept json
// @Produce json
// @Param request body GenerateInvoicesRequest false "Month and year, default the current month"
// @Success 200 {object} services.GenerateResult
// @Security BearerAuth
// @Router /rent/invoices/generate-monthly [post]
func (h *RentHandler) GenerateMonthly(c *gin.Context) {
	var req GenerateInvoicesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	result, err := h.invoiceService.GenerateMonthly(c.Request.Context(), services.GenerateOptions{
		Month:  req.Month,
		Year:   req.Year,
		Force:  req.Force,
		DryRun: req.DryRun,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Mark Invoice Paid
// @Description Records a manual payment; the amount defaults to the balance
// @Tags Rent
// @Accept json
// @Produce json
// @Param invoice_id path int true "Invoice ID"
// @Param request body services.MarkPaidInput false "Payment"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /rent/invoices/{invoice_id}/mark-paid [post]
func (h *RentHandler) MarkPaid(c *gin.Context) {
	id, ok := pathID(c, "invoice_id")
	if !ok {
		return
	}
	var req services.MarkPaidInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	invoice, payment, err := h.paymentService.MarkInvoicePaid(c.Request.Context(), id, req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"invoice": invoice.ToResponse(h.invoiceService.Today()),
		"payment": payment.ToResponse(),
	})
}

// @Summary Send Invoice
// @Description Emails a draft invoice to the tenant and marks it sent
// @Tags Rent
// @Produce json
// @Param invoice_id path int true "Invoice ID"
// @Success 200 {object} models.InvoiceResponse
// @Security BearerAuth
// @Router /rent/invoices/{invoice_id}/send [post]
func (h *RentHandler) SendInvoice(c *gin.Context) {
	id, ok := pathID(c, "invoice_id")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.Send(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": invoice.ToResponse(h.invoiceService.Today())})
}

// @Summary List Leases
// @Tags Rent
// @Produce json
// @Param status query string false "Lease status"
// @Param property query int false "Property ID"
// @Param tenant query int false "Tenant user ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /rent/leases [get]
func (h *RentHandler) Leases(c *gin.Context) {
	query := listQuery(c, "status", "property", "tenant")
	leases, total, err := h.leaseService.List(c.Request.Context(), middleware.Viewer(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leases": leases, "pagination": pagination(query, total)})
}

// @Summary Get Lease
// @Tags Rent
// @Produce json
// @Param lease_id path int true "Lease ID"
// @Success 200 {object} models.Lease
// @Security BearerAuth
// @Router /rent/leases/{lease_id} [get]
func (h *RentHandler) Lease(c *gin.Context) {
	id, ok := pathID(c, "lease_id")
	if !ok {
		return
	}
	lease, err := h.leaseService.Get(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lease": lease})
}

// @Summary Create Lease
// @Tags Rent
// @Accept json
// @Produce json
// @Param request body services.LeaseInput true "Lease"
// @Success 201 {object} models.Lease
// @Security BearerAuth
// @Router /rent/leases [post]
func (h *RentHandler) CreateLease(c *gin.Context) {
	var req services.LeaseInput
	if err := BindNestedOrFlat(c, "lease", &req); err != nil {
		badRequest(c, err)
		return
	}
	lease, err := h.leaseService.Create(c.Request.Context(), req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"lease": lease})
}

// @Summary Update Lease
// @Tags Rent
// @Accept json
// @Produce json
// @Param lease_id path int true "Lease ID"
// @Param request body services.LeaseUpdateInput true "Changes"
// @Success 200 {object} models.Lease
// @Security BearerAuth
// @Router /rent/leases/{lease_id} [patch]
func (h *RentHandler) UpdateLease(c *gin.Context) {
	id, ok := pathID(c, "lease_id")
	if !ok {
		return
	}
	var req services.LeaseUpdateInput
	if err := BindNestedOrFlat(c, "lease", &req); err != nil {
		badRequest(c, err)
		return
	}
	lease, err := h.leaseService.Update(c.Request.Context(), id, req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lease": lease})
}

// @Summary Get Late Fee Config
// @Tags Rent
// @Produce json
// @Param lease_id path int true "Lease ID"
// @Success 200 {object} models.LateFeeConfig
// @Security BearerAuth
// @Router /rent/leases/{lease_id}/late-fee-config [get]
func (h *RentHandler) LateFeeConfig(c *gin.Context) {
	id, ok := pathID(c, "lease_id")
	if !ok {
		return
	}
	cfg, err := h.invoiceService.LateFeeConfig(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"late_fee_config": cfg})
}

// @Summary Save Late Fee Config
// @Tags Rent
// @Accept json
// @Produce json
// @Param lease_id path int true "Lease ID"
// @Param request body services.LateFeeConfigInput true "Config"
// @Success 200 {object} models.LateFeeConfig
// @Security BearerAuth
// @Router /rent/leases/{lease_id}/late-fee-config [put]
func (h *RentHandler) SaveLateFeeConfig(c *gin.Context) {
	id, ok := pathID(c, "lease_id")
	if !ok {
		return
	}
	var req services.LateFeeConfigInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cfg, err := h.invoiceService.SaveLateFeeConfig(c.Request.Context(), id, req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"late_fee_config": cfg})
}
