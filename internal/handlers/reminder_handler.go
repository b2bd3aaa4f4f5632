package handlers

import (
	"net/http"

	"github.com/Intruder289/maishaap-backend-sub002/internal/middleware"
	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
	"github.com/gin-gonic/gin"
)

type ReminderHandler struct {
	reminderService *services.ReminderService
}

func NewReminderHandler(reminderService *services.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminderService: reminderService}
}

// @Summary Get Reminder Settings
// @Description Settings of a property, created with defaults on first read
// @Tags Reminders
// @Produce json
// @Param property_id path int true "Property ID"
// @Success 200 {object} models.ReminderSettings
// @Security BearerAuth
// @Router /reminders/settings/{property_id} [get]
func (h *ReminderHandler) Settings(c *gin.Context) {
	id, ok := pathID(c, "property_id")
	if !ok {
		return
	}
	settings, err := h.reminderService.Settings(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// @Summary Update Reminder Settings
// @Tags Reminders
// @Accept json
// @Produce json
// @Param property_id path int true "Property ID"
// @Param request body services.ReminderSettingsInput true "Changes"
// @Success 200 {object} models.ReminderSettings
// @Security BearerAuth
// @Router /reminders/settings/{property_id} [put]
func (h *ReminderHandler) UpdateSettings(c *gin.Context) {
	id, ok := pathID(c, "property_id")
	if !ok {
		return
	}
	var req services.ReminderSettingsInput
	if err := BindNestedOrFlat(c, "settings", &req); err != nil {
		badRequest(c, err)
		return
	}
	settings, err := h.reminderService.UpdateSettings(c.Request.Context(), id, req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// @Summary List Reminder Templates
// @Tags Reminders
// @Produce json
// @Param template_type query string false "email, sms or push"
// @Param category query string false "Category"
// @Param is_active query bool false "Active only"
// @Success 200 {array} models.ReminderTemplate
// @Security BearerAuth
// @Router /reminders/templates [get]
func (h *ReminderHandler) Templates(c *gin.Context) {
	query := listQuery(c, "template_type", "category", "is_active")
	templates, err := h.reminderService.ListTemplates(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// @Summary Get Reminder Template
// @Tags Reminders
// @Produce json
// @Param template_id path int true "Template ID"
// @Success 200 {object} models.ReminderTemplate
// @Security BearerAuth
// @Router /reminders/templates/{template_id} [get]
func (h *ReminderHandler) Template(c *gin.Context) {
	id, ok := pathID(c, "template_id")
	if !ok {
		return
	}
	template, err := h.reminderService.GetTemplate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": template})
}

// @Summary Create Reminder Template
// @Description Content may only use the known placeholders (staff)
// @Tags Reminders
// @Accept json
// @Produce json
// @Param request body services.ReminderTemplateInput true "Template"
// @Success 201 {object} models.ReminderTemplate
// @Security BearerAuth
// @Router /reminders/templates [post]
func (h *ReminderHandler) CreateTemplate(c *gin.Context) {
	var req services.ReminderTemplateInput
	if err := BindNestedOrFlat(c, "template", &req); err != nil {
		badRequest(c, err)
		return
	}
	template, err := h.reminderService.CreateTemplate(c.Request.Context(), req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"template": template})
}

// @Summary Update Reminder Template
// @Tags Reminders
// @Accept json
// @Produce json
// @Param template_id path int true "Template ID"
// @Param request body services.ReminderTemplateInput true "Changes"
// @Success 200 {object} models.ReminderTemplate
// @Security BearerAuth
// @Router /reminders/templates/{template_id} [patch]
func (h *ReminderHandler) UpdateTemplate(c *gin.Context) {
	id, ok := pathID(c, "template_id")
	if !ok {
		return
	}
	var req services.ReminderTemplateInput
	if err := BindNestedOrFlat(c, "template", &req); err != nil {
		badRequest(c, err)
		return
	}
	template, err := h.reminderService.UpdateTemplate(c.Request.Context(), id, req, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": template})
}

// @Summary Delete Reminder Template
// @Tags Reminders
// @Param template_id path int true "Template ID"
// @Success 204
// @Security BearerAuth
// @Router /reminders/templates/{template_id} [delete]
func (h *ReminderHandler) DeleteTemplate(c *gin.Context) {
	id, ok := pathID(c, "template_id")
	if !ok {
		return
	}
	if err := h.reminderService.DeleteTemplate(c.Request.Context(), id, middleware.Viewer(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List Reminders
// @Tags Reminders
// @Produce json
// @Param status query string false "Reminder status"
// @Param reminder_type query string false "email, sms or push"
// @Param booking query int false "Booking ID"
// @Param property query int false "Property ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /reminders [get]
func (h *ReminderHandler) Index(c *gin.Context) {
	query := listQuery(c, "status", "reminder_type", "booking", "property")
	reminders, total, err := h.reminderService.List(c.Request.Context(), middleware.Viewer(c), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders, "pagination": pagination(query, total)})
}

// @Summary Get Reminder
// @Tags Reminders
// @Produce json
// @Param reminder_id path int true "Reminder ID"
// @Success 200 {object} models.Reminder
// @Security BearerAuth
// @Router /reminders/{reminder_id} [get]
func (h *ReminderHandler) Show(c *gin.Context) {
	id, ok := pathID(c, "reminder_id")
	if !ok {
		return
	}
	reminder, err := h.reminderService.Get(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminder": reminder})
}

// @Summary Reminder Logs
// @Tags Reminders
// @Produce json
// @Param reminder_id path int true "Reminder ID"
// @Success 200 {array} models.ReminderLog
// @Security BearerAuth
// @Router /reminders/{reminder_id}/logs [get]
func (h *ReminderHandler) Logs(c *gin.Context) {
	id, ok := pathID(c, "reminder_id")
	if !ok {
		return
	}
	logs, err := h.reminderService.Logs(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// @Summary Send Reminder Now
// @Tags Reminders
// @Produce json
// @Param reminder_id path int true "Reminder ID"
// @Success 200 {object} models.Reminder
// @Security BearerAuth
// @Router /reminders/{reminder_id}/send [post]
func (h *ReminderHandler) Send(c *gin.Context) {
	id, ok := pathID(c, "reminder_id")
	if !ok {
		return
	}
	reminder, err := h.reminderService.Send(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminder": reminder})
}

// @Summary Cancel Reminder
// @Tags Reminders
// @Produce json
// @Param reminder_id path int true "Reminder ID"
// @Success 200 {object} models.Reminder
// @Security BearerAuth
// @Router /reminders/{reminder_id}/cancel [post]
func (h *ReminderHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "reminder_id")
	if !ok {
		return
	}
	reminder, err := h.reminderService.Cancel(c.Request.Context(), id, middleware.Viewer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminder": reminder})
}
