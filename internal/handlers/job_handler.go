package handlers

import (
	"net/http"

	"github.com/Intruder289/maishaap-backend-sub002/internal/middleware"
	"github.com/Intruder289/maishaap-backend-sub002/internal/services"
	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	jobService *services.JobService
}

func NewJobHandler(jobSvc *services.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobSvc,
	}
}

// Stats returns the worker counters and the last run of every job
// @Summary Get background job status
// @Description Worker statistics and per-job run history (staff)
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.JobStats
// @Router /jobs/stats [get]
func (h *JobHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobService.Stats())
}

// Run queues a periodic job on the background worker
// @Summary Run a job now
// @Description Queues one of the periodic jobs; a job already running elsewhere is skipped
// @Tags Jobs
// @Accept json
// @Produce json
// @Param name path string true "Job name"
// @Param request body services.JobParams false "Job parameters"
// @Security BearerAuth
// @Success 202 {object} map[string]string
// @Router /jobs/{name}/run [post]
func (h *JobHandler) Run(c *gin.Context) {
	var params services.JobParams
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			badRequest(c, err)
			return
		}
	}
	name := c.Param("name")
	if err := h.jobService.RunAsync(c.Request.Context(), name, params, middleware.Viewer(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": name, "status": "queued"})
}
