package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"careerDesk/internal/database"
	"careerDesk/internal/tracker"
)

// JobHandler 处理投递记录的增删改查。
type JobHandler struct {
	svc *tracker.Service
}

func NewJobHandler(svc *tracker.Service) *JobHandler {
	return &JobHandler{svc: svc}
}

func (h *JobHandler) Create(c *gin.Context) {
	var req tracker.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	job, err := h.svc.Create(c.Request.Context(), c.Param("identityId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// List 支持 ?status= 与 ?q= 过滤。
func (h *JobHandler) List(c *gin.Context) {
	filter := tracker.Filter{
		Status: database.JobStatus(c.Query("status")),
		Query:  c.Query("q"),
	}
	jobs, err := h.svc.List(c.Request.Context(), c.Param("identityId"), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *JobHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), c.Param("identityId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *JobHandler) Update(c *gin.Context) {
	var req tracker.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	job, err := h.svc.Update(c.Request.Context(), c.Param("identityId"), c.Param("jobId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("identityId"), c.Param("jobId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job deleted"})
}
