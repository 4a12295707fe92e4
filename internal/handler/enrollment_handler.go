package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/apexgym/studio-api/internal/models"
	"github.com/apexgym/studio-api/internal/service"
	appErrors "github.com/apexgym/studio-api/pkg/errors"
	"github.com/apexgym/studio-api/pkg/response"
)

// EnrollmentHandler exposes application intake and review endpoints.
type EnrollmentHandler struct {
	service *service.EnrollmentService
	metrics *service.MetricsService
}

// NewEnrollmentHandler constructs an enrollment handler.
func NewEnrollmentHandler(svc *service.EnrollmentService, metrics *service.MetricsService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc, metrics: metrics}
}

// Submit godoc
// @Summary Submit enrollment application
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.SubmitApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	var req service.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	application, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrDuplicate.Code) {
			h.recordSubmission("duplicate")
		} else {
			h.recordSubmission("rejected")
		}
		response.Error(c, err)
		return
	}
	h.recordSubmission("accepted")
	response.Created(c, application)
}

// List godoc
// @Summary List applications
// @Tags Enrollments
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.ApplicationFilter
	filter.Status = models.ApplicationStatus(strings.ToLower(c.Query("status")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	applications, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, pagination)
}

// Get godoc
// @Summary Get application detail
// @Tags Enrollments
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	application, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// UpdateStatus godoc
// @Summary Approve or reject an application
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body service.UpdateStatusRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{id}/status [patch]
func (h *EnrollmentHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.Applied && result.Seat != nil {
		h.recordPlacement("placed")
	} else if result.Applied && result.Application.Status == models.ApplicationStatusApproved {
		h.recordPlacement("unplaced")
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Assign godoc
// @Summary Re-run placement for an approved application
// @Tags Enrollments
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/enrollments/{id}/assign [post]
func (h *EnrollmentHandler) Assign(c *gin.Context) {
	seat, err := h.service.Assign(c.Request.Context(), c.Param("id"), actorIDFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if seat != nil {
		h.recordPlacement("placed")
	} else {
		h.recordPlacement("unplaced")
	}
	response.JSON(c, http.StatusOK, gin.H{"seat": seat}, nil)
}

// Delete godoc
// @Summary Delete a pending application
// @Tags Enrollments
// @Param id path string true "Application ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /admin/enrollments/{id} [delete]
func (h *EnrollmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorIDFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *EnrollmentHandler) recordSubmission(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordSubmission(outcome)
	}
}

func (h *EnrollmentHandler) recordPlacement(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordPlacement(outcome)
	}
}
