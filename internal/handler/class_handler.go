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

// ClassHandler exposes the class catalog and roster endpoints.
type ClassHandler struct {
	service   *service.ClassService
	placement *service.PlacementService
	exports   *service.ExportService
}

// NewClassHandler constructs a class handler.
func NewClassHandler(svc *service.ClassService, placement *service.PlacementService, exports *service.ExportService) *ClassHandler {
	return &ClassHandler{service: svc, placement: placement, exports: exports}
}

// ListPublic godoc
// @Summary List active classes for the public schedule
// @Tags Classes
// @Produce json
// @Param day query string false "Filter by day of week"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) ListPublic(c *gin.Context) {
	classes, err := h.service.ListPublic(c.Request.Context(), c.Query("day"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// List godoc
// @Summary List classes with seat counts
// @Tags Classes
// @Produce json
// @Param day query string false "Filter by day of week"
// @Param program query string false "Filter by program type"
// @Param active query bool false "Active classes only"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	var filter models.ClassFilter
	filter.DayOfWeek = strings.ToLower(c.Query("day"))
	filter.ProgramType = models.ProgramType(strings.ToLower(c.Query("program")))
	filter.ActiveOnly = c.Query("active") == "true"
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	classes, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, pagination)
}

// Get godoc
// @Summary Get class detail
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	classDetail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classDetail, nil)
}

// Create godoc
// @Summary Create class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, class)
}

// Update godoc
// @Summary Update class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body service.UpdateClassRequest true "Class payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/classes/{id} [put]
func (h *ClassHandler) Update(c *gin.Context) {
	var req service.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Deactivate godoc
// @Summary Deactivate class
// @Tags Classes
// @Param id path string true "Class ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /admin/classes/{id} [delete]
func (h *ClassHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Activate godoc
// @Summary Reactivate class
// @Tags Classes
// @Param id path string true "Class ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /admin/classes/{id}/activate [post]
func (h *ClassHandler) Activate(c *gin.Context) {
	if err := h.service.Activate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// EnrollDirect godoc
// @Summary Enroll an approved application into a specific class
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body handler.EnrollDirectRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/classes/{id}/enroll [post]
func (h *ClassHandler) EnrollDirect(c *gin.Context) {
	var req EnrollDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ApplicationID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "application_id is required"))
		return
	}
	seat, err := h.placement.EnrollDirect(c.Request.Context(), req.ApplicationID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, seat)
}

// EnrollDirectRequest names the application to seat.
type EnrollDirectRequest struct {
	ApplicationID string `json:"application_id"`
}

// ExportRoster godoc
// @Summary Download the class roster
// @Tags Classes
// @Produce text/csv
// @Param id path string true "Class ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /admin/classes/{id}/roster [get]
func (h *ClassHandler) ExportRoster(c *gin.Context) {
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.exports.ClassRoster(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
