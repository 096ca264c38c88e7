package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/escolare/portal-api/internal/dto"
	"github.com/escolare/portal-api/internal/models"
	"github.com/escolare/portal-api/internal/service"
	appErrors "github.com/escolare/portal-api/pkg/errors"
	"github.com/escolare/portal-api/pkg/response"
)

// ImportHandler exposes the student import endpoints.
type ImportHandler struct {
	imports *service.ImportService
	worker  *service.ImportWorker
	exports *service.ExportService
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports *service.ImportService, worker *service.ImportWorker, exports *service.ExportService) *ImportHandler {
	return &ImportHandler{imports: imports, worker: worker, exports: exports}
}

// Submit godoc
// @Summary Queue a student import run
// @Tags Imports
// @Accept json
// @Produce json
// @Param payload body dto.ImportRequest true "Import payload"
// @Success 202 {object} response.Envelope
// @Router /imports/students [post]
func (h *ImportHandler) Submit(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	queued, err := h.worker.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, queued)
}

// RunSync godoc
// @Summary Run a student import synchronously
// @Tags Imports
// @Accept json
// @Produce json
// @Param payload body dto.ImportRequest true "Import payload"
// @Success 200 {object} response.Envelope
// @Router /imports/students/sync [post]
func (h *ImportHandler) RunSync(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.imports.Run(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListLogs godoc
// @Summary List import runs
// @Tags Imports
// @Produce json
// @Param companyId query string false "Filter by company"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /imports/logs [get]
func (h *ImportHandler) ListLogs(c *gin.Context) {
	var filter models.ImportLogFilter
	filter.CompanyID = c.Query("companyId")
	filter.Status = models.ImportStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	logs, pagination, err := h.imports.ListLogs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// GetLog godoc
// @Summary Get one import run
// @Tags Imports
// @Produce json
// @Param id path string true "Import log ID"
// @Success 200 {object} response.Envelope
// @Router /imports/logs/{id} [get]
func (h *ImportHandler) GetLog(c *gin.Context) {
	log, err := h.imports.GetLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, log, nil)
}

// GetProgress godoc
// @Summary Get live progress of a running import
// @Tags Imports
// @Produce json
// @Param id path string true "Import log ID"
// @Success 200 {object} response.Envelope
// @Router /imports/logs/{id}/progress [get]
func (h *ImportHandler) GetProgress(c *gin.Context) {
	progress, err := h.imports.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// DownloadReport godoc
// @Summary Download the error report of an import run
// @Tags Imports
// @Produce octet-stream
// @Param id path string true "Import log ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /imports/logs/{id}/report [get]
func (h *ImportHandler) DownloadReport(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report export is disabled"))
		return
	}
	format := service.ReportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.exports.BuildReport(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
