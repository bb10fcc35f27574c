package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gradesheet/internal/dto"
	"github.com/noah-isme/gradesheet/internal/service"
	appErrors "github.com/noah-isme/gradesheet/pkg/errors"
	"github.com/noah-isme/gradesheet/pkg/response"
)

type sheetService interface {
	Subjects() dto.SubjectList
	Create(ctx context.Context) (*dto.SheetView, error)
	Get(ctx context.Context, id string) (*dto.SheetView, error)
	Delete(ctx context.Context, id string) error
	AddRow(ctx context.Context, id string) (*dto.SheetView, error)
	UpdateRow(ctx context.Context, id, rowID string, req dto.UpdateRowRequest) (*dto.SheetView, error)
	RemoveRow(ctx context.Context, id, rowID string) (*dto.SheetView, error)
	Calculate(ctx context.Context, id string) (*dto.SheetView, error)
}

type exportService interface {
	Export(ctx context.Context, sheetID string, format service.ExportFormat) (*service.ExportFile, error)
}

// SheetHandler exposes grade sheet endpoints.
type SheetHandler struct {
	sheets  sheetService
	exports exportService
}

// NewSheetHandler builds a new handler.
func NewSheetHandler(sheets sheetService, exports exportService) *SheetHandler {
	return &SheetHandler{sheets: sheets, exports: exports}
}

// Subjects godoc
// @Summary List selectable subjects
// @Tags Sheets
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SheetHandler) Subjects(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.sheets.Subjects())
}

// Create godoc
// @Summary Create a grade sheet with one blank discipline
// @Tags Sheets
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /sheets [post]
func (h *SheetHandler) Create(c *gin.Context) {
	view, err := h.sheets.Create(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Get godoc
// @Summary Get a grade sheet
// @Tags Sheets
// @Produce json
// @Param id path string true "Sheet ID"
// @Success 200 {object} response.Envelope
// @Router /sheets/{id} [get]
func (h *SheetHandler) Get(c *gin.Context) {
	view, err := h.sheets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Delete godoc
// @Summary Delete a grade sheet
// @Tags Sheets
// @Param id path string true "Sheet ID"
// @Success 204
// @Router /sheets/{id} [delete]
func (h *SheetHandler) Delete(c *gin.Context) {
	if err := h.sheets.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddRow godoc
// @Summary Append a blank discipline
// @Tags Sheets
// @Produce json
// @Param id path string true "Sheet ID"
// @Success 201 {object} response.Envelope
// @Router /sheets/{id}/rows [post]
func (h *SheetHandler) AddRow(c *gin.Context) {
	view, err := h.sheets.AddRow(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// UpdateRow godoc
// @Summary Edit a discipline's subject or grade text
// @Tags Sheets
// @Accept json
// @Produce json
// @Param id path string true "Sheet ID"
// @Param rowId path string true "Row ID"
// @Param payload body dto.UpdateRowRequest true "Row payload"
// @Success 200 {object} response.Envelope
// @Router /sheets/{id}/rows/{rowId} [patch]
func (h *SheetHandler) UpdateRow(c *gin.Context) {
	var req dto.UpdateRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	view, err := h.sheets.UpdateRow(c.Request.Context(), c.Param("id"), c.Param("rowId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// RemoveRow godoc
// @Summary Remove a discipline (the last one cannot be removed)
// @Tags Sheets
// @Produce json
// @Param id path string true "Sheet ID"
// @Param rowId path string true "Row ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "data carries the unchanged sheet and its alert event"
// @Router /sheets/{id}/rows/{rowId} [delete]
func (h *SheetHandler) RemoveRow(c *gin.Context) {
	view, err := h.sheets.RemoveRow(c.Request.Context(), c.Param("id"), c.Param("rowId"))
	if err != nil {
		if view != nil {
			response.ErrorWithData(c, err, view)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Calculate godoc
// @Summary Compute statistics for a sheet
// @Tags Sheets
// @Produce json
// @Param id path string true "Sheet ID"
// @Success 200 {object} response.Envelope
// @Router /sheets/{id}/calculate [post]
func (h *SheetHandler) Calculate(c *gin.Context) {
	view, err := h.sheets.Calculate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{}
	if view.Statistics != nil {
		meta["invalid_count"] = len(view.Statistics.InvalidSequenceNumbers)
	}
	response.JSON(c, http.StatusOK, view, meta)
}

// Export godoc
// @Summary Download a sheet with its statistics
// @Tags Sheets
// @Produce octet-stream
// @Param id path string true "Sheet ID"
// @Param format query string false "csv, pdf or xlsx (default csv)"
// @Success 200 {file} file
// @Router /sheets/{id}/export [get]
func (h *SheetHandler) Export(c *gin.Context) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}

// Register mounts the sheet routes on a router group.
func (h *SheetHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/subjects", h.Subjects)
	sheets := rg.Group("/sheets")
	sheets.POST("", h.Create)
	sheets.GET("/:id", h.Get)
	sheets.DELETE("/:id", h.Delete)
	sheets.POST("/:id/rows", h.AddRow)
	sheets.PATCH("/:id/rows/:rowId", h.UpdateRow)
	sheets.DELETE("/:id/rows/:rowId", h.RemoveRow)
	sheets.POST("/:id/calculate", h.Calculate)
	sheets.GET("/:id/export", h.Export)
}
