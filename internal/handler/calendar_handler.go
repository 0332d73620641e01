package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/planner-sync-api/internal/dto"
	"github.com/noah-isme/planner-sync-api/internal/service"
	appErrors "github.com/noah-isme/planner-sync-api/pkg/errors"
	"github.com/noah-isme/planner-sync-api/pkg/response"
)

// RevisionHeader carries the calendar revision on reads and saves.
const RevisionHeader = "X-Calendar-Revision"

type calendarService interface {
	List(ctx context.Context) []dto.CalendarSummary
	Create(ctx context.Context, req dto.CreateCalendarRequest) (*dto.CreateCalendarResponse, error)
	Rename(ctx context.Context, id string, req dto.RenameCalendarRequest) (*dto.RenameCalendarResponse, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*dto.CalendarSnapshot, error)
	Save(ctx context.Context, id string, in service.SaveCalendarInput) (*dto.SaveCalendarResponse, error)
}

type calendarExporter interface {
	Export(ctx context.Context, id string, format string) (*service.ExportResult, error)
}

// CalendarHandler exposes calendar endpoints.
type CalendarHandler struct {
	service  calendarService
	exporter calendarExporter
}

// NewCalendarHandler builds a new handler.
func NewCalendarHandler(service calendarService, exporter calendarExporter) *CalendarHandler {
	return &CalendarHandler{service: service, exporter: exporter}
}

// Register mounts the calendar routes on the group.
func (h *CalendarHandler) Register(group *gin.RouterGroup) {
	calendars := group.Group("/calendars")
	calendars.GET("", h.List)
	calendars.POST("", h.Create)
	calendars.GET("/:id", h.Get)
	calendars.PUT("/:id", h.Save)
	calendars.PATCH("/:id", h.Rename)
	calendars.DELETE("/:id", h.Delete)
	calendars.GET("/:id/export", h.Export)
}

// List godoc
// @Summary List calendars
// @Tags Calendars
// @Produce json
// @Success 200 {object} response.Envelope{data=[]dto.CalendarSummary}
// @Router /calendars [get]
func (h *CalendarHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.List(c.Request.Context()))
}

// Create godoc
// @Summary Create calendar
// @Tags Calendars
// @Accept json
// @Produce json
// @Param payload body dto.CreateCalendarRequest false "Calendar name"
// @Success 201 {object} response.Envelope{data=dto.CreateCalendarResponse}
// @Failure 400 {object} response.Envelope
// @Router /calendars [post]
func (h *CalendarHandler) Create(c *gin.Context) {
	var req dto.CreateCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.WrapAs(appErrors.ErrInvalidArgument, err, "invalid calendar payload"))
		return
	}
	created, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Get godoc
// @Summary Get calendar
// @Tags Calendars
// @Produce json
// @Param id path string true "Calendar ID"
// @Success 200 {object} response.Envelope{data=dto.CalendarSnapshot}
// @Failure 404 {object} response.Envelope
// @Router /calendars/{id} [get]
func (h *CalendarHandler) Get(c *gin.Context) {
	snap, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header(RevisionHeader, strconv.FormatInt(snap.Revision, 10))
	response.JSON(c, http.StatusOK, snap)
}

// Save godoc
// @Summary Save calendar state
// @Description Stores the client's state. When baseRevision is stale the state is three-way merged with baseState.
// @Tags Calendars
// @Accept json
// @Produce json
// @Param id path string true "Calendar ID"
// @Param payload body dto.SaveCalendarRequest true "State payload"
// @Success 200 {object} response.Envelope{data=dto.SaveCalendarResponse}
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /calendars/{id} [put]
func (h *CalendarHandler) Save(c *gin.Context) {
	var req dto.SaveCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrInvalidArgument, err, "invalid save payload"))
		return
	}
	res, err := h.service.Save(c.Request.Context(), c.Param("id"), service.ParseSaveRequest(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header(RevisionHeader, strconv.FormatInt(res.Revision, 10))
	response.JSON(c, http.StatusOK, res)
}

// Rename godoc
// @Summary Rename calendar
// @Tags Calendars
// @Accept json
// @Produce json
// @Param id path string true "Calendar ID"
// @Param payload body dto.RenameCalendarRequest true "New name"
// @Success 200 {object} response.Envelope{data=dto.RenameCalendarResponse}
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calendars/{id} [patch]
func (h *CalendarHandler) Rename(c *gin.Context) {
	var req dto.RenameCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WrapAs(appErrors.ErrInvalidArgument, err, "invalid rename payload"))
		return
	}
	res, err := h.service.Rename(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Delete godoc
// @Summary Delete calendar
// @Tags Calendars
// @Produce json
// @Param id path string true "Calendar ID"
// @Success 200 {object} response.Envelope{data=dto.DeleteCalendarResponse}
// @Failure 404 {object} response.Envelope
// @Router /calendars/{id} [delete]
func (h *CalendarHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DeleteCalendarResponse{Success: true})
}

// Export godoc
// @Summary Export calendar
// @Tags Calendars
// @Produce application/octet-stream
// @Param id path string true "Calendar ID"
// @Param format query string false "ics, csv or pdf" default(ics)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calendars/{id}/export [get]
func (h *CalendarHandler) Export(c *gin.Context) {
	res, err := h.exporter.Export(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, res.Filename, res.ContentType, res.Body)
}
