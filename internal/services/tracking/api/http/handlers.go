// Package http exposes the shift tracking services over a JSON HTTP API.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/punchcard-hq/punchcard/internal/platform/errors"
	"github.com/punchcard-hq/punchcard/internal/platform/logx"
	"github.com/punchcard-hq/punchcard/internal/services/tracking"
	"github.com/punchcard-hq/punchcard/internal/services/tracking/storage"
)

// Handler adapts the tracking services to gin routes.
type Handler struct {
	Shifts  *tracking.ShiftService
	Stats   *tracking.StatsService
	Rebuild *tracking.RebuildService
	Log     logx.Logger
}

type shiftCommandRequest struct {
	WorkerID  uint32 `json:"workerId" binding:"required"`
	Timestamp string `json:"timestamp"`
}

type shiftCommandResponse struct {
	StreamID  string `json:"streamId"`
	WorkerID  uint32 `json:"workerId"`
	Status    string `json:"status"`
	Seq       uint64 `json:"seq"`
	Timestamp string `json:"timestamp"`
}

type monthlyStatsResponse struct {
	WorkerID           uint32 `json:"workerId"`
	Year               int    `json:"year"`
	Month              int    `json:"month"`
	TotalMinutesWorked int64  `json:"totalMinutesWorked"`
	WorkInProgress     bool   `json:"workInProgress"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// StartShift handles POST /time-tracking/shifts/start.
func (h *Handler) StartShift(c *gin.Context) {
	h.runShiftCommand(c, h.Shifts.StartShift)
}

// EndShift handles POST /time-tracking/shifts/end.
func (h *Handler) EndShift(c *gin.Context) {
	h.runShiftCommand(c, h.Shifts.EndShift)
}

// StartBreak handles POST /time-tracking/breaks/start.
func (h *Handler) StartBreak(c *gin.Context) {
	h.runShiftCommand(c, h.Shifts.StartBreak)
}

// StopBreak handles POST /time-tracking/breaks/end.
func (h *Handler) StopBreak(c *gin.Context) {
	h.runShiftCommand(c, h.Shifts.StopBreak)
}

func (h *Handler) runShiftCommand(c *gin.Context, run func(context.Context, uint32, time.Time, string) (tracking.ShiftResult, error)) {
	var req shiftCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperrors.New(apperrors.CodeShiftInvalidRequest, "invalid request body: "+err.Error()))
		return
	}

	var at time.Time
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			h.writeError(c, apperrors.New(apperrors.CodeShiftInvalidRequest, "timestamp must be RFC 3339"))
			return
		}
		at = parsed
	}

	result, err := run(c.Request.Context(), req.WorkerID, at, requestID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, shiftCommandResponse{
		StreamID:  result.StreamID,
		WorkerID:  result.WorkerID,
		Status:    string(result.Status),
		Seq:       result.Seq,
		Timestamp: result.Timestamp.Format(time.RFC3339),
	})
}

// WorkerMonthStats handles GET /time-tracking/stats/:year/:month/:workerId.
func (h *Handler) WorkerMonthStats(c *gin.Context) {
	year, month, ok := h.periodParams(c)
	if !ok {
		return
	}
	workerID, err := strconv.ParseUint(c.Param("workerId"), 10, 32)
	if err != nil || workerID == 0 {
		h.writeError(c, apperrors.New(apperrors.CodeStatsInvalidWorker, "worker id must be a positive integer"))
		return
	}

	row, err := h.Stats.WorkerMonth(c.Request.Context(), uint32(workerID), year, month)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatsResponse(row))
}

// MonthStats handles GET /time-tracking/stats/:year/:month.
func (h *Handler) MonthStats(c *gin.Context) {
	year, month, ok := h.periodParams(c)
	if !ok {
		return
	}

	rows, err := h.Stats.Month(c.Request.Context(), year, month)
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]monthlyStatsResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toStatsResponse(row))
	}
	c.JSON(http.StatusOK, out)
}

// RebuildProjections handles POST /time-tracking/maintenance/rebuild-projections.
// The rebuild runs in the background; the response only acknowledges it.
func (h *Handler) RebuildProjections(c *gin.Context) {
	started := h.Rebuild.Start(c.Request.Context())
	status := "started"
	if !started {
		status = "already_running"
	}
	c.JSON(http.StatusAccepted, gin.H{"status": status})
}

func (h *Handler) periodParams(c *gin.Context) (year, month int, ok bool) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		h.writeError(c, apperrors.New(apperrors.CodeStatsInvalidYear, "year must be an integer"))
		return 0, 0, false
	}
	month, err = strconv.Atoi(c.Param("month"))
	if err != nil {
		h.writeError(c, apperrors.New(apperrors.CodeStatsInvalidMonth, "month must be an integer"))
		return 0, 0, false
	}
	return year, month, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	message := err.Error()
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		// Internal details stay in the logs, not the response.
		h.Log.Error(c.Request.Context(), "http.internal_error",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("request_id", requestID(c)),
			slog.String("error", err.Error()),
		)
		message = "internal error"
	}
	c.JSON(status, errorEnvelope{Error: errorBody{
		Code:      string(code),
		Message:   message,
		RequestID: requestID(c),
	}})
}

func toStatsResponse(row storage.WorkerMonthlyStats) monthlyStatsResponse {
	return monthlyStatsResponse{
		WorkerID:           row.WorkerID,
		Year:               row.Year,
		Month:              row.Month,
		TotalMinutesWorked: row.TotalMinutesWorked,
		WorkInProgress:     row.LastWorkStartedAt != nil,
	}
}
