package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/username/datadissem/src/export"
	"github.com/username/datadissem/src/logger"
	"github.com/username/datadissem/src/models"
	"github.com/username/datadissem/src/services"
	"github.com/username/datadissem/src/utils"
)

const exportBaseName = "data"

// DataResponse is the JSON body of GET /api/data.
type DataResponse struct {
	Data      []models.Row `json:"data"`
	Count     int          `json:"count"`
	Timestamp time.Time    `json:"timestamp"`
	Warnings  []string     `json:"warnings,omitempty"`
}

// ChartResponse is the JSON body of GET /api/chart.
type ChartResponse struct {
	Chart     *models.ChartSeries `json:"chart"`
	Count     int                 `json:"count"`
	Timestamp time.Time           `json:"timestamp"`
	Warnings  []string            `json:"warnings,omitempty"`
}

type DataHandler struct {
	queryService services.QueryService
	registry     services.APIKeyRegistry
	now          func() time.Time
}

func NewDataHandler(queryService services.QueryService, registry services.APIKeyRegistry) *DataHandler {
	return &DataHandler{
		queryService: queryService,
		registry:     registry,
		now:          time.Now,
	}
}

// recordUsage counts a successful call against the caller's key.
func (h *DataHandler) recordUsage(r *http.Request) {
	key, ok := GetAPIKeyFromContext(r.Context())
	if !ok {
		return
	}
	if err := h.registry.RecordUsage(key); err != nil {
		logger.FromContext(r.Context()).Error("Failed to record API key usage", "error", err)
	}
}

func sendQueryError(w http.ResponseWriter, r *http.Request, err error) {
	ctxLogger := logger.FromContext(r.Context())
	switch {
	case errors.Is(err, services.ErrChartRequired):
		utils.SendJSONErrorCode(w, "A chart type (bar, column, line, pie) is required", utils.CodeChartRequired, http.StatusBadRequest)
	case errors.Is(err, services.ErrDatasetUnavailable):
		ctxLogger.Error("Dataset unavailable", "error", err)
		utils.SendJSONError(w, "Dataset is not available", http.StatusServiceUnavailable)
	default:
		ctxLogger.Error("Query failed", "error", err)
		utils.SendJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func sendDateRequired(w http.ResponseWriter, mode models.DateMode) {
	msg := "A valid observation date is required (date=YYYY-MM-DD)"
	if mode == models.DateModeMulti {
		msg = "At least one valid observation date is required (dates=YYYY-MM-DD,...)"
	}
	utils.SendJSONErrorCode(w, msg, utils.CodeDateRequired, http.StatusBadRequest)
}

// HandleGetData serves filtered rows as JSON, CSV or xlsx.
func (h *DataHandler) HandleGetData(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	tr := services.TranslateQuery(r.Context(), r.URL.Query())

	result, err := h.queryService.Query(tr.Spec)
	if err != nil {
		sendQueryError(w, r, err)
		return
	}
	if result.State == models.AwaitingSelection {
		sendDateRequired(w, tr.Spec.DateMode)
		return
	}
	ctxLogger.Info("Data query served",
		"state", result.State.String(),
		"rows", len(result.Rows),
		"format", string(tr.Format))

	if serializer, ok := export.ForFormat(tr.Format); ok {
		var buf bytes.Buffer
		if err := serializer.Write(&buf, result.Rows); err != nil {
			ctxLogger.Error("Failed to serialize export", "format", string(tr.Format), "error", err)
			utils.SendJSONError(w, "Failed to build export", http.StatusInternalServerError)
			return
		}
		h.recordUsage(r)
		w.Header().Set("Content-Type", serializer.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", serializer.Filename(exportBaseName)))
		if len(tr.Warnings) > 0 {
			w.Header().Set("X-Warnings", fmt.Sprint(len(tr.Warnings)))
		}
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			ctxLogger.Error("Failed to write export body", "error", err)
		}
		return
	}

	h.recordUsage(r)
	utils.SendJSON(w, http.StatusOK, DataResponse{
		Data:      result.Rows,
		Count:     len(result.Rows),
		Timestamp: h.now().UTC(),
		Warnings:  tr.Warnings,
	})
}

// HandleGetChart serves the aggregated chart series for the filtered rows.
func (h *DataHandler) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	tr := services.TranslateQuery(r.Context(), r.URL.Query())

	result, series, err := h.queryService.Chart(tr.Spec)
	if err != nil {
		sendQueryError(w, r, err)
		return
	}
	if result.State == models.AwaitingSelection {
		sendDateRequired(w, tr.Spec.DateMode)
		return
	}

	h.recordUsage(r)
	utils.SendJSON(w, http.StatusOK, ChartResponse{
		Chart:     series,
		Count:     len(result.Rows),
		Timestamp: h.now().UTC(),
		Warnings:  tr.Warnings,
	})
}

// HandleGetOptions lists the distinct filter values of the current dataset.
func (h *DataHandler) HandleGetOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.queryService.Options()
	if err != nil {
		sendQueryError(w, r, err)
		return
	}

	// A revalidation is still a served call.
	h.recordUsage(r)

	etag, err := utils.GenerateETag(opts)
	if err == nil {
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	utils.SendJSON(w, http.StatusOK, opts)
}
