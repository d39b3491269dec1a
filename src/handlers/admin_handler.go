package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/username/datadissem/src/logger"
	"github.com/username/datadissem/src/models"
	"github.com/username/datadissem/src/parsers/dataset"
	"github.com/username/datadissem/src/security/validation"
	"github.com/username/datadissem/src/services"
	"github.com/username/datadissem/src/utils"
)

// GeneratedKeyResponse is the only response that ever carries a full key.
type GeneratedKeyResponse struct {
	Key       string    `json:"key"`
	Masked    string    `json:"masked"`
	CreatedAt time.Time `json:"created_at"`
}

// ConfigResponse is the body of GET/PUT /api/admin/config.
type ConfigResponse struct {
	APIBaseURL string `json:"api_base_url"`
}

// DatasetResponse summarizes the dataset after a reload or upload.
type DatasetResponse struct {
	Source   string    `json:"source"`
	Rows     int       `json:"rows"`
	Dropped  int       `json:"dropped"`
	LoadedAt time.Time `json:"loaded_at"`
}

type AdminHandler struct {
	registry       services.APIKeyRegistry
	datasets       services.DatasetService
	settings       *services.APISettings
	maxUploadBytes int64
	defaultSheet   int
}

func NewAdminHandler(
	registry services.APIKeyRegistry,
	datasets services.DatasetService,
	settings *services.APISettings,
	maxUploadBytes int64,
	defaultSheet int,
) *AdminHandler {
	return &AdminHandler{
		registry:       registry,
		datasets:       datasets,
		settings:       settings,
		maxUploadBytes: maxUploadBytes,
		defaultSheet:   defaultSheet,
	}
}

func datasetSummary(ds *models.Dataset) DatasetResponse {
	return DatasetResponse{Source: ds.Source, Rows: ds.Len(), Dropped: ds.Dropped, LoadedAt: ds.LoadedAt}
}

// HandleGenerateKey issues a new API key.
func (h *AdminHandler) HandleGenerateKey(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	key, rec, err := h.registry.Generate()
	if err != nil {
		ctxLogger.Error("Failed to generate API key", "error", err)
		utils.SendJSONError(w, "Failed to generate API key", http.StatusInternalServerError)
		return
	}
	ctxLogger.Info("API key generated", "apiKey", rec.Key)
	utils.SendJSON(w, http.StatusCreated, GeneratedKeyResponse{
		Key:       key,
		Masked:    rec.Key,
		CreatedAt: rec.CreatedAt,
	})
}

// HandleListKeys lists masked keys with usage counters.
func (h *AdminHandler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	records, err := h.registry.List()
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list API keys", "error", err)
		utils.SendJSONError(w, "Failed to list API keys", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]interface{}{"keys": records, "count": len(records)})
}

// HandleExampleURL builds a data API URL for the filters in the query string.
func (h *AdminHandler) HandleExampleURL(w http.ResponseWriter, r *http.Request) {
	tr := services.TranslateQuery(r.Context(), r.URL.Query())
	example, err := services.ExampleURL(h.settings.BaseURL(), tr.Spec, tr.Format)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to build example URL", "error", err)
		utils.SendJSONError(w, "Configured API base URL is invalid", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]interface{}{
		"url":      example,
		"header":   APIKeyHeader,
		"warnings": tr.Warnings,
	})
}

func (h *AdminHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, http.StatusOK, ConfigResponse{APIBaseURL: h.settings.BaseURL()})
}

// HandleUpdateConfig replaces the API base URL used for example URLs.
func (h *AdminHandler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req ConfigResponse
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.settings.SetBaseURL(req.APIBaseURL); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.FromContext(r.Context()).Info("API base URL updated", "apiBaseURL", h.settings.BaseURL())
	utils.SendJSON(w, http.StatusOK, ConfigResponse{APIBaseURL: h.settings.BaseURL()})
}

// HandleReloadDataset reloads the dataset from its configured source.
func (h *AdminHandler) HandleReloadDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.datasets.Reload()
	if err != nil {
		logger.FromContext(r.Context()).Error("Dataset reload failed", "error", err)
		utils.SendJSONError(w, "Failed to reload dataset", http.StatusServiceUnavailable)
		return
	}
	utils.SendJSON(w, http.StatusOK, datasetSummary(ds))
}

// HandleUploadDataset replaces the dataset with an uploaded CSV or xlsx file.
func (h *AdminHandler) HandleUploadDataset(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		ctxLogger.Warn("Failed to parse multipart form or request too large", "error", err, "limit", h.maxUploadBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse upload or file too large (max %d MB)", h.maxUploadBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		ctxLogger.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := validation.ValidateClientContentType(fileHeader.Header.Get("Content-Type")); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	kind, err := validation.DetectDatasetKind(file, fileHeader.Filename)
	if err != nil {
		ctxLogger.Warn("Server-side file content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var parser dataset.Parser
	switch kind {
	case validation.KindXLSX:
		sheet := h.defaultSheet
		if raw := r.FormValue("sheet"); raw != "" {
			n, convErr := strconv.Atoi(raw)
			if convErr != nil || n < 0 {
				utils.SendJSONError(w, "sheet must be a non-negative integer", http.StatusBadRequest)
				return
			}
			sheet = n
		}
		parser = dataset.NewXLSXParser(sheet)
	default:
		parser = dataset.NewCSVParser()
	}

	ds, err := parser.Parse(file)
	if err != nil {
		ctxLogger.Warn("Uploaded dataset rejected", "filename", fileHeader.Filename, "kind", kind, "error", err)
		status := http.StatusUnprocessableEntity
		if !errors.Is(err, dataset.ErrMissingColumn) && !errors.Is(err, dataset.ErrNoValidRows) {
			status = http.StatusBadRequest
		}
		utils.SendJSONError(w, err.Error(), status)
		return
	}
	ds.Source = validation.SanitizeText(fileHeader.Filename)
	h.datasets.Replace(ds)

	ctxLogger.Info("Dataset replaced by upload", "filename", fileHeader.Filename, "kind", kind, "rows", ds.Len(), "dropped", ds.Dropped)
	utils.SendJSON(w, http.StatusOK, datasetSummary(ds))
}
