package services

import (
	"errors"

	"github.com/username/datadissem/src/models"
)

// Common service errors.
var (
	ErrDatasetUnavailable = errors.New("dataset unavailable")
	ErrChartRequired      = errors.New("chart type required")
)

// APIKeyRegistry tracks issued API keys and their usage. Implementations only
// ever expose masked keys through List.
type APIKeyRegistry interface {
	// Generate issues a new key. The full key is returned exactly once, next to
	// the masked record as stored.
	Generate() (string, models.APIKeyRecord, error)
	Validate(key string) (bool, error)
	// RecordUsage updates last-used time and call count. Unknown keys are a no-op.
	RecordUsage(key string) error
	// List returns masked records in creation order.
	List() ([]models.APIKeyRecord, error)
}

// DatasetLoader produces a fresh Dataset, usually from the configured file.
type DatasetLoader func() (*models.Dataset, error)

// DatasetService owns the current Dataset.
type DatasetService interface {
	Current() (*models.Dataset, error)
	Reload() (*models.Dataset, error)
	Replace(ds *models.Dataset)
	Invalidate()
}

// QueryService runs filter specs against the current dataset.
type QueryService interface {
	Query(spec models.FilterSpec) (models.FilterResult, error)
	Chart(spec models.FilterSpec) (models.FilterResult, *models.ChartSeries, error)
	Options() (models.FilterOptions, error)
}
