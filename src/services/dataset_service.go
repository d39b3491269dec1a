package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/datadissem/src/logger"
	"github.com/username/datadissem/src/models"
)

const (
	ckDataset            = "dataset_current"
	CacheCleanupInterval = 30 * time.Minute
)

type datasetServiceImpl struct {
	loader DatasetLoader
	cache  *cache.Cache
	loadMu sync.Mutex
}

// NewDatasetService caches the loader's result for ttl. A ttl of zero keeps
// the dataset until Invalidate, Reload or Replace.
func NewDatasetService(loader DatasetLoader, ttl time.Duration) DatasetService {
	expiration := ttl
	if ttl <= 0 {
		expiration = cache.NoExpiration
	}
	return &datasetServiceImpl{
		loader: loader,
		cache:  cache.New(expiration, CacheCleanupInterval),
	}
}

func (s *datasetServiceImpl) cached() (*models.Dataset, bool) {
	if v, found := s.cache.Get(ckDataset); found {
		return v.(*models.Dataset), true
	}
	return nil, false
}

// Current returns the cached dataset, loading it on a miss.
func (s *datasetServiceImpl) Current() (*models.Dataset, error) {
	if ds, ok := s.cached(); ok {
		return ds, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if ds, ok := s.cached(); ok {
		return ds, nil
	}
	return s.load()
}

// Reload loads the dataset from its source regardless of the cache.
func (s *datasetServiceImpl) Reload() (*models.Dataset, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.load()
}

func (s *datasetServiceImpl) load() (*models.Dataset, error) {
	start := time.Now()
	ds, err := s.loader()
	if err != nil {
		logger.L.Error("Failed to load dataset", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatasetUnavailable, err)
	}
	if ds.LoadedAt.IsZero() {
		ds.LoadedAt = time.Now().UTC()
	}
	s.cache.Set(ckDataset, ds, cache.DefaultExpiration)
	logger.L.Info("Dataset loaded",
		"source", ds.Source,
		"rows", ds.Len(),
		"dropped", ds.Dropped,
		"duration", time.Since(start).String())
	return ds, nil
}

// Replace installs ds as the current dataset, for example after an upload.
// It is kept until the next Invalidate or Reload.
func (s *datasetServiceImpl) Replace(ds *models.Dataset) {
	if ds.LoadedAt.IsZero() {
		ds.LoadedAt = time.Now().UTC()
	}
	s.cache.Set(ckDataset, ds, cache.NoExpiration)
	logger.L.Info("Dataset replaced", "source", ds.Source, "rows", ds.Len())
}

// Invalidate drops the cached dataset; the next Current call reloads it.
func (s *datasetServiceImpl) Invalidate() {
	s.cache.Delete(ckDataset)
	logger.L.Debug("Dataset cache invalidated")
}
