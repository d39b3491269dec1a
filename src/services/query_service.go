package services

import (
	"github.com/username/datadissem/src/models"
	"github.com/username/datadissem/src/processors"
)

type queryServiceImpl struct {
	datasets       DatasetService
	queryProcessor processors.QueryProcessor
	chartProcessor processors.ChartProcessor
}

func NewQueryService(
	datasets DatasetService,
	queryProcessor processors.QueryProcessor,
	chartProcessor processors.ChartProcessor,
) QueryService {
	return &queryServiceImpl{
		datasets:       datasets,
		queryProcessor: queryProcessor,
		chartProcessor: chartProcessor,
	}
}

func (s *queryServiceImpl) Query(spec models.FilterSpec) (models.FilterResult, error) {
	ds, err := s.datasets.Current()
	if err != nil {
		return models.FilterResult{}, err
	}
	return s.queryProcessor.Filter(ds, spec), nil
}

// Chart filters and aggregates in one pass. It fails with ErrChartRequired
// when spec asks for no chart.
func (s *queryServiceImpl) Chart(spec models.FilterSpec) (models.FilterResult, *models.ChartSeries, error) {
	if spec.ChartType == models.ChartNone {
		return models.FilterResult{}, nil, ErrChartRequired
	}
	result, err := s.Query(spec)
	if err != nil {
		return models.FilterResult{}, nil, err
	}
	return result, s.chartProcessor.Aggregate(result.Rows, spec.ChartType, spec.DateMode), nil
}

func (s *queryServiceImpl) Options() (models.FilterOptions, error) {
	ds, err := s.datasets.Current()
	if err != nil {
		return models.FilterOptions{}, err
	}
	return ds.Options(), nil
}
