// Package forecast turns a fitted model and its cleaned series into the
// self-describing document published for the dashboard.
package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/majito0703/measure-data-logger/internal/config"
	"github.com/majito0703/measure-data-logger/internal/models"
	"github.com/majito0703/measure-data-logger/internal/sarima"
	"github.com/majito0703/measure-data-logger/internal/timeseries"
)

// Export produces the forecast document for one variable: point forecasts
// over the configured horizon, 80% and 95% confidence bands computed
// independently, and a trimmed history window with explicit nulls for any
// non-finite value.
func Export(variable config.Variable, model *sarima.Model, series *timeseries.Series, now time.Time, seriesCfg config.SeriesConfig, fcCfg config.ForecastConfig) (*models.ForecastDocument, error) {
	horizon := fcCfg.Horizon

	band80, err := model.Forecast(horizon, 0.80)
	if err != nil {
		return nil, fmt.Errorf("80%% interval: %w", err)
	}
	band95, err := model.Forecast(horizon, 0.95)
	if err != nil {
		return nil, fmt.Errorf("95%% interval: %w", err)
	}

	if series.Len() == 0 || len(series.Timestamps) != series.Len() {
		return nil, fmt.Errorf("series for %s has no usable timestamps", variable.Name)
	}
	lastObserved := series.Timestamps[series.Len()-1]

	points := make([]models.ForecastPoint, horizon)
	for i := 0; i < horizon; i++ {
		points[i] = models.ForecastPoint{
			Fecha:  lastObserved.Add(time.Duration(i+1) * time.Hour).Format(models.TimestampLayout),
			Valor:  band80.Point[i],
			Low80:  band80.Lower[i],
			High80: band80.Upper[i],
			Low95:  band95.Lower[i],
			High95: band95.Upper[i],
		}
	}

	history := historyWindow(series, seriesCfg.HistoryWindow)

	doc := &models.ForecastDocument{
		Variable:     variable.Name,
		GeneratedAt:  now.Format(models.TimestampLayout),
		ModelLabel:   model.Order.String(),
		AIC:          model.AIC,
		Observations: series.Len(),
		HorizonHours: horizon,
		Threshold:    variable.Threshold,
		History:      history,
		Forecasts:    points,
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("document for %s: %w", variable.Name, err)
	}
	return doc, nil
}

// historyWindow serializes the most recent n observations. A non-finite value
// becomes an explicit null, never zero.
func historyWindow(series *timeseries.Series, n int) []models.HistoryPoint {
	tail := series.Tail(n)
	out := make([]models.HistoryPoint, tail.Len())
	for i := 0; i < tail.Len(); i++ {
		p := models.HistoryPoint{Fecha: tail.Timestamps[i].Format(models.TimestampLayout)}
		v := tail.Values[i]
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clone := v
			p.Valor = &clone
		}
		out[i] = p
	}
	return out
}

// BuildIndex assembles the run's index document from the variables that were
// successfully exported, in pipeline order.
func BuildIndex(exported []config.Variable, now time.Time) *models.IndexDocument {
	names := make([]string, len(exported))
	files := make(map[string]string, len(exported))
	for i, v := range exported {
		names[i] = v.Name
		files[v.Name] = v.Filename
	}
	return &models.IndexDocument{
		Variables:  names,
		UpdatedAt:  now.Format(models.TimestampLayout),
		Files:      files,
		TotalFiles: len(files),
	}
}
