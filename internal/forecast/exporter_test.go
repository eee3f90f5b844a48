package forecast

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/majito0703/measure-data-logger/internal/config"
	"github.com/majito0703/measure-data-logger/internal/models"
	"github.com/majito0703/measure-data-logger/internal/sarima"
	"github.com/majito0703/measure-data-logger/internal/timeseries"
)

func fittedSeriesAndModel(t *testing.T) (*timeseries.Series, *sarima.Model) {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	values := make([]float64, 250)
	prev := 0.0
	for i := range values {
		prev = 0.6*prev + rng.NormFloat64()
		values[i] = 22 + prev
	}
	series := timeseries.NewHourly("Temperature", time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), values)

	m := sarima.New(sarima.Order{P: 1, D: 1, M: 12})
	if err := m.Fit(series, 200); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	return series, m
}

func TestExportDocumentShape(t *testing.T) {
	series, model := fittedSeriesAndModel(t)
	threshold := 37.0
	variable := config.Variable{Name: "PM 2.5", Column: "PM 2.5", Filename: "pm25.json", Threshold: &threshold}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	seriesCfg := config.SeriesConfig{HistoryWindow: 700}
	fcCfg := config.ForecastConfig{Horizon: 72}

	doc, err := Export(variable, model, series, now, seriesCfg, fcCfg)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if doc.Variable != "PM 2.5" {
		t.Errorf("Variable = %q", doc.Variable)
	}
	if doc.GeneratedAt != "2026-08-30 12:00:00" {
		t.Errorf("GeneratedAt = %q", doc.GeneratedAt)
	}
	if doc.ModelLabel != model.Order.String() {
		t.Errorf("ModelLabel = %q, want %q", doc.ModelLabel, model.Order.String())
	}
	if doc.Observations != series.Len() {
		t.Errorf("Observations = %d, want %d", doc.Observations, series.Len())
	}
	if doc.HorizonHours != 72 || len(doc.Forecasts) != 72 {
		t.Errorf("Horizon = %d with %d forecast points", doc.HorizonHours, len(doc.Forecasts))
	}
	if doc.Threshold == nil || *doc.Threshold != 37 {
		t.Errorf("Threshold = %v, want 37", doc.Threshold)
	}
}

func TestExportForecastTimestamps(t *testing.T) {
	series, model := fittedSeriesAndModel(t)
	variable := config.Variable{Name: "Temperature", Column: "Temperature", Filename: "t.json"}
	doc, err := Export(variable, model, series, time.Now(), config.SeriesConfig{HistoryWindow: 700}, config.ForecastConfig{Horizon: 48})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	lastObserved := series.Timestamps[series.Len()-1]
	for i, p := range doc.Forecasts {
		want := lastObserved.Add(time.Duration(i+1) * time.Hour).Format(models.TimestampLayout)
		if p.Fecha != want {
			t.Fatalf("Forecast %d dated %q, want %q", i, p.Fecha, want)
		}
		if p.Low95 > p.Low80 || p.Low80 > p.Valor || p.Valor > p.High80 || p.High80 > p.High95 {
			t.Fatalf("Forecast %d has inverted bands: %+v", i, p)
		}
	}
}

func TestExportTrimsHistory(t *testing.T) {
	series, model := fittedSeriesAndModel(t)
	variable := config.Variable{Name: "Temperature", Column: "Temperature", Filename: "t.json"}

	doc, err := Export(variable, model, series, time.Now(), config.SeriesConfig{HistoryWindow: 100}, config.ForecastConfig{Horizon: 24})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(doc.History) != 100 {
		t.Fatalf("History holds %d points, want the trailing 100", len(doc.History))
	}

	// The trimmed window ends at the last observation.
	last := doc.History[len(doc.History)-1]
	want := series.Timestamps[series.Len()-1].Format(models.TimestampLayout)
	if last.Fecha != want {
		t.Errorf("History ends at %q, want %q", last.Fecha, want)
	}
	if last.Valor == nil || *last.Valor != series.Values[series.Len()-1] {
		t.Errorf("History tail value = %v", last.Valor)
	}
}

func TestHistoryWindowNullsNonFinite(t *testing.T) {
	values := []float64{20, 21, 22}
	series := timeseries.NewHourly("Temperature", time.Now(), values)
	series.Values[1] = math.Inf(1)

	points := historyWindow(series, 10)
	if len(points) != 3 {
		t.Fatalf("Expected 3 points, got %d", len(points))
	}
	if points[1].Valor != nil {
		t.Error("Non-finite observation should serialize as null")
	}
	if points[0].Valor == nil || points[2].Valor == nil {
		t.Error("Finite observations should keep their values")
	}
}

func TestBuildIndex(t *testing.T) {
	vars := []config.Variable{
		{Name: "Temperature", Filename: "temperatura.json"},
		{Name: "PM 2.5", Filename: "pm25.json"},
	}
	now := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)

	idx := BuildIndex(vars, now)
	if err := idx.Validate(); err != nil {
		t.Fatalf("Index failed validation: %v", err)
	}
	if len(idx.Variables) != 2 || idx.Variables[0] != "Temperature" || idx.Variables[1] != "PM 2.5" {
		t.Errorf("Variables = %v", idx.Variables)
	}
	if idx.Files["PM 2.5"] != "pm25.json" {
		t.Errorf("Files = %v", idx.Files)
	}
	if idx.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d", idx.TotalFiles)
	}
	if idx.UpdatedAt != "2026-08-30 06:00:00" {
		t.Errorf("UpdatedAt = %q", idx.UpdatedAt)
	}
}
