// Package models defines the core domain entities for the forecasting pipeline:
// raw sensor tables as they arrive from a data source, and the versioned JSON
// documents that the pipeline publishes for the dashboard.
//
// Document field names are Spanish on the wire (fecha, pronostico, ...) because
// the dashboard consuming them predates this service; the JSON shape is a
// compatibility contract and must not change.
package models

import (
	"errors"
	"fmt"
	"time"
)

// TimestampLayout is the format used for every timestamp string inside
// published documents.
const TimestampLayout = "2006-01-02 15:04:05"

// HistoryPoint is one observed reading inside a forecast document.
// Valor is a pointer so that a missing reading serializes as an explicit
// null, never as zero.
type HistoryPoint struct {
	Fecha string   `json:"fecha"`
	Valor *float64 `json:"valor"`
}

// ForecastPoint is one forecast step with its two confidence bands.
type ForecastPoint struct {
	Fecha   string  `json:"fecha"`
	Valor   float64 `json:"pronostico"`
	Low80   float64 `json:"confianza_80_min"`
	High80  float64 `json:"confianza_80_max"`
	Low95   float64 `json:"confianza_95_min"`
	High95  float64 `json:"confianza_95_max"`
}

// ForecastDocument is the persisted artifact for one variable. It is created
// once per run, immutable after creation, and superseded wholesale by the next
// run's document of the same name.
type ForecastDocument struct {
	Variable     string          `json:"variable"`
	GeneratedAt  string          `json:"fecha_generacion"`
	ModelLabel   string          `json:"modelo"`
	AIC          float64         `json:"aic"`
	Observations int             `json:"observaciones_historicas"`
	HorizonHours int             `json:"horas_pronostico"`
	Threshold    *float64        `json:"limite_permitido"`
	History      []HistoryPoint  `json:"historico"`
	Forecasts    []ForecastPoint `json:"pronosticos"`
}

// Validate checks that the document is internally consistent.
func (d *ForecastDocument) Validate() error {
	if d.Variable == "" {
		return errors.New("variable must not be empty")
	}
	if d.ModelLabel == "" {
		return errors.New("model label must not be empty")
	}
	if _, err := time.Parse(TimestampLayout, d.GeneratedAt); err != nil {
		return fmt.Errorf("generation timestamp is malformed: %w", err)
	}
	if d.HorizonHours < 1 {
		return errors.New("forecast horizon must be at least 1 hour")
	}
	if len(d.Forecasts) != d.HorizonHours {
		return fmt.Errorf("expected %d forecast points, got %d", d.HorizonHours, len(d.Forecasts))
	}
	for i, p := range d.Forecasts {
		if p.Low95 > p.Low80 || p.Low80 > p.Valor || p.Valor > p.High80 || p.High80 > p.High95 {
			return fmt.Errorf("forecast step %d violates interval nesting", i)
		}
	}
	return nil
}

// IndexDocument summarizes one run: which variables were exported and under
// which filenames. One per run, supersedes the previous index.
type IndexDocument struct {
	Variables  []string          `json:"variables"`
	UpdatedAt  string            `json:"ultima_actualizacion"`
	Files      map[string]string `json:"archivos"`
	TotalFiles int               `json:"total_archivos"`
}

// Validate checks that the index is internally consistent.
func (d *IndexDocument) Validate() error {
	if len(d.Variables) == 0 {
		return errors.New("index must list at least one variable")
	}
	if d.TotalFiles != len(d.Files) {
		return fmt.Errorf("total_archivos is %d but %d files are listed", d.TotalFiles, len(d.Files))
	}
	for _, v := range d.Variables {
		if _, ok := d.Files[v]; !ok {
			return fmt.Errorf("variable %q has no file entry", v)
		}
	}
	return nil
}
