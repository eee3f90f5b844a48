package loader

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/majito0703/measure-data-logger/internal/config"
	"github.com/majito0703/measure-data-logger/internal/models"
)

const syntheticLoaderName = "synthetic"

// syntheticRows is the fixed length of a generated table, matching the
// default cache window.
const syntheticRows = 1100

// Synthetic is the last-resort loading strategy: a deterministic-length table
// of hourly-spaced, plausible-looking readings for every tracked variable.
// It exists so the pipeline can exercise its full path even when every real
// source is unreachable; its output is clearly labeled in the table source.
type Synthetic struct {
	series config.SeriesConfig
	vars   []config.Variable
}

// gaussian parameters per canonical variable name.
var syntheticProfiles = map[string]struct{ mean, std float64 }{
	"Temperature":     {25, 5},
	"Humidity":        {60, 15},
	"PM 2.5":          {20, 10},
	"PM 10":           {35, 15},
	"Radiacion Solar": {300, 100},
}

// NewSynthetic creates the synthetic strategy.
func NewSynthetic(series config.SeriesConfig, vars []config.Variable) *Synthetic {
	return &Synthetic{series: series, vars: vars}
}

// Name implements Strategy.
func (s *Synthetic) Name() string {
	return syntheticLoaderName
}

// Load generates the table. It cannot fail.
func (s *Synthetic) Load(_ context.Context) (*models.RawTable, error) {
	// Seeded so two synthetic runs in a row model identical data.
	rng := rand.New(rand.NewSource(1))

	header := make([]string, 0, len(s.vars)+1)
	header = append(header, s.series.TimestampColumn)
	for _, v := range s.vars {
		header = append(header, v.Column)
	}

	end := time.Now().Truncate(time.Hour)
	start := end.Add(-time.Duration(syntheticRows-1) * time.Hour)

	rows := make([][]string, syntheticRows)
	for i := 0; i < syntheticRows; i++ {
		t := start.Add(time.Duration(i) * time.Hour)
		row := make([]string, 0, len(header))
		row = append(row, t.Format(s.series.TimestampFormat))
		for _, v := range s.vars {
			profile, ok := syntheticProfiles[v.Name]
			if !ok {
				profile = struct{ mean, std float64 }{50, 10}
			}
			value := profile.mean + profile.std*rng.NormFloat64()
			row = append(row, strconv.FormatFloat(value, 'f', 2, 64))
		}
		rows[i] = row
	}

	return &models.RawTable{Header: header, Rows: rows, Source: s.Name()}, nil
}
