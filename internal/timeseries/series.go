// Package timeseries provides the time series data structures used across the
// pipeline: a single hourly Series consumed by the model, and a multi-variable
// Frame produced by the cleaning stages.
package timeseries

import (
	"errors"
	"math"
	"time"
)

// Series is a fixed-frequency time series for one variable.
type Series struct {
	Timestamps []time.Time
	Values     []float64
	Name       string
}

// NewSeries creates a series with explicit timestamps.
func NewSeries(name string, timestamps []time.Time, values []float64) (*Series, error) {
	if len(timestamps) != len(values) {
		return nil, errors.New("timestamps and values must have the same length")
	}
	return &Series{Name: name, Timestamps: timestamps, Values: values}, nil
}

// NewHourly creates a series of hourly values starting at the given time.
// Used by tests and the synthetic loader, where exact wall time is irrelevant.
func NewHourly(name string, start time.Time, values []float64) *Series {
	timestamps := make([]time.Time, len(values))
	for i := range timestamps {
		timestamps[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return &Series{Name: name, Timestamps: timestamps, Values: values}
}

// Len returns the number of observations.
func (s *Series) Len() int {
	return len(s.Values)
}

// Mean calculates the arithmetic mean of the series.
func (s *Series) Mean() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range s.Values {
		sum += v
	}
	return sum / float64(len(s.Values))
}

// Variance calculates the sample variance of the series.
func (s *Series) Variance() float64 {
	if len(s.Values) < 2 {
		return 0
	}
	mean := s.Mean()
	sumSq := 0.0
	for _, v := range s.Values {
		diff := v - mean
		sumSq += diff * diff
	}
	return sumSq / float64(len(s.Values)-1)
}

// Std calculates the standard deviation of the series.
func (s *Series) Std() float64 {
	return math.Sqrt(s.Variance())
}

// Diff calculates the first difference of the series.
func (s *Series) Diff() *Series {
	return s.lagDiff(1)
}

// SeasonalDiff calculates the seasonal difference with period m.
func (s *Series) SeasonalDiff(m int) *Series {
	return s.lagDiff(m)
}

func (s *Series) lagDiff(k int) *Series {
	if k <= 0 || len(s.Values) <= k {
		return &Series{Name: s.Name, Values: []float64{}}
	}

	values := make([]float64, len(s.Values)-k)
	for i := k; i < len(s.Values); i++ {
		values[i-k] = s.Values[i] - s.Values[i-k]
	}

	timestamps := make([]time.Time, len(values))
	if len(s.Timestamps) > k {
		copy(timestamps, s.Timestamps[k:])
	}

	return &Series{Name: s.Name, Timestamps: timestamps, Values: values}
}

// Tail returns a copy of the series keeping only the last n observations.
func (s *Series) Tail(n int) *Series {
	start := 0
	if n >= 0 && len(s.Values) > n {
		start = len(s.Values) - n
	}

	values := make([]float64, len(s.Values)-start)
	copy(values, s.Values[start:])

	timestamps := make([]time.Time, len(values))
	if len(s.Timestamps) == len(s.Values) {
		copy(timestamps, s.Timestamps[start:])
	}

	return &Series{Name: s.Name, Timestamps: timestamps, Values: values}
}

// Copy creates a deep copy of the series.
func (s *Series) Copy() *Series {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)

	timestamps := make([]time.Time, len(s.Timestamps))
	copy(timestamps, s.Timestamps)

	return &Series{Name: s.Name, Timestamps: timestamps, Values: values}
}

// IsHourlyContiguous reports whether every consecutive pair of timestamps is
// exactly one hour apart. The cleaned series handed to the model must satisfy
// this.
func (s *Series) IsHourlyContiguous() bool {
	for i := 1; i < len(s.Timestamps); i++ {
		if s.Timestamps[i].Sub(s.Timestamps[i-1]) != time.Hour {
			return false
		}
	}
	return true
}
