package timeseries

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/majito0703/measure-data-logger/internal/config"
	"github.com/majito0703/measure-data-logger/internal/models"
)

// Frame is a time-indexed multi-variable table with nullable cells. Rows are
// ordered by timestamp; a nil cell is a missing reading awaiting imputation.
type Frame struct {
	Times   []time.Time
	Columns []string
	cells   map[string][]*float64
}

// NewFrame creates an empty frame with the given columns.
func NewFrame(columns []string) *Frame {
	cells := make(map[string][]*float64, len(columns))
	for _, c := range columns {
		cells[c] = nil
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Frame{Columns: cols, cells: cells}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Times)
}

// Cell returns the value at the given row for the named column, or nil.
func (f *Frame) Cell(column string, row int) *float64 {
	col, ok := f.cells[column]
	if !ok || row < 0 || row >= len(col) {
		return nil
	}
	return col[row]
}

// AppendRow adds a row. Values must be in column order; nil marks a missing cell.
func (f *Frame) AppendRow(t time.Time, values []*float64) error {
	if len(values) != len(f.Columns) {
		return fmt.Errorf("expected %d values, got %d", len(f.Columns), len(values))
	}
	f.Times = append(f.Times, t)
	for i, c := range f.Columns {
		f.cells[c] = append(f.cells[c], values[i])
	}
	return nil
}

// Column extracts one variable as a Series. Rows with a nil cell are not
// representable in a Series; the caller must have dropped them first.
func (f *Frame) Column(name string) (*Series, error) {
	col, ok := f.cells[name]
	if !ok {
		return nil, fmt.Errorf("no column %q in frame", name)
	}
	values := make([]float64, len(col))
	for i, v := range col {
		if v == nil {
			return nil, fmt.Errorf("column %q still has a missing value at row %d", name, i)
		}
		values[i] = *v
	}
	timestamps := make([]time.Time, len(f.Times))
	copy(timestamps, f.Times)
	return &Series{Name: name, Timestamps: timestamps, Values: values}, nil
}

// Normalize turns a raw table into a time-indexed frame: source column headers
// are renamed to canonical variable names, value cells are coerced to numbers
// (unparseable cells become missing, not an error), and the timestamp column
// is parsed with the configured fixed format. Rows whose timestamp fails to
// parse are dropped; surviving rows keep their original order.
func Normalize(raw *models.RawTable, series config.SeriesConfig, vars []config.Variable) (*Frame, error) {
	tsIdx := raw.ColumnIndex(series.TimestampColumn)
	if tsIdx < 0 {
		return nil, fmt.Errorf("source table has no %q column", series.TimestampColumn)
	}

	colIdx := make([]int, len(vars))
	columns := make([]string, len(vars))
	for i, vr := range vars {
		columns[i] = vr.Name
		idx := raw.ColumnIndex(vr.Column)
		if idx < 0 {
			// Some exports already carry the canonical name.
			idx = raw.ColumnIndex(vr.Name)
		}
		if idx < 0 {
			return nil, fmt.Errorf("source table has no column for variable %q (looked for %q)", vr.Name, vr.Column)
		}
		colIdx[i] = idx
	}

	frame := NewFrame(columns)
	dropped := 0
	for _, row := range raw.Rows {
		t, err := time.Parse(series.TimestampFormat, strings.TrimSpace(row[tsIdx]))
		if err != nil {
			dropped++
			continue
		}

		values := make([]*float64, len(vars))
		for i, idx := range colIdx {
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64); err == nil {
				values[i] = &v
			}
		}
		if err := frame.AppendRow(t, values); err != nil {
			return nil, err
		}
	}

	if frame.Len() == 0 {
		return nil, fmt.Errorf("no row had a parseable timestamp (%d dropped)", dropped)
	}
	return frame, nil
}

// ResampleHourly aggregates the frame to exactly one row per hour, averaging
// all readings that fall inside each hour bucket. The output covers every hour
// between the first and last bucket; hours with no readings yield missing
// cells at this stage.
func ResampleHourly(f *Frame) *Frame {
	if f.Len() == 0 {
		return NewFrame(f.Columns)
	}

	type bucket struct {
		sum   map[string]float64
		count map[string]int
	}

	buckets := make(map[time.Time]*bucket)
	minHour := f.Times[0].Truncate(time.Hour)
	maxHour := minHour
	for row, t := range f.Times {
		hour := t.Truncate(time.Hour)
		if hour.Before(minHour) {
			minHour = hour
		}
		if hour.After(maxHour) {
			maxHour = hour
		}
		b, ok := buckets[hour]
		if !ok {
			b = &bucket{sum: make(map[string]float64), count: make(map[string]int)}
			buckets[hour] = b
		}
		for _, c := range f.Columns {
			if v := f.Cell(c, row); v != nil {
				b.sum[c] += *v
				b.count[c]++
			}
		}
	}

	out := NewFrame(f.Columns)
	for hour := minHour; !hour.After(maxHour); hour = hour.Add(time.Hour) {
		values := make([]*float64, len(f.Columns))
		if b, ok := buckets[hour]; ok {
			for i, c := range f.Columns {
				if n := b.count[c]; n > 0 {
					mean := b.sum[c] / float64(n)
					values[i] = &mean
				}
			}
		}
		_ = out.AppendRow(hour, values)
	}
	return out
}

// ImputeTimeOfDay fills missing cells with the mean of all readings sharing
// the same time of day, which captures the diurnal pattern without requiring a
// model. A cell with no same-time-of-day history anywhere stays missing.
func ImputeTimeOfDay(f *Frame) *Frame {
	type key struct {
		hour, minute int
	}

	out := NewFrame(f.Columns)
	sums := make(map[string]map[key]float64, len(f.Columns))
	counts := make(map[string]map[key]int, len(f.Columns))
	for _, c := range f.Columns {
		sums[c] = make(map[key]float64)
		counts[c] = make(map[key]int)
	}

	for row, t := range f.Times {
		k := key{t.Hour(), t.Minute()}
		for _, c := range f.Columns {
			if v := f.Cell(c, row); v != nil {
				sums[c][k] += *v
				counts[c][k]++
			}
		}
	}

	for row, t := range f.Times {
		k := key{t.Hour(), t.Minute()}
		values := make([]*float64, len(f.Columns))
		for i, c := range f.Columns {
			if v := f.Cell(c, row); v != nil {
				clone := *v
				values[i] = &clone
			} else if n := counts[c][k]; n > 0 {
				mean := sums[c][k] / float64(n)
				values[i] = &mean
			}
		}
		_ = out.AppendRow(t, values)
	}
	return out
}

// DropTrailingDays removes the most recent n calendar days from the frame,
// guarding against forecasting from a partially reported tail.
func DropTrailingDays(f *Frame, n int) *Frame {
	if n <= 0 || f.Len() == 0 {
		return f
	}

	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, t := range f.Times {
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	if n > len(days) {
		n = len(days)
	}
	drop := make(map[time.Time]bool, n)
	for _, day := range days[len(days)-n:] {
		drop[day] = true
	}

	out := NewFrame(f.Columns)
	for row, t := range f.Times {
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		if drop[day] {
			continue
		}
		values := make([]*float64, len(f.Columns))
		for i, c := range f.Columns {
			values[i] = f.Cell(c, row)
		}
		_ = out.AppendRow(t, values)
	}
	return out
}

// dropIncompleteRows removes every row that still contains a missing cell.
func dropIncompleteRows(f *Frame) *Frame {
	out := NewFrame(f.Columns)
	for row, t := range f.Times {
		complete := true
		values := make([]*float64, len(f.Columns))
		for i, c := range f.Columns {
			v := f.Cell(c, row)
			if v == nil {
				complete = false
				break
			}
			values[i] = v
		}
		if complete {
			_ = out.AppendRow(t, values)
		}
	}
	return out
}

// Clean runs the full normalizing, resampling, and imputation sequence and
// returns a frame with no missing cells in its retained range. The retained
// range can be shorter than the raw window; an empty result is an error and
// the caller's fatal path.
func Clean(raw *models.RawTable, series config.SeriesConfig, vars []config.Variable) (*Frame, error) {
	frame, err := Normalize(raw, series, vars)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	frame = ResampleHourly(frame)
	frame = ImputeTimeOfDay(frame)
	frame = DropTrailingDays(frame, series.DropTrailingDays)
	// Second aggregation pass after the trailing-day trim re-ranges the
	// hourly index so edge drops cannot leave stray rows behind.
	frame = ResampleHourly(frame)
	frame = dropIncompleteRows(frame)

	if frame.Len() == 0 {
		return nil, fmt.Errorf("cleaning left no usable rows")
	}
	return frame, nil
}
