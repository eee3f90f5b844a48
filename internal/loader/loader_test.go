package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/majito0703/measure-data-logger/internal/config"
	"github.com/majito0703/measure-data-logger/internal/models"
)

type stubStrategy struct {
	name  string
	table *models.RawTable
	err   error
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Load(_ context.Context) (*models.RawTable, error) {
	return s.table, s.err
}

func sampleTable(source string) *models.RawTable {
	return &models.RawTable{
		Header: []string{"Date", "Temperature"},
		Rows:   [][]string{{"01/08/2026 00:00:00", "20.5"}},
		Source: source,
	}
}

func TestChainFallsBackOnFailure(t *testing.T) {
	chain := NewChainOf(
		&stubStrategy{name: "primary", err: errors.New("unreachable")},
		&stubStrategy{name: "secondary", table: sampleTable("secondary")},
	)

	table := chain.Load(context.Background())
	if table == nil {
		t.Fatal("Chain returned no table")
	}
	if table.Source != "secondary" {
		t.Errorf("Table came from %q, want the fallback", table.Source)
	}
}

func TestChainSkipsUnusableTable(t *testing.T) {
	ragged := &models.RawTable{
		Header: []string{"Date", "Temperature"},
		Rows:   [][]string{{"01/08/2026 00:00:00"}},
		Source: "primary",
	}
	chain := NewChainOf(
		&stubStrategy{name: "primary", table: ragged},
		&stubStrategy{name: "secondary", table: sampleTable("secondary")},
	)

	table := chain.Load(context.Background())
	if table == nil || table.Source != "secondary" {
		t.Fatalf("Chain should skip the ragged table, got %+v", table)
	}
}

func TestChainExhausted(t *testing.T) {
	chain := NewChainOf(&stubStrategy{name: "only", err: errors.New("down")})
	if table := chain.Load(context.Background()); table != nil {
		t.Errorf("Exhausted chain should return nil, got %+v", table)
	}
}

func sheetSource(url string, window int) config.SourceConfig {
	return config.SourceConfig{
		SheetURL:   url,
		Window:     window,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	}
}

func TestSheetLoaderKeepsTrailingWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Date,Temperature")
		for i := 0; i < 10; i++ {
			fmt.Fprintf(w, "01/08/2026 %02d:00:00,%d\n", i, 20+i)
		}
	}))
	defer server.Close()

	loader := NewSheetLoader(sheetSource(server.URL, 4))
	table, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(table.Header) != 2 || table.Header[0] != "Date" {
		t.Errorf("Header = %v", table.Header)
	}
	if len(table.Rows) != 4 {
		t.Fatalf("Got %d rows, want the trailing 4", len(table.Rows))
	}
	if table.Rows[0][1] != "26" || table.Rows[3][1] != "29" {
		t.Errorf("Window holds the wrong rows: %v", table.Rows)
	}
	if table.Source != sheetLoaderName {
		t.Errorf("Source = %q", table.Source)
	}
}

func TestSheetLoaderRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintln(w, "Date,Temperature")
		fmt.Fprintln(w, "01/08/2026 00:00:00,20")
	}))
	defer server.Close()

	loader := NewSheetLoader(sheetSource(server.URL, 100))
	table, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load should retry past a 502: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
	if len(table.Rows) != 1 {
		t.Errorf("Got %d rows", len(table.Rows))
	}
}

func TestSheetLoaderRejectsClientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	loader := NewSheetLoader(sheetSource(server.URL, 100))
	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("Expected an error on 404")
	}
	if attempts != 1 {
		t.Errorf("Client errors should not be retried, got %d attempts", attempts)
	}
}

func TestSheetLoaderRejectsHeaderOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Date,Temperature")
	}))
	defer server.Close()

	loader := NewSheetLoader(sheetSource(server.URL, 100))
	if _, err := loader.Load(context.Background()); err == nil {
		t.Error("Expected an error for an export with no data rows")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "readings.db")
	cache := NewCache(path, 1100)

	source := &models.RawTable{
		Header: []string{"Date", "Temperature"},
		Rows: [][]string{
			{"01/08/2026 00:00:00", "20"},
			{"01/08/2026 01:00:00", "21"},
			{"01/08/2026 02:00:00", "22"},
		},
	}
	if err := cache.Refresh(source); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	table, err := cache.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Header) != 2 || table.Header[1] != "Temperature" {
		t.Errorf("Header = %v", table.Header)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("Got %d rows, want 3", len(table.Rows))
	}
	for i, want := range []string{"20", "21", "22"} {
		if table.Rows[i][1] != want {
			t.Errorf("Row %d = %v, original order not preserved", i, table.Rows[i])
		}
	}
	if table.Source != cacheLoaderName {
		t.Errorf("Source = %q", table.Source)
	}
}

func TestCacheWindowTrimsOldRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.db")
	cache := NewCache(path, 2)

	source := &models.RawTable{
		Header: []string{"Date", "Temperature"},
		Rows: [][]string{
			{"01/08/2026 00:00:00", "20"},
			{"01/08/2026 01:00:00", "21"},
			{"01/08/2026 02:00:00", "22"},
		},
	}
	if err := cache.Refresh(source); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	table, err := cache.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Got %d rows, want the trailing 2", len(table.Rows))
	}
	if table.Rows[0][1] != "21" || table.Rows[1][1] != "22" {
		t.Errorf("Window holds the wrong rows: %v", table.Rows)
	}
}

func TestCacheRefreshReplacesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.db")
	cache := NewCache(path, 1100)

	first := &models.RawTable{Header: []string{"Date", "Temperature"}, Rows: [][]string{{"a", "1"}}}
	second := &models.RawTable{Header: []string{"Date", "Temperature"}, Rows: [][]string{{"b", "2"}}}
	if err := cache.Refresh(first); err != nil {
		t.Fatalf("First refresh failed: %v", err)
	}
	if err := cache.Refresh(second); err != nil {
		t.Fatalf("Second refresh failed: %v", err)
	}

	table, err := cache.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(table.Rows) != 1 || table.Rows[0][0] != "b" {
		t.Errorf("Refresh should replace, not append: %v", table.Rows)
	}
}

func TestCacheMissingFile(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "absent.db"), 1100)
	if _, err := cache.Load(context.Background()); err == nil {
		t.Error("Expected an error for a missing cache file")
	}
}

func TestSyntheticShape(t *testing.T) {
	seriesCfg := config.SeriesConfig{
		TimestampColumn: "Date",
		TimestampFormat: "02/01/2006 15:04:05",
	}
	vars := config.DefaultVariables()

	table, err := NewSynthetic(seriesCfg, vars).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("Synthetic table failed validation: %v", err)
	}
	if len(table.Rows) != syntheticRows {
		t.Fatalf("Got %d rows, want %d", len(table.Rows), syntheticRows)
	}
	if len(table.Header) != len(vars)+1 {
		t.Fatalf("Header = %v", table.Header)
	}

	// Every cell must survive the normalization pass downstream.
	for _, row := range [][]string{table.Rows[0], table.Rows[len(table.Rows)-1]} {
		if _, err := time.Parse(seriesCfg.TimestampFormat, row[0]); err != nil {
			t.Errorf("Unparseable timestamp %q: %v", row[0], err)
		}
		for _, cell := range row[1:] {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				t.Errorf("Unparseable value %q: %v", cell, err)
			}
		}
	}
}

func TestSyntheticValuesAreDeterministic(t *testing.T) {
	seriesCfg := config.SeriesConfig{
		TimestampColumn: "Date",
		TimestampFormat: "02/01/2006 15:04:05",
	}
	vars := config.DefaultVariables()
	strategy := NewSynthetic(seriesCfg, vars)

	a, _ := strategy.Load(context.Background())
	b, _ := strategy.Load(context.Background())

	// Timestamps track wall time; the sampled values do not.
	for i := range a.Rows {
		for j := 1; j < len(a.Rows[i]); j++ {
			if a.Rows[i][j] != b.Rows[i][j] {
				t.Fatalf("Row %d column %d differs between loads: %q vs %q", i, j, a.Rows[i][j], b.Rows[i][j])
			}
		}
	}
}
