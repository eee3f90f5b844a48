package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/majito0703/measure-data-logger/internal/config"
	"github.com/majito0703/measure-data-logger/internal/models"
)

const sheetLoaderName = "sheet-export"

// SheetLoader fetches the spreadsheet's CSV export over HTTP and keeps the
// most recent window of rows.
type SheetLoader struct {
	url        string
	window     int
	maxRetries int
	httpClient *http.Client
}

// NewSheetLoader creates the primary loading strategy.
func NewSheetLoader(src config.SourceConfig) *SheetLoader {
	return &SheetLoader{
		url:        src.SheetURL,
		window:     src.Window,
		maxRetries: src.MaxRetries,
		httpClient: &http.Client{
			Timeout: src.Timeout,
		},
	}
}

// Name implements Strategy.
func (l *SheetLoader) Name() string {
	return sheetLoaderName
}

// Load downloads and parses the CSV export, returning the trailing window.
func (l *SheetLoader) Load(ctx context.Context) (*models.RawTable, error) {
	resp, err := l.doRequest(ctx)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	reader := csv.NewReader(resp.Body)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV export: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("export has %d rows, need a header and data", len(records))
	}

	table := &models.RawTable{
		Header: records[0],
		Rows:   records[1:],
		Source: l.Name(),
	}
	return table.Tail(l.window), nil
}

// doRequest performs the HTTP request with retry on transport errors and 5xx.
func (l *SheetLoader) doRequest(ctx context.Context) (*http.Response, error) {
	var lastErr error

	for i := 0; i < l.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/csv")

		resp, err := l.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(time.Duration(i+1) * time.Second)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
